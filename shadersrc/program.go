package shadersrc

import (
	"fmt"
	"io/fs"

	"github.com/go-theft-auto/render"
)

// Compile compiles every source into a shader. On error the shaders compiled
// so far are deleted.
func Compile(dev render.Device, sources []Source) ([]*render.Shader, error) {
	shaders := make([]*render.Shader, 0, len(sources))
	for _, src := range sources {
		s, err := render.NewShader(dev, src.Stage, src.Code)
		if err != nil {
			deleteAll(shaders)
			return nil, fmt.Errorf("%s: %w", src.Name, err)
		}
		shaders = append(shaders, s)
	}
	return shaders, nil
}

// NewProgram loads, compiles and links the named files into one program.
// The intermediate shaders are always released.
func NewProgram(dev render.Device, fsys fs.FS, names ...string) (*render.Program, error) {
	var sources []Source
	for _, name := range names {
		srcs, err := Load(fsys, name)
		if err != nil {
			return nil, err
		}
		sources = append(sources, srcs...)
	}

	shaders, err := Compile(dev, sources)
	if err != nil {
		return nil, err
	}
	defer deleteAll(shaders)

	prog, err := render.NewProgram(dev, shaders...)
	if err != nil {
		return nil, fmt.Errorf("link %v: %w", names, err)
	}
	return prog, nil
}

// NewComputeProgram loads a single compute shader file and links it.
func NewComputeProgram(dev render.Device, fsys fs.FS, name string) (*render.ComputeProgram, error) {
	sources, err := Load(fsys, name)
	if err != nil {
		return nil, err
	}
	if len(sources) != 1 || sources[0].Stage != render.ComputeStage {
		return nil, fmt.Errorf("%s: want exactly one compute entry point, got %d sources", name, len(sources))
	}

	prog, err := render.NewComputeProgram(dev, sources[0].Code)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return prog, nil
}

func deleteAll(shaders []*render.Shader) {
	for _, s := range shaders {
		s.Delete()
	}
}
