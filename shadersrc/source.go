// Package shadersrc loads shader sources for render.
//
// GLSL files are passed through verbatim and their stage comes from the file
// extension. WGSL files are translated to GLSL 4.30 with one Source per entry
// point.
package shadersrc

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/glsl"
	"github.com/gogpu/naga/ir"

	"github.com/go-theft-auto/render"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: render.LogLevel()}))

// ErrUnknownExtension is returned for files whose stage cannot be inferred.
var ErrUnknownExtension = errors.New("unknown shader extension")

// Source is shader code ready for render.NewShader.
type Source struct {
	// Name is the file path, with "#entry" appended for WGSL entry points.
	Name  string
	Stage render.Stage
	Code  string
}

var stageByExt = map[string]render.Stage{
	".vert": render.VertexStage,
	".vs":   render.VertexStage,
	".frag": render.FragmentStage,
	".fs":   render.FragmentStage,
	".geom": render.GeometryStage,
	".comp": render.ComputeStage,
}

// StageForPath returns the stage implied by a GLSL file extension.
func StageForPath(name string) (render.Stage, error) {
	stage, ok := stageByExt[strings.ToLower(path.Ext(name))]
	if !ok {
		return 0, fmt.Errorf("%s: %w", name, ErrUnknownExtension)
	}
	return stage, nil
}

// Supported reports whether Load understands the file.
func Supported(name string) bool {
	ext := strings.ToLower(path.Ext(name))
	_, ok := stageByExt[ext]
	return ok || ext == ".wgsl"
}

// Load reads name from fsys. A GLSL file yields one Source; a WGSL file yields
// one per entry point.
func Load(fsys fs.FS, name string) ([]Source, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read shader: %w", err)
	}

	if strings.EqualFold(path.Ext(name), ".wgsl") {
		return TranslateWGSL(name, string(data))
	}

	stage, err := StageForPath(name)
	if err != nil {
		return nil, err
	}
	return []Source{{Name: name, Stage: stage, Code: string(data)}}, nil
}

// LoadFile is Load on the operating system's file system.
func LoadFile(name string) ([]Source, error) {
	return Load(os.DirFS(filepath.Dir(name)), filepath.Base(name))
}

// TranslateWGSL translates WGSL source to GLSL 4.30, one Source per entry
// point.
func TranslateWGSL(name, source string) ([]Source, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if len(module.EntryPoints) == 0 {
		return nil, fmt.Errorf("%s: no entry points", name)
	}

	out := make([]Source, 0, len(module.EntryPoints))
	for _, ep := range module.EntryPoints {
		stage, err := irStage(ep.Stage)
		if err != nil {
			return nil, fmt.Errorf("%s#%s: %w", name, ep.Name, err)
		}

		opts := glsl.DefaultOptions()
		opts.LangVersion = glsl.Version430
		opts.EntryPoint = ep.Name
		code, info, err := glsl.Compile(module, opts)
		if err != nil {
			return nil, fmt.Errorf("%s#%s: %w", name, ep.Name, err)
		}
		logger.Debug("translated wgsl entry point",
			"file", name, "entry", ep.Name, "stage", stage, "extensions", info.UsedExtensions)

		out = append(out, Source{Name: name + "#" + ep.Name, Stage: stage, Code: code})
	}
	return out, nil
}

func irStage(s ir.ShaderStage) (render.Stage, error) {
	switch s {
	case ir.StageVertex:
		return render.VertexStage, nil
	case ir.StageFragment:
		return render.FragmentStage, nil
	case ir.StageCompute:
		return render.ComputeStage, nil
	default:
		return 0, fmt.Errorf("unsupported stage %d", s)
	}
}
