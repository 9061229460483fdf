package render

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// UniformNotFound is the location of a uniform the linked program does not
// have, or that the linker optimized away.
const UniformNotFound int32 = -1

// Program is a linked shader pipeline.
//
// A Program never relinks, so its uniform set is fixed and locations are
// cached for its whole life, misses included.
type Program struct {
	dev      Device
	id       uint32
	uniforms map[string]int32
}

// NewProgram links shaders into a program.
//
// The stage combination is checked first: a compute stage must stand alone,
// and any other program needs at least a vertex and a fragment stage. Every
// shader is detached again after linking, whatever the outcome, so shaders
// can be reused or deleted freely. Failures are reported as *LinkError.
func NewProgram(dev Device, shaders ...*Shader) (*Program, error) {
	if err := checkStages(shaders); err != nil {
		return nil, err
	}

	id := dev.CreateProgram()
	if id == 0 {
		panic(&DeviceError{Op: "create program", Reason: "no handle allocated"})
	}

	for _, s := range shaders {
		dev.AttachShader(id, s.id)
	}
	ok, log := dev.LinkProgram(id)
	for _, s := range shaders {
		dev.DetachShader(id, s.id)
	}

	if !ok {
		dev.DeleteProgram(id)
		logger.Warn("program link failed", "log", log)
		return nil, &LinkError{Log: log}
	}

	logger.Debug("program linked", "id", id, "stages", len(shaders))
	return &Program{dev: dev, id: id, uniforms: make(map[string]int32)}, nil
}

func checkStages(shaders []*Shader) error {
	if len(shaders) == 0 {
		return &LinkError{Log: "no shader stages"}
	}

	seen := make(map[Stage]bool, len(shaders))
	for _, s := range shaders {
		switch {
		case s == nil:
			return &LinkError{Log: "nil shader"}
		case s.id == 0:
			return &LinkError{Log: fmt.Sprintf("%s shader was deleted", s.stage)}
		case seen[s.stage]:
			return &LinkError{Log: fmt.Sprintf("duplicate %s stage", s.stage)}
		}
		seen[s.stage] = true
	}

	if seen[ComputeStage] {
		if len(shaders) > 1 {
			return &LinkError{Log: "compute stage cannot be combined with other stages"}
		}
		return nil
	}
	if !seen[VertexStage] {
		return &LinkError{Log: "missing vertex stage"}
	}
	if !seen[FragmentStage] {
		return &LinkError{Log: "missing fragment stage"}
	}
	return nil
}

// ID returns the device handle, or 0 once deleted.
func (p *Program) ID() uint32 { return p.id }

// Use makes p the active program. Whatever program was active before is
// replaced; code that calls into something which may activate another
// program must call Use again before drawing.
func (p *Program) Use() {
	p.mustLive("use")
	p.dev.UseProgram(p.id)
}

// UniformLocation returns the location of the named uniform, or
// UniformNotFound. The device is queried once per name.
func (p *Program) UniformLocation(name string) int32 {
	p.mustLive("uniform lookup")
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}

	loc := p.dev.GetUniformLocation(p.id, name)
	if loc < 0 {
		loc = UniformNotFound
		logger.Debug("uniform not found", "program", p.id, "name", name)
	}
	p.uniforms[name] = loc
	return loc
}

// location activates p and resolves name. Setters write to the active
// program, so activation comes first.
func (p *Program) location(name string) (int32, bool) {
	p.Use()
	loc := p.UniformLocation(name)
	return loc, loc != UniformNotFound
}

// SetInt sets an int, bool or sampler uniform. Like every setter it makes p
// the active program.
func (p *Program) SetInt(name string, v int32) {
	if loc, ok := p.location(name); ok {
		p.dev.Uniform1i(loc, v)
	}
}

// SetUint sets a uint uniform.
func (p *Program) SetUint(name string, v uint32) {
	if loc, ok := p.location(name); ok {
		p.dev.Uniform1ui(loc, v)
	}
}

// SetFloat sets a float uniform.
func (p *Program) SetFloat(name string, v float32) {
	if loc, ok := p.location(name); ok {
		p.dev.Uniform1f(loc, v)
	}
}

// SetVec2 sets a vec2 uniform.
func (p *Program) SetVec2(name string, v mgl32.Vec2) {
	if loc, ok := p.location(name); ok {
		p.dev.Uniform2f(loc, v[0], v[1])
	}
}

// SetVec3 sets a vec3 uniform.
func (p *Program) SetVec3(name string, v mgl32.Vec3) {
	if loc, ok := p.location(name); ok {
		p.dev.Uniform3f(loc, v[0], v[1], v[2])
	}
}

// SetVec4 sets a vec4 uniform.
func (p *Program) SetVec4(name string, v mgl32.Vec4) {
	if loc, ok := p.location(name); ok {
		p.dev.Uniform4f(loc, v[0], v[1], v[2], v[3])
	}
}

// SetMat4 sets a mat4 uniform from a column-major matrix.
func (p *Program) SetMat4(name string, m mgl32.Mat4) {
	if loc, ok := p.location(name); ok {
		cols := [16]float32(m)
		p.dev.UniformMatrix4fv(loc, &cols)
	}
}

// Delete releases the program handle. Shaders it was linked from are not
// touched. Calling it again does nothing.
func (p *Program) Delete() {
	if p.id == 0 {
		return
	}
	p.dev.DeleteProgram(p.id)
	logger.Debug("program deleted", "id", p.id)
	p.id = 0
}

func (p *Program) mustLive(op string) {
	if p.id == 0 {
		panic(fmt.Sprintf("render: %s on deleted program", op))
	}
}
