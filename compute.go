package render

// ComputeProgram is a program made of a single compute stage.
type ComputeProgram struct {
	*Program
}

// NewComputeProgram compiles source as a compute stage and links it. The
// intermediate shader is released before returning.
func NewComputeProgram(dev Device, source string) (*ComputeProgram, error) {
	shader, err := NewComputeShader(dev, source)
	if err != nil {
		return nil, err
	}
	defer shader.Delete()

	return NewComputeProgramFromShader(dev, shader)
}

// NewComputeProgramFromShader links a caller-owned compute shader.
func NewComputeProgramFromShader(dev Device, shader *Shader) (*ComputeProgram, error) {
	if shader != nil && shader.stage != ComputeStage {
		return nil, &LinkError{Log: "compute program needs a compute stage, got " + shader.stage.String()}
	}
	p, err := NewProgram(dev, shader)
	if err != nil {
		return nil, err
	}
	return &ComputeProgram{Program: p}, nil
}

// Dispatch activates the program, runs groupsX*groupsY*groupsZ work groups
// and then waits on a barrier covering every kind of memory access. Anything
// the dispatch wrote is visible to whatever buffer read, map, draw or dispatch
// is issued after Dispatch returns.
func (c *ComputeProgram) Dispatch(groupsX, groupsY, groupsZ uint32) {
	c.Use()
	c.dev.DispatchCompute(groupsX, groupsY, groupsZ)
	c.dev.MemoryBarrier(BarrierAll)
}
