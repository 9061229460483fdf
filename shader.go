package render

// Shader is one compiled shader stage.
//
// Linking does not take ownership: a Shader may be linked into any number of
// programs and deleted whenever the caller is done linking.
type Shader struct {
	dev   Device
	id    uint32
	stage Stage
}

// NewShader compiles source for stage. The source is handed to the driver
// unmodified. On failure the returned error is a *CompileError carrying the
// driver's info log.
func NewShader(dev Device, stage Stage, source string) (*Shader, error) {
	id := dev.CreateShader(stage)
	if id == 0 {
		panic(&DeviceError{Op: "create shader", Reason: "no handle allocated"})
	}

	ok, log := dev.CompileShader(id, source)
	if !ok {
		dev.DeleteShader(id)
		logger.Warn("shader compilation failed", "stage", stage, "log", log)
		return nil, &CompileError{Stage: stage, Log: log}
	}

	logger.Debug("shader compiled", "id", id, "stage", stage)
	return &Shader{dev: dev, id: id, stage: stage}, nil
}

// NewVertexShader compiles a vertex stage.
func NewVertexShader(dev Device, source string) (*Shader, error) {
	return NewShader(dev, VertexStage, source)
}

// NewFragmentShader compiles a fragment stage.
func NewFragmentShader(dev Device, source string) (*Shader, error) {
	return NewShader(dev, FragmentStage, source)
}

// NewGeometryShader compiles a geometry stage.
func NewGeometryShader(dev Device, source string) (*Shader, error) {
	return NewShader(dev, GeometryStage, source)
}

// NewComputeShader compiles a compute stage.
func NewComputeShader(dev Device, source string) (*Shader, error) {
	return NewShader(dev, ComputeStage, source)
}

// ID returns the device handle, or 0 once deleted.
func (s *Shader) ID() uint32 { return s.id }

// Stage returns the pipeline stage the shader was compiled for.
func (s *Shader) Stage() Stage { return s.stage }

// Delete releases the device handle. Programs already linked from the shader
// are unaffected. Calling it again does nothing.
func (s *Shader) Delete() {
	if s.id == 0 {
		return
	}
	s.dev.DeleteShader(s.id)
	logger.Debug("shader deleted", "id", s.id, "stage", s.stage)
	s.id = 0
}
