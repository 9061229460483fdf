package render

import "fmt"

// CompileError is returned when a shader stage fails to compile.
// Log is the compiler's info log, unmodified.
type CompileError struct {
	Stage Stage
	Log   string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s shader compilation failed: %s", e.Stage, e.Log)
}

// LinkError is returned when a set of shaders cannot form a program, either
// because the stage combination is invalid or because the linker rejected it.
// Log is the linker's info log, unmodified, or a description of the invalid
// combination.
type LinkError struct {
	Log string
}

func (e *LinkError) Error() string {
	return "shader program linking failed: " + e.Log
}

// RangeError is returned when a buffer range falls outside a buffer's store.
// Offset and Length are in elements, Size is the element count of the buffer.
type RangeError struct {
	Op     string
	Offset int
	Length int
	Size   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("%s: range [%d, %d) out of bounds for %d elements",
		e.Op, e.Offset, e.Offset+e.Length, e.Size)
}

// ConfigError is returned when a vertex layout description does not match the
// buffers it describes.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "vertex layout: " + e.Reason
}

// DeviceError reports a failure of the device itself, such as a mapping that
// could not be established. GPU state afterwards is undefined and the
// rendering session should be ended.
type DeviceError struct {
	Op     string
	Reason string
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("device: %s: %s", e.Op, e.Reason)
}
