// Package opengl provides the OpenGL 4.3 core implementation of render.Device,
// plus a GLFW window that owns the context it runs on.
package opengl

import (
	"image"
	"strings"
	"unsafe"

	"github.com/go-gl/gl/v4.3-core/gl"

	"github.com/go-theft-auto/render"
)

// Device issues render.Device calls against the current OpenGL context.
//
// The context must be current on the calling thread and gl.Init must have
// succeeded; NewWindow does both.
type Device struct{}

var _ render.Device = (*Device)(nil)

// NewDevice returns a device for the current context.
func NewDevice() *Device {
	return &Device{}
}

// Buffers.

func (d *Device) GenBuffer() uint32 {
	var id uint32
	gl.GenBuffers(1, &id)
	return id
}

func (d *Device) DeleteBuffer(id uint32) {
	gl.DeleteBuffers(1, &id)
}

func (d *Device) BindBuffer(target render.BufferTarget, id uint32) {
	gl.BindBuffer(bufferTarget(target), id)
}

func (d *Device) BufferData(target render.BufferTarget, size int, data []byte, u render.Usage) {
	var ptr unsafe.Pointer
	if len(data) > 0 {
		ptr = gl.Ptr(data)
	}
	gl.BufferData(bufferTarget(target), size, ptr, usage(u))
}

func (d *Device) MapBuffer(target render.BufferTarget, size int, access render.MapAccess) []byte {
	ptr := gl.MapBufferRange(bufferTarget(target), 0, size, mapAccess(access))
	if ptr == nil {
		return nil
	}
	return unsafe.Slice((*byte)(ptr), size)
}

func (d *Device) UnmapBuffer(target render.BufferTarget) bool {
	return gl.UnmapBuffer(bufferTarget(target))
}

func (d *Device) CopyBufferSubData(read, write render.BufferTarget, readOffset, writeOffset, size int) {
	gl.CopyBufferSubData(bufferTarget(read), bufferTarget(write), readOffset, writeOffset, size)
}

func (d *Device) BindBufferBase(target render.BufferTarget, index, id uint32) {
	gl.BindBufferBase(bufferTarget(target), index, id)
}

// Shaders and programs.

func (d *Device) CreateShader(stage render.Stage) uint32 {
	return gl.CreateShader(shaderStage(stage))
}

func (d *Device) CompileShader(id uint32, source string) (bool, string) {
	csource, free := gl.Strs(source + "\x00")
	gl.ShaderSource(id, 1, csource, nil)
	free()
	gl.CompileShader(id)

	var status int32
	gl.GetShaderiv(id, gl.COMPILE_STATUS, &status)
	if status == gl.TRUE {
		return true, ""
	}
	var logLength int32
	gl.GetShaderiv(id, gl.INFO_LOG_LENGTH, &logLength)
	log := make([]byte, logLength+1)
	gl.GetShaderInfoLog(id, logLength, nil, &log[0])
	return false, cString(log)
}

func (d *Device) DeleteShader(id uint32) { gl.DeleteShader(id) }

func (d *Device) CreateProgram() uint32 { return gl.CreateProgram() }

func (d *Device) AttachShader(prog, shader uint32) { gl.AttachShader(prog, shader) }

func (d *Device) DetachShader(prog, shader uint32) { gl.DetachShader(prog, shader) }

func (d *Device) LinkProgram(prog uint32) (bool, string) {
	gl.LinkProgram(prog)

	var status int32
	gl.GetProgramiv(prog, gl.LINK_STATUS, &status)
	if status == gl.TRUE {
		return true, ""
	}
	var logLength int32
	gl.GetProgramiv(prog, gl.INFO_LOG_LENGTH, &logLength)
	log := make([]byte, logLength+1)
	gl.GetProgramInfoLog(prog, logLength, nil, &log[0])
	return false, cString(log)
}

func (d *Device) DeleteProgram(id uint32) { gl.DeleteProgram(id) }

func (d *Device) UseProgram(id uint32) { gl.UseProgram(id) }

func (d *Device) GetUniformLocation(prog uint32, name string) int32 {
	return gl.GetUniformLocation(prog, gl.Str(name+"\x00"))
}

func (d *Device) Uniform1i(loc int32, v int32) { gl.Uniform1i(loc, v) }

func (d *Device) Uniform1ui(loc int32, v uint32) { gl.Uniform1ui(loc, v) }

func (d *Device) Uniform1f(loc int32, v float32) { gl.Uniform1f(loc, v) }

func (d *Device) Uniform2f(loc int32, x, y float32) { gl.Uniform2f(loc, x, y) }

func (d *Device) Uniform3f(loc int32, x, y, z float32) { gl.Uniform3f(loc, x, y, z) }

func (d *Device) Uniform4f(loc int32, x, y, z, w float32) { gl.Uniform4f(loc, x, y, z, w) }

func (d *Device) UniformMatrix4fv(loc int32, m *[16]float32) {
	gl.UniformMatrix4fv(loc, 1, false, &m[0])
}

// Compute.

func (d *Device) DispatchCompute(x, y, z uint32) { gl.DispatchCompute(x, y, z) }

func (d *Device) MemoryBarrier(bits render.Barrier) { gl.MemoryBarrier(barrierBits(bits)) }

// Vertex arrays.

func (d *Device) GenVertexArray() uint32 {
	var id uint32
	gl.GenVertexArrays(1, &id)
	return id
}

func (d *Device) DeleteVertexArray(id uint32) { gl.DeleteVertexArrays(1, &id) }

func (d *Device) BindVertexArray(id uint32) { gl.BindVertexArray(id) }

func (d *Device) VertexAttribPointer(index uint32, size int32, typ render.DataType, normalized bool, stride int32, offset int) {
	gl.VertexAttribPointerWithOffset(index, size, dataType(typ), normalized, stride, uintptr(offset))
}

func (d *Device) VertexAttribIPointer(index uint32, size int32, typ render.DataType, stride int32, offset int) {
	gl.VertexAttribIPointerWithOffset(index, size, dataType(typ), stride, uintptr(offset))
}

func (d *Device) EnableVertexAttribArray(index uint32) { gl.EnableVertexAttribArray(index) }

// Textures.

func (d *Device) GenTexture() uint32 {
	var id uint32
	gl.GenTextures(1, &id)
	return id
}

func (d *Device) DeleteTexture(id uint32) { gl.DeleteTextures(1, &id) }

func (d *Device) BindTexture(unit, id uint32) {
	gl.ActiveTexture(gl.TEXTURE0 + unit)
	gl.BindTexture(gl.TEXTURE_2D, id)
	if unit != 0 {
		gl.ActiveTexture(gl.TEXTURE0)
	}
}

func (d *Device) TexImage2D(format render.TextureFormat, width, height int, pix []byte) {
	internal, pf, xtype := textureFormat(format)
	var ptr unsafe.Pointer
	if len(pix) > 0 {
		ptr = gl.Ptr(pix)
	}
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, internal, int32(width), int32(height), 0, pf, xtype, ptr)
}

func (d *Device) TexFilter(min, mag render.Filter) {
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, filter(min))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, filter(mag))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
}

func (d *Device) BindImageTexture(unit, id uint32, access render.ImageAccess, format render.TextureFormat) {
	internal, _, _ := textureFormat(format)
	gl.BindImageTexture(unit, id, 0, false, 0, imageAccess(access), uint32(internal))
}

// Drawing. These are outside render.Device: the resource layer never draws.

// Clear clears the color buffer to the given color.
func (d *Device) Clear(r, g, b, a float32) {
	gl.ClearColor(r, g, b, a)
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

// DrawLayout draws the currently bound program over layout. Indexed layouts
// draw all their indices; others draw every vertex.
func (d *Device) DrawLayout(layout *render.VertexLayout, mode Primitive) {
	layout.Bind()
	if layout.HasIndices() {
		gl.DrawElementsWithOffset(primitive(mode), int32(layout.IndexCount()), dataType(layout.IndexType()), 0)
	} else {
		gl.DrawArrays(primitive(mode), 0, int32(layout.VertexCount()))
	}
	layout.Unbind()
}

// Blended runs fn with alpha blending and program point size enabled, then
// restores the previous blend state.
func (d *Device) Blended(fn func()) {
	var lastBlendSrc, lastBlendDst int32
	gl.GetIntegerv(gl.BLEND_SRC_ALPHA, &lastBlendSrc)
	gl.GetIntegerv(gl.BLEND_DST_ALPHA, &lastBlendDst)
	blendEnabled := gl.IsEnabled(gl.BLEND)
	pointSizeEnabled := gl.IsEnabled(gl.PROGRAM_POINT_SIZE)

	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.Enable(gl.PROGRAM_POINT_SIZE)

	defer func() {
		gl.BlendFunc(uint32(lastBlendSrc), uint32(lastBlendDst))
		if !blendEnabled {
			gl.Disable(gl.BLEND)
		}
		if !pointSizeEnabled {
			gl.Disable(gl.PROGRAM_POINT_SIZE)
		}
	}()
	fn()
}

// ReadPixels reads the bottom-left width x height pixels of the framebuffer
// into an image with the usual top-down row order.
func (d *Device) ReadPixels(width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(0, 0, int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(img.Pix))
	flipRows(img.Pix, width*4)
	return img
}

// flipRows reverses the row order of pix in place.
func flipRows(pix []byte, rowLen int) {
	if rowLen == 0 {
		return
	}
	rows := len(pix) / rowLen
	tmp := make([]byte, rowLen)
	for y := 0; y < rows/2; y++ {
		top := y * rowLen
		bot := (rows - 1 - y) * rowLen
		copy(tmp, pix[top:top+rowLen])
		copy(pix[top:top+rowLen], pix[bot:bot+rowLen])
		copy(pix[bot:bot+rowLen], tmp)
	}
}

// Err drains the GL error queue and returns the first error, if any.
func (d *Device) Err() error {
	var first error
	for code := gl.GetError(); code != gl.NO_ERROR; code = gl.GetError() {
		if first == nil {
			first = &render.DeviceError{Op: "gl", Reason: errorName(code)}
		}
	}
	return first
}

func errorName(code uint32) string {
	switch code {
	case gl.INVALID_ENUM:
		return "invalid enum"
	case gl.INVALID_VALUE:
		return "invalid value"
	case gl.INVALID_OPERATION:
		return "invalid operation"
	case gl.INVALID_FRAMEBUFFER_OPERATION:
		return "invalid framebuffer operation"
	case gl.OUT_OF_MEMORY:
		return "out of memory"
	default:
		return "unknown error"
	}
}

// cString trims an info log at its terminating NUL.
func cString(b []byte) string {
	if i := strings.IndexByte(string(b), 0); i >= 0 {
		b = b[:i]
	}
	return strings.TrimSpace(string(b))
}
