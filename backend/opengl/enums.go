package opengl

import (
	"github.com/go-gl/gl/v4.3-core/gl"

	"github.com/go-theft-auto/render"
)

func bufferTarget(t render.BufferTarget) uint32 {
	switch t {
	case render.ArrayBuffer:
		return gl.ARRAY_BUFFER
	case render.ElementArrayBuffer:
		return gl.ELEMENT_ARRAY_BUFFER
	case render.ShaderStorageBuffer:
		return gl.SHADER_STORAGE_BUFFER
	case render.CopyReadBuffer:
		return gl.COPY_READ_BUFFER
	case render.CopyWriteBuffer:
		return gl.COPY_WRITE_BUFFER
	default:
		panic("opengl: unknown buffer target " + t.String())
	}
}

func usage(u render.Usage) uint32 {
	switch u {
	case render.StreamDraw:
		return gl.STREAM_DRAW
	case render.StreamRead:
		return gl.STREAM_READ
	case render.StreamCopy:
		return gl.STREAM_COPY
	case render.StaticDraw:
		return gl.STATIC_DRAW
	case render.StaticRead:
		return gl.STATIC_READ
	case render.StaticCopy:
		return gl.STATIC_COPY
	case render.DynamicDraw:
		return gl.DYNAMIC_DRAW
	case render.DynamicRead:
		return gl.DYNAMIC_READ
	case render.DynamicCopy:
		return gl.DYNAMIC_COPY
	default:
		// Zero usage means the caller did not care.
		return gl.STATIC_DRAW
	}
}

func mapAccess(a render.MapAccess) uint32 {
	if a == render.MapReadWrite {
		return gl.MAP_READ_BIT | gl.MAP_WRITE_BIT
	}
	return gl.MAP_READ_BIT
}

func shaderStage(s render.Stage) uint32 {
	switch s {
	case render.VertexStage:
		return gl.VERTEX_SHADER
	case render.FragmentStage:
		return gl.FRAGMENT_SHADER
	case render.GeometryStage:
		return gl.GEOMETRY_SHADER
	case render.ComputeStage:
		return gl.COMPUTE_SHADER
	default:
		panic("opengl: unknown shader stage " + s.String())
	}
}

func dataType(t render.DataType) uint32 {
	switch t {
	case render.Byte:
		return gl.BYTE
	case render.UnsignedByte:
		return gl.UNSIGNED_BYTE
	case render.Short:
		return gl.SHORT
	case render.UnsignedShort:
		return gl.UNSIGNED_SHORT
	case render.Int:
		return gl.INT
	case render.UnsignedInt:
		return gl.UNSIGNED_INT
	case render.HalfFloat:
		return gl.HALF_FLOAT
	case render.Float:
		return gl.FLOAT
	case render.Double:
		return gl.DOUBLE
	default:
		panic("opengl: unknown data type " + t.String())
	}
}

func barrierBits(b render.Barrier) uint32 {
	if b == render.BarrierAll {
		return gl.ALL_BARRIER_BITS
	}
	var bits uint32
	pairs := []struct {
		b  render.Barrier
		gl uint32
	}{
		{render.BarrierVertexAttrib, gl.VERTEX_ATTRIB_ARRAY_BARRIER_BIT},
		{render.BarrierElementArray, gl.ELEMENT_ARRAY_BARRIER_BIT},
		{render.BarrierUniform, gl.UNIFORM_BARRIER_BIT},
		{render.BarrierShaderStorage, gl.SHADER_STORAGE_BARRIER_BIT},
		{render.BarrierBufferUpdate, gl.BUFFER_UPDATE_BARRIER_BIT},
		{render.BarrierTextureFetch, gl.TEXTURE_FETCH_BARRIER_BIT},
		{render.BarrierShaderImage, gl.SHADER_IMAGE_ACCESS_BARRIER_BIT},
	}
	for _, p := range pairs {
		if b&p.b != 0 {
			bits |= p.gl
		}
	}
	return bits
}

// textureFormat returns the internal format, pixel format and pixel type.
func textureFormat(f render.TextureFormat) (internal int32, format, xtype uint32) {
	switch f {
	case render.RGBA8:
		return gl.RGBA8, gl.RGBA, gl.UNSIGNED_BYTE
	case render.RGBA32F:
		return gl.RGBA32F, gl.RGBA, gl.FLOAT
	case render.R32F:
		return gl.R32F, gl.RED, gl.FLOAT
	default:
		panic("opengl: unknown texture format")
	}
}

func filter(f render.Filter) int32 {
	if f == render.Nearest {
		return gl.NEAREST
	}
	return gl.LINEAR
}

func imageAccess(a render.ImageAccess) uint32 {
	switch a {
	case render.ImageReadOnly:
		return gl.READ_ONLY
	case render.ImageWriteOnly:
		return gl.WRITE_ONLY
	default:
		return gl.READ_WRITE
	}
}

// Primitive is the topology a draw call assembles vertices into.
type Primitive uint8

const (
	Triangles Primitive = iota + 1
	TriangleStrip
	Lines
	Points
)

func primitive(p Primitive) uint32 {
	switch p {
	case TriangleStrip:
		return gl.TRIANGLE_STRIP
	case Lines:
		return gl.LINES
	case Points:
		return gl.POINTS
	default:
		return gl.TRIANGLES
	}
}
