package opengl

import (
	"testing"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/stretchr/testify/assert"

	"github.com/go-theft-auto/render"
)

func TestBufferTargets(t *testing.T) {
	assert.Equal(t, uint32(gl.SHADER_STORAGE_BUFFER), bufferTarget(render.ShaderStorageBuffer))
	assert.Equal(t, uint32(gl.COPY_READ_BUFFER), bufferTarget(render.CopyReadBuffer))
	assert.Equal(t, uint32(gl.COPY_WRITE_BUFFER), bufferTarget(render.CopyWriteBuffer))
	assert.Panics(t, func() { bufferTarget(0) })
}

func TestKindTargetsTranslate(t *testing.T) {
	for _, k := range []render.BufferKind{render.VertexBuffer, render.IndexBuffer, render.StorageBuffer} {
		assert.NotPanics(t, func() { bufferTarget(k.Target()) }, k.String())
	}
}

func TestBarrierBits(t *testing.T) {
	assert.Equal(t, uint32(gl.ALL_BARRIER_BITS), barrierBits(render.BarrierAll))
	assert.Equal(t,
		uint32(gl.SHADER_STORAGE_BARRIER_BIT|gl.BUFFER_UPDATE_BARRIER_BIT),
		barrierBits(render.BarrierShaderStorage|render.BarrierBufferUpdate))
	assert.Zero(t, barrierBits(0))
}

func TestDataTypes(t *testing.T) {
	tests := map[render.DataType]uint32{
		render.Byte:          gl.BYTE,
		render.UnsignedByte:  gl.UNSIGNED_BYTE,
		render.UnsignedShort: gl.UNSIGNED_SHORT,
		render.UnsignedInt:   gl.UNSIGNED_INT,
		render.Float:         gl.FLOAT,
		render.Double:        gl.DOUBLE,
	}
	for typ, want := range tests {
		assert.Equal(t, want, dataType(typ), typ.String())
	}
}

func TestTextureFormats(t *testing.T) {
	internal, format, xtype := textureFormat(render.R32F)
	assert.Equal(t, int32(gl.R32F), internal)
	assert.Equal(t, uint32(gl.RED), format)
	assert.Equal(t, uint32(gl.FLOAT), xtype)
}

func TestCString(t *testing.T) {
	assert.Equal(t, "0:1(1): error", cString([]byte("0:1(1): error\n\x00\x00")))
	assert.Equal(t, "", cString([]byte{0}))
}

func TestFlipRows(t *testing.T) {
	pix := []byte{1, 1, 2, 2, 3, 3}
	flipRows(pix, 2)
	assert.Equal(t, []byte{3, 3, 2, 2, 1, 1}, pix)

	even := []byte{1, 2, 3, 4}
	flipRows(even, 2)
	assert.Equal(t, []byte{3, 4, 1, 2}, even)
}
