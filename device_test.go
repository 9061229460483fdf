package render_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-theft-auto/render"
)

func TestDataTypeSizes(t *testing.T) {
	tests := []struct {
		typ     render.DataType
		size    int
		integer bool
	}{
		{render.Byte, 1, true},
		{render.UnsignedByte, 1, true},
		{render.Short, 2, true},
		{render.UnsignedShort, 2, true},
		{render.HalfFloat, 2, false},
		{render.Int, 4, true},
		{render.UnsignedInt, 4, true},
		{render.Float, 4, false},
		{render.Double, 8, false},
		{render.DataType(0), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.typ.String(), func(t *testing.T) {
			assert.Equal(t, tt.size, tt.typ.Size())
			assert.Equal(t, tt.integer, tt.typ.Integer())
		})
	}
}

func TestBufferKindTargets(t *testing.T) {
	assert.Equal(t, render.ArrayBuffer, render.VertexBuffer.Target())
	assert.Equal(t, render.ElementArrayBuffer, render.IndexBuffer.Target())
	assert.Equal(t, render.ShaderStorageBuffer, render.StorageBuffer.Target())
	assert.Zero(t, render.BufferKind(0).Target())
}

func TestEnumNames(t *testing.T) {
	assert.Equal(t, "compute", render.ComputeStage.String())
	assert.Equal(t, "dynamic-read", render.DynamicRead.String())
	assert.Equal(t, "copy-write", render.CopyWriteBuffer.String())
	assert.Equal(t, "storage", render.StorageBuffer.String())
	assert.Equal(t, "unknown", render.Usage(42).String())
	assert.Equal(t, "unknown", render.Stage(0).String())
}

func TestBarrierAllCoversEveryBit(t *testing.T) {
	bits := []render.Barrier{
		render.BarrierVertexAttrib, render.BarrierElementArray, render.BarrierUniform,
		render.BarrierShaderStorage, render.BarrierBufferUpdate,
		render.BarrierTextureFetch, render.BarrierShaderImage,
	}
	for _, b := range bits {
		assert.Equal(t, b, render.BarrierAll&b)
	}
}

func TestTextureFormatBytesPerPixel(t *testing.T) {
	assert.Equal(t, 4, render.RGBA8.BytesPerPixel())
	assert.Equal(t, 16, render.RGBA32F.BytesPerPixel())
	assert.Equal(t, 4, render.R32F.BytesPerPixel())
}
