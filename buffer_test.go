package render_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-theft-auto/render"
	"github.com/go-theft-auto/render/rendertest"
)

type vertex struct {
	Pos [2]float32
	UV  [2]float32
}

type particle struct {
	Pos, Vel [3]float32
	Life     float32
	Alive    uint32
}

// requireClean fails the test if the device recorded misuse or bindings were
// left behind.
func requireClean(t *testing.T, dev *rendertest.Device) {
	t.Helper()
	require.NoError(t, dev.Err())
	require.NoError(t, dev.Neutral())
}

func roundTrip[T comparable](t *testing.T, kind render.BufferKind, data []T) {
	t.Helper()
	dev := rendertest.NewDevice()
	buf := render.NewBufferWithData(dev, kind, data, render.StaticDraw)
	requireClean(t, dev)

	var got []T
	err := buf.MapRead(func(view []T) error {
		got = append(got, view...)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Equal(t, len(data), buf.Len())
	requireClean(t, dev)
}

func TestUploadMapReadRoundTrip(t *testing.T) {
	t.Run("int32", func(t *testing.T) {
		roundTrip(t, render.StorageBuffer, []int32{1, -2, 3, 1 << 30})
	})
	t.Run("uint16 indices", func(t *testing.T) {
		roundTrip(t, render.IndexBuffer, []uint16{0, 1, 2, 2, 3, 0})
	})
	t.Run("single byte", func(t *testing.T) {
		roundTrip(t, render.StorageBuffer, []uint8{7})
	})
	t.Run("vertices", func(t *testing.T) {
		roundTrip(t, render.VertexBuffer, []vertex{
			{Pos: [2]float32{-1, -1}, UV: [2]float32{0, 1}},
			{Pos: [2]float32{1, -1}, UV: [2]float32{1, 1}},
			{Pos: [2]float32{1, 1}, UV: [2]float32{1, 0}},
		})
	})
	t.Run("particles", func(t *testing.T) {
		roundTrip(t, render.StorageBuffer, []particle{
			{Pos: [3]float32{1, 2, 3}, Life: 0.5, Alive: 1},
			{Vel: [3]float32{-1, 0, 1}},
		})
	})
	t.Run("float64", func(t *testing.T) {
		roundTrip(t, render.StorageBuffer, []float64{0.25, -8, 1e300})
	})
}

func TestByteSizeFollowsElementCount(t *testing.T) {
	dev := rendertest.NewDevice()
	buf := render.NewBuffer[vertex](dev, render.VertexBuffer, render.StaticDraw)
	assert.Equal(t, 0, buf.ByteSize())
	assert.Equal(t, 16, buf.ElementSize())

	buf.Upload(make([]vertex, 5), render.DynamicDraw)
	assert.Equal(t, 80, buf.ByteSize())
	assert.Equal(t, 5, buf.Len())
	assert.Equal(t, render.DynamicDraw, buf.Usage())
	assert.Equal(t, render.DynamicDraw, dev.BufferUsage(buf.ID()))

	buf.Upload(make([]vertex, 2), render.StreamDraw)
	assert.Equal(t, 32, buf.ByteSize())
	assert.Equal(t, render.StreamDraw, dev.BufferUsage(buf.ID()))
	requireClean(t, dev)
}

func TestReserve(t *testing.T) {
	dev := rendertest.NewDevice()
	buf := render.NewBufferWithCapacity[particle](dev, render.StorageBuffer, 1000, render.DynamicCopy)

	assert.Equal(t, 1000, buf.Len())
	assert.Equal(t, 1000*32, buf.ByteSize())
	assert.Len(t, dev.Contents(buf.ID()), 1000*32)
	requireClean(t, dev)

	assert.Panics(t, func() { buf.Reserve(-1, render.DynamicCopy) })
	assert.Panics(t, func() { buf.Reserve(math.MaxInt/32+1, render.DynamicCopy) })
	assert.Panics(t, func() { buf.Reserve(math.MaxInt, render.DynamicCopy) })
	assert.Equal(t, 1000, buf.Len(), "a rejected reserve leaves the store alone")
	requireClean(t, dev)
}

func TestMapReadEmptyBuffer(t *testing.T) {
	dev := rendertest.NewDevice()
	buf := render.NewBuffer[int32](dev, render.StorageBuffer, render.StaticRead)

	called := false
	err := buf.MapRead(func(view []int32) error {
		called = true
		assert.NotNil(t, view)
		assert.Empty(t, view)
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Zero(t, dev.Calls("MapBuffer"))
	requireClean(t, dev)
}

func TestMapReadWriteWritesThrough(t *testing.T) {
	dev := rendertest.NewDevice()
	buf := render.NewBufferWithData(dev, render.StorageBuffer, []int32{1, 2, 3}, render.DynamicDraw)

	require.NoError(t, buf.MapReadWrite(func(view []int32) error {
		for i := range view {
			view[i] *= 10
		}
		return nil
	}))

	var got []int32
	require.NoError(t, buf.MapRead(func(view []int32) error {
		got = append(got, view...)
		return nil
	}))
	assert.Equal(t, []int32{10, 20, 30}, got)
	requireClean(t, dev)
}

func TestMapViewHasExactLength(t *testing.T) {
	dev := rendertest.NewDevice()
	buf := render.NewBufferWithData(dev, render.StorageBuffer, []uint32{1, 2, 3, 4}, render.StaticRead)

	require.NoError(t, buf.MapRead(func(view []uint32) error {
		assert.Len(t, view, 4)
		assert.Equal(t, 4, cap(view))
		return nil
	}))
}

func TestMapReleasedWhenCallbackFails(t *testing.T) {
	dev := rendertest.NewDevice()
	buf := render.NewBufferWithData(dev, render.StorageBuffer, []int32{1, 2}, render.StaticRead)

	boom := errors.New("boom")
	err := buf.MapRead(func([]int32) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, dev.Calls("MapBuffer"))
	assert.Equal(t, 1, dev.Calls("UnmapBuffer"))
	requireClean(t, dev)

	// The store is no longer mapped, so it can be replaced.
	buf.Upload([]int32{3}, render.StaticRead)
	requireClean(t, dev)
}

func TestMapReleasedWhenCallbackPanics(t *testing.T) {
	dev := rendertest.NewDevice()
	buf := render.NewBufferWithData(dev, render.StorageBuffer, []int32{1, 2}, render.StaticRead)

	assert.Panics(t, func() {
		_ = buf.MapReadWrite(func([]int32) error { panic("callback") })
	})
	assert.Equal(t, 1, dev.Calls("UnmapBuffer"))
	requireClean(t, dev)
}

func TestMapDeviceFailures(t *testing.T) {
	t.Run("map fails", func(t *testing.T) {
		dev := rendertest.NewDevice()
		buf := render.NewBufferWithData(dev, render.StorageBuffer, []int32{1}, render.StaticRead)
		dev.FailMap = true

		called := false
		err := buf.MapRead(func([]int32) error {
			called = true
			return nil
		})
		var devErr *render.DeviceError
		require.ErrorAs(t, err, &devErr)
		assert.False(t, called)
		assert.Zero(t, dev.Calls("UnmapBuffer"))
		requireClean(t, dev)
	})

	t.Run("store corrupted", func(t *testing.T) {
		dev := rendertest.NewDevice()
		buf := render.NewBufferWithData(dev, render.StorageBuffer, []int32{1}, render.StaticRead)
		dev.CorruptUnmap = true

		err := buf.MapRead(func([]int32) error { return nil })
		var devErr *render.DeviceError
		require.ErrorAs(t, err, &devErr)
		requireClean(t, dev)
	})

	t.Run("callback error wins", func(t *testing.T) {
		dev := rendertest.NewDevice()
		buf := render.NewBufferWithData(dev, render.StorageBuffer, []int32{1}, render.StaticRead)
		dev.CorruptUnmap = true

		boom := errors.New("boom")
		assert.ErrorIs(t, buf.MapRead(func([]int32) error { return boom }), boom)
	})
}

func readAll[T any](t *testing.T, buf *render.Buffer[T]) []T {
	t.Helper()
	var out []T
	require.NoError(t, buf.MapRead(func(view []T) error {
		out = append(out, view...)
		return nil
	}))
	return out
}

func TestCopyToPreservesOutsideRange(t *testing.T) {
	dev := rendertest.NewDevice()
	src := render.NewBufferWithData(dev, render.StorageBuffer, []int32{1, 2, 3, 4, 5, 6, 7, 8}, render.StaticCopy)
	dst := render.NewBufferWithData(dev, render.StorageBuffer, []int32{-1, -1, -1, -1, -1, -1, -1, -1}, render.StaticCopy)

	require.NoError(t, src.CopyTo(dst, 2, 4, 3))
	requireClean(t, dev)

	assert.Equal(t, []int32{-1, -1, -1, -1, 3, 4, 5, -1}, readAll(t, dst))
	assert.Equal(t, []int32{1, 2, 3, 4, 5, 6, 7, 8}, readAll(t, src))
	assert.Equal(t, 1, dev.Calls("CopyBufferSubData"))
}

func TestCopyAllTo(t *testing.T) {
	dev := rendertest.NewDevice()
	src := render.NewBufferWithData(dev, render.VertexBuffer, []vertex{{Pos: [2]float32{1, 2}}, {UV: [2]float32{3, 4}}}, render.StaticDraw)
	dst := render.NewBufferWithCapacity[vertex](dev, render.VertexBuffer, 3, render.StaticDraw)

	require.NoError(t, src.CopyAllTo(dst))
	got := readAll(t, dst)
	assert.Equal(t, 2, src.Len())
	assert.Equal(t, readAll(t, src), got[:2])
	requireClean(t, dev)
}

func TestCopyToRangeErrors(t *testing.T) {
	dev := rendertest.NewDevice()
	src := render.NewBufferWithData(dev, render.StorageBuffer, make([]int32, 4), render.StaticCopy)
	dst := render.NewBufferWithData(dev, render.StorageBuffer, make([]int32, 2), render.StaticCopy)

	tests := []struct {
		name                string
		read, write, length int
	}{
		{"source overrun", 2, 0, 3},
		{"destination overrun", 0, 1, 2},
		{"negative read offset", -1, 0, 1},
		{"negative write offset", 0, -1, 1},
		{"negative length", 0, 0, -1},
		{"offset past end", 5, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := src.CopyTo(dst, tt.read, tt.write, tt.length)
			var rangeErr *render.RangeError
			require.ErrorAs(t, err, &rangeErr)
		})
	}
	assert.Zero(t, dev.Calls("CopyBufferSubData"))
	requireClean(t, dev)
}

func TestCopyWithinBuffer(t *testing.T) {
	dev := rendertest.NewDevice()
	buf := render.NewBufferWithData(dev, render.StorageBuffer, []int32{1, 2, 3, 4, 5, 6}, render.StaticCopy)

	var rangeErr *render.RangeError
	require.ErrorAs(t, buf.CopyTo(buf, 0, 2, 3), &rangeErr)

	require.NoError(t, buf.CopyTo(buf, 0, 3, 3))
	assert.Equal(t, []int32{1, 2, 3, 1, 2, 3}, readAll(t, buf))
	requireClean(t, dev)
}

func TestBindBase(t *testing.T) {
	dev := rendertest.NewDevice()
	buf := render.NewBufferWithData(dev, render.VertexBuffer, []vertex{{}}, render.DynamicDraw)

	buf.BindBase(2)
	assert.Equal(t, buf.ID(), dev.IndexedBuffer(2))
	requireClean(t, dev)
}

func TestBufferDeleteIsIdempotent(t *testing.T) {
	dev := rendertest.NewDevice()
	buf := render.NewBufferWithData(dev, render.StorageBuffer, []int32{1}, render.StaticDraw)
	id := buf.ID()

	buf.Delete()
	buf.Delete()
	assert.Equal(t, 1, dev.Deletes(id))
	assert.Zero(t, buf.ID())
	assert.Zero(t, dev.Live())
	require.NoError(t, dev.Err())

	assert.Panics(t, func() { buf.Upload([]int32{2}, render.StaticDraw) })
}

func TestElementTypeMustBePlainData(t *testing.T) {
	dev := rendertest.NewDevice()

	type withString struct {
		Name string
		X    float32
	}
	type nested struct {
		V [4]struct{ P *int }
	}
	type gap struct {
		Flag uint8
		X    float32
	}
	type tail struct {
		X    float32
		Flag uint8
	}
	type paddedElems struct {
		V [2]struct {
			X    float64
			Flag uint32
		}
	}
	type packed struct {
		Color [4]uint8
		X     float32
		Bone  uint16
		Pad   uint16
	}

	assert.Panics(t, func() { render.NewBuffer[*int32](dev, render.StorageBuffer, render.StaticDraw) })
	assert.Panics(t, func() { render.NewBuffer[int](dev, render.StorageBuffer, render.StaticDraw) })
	assert.Panics(t, func() { render.NewBuffer[withString](dev, render.StorageBuffer, render.StaticDraw) })
	assert.Panics(t, func() { render.NewBuffer[nested](dev, render.StorageBuffer, render.StaticDraw) })
	assert.Panics(t, func() { render.NewBuffer[struct{}](dev, render.StorageBuffer, render.StaticDraw) })
	assert.PanicsWithValue(t,
		"render: element type render_test.gap is not plain data: 3 bytes of padding before field X",
		func() { render.NewBuffer[gap](dev, render.VertexBuffer, render.StaticDraw) })
	assert.Panics(t, func() { render.NewBuffer[tail](dev, render.VertexBuffer, render.StaticDraw) })
	assert.Panics(t, func() { render.NewBuffer[paddedElems](dev, render.StorageBuffer, render.StaticDraw) })
	assert.Zero(t, dev.Live())

	assert.NotPanics(t, func() { render.NewBuffer[particle](dev, render.StorageBuffer, render.StaticDraw) })
	assert.NotPanics(t, func() { render.NewBuffer[packed](dev, render.VertexBuffer, render.StaticDraw) })
}
