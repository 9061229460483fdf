package render

import (
	"fmt"
	"math"
	"unsafe"
)

// BufferBinding is the untyped view of a Buffer used by vertex layouts.
type BufferBinding interface {
	ID() uint32
	Kind() BufferKind
	ByteSize() int
	ElementSize() int
}

// Buffer is a device buffer holding elements of type T.
//
// T must be plain data (numbers, bools, arrays and structs of them) laid out
// exactly as the shader expects it; there is no implicit padding. The byte size
// is always Len()*ElementSize().
//
// Every operation leaves the buffer targets it used unbound. Data transfers go
// through the copy targets so they never disturb the vertex array, index or
// storage bindings a draw or dispatch depends on.
type Buffer[T any] struct {
	dev   Device
	id    uint32
	kind  BufferKind
	usage Usage
	size  int // bytes
}

// NewBuffer creates an empty buffer. It panics if T is not plain data or the
// device cannot allocate a handle.
func NewBuffer[T any](dev Device, kind BufferKind, usage Usage) *Buffer[T] {
	mustBePOD[T]()
	id := dev.GenBuffer()
	if id == 0 {
		panic(&DeviceError{Op: "gen buffer", Reason: "no handle allocated"})
	}
	logger.Debug("buffer created", "id", id, "kind", kind)
	return &Buffer[T]{dev: dev, id: id, kind: kind, usage: usage}
}

// NewBufferWithData creates a buffer and uploads data to it.
func NewBufferWithData[T any](dev Device, kind BufferKind, data []T, usage Usage) *Buffer[T] {
	b := NewBuffer[T](dev, kind, usage)
	b.Upload(data, usage)
	return b
}

// NewVertexBuffer creates a vertex buffer holding data.
func NewVertexBuffer[T any](dev Device, data []T, usage Usage) *Buffer[T] {
	return NewBufferWithData(dev, VertexBuffer, data, usage)
}

// NewBufferWithCapacity creates a buffer with room for n uninitialized
// elements.
func NewBufferWithCapacity[T any](dev Device, kind BufferKind, n int, usage Usage) *Buffer[T] {
	b := NewBuffer[T](dev, kind, usage)
	b.Reserve(n, usage)
	return b
}

// ID returns the device handle, or 0 once deleted.
func (b *Buffer[T]) ID() uint32 { return b.id }

// Kind returns what the buffer holds.
func (b *Buffer[T]) Kind() BufferKind { return b.kind }

// Usage returns the hint the current store was allocated with.
func (b *Buffer[T]) Usage() Usage { return b.usage }

// ByteSize returns the size of the store in bytes.
func (b *Buffer[T]) ByteSize() int { return b.size }

// ElementSize returns the size of T in bytes.
func (b *Buffer[T]) ElementSize() int {
	var zero T
	return int(unsafe.Sizeof(zero))
}

// Len returns the number of elements in the store.
func (b *Buffer[T]) Len() int { return b.size / b.ElementSize() }

// Upload replaces the contents and size of the buffer with data.
// Any view handed out by an earlier map is invalid afterwards.
func (b *Buffer[T]) Upload(data []T, usage Usage) {
	b.mustLive("upload")
	raw := asBytes(data)
	b.store(len(raw), raw, usage)
}

// Reserve replaces the store with room for n uninitialized elements. Use it
// for buffers a compute pass writes before anything reads them.
func (b *Buffer[T]) Reserve(n int, usage Usage) {
	b.mustLive("reserve")
	if n < 0 || n > math.MaxInt/b.ElementSize() {
		panic(fmt.Sprintf("render: reserve of %d elements of %d bytes", n, b.ElementSize()))
	}
	b.store(n*b.ElementSize(), nil, usage)
}

func (b *Buffer[T]) store(size int, data []byte, usage Usage) {
	b.dev.BindBuffer(CopyWriteBuffer, b.id)
	defer b.dev.BindBuffer(CopyWriteBuffer, 0)

	b.dev.BufferData(CopyWriteBuffer, size, data, usage)
	b.size = size
	b.usage = usage
}

// MapRead calls fn with a read-only view of the buffer's current contents.
// The view holds exactly Len() elements and is valid only during the call;
// it must not be retained or written to. The buffer is unmapped before
// MapRead returns, also when fn fails or panics. An error from fn is returned
// as is.
func (b *Buffer[T]) MapRead(fn func([]T) error) error {
	return b.mapScoped("map read", MapReadOnly, fn)
}

// MapReadWrite is like MapRead, but writes to the view reach the buffer.
func (b *Buffer[T]) MapReadWrite(fn func([]T) error) error {
	return b.mapScoped("map read-write", MapReadWrite, fn)
}

func (b *Buffer[T]) mapScoped(op string, access MapAccess, fn func([]T) error) (err error) {
	b.mustLive(op)
	n := b.Len()
	if n == 0 {
		return fn([]T{})
	}

	b.dev.BindBuffer(CopyReadBuffer, b.id)
	defer b.dev.BindBuffer(CopyReadBuffer, 0)

	raw := b.dev.MapBuffer(CopyReadBuffer, b.size, access)
	if raw == nil {
		return &DeviceError{Op: op, Reason: fmt.Sprintf("buffer %d could not be mapped", b.id)}
	}
	defer func() {
		if !b.dev.UnmapBuffer(CopyReadBuffer) && err == nil {
			err = &DeviceError{Op: op, Reason: fmt.Sprintf("buffer %d store corrupted while mapped", b.id)}
		}
	}()
	if len(raw) < b.size {
		return &DeviceError{Op: op, Reason: fmt.Sprintf("mapped %d of %d bytes", len(raw), b.size)}
	}

	return fn(asElements[T](raw, n))
}

// CopyTo copies length elements starting at readOffset into dst starting at
// writeOffset, without a round trip through host memory. Elements of dst
// outside the written range are left unchanged. Both ranges are checked
// before anything is issued to the device.
func (b *Buffer[T]) CopyTo(dst *Buffer[T], readOffset, writeOffset, length int) error {
	b.mustLive("copy")
	dst.mustLive("copy")

	if err := checkRange("copy source", readOffset, length, b.Len()); err != nil {
		return err
	}
	if err := checkRange("copy destination", writeOffset, length, dst.Len()); err != nil {
		return err
	}
	if b.id == dst.id && readOffset < writeOffset+length && writeOffset < readOffset+length {
		return &RangeError{Op: "copy overlapping", Offset: writeOffset, Length: length, Size: dst.Len()}
	}
	if length == 0 {
		return nil
	}

	b.dev.BindBuffer(CopyReadBuffer, b.id)
	b.dev.BindBuffer(CopyWriteBuffer, dst.id)
	defer func() {
		b.dev.BindBuffer(CopyWriteBuffer, 0)
		b.dev.BindBuffer(CopyReadBuffer, 0)
	}()

	es := b.ElementSize()
	b.dev.CopyBufferSubData(CopyReadBuffer, CopyWriteBuffer, readOffset*es, writeOffset*es, length*es)
	return nil
}

// CopyAllTo copies the whole buffer to the start of dst.
func (b *Buffer[T]) CopyAllTo(dst *Buffer[T]) error {
	return b.CopyTo(dst, 0, 0, b.Len())
}

// BindBase binds the buffer to the indexed shader-storage binding point index,
// where compute and fragment stages read it as a storage block. Any kind of
// buffer may be bound, so a vertex buffer can be written by a compute pass
// and drawn afterwards.
func (b *Buffer[T]) BindBase(index uint32) {
	b.mustLive("bind base")
	b.dev.BindBufferBase(ShaderStorageBuffer, index, b.id)
	// Binding an index also sets the generic binding; only the indexed one is
	// wanted.
	b.dev.BindBuffer(ShaderStorageBuffer, 0)
}

// Delete releases the device handle. Calling it again does nothing.
func (b *Buffer[T]) Delete() {
	if b.id == 0 {
		return
	}
	b.dev.DeleteBuffer(b.id)
	logger.Debug("buffer deleted", "id", b.id, "kind", b.kind)
	b.id = 0
	b.size = 0
}

func (b *Buffer[T]) mustLive(op string) {
	if b.id == 0 {
		panic(fmt.Sprintf("render: %s on deleted buffer", op))
	}
}

func checkRange(op string, offset, length, size int) error {
	if offset < 0 || length < 0 || offset > size || length > size-offset {
		return &RangeError{Op: op, Offset: offset, Length: length, Size: size}
	}
	return nil
}
