package render

// Device is the raw graphics API the resource types are built on.
//
// Methods map one-to-one onto driver entry points and carry no policy: binding
// discipline, range checks and error reporting live in the resource types.
// A Device is tied to the thread that owns its context and is not safe for
// concurrent use. The backend/opengl package provides the real implementation;
// rendertest provides an in-memory one.
type Device interface {
	GenBuffer() uint32
	DeleteBuffer(id uint32)
	BindBuffer(target BufferTarget, id uint32)
	// BufferData replaces the store of the buffer bound to target. A nil data
	// allocates size uninitialized bytes.
	BufferData(target BufferTarget, size int, data []byte, usage Usage)
	// MapBuffer maps size bytes of the buffer bound to target. It returns nil
	// if the mapping failed.
	MapBuffer(target BufferTarget, size int, access MapAccess) []byte
	// UnmapBuffer returns false if the store was corrupted while mapped.
	UnmapBuffer(target BufferTarget) bool
	CopyBufferSubData(read, write BufferTarget, readOffset, writeOffset, size int)
	BindBufferBase(target BufferTarget, index, id uint32)

	CreateShader(stage Stage) uint32
	// CompileShader compiles source into the shader and reports the compile
	// status together with the info log.
	CompileShader(id uint32, source string) (ok bool, log string)
	DeleteShader(id uint32)
	CreateProgram() uint32
	AttachShader(program, shader uint32)
	DetachShader(program, shader uint32)
	LinkProgram(program uint32) (ok bool, log string)
	DeleteProgram(id uint32)
	UseProgram(id uint32)
	GetUniformLocation(program uint32, name string) int32
	Uniform1i(location int32, v int32)
	Uniform1ui(location int32, v uint32)
	Uniform1f(location int32, v float32)
	Uniform2f(location int32, x, y float32)
	Uniform3f(location int32, x, y, z float32)
	Uniform4f(location int32, x, y, z, w float32)
	UniformMatrix4fv(location int32, m *[16]float32)

	DispatchCompute(x, y, z uint32)
	MemoryBarrier(bits Barrier)

	GenVertexArray() uint32
	DeleteVertexArray(id uint32)
	BindVertexArray(id uint32)
	VertexAttribPointer(index uint32, size int32, typ DataType, normalized bool, stride int32, offset int)
	VertexAttribIPointer(index uint32, size int32, typ DataType, stride int32, offset int)
	EnableVertexAttribArray(index uint32)

	GenTexture() uint32
	DeleteTexture(id uint32)
	BindTexture(unit, id uint32)
	// TexImage2D defines the image of the texture bound on unit 0. A nil pix
	// allocates uninitialized storage.
	TexImage2D(format TextureFormat, width, height int, pix []byte)
	TexFilter(min, mag Filter)
	BindImageTexture(unit, id uint32, access ImageAccess, format TextureFormat)
}

// BufferTarget is a binding point for buffer objects.
type BufferTarget uint8

const (
	ArrayBuffer BufferTarget = iota + 1
	ElementArrayBuffer
	ShaderStorageBuffer
	CopyReadBuffer
	CopyWriteBuffer
)

func (t BufferTarget) String() string {
	switch t {
	case ArrayBuffer:
		return "array"
	case ElementArrayBuffer:
		return "element-array"
	case ShaderStorageBuffer:
		return "shader-storage"
	case CopyReadBuffer:
		return "copy-read"
	case CopyWriteBuffer:
		return "copy-write"
	default:
		return "unknown"
	}
}

// BufferKind is what a Buffer holds. It selects the target used by BindBase
// and by vertex layouts.
type BufferKind uint8

const (
	// VertexBuffer holds per-vertex attributes.
	VertexBuffer BufferKind = iota + 1
	// IndexBuffer holds element indices.
	IndexBuffer
	// StorageBuffer is read and written by shaders through indexed bindings.
	StorageBuffer
)

// Target returns the binding point for the kind.
func (k BufferKind) Target() BufferTarget {
	switch k {
	case VertexBuffer:
		return ArrayBuffer
	case IndexBuffer:
		return ElementArrayBuffer
	case StorageBuffer:
		return ShaderStorageBuffer
	default:
		return 0
	}
}

func (k BufferKind) String() string {
	switch k {
	case VertexBuffer:
		return "vertex"
	case IndexBuffer:
		return "index"
	case StorageBuffer:
		return "storage"
	default:
		return "unknown"
	}
}

// Usage is the access-frequency hint given when a buffer store is allocated.
type Usage uint8

const (
	StreamDraw Usage = iota + 1
	StreamRead
	StreamCopy
	StaticDraw
	StaticRead
	StaticCopy
	DynamicDraw
	DynamicRead
	DynamicCopy
)

func (u Usage) String() string {
	names := [...]string{"", "stream-draw", "stream-read", "stream-copy",
		"static-draw", "static-read", "static-copy",
		"dynamic-draw", "dynamic-read", "dynamic-copy"}
	if int(u) < len(names) && u != 0 {
		return names[u]
	}
	return "unknown"
}

// MapAccess selects how a mapped buffer view may be used.
type MapAccess uint8

const (
	MapReadOnly MapAccess = iota + 1
	MapReadWrite
)

// Stage is a shader pipeline stage.
type Stage uint8

const (
	VertexStage Stage = iota + 1
	FragmentStage
	GeometryStage
	ComputeStage
)

func (s Stage) String() string {
	switch s {
	case VertexStage:
		return "vertex"
	case FragmentStage:
		return "fragment"
	case GeometryStage:
		return "geometry"
	case ComputeStage:
		return "compute"
	default:
		return "unknown"
	}
}

// DataType is the component type of a vertex attribute or index.
type DataType uint8

const (
	Byte DataType = iota + 1
	UnsignedByte
	Short
	UnsignedShort
	Int
	UnsignedInt
	HalfFloat
	Float
	Double
)

// Size returns the size of one component in bytes.
func (t DataType) Size() int {
	switch t {
	case Byte, UnsignedByte:
		return 1
	case Short, UnsignedShort, HalfFloat:
		return 2
	case Int, UnsignedInt, Float:
		return 4
	case Double:
		return 8
	default:
		return 0
	}
}

// Integer reports whether the type is an integer type.
func (t DataType) Integer() bool {
	switch t {
	case Byte, UnsignedByte, Short, UnsignedShort, Int, UnsignedInt:
		return true
	}
	return false
}

func (t DataType) String() string {
	names := [...]string{"", "byte", "ubyte", "short", "ushort", "int", "uint", "half", "float", "double"}
	if int(t) < len(names) && t != 0 {
		return names[t]
	}
	return "unknown"
}

// Barrier is a set of memory barrier bits.
type Barrier uint8

const (
	BarrierVertexAttrib Barrier = 1 << iota
	BarrierElementArray
	BarrierUniform
	BarrierShaderStorage
	BarrierBufferUpdate
	BarrierTextureFetch
	BarrierShaderImage

	// BarrierAll orders every kind of memory access.
	BarrierAll Barrier = 0xff
)

// TextureFormat is the internal format of a texture.
type TextureFormat uint8

const (
	RGBA8 TextureFormat = iota + 1
	RGBA32F
	R32F
)

// BytesPerPixel returns the size of one texel.
func (f TextureFormat) BytesPerPixel() int {
	switch f {
	case RGBA8, R32F:
		return 4
	case RGBA32F:
		return 16
	default:
		return 0
	}
}

// Filter is a texture sampling filter.
type Filter uint8

const (
	Nearest Filter = iota + 1
	Linear
)

// ImageAccess is the access a shader has to a texture bound as an image.
type ImageAccess uint8

const (
	ImageReadOnly ImageAccess = iota + 1
	ImageWriteOnly
	ImageReadWrite
)
