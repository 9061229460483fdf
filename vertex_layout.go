package render

import "fmt"

// Attribute describes one per-vertex input. Offset is computed from the
// attributes declared before it.
type Attribute struct {
	Type       DataType
	Count      int
	Normalized bool
	Offset     int
}

// Size returns the attribute's size in bytes.
func (a Attribute) Size() int { return a.Type.Size() * a.Count }

// AttributeBuilder collects attributes in binding order. Attribute i is bound
// to location i.
type AttributeBuilder struct {
	attrs  []Attribute
	stride int
}

// Vector declares an attribute of count components of typ.
func (b *AttributeBuilder) Vector(typ DataType, count int) {
	b.add(typ, count, false)
}

// Scalar declares a single-component attribute.
func (b *AttributeBuilder) Scalar(typ DataType) {
	b.add(typ, 1, false)
}

// Normalized declares an integer attribute whose values are mapped to [0, 1]
// (unsigned) or [-1, 1] (signed) floats.
func (b *AttributeBuilder) Normalized(typ DataType, count int) {
	b.add(typ, count, true)
}

func (b *AttributeBuilder) add(typ DataType, count int, normalized bool) {
	b.attrs = append(b.attrs, Attribute{Type: typ, Count: count, Normalized: normalized, Offset: b.stride})
	b.stride += typ.Size() * count
}

// VertexLayoutOption configures a VertexLayout.
type VertexLayoutOption func(*layoutConfig)

type layoutConfig struct {
	indices BufferBinding
}

// WithIndexBuffer makes the layout bind indices along with the vertices.
func WithIndexBuffer(indices BufferBinding) VertexLayoutOption {
	return func(c *layoutConfig) { c.indices = indices }
}

// VertexLayout captures which buffers feed which attribute locations.
//
// The layout does not own its buffers; they must outlive it. Counts follow
// the buffers' current sizes, so re-uploading a buffer is seen by the next
// draw.
type VertexLayout struct {
	dev       Device
	id        uint32
	attrs     []Attribute
	stride    int
	vertices  BufferBinding
	indices   BufferBinding
	indexType DataType
}

// NewVertexLayout describes vertices with the attributes declared by build,
// which is called once. Offsets and stride follow declaration order.
//
// Zero attributes, component counts outside 1..4, buffers of the wrong kind,
// and a vertex buffer whose size is not a whole number of vertices are
// reported as *ConfigError before any device state is created.
func NewVertexLayout(dev Device, vertices BufferBinding, build func(*AttributeBuilder), opts ...VertexLayoutOption) (*VertexLayout, error) {
	var cfg layoutConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	var ab AttributeBuilder
	if build != nil {
		build(&ab)
	}

	l := &VertexLayout{dev: dev, attrs: ab.attrs, stride: ab.stride, vertices: vertices, indices: cfg.indices}
	if err := l.validate(vertices, cfg.indices); err != nil {
		return nil, err
	}

	l.id = dev.GenVertexArray()
	if l.id == 0 {
		panic(&DeviceError{Op: "gen vertex array", Reason: "no handle allocated"})
	}

	dev.BindVertexArray(l.id)
	dev.BindBuffer(ArrayBuffer, vertices.ID())
	for i, a := range l.attrs {
		loc := uint32(i)
		if a.Type.Integer() && !a.Normalized {
			dev.VertexAttribIPointer(loc, int32(a.Count), a.Type, int32(l.stride), a.Offset)
		} else {
			dev.VertexAttribPointer(loc, int32(a.Count), a.Type, a.Normalized, int32(l.stride), a.Offset)
		}
		dev.EnableVertexAttribArray(loc)
	}
	if cfg.indices != nil {
		// The element binding is recorded in the vertex array, so it is left
		// bound until the vertex array itself is unbound.
		dev.BindBuffer(ElementArrayBuffer, cfg.indices.ID())
	}
	dev.BindVertexArray(0)
	dev.BindBuffer(ArrayBuffer, 0)

	logger.Debug("vertex layout created", "id", l.id, "attributes", len(l.attrs), "stride", l.stride)
	return l, nil
}

func (l *VertexLayout) validate(vertices, indices BufferBinding) error {
	if vertices == nil || vertices.ID() == 0 {
		return &ConfigError{Reason: "missing vertex buffer"}
	}
	if vertices.Kind() != VertexBuffer {
		return &ConfigError{Reason: fmt.Sprintf("vertex data is in a %s buffer", vertices.Kind())}
	}
	if len(l.attrs) == 0 {
		return &ConfigError{Reason: "no attributes declared"}
	}
	for i, a := range l.attrs {
		if a.Type.Size() == 0 {
			return &ConfigError{Reason: fmt.Sprintf("attribute %d has unknown type", i)}
		}
		if a.Count < 1 || a.Count > 4 {
			return &ConfigError{Reason: fmt.Sprintf("attribute %d has %d components, want 1 to 4", i, a.Count)}
		}
		if a.Normalized && !a.Type.Integer() {
			return &ConfigError{Reason: fmt.Sprintf("attribute %d: only integer types can be normalized", i)}
		}
	}
	if err := l.checkVertices(); err != nil {
		return err
	}

	if indices == nil {
		return nil
	}
	if indices.ID() == 0 {
		return &ConfigError{Reason: "index buffer was deleted"}
	}
	if indices.Kind() != IndexBuffer {
		return &ConfigError{Reason: fmt.Sprintf("index data is in a %s buffer", indices.Kind())}
	}
	switch indices.ElementSize() {
	case 1:
		l.indexType = UnsignedByte
	case 2:
		l.indexType = UnsignedShort
	case 4:
		l.indexType = UnsignedInt
	default:
		return &ConfigError{Reason: fmt.Sprintf("index elements are %d bytes, want 1, 2 or 4", indices.ElementSize())}
	}
	return nil
}

// checkVertices reports whether the vertex buffer still holds a whole number
// of vertices.
func (l *VertexLayout) checkVertices() error {
	if l.vertices.ID() == 0 {
		return &ConfigError{Reason: "vertex buffer was deleted"}
	}
	if size := l.vertices.ByteSize(); size%l.stride != 0 {
		return &ConfigError{Reason: fmt.Sprintf("vertex buffer size %d is not a multiple of stride %d", size, l.stride)}
	}
	if l.indices != nil && l.indices.ID() == 0 {
		return &ConfigError{Reason: "index buffer was deleted"}
	}
	return nil
}

// ID returns the device handle, or 0 once deleted.
func (l *VertexLayout) ID() uint32 { return l.id }

// Attributes returns the declared attributes with their computed offsets.
func (l *VertexLayout) Attributes() []Attribute {
	return append([]Attribute(nil), l.attrs...)
}

// Stride returns the size of one vertex in bytes.
func (l *VertexLayout) Stride() int { return l.stride }

// VertexCount returns how many whole vertices the vertex buffer holds now.
func (l *VertexLayout) VertexCount() int { return l.vertices.ByteSize() / l.stride }

// HasIndices reports whether an index buffer is bound with the layout.
func (l *VertexLayout) HasIndices() bool { return l.indexType != 0 }

// IndexType returns the index component type, or 0 without an index buffer.
func (l *VertexLayout) IndexType() DataType { return l.indexType }

// IndexCount returns how many indices the index buffer holds now, or 0
// without an index buffer.
func (l *VertexLayout) IndexCount() int {
	if l.indices == nil {
		return 0
	}
	return l.indices.ByteSize() / l.indices.ElementSize()
}

// Bind makes the layout, with its index buffer if any, current for the next
// draw call. It panics with a *ConfigError if a buffer was deleted or the
// vertex buffer was re-uploaded with a size that is not a whole number of
// vertices.
func (l *VertexLayout) Bind() {
	if l.id == 0 {
		panic("render: bind of deleted vertex layout")
	}
	if err := l.checkVertices(); err != nil {
		panic(err)
	}
	l.dev.BindVertexArray(l.id)
}

// Unbind clears the current vertex layout.
func (l *VertexLayout) Unbind() {
	l.dev.BindVertexArray(0)
}

// Delete releases the layout's handle but not its buffers. Calling it again
// does nothing.
func (l *VertexLayout) Delete() {
	if l.id == 0 {
		return
	}
	l.dev.DeleteVertexArray(l.id)
	logger.Debug("vertex layout deleted", "id", l.id)
	l.id = 0
}
