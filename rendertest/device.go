// Package rendertest provides an in-memory render.Device for tests.
//
// The device keeps the binding state a driver would keep and records misuse
// the way a driver records GL errors: calls that would be invalid append to an
// error queue read with Err instead of panicking. Compute dispatches run Go
// kernels registered by shader source, and their writes stay invisible to
// maps, copies and uploads until a memory barrier.
package rendertest

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unsafe"

	"github.com/go-theft-auto/render"
)

// Kernel stands in for a compute shader.
type Kernel func(inv *Invocation)

// Invocation is one dispatch as seen by a Kernel.
type Invocation struct {
	Groups [3]uint32

	dev *Device
}

// Storage returns the bytes of the buffer bound to shader-storage binding
// index. Writes are staged until the next barrier. It returns nil if nothing
// is bound there.
func (inv *Invocation) Storage(binding uint32) []byte {
	b := inv.dev.buffers[inv.dev.indexed[binding]]
	if b == nil {
		inv.dev.fail("dispatch: no buffer bound to storage binding %d", binding)
		return nil
	}
	if b.pending == nil {
		b.pending = alloc(len(b.data))
		copy(b.pending, b.data)
	}
	return b.pending
}

// StorageAs returns the buffer bound to binding as a slice of T.
func StorageAs[T any](inv *Invocation, binding uint32) []T {
	raw := inv.Storage(binding)
	var zero T
	n := len(raw) / int(unsafe.Sizeof(zero))
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(unsafe.SliceData(raw))), n)
}

// AttribState is the recorded state of one vertex attribute.
type AttribState struct {
	Buffer     uint32
	Size       int32
	Type       render.DataType
	Normalized bool
	Integer    bool
	Stride     int32
	Offset     int
	Enabled    bool
}

// VertexArrayState is the recorded state of one vertex array.
type VertexArrayState struct {
	Attribs      map[uint32]AttribState
	ElementArray uint32
}

// TextureState is the recorded state of one texture.
type TextureState struct {
	Format        render.TextureFormat
	Width, Height int
	Pix           []byte
	Min, Mag      render.Filter
}

type buffer struct {
	data    []byte
	pending []byte
	usage   render.Usage
	mapped  bool
}

type shader struct {
	stage  render.Stage
	source string
}

type program struct {
	attached map[uint32]bool
	linked   bool
	compute  string
	uniforms map[string]int32
	values   map[int32]any
}

// Device is an in-memory render.Device. The zero value is not usable; call
// NewDevice.
type Device struct {
	// Kernels maps compute shader source to the kernel run on dispatch.
	Kernels map[string]Kernel

	// FailMap makes MapBuffer fail.
	FailMap bool
	// CorruptUnmap makes UnmapBuffer report a corrupted store.
	CorruptUnmap bool

	nextID   uint32
	buffers  map[uint32]*buffer
	shaders  map[uint32]*shader
	programs map[uint32]*program
	arrays   map[uint32]*VertexArrayState
	textures map[uint32]*TextureState

	bound    map[render.BufferTarget]uint32
	indexed  map[uint32]uint32
	array    uint32
	current  uint32
	units    map[uint32]uint32
	images   map[uint32]uint32
	defArray VertexArrayState

	calls   map[string]int
	deletes map[uint32]int
	errs    []error
}

var _ render.Device = (*Device)(nil)

// NewDevice returns an empty device.
func NewDevice() *Device {
	return &Device{
		Kernels:  make(map[string]Kernel),
		buffers:  make(map[uint32]*buffer),
		shaders:  make(map[uint32]*shader),
		programs: make(map[uint32]*program),
		arrays:   make(map[uint32]*VertexArrayState),
		textures: make(map[uint32]*TextureState),
		bound:    make(map[render.BufferTarget]uint32),
		indexed:  make(map[uint32]uint32),
		units:    make(map[uint32]uint32),
		images:   make(map[uint32]uint32),
		defArray: VertexArrayState{Attribs: make(map[uint32]AttribState)},
		calls:    make(map[string]int),
		deletes:  make(map[uint32]int),
	}
}

// Err returns every recorded misuse joined together, or nil.
func (d *Device) Err() error { return errors.Join(d.errs...) }

// Calls returns how many times the named Device method was called.
func (d *Device) Calls(method string) int { return d.calls[method] }

// UniformQueries returns how many times name was looked up in program.
func (d *Device) UniformQueries(program uint32, name string) int {
	return d.calls[fmt.Sprintf("GetUniformLocation(%d,%s)", program, name)]
}

// Deletes returns how many times a delete was issued for id. Handles are
// unique across object types.
func (d *Device) Deletes(id uint32) int { return d.deletes[id] }

// Live returns how many objects of any type exist.
func (d *Device) Live() int {
	return len(d.buffers) + len(d.shaders) + len(d.programs) + len(d.arrays) + len(d.textures)
}

// BoundBuffer returns the buffer bound to target.
func (d *Device) BoundBuffer(target render.BufferTarget) uint32 {
	if target == render.ElementArrayBuffer {
		return d.currentArray().ElementArray
	}
	return d.bound[target]
}

// IndexedBuffer returns the buffer bound to shader-storage binding index.
func (d *Device) IndexedBuffer(index uint32) uint32 { return d.indexed[index] }

// BoundVertexArray returns the current vertex array.
func (d *Device) BoundVertexArray() uint32 { return d.array }

// CurrentProgram returns the program in use.
func (d *Device) CurrentProgram() uint32 { return d.current }

// BoundTexture returns the texture bound on unit.
func (d *Device) BoundTexture(unit uint32) uint32 { return d.units[unit] }

// ImageTexture returns the texture bound to image unit.
func (d *Device) ImageTexture(unit uint32) uint32 { return d.images[unit] }

// Neutral reports the bindings left behind: any bound buffer target, vertex
// array or texture unit 0. The current program is not binding state the
// resource types promise to clear.
func (d *Device) Neutral() error {
	var errs []error
	targets := []render.BufferTarget{
		render.ArrayBuffer, render.ShaderStorageBuffer,
		render.CopyReadBuffer, render.CopyWriteBuffer,
	}
	for _, t := range targets {
		if id := d.bound[t]; id != 0 {
			errs = append(errs, fmt.Errorf("%s target still bound to %d", t, id))
		}
	}
	if d.array != 0 {
		errs = append(errs, fmt.Errorf("vertex array %d still bound", d.array))
	}
	if d.defArray.ElementArray != 0 {
		errs = append(errs, fmt.Errorf("element-array target still bound to %d", d.defArray.ElementArray))
	}
	if id := d.units[0]; id != 0 {
		errs = append(errs, fmt.Errorf("texture unit 0 still bound to %d", id))
	}
	return errors.Join(errs...)
}

// Contents returns a copy of a buffer's visible contents.
func (d *Device) Contents(id uint32) []byte {
	b := d.buffers[id]
	if b == nil {
		return nil
	}
	return append([]byte(nil), b.data...)
}

// BufferUsage returns the usage hint a buffer store was allocated with.
func (d *Device) BufferUsage(id uint32) render.Usage {
	if b := d.buffers[id]; b != nil {
		return b.usage
	}
	return 0
}

// VertexArray returns the recorded state of a vertex array.
func (d *Device) VertexArray(id uint32) (VertexArrayState, bool) {
	a, ok := d.arrays[id]
	if !ok {
		return VertexArrayState{}, false
	}
	return *a, true
}

// Texture returns the recorded state of a texture.
func (d *Device) Texture(id uint32) (TextureState, bool) {
	t, ok := d.textures[id]
	if !ok {
		return TextureState{}, false
	}
	return *t, true
}

// Uniform returns the last value written to a uniform of program.
func (d *Device) Uniform(program uint32, name string) (any, bool) {
	p := d.programs[program]
	if p == nil {
		return nil, false
	}
	loc, ok := p.uniforms[name]
	if !ok {
		return nil, false
	}
	v, ok := p.values[loc]
	return v, ok
}

func (d *Device) fail(format string, args ...any) {
	d.errs = append(d.errs, fmt.Errorf(format, args...))
}

func (d *Device) call(method string) { d.calls[method]++ }

func (d *Device) gen() uint32 {
	d.nextID++
	return d.nextID
}

func (d *Device) currentArray() *VertexArrayState {
	if d.array == 0 {
		return &d.defArray
	}
	return d.arrays[d.array]
}

// alloc returns zeroed bytes aligned for any element type.
func alloc(size int) []byte {
	if size == 0 {
		return []byte{}
	}
	words := make([]uint64, (size+7)/8)
	return unsafe.Slice((*byte)(unsafe.Pointer(unsafe.SliceData(words))), size)
}

// Buffers.

func (d *Device) GenBuffer() uint32 {
	d.call("GenBuffer")
	id := d.gen()
	d.buffers[id] = &buffer{data: alloc(0)}
	return id
}

func (d *Device) DeleteBuffer(id uint32) {
	d.call("DeleteBuffer")
	d.deletes[id]++
	if _, ok := d.buffers[id]; !ok {
		d.fail("DeleteBuffer: %d is not a live buffer", id)
		return
	}
	delete(d.buffers, id)
	for t, b := range d.bound {
		if b == id {
			d.bound[t] = 0
		}
	}
	for i, b := range d.indexed {
		if b == id {
			delete(d.indexed, i)
		}
	}
}

func (d *Device) BindBuffer(target render.BufferTarget, id uint32) {
	d.call("BindBuffer")
	if id != 0 && d.buffers[id] == nil {
		d.fail("BindBuffer(%s): %d is not a live buffer", target, id)
		return
	}
	if target == render.ElementArrayBuffer {
		d.currentArray().ElementArray = id
		return
	}
	d.bound[target] = id
}

func (d *Device) boundBuffer(method string, target render.BufferTarget) *buffer {
	b := d.buffers[d.BoundBuffer(target)]
	if b == nil {
		d.fail("%s(%s): no buffer bound", method, target)
	}
	return b
}

func (d *Device) BufferData(target render.BufferTarget, size int, data []byte, usage render.Usage) {
	d.call("BufferData")
	b := d.boundBuffer("BufferData", target)
	if b == nil {
		return
	}
	if b.mapped {
		d.fail("BufferData(%s): buffer is mapped", target)
		return
	}
	if data != nil && len(data) != size {
		d.fail("BufferData(%s): %d bytes of data for size %d", target, len(data), size)
		return
	}
	b.data = alloc(size)
	copy(b.data, data)
	b.pending = nil
	b.usage = usage
}

func (d *Device) MapBuffer(target render.BufferTarget, size int, access render.MapAccess) []byte {
	d.call("MapBuffer")
	b := d.boundBuffer("MapBuffer", target)
	if b == nil {
		return nil
	}
	if b.mapped {
		d.fail("MapBuffer(%s): already mapped", target)
		return nil
	}
	if size <= 0 || size > len(b.data) {
		d.fail("MapBuffer(%s): size %d outside store of %d bytes", target, size, len(b.data))
		return nil
	}
	if d.FailMap {
		return nil
	}
	b.mapped = true
	if access == render.MapReadOnly {
		view := alloc(size)
		copy(view, b.data)
		return view
	}
	return b.data[:size:size]
}

func (d *Device) UnmapBuffer(target render.BufferTarget) bool {
	d.call("UnmapBuffer")
	b := d.boundBuffer("UnmapBuffer", target)
	if b == nil {
		return false
	}
	if !b.mapped {
		d.fail("UnmapBuffer(%s): not mapped", target)
		return false
	}
	b.mapped = false
	return !d.CorruptUnmap
}

func (d *Device) CopyBufferSubData(read, write render.BufferTarget, readOffset, writeOffset, size int) {
	d.call("CopyBufferSubData")
	src := d.boundBuffer("CopyBufferSubData", read)
	dst := d.boundBuffer("CopyBufferSubData", write)
	if src == nil || dst == nil {
		return
	}
	if src.mapped || dst.mapped {
		d.fail("CopyBufferSubData: buffer is mapped")
		return
	}
	if readOffset < 0 || writeOffset < 0 || size < 0 ||
		readOffset+size > len(src.data) || writeOffset+size > len(dst.data) {
		d.fail("CopyBufferSubData: range out of bounds")
		return
	}
	copy(dst.data[writeOffset:writeOffset+size], src.data[readOffset:readOffset+size])
}

func (d *Device) BindBufferBase(target render.BufferTarget, index, id uint32) {
	d.call("BindBufferBase")
	if target != render.ShaderStorageBuffer {
		d.fail("BindBufferBase: %s is not an indexed target", target)
		return
	}
	if id != 0 && d.buffers[id] == nil {
		d.fail("BindBufferBase: %d is not a live buffer", id)
		return
	}
	d.indexed[index] = id
	d.bound[target] = id
}

// Shaders and programs.

var (
	mainRe    = regexp.MustCompile(`void\s+main\s*\(`)
	uniformRe = regexp.MustCompile(`(?m)^\s*(?:layout\s*\([^)]*\)\s*)?uniform\s+\w+\s+(\w+)\s*(?:\[\d+\])?\s*;`)
	inRe      = regexp.MustCompile(`(?m)^\s*(?:layout\s*\([^)]*\)\s*)?in\s+(\w+)\s+(\w+)\s*;`)
	outRe     = regexp.MustCompile(`(?m)^\s*(?:layout\s*\([^)]*\)\s*)?out\s+(\w+)\s+(\w+)\s*;`)
)

func (d *Device) CreateShader(stage render.Stage) uint32 {
	d.call("CreateShader")
	id := d.gen()
	d.shaders[id] = &shader{stage: stage}
	return id
}

// CompileShader accepts any source with a main function.
func (d *Device) CompileShader(id uint32, source string) (bool, string) {
	d.call("CompileShader")
	s := d.shaders[id]
	if s == nil {
		d.fail("CompileShader: %d is not a live shader", id)
		return false, ""
	}
	if !strings.Contains(source, "#version") {
		return false, "0:1(1): error: missing #version directive"
	}
	if !mainRe.MatchString(source) {
		return false, "0:1(1): error: syntax error, no entry point main"
	}
	s.source = source
	return true, ""
}

func (d *Device) DeleteShader(id uint32) {
	d.call("DeleteShader")
	d.deletes[id]++
	if _, ok := d.shaders[id]; !ok {
		d.fail("DeleteShader: %d is not a live shader", id)
		return
	}
	delete(d.shaders, id)
}

func (d *Device) CreateProgram() uint32 {
	d.call("CreateProgram")
	id := d.gen()
	d.programs[id] = &program{
		attached: make(map[uint32]bool),
		uniforms: make(map[string]int32),
		values:   make(map[int32]any),
	}
	return id
}

func (d *Device) AttachShader(prog, sh uint32) {
	d.call("AttachShader")
	p, s := d.programs[prog], d.shaders[sh]
	if p == nil || s == nil {
		d.fail("AttachShader(%d, %d): no such object", prog, sh)
		return
	}
	p.attached[sh] = true
}

func (d *Device) DetachShader(prog, sh uint32) {
	d.call("DetachShader")
	p := d.programs[prog]
	if p == nil || !p.attached[sh] {
		d.fail("DetachShader(%d, %d): not attached", prog, sh)
		return
	}
	delete(p.attached, sh)
}

// LinkProgram fails when a fragment input has no vertex output of the same
// type and name, and otherwise assigns uniform locations in name order.
func (d *Device) LinkProgram(prog uint32) (bool, string) {
	d.call("LinkProgram")
	p := d.programs[prog]
	if p == nil {
		d.fail("LinkProgram: %d is not a live program", prog)
		return false, ""
	}

	byStage := make(map[render.Stage]*shader)
	for id := range p.attached {
		s := d.shaders[id]
		if s.source == "" {
			return false, fmt.Sprintf("error: shader %d is not compiled", id)
		}
		byStage[s.stage] = s
	}
	if len(byStage) == 0 {
		return false, "error: no shaders attached"
	}

	if vs, fs := byStage[render.VertexStage], byStage[render.FragmentStage]; vs != nil && fs != nil {
		outs := make(map[string]string)
		for _, m := range outRe.FindAllStringSubmatch(vs.source, -1) {
			outs[m[2]] = m[1]
		}
		for _, m := range inRe.FindAllStringSubmatch(fs.source, -1) {
			if typ, ok := outs[m[2]]; !ok || typ != m[1] {
				return false, fmt.Sprintf("error: fragment shader input `%s' has no matching vertex shader output", m[2])
			}
		}
	}

	names := make(map[string]bool)
	for _, s := range byStage {
		for _, m := range uniformRe.FindAllStringSubmatch(s.source, -1) {
			names[m[1]] = true
		}
	}
	sorted := make([]string, 0, len(names))
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)
	for i, n := range sorted {
		p.uniforms[n] = int32(i)
	}

	if cs := byStage[render.ComputeStage]; cs != nil {
		p.compute = cs.source
	}
	p.linked = true
	return true, ""
}

func (d *Device) DeleteProgram(id uint32) {
	d.call("DeleteProgram")
	d.deletes[id]++
	if _, ok := d.programs[id]; !ok {
		d.fail("DeleteProgram: %d is not a live program", id)
		return
	}
	delete(d.programs, id)
	if d.current == id {
		d.current = 0
	}
}

func (d *Device) UseProgram(id uint32) {
	d.call("UseProgram")
	if id != 0 {
		p := d.programs[id]
		if p == nil || !p.linked {
			d.fail("UseProgram: %d is not a linked program", id)
			return
		}
	}
	d.current = id
}

func (d *Device) GetUniformLocation(prog uint32, name string) int32 {
	d.call("GetUniformLocation")
	d.call(fmt.Sprintf("GetUniformLocation(%d,%s)", prog, name))
	p := d.programs[prog]
	if p == nil || !p.linked {
		d.fail("GetUniformLocation: %d is not a linked program", prog)
		return -1
	}
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	return -1
}

func (d *Device) setUniform(method string, loc int32, v any) {
	d.call(method)
	if loc == -1 {
		return
	}
	p := d.programs[d.current]
	if p == nil {
		d.fail("%s: no program in use", method)
		return
	}
	for _, l := range p.uniforms {
		if l == loc {
			p.values[loc] = v
			return
		}
	}
	d.fail("%s: location %d is not in program %d", method, loc, d.current)
}

func (d *Device) Uniform1i(loc int32, v int32) { d.setUniform("Uniform1i", loc, v) }

func (d *Device) Uniform1ui(loc int32, v uint32) { d.setUniform("Uniform1ui", loc, v) }

func (d *Device) Uniform1f(loc int32, v float32) { d.setUniform("Uniform1f", loc, v) }

func (d *Device) Uniform2f(loc int32, x, y float32) {
	d.setUniform("Uniform2f", loc, [2]float32{x, y})
}

func (d *Device) Uniform3f(loc int32, x, y, z float32) {
	d.setUniform("Uniform3f", loc, [3]float32{x, y, z})
}

func (d *Device) Uniform4f(loc int32, x, y, z, w float32) {
	d.setUniform("Uniform4f", loc, [4]float32{x, y, z, w})
}

func (d *Device) UniformMatrix4fv(loc int32, m *[16]float32) {
	d.setUniform("UniformMatrix4fv", loc, *m)
}

// Compute.

func (d *Device) DispatchCompute(x, y, z uint32) {
	d.call("DispatchCompute")
	p := d.programs[d.current]
	if p == nil || p.compute == "" {
		d.fail("DispatchCompute: no compute program in use")
		return
	}
	k := d.Kernels[p.compute]
	if k == nil {
		d.fail("DispatchCompute: no kernel registered for program %d", d.current)
		return
	}
	k(&Invocation{Groups: [3]uint32{x, y, z}, dev: d})
}

// MemoryBarrier publishes staged compute writes when bits include storage
// or buffer-update visibility.
func (d *Device) MemoryBarrier(bits render.Barrier) {
	d.call("MemoryBarrier")
	if bits&(render.BarrierShaderStorage|render.BarrierBufferUpdate) == 0 {
		return
	}
	for _, b := range d.buffers {
		if b.pending != nil {
			b.data = b.pending
			b.pending = nil
		}
	}
}

// Vertex arrays.

func (d *Device) GenVertexArray() uint32 {
	d.call("GenVertexArray")
	id := d.gen()
	d.arrays[id] = &VertexArrayState{Attribs: make(map[uint32]AttribState)}
	return id
}

func (d *Device) DeleteVertexArray(id uint32) {
	d.call("DeleteVertexArray")
	d.deletes[id]++
	if _, ok := d.arrays[id]; !ok {
		d.fail("DeleteVertexArray: %d is not a live vertex array", id)
		return
	}
	delete(d.arrays, id)
	if d.array == id {
		d.array = 0
	}
}

func (d *Device) BindVertexArray(id uint32) {
	d.call("BindVertexArray")
	if id != 0 && d.arrays[id] == nil {
		d.fail("BindVertexArray: %d is not a live vertex array", id)
		return
	}
	d.array = id
}

func (d *Device) attrib(method string, index uint32) (*VertexArrayState, uint32, bool) {
	if d.array == 0 {
		d.fail("%s: no vertex array bound", method)
		return nil, 0, false
	}
	buf := d.bound[render.ArrayBuffer]
	if buf == 0 {
		d.fail("%s: no array buffer bound", method)
		return nil, 0, false
	}
	return d.arrays[d.array], buf, true
}

func (d *Device) VertexAttribPointer(index uint32, size int32, typ render.DataType, normalized bool, stride int32, offset int) {
	d.call("VertexAttribPointer")
	a, buf, ok := d.attrib("VertexAttribPointer", index)
	if !ok {
		return
	}
	st := a.Attribs[index]
	st.Buffer, st.Size, st.Type, st.Normalized, st.Integer, st.Stride, st.Offset = buf, size, typ, normalized, false, stride, offset
	a.Attribs[index] = st
}

func (d *Device) VertexAttribIPointer(index uint32, size int32, typ render.DataType, stride int32, offset int) {
	d.call("VertexAttribIPointer")
	a, buf, ok := d.attrib("VertexAttribIPointer", index)
	if !ok {
		return
	}
	if !typ.Integer() {
		d.fail("VertexAttribIPointer: %s is not an integer type", typ)
		return
	}
	st := a.Attribs[index]
	st.Buffer, st.Size, st.Type, st.Normalized, st.Integer, st.Stride, st.Offset = buf, size, typ, false, true, stride, offset
	a.Attribs[index] = st
}

func (d *Device) EnableVertexAttribArray(index uint32) {
	d.call("EnableVertexAttribArray")
	if d.array == 0 {
		d.fail("EnableVertexAttribArray: no vertex array bound")
		return
	}
	a := d.arrays[d.array]
	st := a.Attribs[index]
	st.Enabled = true
	a.Attribs[index] = st
}

// Textures.

func (d *Device) GenTexture() uint32 {
	d.call("GenTexture")
	id := d.gen()
	d.textures[id] = &TextureState{}
	return id
}

func (d *Device) DeleteTexture(id uint32) {
	d.call("DeleteTexture")
	d.deletes[id]++
	if _, ok := d.textures[id]; !ok {
		d.fail("DeleteTexture: %d is not a live texture", id)
		return
	}
	delete(d.textures, id)
	for u, t := range d.units {
		if t == id {
			d.units[u] = 0
		}
	}
	for u, t := range d.images {
		if t == id {
			delete(d.images, u)
		}
	}
}

func (d *Device) BindTexture(unit, id uint32) {
	d.call("BindTexture")
	if id != 0 && d.textures[id] == nil {
		d.fail("BindTexture: %d is not a live texture", id)
		return
	}
	d.units[unit] = id
}

func (d *Device) TexImage2D(format render.TextureFormat, width, height int, pix []byte) {
	d.call("TexImage2D")
	t := d.textures[d.units[0]]
	if t == nil {
		d.fail("TexImage2D: no texture bound on unit 0")
		return
	}
	if pix != nil && len(pix) < width*height*format.BytesPerPixel() {
		d.fail("TexImage2D: %d bytes for %dx%d", len(pix), width, height)
		return
	}
	t.Format, t.Width, t.Height = format, width, height
	t.Pix = append([]byte(nil), pix...)
}

func (d *Device) TexFilter(min, mag render.Filter) {
	d.call("TexFilter")
	t := d.textures[d.units[0]]
	if t == nil {
		d.fail("TexFilter: no texture bound on unit 0")
		return
	}
	t.Min, t.Mag = min, mag
}

func (d *Device) BindImageTexture(unit, id uint32, access render.ImageAccess, format render.TextureFormat) {
	d.call("BindImageTexture")
	if d.textures[id] == nil {
		d.fail("BindImageTexture: %d is not a live texture", id)
		return
	}
	d.images[unit] = id
}
