package main

import (
	"io/fs"
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-theft-auto/render"
	"github.com/go-theft-auto/render/backend/opengl"
	"github.com/go-theft-auto/render/rendertest"
)

type fakeKeys map[glfw.Key]bool

func (k fakeKeys) KeyDown(key glfw.Key) bool { return k[key] }

type drawCall struct {
	layout  uint32
	mode    opengl.Primitive
	program uint32
	blended bool
}

type fakeDrawer struct {
	dev     *rendertest.Device
	clears  int
	calls   []drawCall
	blended bool
}

func (d *fakeDrawer) Clear(r, g, b, a float32) { d.clears++ }

func (d *fakeDrawer) DrawLayout(l *render.VertexLayout, mode opengl.Primitive) {
	l.Bind()
	d.calls = append(d.calls, drawCall{layout: l.ID(), mode: mode, program: d.dev.CurrentProgram(), blended: d.blended})
	l.Unbind()
}

func (d *fakeDrawer) Blended(fn func()) {
	d.blended = true
	defer func() { d.blended = false }()
	fn()
}

// moveKernel stands in for particles.comp: every particle advances by its
// velocity.
func moveKernel(inv *rendertest.Invocation) {
	ps := rendertest.StorageAs[particle](inv, 0)
	for i := range ps {
		ps[i].Pos = ps[i].Pos.Add(ps[i].Vel)
	}
}

func newTestState(t *testing.T, count int) (*GameState, *rendertest.Device) {
	t.Helper()
	dev := rendertest.NewDevice()

	shaders, err := shaderFS("")
	require.NoError(t, err)
	comp, err := fs.ReadFile(shaders, "particles.comp")
	require.NoError(t, err)
	dev.Kernels[string(comp)] = moveKernel

	cfg, err := loadConfig("")
	require.NoError(t, err)
	cfg.Particles.Count = count

	s, err := newGameState(dev, cfg, shaders, nil, 800, 600)
	require.NoError(t, err)
	require.NoError(t, dev.Err())
	return s, dev
}

func TestGameStateSetsScreenUniforms(t *testing.T) {
	s, dev := newTestState(t, 8)

	v, ok := dev.Uniform(s.screenProgram.ID(), "windowSize")
	require.True(t, ok)
	assert.Equal(t, [2]float32{800, 600}, v)

	s.Resize(1920, 1080)
	v, _ = dev.Uniform(s.screenProgram.ID(), "windowSize")
	assert.Equal(t, [2]float32{1920, 1080}, v)

	v, _ = dev.Uniform(s.integrate.ID(), "count")
	assert.Equal(t, uint32(8), v)
	require.NoError(t, dev.Err())
}

func TestScreenQuadLayout(t *testing.T) {
	s, _ := newTestState(t, 8)

	assert.Equal(t, 16, s.screenLayout.Stride())
	assert.Equal(t, 6, s.screenLayout.IndexCount())
	assert.Equal(t, render.UnsignedInt, s.screenLayout.IndexType())
	assert.Equal(t, 32, s.particleLayout.Stride())
	assert.Equal(t, 8, s.particleLayout.VertexCount())
}

func TestUpdateIntegratesParticlesOnDevice(t *testing.T) {
	s, dev := newTestState(t, 100)
	before := spawnParticles(100, 1)

	s.Update(1.0/fps, fakeKeys{})
	require.NoError(t, dev.Err())

	got, err := s.Particles()
	require.NoError(t, err)
	require.Len(t, got, 100)
	for i := range got {
		assert.Equal(t, before[i].Pos.Add(before[i].Vel), got[i].Pos, "particle %d", i)
	}
	assert.Equal(t, 1, dev.Calls("DispatchCompute"))
	assert.Equal(t, uint32(0), dev.BoundBuffer(render.CopyReadBuffer))
}

func TestArrowKeysMoveAttractor(t *testing.T) {
	s, dev := newTestState(t, 1)

	s.Update(0.5, fakeKeys{glfw.KeyRight: true, glfw.KeyUp: true})
	assert.InDelta(t, 0.5, s.attractor[0], 1e-6)
	assert.InDelta(t, 0.5, s.attractor[1], 1e-6)

	// The attractor stays inside clip space.
	for i := 0; i < 10; i++ {
		s.Update(0.5, fakeKeys{glfw.KeyRight: true})
	}
	assert.Equal(t, float32(1), s.attractor[0])

	v, _ := dev.Uniform(s.integrate.ID(), "attractor")
	assert.Equal(t, [2]float32{1, 0.5}, v)
}

func TestRenderDrawsQuadThenBlendedPoints(t *testing.T) {
	s, dev := newTestState(t, 10)
	d := &fakeDrawer{dev: dev}

	s.Render(d)

	assert.Equal(t, 1, d.clears)
	require.Len(t, d.calls, 2)
	assert.Equal(t, drawCall{layout: s.screenLayout.ID(), mode: opengl.Triangles, program: s.screenProgram.ID()}, d.calls[0])
	assert.Equal(t, drawCall{layout: s.particleLayout.ID(), mode: opengl.Points, program: s.particleProgram.ID(), blended: true}, d.calls[1])
	assert.Equal(t, s.background.ID(), dev.BoundTexture(0))
	require.NoError(t, dev.Err())
}

func TestReloadKeepsProgramsOnError(t *testing.T) {
	s, dev := newTestState(t, 4)
	old := s.screenProgram.ID()
	live := dev.Live()

	broken, err := shaderFS("")
	require.NoError(t, err)
	err = s.Reload(overlayFS{FS: broken, name: "screen.frag", data: "void main() {}"})
	var compileErr *render.CompileError
	require.ErrorAs(t, err, &compileErr)
	assert.Equal(t, old, s.screenProgram.ID())
	assert.Equal(t, live, dev.Live())

	shaders, _ := shaderFS("")
	require.NoError(t, s.Reload(shaders))
	assert.NotEqual(t, old, s.screenProgram.ID())
	assert.Equal(t, live, dev.Live(), "old programs released")
	require.NoError(t, dev.Err())
}

func TestDeleteReleasesEverything(t *testing.T) {
	s, dev := newTestState(t, 16)
	s.Update(1.0/fps, fakeKeys{})

	s.Delete()
	assert.Zero(t, dev.Live())
	require.NoError(t, dev.Err())
}

func TestEmptyParticleSystem(t *testing.T) {
	s, dev := newTestState(t, 0)
	d := &fakeDrawer{dev: dev}

	s.Update(1.0/fps, fakeKeys{})
	s.Render(d)
	assert.Zero(t, dev.Calls("DispatchCompute"))
	assert.Len(t, d.calls, 1)
	require.NoError(t, dev.Err())
}

func TestGradientIsOpaque(t *testing.T) {
	img := gradient(4, 4)
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			assert.Equal(t, uint32(0xffff), a)
		}
	}
	assert.Equal(t, mgl32.Vec2{-1, -1}, screenVertices[0].Pos)
}

// overlayFS replaces one file of an fs.FS.
type overlayFS struct {
	fs.FS
	name string
	data string
}

func (o overlayFS) ReadFile(name string) ([]byte, error) {
	if name == o.name {
		return []byte(o.data), nil
	}
	return fs.ReadFile(o.FS, name)
}
