package main

import (
	"fmt"
	"image"
	"image/color"
	"io/fs"
	"math/rand/v2"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/go-theft-auto/render"
	"github.com/go-theft-auto/render/backend/opengl"
	"github.com/go-theft-auto/render/shadersrc"
)

// workgroupSize matches local_size_x in particles.comp.
const workgroupSize = 64

// attractorSpeed is how far the arrow keys move the attractor per second,
// in clip space.
const attractorSpeed = 1.0

type screenVertex struct {
	Pos mgl32.Vec2
	UV  mgl32.Vec2
}

var screenVertices = []screenVertex{
	{Pos: mgl32.Vec2{-1, -1}, UV: mgl32.Vec2{0, 1}},
	{Pos: mgl32.Vec2{1, -1}, UV: mgl32.Vec2{1, 1}},
	{Pos: mgl32.Vec2{1, 1}, UV: mgl32.Vec2{1, 0}},
	{Pos: mgl32.Vec2{-1, 1}, UV: mgl32.Vec2{0, 0}},
}

var screenIndices = []uint32{
	0, 1, 2,
	2, 3, 0,
}

// particle mirrors the std430 Particle struct in particles.comp.
type particle struct {
	Pos   mgl32.Vec2
	Vel   mgl32.Vec2
	Color mgl32.Vec4
}

// keyState is satisfied by *opengl.Window.
type keyState interface {
	KeyDown(key glfw.Key) bool
}

// drawer is satisfied by *opengl.Device.
type drawer interface {
	Clear(r, g, b, a float32)
	DrawLayout(layout *render.VertexLayout, mode opengl.Primitive)
	Blended(fn func())
}

// GameState owns every GPU resource the example draws with.
type GameState struct {
	dev   render.Device
	clear [4]float32

	screenProgram *render.Program
	screenVBO     *render.Buffer[screenVertex]
	screenIBO     *render.Buffer[uint32]
	screenLayout  *render.VertexLayout
	background    *render.Texture

	particleProgram *render.Program
	integrate       *render.ComputeProgram
	particles       *render.Buffer[particle] // written by compute
	particleVerts   *render.Buffer[particle] // drawn as points
	particleLayout  *render.VertexLayout
	pointSize       float32

	attractor mgl32.Vec2
	time      float64
}

func newGameState(dev render.Device, cfg Config, shaders fs.FS, background image.Image, width, height int) (*GameState, error) {
	s := &GameState{
		dev:       dev,
		clear:     cfg.Background.Clear,
		pointSize: cfg.Particles.PointSize,
	}

	s.screenVBO = render.NewVertexBuffer(dev, screenVertices, render.StaticDraw)
	s.screenIBO = render.NewBufferWithData(dev, render.IndexBuffer, screenIndices, render.StaticDraw)
	var err error
	s.screenLayout, err = render.NewVertexLayout(dev, s.screenVBO, func(a *render.AttributeBuilder) {
		a.Vector(render.Float, 2) // position
		a.Vector(render.Float, 2) // tex coord
	}, render.WithIndexBuffer(s.screenIBO))
	if err != nil {
		s.Delete()
		return nil, fmt.Errorf("screen layout: %w", err)
	}

	if background == nil {
		background = gradient(256, 256)
	}
	s.background = render.NewTexture2D(dev, background)

	s.particles = render.NewBufferWithData(dev, render.StorageBuffer, spawnParticles(cfg.Particles.Count, cfg.Particles.Seed), render.DynamicCopy)
	s.particleVerts = render.NewBufferWithCapacity[particle](dev, render.VertexBuffer, cfg.Particles.Count, render.StreamDraw)
	s.particleLayout, err = render.NewVertexLayout(dev, s.particleVerts, func(a *render.AttributeBuilder) {
		a.Vector(render.Float, 2) // position
		a.Vector(render.Float, 2) // velocity
		a.Vector(render.Float, 4) // color
	})
	if err != nil {
		s.Delete()
		return nil, fmt.Errorf("particle layout: %w", err)
	}

	if err := s.Reload(shaders); err != nil {
		s.Delete()
		return nil, err
	}
	s.Resize(width, height)
	return s, nil
}

// Reload rebuilds every program from shaders. On error the programs in use
// are kept.
func (s *GameState) Reload(shaders fs.FS) error {
	screen, err := shadersrc.NewProgram(s.dev, shaders, "screen.vert", "screen.frag")
	if err != nil {
		return fmt.Errorf("screen program: %w", err)
	}
	points, err := shadersrc.NewProgram(s.dev, shaders, "particle.vert", "particle.frag")
	if err != nil {
		screen.Delete()
		return fmt.Errorf("particle program: %w", err)
	}
	integrate, err := shadersrc.NewComputeProgram(s.dev, shaders, "particles.comp")
	if err != nil {
		screen.Delete()
		points.Delete()
		return fmt.Errorf("particle compute: %w", err)
	}

	s.deletePrograms()
	s.screenProgram, s.particleProgram, s.integrate = screen, points, integrate

	s.screenProgram.SetInt("background", 0)
	s.particleProgram.SetFloat("pointSize", s.pointSize)
	s.integrate.SetUint("count", uint32(s.particles.Len()))
	return nil
}

// Resize updates the uniforms that depend on the framebuffer size.
func (s *GameState) Resize(width, height int) {
	s.screenProgram.SetVec2("windowSize", mgl32.Vec2{float32(width), float32(height)})
}

// Update advances the simulation by dt seconds.
func (s *GameState) Update(dt float64, keys keyState) {
	s.time += dt

	var dir mgl32.Vec2
	if keys.KeyDown(glfw.KeyLeft) {
		dir[0]--
	}
	if keys.KeyDown(glfw.KeyRight) {
		dir[0]++
	}
	if keys.KeyDown(glfw.KeyDown) {
		dir[1]--
	}
	if keys.KeyDown(glfw.KeyUp) {
		dir[1]++
	}
	s.attractor = s.attractor.Add(dir.Mul(float32(dt) * attractorSpeed))
	s.attractor = mgl32.Vec2{
		mgl32.Clamp(s.attractor[0], -1, 1),
		mgl32.Clamp(s.attractor[1], -1, 1),
	}

	n := s.particles.Len()
	if n == 0 {
		return
	}
	s.integrate.SetFloat("dt", float32(dt))
	s.integrate.SetVec2("attractor", s.attractor)
	s.particles.BindBase(0)
	s.integrate.Dispatch(uint32((n+workgroupSize-1)/workgroupSize), 1, 1)

	if err := s.particles.CopyAllTo(s.particleVerts); err != nil {
		// Both buffers are sized from the same count.
		panic(err)
	}
}

// Render draws the background quad, then the particles on top.
func (s *GameState) Render(d drawer) {
	d.Clear(s.clear[0], s.clear[1], s.clear[2], s.clear[3])

	s.screenProgram.SetFloat("time", float32(s.time))
	s.background.Bind(0)
	d.DrawLayout(s.screenLayout, opengl.Triangles)

	if s.particles.Len() == 0 {
		return
	}
	d.Blended(func() {
		s.particleProgram.Use()
		d.DrawLayout(s.particleLayout, opengl.Points)
	})
}

// Particles reads the particle state back from the device.
func (s *GameState) Particles() ([]particle, error) {
	var out []particle
	err := s.particleVerts.MapRead(func(v []particle) error {
		out = append(out, v...)
		return nil
	})
	return out, err
}

// Delete releases every resource. Layouts go before the buffers they read.
func (s *GameState) Delete() {
	s.deletePrograms()
	for _, l := range []*render.VertexLayout{s.screenLayout, s.particleLayout} {
		if l != nil {
			l.Delete()
		}
	}
	if s.background != nil {
		s.background.Delete()
	}
	if s.screenVBO != nil {
		s.screenVBO.Delete()
	}
	if s.screenIBO != nil {
		s.screenIBO.Delete()
	}
	if s.particles != nil {
		s.particles.Delete()
	}
	if s.particleVerts != nil {
		s.particleVerts.Delete()
	}
}

func (s *GameState) deletePrograms() {
	if s.screenProgram != nil {
		s.screenProgram.Delete()
	}
	if s.particleProgram != nil {
		s.particleProgram.Delete()
	}
	if s.integrate != nil {
		s.integrate.Delete()
	}
}

func spawnParticles(n int, seed uint64) []particle {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	ps := make([]particle, n)
	for i := range ps {
		ps[i] = particle{
			Pos: mgl32.Vec2{rng.Float32()*2 - 1, rng.Float32()*2 - 1},
			Vel: mgl32.Vec2{(rng.Float32() - 0.5) * 0.2, (rng.Float32() - 0.5) * 0.2},
			Color: mgl32.Vec4{
				0.6 + 0.4*rng.Float32(),
				0.3 + 0.4*rng.Float32(),
				0.2,
				1,
			},
		}
	}
	return ps
}

// gradient is the background drawn when no image is configured.
func gradient(w, h int) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(40 + 40*x/w),
				G: uint8(40 + 30*y/h),
				B: uint8(70 + 60*y/h),
				A: 255,
			})
		}
	}
	return img
}
