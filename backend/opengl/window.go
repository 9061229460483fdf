package opengl

import (
	"fmt"
	"sort"

	"github.com/go-gl/gl/v4.3-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// WindowOption configures a Window.
type WindowOption func(*windowConfig)

type windowConfig struct {
	width, height int
	title         string
	vsync         bool
	debug         bool
	resizable     bool
	visible       bool
}

// WithSize sets the initial window size in screen coordinates.
func WithSize(width, height int) WindowOption {
	return func(c *windowConfig) {
		c.width = width
		c.height = height
	}
}

// WithTitle sets the window title.
func WithTitle(title string) WindowOption {
	return func(c *windowConfig) { c.title = title }
}

// WithVSync enables or disables waiting for vertical sync on SwapBuffers.
func WithVSync(on bool) WindowOption {
	return func(c *windowConfig) { c.vsync = on }
}

// WithDebugContext requests a debug context and forwards its messages to
// the package logger.
func WithDebugContext(on bool) WindowOption {
	return func(c *windowConfig) { c.debug = on }
}

// WithResizable controls whether the user can resize the window.
func WithResizable(on bool) WindowOption {
	return func(c *windowConfig) { c.resizable = on }
}

// WithHidden creates the window without showing it. Used for offscreen work
// and tests.
func WithHidden() WindowOption {
	return func(c *windowConfig) { c.visible = false }
}

// Window is a GLFW window with a current OpenGL 4.3 core context.
//
// It must be created and used on the thread locked by the caller (see
// runtime.LockOSThread), and only one Window may exist at a time.
type Window struct {
	win *glfw.Window

	keys    map[glfw.Key]bool
	width   int
	height  int
	resized bool
}

// NewWindow initializes GLFW, opens a window, makes its context current and
// loads the GL entry points.
func NewWindow(opts ...WindowOption) (*Window, error) {
	cfg := windowConfig{
		width:     800,
		height:    600,
		title:     "render",
		vsync:     true,
		resizable: true,
		visible:   true,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("glfw init: %w", err)
	}

	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 3)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.Resizable, glfwBool(cfg.resizable))
	glfw.WindowHint(glfw.Visible, glfwBool(cfg.visible))
	glfw.WindowHint(glfw.OpenGLDebugContext, glfwBool(cfg.debug))

	win, err := glfw.CreateWindow(cfg.width, cfg.height, cfg.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("create window: %w", err)
	}
	win.MakeContextCurrent()
	if cfg.vsync {
		glfw.SwapInterval(1)
	} else {
		glfw.SwapInterval(0)
	}

	if err := gl.Init(); err != nil {
		win.Destroy()
		glfw.Terminate()
		return nil, fmt.Errorf("gl init: %w", err)
	}
	if cfg.debug {
		EnableDebugOutput()
	}

	w := &Window{win: win, keys: make(map[glfw.Key]bool)}
	w.width, w.height = win.GetFramebufferSize()
	gl.Viewport(0, 0, int32(w.width), int32(w.height))

	win.SetKeyCallback(w.keyCallback)
	win.SetFramebufferSizeCallback(w.framebufferSizeCallback)

	logger.Debug("window created",
		"width", w.width, "height", w.height,
		"renderer", gl.GoStr(gl.GetString(gl.RENDERER)),
		"version", gl.GoStr(gl.GetString(gl.VERSION)),
	)
	return w, nil
}

func glfwBool(v bool) int {
	if v {
		return glfw.True
	}
	return glfw.False
}

// ShouldClose reports whether the user asked to close the window.
func (w *Window) ShouldClose() bool { return w.win.ShouldClose() }

// SetShouldClose requests (or cancels) closing the window.
func (w *Window) SetShouldClose(v bool) { w.win.SetShouldClose(v) }

// PollEvents processes pending window events, updating the key set and
// framebuffer size.
func (w *Window) PollEvents() { glfw.PollEvents() }

// SwapBuffers presents the frame.
func (w *Window) SwapBuffers() { w.win.SwapBuffers() }

// Time returns seconds since the window was created.
func (w *Window) Time() float64 { return glfw.GetTime() }

// KeyDown reports whether key is held.
func (w *Window) KeyDown(key glfw.Key) bool { return w.keys[key] }

// KeysDown returns the held keys in ascending order.
func (w *Window) KeysDown() []glfw.Key {
	keys := make([]glfw.Key, 0, len(w.keys))
	for k := range w.keys {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// FramebufferSize returns the drawable size in pixels.
func (w *Window) FramebufferSize() (width, height int) { return w.width, w.height }

// Resized reports whether the framebuffer changed size since the last call.
// The viewport has already been updated when it returns true.
func (w *Window) Resized() bool {
	r := w.resized
	w.resized = false
	return r
}

// Close destroys the window and terminates GLFW.
func (w *Window) Close() {
	if w.win == nil {
		return
	}
	w.win.Destroy()
	w.win = nil
	glfw.Terminate()
}

func (w *Window) keyCallback(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
	if key == glfw.KeyUnknown {
		return
	}

	switch action {
	case glfw.Press, glfw.Repeat:
		w.keys[key] = true
	case glfw.Release:
		delete(w.keys, key)
	}
}

func (w *Window) framebufferSizeCallback(_ *glfw.Window, width, height int) {
	// Minimized windows report zero; keep the last real size.
	if width == 0 || height == 0 {
		return
	}
	w.width, w.height = width, height
	w.resized = true
	gl.Viewport(0, 0, int32(width), int32(height))
}
