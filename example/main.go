// Example renders a full-screen background quad and a compute-driven
// particle system with the render package.
//
// Prerequisites:
//
//	Install devbox: https://www.jetify.com/devbox
//	devbox shell              # enter the dev environment (provides Go + OpenGL/X11 headers)
//	go run ./example/         # run this example
//
// Flags:
//
//	-config path   TOML file overriding the embedded config.toml
//	-verbose       log resource lifetimes and driver debug output
//	-screenshot f  save frame -frames as a JPEG to f and exit
//
// Arrow keys move the particle attractor; Escape quits.
package main

import (
	"embed"
	"flag"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io/fs"
	"log/slog"
	"os"
	"runtime"
	"time"

	"github.com/go-gl/glfw/v3.3/glfw"
	_ "golang.org/x/image/bmp"

	"github.com/go-theft-auto/render"
	"github.com/go-theft-auto/render/backend/opengl"
	"github.com/go-theft-auto/render/shadersrc"
)

const fps = 60

//go:embed shaders
var embedded embed.FS

func init() {
	// GLFW must run on the main thread.
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "TOML config file")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	screenshot := flag.String("screenshot", "", "save a JPEG of one frame and exit")
	frames := flag.Int("frames", 120, "frame to capture with -screenshot")
	flag.Parse()

	render.SetVerbose(*verbose)

	if err := run(*configPath, *screenshot, *frames); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, screenshot string, frames int) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	win, err := opengl.NewWindow(
		opengl.WithSize(cfg.Window.Width, cfg.Window.Height),
		opengl.WithTitle(cfg.Window.Title),
		opengl.WithVSync(cfg.Window.VSync),
		opengl.WithDebugContext(cfg.Window.Debug || render.Verbose()),
	)
	if err != nil {
		return err
	}
	defer win.Close()

	shaders, err := shaderFS(cfg.Shaders.Dir)
	if err != nil {
		return err
	}
	background, err := loadImage(cfg.Background.Image)
	if err != nil {
		return err
	}

	dev := opengl.NewDevice()
	w, h := win.FramebufferSize()
	state, err := newGameState(dev, cfg, shaders, background, w, h)
	if err != nil {
		return err
	}
	defer state.Delete()

	var watcher *shadersrc.Watcher
	if cfg.Shaders.Dir != "" {
		watcher, err = shadersrc.NewWatcher(cfg.Shaders.Dir)
		if err != nil {
			return err
		}
		defer watcher.Close()
	}

	g := &game{
		win:        win,
		dev:        dev,
		state:      state,
		watcher:    watcher,
		shaders:    shaders,
		screenshot: screenshot,
		frames:     frames,
	}
	return g.loop()
}

type game struct {
	win     *opengl.Window
	dev     *opengl.Device
	state   *GameState
	watcher *shadersrc.Watcher
	shaders fs.FS

	screenshot string
	frames     int
	frame      int
}

// loop runs update and render at a fixed rate until the window closes.
func (g *game) loop() error {
	const frameTime = time.Second / fps
	last := time.Now()

	for !g.win.ShouldClose() {
		g.handleEvents()

		now := time.Now()
		delta := now.Sub(last)
		if delta < frameTime {
			time.Sleep(frameTime - delta)
			continue
		}
		last = now

		g.state.Update(delta.Seconds(), g.win)
		g.state.Render(g.dev)
		g.frame++

		if g.screenshot != "" && g.frame >= g.frames {
			return g.capture()
		}
		g.win.SwapBuffers()

		if err := g.dev.Err(); err != nil {
			return fmt.Errorf("frame %d: %w", g.frame, err)
		}
	}
	return nil
}

// capture writes the back buffer to the screenshot file.
func (g *game) capture() error {
	w, h := g.win.FramebufferSize()
	img := g.dev.ReadPixels(w, h)

	f, err := os.Create(g.screenshot)
	if err != nil {
		return fmt.Errorf("create screenshot: %w", err)
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 90}); err != nil {
		return fmt.Errorf("encode screenshot: %w", err)
	}
	slog.Info("screenshot saved", "path", g.screenshot, "frame", g.frame)
	return nil
}

func (g *game) handleEvents() {
	g.win.PollEvents()

	if g.win.KeyDown(glfw.KeyEscape) {
		g.win.SetShouldClose(true)
	}
	if g.win.Resized() {
		w, h := g.win.FramebufferSize()
		g.state.Resize(w, h)
	}

	if g.watcher == nil {
		return
	}
	if changed := g.watcher.Changed(); len(changed) > 0 {
		if err := g.state.Reload(g.shaders); err != nil {
			slog.Warn("shader reload failed", "files", changed, "error", err)
			return
		}
		w, h := g.win.FramebufferSize()
		g.state.Resize(w, h)
		slog.Info("shaders reloaded", "files", changed)
	}
}

func shaderFS(dir string) (fs.FS, error) {
	if dir != "" {
		return os.DirFS(dir), nil
	}
	sub, err := fs.Sub(embedded, "shaders")
	if err != nil {
		return nil, fmt.Errorf("embedded shaders: %w", err)
	}
	return sub, nil
}

// loadImage decodes a PNG or BMP file. An empty path returns nil.
func loadImage(path string) (image.Image, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open background: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode background %s: %w", path, err)
	}
	return img, nil
}
