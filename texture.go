package render

import (
	"fmt"
	"image"

	"golang.org/x/image/draw"
)

// TextureOption configures a Texture.
type TextureOption func(*textureConfig)

type textureConfig struct {
	min, mag Filter
}

// WithFilter sets the minification and magnification filters.
// The default is Linear for both.
func WithFilter(min, mag Filter) TextureOption {
	return func(c *textureConfig) {
		c.min = min
		c.mag = mag
	}
}

// Texture is a two-dimensional device texture.
type Texture struct {
	dev           Device
	id            uint32
	width, height int
	format        TextureFormat
}

// NewTexture2D uploads img as an RGBA8 texture. Images in any other color
// model are converted first.
func NewTexture2D(dev Device, img image.Image, opts ...TextureOption) *Texture {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*b.Dx() || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	return newTexture(dev, RGBA8, b.Dx(), b.Dy(), rgba.Pix, opts)
}

// NewStorageTexture allocates an uninitialized texture for compute passes to
// write through image bindings.
func NewStorageTexture(dev Device, width, height int, format TextureFormat, opts ...TextureOption) *Texture {
	return newTexture(dev, format, width, height, nil, opts)
}

func newTexture(dev Device, format TextureFormat, width, height int, pix []byte, opts []TextureOption) *Texture {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("render: texture size %dx%d", width, height))
	}
	cfg := textureConfig{min: Linear, mag: Linear}
	for _, opt := range opts {
		opt(&cfg)
	}

	id := dev.GenTexture()
	if id == 0 {
		panic(&DeviceError{Op: "gen texture", Reason: "no handle allocated"})
	}

	dev.BindTexture(0, id)
	dev.TexFilter(cfg.min, cfg.mag)
	dev.TexImage2D(format, width, height, pix)
	dev.BindTexture(0, 0)

	logger.Debug("texture created", "id", id, "width", width, "height", height)
	return &Texture{dev: dev, id: id, width: width, height: height, format: format}
}

// ID returns the device handle, or 0 once deleted.
func (t *Texture) ID() uint32 { return t.id }

// Size returns the texture dimensions in texels.
func (t *Texture) Size() (width, height int) { return t.width, t.height }

// Format returns the internal format.
func (t *Texture) Format() TextureFormat { return t.format }

// Bind binds the texture for sampling on texture unit unit.
func (t *Texture) Bind(unit uint32) {
	t.mustLive("bind")
	t.dev.BindTexture(unit, t.id)
}

// BindImage binds the texture to image unit unit for load/store access from
// shaders.
func (t *Texture) BindImage(unit uint32, access ImageAccess) {
	t.mustLive("bind image")
	t.dev.BindImageTexture(unit, t.id, access, t.format)
}

// Delete releases the texture handle. Calling it again does nothing.
func (t *Texture) Delete() {
	if t.id == 0 {
		return
	}
	t.dev.DeleteTexture(t.id)
	logger.Debug("texture deleted", "id", t.id)
	t.id = 0
}

func (t *Texture) mustLive(op string) {
	if t.id == 0 {
		panic(fmt.Sprintf("render: %s on deleted texture", op))
	}
}
