package main

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

//go:embed config.toml
var defaultConfig []byte

// Config is the example's configuration file.
type Config struct {
	Window     WindowConfig     `toml:"window"`
	Particles  ParticleConfig   `toml:"particles"`
	Background BackgroundConfig `toml:"background"`
	Shaders    ShaderConfig     `toml:"shaders"`
}

// WindowConfig sizes and titles the window and picks its context flags.
type WindowConfig struct {
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Title  string `toml:"title"`
	VSync  bool   `toml:"vsync"`
	Debug  bool   `toml:"debug"`
}

// ParticleConfig controls the compute-driven particle system.
type ParticleConfig struct {
	Count     int     `toml:"count"`
	PointSize float32 `toml:"point_size"`
	Seed      uint64  `toml:"seed"`
}

// BackgroundConfig names the background image and the clear color.
type BackgroundConfig struct {
	Image string     `toml:"image"`
	Clear [4]float32 `toml:"clear"`
}

// ShaderConfig points at an on-disk shader directory to load and watch
// instead of the embedded shaders.
type ShaderConfig struct {
	// Dir, when set, replaces the embedded shaders and enables hot reload.
	Dir string `toml:"dir"`
}

// loadConfig returns the embedded defaults overlaid with the file at path.
// An empty path returns the defaults.
func loadConfig(path string) (Config, error) {
	var cfg Config
	if err := decodeConfig(defaultConfig, &cfg); err != nil {
		return Config{}, fmt.Errorf("default config: %w", err)
	}
	if path == "" {
		return cfg, cfg.validate()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := decodeConfig(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, cfg.validate()
}

func decodeConfig(data []byte, cfg *Config) error {
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

func (c Config) validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size %dx%d", c.Window.Width, c.Window.Height)
	}
	if c.Particles.Count < 0 {
		return fmt.Errorf("particle count %d", c.Particles.Count)
	}
	return nil
}
