// Package config handles player configuration loading and management.
package config

import (
	"fmt"
	"slices"
)

// Config holds all player settings.
type Config struct {
	Model   ModelConfig   `yaml:"model"`
	Runtime RuntimeConfig `yaml:"runtime"`
	Render  RenderConfig  `yaml:"render"`
	Audio   AudioConfig   `yaml:"audio"`
	Logging LoggingConfig `yaml:"logging"`
}

// ModelConfig selects the character to load.
type ModelConfig struct {
	Path       string `yaml:"path"`       // model.json settings file or a bare .moc
	IdleGroup  string `yaml:"idle_group"` // motion group played when nothing else is
	Expression string `yaml:"expression"` // expression applied at startup
}

// RuntimeConfig holds frame loop settings.
type RuntimeConfig struct {
	FPS      int     `yaml:"fps"`
	Duration float64 `yaml:"duration"` // seconds to run; 0 runs until interrupted
	Realtime bool    `yaml:"realtime"` // pace frames to wall time
	Seed     uint64  `yaml:"seed"`     // eye blink and idle selection; 0 seeds from time
	Physics  bool    `yaml:"physics"`
	EyeBlink bool    `yaml:"eye_blink"`
	Breath   bool    `yaml:"breath"`
}

// RenderConfig holds snapshot output settings.
type RenderConfig struct {
	Width          int    `yaml:"width"`
	Height         int    `yaml:"height"`
	Background     string `yaml:"background"` // #rrggbb or #rrggbbaa
	OutputDir      string `yaml:"output_dir"`
	Format         string `yaml:"format"`           // png or webp
	SnapshotEvery  int    `yaml:"snapshot_every"`   // frames between snapshots; 0 disables
	MaxTextureSize int    `yaml:"max_texture_size"` // larger textures are downscaled; 0 keeps size
}

// AudioConfig holds motion sound settings.
type AudioConfig struct {
	Enabled bool    `yaml:"enabled"`
	Volume  float32 `yaml:"volume"`
	LipSync bool    `yaml:"lip_sync"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Formats lists the supported snapshot formats.
var Formats = []string{"png", "webp"}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Model: ModelConfig{
			IdleGroup: "idle",
		},
		Runtime: RuntimeConfig{
			FPS:      30,
			Duration: 10,
			Physics:  true,
			EyeBlink: true,
			Breath:   true,
		},
		Render: RenderConfig{
			Width:         512,
			Height:        512,
			Background:    "#ffffff00",
			OutputDir:     "frames",
			Format:        "png",
			SnapshotEvery: 0,
		},
		Audio: AudioConfig{
			Enabled: false,
			Volume:  0.8,
			LipSync: true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}

// Validate reports settings the player cannot run with.
func (c *Config) Validate() error {
	if c.Runtime.FPS <= 0 {
		return fmt.Errorf("runtime.fps must be positive, got %d", c.Runtime.FPS)
	}
	if c.Runtime.Duration < 0 {
		return fmt.Errorf("runtime.duration must not be negative, got %v", c.Runtime.Duration)
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		return fmt.Errorf("render size must be positive, got %dx%d", c.Render.Width, c.Render.Height)
	}
	if !slices.Contains(Formats, c.Render.Format) {
		return fmt.Errorf("render.format %q: want one of %v", c.Render.Format, Formats)
	}
	if c.Render.SnapshotEvery < 0 || c.Render.MaxTextureSize < 0 {
		return fmt.Errorf("render.snapshot_every and render.max_texture_size must not be negative")
	}
	if c.Audio.Volume < 0 || c.Audio.Volume > 1 {
		return fmt.Errorf("audio.volume must be in [0, 1], got %v", c.Audio.Volume)
	}
	return nil
}
