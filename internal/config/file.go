package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/iburimskiy/show-engine/internal/show"
)

// Config holds the runtime configuration of the show.
type Config struct {
	// Mode is the mode activated at startup (and on file changes).
	Mode string `yaml:"mode"`
	// Fallback is tried when Mode fails to start.
	Fallback string `yaml:"fallback"`

	Window    WindowConfig    `yaml:"window"`
	Audio     AudioConfig     `yaml:"audio"`
	Particles ParticlesConfig `yaml:"particles"`
	Input     InputConfig     `yaml:"input"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type WindowConfig struct {
	Width  int    `yaml:"width"`
	Height int    `yaml:"height"`
	Title  string `yaml:"title"`
}

// AudioConfig selects and tunes the audio input.
type AudioConfig struct {
	Source  string  `yaml:"source"` // file, synth
	Path    string  `yaml:"path"`
	Pick    bool    `yaml:"pick"`
	FFTSize int     `yaml:"fft_size"`
	Bin     int     `yaml:"bin"`
	MinDB   float64 `yaml:"min_db"`
	MaxDB   float64 `yaml:"max_db"`
}

type ParticlesConfig struct {
	Count   int    `yaml:"count"`
	Workers int    `yaml:"workers"` // 0 = GOMAXPROCS
	Seed    uint64 `yaml:"seed"`
}

type InputConfig struct {
	Orientation bool `yaml:"orientation"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

const (
	AudioSourceFile  = "file"
	AudioSourceSynth = "synth"
)

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Mode:     "particle-field",
		Fallback: "glyph-rain",
		Window: WindowConfig{
			Width:  WindowWidth,
			Height: WindowHeight,
			Title:  WindowTitle,
		},
		Audio: AudioConfig{
			Source:  AudioSourceSynth,
			FFTSize: FFTSize,
			Bin:     GainBin,
			MinDB:   MinDecibels,
			MaxDB:   MaxDecibels,
		},
		Particles: ParticlesConfig{
			Count: ParticleCount,
			Seed:  ParticleSeed,
		},
		Input: InputConfig{
			Orientation: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads a YAML file on top of the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating parent directories.
func (c Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate checks mode names and the ranges that would otherwise break
// analysis or layout. An empty fallback disables the fallback policy.
func (c Config) Validate() error {
	if _, ok := show.ParseName(c.Mode); !ok {
		return fmt.Errorf("mode %q: %w", c.Mode, show.ErrUnknownMode)
	}
	if _, ok := show.ParseName(c.Fallback); !ok && c.Fallback != "" {
		return fmt.Errorf("fallback %q: %w", c.Fallback, show.ErrUnknownMode)
	}
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return fmt.Errorf("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}
	switch c.Audio.Source {
	case AudioSourceFile, AudioSourceSynth:
	default:
		return fmt.Errorf("unknown audio source %q", c.Audio.Source)
	}
	if n := c.Audio.FFTSize; n < 32 || n&(n-1) != 0 {
		return fmt.Errorf("fft_size %d must be a power of two >= 32", n)
	}
	if c.Audio.Bin < 0 || c.Audio.Bin > c.Audio.FFTSize/2 {
		return fmt.Errorf("bin %d outside 0..%d", c.Audio.Bin, c.Audio.FFTSize/2)
	}
	if c.Audio.MinDB >= c.Audio.MaxDB {
		return fmt.Errorf("min_db %.1f must be below max_db %.1f", c.Audio.MinDB, c.Audio.MaxDB)
	}
	if c.Particles.Count <= 0 {
		return fmt.Errorf("particle count %d must be positive", c.Particles.Count)
	}
	if c.Particles.Workers < 0 {
		return fmt.Errorf("particle workers %d must not be negative", c.Particles.Workers)
	}
	return nil
}
