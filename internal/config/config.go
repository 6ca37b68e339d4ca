// Package config loads the visualizer's settings from a JSON file.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/olivier-w/pulsecloud/internal/analysis"
	"github.com/olivier-w/pulsecloud/internal/reactive"
)

// Configuration defaults.
const (
	DefaultVolume = 0.5
	DefaultFPS    = 60
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds all settings. Zero-valued sections in a file keep their
// defaults.
type Config struct {
	Track              string                 `json:"track"`
	Volume             float64                `json:"volume"`
	Loop               bool                   `json:"loop"`
	FPS                int                    `json:"fps"`
	LoadTimeoutSeconds float64                `json:"load_timeout_seconds,omitempty"`
	LogPath            string                 `json:"log_path,omitempty"`
	Sampler            analysis.SamplerConfig `json:"analyser"`
	Bands              analysis.BandConfig    `json:"bands"`
	SmootherDecay      float64                `json:"smoother_decay"`
	Curves             reactive.Curves        `json:"curves"`
}

// New creates a Config with default values.
func New() *Config {
	return &Config{
		Volume:        DefaultVolume,
		Loop:          true,
		FPS:           DefaultFPS,
		Sampler:       analysis.DefaultSamplerConfig(),
		Bands:         analysis.DefaultBandConfig(),
		SmootherDecay: analysis.DefaultSmootherDecay,
		Curves:        reactive.DefaultCurves(),
	}
}

// Load reads path over the defaults. A missing file leaves the defaults in
// place.
func Load(path string) (*Config, error) {
	c := New()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	c.applyDefaults()
	return c, nil
}

// applyDefaults restores defaults for sections a file set to zero.
func (c *Config) applyDefaults() {
	if c.FPS == 0 {
		c.FPS = DefaultFPS
	}
	if c.Sampler == (analysis.SamplerConfig{}) {
		c.Sampler = analysis.DefaultSamplerConfig()
	}
	if c.Bands == (analysis.BandConfig{}) {
		c.Bands = analysis.DefaultBandConfig()
	}
	if c.Curves == (reactive.Curves{}) {
		c.Curves = reactive.DefaultCurves()
	}
}

// LoadTimeout returns the decode timeout, or zero for none.
func (c *Config) LoadTimeout() time.Duration {
	return time.Duration(c.LoadTimeoutSeconds * float64(time.Second))
}

// Validate checks every section.
func (c *Config) Validate() error {
	if c.Track == "" {
		return fmt.Errorf("%w: no track configured", ErrInvalid)
	}
	if c.Volume < 0 || c.Volume > 1 {
		return fmt.Errorf("%w: volume must be in [0, 1], got %g", ErrInvalid, c.Volume)
	}
	if c.FPS < 1 || c.FPS > 240 {
		return fmt.Errorf("%w: fps must be in [1, 240], got %d", ErrInvalid, c.FPS)
	}
	if c.LoadTimeoutSeconds < 0 {
		return fmt.Errorf("%w: load timeout must not be negative", ErrInvalid)
	}
	if c.SmootherDecay < 0 || c.SmootherDecay > 1 {
		return fmt.Errorf("%w: smoother decay must be in [0, 1], got %g", ErrInvalid, c.SmootherDecay)
	}
	if err := c.Sampler.Validate(); err != nil {
		return fmt.Errorf("%w: analyser: %w", ErrInvalid, err)
	}
	if err := c.Bands.Validate(); err != nil {
		return fmt.Errorf("%w: bands: %w", ErrInvalid, err)
	}
	if err := c.Curves.Validate(); err != nil {
		return fmt.Errorf("%w: curves: %w", ErrInvalid, err)
	}
	return nil
}
