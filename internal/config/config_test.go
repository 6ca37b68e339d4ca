package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.FPS != DefaultFPS || c.Volume != DefaultVolume || !c.Loop {
		t.Fatalf("expected defaults, got %+v", c)
	}
	if c.Sampler.FFTSize != 1024 {
		t.Fatalf("expected fft size 1024, got %d", c.Sampler.FFTSize)
	}
}

func TestLoadOverlaysFile(t *testing.T) {
	path := writeConfig(t, `{
		"track": "song.ogg",
		"volume": 0.8,
		"fps": 30,
		"load_timeout_seconds": 2.5,
		"bands": {"low_hz": 20, "mid_hz": 250, "high_hz": 6000}
	}`)
	c, err := Load(path)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.Track != "song.ogg" || c.Volume != 0.8 || c.FPS != 30 {
		t.Fatalf("expected file values, got %+v", c)
	}
	if c.Bands.Mid != 250 {
		t.Fatalf("expected mid 250, got %v", c.Bands.Mid)
	}
	if c.Curves.SizeMax != 4.5 {
		t.Fatalf("expected default curves kept, got %+v", c.Curves)
	}
	if got := c.LoadTimeout(); got != 2500*time.Millisecond {
		t.Fatalf("expected 2.5s timeout, got %v", got)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestLoadRejectsMalformedJSON(t *testing.T) {
	if _, err := Load(writeConfig(t, `{"fps": `)); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"no track", func(c *Config) { c.Track = "" }},
		{"volume", func(c *Config) { c.Volume = 1.5 }},
		{"fps", func(c *Config) { c.FPS = 0 }},
		{"timeout", func(c *Config) { c.LoadTimeoutSeconds = -1 }},
		{"decay", func(c *Config) { c.SmootherDecay = 2 }},
		{"fft size", func(c *Config) { c.Sampler.FFTSize = 1000 }},
		{"decibels", func(c *Config) { c.Sampler.MinDB = -20 }},
		{"band", func(c *Config) { c.Bands.High = 0 }},
		{"curves", func(c *Config) { c.Curves.SizeMin = 10 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New()
			c.Track = "track.mp3"
			tt.mutate(c)
			err := c.Validate()
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
}
