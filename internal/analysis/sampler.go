package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"
)

// Analyser defaults, matching the byte spectrum a browser analyser node
// produces for a 1024-point transform.
const (
	DefaultFFTSize   = 1024
	DefaultSmoothing = 0.8
	DefaultMinDB     = -100.0
	DefaultMaxDB     = -30.0
)

// SamplerConfig configures a Sampler.
type SamplerConfig struct {
	FFTSize   int     `json:"fft_size"`
	Smoothing float64 `json:"smoothing_time_constant"`
	MinDB     float64 `json:"min_decibels"`
	MaxDB     float64 `json:"max_decibels"`
}

// DefaultSamplerConfig returns the analyser defaults.
func DefaultSamplerConfig() SamplerConfig {
	return SamplerConfig{
		FFTSize:   DefaultFFTSize,
		Smoothing: DefaultSmoothing,
		MinDB:     DefaultMinDB,
		MaxDB:     DefaultMaxDB,
	}
}

// Validate reports whether the configuration describes a usable analyser.
func (c SamplerConfig) Validate() error {
	if c.FFTSize < 32 || c.FFTSize > 32768 || c.FFTSize&(c.FFTSize-1) != 0 {
		return fmt.Errorf("fft size must be a power of two in [32, 32768], got %d", c.FFTSize)
	}
	if c.Smoothing < 0 || c.Smoothing >= 1 {
		return fmt.Errorf("smoothing time constant must be in [0, 1), got %g", c.Smoothing)
	}
	if c.MinDB >= c.MaxDB {
		return fmt.Errorf("min decibels (%g) must be below max decibels (%g)", c.MinDB, c.MaxDB)
	}
	return nil
}

// Sampler turns a window of time-domain samples into a byte magnitude
// spectrum of FFTSize/2 bins: Blackman window, real FFT, temporal smoothing,
// then decibel scaling into [0, 255].
type Sampler struct {
	cfg      SamplerConfig
	fft      *fourier.FFT
	input    []float64
	coeffs   []complex128
	smoothed []float64
}

// NewSampler creates a Sampler. cfg must be valid.
func NewSampler(cfg SamplerConfig) *Sampler {
	n := cfg.FFTSize
	return &Sampler{
		cfg:      cfg,
		fft:      fourier.NewFFT(n),
		input:    make([]float64, n),
		coeffs:   make([]complex128, n/2+1),
		smoothed: make([]float64, n/2),
	}
}

// BinCount returns the length of every spectrum Sample produces.
func (s *Sampler) BinCount() int {
	return s.cfg.FFTSize / 2
}

// Sample computes the magnitude spectrum of the most recent FFTSize frames.
// Shorter input is zero-padded at the front. It returns nil when frames is
// empty, i.e. when there is no live signal to read.
func (s *Sampler) Sample(frames []float64) []uint8 {
	if len(frames) == 0 {
		return nil
	}
	n := s.cfg.FFTSize
	if len(frames) > n {
		frames = frames[len(frames)-n:]
	}
	clear(s.input)
	copy(s.input[n-len(frames):], frames)
	window.Blackman(s.input)

	s.coeffs = s.fft.Coefficients(s.coeffs, s.input)

	out := make([]uint8, n/2)
	tau := s.cfg.Smoothing
	scale := 255.0 / (s.cfg.MaxDB - s.cfg.MinDB)
	for k := range out {
		c := s.coeffs[k]
		mag := math.Hypot(real(c), imag(c)) / float64(n)
		s.smoothed[k] = tau*s.smoothed[k] + (1-tau)*mag
		out[k] = toByte(scale * (decibels(s.smoothed[k]) - s.cfg.MinDB))
	}
	return out
}

// Reset clears the smoothing history.
func (s *Sampler) Reset() {
	clear(s.smoothed)
}

func decibels(v float64) float64 {
	if v <= 0 {
		return math.Inf(-1)
	}
	return 20 * math.Log10(v)
}

func toByte(v float64) uint8 {
	switch {
	case math.IsNaN(v), v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return uint8(math.Floor(v))
}
