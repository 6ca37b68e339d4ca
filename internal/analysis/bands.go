package analysis

import (
	"fmt"
	"math"
)

// magnitudeRange is the divisor used to normalise 8-bit magnitudes.
const magnitudeRange = 256.0

// BandConfig holds the frequencies (Hz) where the low, mid and high bands start.
type BandConfig struct {
	Low  float64 `json:"low_hz"`
	Mid  float64 `json:"mid_hz"`
	High float64 `json:"high_hz"`
}

// DefaultBandConfig returns the stock band split: 10 Hz, 150 Hz, 9 kHz.
func DefaultBandConfig() BandConfig {
	return BandConfig{Low: 10, Mid: 150, High: 9000}
}

// Validate rejects non-positive or non-finite thresholds. Misordered
// thresholds are allowed; they produce zero energy for the inverted band.
func (c BandConfig) Validate() error {
	for _, f := range []float64{c.Low, c.Mid, c.High} {
		if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("band thresholds must be positive, got %+v", c)
		}
	}
	return nil
}

// Indices returns the magnitude indices where each band starts, plus the last
// index of the high band.
func (c BandConfig) Indices(sampleRate, bufferLength int) (low, mid, high, end int) {
	low = binIndex(c.Low, sampleRate, bufferLength)
	mid = binIndex(c.Mid, sampleRate, bufferLength)
	high = binIndex(c.High, sampleRate, bufferLength)
	end = bufferLength - 1
	return low, mid, high, end
}

// Bands holds normalised band energies for one frame. Values are nominally
// in [0, 1]; SmoothedLow is filled in by a Smoother.
type Bands struct {
	Low         float64
	Mid         float64
	High        float64
	SmoothedLow float64
}

// ComputeBands averages magnitudes over each band and normalises the result
// by 256.
//
// Each band averages the closed index range [start, end], so the bin where
// one band ends is also counted as the first bin of the next. Empty or
// inverted ranges yield zero energy for that band.
func ComputeBands(magnitudes []uint8, sampleRate int, cfg BandConfig, bufferLength int) Bands {
	if bufferLength <= 0 || sampleRate <= 0 || len(magnitudes) == 0 {
		return Bands{}
	}
	low, mid, high, end := cfg.Indices(sampleRate, bufferLength)
	return Bands{
		Low:  average(magnitudes, low, mid) / magnitudeRange,
		Mid:  average(magnitudes, mid, high) / magnitudeRange,
		High: average(magnitudes, high, end) / magnitudeRange,
	}
}

func binIndex(hz float64, sampleRate, bufferLength int) int {
	idx := math.Floor(hz * float64(bufferLength) / float64(sampleRate))
	if math.IsNaN(idx) || idx > math.MaxInt32 {
		return math.MaxInt32
	}
	if idx < math.MinInt32 {
		return math.MinInt32
	}
	return int(idx)
}

// average returns the mean of m[start..end] inclusive.
func average(m []uint8, start, end int) float64 {
	if start < 0 {
		start = 0
	}
	if end >= len(m) {
		end = len(m) - 1
	}
	if end < start {
		return 0
	}
	var sum int
	for _, v := range m[start : end+1] {
		sum += int(v)
	}
	return float64(sum) / float64(end-start+1)
}

// Smoother keeps an exponentially smoothed low-band value across frames.
type Smoother struct {
	decay float64
	low   float64
}

// DefaultSmootherDecay is the weight given to the previous smoothed value.
const DefaultSmootherDecay = 0.3

// NewSmoother creates a Smoother. decay is clamped to [0, 1].
func NewSmoother(decay float64) *Smoother {
	return &Smoother{decay: math.Max(0, math.Min(1, decay))}
}

// Apply folds b.Low into the running value and returns b with SmoothedLow set.
func (s *Smoother) Apply(b Bands) Bands {
	s.low = s.low*s.decay + b.Low*(1-s.decay)
	b.SmoothedLow = s.low
	return b
}

// Reset drops the smoothed value back to zero.
func (s *Smoother) Reset() {
	s.low = 0
}
