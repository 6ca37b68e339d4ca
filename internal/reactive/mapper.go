// Package reactive maps band energies onto animation parameters.
package reactive

import (
	"fmt"
	"math"

	"github.com/olivier-w/pulsecloud/internal/analysis"
)

// Input ranges of the mapping curves.
const (
	highInMin, highInMax = 0, 0.6
	midInMin, midInMax   = 0, 0.6
	lowInMin, lowInMax   = 0.6, 1.0
)

// Vec3 is a per-axis value.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Scale returns v multiplied component-wise by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Parameters are the per-frame values handed to the renderer.
type Parameters struct {
	PointSize  float64
	Amplitude  float64
	OffsetGain float64
	TimeDelta  float64
	Phase      float64
	Rotation   Vec3 // per-frame rotation increments
	Glow       float64
}

// Curves holds the fixed constants of every mapping curve.
type Curves struct {
	SizeMin       float64 `json:"size_min"`
	SizeMax       float64 `json:"size_max"`
	AmpMin        float64 `json:"amplitude_min"`
	AmpMax        float64 `json:"amplitude_max"`
	GainFactor    float64 `json:"gain_factor"`
	DeltaMin      float64 `json:"delta_min"`
	DeltaMax      float64 `json:"delta_max"`
	PhaseScale    float64 `json:"phase_scale"`
	RotationScale Vec3    `json:"rotation_scale"`
}

// DefaultCurves returns the stock mapping constants.
func DefaultCurves() Curves {
	return Curves{
		SizeMin:       1.5,
		SizeMax:       4.5,
		AmpMin:        0.8,
		AmpMax:        1.6,
		GainFactor:    0.6,
		DeltaMin:      0.05,
		DeltaMax:      0.25,
		PhaseScale:    1,
		RotationScale: Vec3{X: 0.1, Y: 0.1, Z: 0.02},
	}
}

// Validate checks curve ordering and that phase can only move forward.
func (c Curves) Validate() error {
	if c.SizeMin > c.SizeMax {
		return fmt.Errorf("size min %g exceeds size max %g", c.SizeMin, c.SizeMax)
	}
	if c.AmpMin > c.AmpMax {
		return fmt.Errorf("amplitude min %g exceeds amplitude max %g", c.AmpMin, c.AmpMax)
	}
	if c.DeltaMin < 0 || c.DeltaMin > c.DeltaMax {
		return fmt.Errorf("time delta range [%g, %g] must be non-negative and ordered", c.DeltaMin, c.DeltaMax)
	}
	if c.PhaseScale < 0 {
		return fmt.Errorf("phase scale must be non-negative, got %g", c.PhaseScale)
	}
	return nil
}

// Map computes the parameters for one frame and the advanced phase.
func (c Curves) Map(b analysis.Bands, previousPhase float64) (Parameters, float64) {
	delta := Clamp(Remap(b.Low, lowInMin, lowInMax, c.DeltaMin, c.DeltaMax), c.DeltaMin, c.DeltaMax)
	phase := previousPhase + math.Max(0, delta*c.PhaseScale)

	p := Parameters{
		PointSize:  Clamp(Remap(b.High, highInMin, highInMax, c.SizeMin, c.SizeMax), c.SizeMin, c.SizeMax),
		Amplitude:  Remap(b.Mid, midInMin, midInMax, c.AmpMin, c.AmpMax),
		OffsetGain: b.High * c.GainFactor,
		TimeDelta:  delta,
		Phase:      phase,
		Rotation:   c.RotationScale.Scale(delta),
		Glow:       b.SmoothedLow,
	}
	return p, phase
}

// Rest returns zero-energy parameters that leave phase and rotation still.
func (c Curves) Rest(phase float64) Parameters {
	return Parameters{
		PointSize: c.SizeMin,
		Amplitude: c.AmpMin,
		Phase:     phase,
	}
}

// Remap linearly maps x from [inMin, inMax] onto [outMin, outMax] without
// clamping. A degenerate input range maps everything to outMin.
func Remap(x, inMin, inMax, outMin, outMax float64) float64 {
	if inMax == inMin {
		return outMin
	}
	return outMin + (x-inMin)*(outMax-outMin)/(inMax-inMin)
}

// Clamp limits x to [lo, hi]; the bounds may be given in either order.
func Clamp(x, lo, hi float64) float64 {
	if lo > hi {
		lo, hi = hi, lo
	}
	switch {
	case math.IsNaN(x), x < lo:
		return lo
	case x > hi:
		return hi
	}
	return x
}

// Mapper carries the running phase between frames.
type Mapper struct {
	curves Curves
	phase  float64
}

// NewMapper creates a Mapper starting at phase zero.
func NewMapper(c Curves) *Mapper {
	return &Mapper{curves: c}
}

// Next maps b and advances the phase.
func (m *Mapper) Next(b analysis.Bands) Parameters {
	p, phase := m.curves.Map(b, m.phase)
	m.phase = phase
	return p
}

// Rest returns idle parameters at the current phase without advancing it.
func (m *Mapper) Rest() Parameters {
	return m.curves.Rest(m.phase)
}

// Phase returns the accumulated phase.
func (m *Mapper) Phase() float64 {
	return m.phase
}
