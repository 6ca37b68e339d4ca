package analysis

import (
	"math"
	"testing"
)

func uniform(n int, v uint8) []uint8 {
	m := make([]uint8, n)
	for i := range m {
		m[i] = v
	}
	return m
}

func TestBandIndicesForDefaultConfig(t *testing.T) {
	low, mid, high, end := DefaultBandConfig().Indices(44100, 512)
	if low != 0 || mid != 1 || high != 104 || end != 511 {
		t.Fatalf("expected indices 0/1/104/511, got %d/%d/%d/%d", low, mid, high, end)
	}
}

func TestComputeBandsUniformHalfScale(t *testing.T) {
	got := ComputeBands(uniform(512, 128), 44100, DefaultBandConfig(), 512)
	for name, v := range map[string]float64{"low": got.Low, "mid": got.Mid, "high": got.High} {
		if math.Abs(v-0.5) > 1e-9 {
			t.Fatalf("expected %s band 0.5, got %v", name, v)
		}
	}
}

func TestComputeBandsUniformValueNormalisesBy256(t *testing.T) {
	configs := []struct {
		name       string
		cfg        BandConfig
		sampleRate int
	}{
		{"default 44.1k", DefaultBandConfig(), 44100},
		{"default 48k", DefaultBandConfig(), 48000},
		{"wide", BandConfig{Low: 40, Mid: 400, High: 4000}, 22050},
	}
	for _, tc := range configs {
		for _, v := range []uint8{0, 1, 77, 200, 255} {
			got := ComputeBands(uniform(512, v), tc.sampleRate, tc.cfg, 512)
			want := float64(v) / 256
			if math.Abs(got.Low-want) > 1e-9 || math.Abs(got.Mid-want) > 1e-9 || math.Abs(got.High-want) > 1e-9 {
				t.Fatalf("%s v=%d: expected all bands %v, got %+v", tc.name, v, want, got)
			}
		}
	}
}

func TestComputeBandsClosedRangeCountsBoundaryBinTwice(t *testing.T) {
	// low = [0, 1], mid = [1, 104]; bin 1 belongs to both averages.
	m := make([]uint8, 512)
	m[1] = 200
	got := ComputeBands(m, 44100, DefaultBandConfig(), 512)
	if want := 100.0 / 256; math.Abs(got.Low-want) > 1e-9 {
		t.Fatalf("expected low %v, got %v", want, got.Low)
	}
	if want := 200.0 / 104 / 256; math.Abs(got.Mid-want) > 1e-9 {
		t.Fatalf("expected mid %v, got %v", want, got.Mid)
	}
	if got.High != 0 {
		t.Fatalf("expected high 0, got %v", got.High)
	}
}

func TestComputeBandsInvertedRangesYieldZero(t *testing.T) {
	cfg := BandConfig{Low: 9000, Mid: 150, High: 10}
	got := ComputeBands(uniform(512, 100), 44100, cfg, 512)
	if got.Low != 0 || got.Mid != 0 {
		t.Fatalf("expected inverted low and mid bands to be 0, got %+v", got)
	}
	if want := 100.0 / 256; math.Abs(got.High-want) > 1e-9 {
		t.Fatalf("expected high %v, got %v", want, got.High)
	}
}

func TestComputeBandsDegenerateInputs(t *testing.T) {
	tests := []struct {
		name         string
		m            []uint8
		sampleRate   int
		bufferLength int
	}{
		{"zero buffer length", uniform(512, 90), 44100, 0},
		{"zero sample rate", uniform(512, 90), 0, 512},
		{"empty magnitudes", nil, 44100, 512},
	}
	for _, tc := range tests {
		got := ComputeBands(tc.m, tc.sampleRate, DefaultBandConfig(), tc.bufferLength)
		if got != (Bands{}) {
			t.Fatalf("%s: expected zero bands, got %+v", tc.name, got)
		}
	}
}

func TestComputeBandsLowSampleRateNeverNaN(t *testing.T) {
	for _, sr := range []int{1, 100, 1000, 8000} {
		got := ComputeBands(uniform(512, 255), sr, DefaultBandConfig(), 512)
		for _, v := range []float64{got.Low, got.Mid, got.High} {
			if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
				t.Fatalf("sample rate %d: expected finite non-negative bands, got %+v", sr, got)
			}
		}
	}
}

func TestBandConfigValidate(t *testing.T) {
	if err := DefaultBandConfig().Validate(); err != nil {
		t.Fatalf("expected default config to validate, got %v", err)
	}
	if err := (BandConfig{Low: 0, Mid: 150, High: 9000}).Validate(); err == nil {
		t.Fatal("expected zero threshold to be rejected")
	}
	if err := (BandConfig{Low: 10, Mid: math.NaN(), High: 9000}).Validate(); err == nil {
		t.Fatal("expected NaN threshold to be rejected")
	}
}

func TestSmootherTracksLowBand(t *testing.T) {
	s := NewSmoother(0.5)
	b := s.Apply(Bands{Low: 1})
	if b.SmoothedLow != 0.5 {
		t.Fatalf("expected smoothed low 0.5, got %v", b.SmoothedLow)
	}
	b = s.Apply(Bands{Low: 1})
	if b.SmoothedLow != 0.75 {
		t.Fatalf("expected smoothed low 0.75, got %v", b.SmoothedLow)
	}
	s.Reset()
	if b = s.Apply(Bands{}); b.SmoothedLow != 0 {
		t.Fatalf("expected reset smoother to start from 0, got %v", b.SmoothedLow)
	}
}
