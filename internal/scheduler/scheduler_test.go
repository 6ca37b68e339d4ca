package scheduler

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/olivier-w/pulsecloud/internal/analysis"
	"github.com/olivier-w/pulsecloud/internal/reactive"
)

type fakeSource struct {
	playing  bool
	spectrum []uint8
	samples  int
}

func (f *fakeSource) IsPlaying() bool { return f.playing }

func (f *fakeSource) SampleSpectrum() ([]uint8, bool) {
	if !f.playing {
		return nil, false
	}
	f.samples++
	return f.spectrum, true
}

func (f *fakeSource) Format() (int, int) { return 44100, len(f.spectrum) }

type fakeRenderer struct {
	applied []reactive.Parameters
	renders int
}

func (r *fakeRenderer) Apply(p reactive.Parameters) { r.applied = append(r.applied, p) }
func (r *fakeRenderer) Render()                     { r.renders++ }

func uniform(n int, v uint8) []uint8 {
	m := make([]uint8, n)
	for i := range m {
		m[i] = v
	}
	return m
}

func newTestScheduler(src Source, r Renderer) *Scheduler {
	return New(src, r, reactive.NewMapper(reactive.DefaultCurves()), analysis.DefaultBandConfig(), analysis.NewSmoother(analysis.DefaultSmootherDecay), nil)
}

func TestStepWhilePlayingComputesBands(t *testing.T) {
	src := &fakeSource{playing: true, spectrum: uniform(512, 128)}
	r := &fakeRenderer{}
	s := newTestScheduler(src, r)

	f := s.Step()
	if !f.Playing {
		t.Fatal("expected playing frame")
	}
	for name, v := range map[string]float64{"low": f.Bands.Low, "mid": f.Bands.Mid, "high": f.Bands.High} {
		if math.Abs(v-0.5) > 1e-9 {
			t.Fatalf("expected %s 0.5, got %v", name, v)
		}
	}
	if f.Bands.SmoothedLow <= 0 {
		t.Fatalf("expected smoothed low to rise, got %v", f.Bands.SmoothedLow)
	}
	if f.Params.Phase <= 0 {
		t.Fatalf("expected phase to advance, got %v", f.Params.Phase)
	}
	if len(r.applied) != 1 || r.renders != 1 {
		t.Fatalf("expected one apply and one render, got %d and %d", len(r.applied), r.renders)
	}
	if r.applied[0] != f.Params {
		t.Fatalf("expected renderer to receive frame params, got %+v", r.applied[0])
	}
}

func TestStepWhileStoppedRendersRest(t *testing.T) {
	src := &fakeSource{spectrum: uniform(512, 255)}
	r := &fakeRenderer{}
	s := newTestScheduler(src, r)

	for range 3 {
		f := s.Step()
		if f.Playing || f.Bands != (analysis.Bands{}) {
			t.Fatalf("expected idle frame with zero bands, got %+v", f)
		}
	}
	if src.samples != 0 {
		t.Fatalf("expected no spectrum samples while stopped, got %d", src.samples)
	}
	if r.renders != 3 {
		t.Fatalf("expected rendering to continue while stopped, got %d renders", r.renders)
	}
	rest := reactive.DefaultCurves().Rest(0)
	if r.applied[2] != rest {
		t.Fatalf("expected rest params %+v, got %+v", rest, r.applied[2])
	}
}

func TestPauseDropsEnergyAndKeepsPhase(t *testing.T) {
	src := &fakeSource{playing: true, spectrum: uniform(512, 200)}
	r := &fakeRenderer{}
	s := newTestScheduler(src, r)

	var last Frame
	for range 5 {
		last = s.Step()
	}
	phase := last.Params.Phase

	src.playing = false
	paused := s.Step()
	if paused.Bands != (analysis.Bands{}) {
		t.Fatalf("expected zero bands while paused, got %+v", paused.Bands)
	}
	if paused.Params.Phase != phase {
		t.Fatalf("expected phase held at %v, got %v", phase, paused.Params.Phase)
	}

	// resuming starts the smoother from zero rather than stale energy
	src.playing = true
	src.spectrum = uniform(512, 0)
	resumed := s.Step()
	if resumed.Bands.SmoothedLow != 0 {
		t.Fatalf("expected smoother reset after pause, got %v", resumed.Bands.SmoothedLow)
	}
	if resumed.Params.Phase < phase {
		t.Fatalf("expected phase to resume from %v, got %v", phase, resumed.Params.Phase)
	}
}

func TestStepIndexIncrements(t *testing.T) {
	s := newTestScheduler(&fakeSource{}, &fakeRenderer{})
	for i := range uint64(4) {
		if f := s.Step(); f.Index != i {
			t.Fatalf("expected index %d, got %d", i, f.Index)
		}
	}
}

func TestRunStopsWhenFramesClose(t *testing.T) {
	r := &fakeRenderer{}
	s := newTestScheduler(&fakeSource{}, r)

	frames := make(chan time.Time, 3)
	for range 3 {
		frames <- time.Now()
	}
	close(frames)

	var seen int
	if err := s.Run(context.Background(), frames, func(Frame) { seen++ }); err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if seen != 3 || r.renders != 3 {
		t.Fatalf("expected 3 frames, got %d observed and %d rendered", seen, r.renders)
	}
}

func TestRunReturnsOnCancel(t *testing.T) {
	s := newTestScheduler(&fakeSource{}, &fakeRenderer{})
	ctx, cancel := context.WithCancel(context.Background())
	frames := make(chan time.Time)

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, frames, nil) }()

	frames <- time.Now()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
