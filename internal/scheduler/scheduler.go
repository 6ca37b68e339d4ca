// Package scheduler runs the per-frame pipeline: sample the playing track,
// reduce the spectrum to bands, map bands to animation parameters and hand
// them to the renderer.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/olivier-w/pulsecloud/internal/analysis"
	"github.com/olivier-w/pulsecloud/internal/reactive"
)

// Source is the playback side of the pipeline.
type Source interface {
	IsPlaying() bool
	SampleSpectrum() ([]uint8, bool)
	Format() (sampleRate, bufferLength int)
}

// Renderer receives parameters every frame and draws them.
type Renderer interface {
	Apply(reactive.Parameters)
	Render()
}

// Frame is the snapshot produced by one Step.
type Frame struct {
	Index   uint64
	Playing bool
	Bands   analysis.Bands
	Params  reactive.Parameters
}

// Scheduler owns the mapper and smoother and drives one frame per Step.
type Scheduler struct {
	source   Source
	renderer Renderer
	mapper   *reactive.Mapper
	smoother *analysis.Smoother
	bands    analysis.BandConfig
	logger   *slog.Logger

	index   uint64
	playing bool
}

// New creates a Scheduler. A nil smoother disables low-band smoothing.
func New(src Source, r Renderer, m *reactive.Mapper, bands analysis.BandConfig, smoother *analysis.Smoother, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		source:   src,
		renderer: r,
		mapper:   m,
		smoother: smoother,
		bands:    bands,
		logger:   logger,
	}
}

// Step runs one frame. Analysis is skipped unless the source is playing and
// yields a spectrum; the renderer is driven either way.
func (s *Scheduler) Step() Frame {
	f := Frame{Index: s.index}
	s.index++

	var spectrum []uint8
	if s.source.IsPlaying() {
		spectrum, f.Playing = s.source.SampleSpectrum()
	}
	if f.Playing != s.playing {
		s.logger.Debug("frame loop", "playing", f.Playing, "frame", f.Index)
		s.playing = f.Playing
	}

	if f.Playing {
		rate, length := s.source.Format()
		f.Bands = analysis.ComputeBands(spectrum, rate, s.bands, length)
		if s.smoother != nil {
			f.Bands = s.smoother.Apply(f.Bands)
		}
		f.Params = s.mapper.Next(f.Bands)
	} else {
		if s.smoother != nil {
			s.smoother.Reset()
		}
		f.Params = s.mapper.Rest()
	}

	s.renderer.Apply(f.Params)
	s.renderer.Render()
	return f
}

// Run calls Step once per value received on frames until ctx is cancelled
// or frames is closed. onFrame, if non-nil, observes every frame.
func (s *Scheduler) Run(ctx context.Context, frames <-chan time.Time, onFrame func(Frame)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-frames:
			if !ok {
				return nil
			}
			// a tick and a cancellation may both be ready
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f := s.Step()
			if onFrame != nil {
				onFrame(f)
			}
		}
	}
}
