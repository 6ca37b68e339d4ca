package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/olivier-w/pulsecloud/internal/analysis"
	"golang.org/x/sync/singleflight"
)

var (
	// ErrDecode wraps every failure to fetch or decode the track.
	ErrDecode = errors.New("audio decode failed")
	// ErrClosed is returned once the controller has been closed.
	ErrClosed = errors.New("playback controller closed")
)

// State is the playback lifecycle state.
type State uint8

const (
	Unloaded State = iota
	Loading
	Ready
	Playing
	Paused
	Failed
)

func (s State) String() string {
	switch s {
	case Unloaded:
		return "unloaded"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Failed:
		return "failed"
	}
	return "state(" + strconv.Itoa(int(s)) + ")"
}

// Options configures a Controller. Zero fields take defaults.
type Options struct {
	Loader      Loader
	Output      OutputFactory
	Sampler     analysis.SamplerConfig
	LoadTimeout time.Duration // 0 means no timeout
	OnProgress  func(Progress)
	Logger      *slog.Logger
}

// Controller owns the track's load lifecycle and play/pause state, and
// serves the current magnitude spectrum while playing.
type Controller struct {
	src        Source
	loader     Loader
	newOutput  OutputFactory
	sampler    *analysis.Sampler
	tap        *analysis.RingBuffer
	timeout    time.Duration
	onProgress func(Progress)
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	group  singleflight.Group

	mu         sync.Mutex
	state      State
	attempt    int
	loads      int
	waiters    int
	err        error
	out        Output
	sampleRate int
	duration   time.Duration
	closed     bool
}

// NewController creates a Controller in the Unloaded state.
func NewController(src Source, opts Options) *Controller {
	if opts.Loader == nil {
		opts.Loader = FileLoader{}
	}
	if opts.Output == nil {
		opts.Output = NewOtoOutput(0.5, true)
	}
	if opts.Sampler.FFTSize == 0 {
		opts.Sampler = analysis.DefaultSamplerConfig()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		src:        src,
		loader:     opts.Loader,
		newOutput:  opts.Output,
		sampler:    analysis.NewSampler(opts.Sampler),
		tap:        analysis.NewRingBuffer(opts.Sampler.FFTSize * 2),
		timeout:    opts.LoadTimeout,
		onProgress: opts.OnProgress,
		logger:     opts.Logger.With("source", src.String()),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Source returns the track this controller plays.
func (c *Controller) Source() Source { return c.src }

// Load decodes the track if it is not loaded yet. Calls made while a load is
// in flight wait for that same load instead of starting another. ctx bounds
// only how long this caller waits; the decode itself keeps going.
func (c *Controller) Load(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	switch c.state {
	case Ready, Playing, Paused:
		c.mu.Unlock()
		return nil
	case Unloaded, Failed:
		c.state = Loading
		c.err = nil
		c.attempt++
		c.loads++
		c.logger.Info("loading audio", "attempt", c.attempt)
	}
	// A Loading state always has a call in flight under the current key.
	ch := c.group.DoChan(strconv.Itoa(c.attempt), c.decode)
	c.waiters++
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.waiters--
		c.mu.Unlock()
	}()

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Controller) decode() (any, error) {
	ctx := c.ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	buf, err := c.loader.Load(ctx, c.src, c.reportProgress)
	var out Output
	if err == nil {
		c.tap.Clear()
		out, err = c.newOutput(buf, c.tap)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		if out != nil {
			_ = out.Close()
		}
		return nil, ErrClosed
	}
	if err != nil {
		c.state = Failed
		c.err = fmt.Errorf("%w: %s: %w", ErrDecode, c.src, err)
		c.logger.Error("failed to load audio", "error", err)
		return nil, c.err
	}

	c.out = out
	c.sampleRate = buf.SampleRate
	c.duration = buf.Duration()
	c.state = Ready
	c.logger.Info("loaded audio", "sample_rate", buf.SampleRate, "duration", c.duration)
	return nil, nil
}

func (c *Controller) reportProgress(p Progress) {
	if p.Fraction >= 0 {
		c.logger.Debug("load progress", "phase", p.Phase, "percent", fmt.Sprintf("%.2f", p.Fraction*100))
	}
	if c.onProgress != nil {
		c.onProgress(p)
	}
}

// Play starts or resumes playback, loading the track first when it is
// unloaded or a previous load failed.
func (c *Controller) Play(ctx context.Context) error {
	c.mu.Lock()
	c.syncFinishedLocked()
	st := c.state
	c.mu.Unlock()

	if st == Unloaded || st == Failed || st == Loading {
		if err := c.Load(ctx); err != nil {
			return err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	c.syncFinishedLocked()
	switch c.state {
	case Ready, Paused:
		c.sampler.Reset()
		c.out.Play()
		c.state = Playing
		c.logger.Info("started audio")
	}
	return nil
}

// Pause halts output. It is a no-op unless playing.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.syncFinishedLocked()
	if c.state != Playing {
		return
	}
	c.out.Pause()
	c.sampler.Reset()
	c.state = Paused
	c.logger.Info("stopped audio")
}

// Toggle pauses when playing and plays otherwise.
func (c *Controller) Toggle(ctx context.Context) error {
	if c.IsPlaying() {
		c.Pause()
		return nil
	}
	return c.Play(ctx)
}

// IsPlaying reports whether audio is currently playing.
func (c *Controller) IsPlaying() bool {
	return c.State() == Playing
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.syncFinishedLocked()
	return c.state
}

// syncFinishedLocked moves a track that played to its end back to Ready and
// drops the samples it left in the tap. c.mu must be held.
func (c *Controller) syncFinishedLocked() {
	if c.state != Playing || c.out == nil || !c.out.Finished() {
		return
	}
	c.state = Ready
	c.tap.Clear()
	c.sampler.Reset()
	c.logger.Info("track finished")
}

// Err returns the last load failure, or nil.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Loads returns how many decode attempts have been started.
func (c *Controller) Loads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads
}

// waiting returns how many Load calls are blocked on the decode in flight.
func (c *Controller) waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiters
}

// Format returns the sample rate of the loaded track and the spectrum length.
// The sample rate is zero until the track is loaded.
func (c *Controller) Format() (sampleRate, bufferLength int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sampleRate, c.sampler.BinCount()
}

// SampleSpectrum returns a fresh magnitude spectrum. ok is false unless the
// controller is playing; a track that has run out stops counting as playing.
func (c *Controller) SampleSpectrum() (magnitudes []uint8, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.syncFinishedLocked()
	if c.state != Playing {
		return nil, false
	}
	frames := c.tap.Mono(c.sampler.BinCount() * 2)
	if len(frames) == 0 {
		// Nothing has reached the device yet; report silence.
		return make([]uint8, c.sampler.BinCount()), true
	}
	return c.sampler.Sample(frames), true
}

// Position returns the playback position within the track.
func (c *Controller) Position() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.out == nil {
		return 0
	}
	return c.out.Position()
}

// Duration returns the track length once loaded.
func (c *Controller) Duration() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

// Close stops playback and abandons any load in flight.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.cancel()
	if c.out != nil {
		if err := c.out.Close(); err != nil {
			c.logger.Warn("closing audio output", "error", err)
		}
	}
}
