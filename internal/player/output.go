package player

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/olivier-w/pulsecloud/internal/analysis"
)

// Output plays a decoded buffer.
type Output interface {
	Play()
	Pause()
	Position() time.Duration
	// Finished reports whether a non-looping track has played to its end.
	Finished() bool
	Close() error
}

// OutputFactory opens an Output for buf. Every byte sent to the device must
// also be written to tap.
type OutputFactory func(buf *Buffer, tap *analysis.RingBuffer) (Output, error)

// loopReader serves the buffer's PCM, wrapping to the start when loop is
// set, and mirrors everything it hands out into the tap.
type loopReader struct {
	pcm  []byte
	loop bool
	tap  *analysis.RingBuffer
	pos  int64
	done bool
	mu   sync.Mutex
}

func (lr *loopReader) Read(p []byte) (int, error) {
	lr.mu.Lock()
	defer lr.mu.Unlock()

	if lr.pos >= int64(len(lr.pcm)) {
		if !lr.loop || len(lr.pcm) == 0 {
			lr.done = true
			return 0, io.EOF
		}
		lr.pos = 0
	}
	n := copy(p, lr.pcm[lr.pos:])
	lr.pos += int64(n)
	if lr.tap != nil {
		lr.tap.Write(p[:n])
	}
	return n, nil
}

// Seek lets the oto player rewind a finished track.
func (lr *loopReader) Seek(offset int64, whence int) (int64, error) {
	lr.mu.Lock()
	defer lr.mu.Unlock()

	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = lr.pos + offset
	case io.SeekEnd:
		pos = int64(len(lr.pcm)) + offset
	default:
		return 0, fmt.Errorf("seek: invalid whence %d", whence)
	}
	if pos < 0 {
		return 0, fmt.Errorf("seek: negative position %d", pos)
	}
	lr.pos = pos
	lr.done = false
	return pos, nil
}

func (lr *loopReader) Pos() int64 {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	return lr.pos
}

// finished reports whether the reader has hit the end without wrapping.
func (lr *loopReader) finished() bool {
	lr.mu.Lock()
	defer lr.mu.Unlock()
	return lr.done
}

var (
	globalOtoCtx  *oto.Context
	globalOtoRate int
	otoOnce       sync.Once
	otoInitErr    error
)

// initOto creates the process-wide audio context. oto allows only one per
// process, so every later call must ask for the same sample rate.
func initOto(sampleRate int) (*oto.Context, error) {
	otoOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: outputChannels,
			Format:       oto.FormatSignedInt16LE,
		}
		var ready chan struct{}
		globalOtoCtx, ready, otoInitErr = oto.NewContext(op)
		if otoInitErr == nil {
			<-ready
			globalOtoRate = sampleRate
		}
	})
	if otoInitErr != nil {
		return nil, otoInitErr
	}
	if globalOtoRate != sampleRate {
		return nil, fmt.Errorf("audio device already open at %d Hz, track is %d Hz", globalOtoRate, sampleRate)
	}
	return globalOtoCtx, nil
}

// otoOutput plays through the system audio device.
type otoOutput struct {
	player     *oto.Player
	reader     *loopReader
	sampleRate int
	length     int64
}

// NewOtoOutput returns an OutputFactory for the system audio device.
func NewOtoOutput(volume float64, loop bool) OutputFactory {
	return func(buf *Buffer, tap *analysis.RingBuffer) (Output, error) {
		ctx, err := initOto(buf.SampleRate)
		if err != nil {
			return nil, fmt.Errorf("opening audio device: %w", err)
		}
		lr := &loopReader{pcm: buf.PCM, loop: loop, tap: tap}
		p := ctx.NewPlayer(lr)
		p.SetVolume(volume)
		return &otoOutput{
			player:     p,
			reader:     lr,
			sampleRate: buf.SampleRate,
			length:     int64(len(buf.PCM)),
		}, nil
	}
}

// Play resumes output, rewinding first if the track already ran out.
func (o *otoOutput) Play() {
	if o.Finished() {
		// loopReader is always seekable
		_, _ = o.player.Seek(0, io.SeekStart)
	}
	o.player.Play()
}

func (o *otoOutput) Pause() { o.player.Pause() }

// Finished is true once the reader has returned EOF and oto has drained
// what it buffered.
func (o *otoOutput) Finished() bool {
	return o.reader.finished() && !o.player.IsPlaying()
}

// Position subtracts what oto has buffered but not yet played.
func (o *otoOutput) Position() time.Duration {
	if o.length == 0 {
		return 0
	}
	pos := o.reader.Pos() - int64(o.player.BufferedSize())
	pos = ((pos % o.length) + o.length) % o.length
	frames := pos / frameSize
	return time.Duration(float64(frames) / float64(o.sampleRate) * float64(time.Second))
}

// Close stops output and releases the player.
func (o *otoOutput) Close() error {
	o.player.Pause()
	return errors.Join(o.player.Err(), o.player.Close())
}
