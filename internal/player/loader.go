package player

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"time"
)

// Progress phases reported while loading.
const (
	PhaseFetching = "fetching"
	PhaseDecoding = "decoding"
)

// Progress is an informational load update. Fraction is in [0, 1], or -1
// when the total size is unknown.
type Progress struct {
	Phase    string
	Fraction float64
}

// Buffer is a fully decoded track: interleaved s16le stereo PCM.
type Buffer struct {
	PCM        []byte
	SampleRate int
}

// Frames returns the number of stereo frames in the buffer.
func (b *Buffer) Frames() int {
	return len(b.PCM) / frameSize
}

// Duration returns the track length.
func (b *Buffer) Duration() time.Duration {
	if b.SampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(b.Frames()) / float64(b.SampleRate) * float64(time.Second))
}

// Loader fetches and decodes an audio source. progress may be nil.
type Loader interface {
	Load(ctx context.Context, src Source, progress func(Progress)) (*Buffer, error)
}

// FileLoader loads tracks from the local filesystem or over HTTP.
type FileLoader struct {
	Client *http.Client
}

// Load fetches src and decodes it by extension.
func (l FileLoader) Load(ctx context.Context, src Source, progress func(Progress)) (*Buffer, error) {
	if progress == nil {
		progress = func(Progress) {}
	}

	data, err := l.fetch(ctx, src, progress)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	progress(Progress{Phase: PhaseDecoding, Fraction: -1})
	dec, err := newDecoder(bytes.NewReader(data), src.Ext())
	if err != nil {
		return nil, err
	}
	buf, err := decodeAll(dec)
	if err != nil {
		return nil, err
	}
	if src.Ext() == ".mp3" {
		// encoder delay and padding would otherwise click at the loop point
		head, tail := mp3Padding(data)
		buf.PCM = trimPCM(buf.PCM, head, tail)
	}
	progress(Progress{Phase: PhaseDecoding, Fraction: 1})
	return buf, nil
}

func (l FileLoader) fetch(ctx context.Context, src Source, progress func(Progress)) ([]byte, error) {
	if !src.IsRemote() {
		progress(Progress{Phase: PhaseFetching, Fraction: -1})
		data, err := os.ReadFile(src.String())
		if err != nil {
			return nil, err
		}
		progress(Progress{Phase: PhaseFetching, Fraction: 1})
		return data, nil
	}

	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected HTTP status: %s", resp.Status)
	}

	cr := &countingReader{reader: resp.Body, total: resp.ContentLength, report: progress}
	progress(Progress{Phase: PhaseFetching, Fraction: cr.fraction()})
	data, err := io.ReadAll(cr)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	progress(Progress{Phase: PhaseFetching, Fraction: 1})
	return data, nil
}

// countingReader wraps an io.Reader and reports fetch progress as bytes
// are read.
type countingReader struct {
	reader io.Reader
	total  int64
	pos    int64
	last   float64
	report func(Progress)
	mu     sync.Mutex
}

func (cr *countingReader) Read(p []byte) (int, error) {
	n, err := cr.reader.Read(p)
	cr.mu.Lock()
	cr.pos += int64(n)
	f := cr.fraction()
	// Report in whole-percent steps.
	notify := f >= 0 && f-cr.last >= 0.01
	if notify {
		cr.last = f
	}
	cr.mu.Unlock()
	if notify && n > 0 {
		cr.report(Progress{Phase: PhaseFetching, Fraction: f})
	}
	return n, err
}

func (cr *countingReader) fraction() float64 {
	if cr.total <= 0 {
		return -1
	}
	return min(float64(cr.pos)/float64(cr.total), 1)
}
