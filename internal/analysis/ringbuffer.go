package analysis

import (
	"encoding/binary"
	"sync"
)

// FrameSize is the byte size of one interleaved s16le stereo frame.
const FrameSize = 4

// RingBuffer is a thread-safe circular buffer of s16le stereo PCM. The audio
// output writes every byte it hands to the device; the sampler reads the most
// recent frames back as a mono signal.
type RingBuffer struct {
	buf   []byte
	size  int
	w     int   // write position
	len   int   // current fill level
	total int64 // bytes written since the last Clear
	mu    sync.Mutex
}

// NewRingBuffer creates a ring buffer holding up to frames stereo frames.
func NewRingBuffer(frames int) *RingBuffer {
	size := frames * FrameSize
	return &RingBuffer{
		buf:  make([]byte, size),
		size: size,
	}
}

// Write appends PCM bytes, overwriting the oldest data if full.
func (rb *RingBuffer) Write(p []byte) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.size == 0 {
		return
	}
	if len(p) > rb.size {
		rb.total += int64(len(p) - rb.size)
		p = p[len(p)-rb.size:]
	}
	for _, b := range p {
		rb.buf[rb.w] = b
		rb.w = (rb.w + 1) % rb.size
	}
	rb.total += int64(len(p))
	rb.len += len(p)
	if rb.len > rb.size {
		rb.len = rb.size
	}
}

// Mono returns up to n most recent frames mixed down to mono in [-1, 1),
// oldest first. Partial frames at the read edge are skipped.
func (rb *RingBuffer) Mono(n int) []float64 {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	tail := int(rb.total % FrameSize)
	avail := (rb.len - tail) / FrameSize
	if n > avail {
		n = avail
	}
	if n <= 0 {
		return nil
	}

	out := make([]float64, n)
	var frame [FrameSize]byte
	start := ((rb.w-tail-n*FrameSize)%rb.size + rb.size) % rb.size
	for i := range n {
		for j := range FrameSize {
			frame[j] = rb.buf[(start+i*FrameSize+j)%rb.size]
		}
		l := int16(binary.LittleEndian.Uint16(frame[0:]))
		r := int16(binary.LittleEndian.Uint16(frame[2:]))
		out[i] = (float64(l) + float64(r)) / 65536.0
	}
	return out
}

// Len returns the number of whole frames currently buffered.
func (rb *RingBuffer) Len() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.len / FrameSize
}

// Clear resets the buffer.
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.w = 0
	rb.len = 0
	rb.total = 0
}
