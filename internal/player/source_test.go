package player

import (
	"io"
	"testing"

	"github.com/olivier-w/pulsecloud/internal/analysis"
)

func TestSourceExtAndMetadata(t *testing.T) {
	tests := []struct {
		location string
		remote   bool
		ext      string
		title    string
	}{
		{"/music/Track One.MP3", false, ".mp3", "Track One"},
		{"https://cdn.example.com/audio.ogg?sig=abc", true, ".ogg", "audio"},
		{"  clip.wav ", false, ".wav", "clip"},
	}
	for _, tc := range tests {
		s := NewSource(tc.location)
		if s.IsRemote() != tc.remote {
			t.Fatalf("%q: expected remote=%v", tc.location, tc.remote)
		}
		if s.Ext() != tc.ext {
			t.Fatalf("%q: expected ext %q, got %q", tc.location, tc.ext, s.Ext())
		}
		if got := s.Metadata().Title; got != tc.title {
			t.Fatalf("%q: expected title %q, got %q", tc.location, tc.title, got)
		}
	}
}

func TestLoopReaderWrapsAndTaps(t *testing.T) {
	tap := analysis.NewRingBuffer(8)
	lr := &loopReader{pcm: []byte{1, 2, 3, 4, 5, 6, 7, 8}, loop: true, tap: tap}

	p := make([]byte, 6)
	if n, _ := lr.Read(p); n != 6 {
		t.Fatalf("expected 6 bytes, got %d", n)
	}
	if n, _ := lr.Read(p); n != 2 {
		t.Fatalf("expected remaining 2 bytes, got %d", n)
	}
	if n, _ := lr.Read(p); n != 6 || p[0] != 1 {
		t.Fatalf("expected reader to wrap to the start, got n=%d first=%d", n, p[0])
	}
	if tap.Len() != 3 {
		t.Fatalf("expected 3 frames mirrored to tap, got %d", tap.Len())
	}
}

func TestLoopReaderStopsWithoutLoop(t *testing.T) {
	lr := &loopReader{pcm: []byte{1, 2, 3, 4}}
	p := make([]byte, 8)
	if n, err := lr.Read(p); n != 4 || err != nil {
		t.Fatalf("expected 4 bytes, got %d (%v)", n, err)
	}
	if lr.finished() {
		t.Fatal("expected reader not finished before EOF")
	}
	if _, err := lr.Read(p); err != io.EOF {
		t.Fatalf("expected EOF, got %v", err)
	}
	if !lr.finished() {
		t.Fatal("expected reader to be finished after EOF")
	}

	if pos, err := lr.Seek(0, io.SeekStart); pos != 0 || err != nil {
		t.Fatalf("expected rewind to 0, got %d (%v)", pos, err)
	}
	if lr.finished() {
		t.Fatal("expected rewind to clear finished")
	}
	if n, _ := lr.Read(p); n != 4 || p[0] != 1 {
		t.Fatalf("expected to replay from the start, got n=%d first=%d", n, p[0])
	}
}

func TestLoopReaderSeekRejectsBadOffsets(t *testing.T) {
	lr := &loopReader{pcm: []byte{1, 2, 3, 4}}
	if _, err := lr.Seek(-1, io.SeekStart); err == nil {
		t.Fatal("expected error for negative position")
	}
	if _, err := lr.Seek(0, 7); err == nil {
		t.Fatal("expected error for invalid whence")
	}
	if pos, err := lr.Seek(-2, io.SeekEnd); pos != 2 || err != nil {
		t.Fatalf("expected position 2, got %d (%v)", pos, err)
	}
}
