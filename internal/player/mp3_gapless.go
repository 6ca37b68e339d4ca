package player

import (
	"bytes"
	"encoding/binary"
	"errors"
)

// mp3DecoderDelay is the synthesis delay, in samples, that LAME's encoder
// delay field does not include.
const mp3DecoderDelay = 529

var errNotLayer3 = errors.New("not an MPEG layer III frame")

// mp3Padding reads the LAME encoder delay and padding from the Xing/Info
// frame of an MP3 file and returns how many frames of decoded audio to drop
// from the start and end. Files without the tag yield (0, 0).
func mp3Padding(data []byte) (head, tail int) {
	off := id3v2Size(data)
	if off+4 > len(data) {
		return 0, 0
	}
	sideInfo, err := mp3SideInfoSize(data[off : off+4])
	if err != nil {
		return 0, 0
	}
	tag := off + 4 + sideInfo
	if tag > len(data) {
		return 0, 0
	}
	delay, padding, ok := lameDelayPadding(data[tag:])
	if !ok {
		return 0, 0
	}
	return delay + mp3DecoderDelay, max(padding-mp3DecoderDelay, 0)
}

// trimPCM drops head frames from the start and tail frames from the end,
// leaving at least one frame.
func trimPCM(pcm []byte, head, tail int) []byte {
	frames := len(pcm) / frameSize
	if head+tail >= frames {
		return pcm
	}
	return pcm[head*frameSize : (frames-tail)*frameSize]
}

// id3v2Size returns the length of a leading ID3v2 tag, footer included.
func id3v2Size(data []byte) int {
	if len(data) < 10 || !bytes.HasPrefix(data, []byte("ID3")) {
		return 0
	}
	b := data[6:10]
	size := int(b[0]&0x7f)<<21 | int(b[1]&0x7f)<<14 | int(b[2]&0x7f)<<7 | int(b[3]&0x7f)
	if data[5]&0x10 != 0 {
		size += 10
	}
	return 10 + size
}

// mp3SideInfoSize returns the bytes between the frame header and the Xing
// tag: optional CRC plus side information.
func mp3SideInfoSize(header []byte) (int, error) {
	h := binary.BigEndian.Uint32(header)
	if h>>21 != 0x7ff {
		return 0, errNotLayer3
	}
	version := (h >> 19) & 0x3
	layer := (h >> 17) & 0x3
	if layer != 0x1 || version == 0x1 {
		return 0, errNotLayer3
	}

	mpeg1 := version == 0x3
	mono := (h>>6)&0x3 == 0x3
	size := 17
	switch {
	case mpeg1 && !mono:
		size = 32
	case !mpeg1 && mono:
		size = 9
	}
	if (h>>16)&0x1 == 0 {
		size += 2 // CRC
	}
	return size, nil
}

// lameDelayPadding parses the encoder delay and padding out of a Xing or Info
// tag followed by a LAME extension.
func lameDelayPadding(b []byte) (delay, padding int, ok bool) {
	if len(b) < 8 {
		return 0, 0, false
	}
	if tag := string(b[:4]); tag != "Xing" && tag != "Info" {
		return 0, 0, false
	}

	flags := binary.BigEndian.Uint32(b[4:8])
	off := 8
	for _, field := range []struct {
		bit  uint32
		size int
	}{{0x1, 4}, {0x2, 4}, {0x4, 100}, {0x8, 4}} {
		if flags&field.bit != 0 {
			off += field.size
		}
	}
	// delay and padding are two 12-bit values 21 bytes into the LAME block
	if len(b) < off+24 {
		return 0, 0, false
	}
	dp := b[off+21 : off+24]
	delay = int(dp[0])<<4 | int(dp[1]>>4)
	padding = int(dp[1]&0x0f)<<8 | int(dp[2])
	if delay == 0 && padding == 0 {
		return 0, 0, false
	}
	return delay, padding, true
}
