// Package wavio converts between raw little-endian 16-bit PCM and the WAV
// container, entirely in memory.
package wavio

import (
	"bytes"
	"fmt"
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const bitDepth = 16

// Encode wraps raw PCM bytes (interleaved int16 little-endian samples) into a
// WAV container without touching the filesystem.
func Encode(pcm []byte, sampleRate, channels int) ([]byte, error) {
	if len(pcm) == 0 {
		return nil, fmt.Errorf("no pcm data")
	}
	if len(pcm)%2 != 0 {
		return nil, fmt.Errorf("pcm length %d is not sample aligned", len(pcm))
	}
	if sampleRate <= 0 || channels <= 0 {
		return nil, fmt.Errorf("invalid format: %d Hz, %d channels", sampleRate, channels)
	}

	sb := &seekBuffer{}
	enc := wav.NewEncoder(sb, sampleRate, bitDepth, channels, 1)

	data := make([]int, len(pcm)/2)
	for i := range data {
		data[i] = int(int16(uint16(pcm[2*i]) | uint16(pcm[2*i+1])<<8))
	}
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		_ = enc.Close()
		return nil, fmt.Errorf("wav write failed: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("wav close failed: %w", err)
	}
	return sb.buf, nil
}

// Decode reads a WAV container and returns its PCM bytes plus format. Samples
// are converted to 16-bit regardless of the source depth.
func Decode(r io.ReadSeeker) (pcm []byte, sampleRate, channels int, err error) {
	dec := wav.NewDecoder(r)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, 0, fmt.Errorf("wav decode failed: %w", err)
	}
	if buf.Format == nil || len(buf.Data) == 0 {
		return nil, 0, 0, fmt.Errorf("wav contains no audio data")
	}

	var out bytes.Buffer
	out.Grow(len(buf.Data) * 2)
	for _, s := range buf.Data {
		v := int16(s)
		out.WriteByte(byte(uint16(v)))
		out.WriteByte(byte(uint16(v) >> 8))
	}
	return out.Bytes(), buf.Format.SampleRate, buf.Format.NumChannels, nil
}

// seekBuffer is a minimal in-memory io.WriteSeeker; the wav encoder seeks
// back to patch chunk sizes on Close.
type seekBuffer struct {
	buf []byte
	pos int
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	if need := s.pos + len(p); need > len(s.buf) {
		grown := make([]byte, need)
		copy(grown, s.buf)
		s.buf = grown
	}
	copy(s.buf[s.pos:], p)
	s.pos += len(p)
	return len(p), nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = int64(s.pos) + offset
	case io.SeekEnd:
		pos = int64(len(s.buf)) + offset
	default:
		return 0, fmt.Errorf("invalid whence %d", whence)
	}
	if pos < 0 {
		return 0, fmt.Errorf("negative seek position %d", pos)
	}
	s.pos = int(pos)
	return pos, nil
}
