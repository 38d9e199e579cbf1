package record

import (
	"fmt"

	"github.com/gordonklaus/portaudio"

	"github.com/xiaodi17/faster-whisper-app/internal/device"
)

// paOpener opens PortAudio input streams. The catalog must outlive every
// stream opened through it.
type paOpener struct {
	catalog *device.Catalog
}

func (o *paOpener) Open(dev *device.Device, sampleRate, channels, frames int) (Stream, error) {
	in := make([]int16, frames*channels)

	if dev == nil {
		stream, err := portaudio.OpenDefaultStream(channels, 0, float64(sampleRate), frames, in)
		if err != nil {
			return nil, fmt.Errorf("open default stream: %w", err)
		}
		return startStream(stream, in)
	}

	info, err := o.catalog.Info(dev.Index)
	if err != nil {
		return nil, err
	}
	params := portaudio.LowLatencyParameters(info, nil)
	params.Input.Channels = channels
	params.SampleRate = float64(sampleRate)
	params.FramesPerBuffer = frames
	stream, err := portaudio.OpenStream(params, in)
	if err != nil {
		return nil, fmt.Errorf("open stream on device %d: %w", dev.Index, err)
	}
	return startStream(stream, in)
}

func startStream(stream *portaudio.Stream, in []int16) (Stream, error) {
	if err := stream.Start(); err != nil {
		_ = stream.Close()
		return nil, fmt.Errorf("start stream: %w", err)
	}
	return &paStream{stream: stream, in: in}, nil
}

// paStream adapts a PortAudio stream to the Stream interface, converting the
// int16 read buffer into little-endian PCM bytes.
type paStream struct {
	stream *portaudio.Stream
	in     []int16
}

func (s *paStream) Read() ([]byte, error) {
	if err := s.stream.Read(); err != nil {
		if err == portaudio.InputOverflowed {
			return nil, fmt.Errorf("%w: %v", ErrOverflow, err)
		}
		return nil, err
	}
	chunk := make([]byte, len(s.in)*2)
	for i, v := range s.in {
		chunk[2*i] = byte(uint16(v))
		chunk[2*i+1] = byte(uint16(v) >> 8)
	}
	return chunk, nil
}

func (s *paStream) Close() error {
	_ = s.stream.Stop()
	return s.stream.Close()
}
