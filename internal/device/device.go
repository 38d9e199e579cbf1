// Package device enumerates audio input devices through PortAudio and owns
// the PortAudio library handle for the rest of the process.
package device

import (
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gordonklaus/portaudio"
)

// Device is an immutable snapshot of an input device at enumeration time.
type Device struct {
	Index             int
	Name              string
	MaxInputChannels  int
	DefaultSampleRate int
}

// Error reports an unusable or missing audio device.
type Error struct {
	Index int // -1 when the default device is meant
	Msg   string
}

func (e *Error) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("device %d: %s", e.Index, e.Msg)
	}
	return e.Msg
}

// Catalog wraps the PortAudio host and resolves input devices. It must be
// closed exactly once; Close is safe to call multiple times.
type Catalog struct {
	mu     sync.Mutex
	closed bool
	logger *log.Logger
}

// Open initializes PortAudio and returns a catalog backed by it.
func Open(logger *log.Logger) (*Catalog, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("portaudio init failed: %w", err)
	}
	return &Catalog{logger: logger}, nil
}

// List returns all input-capable devices. Index values are PortAudio device
// indexes, so they can be passed back to Resolve.
func (c *Catalog) List() ([]Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	var devices []Device
	for i, info := range infos {
		if info.MaxInputChannels <= 0 {
			continue
		}
		devices = append(devices, fromInfo(i, info))
	}
	return devices, nil
}

// Default returns the OS default input device.
func (c *Catalog) Default() (Device, error) {
	info, err := portaudio.DefaultInputDevice()
	if err != nil {
		return Device{}, &Error{Index: -1, Msg: fmt.Sprintf("no default input device: %v", err)}
	}
	infos, err := portaudio.Devices()
	if err != nil {
		return Device{}, fmt.Errorf("enumerate devices: %w", err)
	}
	for i, candidate := range infos {
		if candidate == info {
			return fromInfo(i, info), nil
		}
	}
	return fromInfo(-1, info), nil
}

// Resolve validates an explicit device index and returns its snapshot. It
// fails with a device error when the index is out of range or the device has
// no input channels, before any stream is opened.
func (c *Catalog) Resolve(index int) (Device, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return Device{}, fmt.Errorf("enumerate devices: %w", err)
	}
	if index < 0 || index >= len(infos) {
		return Device{}, &Error{Index: index, Msg: "no such device"}
	}
	info := infos[index]
	if info.MaxInputChannels <= 0 {
		return Device{}, &Error{Index: index, Msg: "not an input device"}
	}
	return fromInfo(index, info), nil
}

// Info exposes the underlying PortAudio descriptor for stream opening.
func (c *Catalog) Info(index int) (*portaudio.DeviceInfo, error) {
	infos, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerate devices: %w", err)
	}
	if index < 0 || index >= len(infos) {
		return nil, &Error{Index: index, Msg: "no such device"}
	}
	return infos[index], nil
}

// Close releases the PortAudio handle. Idempotent.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	if err := portaudio.Terminate(); err != nil {
		c.logger.Warn("portaudio terminate", "error", err)
		return err
	}
	return nil
}

func fromInfo(index int, info *portaudio.DeviceInfo) Device {
	return Device{
		Index:             index,
		Name:              info.Name,
		MaxInputChannels:  info.MaxInputChannels,
		DefaultSampleRate: int(info.DefaultSampleRate),
	}
}
