// Package session drives the record/transcribe/inject cycle behind a single
// toggle. It owns the state machine and guarantees the application always
// returns to an idle, hotkey-responsive state.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/xiaodi17/faster-whisper-app/internal/asr"
	"github.com/xiaodi17/faster-whisper-app/internal/config"
)

// State is the controller's position in the recording cycle.
type State int

const (
	StateIdle State = iota
	StateRecording
	StateTranscribing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRecording:
		return "recording"
	case StateTranscribing:
		return "transcribing"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Recorder captures microphone audio between Start and Stop.
type Recorder interface {
	Start(deviceIndex int) error
	Stop() []byte
}

// Transcriber converts raw PCM into text.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte, sampleRate int) (*asr.Result, error)
}

// Injector types text into the focused application.
type Injector interface {
	Inject(ctx context.Context, text string) error
}

// Notifier posts desktop notifications.
type Notifier interface {
	Notify(title, message string)
}

// Display renders status to the terminal.
type Display interface {
	RecordingStarted()
	RecordingStopped()
	Result(res *asr.Result)
	Error(msg string)
	Ready()
}

// Archiver persists finished recordings.
type Archiver interface {
	Save(pcm []byte, sampleRate, channels int, res *asr.Result) error
}

// Controller turns hotkey presses into state transitions. Presses during
// transcription are ignored; every cycle ends back in StateIdle no matter
// what failed along the way.
type Controller struct {
	cfg    config.Config
	rec    Recorder
	trans  Transcriber
	inj    Injector
	notif  Notifier
	disp   Display
	arch   Archiver
	logger *log.Logger

	mu    sync.Mutex
	state State
}

func New(cfg config.Config, rec Recorder, trans Transcriber, inj Injector, notif Notifier, disp Display, arch Archiver, logger *log.Logger) *Controller {
	return &Controller{
		cfg:    cfg,
		rec:    rec,
		trans:  trans,
		inj:    inj,
		notif:  notif,
		disp:   disp,
		arch:   arch,
		logger: logger,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Toggle handles one hotkey press. Starting is synchronous; stopping hands
// off to a background goroutine so the hotkey listener is never blocked by
// transcription.
func (c *Controller) Toggle() {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateIdle:
		if err := c.rec.Start(c.cfg.DeviceIndex); err != nil {
			c.logger.Error("recording failed to start", "err", err)
			c.disp.Error(fmt.Sprintf("recording failed to start: %v", err))
			c.notif.Notify("Recording failed", err.Error())
			return
		}
		c.state = StateRecording
		c.disp.RecordingStarted()
		c.notif.Notify("Recording", "Press the hotkey again to stop")

	case StateRecording:
		c.state = StateTranscribing
		c.disp.RecordingStopped()
		go c.finishCycle()

	case StateTranscribing:
		c.logger.Debug("hotkey ignored while transcribing")
	}
}

// finishCycle stops the recorder, transcribes, and dispatches the text. It
// recovers panics from any stage so a wedged cycle cannot take the hotkey
// loop down with it.
func (c *Controller) finishCycle() {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("transcription cycle panicked", "panic", r)
			c.disp.Error(fmt.Sprintf("internal error: %v", r))
		}
		c.setState(StateIdle)
		c.disp.Ready()
	}()

	pcm := c.rec.Stop()
	if pcm == nil {
		c.logger.Warn("no audio captured")
		c.disp.Error("no audio captured")
		return
	}

	res, err := c.trans.Transcribe(context.Background(), pcm, c.cfg.SampleRate)
	if err != nil {
		c.logger.Error("transcription failed", "err", err)
		c.disp.Error(fmt.Sprintf("transcription failed: %v", err))
		c.notif.Notify("Transcription failed", err.Error())
		return
	}

	c.disp.Result(res)

	// Injection is fire and forget. A focus change or a missing permission
	// must not stall the next recording.
	text := res.Text
	go func() {
		if err := c.inj.Inject(context.Background(), text); err != nil {
			c.logger.Warn("text injection failed", "err", err)
		}
	}()

	if c.arch != nil {
		if err := c.arch.Save(pcm, c.cfg.SampleRate, c.cfg.Channels, res); err != nil {
			c.logger.Warn("archive failed", "err", err)
		}
	}
	c.notif.Notify("Transcribed", res.Text)
}

func (c *Controller) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}
