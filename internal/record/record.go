// Package record owns the microphone capture lifecycle: open a stream, drain
// it on a single worker goroutine, and hand the captured PCM back on stop.
package record

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/xiaodi17/faster-whisper-app/internal/config"
	"github.com/xiaodi17/faster-whisper-app/internal/device"
)

// Frames per stream read; small for low stop latency.
const frameSize = 512

// chunkBacklog absorbs short scheduling gaps between the capture worker and
// the collector. The collector drains continuously, so this does not bound
// recording length.
const chunkBacklog = 64

// stopTimeout bounds how long Stop waits for the capture pipeline to finish.
// On timeout whatever audio was collected so far is used.
const stopTimeout = 2 * time.Second

// ErrOverflow marks a transient input overflow; reads continue past it.
var ErrOverflow = errors.New("input overflowed")

// RecordingError reports a failure to start or run a capture session.
type RecordingError struct {
	Op  string
	Err error
}

func (e *RecordingError) Error() string { return fmt.Sprintf("recording %s: %v", e.Op, e.Err) }
func (e *RecordingError) Unwrap() error { return e.Err }

// Stream delivers fixed-size PCM chunks from an open capture source. Read
// returns a chunk the caller owns. A returned ErrOverflow is transient; any
// other error is unrecoverable and ends the session.
type Stream interface {
	Read() ([]byte, error)
	Close() error
}

// Opener opens a capture stream, optionally bound to an explicit device.
// dev is nil when the OS default input device should be used.
type Opener interface {
	Open(dev *device.Device, sampleRate, channels, frames int) (Stream, error)
}

// Resolver validates an explicit input device index. *device.Catalog
// implements it.
type Resolver interface {
	Resolve(index int) (device.Device, error)
}

// Recorder manages a single capture session at a time.
type Recorder struct {
	opener     Opener
	resolver   Resolver
	catalog    *device.Catalog
	logger     *log.Logger
	sampleRate int
	channels   int

	mu            sync.Mutex
	active        bool
	startedAt     time.Time
	captured      *captureBuffer
	collectorDone chan struct{}
	stopCancel    context.CancelFunc
	cleanedUp     bool
}

// New creates a recorder capturing through PortAudio.
func New(cfg config.Config, catalog *device.Catalog, logger *log.Logger) *Recorder {
	return &Recorder{
		opener:     &paOpener{catalog: catalog},
		resolver:   catalog,
		catalog:    catalog,
		logger:     logger,
		sampleRate: cfg.SampleRate,
		channels:   cfg.Channels,
	}
}

// NewWithOpener creates a recorder with a custom stream opener and device
// resolver; resolver may be nil when explicit device indexes are never used.
func NewWithOpener(opener Opener, resolver Resolver, cfg config.Config, logger *log.Logger) *Recorder {
	return &Recorder{
		opener:     opener,
		resolver:   resolver,
		logger:     logger,
		sampleRate: cfg.SampleRate,
		channels:   cfg.Channels,
	}
}

// Start begins a capture session. deviceIndex < 0 selects the OS default
// input device; an explicit index is validated before any stream is opened.
// Fails without touching the running session when one is already active.
func (r *Recorder) Start(deviceIndex int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active {
		return &RecordingError{Op: "start", Err: errors.New("already recording")}
	}

	var dev *device.Device
	if deviceIndex >= 0 {
		if r.resolver == nil {
			return &device.Error{Index: deviceIndex, Msg: "no device catalog"}
		}
		resolved, err := r.resolver.Resolve(deviceIndex)
		if err != nil {
			return err
		}
		dev = &resolved
		r.logger.Info("using input device", "index", resolved.Index, "name", resolved.Name)
	}

	stream, err := r.opener.Open(dev, r.sampleRate, r.channels, frameSize)
	if err != nil {
		return &RecordingError{Op: "start", Err: err}
	}

	ctx, cancel := context.WithCancel(context.Background())
	chunks := make(chan []byte, chunkBacklog)
	r.captured = &captureBuffer{}
	r.collectorDone = make(chan struct{})
	r.stopCancel = cancel
	r.active = true
	r.startedAt = time.Now()

	go r.captureWorker(ctx, stream, chunks)
	go collect(chunks, r.captured, r.collectorDone)
	r.logger.Info("recording started", "sample_rate", r.sampleRate, "channels", r.channels)
	return nil
}

// Stop ends the current session and returns the captured PCM in arrival
// order, or nil when not recording or nothing was captured. Safe to call
// repeatedly; extra calls are no-ops returning nil.
func (r *Recorder) Stop() []byte {
	r.mu.Lock()
	if !r.active {
		r.mu.Unlock()
		return nil
	}
	r.active = false
	cancel := r.stopCancel
	done := r.collectorDone
	buf := r.captured
	started := r.startedAt
	r.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-time.After(stopTimeout):
		r.logger.Warn("capture worker did not exit in time, using partial audio")
	}

	data := buf.bytes()
	r.logger.Info("recording stopped", "bytes", len(data), "duration", time.Since(started))
	return data
}

// Active reports whether a capture session is running.
func (r *Recorder) Active() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Cleanup stops any in-flight session and releases the audio subsystem
// handle. Idempotent and safe on every exit path.
func (r *Recorder) Cleanup() {
	_ = r.Stop()

	r.mu.Lock()
	done := r.cleanedUp
	r.cleanedUp = true
	r.mu.Unlock()
	if done {
		return
	}
	if r.catalog != nil {
		_ = r.catalog.Close()
	}
	r.logger.Debug("recorder cleaned up")
}

// captureWorker is the sole producer on the chunks channel. It closes the
// channel on exit so the collector observes the end of the sequence.
func (r *Recorder) captureWorker(ctx context.Context, stream Stream, chunks chan<- []byte) {
	defer close(chunks)
	defer func() {
		if err := stream.Close(); err != nil {
			r.logger.Warn("stream close", "error", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		chunk, err := stream.Read()
		if err != nil {
			if errors.Is(err, ErrOverflow) {
				r.logger.Warn("input overflow, continuing", "error", err)
				continue
			}
			r.logger.Error("stream read failed, ending capture", "error", err)
			return
		}

		select {
		case chunks <- chunk:
		case <-ctx.Done():
			return
		}
	}
}

// collect drains the worker's chunks into the session buffer as they arrive,
// so the worker never blocks however long the recording runs.
func collect(chunks <-chan []byte, buf *captureBuffer, done chan<- struct{}) {
	defer close(done)
	for chunk := range chunks {
		buf.append(chunk)
	}
}

// captureBuffer accumulates PCM for one session. The collector writes; Stop
// reads after the collector finishes, or after the stop timeout.
type captureBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *captureBuffer) append(p []byte) {
	b.mu.Lock()
	b.buf.Write(p)
	b.mu.Unlock()
}

// bytes returns a copy of the captured audio, or nil when nothing arrived.
func (b *captureBuffer) bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buf.Len() == 0 {
		return nil
	}
	return append([]byte(nil), b.buf.Bytes()...)
}
