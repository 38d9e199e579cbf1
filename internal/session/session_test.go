package session

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/xiaodi17/faster-whisper-app/internal/asr"
	"github.com/xiaodi17/faster-whisper-app/internal/config"
)

func testLogger() *log.Logger {
	logger := log.New(os.Stderr)
	logger.SetLevel(log.FatalLevel)
	return logger
}

type stubRecorder struct {
	mu         sync.Mutex
	startErr   error
	data       []byte
	startCalls int
	stopCalls  int
}

func (r *stubRecorder) Start(int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.startCalls++
	return r.startErr
}

func (r *stubRecorder) Stop() []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopCalls++
	return r.data
}

func (r *stubRecorder) starts() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.startCalls
}

type stubTranscriber struct {
	mu     sync.Mutex
	res    *asr.Result
	err    error
	panics bool
	gate   chan struct{}
	calls  int
	gotPCM []byte
}

func (t *stubTranscriber) Transcribe(_ context.Context, pcm []byte, _ int) (*asr.Result, error) {
	t.mu.Lock()
	t.calls++
	t.gotPCM = pcm
	gate := t.gate
	t.mu.Unlock()
	if gate != nil {
		<-gate
	}
	if t.panics {
		panic("decoder blew up")
	}
	return t.res, t.err
}

func (t *stubTranscriber) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.calls
}

type stubInjector struct {
	mu    sync.Mutex
	texts []string
}

func (i *stubInjector) Inject(_ context.Context, text string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.texts = append(i.texts, text)
	return nil
}

func (i *stubInjector) injected() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.texts...)
}

type stubNotifier struct{}

func (stubNotifier) Notify(string, string) {}

type stubDisplay struct {
	mu      sync.Mutex
	started int
	stopped int
	results []*asr.Result
	errs    []string
	ready   int
}

func (d *stubDisplay) RecordingStarted() { d.mu.Lock(); d.started++; d.mu.Unlock() }
func (d *stubDisplay) RecordingStopped() { d.mu.Lock(); d.stopped++; d.mu.Unlock() }
func (d *stubDisplay) Result(res *asr.Result) {
	d.mu.Lock()
	d.results = append(d.results, res)
	d.mu.Unlock()
}
func (d *stubDisplay) Error(msg string) {
	d.mu.Lock()
	d.errs = append(d.errs, msg)
	d.mu.Unlock()
}
func (d *stubDisplay) Ready() { d.mu.Lock(); d.ready++; d.mu.Unlock() }

func (d *stubDisplay) errorCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.errs)
}

type stubArchiver struct {
	mu    sync.Mutex
	saves int
}

func (a *stubArchiver) Save([]byte, int, int, *asr.Result) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.saves++
	return nil
}

func (a *stubArchiver) saveCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.saves
}

type fixture struct {
	rec   *stubRecorder
	trans *stubTranscriber
	inj   *stubInjector
	disp  *stubDisplay
	arch  *stubArchiver
	ctrl  *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		rec:   &stubRecorder{data: []byte{0x01, 0x00, 0x02, 0x00}},
		trans: &stubTranscriber{res: &asr.Result{Text: "hello world", Language: "en"}},
		inj:   &stubInjector{},
		disp:  &stubDisplay{},
		arch:  &stubArchiver{},
	}
	f.ctrl = New(config.Default(), f.rec, f.trans, f.inj, stubNotifier{}, f.disp, f.arch, testLogger())
	return f
}

func waitState(t *testing.T, c *Controller, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if c.State() == want {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("state = %v, want %v", c.State(), want)
}

func waitFor(t *testing.T, desc string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", desc)
}

func TestToggleStartsRecording(t *testing.T) {
	f := newFixture(t)

	f.ctrl.Toggle()
	if got := f.ctrl.State(); got != StateRecording {
		t.Fatalf("state = %v, want recording", got)
	}
	if f.disp.started != 1 {
		t.Errorf("started displays = %d, want 1", f.disp.started)
	}
}

func TestStartFailureStaysIdle(t *testing.T) {
	f := newFixture(t)
	f.rec.startErr = errors.New("device busy")

	f.ctrl.Toggle()
	if got := f.ctrl.State(); got != StateIdle {
		t.Fatalf("state = %v, want idle", got)
	}
	if f.disp.errorCount() != 1 {
		t.Errorf("error displays = %d, want exactly 1", f.disp.errorCount())
	}
	if f.trans.callCount() != 0 {
		t.Errorf("transcriber called %d times, want 0", f.trans.callCount())
	}
}

func TestFullCycleInjectsAndArchives(t *testing.T) {
	f := newFixture(t)

	f.ctrl.Toggle()
	f.ctrl.Toggle()
	waitState(t, f.ctrl, StateIdle)

	if f.trans.callCount() != 1 {
		t.Fatalf("transcriber called %d times, want 1", f.trans.callCount())
	}
	waitFor(t, "injection", func() bool { return len(f.inj.injected()) == 1 })
	if got := f.inj.injected()[0]; got != "hello world" {
		t.Errorf("injected %q", got)
	}
	waitFor(t, "archive", func() bool { return f.arch.saveCount() == 1 })
	if f.disp.errorCount() != 0 {
		t.Errorf("errors displayed: %v", f.disp.errs)
	}
}

func TestStopWithNoAudioSkipsTranscription(t *testing.T) {
	f := newFixture(t)
	f.rec.data = nil

	f.ctrl.Toggle()
	f.ctrl.Toggle()
	waitState(t, f.ctrl, StateIdle)

	if f.trans.callCount() != 0 {
		t.Errorf("transcriber called %d times, want 0", f.trans.callCount())
	}
	waitFor(t, "error display", func() bool { return f.disp.errorCount() == 1 })
}

func TestTranscriptionFailureReturnsIdle(t *testing.T) {
	f := newFixture(t)
	f.trans.res = nil
	f.trans.err = errors.New("server gone")

	f.ctrl.Toggle()
	f.ctrl.Toggle()
	waitState(t, f.ctrl, StateIdle)

	if len(f.inj.injected()) != 0 {
		t.Errorf("injected %v, want nothing", f.inj.injected())
	}
	if f.arch.saveCount() != 0 {
		t.Errorf("archived %d, want 0", f.arch.saveCount())
	}
	waitFor(t, "error display", func() bool { return f.disp.errorCount() == 1 })
}

func TestPanicDuringTranscriptionRecovers(t *testing.T) {
	f := newFixture(t)
	f.trans.panics = true

	f.ctrl.Toggle()
	f.ctrl.Toggle()
	waitState(t, f.ctrl, StateIdle)

	waitFor(t, "panic reported", func() bool { return f.disp.errorCount() == 1 })

	// The controller must still accept new cycles.
	f.trans.panics = false
	f.ctrl.Toggle()
	if got := f.ctrl.State(); got != StateRecording {
		t.Fatalf("state after recovery = %v, want recording", got)
	}
}

func TestToggleIgnoredWhileTranscribing(t *testing.T) {
	f := newFixture(t)
	f.trans.gate = make(chan struct{})

	f.ctrl.Toggle()
	f.ctrl.Toggle()
	waitState(t, f.ctrl, StateTranscribing)

	f.ctrl.Toggle()
	f.ctrl.Toggle()
	if got := f.rec.starts(); got != 1 {
		t.Errorf("recorder started %d times, want 1", got)
	}

	close(f.trans.gate)
	waitState(t, f.ctrl, StateIdle)
}

func TestStateStrings(t *testing.T) {
	if StateIdle.String() != "idle" || StateRecording.String() != "recording" || StateTranscribing.String() != "transcribing" {
		t.Error("state names changed")
	}
}
