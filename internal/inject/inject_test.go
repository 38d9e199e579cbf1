package inject

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func testLogger() *log.Logger {
	logger := log.New(os.Stderr)
	logger.SetLevel(log.FatalLevel)
	return logger
}

type recordingKeystroker struct {
	typed []string
	err   error
}

func (r *recordingKeystroker) Type(_ context.Context, text string) error {
	r.typed = append(r.typed, text)
	return r.err
}

type hangingKeystroker struct{}

func (hangingKeystroker) Type(ctx context.Context, _ string) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestInjectDeliversText(t *testing.T) {
	ks := &recordingKeystroker{}
	inj := newWithKeystroker(ks, testLogger(), time.Second)

	if err := inj.Inject(context.Background(), "hello"); err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if len(ks.typed) != 1 || ks.typed[0] != "hello" {
		t.Errorf("typed = %v", ks.typed)
	}
}

func TestInjectEmptyTextIsNoOp(t *testing.T) {
	ks := &recordingKeystroker{}
	inj := newWithKeystroker(ks, testLogger(), time.Second)

	if err := inj.Inject(context.Background(), ""); err != nil {
		t.Fatalf("Inject: %v", err)
	}
	if len(ks.typed) != 0 {
		t.Errorf("typed = %v, want none", ks.typed)
	}
}

func TestInjectPropagatesFailure(t *testing.T) {
	ks := &recordingKeystroker{err: errors.New("no display")}
	inj := newWithKeystroker(ks, testLogger(), time.Second)

	if err := inj.Inject(context.Background(), "hello"); err == nil {
		t.Fatal("Inject succeeded, want error")
	}
}

func TestInjectTimesOut(t *testing.T) {
	inj := newWithKeystroker(hangingKeystroker{}, testLogger(), 50*time.Millisecond)

	start := time.Now()
	err := inj.Inject(context.Background(), "hello")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Inject blocked for %v", elapsed)
	}
}

func TestFlattenBreaks(t *testing.T) {
	cases := []struct{ in, want string }{
		{"no breaks", "no breaks"},
		{"a\nb", "a b"},
		{"a\r\nb\rc", "a b c"},
	}
	for _, c := range cases {
		if got := flattenBreaks(c.in); got != c.want {
			t.Errorf("flattenBreaks(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestEscapeForScript(t *testing.T) {
	cases := []struct{ in, want string }{
		{`plain text`, `plain text`},
		{`say "hi"`, `say \"hi\"`},
		{`back\slash`, `back\\slash`},
		{"line one\nline two", "line one line two"},
		{"crlf\r\nend", "crlf end"},
	}
	for _, c := range cases {
		if got := escapeForScript(c.in); got != c.want {
			t.Errorf("escapeForScript(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}
