// Package inject types transcribed text into whichever application currently
// holds keyboard focus. Injection is best effort: failures are logged by the
// caller and never interrupt the recording loop.
package inject

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const defaultTimeout = 2 * time.Second

// keystroker is the platform-specific delivery mechanism.
type keystroker interface {
	Type(ctx context.Context, text string) error
}

// Injector delivers text to the focused application with a bounded timeout.
type Injector struct {
	ks      keystroker
	logger  *log.Logger
	timeout time.Duration
}

func New(logger *log.Logger) *Injector {
	return &Injector{ks: platformKeystroker(), logger: logger, timeout: defaultTimeout}
}

func newWithKeystroker(ks keystroker, logger *log.Logger, timeout time.Duration) *Injector {
	return &Injector{ks: ks, logger: logger, timeout: timeout}
}

// Inject sends text to the focused application. Empty text is a no-op. The
// attempt is abandoned after the timeout; the returned error is informational
// and callers must not retry.
func (inj *Injector) Inject(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, inj.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- inj.ks.Type(ctx, text)
	}()

	select {
	case err := <-done:
		if err != nil {
			return err
		}
		inj.logger.Debug("text injected", "chars", len(text))
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// flattenBreaks replaces line breaks with spaces. Synthesized keystrokes for
// raw newlines would submit forms mid-text, so every platform path applies
// this before typing.
func flattenBreaks(text string) string {
	replacer := strings.NewReplacer(
		"\r\n", " ",
		"\n", " ",
		"\r", " ",
	)
	return replacer.Replace(text)
}

// escapeForScript makes text safe for embedding inside a double-quoted
// scripting-language literal.
func escapeForScript(text string) string {
	replacer := strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
	)
	return replacer.Replace(flattenBreaks(text))
}
