//go:build !windows && !darwin

package inject

import (
	"context"
	"fmt"
	"os/exec"
)

// xdotoolKeystroker types via xdotool on X11 desktops.
type xdotoolKeystroker struct{}

func platformKeystroker() keystroker { return xdotoolKeystroker{} }

func (xdotoolKeystroker) Type(ctx context.Context, text string) error {
	if _, err := exec.LookPath("xdotool"); err != nil {
		return fmt.Errorf("text injection unavailable: %w", err)
	}
	out, err := exec.CommandContext(ctx, "xdotool", xdotoolArgs(text)...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("xdotool type: %w (%s)", err, out)
	}
	return nil
}

// xdotoolArgs builds the type invocation. "--" keeps quotes and dashes in the
// text from being parsed as options; line breaks are flattened so they are
// not delivered as Return keystrokes.
func xdotoolArgs(text string) []string {
	return []string{"type", "--clearmodifiers", "--", flattenBreaks(text)}
}
