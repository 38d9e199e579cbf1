//go:build darwin

package inject

import (
	"context"
	"fmt"
	"os/exec"
)

// osascriptKeystroker drives System Events to type into the focused app.
// Requires the accessibility permission for the hosting terminal.
type osascriptKeystroker struct{}

func platformKeystroker() keystroker { return osascriptKeystroker{} }

func (osascriptKeystroker) Type(ctx context.Context, text string) error {
	script := fmt.Sprintf(`tell application "System Events" to keystroke "%s"`, escapeForScript(text))
	out, err := exec.CommandContext(ctx, "osascript", "-e", script).CombinedOutput()
	if err != nil {
		return fmt.Errorf("osascript keystroke: %w (%s)", err, out)
	}
	return nil
}
