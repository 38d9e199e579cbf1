// Package notify shows desktop notifications for recording lifecycle events.
package notify

import (
	"github.com/charmbracelet/log"
	"github.com/gen2brain/beeep"
)

// Notifier posts desktop notifications. When disabled every call is a no-op.
// Notification failures are logged and swallowed.
type Notifier struct {
	enabled bool
	logger  *log.Logger
}

func New(enabled bool, logger *log.Logger) *Notifier {
	return &Notifier{enabled: enabled, logger: logger}
}

func (n *Notifier) Notify(title, message string) {
	if !n.enabled {
		return
	}
	if err := beeep.Notify(title, message, ""); err != nil {
		n.logger.Debug("notification failed", "err", err)
	}
}
