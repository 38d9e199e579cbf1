//go:build windows

package inject

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	"github.com/micmonay/keybd_event"
)

// clipboardKeystroker pastes via the clipboard: save the original contents,
// write the text, send Ctrl+V, restore. Pasting is far more reliable than
// per-character synthesis for non-ASCII text.
type clipboardKeystroker struct{}

func platformKeystroker() keystroker { return clipboardKeystroker{} }

func (clipboardKeystroker) Type(ctx context.Context, text string) error {
	orig, _ := clipboard.ReadAll()
	if err := clipboard.WriteAll(text); err != nil {
		return err
	}
	// Give the clipboard owner a moment to publish the new contents.
	if err := sleepCtx(ctx, 80*time.Millisecond); err != nil {
		return err
	}

	kb, err := keybd_event.NewKeyBonding()
	if err != nil {
		return err
	}
	kb.HasCTRL(true)
	kb.SetKeys(keybd_event.VK_V)
	if err := kb.Launching(); err != nil {
		return err
	}

	if err := sleepCtx(ctx, 120*time.Millisecond); err != nil {
		return err
	}
	_ = clipboard.WriteAll(orig)
	return nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
