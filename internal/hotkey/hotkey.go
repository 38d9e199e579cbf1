// Package hotkey registers a global key combination and invokes a callback on
// every press, regardless of which application has focus.
package hotkey

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"golang.design/x/hotkey"
)

// Combo is a parsed key combination such as "f1" or "ctrl+shift+space".
type Combo struct {
	Mods []hotkey.Modifier
	Key  hotkey.Key
	raw  string
}

func (c Combo) String() string { return c.raw }

var keyNames = map[string]hotkey.Key{
	"space":  hotkey.KeySpace,
	"enter":  hotkey.KeyReturn,
	"return": hotkey.KeyReturn,
	"escape": hotkey.KeyEscape,
	"esc":    hotkey.KeyEscape,
	"tab":    hotkey.KeyTab,
	"delete": hotkey.KeyDelete,
	"up":     hotkey.KeyUp,
	"down":   hotkey.KeyDown,
	"left":   hotkey.KeyLeft,
	"right":  hotkey.KeyRight,
	"f1":     hotkey.KeyF1,
	"f2":     hotkey.KeyF2,
	"f3":     hotkey.KeyF3,
	"f4":     hotkey.KeyF4,
	"f5":     hotkey.KeyF5,
	"f6":     hotkey.KeyF6,
	"f7":     hotkey.KeyF7,
	"f8":     hotkey.KeyF8,
	"f9":     hotkey.KeyF9,
	"f10":    hotkey.KeyF10,
	"f11":    hotkey.KeyF11,
	"f12":    hotkey.KeyF12,
	"0":      hotkey.Key0,
	"1":      hotkey.Key1,
	"2":      hotkey.Key2,
	"3":      hotkey.Key3,
	"4":      hotkey.Key4,
	"5":      hotkey.Key5,
	"6":      hotkey.Key6,
	"7":      hotkey.Key7,
	"8":      hotkey.Key8,
	"9":      hotkey.Key9,
	"a":      hotkey.KeyA,
	"b":      hotkey.KeyB,
	"c":      hotkey.KeyC,
	"d":      hotkey.KeyD,
	"e":      hotkey.KeyE,
	"f":      hotkey.KeyF,
	"g":      hotkey.KeyG,
	"h":      hotkey.KeyH,
	"i":      hotkey.KeyI,
	"j":      hotkey.KeyJ,
	"k":      hotkey.KeyK,
	"l":      hotkey.KeyL,
	"m":      hotkey.KeyM,
	"n":      hotkey.KeyN,
	"o":      hotkey.KeyO,
	"p":      hotkey.KeyP,
	"q":      hotkey.KeyQ,
	"r":      hotkey.KeyR,
	"s":      hotkey.KeyS,
	"t":      hotkey.KeyT,
	"u":      hotkey.KeyU,
	"v":      hotkey.KeyV,
	"w":      hotkey.KeyW,
	"x":      hotkey.KeyX,
	"y":      hotkey.KeyY,
	"z":      hotkey.KeyZ,
}

// Parse converts a textual combination into modifiers and a key. Tokens are
// separated by "+"; the last token is the key, the rest are modifiers.
// Modifier names are platform dependent ("alt" and "super" map to the native
// equivalents).
func Parse(spec string) (Combo, error) {
	raw := strings.TrimSpace(strings.ToLower(spec))
	if raw == "" {
		return Combo{}, fmt.Errorf("empty hotkey")
	}

	tokens := strings.Split(raw, "+")
	for i := range tokens {
		tokens[i] = strings.TrimSpace(tokens[i])
		if tokens[i] == "" {
			return Combo{}, fmt.Errorf("malformed hotkey %q", spec)
		}
	}

	keyToken := tokens[len(tokens)-1]
	key, ok := keyNames[keyToken]
	if !ok {
		return Combo{}, fmt.Errorf("unknown key %q in hotkey %q", keyToken, spec)
	}

	var mods []hotkey.Modifier
	for _, tok := range tokens[:len(tokens)-1] {
		mod, ok := modifierNames[tok]
		if !ok {
			return Combo{}, fmt.Errorf("unknown modifier %q in hotkey %q", tok, spec)
		}
		mods = append(mods, mod)
	}
	return Combo{Mods: mods, Key: key, raw: raw}, nil
}

// Listener owns an OS-level hotkey registration and a goroutine that fires
// the callback on each keydown.
type Listener struct {
	combo  Combo
	logger *log.Logger

	mu   sync.Mutex
	hk   *hotkey.Hotkey
	done chan struct{}
}

func NewListener(combo Combo, logger *log.Logger) *Listener {
	return &Listener{combo: combo, logger: logger}
}

// Start registers the combination with the OS and begins dispatching. The
// callback runs on the listener goroutine and must return quickly.
func (l *Listener) Start(onPress func()) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.hk != nil {
		return fmt.Errorf("hotkey %q already registered", l.combo)
	}

	hk := hotkey.New(l.combo.Mods, l.combo.Key)
	if err := hk.Register(); err != nil {
		return fmt.Errorf("register hotkey %q: %w", l.combo, err)
	}
	l.hk = hk
	l.done = make(chan struct{})
	l.logger.Info("hotkey registered", "combo", l.combo.String())

	go func(done chan struct{}) {
		for {
			select {
			case <-done:
				return
			case <-hk.Keydown():
				l.logger.Debug("hotkey pressed", "combo", l.combo.String())
				onPress()
			}
		}
	}(l.done)
	return nil
}

// Stop unregisters the combination and stops dispatching. Idempotent.
func (l *Listener) Stop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.hk == nil {
		return
	}
	close(l.done)
	if err := l.hk.Unregister(); err != nil {
		l.logger.Warn("hotkey unregister failed", "err", err)
	}
	l.hk = nil
	l.done = nil
}
