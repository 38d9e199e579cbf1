//go:build windows

package hotkey

import "golang.design/x/hotkey"

var modifierNames = map[string]hotkey.Modifier{
	"ctrl":    hotkey.ModCtrl,
	"control": hotkey.ModCtrl,
	"shift":   hotkey.ModShift,
	"alt":     hotkey.ModAlt,
	"win":     hotkey.ModWin,
	"super":   hotkey.ModWin,
}
