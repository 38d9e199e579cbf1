package hotkey

import (
	"testing"

	"golang.design/x/hotkey"
)

func TestParseSingleKey(t *testing.T) {
	combo, err := Parse("f1")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if combo.Key != hotkey.KeyF1 {
		t.Errorf("key = %v, want KeyF1", combo.Key)
	}
	if len(combo.Mods) != 0 {
		t.Errorf("mods = %v, want none", combo.Mods)
	}
}

func TestParseWithModifiers(t *testing.T) {
	combo, err := Parse("ctrl+shift+space")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if combo.Key != hotkey.KeySpace {
		t.Errorf("key = %v, want KeySpace", combo.Key)
	}
	if len(combo.Mods) != 2 {
		t.Fatalf("mods = %v, want 2", combo.Mods)
	}
	if combo.Mods[0] != hotkey.ModCtrl || combo.Mods[1] != hotkey.ModShift {
		t.Errorf("mods = %v, want [ModCtrl ModShift]", combo.Mods)
	}
}

func TestParseNormalizesCaseAndSpace(t *testing.T) {
	combo, err := Parse("  Ctrl + R ")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if combo.Key != hotkey.KeyR {
		t.Errorf("key = %v, want KeyR", combo.Key)
	}
	if combo.String() != "ctrl + r" {
		t.Errorf("String() = %q", combo.String())
	}
}

func TestParseRejectsBadSpecs(t *testing.T) {
	for _, spec := range []string{"", "ctrl+", "+f1", "hyper+f1", "ctrl+f99", "banana"} {
		if _, err := Parse(spec); err == nil {
			t.Errorf("Parse(%q) succeeded, want error", spec)
		}
	}
}
