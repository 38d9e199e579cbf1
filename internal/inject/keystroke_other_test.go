//go:build !windows && !darwin

package inject

import "testing"

func TestXdotoolArgsFlattenLineBreaks(t *testing.T) {
	args := xdotoolArgs("line one\nline two\r\nend")
	if len(args) != 4 {
		t.Fatalf("args = %v", args)
	}
	if args[2] != "--" {
		t.Errorf("text not separated from options: %v", args)
	}
	if got := args[3]; got != "line one line two end" {
		t.Errorf("typed text = %q, want line breaks flattened", got)
	}
}

func TestXdotoolArgsKeepQuotesVerbatim(t *testing.T) {
	args := xdotoolArgs(`say "hi" to \everyone`)
	if got := args[3]; got != `say "hi" to \everyone` {
		t.Errorf("typed text = %q, quotes must pass through unescaped", got)
	}
}
