// Package ui renders recording status and transcription results to the
// terminal.
package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/xiaodi17/faster-whisper-app/internal/asr"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#874BFD")).
			Padding(0, 1)

	recordingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#DC322F")).
			Bold(true)

	processingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#B58900"))

	resultStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#268BD2")).
			Padding(0, 1)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#DC322F"))

	readyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#859900"))
)

// Display writes styled status lines to a terminal.
type Display struct {
	out io.Writer
}

func New(out io.Writer) *Display {
	return &Display{out: out}
}

// Banner prints the startup header with the active hotkey.
func (d *Display) Banner(hotkey, model string) {
	fmt.Fprintln(d.out, titleStyle.Render("faster-whisper-app"))
	fmt.Fprintln(d.out, metaStyle.Render(fmt.Sprintf("model %s, press %s to toggle recording, Ctrl+C to quit", model, hotkey)))
}

func (d *Display) RecordingStarted() {
	fmt.Fprintln(d.out, recordingStyle.Render("● recording"))
}

func (d *Display) RecordingStopped() {
	fmt.Fprintln(d.out, processingStyle.Render("… transcribing"))
}

// Result prints the transcription text with language and timing metadata.
func (d *Display) Result(res *asr.Result) {
	text := strings.TrimSpace(res.Text)
	if text == "" {
		fmt.Fprintln(d.out, metaStyle.Render("(no speech detected)"))
		return
	}
	fmt.Fprintln(d.out, resultStyle.Render(text))

	meta := fmt.Sprintf("language %s (%.0f%%)", res.Language, res.LanguageProbability*100)
	if total, ok := res.Timing["total"]; ok {
		meta += fmt.Sprintf(", %.2fs", total)
	}
	fmt.Fprintln(d.out, metaStyle.Render(meta))
}

func (d *Display) Error(msg string) {
	fmt.Fprintln(d.out, errorStyle.Render("✗ "+msg))
}

func (d *Display) Ready() {
	fmt.Fprintln(d.out, readyStyle.Render("ready"))
}
