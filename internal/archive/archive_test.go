package archive

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/xiaodi17/faster-whisper-app/internal/asr"
)

func testLogger() *log.Logger {
	logger := log.New(os.Stderr)
	logger.SetLevel(log.FatalLevel)
	return logger
}

func TestSaveWritesWavAndJSON(t *testing.T) {
	dir := t.TempDir()
	a := New(dir, testLogger())

	res := &asr.Result{Text: "hello", Language: "en", LanguageProbability: 0.9}
	pcm := []byte{0x01, 0x00, 0x02, 0x00, 0x03, 0x00, 0x04, 0x00}
	if err := a.Save(pcm, 16000, 1, res); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	var wavName, jsonName string
	for _, e := range entries {
		switch filepath.Ext(e.Name()) {
		case ".wav":
			wavName = e.Name()
		case ".json":
			jsonName = e.Name()
		}
	}
	if wavName == "" || jsonName == "" {
		t.Fatalf("entries = %v, want one .wav and one .json", entries)
	}
	if !strings.HasPrefix(wavName, "audio-") {
		t.Errorf("wav name = %q, want audio- prefix", wavName)
	}
	if strings.TrimSuffix(wavName, ".wav") != strings.TrimSuffix(jsonName, ".json") {
		t.Errorf("base names differ: %q vs %q", wavName, jsonName)
	}

	body, err := os.ReadFile(filepath.Join(dir, jsonName))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	var got asr.Result
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Text != "hello" || got.Language != "en" {
		t.Errorf("archived result = %+v", got)
	}

	wavData, err := os.ReadFile(filepath.Join(dir, wavName))
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(wavData[:4]) != "RIFF" {
		t.Errorf("wav header = %q, want RIFF", wavData[:4])
	}
}

func TestSaveWithoutResultSkipsJSON(t *testing.T) {
	dir := t.TempDir()
	a := New(dir, testLogger())

	if err := a.Save([]byte{0x01, 0x00}, 16000, 1, nil); err != nil {
		t.Fatalf("Save: %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 || filepath.Ext(entries[0].Name()) != ".wav" {
		t.Errorf("entries = %v, want a single .wav", entries)
	}
}

func TestNilArchiveIsNoOp(t *testing.T) {
	var a *Archive
	if err := a.Save([]byte{0x01, 0x00}, 16000, 1, nil); err != nil {
		t.Fatalf("Save on nil archive: %v", err)
	}
	if New("", testLogger()) != nil {
		t.Error("New with empty dir should return nil")
	}
}
