// Package archive persists finished recordings and their transcription
// results for later review.
package archive

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/xiaodi17/faster-whisper-app/internal/asr"
	"github.com/xiaodi17/faster-whisper-app/internal/wavio"
)

// Archive saves audio and result pairs under a base directory. A nil Archive
// or an empty directory disables archiving.
type Archive struct {
	dir    string
	logger *log.Logger
}

// New returns nil when dir is empty.
func New(dir string, logger *log.Logger) *Archive {
	if dir == "" {
		return nil
	}
	return &Archive{dir: dir, logger: logger}
}

// Save writes the recording as a WAV file and its result as JSON next to it.
// Both files share the base name audio-<timestamp>-<id>.
func (a *Archive) Save(pcm []byte, sampleRate, channels int, res *asr.Result) error {
	if a == nil {
		return nil
	}
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}

	id := strings.ReplaceAll(uuid.New().String(), "-", "")[:8]
	base := fmt.Sprintf("audio-%s-%s", time.Now().Format("2006-01-02-15.04.05"), id)

	wavData, err := wavio.Encode(pcm, sampleRate, channels)
	if err != nil {
		return fmt.Errorf("encode archive wav: %w", err)
	}
	wavPath := filepath.Join(a.dir, base+".wav")
	if err := os.WriteFile(wavPath, wavData, 0o644); err != nil {
		return fmt.Errorf("write archive wav: %w", err)
	}

	if res != nil {
		body, err := json.MarshalIndent(res, "", "  ")
		if err != nil {
			return fmt.Errorf("encode archive result: %w", err)
		}
		jsonPath := filepath.Join(a.dir, base+".json")
		if err := os.WriteFile(jsonPath, body, 0o644); err != nil {
			return fmt.Errorf("write archive result: %w", err)
		}
	}

	a.logger.Debug("recording archived", "base", base)
	return nil
}
