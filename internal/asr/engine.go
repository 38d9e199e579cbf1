// Package asr wraps a local whisper.cpp server process behind a simple
// transcription API. The model is treated as an opaque service: raw PCM goes
// in, text with segment timing comes out.
package asr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"

	"github.com/xiaodi17/faster-whisper-app/internal/config"
	"github.com/xiaodi17/faster-whisper-app/internal/wavio"
)

// Sentinel errors for the transcription contract.
var (
	ErrModelNotLoaded = errors.New("model not loaded")
	ErrEmptyAudio     = errors.New("no audio data provided")
)

// ModelLoadError is fatal at startup: the model weights or the inference
// binary are unavailable or incompatible with the configured settings.
type ModelLoadError struct {
	Model string
	Err   error
}

func (e *ModelLoadError) Error() string { return fmt.Sprintf("load model %q: %v", e.Model, e.Err) }
func (e *ModelLoadError) Unwrap() error { return e.Err }

// TranscriptionError reports a failed transcription attempt. Transcription is
// single-attempt; callers never retry.
type TranscriptionError struct {
	Err error
}

func (e *TranscriptionError) Error() string { return fmt.Sprintf("transcription failed: %v", e.Err) }
func (e *TranscriptionError) Unwrap() error { return e.Err }

// Segment is a time-bounded span of recognized speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is the outcome of one transcription. Immutable after creation.
type Result struct {
	Text                string             `json:"text"`
	Language            string             `json:"language"`
	LanguageProbability float64            `json:"language_probability"`
	Segments            []Segment          `json:"segments"`
	Timing              map[string]float64 `json:"timing"`
}

// ModelInfo describes the engine configuration for display.
type ModelInfo struct {
	ModelSize   string
	Device      string
	ComputeType string
	Endpoint    string
	Loaded      bool
}

// Engine talks to a whisper.cpp server, either spawned as a child process or
// reached at a preconfigured endpoint.
type Engine struct {
	cfg        config.Config
	logger     *log.Logger
	httpClient *http.Client
	baseURL    string

	mu     sync.Mutex
	cmd    *exec.Cmd
	loaded bool
}

// Candidate binary names, in lookup order.
var serverBinaries = []string{"whisper-server", "whisper-cpp-server", "server"}

const (
	readyTimeout     = 30 * time.Second
	readyPollEvery   = 200 * time.Millisecond
	inferenceTimeout = 120 * time.Second
)

// New boots the engine. It returns a ModelLoadError when the server binary or
// the model weights cannot be found, or when the server does not become
// healthy in time.
func New(ctx context.Context, cfg config.Config, logger *log.Logger) (*Engine, error) {
	e := &Engine{
		cfg:        cfg,
		logger:     logger,
		httpClient: newHTTPClient(inferenceTimeout),
	}

	if cfg.WhisperEndpoint != "" {
		e.baseURL = cfg.WhisperEndpoint
		if err := e.waitReady(ctx); err != nil {
			return nil, &ModelLoadError{Model: cfg.ModelSize, Err: err}
		}
		e.setLoaded(true)
		logger.Info("attached to whisper server", "endpoint", e.baseURL)
		return e, nil
	}

	binPath := cfg.WhisperBin
	if binPath == "" {
		binPath = findServerBinary()
	}
	if binPath == "" {
		return nil, &ModelLoadError{Model: cfg.ModelSize, Err: errors.New("whisper server binary not found, install whisper.cpp or set WHISPER_BIN")}
	}

	modelPath := filepath.Join(cfg.WhisperModelDir, fmt.Sprintf("ggml-%s.bin", cfg.ModelSize))
	if _, err := os.Stat(modelPath); err != nil {
		return nil, &ModelLoadError{Model: cfg.ModelSize, Err: fmt.Errorf("model weights unavailable at %s: %w", modelPath, err)}
	}

	port, err := freePort()
	if err != nil {
		return nil, &ModelLoadError{Model: cfg.ModelSize, Err: err}
	}

	args := []string{"-m", modelPath, "--host", "127.0.0.1", "--port", fmt.Sprintf("%d", port)}
	if cfg.Device == "cpu" {
		args = append(args, "--no-gpu")
	}
	cmd := exec.Command(binPath, args...)
	cmd.Stdout = io.Discard
	cmd.Stderr = io.Discard
	if err := cmd.Start(); err != nil {
		return nil, &ModelLoadError{Model: cfg.ModelSize, Err: fmt.Errorf("start whisper server: %w", err)}
	}

	e.cmd = cmd
	e.baseURL = fmt.Sprintf("http://127.0.0.1:%d", port)
	logger.Info("whisper server starting", "bin", binPath, "model", modelPath, "port", port)

	if err := e.waitReady(ctx); err != nil {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
		return nil, &ModelLoadError{Model: cfg.ModelSize, Err: err}
	}
	e.setLoaded(true)
	logger.Info("model loaded", "size", cfg.ModelSize, "device", cfg.Device, "compute", cfg.ComputeType)
	return e, nil
}

// Transcribe wraps raw PCM into an in-memory WAV container and runs inference
// with deterministic decoding parameters (temperature 0, no context
// conditioning, no VAD). It never writes temporary files.
func (e *Engine) Transcribe(ctx context.Context, pcm []byte, sampleRate int) (*Result, error) {
	if !e.Loaded() {
		return nil, &TranscriptionError{Err: ErrModelNotLoaded}
	}
	if len(pcm) == 0 {
		return nil, &TranscriptionError{Err: ErrEmptyAudio}
	}

	total := time.Now()
	wavStart := time.Now()
	wavData, err := wavio.Encode(pcm, sampleRate, 1)
	if err != nil {
		return nil, &TranscriptionError{Err: fmt.Errorf("wrap pcm: %w", err)}
	}
	wavPrep := time.Since(wavStart)

	inferStart := time.Now()
	res, err := e.infer(ctx, wavData, "audio.wav")
	if err != nil {
		return nil, err
	}
	infer := time.Since(inferStart)

	res.Timing = map[string]float64{
		"wav_prep":  wavPrep.Seconds(),
		"inference": infer.Seconds(),
		"total":     time.Since(total).Seconds(),
	}
	e.logger.Info("transcription completed",
		"bytes", len(pcm),
		"language", res.Language,
		"segments", len(res.Segments),
		"inference", infer,
	)
	return res, nil
}

// TranscribeFile runs inference on an existing WAV file. The file is decoded
// locally first so a malformed container fails here instead of as an opaque
// server error.
func (e *Engine) TranscribeFile(ctx context.Context, path string) (*Result, error) {
	if !e.Loaded() {
		return nil, &TranscriptionError{Err: ErrModelNotLoaded}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &TranscriptionError{Err: fmt.Errorf("read audio file: %w", err)}
	}
	if len(data) == 0 {
		return nil, &TranscriptionError{Err: ErrEmptyAudio}
	}
	pcm, rate, chans, err := wavio.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, &TranscriptionError{Err: fmt.Errorf("invalid audio file %s: %w", path, err)}
	}
	e.logger.Debug("audio file decoded", "bytes", len(pcm), "sample_rate", rate, "channels", chans)

	total := time.Now()
	res, err := e.infer(ctx, data, filepath.Base(path))
	if err != nil {
		return nil, err
	}
	res.Timing = map[string]float64{
		"inference": time.Since(total).Seconds(),
		"total":     time.Since(total).Seconds(),
	}
	return res, nil
}

// Info returns the engine configuration for display.
func (e *Engine) Info() ModelInfo {
	return ModelInfo{
		ModelSize:   e.cfg.ModelSize,
		Device:      e.cfg.Device,
		ComputeType: e.cfg.ComputeType,
		Endpoint:    e.baseURL,
		Loaded:      e.Loaded(),
	}
}

// Loaded reports whether the model is ready for inference.
func (e *Engine) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded
}

// Close stops the spawned server process, if any. Idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	cmd := e.cmd
	e.cmd = nil
	e.loaded = false
	e.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}
	if err := cmd.Process.Kill(); err != nil {
		return err
	}
	_, _ = cmd.Process.Wait()
	e.logger.Debug("whisper server stopped")
	return nil
}

func (e *Engine) setLoaded(v bool) {
	e.mu.Lock()
	e.loaded = v
	e.mu.Unlock()
}

func (e *Engine) infer(ctx context.Context, audio []byte, filename string) (*Result, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, &TranscriptionError{Err: err}
	}
	if _, err := part.Write(audio); err != nil {
		return nil, &TranscriptionError{Err: err}
	}
	// Deterministic decode: fixed temperature, no fallback sweep, no VAD,
	// no conditioning on previous output.
	fields := map[string]string{
		"temperature":     "0.0",
		"temperature_inc": "0.0",
		"no_context":      "true",
		"vad":             "false",
		"response_format": "verbose_json",
	}
	for k, v := range fields {
		_ = writer.WriteField(k, v)
	}
	_ = writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/inference", body)
	if err != nil {
		return nil, &TranscriptionError{Err: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &TranscriptionError{Err: fmt.Errorf("inference request: %w", err)}
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, &TranscriptionError{Err: fmt.Errorf("inference status %d: %s", resp.StatusCode, formatResponse(respBody))}
	}
	return parseInference(respBody)
}

// waitReady polls the server health endpoint until it answers.
func (e *Engine) waitReady(ctx context.Context) error {
	deadline := time.Now().Add(readyTimeout)
	client := &http.Client{Timeout: 2 * time.Second}
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/health", nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("whisper server not healthy at %s", e.baseURL)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readyPollEvery):
		}
	}
}

// inferenceResponse mirrors the server's verbose_json payload. Some builds
// report the detected language under different keys.
type inferenceResponse struct {
	Text                string    `json:"text"`
	Language            string    `json:"language"`
	DetectedLanguage    string    `json:"detected_language"`
	LanguageProbability *float64  `json:"language_probability"`
	DetectedProbability *float64  `json:"detected_language_probability"`
	Segments            []Segment `json:"segments"`
	Error               string    `json:"error"`
}

func parseInference(body []byte) (*Result, error) {
	var resp inferenceResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &TranscriptionError{Err: fmt.Errorf("parse response: %w (%s)", err, formatResponse(body))}
	}
	if resp.Error != "" {
		return nil, &TranscriptionError{Err: errors.New(resp.Error)}
	}

	language := resp.Language
	if language == "" {
		language = resp.DetectedLanguage
	}
	probability := 0.0
	switch {
	case resp.LanguageProbability != nil:
		probability = *resp.LanguageProbability
	case resp.DetectedProbability != nil:
		probability = *resp.DetectedProbability
	case language != "":
		probability = 1.0
	}

	segments := resp.Segments
	if segments == nil {
		segments = []Segment{}
	}
	return &Result{
		Text:                resp.Text,
		Language:            language,
		LanguageProbability: probability,
		Segments:            segments,
	}, nil
}

func findServerBinary() string {
	for _, name := range serverBinaries {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	home, _ := os.UserHomeDir()
	locations := []string{
		"/opt/homebrew/bin",
		"/usr/local/bin",
		filepath.Join(home, ".local", "bin"),
		filepath.Join(home, "whisper.cpp"),
	}
	for _, loc := range locations {
		for _, name := range serverBinaries {
			path := filepath.Join(loc, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

func freePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("allocate port: %w", err)
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// formatResponse renders a server response body for an error message. Binary
// payloads are summarized rather than dumped.
func formatResponse(b []byte) string {
	const maxText = 500
	switch {
	case len(b) == 0:
		return "<empty>"
	case !utf8.Valid(b):
		return fmt.Sprintf("<%d bytes of binary data>", len(b))
	case len(b) > maxText:
		return fmt.Sprintf("%s... (%d bytes total)", b[:maxText], len(b))
	default:
		return string(b)
	}
}
