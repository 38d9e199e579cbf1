// Package config resolves application settings from environment variables
// and command-line flags, with flags taking precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config holds configurable parameters.
type Config struct {
	ModelSize   string
	Device      string
	ComputeType string

	SampleRate  int
	Channels    int
	DeviceIndex int // -1 selects the OS default input device

	Hotkey   string
	LogLevel string

	WhisperBin      string
	WhisperModelDir string
	WhisperEndpoint string // attach to a running whisper server instead of spawning one

	ArchiveDir   string
	Notification bool
}

// Environment variable names, kept compatible with the original deployment.
var envBindings = map[string]string{
	"model_size":        "FASTER_WHISPER_MODEL_SIZE",
	"device":            "FASTER_WHISPER_DEVICE",
	"compute_type":      "FASTER_WHISPER_COMPUTE_TYPE",
	"sample_rate":       "AUDIO_SAMPLE_RATE",
	"channels":          "AUDIO_CHANNELS",
	"device_index":      "AUDIO_DEVICE_INDEX",
	"hotkey":            "HOTKEY",
	"log_level":         "LOG_LEVEL",
	"whisper_bin":       "WHISPER_BIN",
	"whisper_model_dir": "WHISPER_MODEL_DIR",
	"whisper_endpoint":  "WHISPER_ENDPOINT",
	"archive_dir":       "ARCHIVE_DIR",
	"notification":      "NOTIFICATION",
}

// Default returns a Config with default values.
func Default() Config {
	return Config{
		ModelSize:       "small",
		Device:          "cpu",
		ComputeType:     "int8",
		SampleRate:      16000,
		Channels:        1,
		DeviceIndex:     -1,
		Hotkey:          "f1",
		LogLevel:        "info",
		WhisperModelDir: defaultModelDir(),
		Notification:    true,
	}
}

// Bind registers defaults and environment bindings on the global viper
// instance. Call once before Load; command flags bound to the same keys
// override the environment.
func Bind() {
	def := Default()
	viper.SetDefault("model_size", def.ModelSize)
	viper.SetDefault("device", def.Device)
	viper.SetDefault("compute_type", def.ComputeType)
	viper.SetDefault("sample_rate", def.SampleRate)
	viper.SetDefault("channels", def.Channels)
	viper.SetDefault("device_index", def.DeviceIndex)
	viper.SetDefault("hotkey", def.Hotkey)
	viper.SetDefault("log_level", def.LogLevel)
	viper.SetDefault("whisper_bin", def.WhisperBin)
	viper.SetDefault("whisper_model_dir", def.WhisperModelDir)
	viper.SetDefault("whisper_endpoint", def.WhisperEndpoint)
	viper.SetDefault("archive_dir", def.ArchiveDir)
	viper.SetDefault("notification", def.Notification)

	for key, env := range envBindings {
		_ = viper.BindEnv(key, env)
	}
}

// Load materializes the resolved configuration from viper.
func Load() Config {
	return Config{
		ModelSize:       viper.GetString("model_size"),
		Device:          viper.GetString("device"),
		ComputeType:     viper.GetString("compute_type"),
		SampleRate:      viper.GetInt("sample_rate"),
		Channels:        viper.GetInt("channels"),
		DeviceIndex:     viper.GetInt("device_index"),
		Hotkey:          viper.GetString("hotkey"),
		LogLevel:        viper.GetString("log_level"),
		WhisperBin:      viper.GetString("whisper_bin"),
		WhisperModelDir: viper.GetString("whisper_model_dir"),
		WhisperEndpoint: viper.GetString("whisper_endpoint"),
		ArchiveDir:      viper.GetString("archive_dir"),
		Notification:    viper.GetBool("notification"),
	}
}

// Validate verifies config fields and returns an error if any value is invalid.
func Validate(cfg *Config) error {
	allowedModels := map[string]bool{
		"tiny":     true,
		"base":     true,
		"small":    true,
		"medium":   true,
		"large":    true,
		"large-v3": true,
	}
	if !allowedModels[strings.ToLower(cfg.ModelSize)] {
		return fmt.Errorf("invalid model size: %s (allowed: tiny, base, small, medium, large, large-v3)", cfg.ModelSize)
	}

	allowedDevices := map[string]bool{"cpu": true, "cuda": true, "auto": true}
	if !allowedDevices[strings.ToLower(cfg.Device)] {
		return fmt.Errorf("invalid device: %s (allowed: cpu, cuda, auto)", cfg.Device)
	}

	allowedCompute := map[string]bool{"int8": true, "float16": true, "float32": true}
	if !allowedCompute[strings.ToLower(cfg.ComputeType)] {
		return fmt.Errorf("invalid compute type: %s (allowed: int8, float16, float32)", cfg.ComputeType)
	}

	if cfg.SampleRate <= 0 {
		return fmt.Errorf("invalid sample rate: %d (must be > 0)", cfg.SampleRate)
	}
	if cfg.Channels < 1 || cfg.Channels > 8 {
		return fmt.Errorf("invalid channels: %d (allowed 1..8)", cfg.Channels)
	}
	if cfg.DeviceIndex < -1 {
		return fmt.Errorf("invalid device index: %d", cfg.DeviceIndex)
	}
	if cfg.Hotkey == "" {
		return fmt.Errorf("hotkey must not be empty")
	}
	return nil
}

func defaultModelDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		cwd, _ := os.Getwd()
		return filepath.Join(cwd, "models")
	}
	return filepath.Join(home, ".faster-whisper-app", "models")
}
