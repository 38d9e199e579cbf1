package config

import (
	"testing"

	"github.com/spf13/viper"
)

func TestLoadFromEnvironment(t *testing.T) {
	viper.Reset()
	t.Setenv("FASTER_WHISPER_MODEL_SIZE", "tiny")
	t.Setenv("FASTER_WHISPER_DEVICE", "auto")
	t.Setenv("AUDIO_SAMPLE_RATE", "44100")
	t.Setenv("AUDIO_DEVICE_INDEX", "3")
	t.Setenv("HOTKEY", "ctrl+shift+space")

	Bind()
	cfg := Load()

	if cfg.ModelSize != "tiny" {
		t.Fatalf("expected model size tiny, got %s", cfg.ModelSize)
	}
	if cfg.Device != "auto" {
		t.Fatalf("expected device auto, got %s", cfg.Device)
	}
	if cfg.SampleRate != 44100 {
		t.Fatalf("expected sample rate 44100, got %d", cfg.SampleRate)
	}
	if cfg.DeviceIndex != 3 {
		t.Fatalf("expected device index 3, got %d", cfg.DeviceIndex)
	}
	if cfg.Hotkey != "ctrl+shift+space" {
		t.Fatalf("expected hotkey ctrl+shift+space, got %s", cfg.Hotkey)
	}
	// untouched keys keep their defaults
	if cfg.ComputeType != "int8" {
		t.Fatalf("expected default compute type int8, got %s", cfg.ComputeType)
	}
	if cfg.Channels != 1 {
		t.Fatalf("expected default channels 1, got %d", cfg.Channels)
	}
}

func TestDefaultsAreValid(t *testing.T) {
	cfg := Default()
	if err := Validate(&cfg); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"model size", func(c *Config) { c.ModelSize = "enormous" }},
		{"device", func(c *Config) { c.Device = "tpu" }},
		{"compute type", func(c *Config) { c.ComputeType = "int4" }},
		{"sample rate", func(c *Config) { c.SampleRate = 0 }},
		{"channels low", func(c *Config) { c.Channels = 0 }},
		{"channels high", func(c *Config) { c.Channels = 9 }},
		{"device index", func(c *Config) { c.DeviceIndex = -2 }},
		{"hotkey", func(c *Config) { c.Hotkey = "" }},
	}
	for _, tc := range cases {
		cfg := Default()
		tc.mutate(&cfg)
		if err := Validate(&cfg); err == nil {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}
