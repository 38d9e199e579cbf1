package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/xiaodi17/faster-whisper-app/internal/archive"
	"github.com/xiaodi17/faster-whisper-app/internal/asr"
	"github.com/xiaodi17/faster-whisper-app/internal/config"
	"github.com/xiaodi17/faster-whisper-app/internal/device"
	"github.com/xiaodi17/faster-whisper-app/internal/hotkey"
	"github.com/xiaodi17/faster-whisper-app/internal/inject"
	"github.com/xiaodi17/faster-whisper-app/internal/notify"
	"github.com/xiaodi17/faster-whisper-app/internal/record"
	"github.com/xiaodi17/faster-whisper-app/internal/session"
	"github.com/xiaodi17/faster-whisper-app/internal/ui"
)

var logger *log.Logger

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(transcribeCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(testCmd)
	rootCmd.AddCommand(configCmd)

	rootCmd.PersistentFlags().String("model", "", "Model size (tiny, base, small, medium, large, large-v3)")
	rootCmd.PersistentFlags().String("device", "", "Inference device (cpu, cuda, auto)")
	rootCmd.PersistentFlags().String("compute-type", "", "Compute type (int8, float16, float32)")
	rootCmd.PersistentFlags().Int("sample-rate", 0, "Recording sample rate in Hz")
	rootCmd.PersistentFlags().Int("channels", 0, "Recording channel count")
	rootCmd.PersistentFlags().Int("device-index", -1, "Input device index (-1 for default)")
	rootCmd.PersistentFlags().String("hotkey", "", "Global hotkey, e.g. f1 or ctrl+shift+space")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("whisper-bin", "", "Path to the whisper server binary")
	rootCmd.PersistentFlags().String("model-dir", "", "Directory holding ggml model files")
	rootCmd.PersistentFlags().String("endpoint", "", "Attach to a running whisper server instead of spawning one")
	rootCmd.PersistentFlags().String("archive-dir", "", "Directory to archive recordings and transcripts")
	rootCmd.PersistentFlags().Bool("notification", true, "Enable desktop notifications")

	viper.BindPFlag("model_size", rootCmd.PersistentFlags().Lookup("model"))
	viper.BindPFlag("device", rootCmd.PersistentFlags().Lookup("device"))
	viper.BindPFlag("compute_type", rootCmd.PersistentFlags().Lookup("compute-type"))
	viper.BindPFlag("sample_rate", rootCmd.PersistentFlags().Lookup("sample-rate"))
	viper.BindPFlag("channels", rootCmd.PersistentFlags().Lookup("channels"))
	viper.BindPFlag("device_index", rootCmd.PersistentFlags().Lookup("device-index"))
	viper.BindPFlag("hotkey", rootCmd.PersistentFlags().Lookup("hotkey"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("whisper_bin", rootCmd.PersistentFlags().Lookup("whisper-bin"))
	viper.BindPFlag("whisper_model_dir", rootCmd.PersistentFlags().Lookup("model-dir"))
	viper.BindPFlag("whisper_endpoint", rootCmd.PersistentFlags().Lookup("endpoint"))
	viper.BindPFlag("archive_dir", rootCmd.PersistentFlags().Lookup("archive-dir"))
	viper.BindPFlag("notification", rootCmd.PersistentFlags().Lookup("notification"))
}

func initConfig() {
	config.Bind()
	logger = log.New(os.Stderr)
}

var rootCmd = &cobra.Command{
	Use:   "faster-whisper-app",
	Short: "Hotkey speech-to-text that types for you",
	Long:  "Records microphone audio on a global hotkey, transcribes it locally with whisper.cpp, and types the result into the focused application.",
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the hotkey listener",
	RunE:  runApp,
}

var transcribeCmd = &cobra.Command{
	Use:   "transcribe <file.wav>",
	Short: "Transcribe an existing WAV file",
	Args:  cobra.ExactArgs(1),
	RunE:  runTranscribe,
}

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List audio input devices",
	RunE:  runDevices,
}

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Check audio capture and model loading",
	RunE:  runTest,
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the resolved configuration",
	RunE:  runConfig,
}

// loadConfig resolves and validates settings, and applies the log level.
func loadConfig() (config.Config, error) {
	cfg := config.Load()
	if err := config.Validate(&cfg); err != nil {
		return config.Config{}, err
	}
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return config.Config{}, fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	logger.SetLevel(level)
	return cfg, nil
}

func runApp(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	micLogger := logger.With().WithPrefix("mic")
	asrLogger := logger.With().WithPrefix("asr")
	keyLogger := logger.With().WithPrefix("key")

	catalog, err := device.Open(micLogger)
	if err != nil {
		return fmt.Errorf("audio subsystem: %w", err)
	}
	recorder := record.New(cfg, catalog, micLogger)
	defer recorder.Cleanup()

	engine, err := asr.New(cmd.Context(), cfg, asrLogger)
	if err != nil {
		return err
	}
	defer engine.Close()
	info := engine.Info()
	asrLogger.Info("model ready",
		"size", info.ModelSize,
		"device", info.Device,
		"compute", info.ComputeType,
		"endpoint", info.Endpoint,
	)

	combo, err := hotkey.Parse(cfg.Hotkey)
	if err != nil {
		return err
	}

	display := ui.New(os.Stdout)
	injector := inject.New(logger.With().WithPrefix("type"))
	notifier := notify.New(cfg.Notification, logger)

	var archiver session.Archiver
	if a := archive.New(cfg.ArchiveDir, logger); a != nil {
		archiver = a
	}

	controller := session.New(cfg, recorder, engine, injector, notifier, display, archiver, logger.With().WithPrefix("main"))

	listener := hotkey.NewListener(combo, keyLogger)
	if err := listener.Start(controller.Toggle); err != nil {
		return err
	}
	defer listener.Stop()

	display.Banner(combo.String(), cfg.ModelSize)
	display.Ready()

	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc
	logger.Info("shutting down")
	return nil
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	engine, err := asr.New(cmd.Context(), cfg, logger.With().WithPrefix("asr"))
	if err != nil {
		return err
	}
	defer engine.Close()

	res, err := engine.TranscribeFile(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	ui.New(os.Stdout).Result(res)
	return nil
}

func runDevices(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(); err != nil {
		return err
	}

	catalog, err := device.Open(logger)
	if err != nil {
		return fmt.Errorf("audio subsystem: %w", err)
	}
	defer catalog.Close()

	devices, err := catalog.List()
	if err != nil {
		return err
	}
	def, err := catalog.Default()
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Index", "Name", "Channels", "Sample Rate", "Default"})
	for _, d := range devices {
		mark := ""
		if d.Index == def.Index {
			mark = "*"
		}
		table.Append([]string{
			strconv.Itoa(d.Index),
			d.Name,
			strconv.Itoa(d.MaxInputChannels),
			strconv.Itoa(d.DefaultSampleRate),
			mark,
		})
	}
	table.Render()
	return nil
}

func runTest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	type check struct {
		name string
		err  error
	}
	var checks []check

	catalog, err := device.Open(logger)
	checks = append(checks, check{"audio subsystem", err})
	if err == nil {
		defer catalog.Close()
		_, derr := catalog.Default()
		checks = append(checks, check{"default input device", derr})
		if cfg.DeviceIndex >= 0 {
			_, rerr := catalog.Resolve(cfg.DeviceIndex)
			checks = append(checks, check{fmt.Sprintf("input device %d", cfg.DeviceIndex), rerr})
		}
	}

	// Load the smallest model so the check is quick regardless of the
	// configured size.
	testCfg := cfg
	testCfg.ModelSize = "tiny"
	engine, merr := asr.New(cmd.Context(), testCfg, logger.With().WithPrefix("asr"))
	checks = append(checks, check{"model load (tiny)", merr})
	if merr == nil {
		checks = append(checks, check{"inference endpoint " + engine.Info().Endpoint, nil})
		engine.Close()
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Check", "Result"})
	failed := 0
	for _, c := range checks {
		result := "PASS"
		if c.err != nil {
			result = "FAIL: " + c.err.Error()
			failed++
		}
		table.Append([]string{c.name, result})
	}
	table.Render()

	if failed > 0 {
		return fmt.Errorf("%d of %d checks failed", failed, len(checks))
	}
	return nil
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rows := [][]string{
		{"model_size", cfg.ModelSize, "FASTER_WHISPER_MODEL_SIZE"},
		{"device", cfg.Device, "FASTER_WHISPER_DEVICE"},
		{"compute_type", cfg.ComputeType, "FASTER_WHISPER_COMPUTE_TYPE"},
		{"sample_rate", strconv.Itoa(cfg.SampleRate), "AUDIO_SAMPLE_RATE"},
		{"channels", strconv.Itoa(cfg.Channels), "AUDIO_CHANNELS"},
		{"device_index", strconv.Itoa(cfg.DeviceIndex), "AUDIO_DEVICE_INDEX"},
		{"hotkey", cfg.Hotkey, "HOTKEY"},
		{"log_level", cfg.LogLevel, "LOG_LEVEL"},
		{"whisper_bin", cfg.WhisperBin, "WHISPER_BIN"},
		{"whisper_model_dir", cfg.WhisperModelDir, "WHISPER_MODEL_DIR"},
		{"whisper_endpoint", cfg.WhisperEndpoint, "WHISPER_ENDPOINT"},
		{"archive_dir", cfg.ArchiveDir, "ARCHIVE_DIR"},
		{"notification", strconv.FormatBool(cfg.Notification), "NOTIFICATION"},
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Value", "Environment"})
	for _, row := range rows {
		table.Append(row)
	}
	table.Render()
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
