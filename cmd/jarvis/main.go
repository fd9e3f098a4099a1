// Jarvis - voice-triggered assistant with optional camera context.
// Listens on the microphone, answers when addressed by its wake word.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/teslashibe/go-jarvis/internal/app"
	"github.com/teslashibe/go-jarvis/internal/config"
	"github.com/teslashibe/go-jarvis/internal/log"
	"github.com/teslashibe/go-jarvis/pkg/assistant"
	"github.com/teslashibe/go-jarvis/pkg/audioio"
	"github.com/teslashibe/go-jarvis/pkg/camera"
)

// forcedExitDelay bounds how long main waits after an exit signal if the
// supervisor itself hangs.
const forcedExitDelay = 30 * time.Second

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 2
	}

	if err := log.Setup(cfg.Log); err != nil {
		fmt.Fprintf(os.Stderr, "logging: %v\n", err)
		return 2
	}
	defer log.Close()
	logger := log.L()

	a, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("configuration error", "error", err)
		return 2
	}
	defer func() {
		if err := a.Shutdown(); err != nil {
			logger.Warn("shutdown", "error", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.Init(ctx); err != nil {
		logger.Error("initialization failed", "error", err)
		return 1
	}

	go func() {
		<-ctx.Done()
		time.Sleep(forcedExitDelay)
		logger.Error("forced exit, shutdown hung")
		os.Exit(1)
	}()

	err = a.Run(ctx)
	switch {
	case err == nil:
		logger.Info("goodbye")
		return 0
	case errors.Is(err, audioio.ErrDeviceUnavailable):
		logger.Error("microphone unavailable", "error", err)
		return 1
	case errors.Is(err, assistant.ErrShutdownTimeout):
		logger.Error("shutdown timed out, exiting")
		return 1
	default:
		logger.Error("runtime error", "error", err)
		return 1
	}
}

// loadConfig reads the config file and .env, then applies flags on top.
func loadConfig() (*config.Config, error) {
	configPath := flag.String("config", "", "Path to YAML config (defaults are used when empty)")
	envFile := flag.String("env", ".env", "Path to .env file (ignored if missing)")
	debug := flag.Bool("debug", false, "Enable verbose debug logging")
	mock := flag.Bool("mock", false, "Run offline with mock providers, audio devices and camera")
	input := flag.String("input", "", "Microphone selector: index, name substring or \"first\"")
	output := flag.String("output", "", "Speaker selector: index, name substring or \"first\"")
	cameraIndex := flag.Int("camera", -2, "Camera index, -1 to probe (default from config)")
	noCamera := flag.Bool("no-camera", false, "Start with camera context disabled")
	statusAddr := flag.String("status", "", "Serve status on this address, e.g. 127.0.0.1:8090")
	timeout := flag.Duration("timeout", 0, "Per-call timeout for transcription and responses")
	flag.Parse()

	cfg, err := config.Read(*configPath, *envFile)
	if err != nil {
		return nil, err
	}

	if *debug {
		cfg.Log.Level = "debug"
	}
	if *mock {
		cfg.Providers.Mock = true
	}
	if *input != "" {
		cfg.Audio.Device = *input
	}
	if *output != "" {
		cfg.Speaker.Device = *output
	}
	if *cameraIndex >= camera.ProbeIndex {
		cfg.Camera.Index = *cameraIndex
	}
	if *noCamera {
		cfg.Camera.Enabled = false
	}
	if *statusAddr != "" {
		cfg.Status.Enabled = true
		cfg.Status.Addr = *statusAddr
	}
	if *timeout > 0 {
		cfg.Assistant.CallTimeout = *timeout
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
