// Package app wires configuration, devices and providers into a running
// assistant. cmd/jarvis is a thin shell around it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-jarvis/internal/config"
	"github.com/teslashibe/go-jarvis/pkg/assistant"
	"github.com/teslashibe/go-jarvis/pkg/audioio"
	"github.com/teslashibe/go-jarvis/pkg/camera"
	"github.com/teslashibe/go-jarvis/pkg/capture"
	"github.com/teslashibe/go-jarvis/pkg/inference"
	"github.com/teslashibe/go-jarvis/pkg/metrics"
	"github.com/teslashibe/go-jarvis/pkg/playback"
	"github.com/teslashibe/go-jarvis/pkg/status"
	"github.com/teslashibe/go-jarvis/pkg/stt"
	"github.com/teslashibe/go-jarvis/pkg/tts"
	"github.com/teslashibe/go-jarvis/pkg/vad"
)

// mockTranscript is what the offline transcriber hears for every utterance.
const mockTranscript = "Jarvis, what do you see?"

// Option overrides a device, mainly for tests.
type Option func(*App)

// WithAudioSource uses src instead of the configured microphone.
func WithAudioSource(src audioio.Source) Option {
	return func(a *App) { a.source = src }
}

// WithAudioSink uses sink instead of the configured speaker.
func WithAudioSink(sink audioio.Sink) Option {
	return func(a *App) { a.sink = sink }
}

// WithCameraDevice uses dev instead of OpenCV.
func WithCameraDevice(dev camera.Device) Option {
	return func(a *App) { a.cameraDev = dev }
}

// App owns every long-lived component.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	registry *prometheus.Registry
	metrics  *metrics.Metrics

	source    audioio.Source
	sink      audioio.Sink
	cameraDev camera.Device
	frames    camera.FrameSlot

	transcriber stt.Transcriber
	responder   inference.Responder
	voice       tts.Provider
	speaker     *playback.TTSSpeaker

	shared     *assistant.Shared
	supervisor *assistant.Supervisor
	status     *status.Server
}

// New validates cfg and prepares an App. Nothing is opened until Init.
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a := &App{
		cfg:      cfg,
		logger:   logger,
		registry: reg,
		metrics:  metrics.New(reg),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Init creates the providers, opens the speaker and assembles the pipeline.
// The microphone and camera are opened by Run.
func (a *App) Init(ctx context.Context) error {
	if err := a.initProviders(); err != nil {
		return fmt.Errorf("providers: %w", err)
	}
	if err := a.initAudio(ctx); err != nil {
		return fmt.Errorf("audio: %w", err)
	}
	if err := a.initPipeline(); err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	if a.cfg.Status.Enabled {
		a.status = status.New(a.cfg.Status.Addr, a.supervisor, a.registry, a.logger)
		a.shared.Observe(a.status.Publish)
	}
	return nil
}

func (a *App) initProviders() error {
	p := a.cfg.Providers
	if p.Mock {
		a.logger.Warn("using offline mock providers")
		m := stt.NewMock()
		m.Default = mockTranscript
		a.transcriber = m
		a.responder = inference.NewMock()
		a.voice = tts.NewMock()
		return nil
	}

	sttCfg := stt.Config{
		APIKey:     p.OpenAI.APIKey,
		BaseURL:    p.OpenAI.BaseURL,
		Model:      p.STT.Model,
		Language:   p.STT.Language,
		Prompt:     p.STT.Prompt,
		Timeout:    p.STT.Timeout,
		MaxRetries: p.STT.MaxRetries,
		Logger:     a.logger,
	}
	transcriber, err := stt.NewOpenAI(sttCfg)
	if err != nil {
		return fmt.Errorf("stt: %w", err)
	}
	a.transcriber = transcriber

	responder, err := a.responders()
	if err != nil {
		return err
	}
	a.responder = responder

	voices, err := a.ttsProviders()
	if err != nil {
		return err
	}
	chain, err := tts.NewChain(a.logger, voices...)
	if err != nil {
		return fmt.Errorf("tts: %w", err)
	}
	a.voice = chain
	return nil
}

// responders builds the primary chat model and, when fallbacks are
// configured, chains them behind it.
func (a *App) responders() (inference.Responder, error) {
	p := a.cfg.Providers
	build := func(model, key, baseURL string) (inference.Responder, error) {
		return inference.NewOpenAI(
			inference.WithAPIKey(key),
			inference.WithBaseURL(baseURL),
			inference.WithModel(model),
			inference.WithSystemPrompt(p.LLM.SystemPrompt),
			inference.WithMaxTokens(p.LLM.MaxTokens),
			inference.WithTemperature(p.LLM.Temperature),
			inference.WithImageDetail(p.LLM.ImageDetail),
			inference.WithHistoryTurns(p.LLM.HistoryTurns),
			inference.WithTimeout(p.LLM.Timeout),
			inference.WithRetry(p.LLM.MaxRetries),
			inference.WithLogger(a.logger),
		)
	}

	primary, err := build(p.LLM.Model, p.OpenAI.APIKey, p.OpenAI.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}
	if len(p.LLM.Fallbacks) == 0 {
		return primary, nil
	}

	all := []inference.Responder{primary}
	for i, fb := range p.LLM.Fallbacks {
		key, baseURL := fb.APIKey, fb.BaseURL
		if key == "" {
			key = p.OpenAI.APIKey
		}
		if baseURL == "" {
			baseURL = p.OpenAI.BaseURL
		}
		r, err := build(fb.Model, key, baseURL)
		if err != nil {
			return nil, fmt.Errorf("inference fallback %d: %w", i, err)
		}
		all = append(all, r)
	}
	chain, err := inference.NewChain(a.logger, all...)
	if err != nil {
		return nil, fmt.Errorf("inference: %w", err)
	}
	return chain, nil
}

// ttsProviders builds the configured voices in order. ElevenLabs without a
// key is skipped rather than failing startup.
func (a *App) ttsProviders() ([]tts.Provider, error) {
	p := a.cfg.Providers
	var out []tts.Provider
	for _, name := range p.TTS.Order {
		switch name {
		case config.TTSOpenAI:
			o, err := tts.NewOpenAI(
				tts.WithAPIKey(p.OpenAI.APIKey),
				tts.WithBaseURL(p.OpenAI.BaseURL),
				tts.WithVoice(p.TTS.OpenAI.Voice),
				tts.WithModel(p.TTS.OpenAI.Model),
				tts.WithSpeed(p.TTS.OpenAI.Speed),
				tts.WithOutputFormat(p.TTS.OpenAI.Format),
				tts.WithLogger(a.logger),
			)
			if err != nil {
				return nil, fmt.Errorf("tts openai: %w", err)
			}
			out = append(out, o)
		case config.TTSElevenLabs, config.TTSElevenLabsWS:
			el := p.TTS.ElevenLabs
			if el.APIKey == "" {
				a.logger.Info("elevenlabs not configured, skipping", "provider", name, "env", config.EnvElevenLabsKey)
				continue
			}
			opts := []tts.Option{
				tts.WithAPIKey(el.APIKey),
				tts.WithVoice(el.VoiceID),
				tts.WithModel(el.Model),
				tts.WithOutputFormat(el.Format),
				tts.WithLogger(a.logger),
			}
			var (
				e   tts.Provider
				err error
			)
			if name == config.TTSElevenLabsWS {
				e, err = tts.NewElevenLabsWS(opts...)
			} else {
				e, err = tts.NewElevenLabs(opts...)
			}
			if err != nil {
				return nil, fmt.Errorf("tts %s: %w", name, err)
			}
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("tts: %w", tts.ErrProviderUnavailable)
	}
	return out, nil
}

// initAudio opens the speaker. Mock mode swaps both devices for the mock
// backend so it runs without audio hardware.
func (a *App) initAudio(ctx context.Context) error {
	micCfg, spkCfg := a.cfg.Audio.Config, a.cfg.Speaker
	if a.cfg.Providers.Mock {
		micCfg.Backend = audioio.BackendMock
		spkCfg.Backend = audioio.BackendMock
	}
	if a.source == nil {
		src, err := audioio.NewSource(micCfg, a.logger)
		if err != nil {
			return err
		}
		a.source = src
	}
	if a.sink == nil {
		sink, err := audioio.NewSink(spkCfg, a.logger)
		if err != nil {
			return err
		}
		a.sink = sink
	}
	if err := a.sink.Start(ctx); err != nil {
		return fmt.Errorf("speaker: %w", err)
	}
	a.speaker = playback.NewTTSSpeaker(a.voice, a.sink, a.logger)
	return nil
}

func (a *App) initPipeline() error {
	camCfg := a.cfg.Camera
	a.shared = assistant.NewShared(camCfg.Enabled)
	a.shared.Observe(func(t assistant.Transition) {
		a.logger.Debug("state", "from", t.From.String(), "to", t.To.String(), "camera", t.CameraEnabled)
	})

	coord, err := assistant.NewCoordinator(a.cfg.Assistant, assistant.Deps{
		Transcriber: a.transcriber,
		Responder:   a.responder,
		Speaker:     a.speaker,
		Frames:      &a.frames,
		MaxFrameAge: camCfg.MaxFrameAge,
	}, a.shared, a.logger, a.metrics)
	if err != nil {
		return err
	}

	queue := capture.NewChunkQueue(a.cfg.Audio.QueueSize)
	pipeline := assistant.Pipeline{
		Audio:         capture.NewAudioProducer(a.source, queue, a.logger, a.metrics),
		Queue:         queue,
		Gate:          vad.NewGate(a.cfg.Gate),
		Coordinator:   coord,
		ShutdownGrace: a.cfg.Supervisor.ShutdownGrace,
	}

	// The producer runs even while camera context is disabled; it discards
	// frames until a command enables it.
	if a.cameraDev == nil && a.cfg.Providers.Mock {
		a.cameraDev = camera.NewMockDevice(0)
	}
	if a.cameraDev == nil {
		a.cameraDev = camera.NewGoCVDevice(camCfg)
	}
	pipeline.Camera = capture.NewCameraProducer(a.cameraDev, camCfg, &a.frames, a.shared.CameraEnabled, a.logger, a.metrics)

	sup, err := assistant.NewSupervisor(pipeline, a.logger, a.metrics)
	if err != nil {
		return err
	}
	a.supervisor = sup
	return nil
}

// Run blocks until ctx is cancelled or the pipeline fails. The status
// server, when enabled, stops with it.
func (a *App) Run(ctx context.Context) error {
	if a.supervisor == nil {
		return errors.New("app: Run called before Init")
	}

	a.logger.Info("jarvis is listening",
		"wake_words", a.cfg.Assistant.WakeWords,
		"camera", a.shared.CameraEnabled(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := a.supervisor.Run(gctx)
		if err == nil && ctx.Err() == nil {
			err = errors.New("app: pipeline stopped unexpectedly")
		}
		return err
	})
	if a.status != nil {
		g.Go(func() error { return a.status.Run(gctx) })
	}
	return g.Wait()
}

// Supervisor returns the running pipeline supervisor.
func (a *App) Supervisor() *assistant.Supervisor {
	return a.supervisor
}

// Registry returns the Prometheus registry holding the assistant metrics.
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}

// Shutdown releases the speaker and provider clients. The microphone and
// camera are released by Run.
func (a *App) Shutdown() error {
	var errs []error
	if a.sink != nil {
		errs = append(errs, a.sink.Close())
	}
	if a.responder != nil {
		errs = append(errs, a.responder.Close())
	}
	if a.voice != nil {
		errs = append(errs, a.voice.Close())
	}
	return errors.Join(errs...)
}
