package stt

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/teslashibe/go-jarvis/internal/httpc"
	"github.com/teslashibe/go-jarvis/pkg/audioio"
	"github.com/teslashibe/go-jarvis/pkg/vad"
)

// Transcription models
const (
	ModelWhisper1            = "whisper-1"
	ModelGPT4oTranscribe     = "gpt-4o-transcribe"
	ModelGPT4oMiniTranscribe = "gpt-4o-mini-transcribe"
)

// Config configures the OpenAI transcriber.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string

	// Language is an ISO-639-1 hint; empty lets the model detect it.
	Language string

	// Prompt biases spelling, e.g. toward the assistant's name.
	Prompt string

	Timeout    time.Duration
	MaxRetries int
	Logger     *slog.Logger
}

// DefaultConfig returns whisper-1 in English.
func DefaultConfig() Config {
	return Config{
		Model:      ModelWhisper1,
		Language:   "en",
		Prompt:     "Jarvis",
		Timeout:    30 * time.Second,
		MaxRetries: 1,
	}
}

// OpenAI uploads each utterance as a WAV file to the transcription endpoint.
type OpenAI struct {
	cfg    Config
	client oai.Client
	logger *slog.Logger
}

// NewOpenAI creates a transcriber.
func NewOpenAI(cfg Config) (*OpenAI, error) {
	if cfg.APIKey == "" && cfg.BaseURL == "" {
		return nil, errors.New("stt: API key required")
	}
	if cfg.Model == "" {
		cfg.Model = ModelWhisper1
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
		option.WithHTTPClient(httpc.NewClient(cfg.Timeout)),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAI{
		cfg:    cfg,
		client: oai.NewClient(opts...),
		logger: cfg.Logger.With("component", "stt.openai"),
	}, nil
}

// Transcribe encodes the utterance as mono WAV and returns the trimmed transcript.
func (o *OpenAI) Transcribe(ctx context.Context, u *vad.Utterance) (string, error) {
	samples := u.Samples()
	if len(samples) == 0 {
		return "", transcriptionError(ErrEmptyUtterance)
	}
	rate, channels := u.Format()

	wav, err := audioio.EncodeWAV(audioio.ToMono(samples, channels), rate, 1)
	if err != nil {
		return "", transcriptionError(err)
	}

	start := time.Now()
	params := oai.AudioTranscriptionNewParams{
		File:  oai.File(bytes.NewReader(wav), "utterance.wav", "audio/wav"),
		Model: oai.AudioModel(o.cfg.Model),
	}
	if o.cfg.Language != "" {
		params.Language = param.NewOpt(o.cfg.Language)
	}
	if o.cfg.Prompt != "" {
		params.Prompt = param.NewOpt(o.cfg.Prompt)
	}

	resp, err := o.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return "", transcriptionError(httpc.FromOpenAI("stt", err))
	}

	text := strings.TrimSpace(resp.Text)
	o.logger.Debug("transcribed",
		"utterance", u.ID,
		"audio_ms", u.Duration.Milliseconds(),
		"latency_ms", time.Since(start).Milliseconds(),
		"chars", len(text),
	)
	return text, nil
}

var _ Transcriber = (*OpenAI)(nil)
