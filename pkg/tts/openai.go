package tts

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"

	"github.com/teslashibe/go-jarvis/internal/httpc"
)

const providerOpenAI = "openai"

// OpenAI voice options
const (
	VoiceAlloy   = "alloy"   // Neutral voice
	VoiceEcho    = "echo"    // Male voice
	VoiceFable   = "fable"   // British accent
	VoiceOnyx    = "onyx"    // Deep male voice
	VoiceNova    = "nova"    // Female voice
	VoiceShimmer = "shimmer" // Soft female voice
)

// OpenAI model options
const (
	ModelTTS1         = "tts-1"           // Standard quality, faster
	ModelTTS1HD       = "tts-1-hd"        // Higher quality, slower
	ModelGPT4oMiniTTS = "gpt-4o-mini-tts" // Steerable
)

// OpenAI implements Provider on the OpenAI speech endpoint.
// Output is raw 24 kHz PCM by default; EncodingWAV and EncodingOpus are also
// accepted and decoded by AudioResult.PCM.
type OpenAI struct {
	config *Config
	client oai.Client
	logger *slog.Logger
}

// NewOpenAI creates a new OpenAI TTS provider.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg, err := newConfig(ModelTTS1, VoiceOnyx, opts)
	if err != nil {
		return nil, err
	}
	if cfg.VoiceID == "" {
		cfg.VoiceID = VoiceOnyx
	}
	if _, err := openAIResponseFormat(cfg.OutputFormat); err != nil {
		return nil, err
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
		option.WithHTTPClient(httpc.NewClient(cfg.Timeout)),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAI{
		config: cfg,
		client: oai.NewClient(reqOpts...),
		logger: cfg.Logger.With("component", "tts.openai"),
	}, nil
}

// Name returns "openai".
func (o *OpenAI) Name() string {
	return providerOpenAI
}

// Synthesize converts text to audio, returning the complete audio buffer.
func (o *OpenAI) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if text == "" {
		return nil, wrap(providerOpenAI, ErrEmptyText)
	}
	start := time.Now()

	format, _ := openAIResponseFormat(o.config.OutputFormat)
	params := oai.AudioSpeechNewParams{
		Input:          text,
		Model:          oai.SpeechModel(o.config.ModelID),
		Voice:          oai.AudioSpeechNewParamsVoice(o.config.VoiceID),
		ResponseFormat: format,
	}
	if o.config.Speed > 0 {
		params.Speed = param.NewOpt(o.config.Speed)
	}

	resp, err := o.client.Audio.Speech.New(ctx, params)
	if err != nil {
		return nil, httpc.FromOpenAI("tts", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrap(providerOpenAI, fmt.Errorf("read response: %w", err))
	}
	latency := time.Since(start).Milliseconds()

	o.logger.Debug("synthesized audio",
		"chars", len(text),
		"bytes", len(audio),
		"latency_ms", latency,
		"voice", o.config.VoiceID,
	)

	result := &AudioResult{
		Audio:     audio,
		Format:    o.outputFormat(),
		CharCount: len(text),
		LatencyMs: latency,
	}
	if o.config.OutputFormat == EncodingPCM24 {
		result.Duration = estimatePCMDuration(len(audio), 24000)
	}
	return result, nil
}

// Health checks API connectivity and key validity by listing models.
func (o *OpenAI) Health(ctx context.Context) error {
	if _, err := o.client.Models.List(ctx); err != nil {
		return httpc.FromOpenAI("tts", err)
	}
	return nil
}

// Close releases resources.
func (o *OpenAI) Close() error {
	return nil
}

// VoiceID returns the configured voice.
func (o *OpenAI) VoiceID() string {
	return o.config.VoiceID
}

func (o *OpenAI) outputFormat() AudioFormat {
	switch o.config.OutputFormat {
	case EncodingOpus:
		return AudioFormat{Encoding: EncodingOpus, SampleRate: opusSampleRate, Channels: 1}
	case EncodingWAV:
		return AudioFormat{Encoding: EncodingWAV, SampleRate: 24000, Channels: 1, BitDepth: 16}
	default:
		return AudioFormat{Encoding: EncodingPCM24, SampleRate: 24000, Channels: 1, BitDepth: 16}
	}
}

func openAIResponseFormat(enc Encoding) (oai.AudioSpeechNewParamsResponseFormat, error) {
	switch enc {
	case "", EncodingPCM24:
		return oai.AudioSpeechNewParamsResponseFormatPCM, nil
	case EncodingWAV:
		return oai.AudioSpeechNewParamsResponseFormatWAV, nil
	case EncodingOpus:
		return oai.AudioSpeechNewParamsResponseFormatOpus, nil
	default:
		return "", fmt.Errorf("tts [%s]: unsupported output format %q", providerOpenAI, enc)
	}
}

var _ Provider = (*OpenAI)(nil)
