// Package config loads the go-jarvis configuration file.
//
// Values are layered: built-in defaults, then the YAML file, then a .env
// file and the process environment for secrets and the log level. Command
// line flags in cmd/jarvis are applied last by the caller.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-jarvis/internal/log"
	"github.com/teslashibe/go-jarvis/pkg/assistant"
	"github.com/teslashibe/go-jarvis/pkg/audioio"
	"github.com/teslashibe/go-jarvis/pkg/camera"
	"github.com/teslashibe/go-jarvis/pkg/inference"
	"github.com/teslashibe/go-jarvis/pkg/stt"
	"github.com/teslashibe/go-jarvis/pkg/tts"
	"github.com/teslashibe/go-jarvis/pkg/vad"
)

// Environment variables read by ApplyEnv.
const (
	EnvOpenAIKey         = "OPENAI_API_KEY"
	EnvElevenLabsKey     = "ELEVENLABS_API_KEY"
	EnvElevenLabsVoiceID = "ELEVENLABS_VOICE_ID"
	EnvLogLevel          = "JARVIS_LOG_LEVEL"
)

// TTS provider names.
const (
	TTSOpenAI       = "openai"
	TTSElevenLabs   = "elevenlabs"
	TTSElevenLabsWS = "elevenlabs_ws"
)

// Config is the whole configuration document.
type Config struct {
	Log        log.Options      `yaml:"log"`
	Audio      AudioConfig      `yaml:"audio"`
	Speaker    audioio.Config   `yaml:"speaker"`
	Camera     camera.Config    `yaml:"camera"`
	Gate       vad.Config       `yaml:"gate"`
	Assistant  assistant.Config `yaml:"assistant"`
	Providers  ProvidersConfig  `yaml:"providers"`
	Supervisor SupervisorConfig `yaml:"supervisor"`
	Status     StatusConfig     `yaml:"status"`
}

// AudioConfig is the microphone plus the chunk queue in front of the gate.
type AudioConfig struct {
	audioio.Config `yaml:",inline"`

	// QueueSize bounds the chunk queue; the newest chunk is dropped when full.
	QueueSize int `yaml:"queue_size"`
}

// ProvidersConfig selects and configures the remote services.
type ProvidersConfig struct {
	// Mock replaces every remote service with an offline stand-in.
	Mock bool `yaml:"mock"`

	OpenAI OpenAIConfig `yaml:"openai"`
	STT    STTConfig    `yaml:"stt"`
	LLM    LLMConfig    `yaml:"llm"`
	TTS    TTSConfig    `yaml:"tts"`
}

// OpenAIConfig is shared by transcription, chat and speech.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// STTConfig configures transcription.
type STTConfig struct {
	Model      string        `yaml:"model"`
	Language   string        `yaml:"language"`
	Prompt     string        `yaml:"prompt"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// LLMConfig configures response generation.
type LLMConfig struct {
	Model        string        `yaml:"model"`
	SystemPrompt string        `yaml:"system_prompt"`
	MaxTokens    int           `yaml:"max_tokens"`
	Temperature  float64       `yaml:"temperature"`
	ImageDetail  string        `yaml:"image_detail"`
	HistoryTurns int           `yaml:"history_turns"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`

	// Fallbacks are asked in order when the primary model fails.
	Fallbacks []LLMFallback `yaml:"fallbacks"`
}

// LLMFallback is a secondary chat model. Empty APIKey and BaseURL inherit
// the openai section, so a fallback can be another model on the same
// account or any OpenAI-compatible endpoint.
type LLMFallback struct {
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// TTSConfig configures speech synthesis. Providers are tried in Order.
type TTSConfig struct {
	Order      []string         `yaml:"order"`
	OpenAI     OpenAITTSConfig  `yaml:"openai"`
	ElevenLabs ElevenLabsConfig `yaml:"elevenlabs"`
}

// OpenAITTSConfig configures OpenAI speech.
type OpenAITTSConfig struct {
	Voice  string       `yaml:"voice"`
	Model  string       `yaml:"model"`
	Speed  float64      `yaml:"speed"`
	Format tts.Encoding `yaml:"format"`
}

// ElevenLabsConfig configures the ElevenLabs fallback voice. The HTTP and
// websocket providers share it.
type ElevenLabsConfig struct {
	APIKey  string       `yaml:"api_key"`
	VoiceID string       `yaml:"voice_id"`
	Model   string       `yaml:"model"`
	Format  tts.Encoding `yaml:"format"`
}

// SupervisorConfig controls task shutdown.
type SupervisorConfig struct {
	ShutdownGrace time.Duration `yaml:"shutdown_grace"`
}

// StatusConfig controls the read-only status server.
type StatusConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() *Config {
	sttCfg := stt.DefaultConfig()
	llmCfg := inference.DefaultConfig()

	return &Config{
		Log:       log.DefaultOptions(),
		Audio:     AudioConfig{Config: audioio.DefaultConfig(), QueueSize: 64},
		Speaker:   audioio.DefaultSinkConfig(),
		Camera:    camera.DefaultConfig(),
		Gate:      vad.DefaultConfig(),
		Assistant: assistant.DefaultConfig(),
		Providers: ProvidersConfig{
			STT: STTConfig{
				Model:      sttCfg.Model,
				Language:   sttCfg.Language,
				Prompt:     sttCfg.Prompt,
				Timeout:    sttCfg.Timeout,
				MaxRetries: sttCfg.MaxRetries,
			},
			LLM: LLMConfig{
				Model:        llmCfg.Model,
				SystemPrompt: llmCfg.SystemPrompt,
				MaxTokens:    llmCfg.MaxTokens,
				Temperature:  llmCfg.Temperature,
				ImageDetail:  llmCfg.ImageDetail,
				HistoryTurns: llmCfg.HistoryTurns,
				Timeout:      llmCfg.Timeout,
				MaxRetries:   llmCfg.MaxRetries,
			},
			TTS: TTSConfig{
				Order: []string{TTSOpenAI, TTSElevenLabs},
				OpenAI: OpenAITTSConfig{
					Voice:  tts.VoiceOnyx,
					Model:  tts.ModelTTS1,
					Speed:  1.0,
					Format: tts.EncodingPCM24,
				},
				ElevenLabs: ElevenLabsConfig{
					VoiceID: tts.VoiceDaniel,
					Model:   tts.ModelFlashV2_5,
					Format:  tts.EncodingPCM24,
				},
			},
		},
		Supervisor: SupervisorConfig{ShutdownGrace: assistant.DefaultShutdownGrace},
		Status:     StatusConfig{Addr: "127.0.0.1:8090"},
	}
}

// Load reads the configuration like Read and validates the result.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg, err := Read(path, envFiles...)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read decodes the YAML file at path over the defaults, loads envFiles
// (missing files are ignored) and applies environment overrides. An empty
// path uses the defaults alone. The result is not validated so callers can
// layer flags on top first.
func Read(path string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("config: open %q: %w", path, err)
		}
		defer f.Close()
		if err := decode(f, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	if err := loadEnvFiles(envFiles...); err != nil {
		return nil, err
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// LoadFromReader decodes YAML from r over the defaults and validates it.
// The environment is not consulted.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := Default()
	if err := decode(r, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader, cfg *Config) error {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: decode yaml: %w", err)
	}
	return nil
}

// loadEnvFiles loads .env style files without overriding variables that are
// already set.
func loadEnvFiles(files ...string) error {
	for _, f := range files {
		if f == "" {
			continue
		}
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("config: load %q: %w", f, err)
		}
	}
	return nil
}

// ApplyEnv overrides secrets and the log level from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvOpenAIKey); v != "" {
		c.Providers.OpenAI.APIKey = v
	}
	if v := getenv(EnvElevenLabsKey); v != "" {
		c.Providers.TTS.ElevenLabs.APIKey = v
	}
	if v := getenv(EnvElevenLabsVoiceID); v != "" {
		c.Providers.TTS.ElevenLabs.VoiceID = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

// Validate checks every section and returns all problems joined.
func (c *Config) Validate() error {
	var errs []error
	add := func(section string, err error) {
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", section, err))
		}
	}

	add("log", c.Log.Validate())
	add("audio", c.Audio.Validate())
	if c.Audio.QueueSize < 1 {
		errs = append(errs, fmt.Errorf("audio: queue_size must be at least 1, got %d", c.Audio.QueueSize))
	}
	add("speaker", c.Speaker.Validate())
	if msgs := c.Camera.Validate(); len(msgs) > 0 {
		errs = append(errs, fmt.Errorf("camera: %s", strings.Join(msgs, "; ")))
	}
	add("gate", c.Gate.Validate())
	add("assistant", c.Assistant.Validate())
	add("providers", c.Providers.validate())
	if c.Supervisor.ShutdownGrace <= 0 {
		errs = append(errs, fmt.Errorf("supervisor: shutdown_grace must be positive, got %v", c.Supervisor.ShutdownGrace))
	}
	if c.Status.Enabled && c.Status.Addr == "" {
		errs = append(errs, errors.New("status: addr is required when enabled"))
	}

	return errors.Join(errs...)
}

func (p ProvidersConfig) validate() error {
	if p.Mock {
		return nil
	}

	var errs []error
	if p.OpenAI.APIKey == "" && p.OpenAI.BaseURL == "" {
		errs = append(errs, fmt.Errorf("openai.api_key is required (or set %s)", EnvOpenAIKey))
	}
	if p.STT.Model == "" {
		errs = append(errs, errors.New("stt.model is required"))
	}
	if p.LLM.Model == "" {
		errs = append(errs, errors.New("llm.model is required"))
	}
	for i, fb := range p.LLM.Fallbacks {
		if fb.Model == "" {
			errs = append(errs, fmt.Errorf("llm.fallbacks[%d].model is required", i))
		}
	}
	if p.LLM.Temperature < 0 || p.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("llm.temperature must be within 0..2, got %v", p.LLM.Temperature))
	}
	switch p.LLM.ImageDetail {
	case "", "low", "high", "auto":
	default:
		errs = append(errs, fmt.Errorf("llm.image_detail must be low, high or auto, got %q", p.LLM.ImageDetail))
	}

	if len(p.TTS.Order) == 0 {
		errs = append(errs, errors.New("tts.order needs at least one provider"))
	}
	for _, name := range p.TTS.Order {
		switch name {
		case TTSOpenAI, TTSElevenLabs, TTSElevenLabsWS:
		default:
			errs = append(errs, fmt.Errorf("tts.order: unknown provider %q", name))
		}
	}
	return errors.Join(errs...)
}
