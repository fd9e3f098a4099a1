package tts

import (
	"log/slog"
	"time"
)

// Config is shared by the network providers. Build it with Options; each
// constructor starts from its own model and voice defaults.
type Config struct {
	APIKey  string
	BaseURL string

	VoiceID string
	ModelID string

	// Speed is the OpenAI speaking rate, 0.25 to 4.0. Zero keeps the server default.
	Speed float64

	OutputFormat Encoding

	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration

	Logger *slog.Logger
}

// Option configures a provider.
type Option func(*Config)

func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithBaseURL points the provider at a proxy or compatible server.
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

func WithVoice(voiceID string) Option {
	return func(c *Config) { c.VoiceID = voiceID }
}

func WithModel(modelID string) Option {
	return func(c *Config) { c.ModelID = modelID }
}

func WithSpeed(speed float64) Option {
	return func(c *Config) { c.Speed = speed }
}

// WithOutputFormat selects the wire encoding. AudioResult.PCM decodes any of them.
func WithOutputFormat(format Encoding) Option {
	return func(c *Config) { c.OutputFormat = format }
}

// WithTimeout bounds each HTTP request. Zero defers to the caller's context.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) { c.Timeout = timeout }
}

// WithRetry sets how often throttled or failed requests are retried and the
// base delay between attempts.
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(c *Config) {
		c.MaxRetries = maxRetries
		c.RetryDelay = delay
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// newConfig applies opts over the provider's defaults and requires a key.
func newConfig(model, voice string, opts []Option) (*Config, error) {
	c := &Config{
		ModelID:      model,
		VoiceID:      voice,
		OutputFormat: EncodingPCM24,
		Timeout:      30 * time.Second,
		MaxRetries:   2,
		RetryDelay:   200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c, nil
}
