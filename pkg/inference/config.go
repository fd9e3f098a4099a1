package inference

import (
	"log/slog"
	"time"
)

// DefaultSystemPrompt sets the butler persona and keeps replies short enough to speak.
const DefaultSystemPrompt = "You are Jarvis, a concise and courteous voice assistant. " +
	"Address the user as sir. Answer in one to three short spoken sentences with no markdown. " +
	"When an image is attached it is a live view from the user's camera; use it only if relevant."

// Config holds provider configuration.
type Config struct {
	// Connection
	BaseURL string // API base URL, empty for the SDK default
	APIKey  string

	Model        string
	SystemPrompt string

	// Request defaults
	MaxTokens   int
	Temperature float64

	// ImageDetail is the vision detail level: "low", "high" or "auto".
	ImageDetail string

	// HistoryTurns is how many previous exchanges are sent with each request.
	HistoryTurns int

	Timeout    time.Duration
	MaxRetries int

	Logger *slog.Logger
}

// Option is a functional option for configuring providers.
type Option func(*Config)

// WithBaseURL sets the API base URL.
// Examples: "https://api.openai.com/v1", "http://localhost:11434/v1"
func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithModel sets the chat model.
func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

// WithSystemPrompt replaces the persona prompt.
func WithSystemPrompt(prompt string) Option {
	return func(c *Config) { c.SystemPrompt = prompt }
}

// WithMaxTokens sets the reply token limit.
func WithMaxTokens(n int) Option {
	return func(c *Config) { c.MaxTokens = n }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) Option {
	return func(c *Config) { c.Temperature = t }
}

// WithImageDetail sets the vision detail level.
func WithImageDetail(detail string) Option {
	return func(c *Config) { c.ImageDetail = detail }
}

// WithHistoryTurns sets how many exchanges are remembered.
func WithHistoryTurns(n int) Option {
	return func(c *Config) { c.HistoryTurns = n }
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) { c.Timeout = d }
}

// WithRetry sets the SDK retry count.
func WithRetry(maxRetries int) Option {
	return func(c *Config) { c.MaxRetries = maxRetries }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// DefaultConfig returns sensible defaults for OpenAI.
func DefaultConfig() *Config {
	return &Config{
		Model:        "gpt-4o-mini",
		SystemPrompt: DefaultSystemPrompt,
		MaxTokens:    200,
		Temperature:  0.7,
		ImageDetail:  "low",
		HistoryTurns: 6,
		Timeout:      30 * time.Second,
		MaxRetries:   1,
		Logger:       slog.Default(),
	}
}

// Apply applies functional options to the config.
func (c *Config) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(c)
	}
}

// Validate checks that required configuration is present.
// The API key is optional when BaseURL points at a local server.
func (c *Config) Validate() error {
	if c.Model == "" {
		return ErrNoModel
	}
	if c.APIKey == "" && c.BaseURL == "" {
		return ErrNoAPIKey
	}
	return nil
}
