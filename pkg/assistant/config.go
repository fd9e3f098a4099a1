package assistant

import (
	"errors"
	"fmt"
	"time"

	"github.com/teslashibe/go-jarvis/pkg/command"
)

// Default phrases.
const (
	DefaultFallbackPhrase  = "I am having trouble thinking right now."
	DefaultAttentionPhrase = "Yes, sir."
)

// Config controls the dispatch coordinator.
type Config struct {
	// WakeWords are the phrases a transcript must start with to be answered.
	WakeWords []string `yaml:"wake_words" json:"wake_words"`

	// FuzzyWakeWords accepts near misses such as "Jervis".
	FuzzyWakeWords bool `yaml:"fuzzy_wake_words" json:"fuzzy_wake_words"`

	// FuzzyThreshold is the Jaro-Winkler cutoff; 0 uses the matcher default.
	FuzzyThreshold float64 `yaml:"fuzzy_threshold" json:"fuzzy_threshold"`

	// Commands are the local control phrases, checked before the wake word.
	Commands []command.Rule `yaml:"commands" json:"commands"`

	// Acknowledgement is spoken after a command without its own ack.
	Acknowledgement string `yaml:"acknowledgement" json:"acknowledgement"`

	// AttentionPhrase answers a transcript that is only the wake word.
	AttentionPhrase string `yaml:"attention_phrase" json:"attention_phrase"`

	// FallbackPhrase is spoken when response generation fails.
	FallbackPhrase string `yaml:"fallback_phrase" json:"fallback_phrase"`

	// CallTimeout bounds each transcription and response call.
	CallTimeout time.Duration `yaml:"call_timeout" json:"call_timeout"`

	// PlaybackTimeout bounds each Speak call.
	PlaybackTimeout time.Duration `yaml:"playback_timeout" json:"playback_timeout"`
}

// DefaultConfig returns the stock wake words, camera commands and timeouts.
func DefaultConfig() Config {
	return Config{
		WakeWords:       []string{"hey jarvis", "jarvis"},
		Commands:        command.DefaultRules(),
		Acknowledgement: command.DefaultAck,
		AttentionPhrase: DefaultAttentionPhrase,
		FallbackPhrase:  DefaultFallbackPhrase,
		CallTimeout:     20 * time.Second,
		PlaybackTimeout: 60 * time.Second,
	}
}

// Validate reports every problem at once.
func (c Config) Validate() error {
	var errs []error
	if len(c.WakeWords) == 0 {
		errs = append(errs, errors.New("wake_words: at least one phrase required"))
	}
	if c.FuzzyThreshold < 0 || c.FuzzyThreshold > 1 {
		errs = append(errs, fmt.Errorf("fuzzy_threshold must be within 0..1, got %v", c.FuzzyThreshold))
	}
	if c.FallbackPhrase == "" {
		errs = append(errs, errors.New("fallback_phrase must not be empty"))
	}
	if c.CallTimeout <= 0 {
		errs = append(errs, fmt.Errorf("call_timeout must be positive, got %v", c.CallTimeout))
	}
	if c.PlaybackTimeout <= 0 {
		errs = append(errs, fmt.Errorf("playback_timeout must be positive, got %v", c.PlaybackTimeout))
	}
	return errors.Join(errs...)
}
