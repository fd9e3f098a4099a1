package vad

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the gate thresholds. Amplitudes are mean absolute sample
// values normalized to 0..1.
type Config struct {
	// TriggerThreshold opens an utterance when a chunk's amplitude exceeds it.
	TriggerThreshold float64 `yaml:"trigger_threshold" json:"trigger_threshold"`

	// ReleaseThreshold must be below TriggerThreshold. Chunks at or below it
	// count toward SilenceRun.
	ReleaseThreshold float64 `yaml:"release_threshold" json:"release_threshold"`

	// SilenceRun is the number of consecutive quiet chunks that closes an utterance.
	SilenceRun int `yaml:"silence_run" json:"silence_run"`

	// MinUtterance discards closed utterances shorter than this.
	MinUtterance time.Duration `yaml:"min_utterance" json:"min_utterance"`

	// MaxUtterance force-closes an utterance that reaches this length.
	MaxUtterance time.Duration `yaml:"max_utterance" json:"max_utterance"`

	// TrimTrailingSilence drops the closing silence run from emitted utterances.
	TrimTrailingSilence bool `yaml:"trim_trailing_silence" json:"trim_trailing_silence"`
}

// DefaultConfig returns thresholds tuned for a desk microphone at 16 kHz
// with 100 ms chunks.
func DefaultConfig() Config {
	return Config{
		TriggerThreshold: 0.02,
		ReleaseThreshold: 0.01,
		SilenceRun:       8,
		MinUtterance:     300 * time.Millisecond,
		MaxUtterance:     15 * time.Second,
	}
}

// Validate checks the thresholds for consistency.
func (c Config) Validate() error {
	var errs []error
	if c.TriggerThreshold <= 0 || c.TriggerThreshold > 1 {
		errs = append(errs, fmt.Errorf("trigger_threshold must be in (0, 1], got %v", c.TriggerThreshold))
	}
	if c.ReleaseThreshold < 0 || c.ReleaseThreshold >= c.TriggerThreshold {
		errs = append(errs, fmt.Errorf("release_threshold must be in [0, trigger_threshold), got %v", c.ReleaseThreshold))
	}
	if c.SilenceRun < 1 {
		errs = append(errs, fmt.Errorf("silence_run must be at least 1, got %d", c.SilenceRun))
	}
	if c.MinUtterance < 0 {
		errs = append(errs, fmt.Errorf("min_utterance must not be negative, got %v", c.MinUtterance))
	}
	if c.MaxUtterance <= c.MinUtterance {
		errs = append(errs, fmt.Errorf("max_utterance (%v) must exceed min_utterance (%v)", c.MaxUtterance, c.MinUtterance))
	}
	return errors.Join(errs...)
}
