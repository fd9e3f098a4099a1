// Package camera captures still frames from a local camera for use as
// conversational context.
package camera

import (
	"fmt"
	"time"
)

// ProbeIndex asks the device to probe indices 0..MaxProbeIndex and use the first that opens.
const ProbeIndex = -1

// Config holds camera configuration parameters.
type Config struct {
	// Enabled turns camera capture on at startup.
	Enabled bool `yaml:"enabled" json:"enabled"`

	// Index is the OS camera index, or ProbeIndex to auto-detect.
	Index int `yaml:"index" json:"index"`

	// MaxProbeIndex is the highest index tried when probing.
	MaxProbeIndex int `yaml:"max_probe_index" json:"max_probe_index"`

	Width   int `yaml:"width" json:"width"`     // Requested frame width, 0 = driver default
	Height  int `yaml:"height" json:"height"`   // Requested frame height, 0 = driver default
	Quality int `yaml:"quality" json:"quality"` // JPEG quality 1-100

	// Mirror flips frames horizontally, matching what a user sees in a selfie view.
	Mirror bool `yaml:"mirror" json:"mirror"`

	// PollInterval is how often a frame is read into the latest-frame slot.
	PollInterval time.Duration `yaml:"poll_interval" json:"poll_interval"`

	// MaxFrameAge is the oldest frame that may be attached as context. 0 disables the check.
	MaxFrameAge time.Duration `yaml:"max_frame_age" json:"max_frame_age"`
}

// DefaultConfig returns the recommended configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:       true,
		Index:         ProbeIndex,
		MaxProbeIndex: 10,
		Width:         640,
		Height:        480,
		Quality:       80,
		Mirror:        true,
		PollInterval:  time.Second,
		MaxFrameAge:   5 * time.Second,
	}
}

// Validate checks if the config values are within valid ranges.
// Returns a list of validation errors, or nil if valid.
func (c *Config) Validate() []string {
	var errs []string

	if c.Index < ProbeIndex {
		errs = append(errs, fmt.Sprintf("index must be >= %d", ProbeIndex))
	}
	if c.MaxProbeIndex < 0 {
		errs = append(errs, "max_probe_index must not be negative")
	}
	if c.Width < 0 || c.Height < 0 {
		errs = append(errs, "width and height must not be negative")
	}
	if c.Quality < 1 || c.Quality > 100 {
		errs = append(errs, "quality must be between 1 and 100")
	}
	if c.PollInterval <= 0 {
		errs = append(errs, "poll_interval must be positive")
	}
	if c.MaxFrameAge < 0 {
		errs = append(errs, "max_frame_age must not be negative")
	}

	return errs
}
