// Package audioio provides microphone capture and speaker playback.
//
// Backends:
//   - malgo (miniaudio): ALSA/PulseAudio on Linux, CoreAudio on macOS, WASAPI on Windows
//   - mock: scripted audio for CI and tests
package audioio

import (
	"fmt"
	"time"
)

// Backend represents the audio backend type.
type Backend string

const (
	// BackendAuto selects malgo.
	BackendAuto Backend = "auto"
	// BackendMalgo uses miniaudio through gen2brain/malgo.
	BackendMalgo Backend = "malgo"
	// BackendMock uses a mock implementation for testing.
	BackendMock Backend = "mock"
)

// DeviceFirst selects the first device of the requested kind instead of the system default.
const DeviceFirst = "first"

// Config holds audio device configuration.
type Config struct {
	// Backend specifies which audio backend to use.
	Backend Backend `yaml:"backend" json:"backend"`

	// SampleRate is the audio sample rate in Hz.
	SampleRate int `yaml:"sample_rate" json:"sample_rate"`

	// Channels is the number of audio channels.
	Channels int `yaml:"channels" json:"channels"`

	// ChunkDuration is the length of each delivered chunk.
	ChunkDuration time.Duration `yaml:"chunk_duration" json:"chunk_duration"`

	// Device selects the device:
	//   - "": system default
	//   - "first": first device reported by the backend
	//   - "2": device index as listed by cmd/devices
	//   - any other string: case-insensitive substring of the device name
	Device string `yaml:"device" json:"device"`
}

// DefaultConfig returns the capture defaults: 16 kHz mono in 100 ms chunks.
func DefaultConfig() Config {
	return Config{
		Backend:       BackendAuto,
		SampleRate:    16000,
		Channels:      1,
		ChunkDuration: 100 * time.Millisecond,
	}
}

// DefaultSinkConfig returns the playback defaults, matching OpenAI PCM speech output.
func DefaultSinkConfig() Config {
	return Config{
		Backend:       BackendAuto,
		SampleRate:    24000,
		Channels:      1,
		ChunkDuration: 20 * time.Millisecond,
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels <= 0 {
		return fmt.Errorf("channels must be positive, got %d", c.Channels)
	}
	if c.ChunkDuration <= 0 {
		return fmt.Errorf("chunk_duration must be positive, got %v", c.ChunkDuration)
	}
	if c.FramesPerChunk() == 0 {
		return fmt.Errorf("chunk_duration %v is shorter than one sample at %d Hz", c.ChunkDuration, c.SampleRate)
	}
	switch c.Backend {
	case "", BackendAuto, BackendMalgo, BackendMock:
	default:
		return fmt.Errorf("unsupported backend %q", c.Backend)
	}
	return nil
}

// FramesPerChunk returns the number of frames (samples per channel) in one chunk.
func (c *Config) FramesPerChunk() int {
	return int(float64(c.SampleRate) * c.ChunkDuration.Seconds())
}

// ChunkSamples returns the number of interleaved samples in one chunk.
func (c *Config) ChunkSamples() int {
	return c.FramesPerChunk() * c.Channels
}
