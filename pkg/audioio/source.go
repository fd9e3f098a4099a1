package audioio

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrDeviceUnavailable is returned when an audio device cannot be opened.
var ErrDeviceUnavailable = errors.New("audioio: device unavailable")

// AudioChunk is one fixed-duration block of PCM16 audio.
// Samples are owned by the chunk; producers copy them out of driver buffers.
type AudioChunk struct {
	// Samples contains interleaved PCM16 samples.
	Samples []int16

	// SampleRate is the sample rate of this chunk.
	SampleRate int

	// Channels is the number of channels in this chunk.
	Channels int

	// CapturedAt is when the last sample of the chunk arrived from the device.
	CapturedAt time.Time
}

// Bytes returns the raw little-endian bytes of the audio chunk.
func (c *AudioChunk) Bytes() []byte {
	return SamplesToBytes(c.Samples)
}

// FromBytes populates the chunk from raw PCM16 bytes.
func (c *AudioChunk) FromBytes(data []byte, sampleRate, channels int) {
	c.SampleRate = sampleRate
	c.Channels = channels
	c.Samples = BytesToSamples(data)
}

// Duration returns the playback duration of the chunk.
func (c *AudioChunk) Duration() time.Duration {
	if c.SampleRate == 0 || c.Channels == 0 {
		return 0
	}
	frames := len(c.Samples) / c.Channels
	return time.Duration(frames) * time.Second / time.Duration(c.SampleRate)
}

// MeanAbs returns the mean absolute amplitude of the chunk, normalized to 0..1.
func (c *AudioChunk) MeanAbs() float64 {
	return MeanAbs(c.Samples)
}

// Source captures audio from a microphone or other input device.
type Source interface {
	// Start opens the device and begins capture.
	// Returns an error wrapping ErrDeviceUnavailable if the device cannot be opened.
	Start(ctx context.Context) error

	// Stop halts capture. It is safe to call Stop multiple times.
	Stop() error

	// Read returns the next chunk, blocking until one is available.
	// Returns io.EOF once the source is stopped.
	Read(ctx context.Context) (AudioChunk, error)

	// Config returns the current audio configuration.
	Config() Config

	// Name returns the backend name ("malgo", "mock").
	Name() string

	// Close releases the device. After Close, the source cannot be restarted.
	io.Closer
}

// SourceStats contains statistics about the audio source.
type SourceStats struct {
	ChunksRead  int64 `json:"chunks_read"`
	SamplesRead int64 `json:"samples_read"`

	// Overruns counts chunks the backend dropped because nobody was reading.
	Overruns int64 `json:"overruns"`

	Running bool   `json:"running"`
	Backend string `json:"backend"`
}

// SourceWithStats extends Source with statistics.
type SourceWithStats interface {
	Source
	Stats() SourceStats
}
