package audioio

import (
	"context"
	"io"
)

// Sink plays audio to a speaker or other output device.
type Sink interface {
	// Start opens the output device.
	Start(ctx context.Context) error

	// Stop halts playback. It is safe to call Stop multiple times.
	Stop() error

	// Write queues a chunk for playback. Chunks must match Config().
	Write(ctx context.Context, chunk AudioChunk) error

	// Flush blocks until all queued audio has been played.
	Flush(ctx context.Context) error

	// Clear discards queued audio immediately.
	Clear() error

	// Config returns the current audio configuration.
	Config() Config

	// Name returns the backend name ("malgo", "mock").
	Name() string

	io.Closer
}

// SinkStats contains statistics about the audio sink.
type SinkStats struct {
	ChunksWritten  int64 `json:"chunks_written"`
	SamplesWritten int64 `json:"samples_written"`

	// Underruns counts device callbacks that found the queue empty mid-playback.
	Underruns int64 `json:"underruns"`

	Running         bool   `json:"running"`
	Backend         string `json:"backend"`
	BufferedSamples int64  `json:"buffered_samples"`
}

// SinkWithStats extends Sink with statistics.
type SinkWithStats interface {
	Sink
	Stats() SinkStats
}
