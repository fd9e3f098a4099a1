package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/teslashibe/go-jarvis/pkg/audioio"
	"github.com/teslashibe/go-jarvis/pkg/metrics"
)

// dropLogEvery throttles the overflow warning.
const dropLogEvery = 50

// AudioProducer reads chunks from an audio source into a ChunkQueue.
type AudioProducer struct {
	src     audioio.Source
	queue   *ChunkQueue
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewAudioProducer creates a producer that owns src and feeds queue.
func NewAudioProducer(src audioio.Source, queue *ChunkQueue, logger *slog.Logger, m *metrics.Metrics) *AudioProducer {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.Discard()
	}
	return &AudioProducer{
		src:     src,
		queue:   queue,
		logger:  logger.With("component", "capture.audio"),
		metrics: m,
	}
}

// Open starts the audio source. Failure is returned wrapped in
// audioio.ErrDeviceUnavailable and the source is released.
func (p *AudioProducer) Open(ctx context.Context) error {
	if err := p.src.Start(ctx); err != nil {
		_ = p.src.Close()
		if errors.Is(err, audioio.ErrDeviceUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", audioio.ErrDeviceUnavailable, err)
	}
	cfg := p.src.Config()
	p.logger.Info("audio capture started",
		"backend", p.src.Name(),
		"sample_rate", cfg.SampleRate,
		"channels", cfg.Channels,
		"chunk_ms", cfg.ChunkDuration.Milliseconds(),
		"queue_size", p.queue.Cap(),
	)
	return nil
}

// Run moves chunks from the source into the queue until ctx is cancelled.
// It closes the source and the queue on every exit path. Call Open first.
func (p *AudioProducer) Run(ctx context.Context) error {
	defer p.queue.Close()
	defer p.src.Close()

	retry := p.src.Config().ChunkDuration
	for {
		if ctx.Err() != nil {
			return nil
		}

		chunk, err := p.src.Read(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: audio source closed", audioio.ErrDeviceUnavailable)
			}
			p.metrics.SourceErrors.Inc()
			p.logger.Warn("audio read failed", "error", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(retry):
			}
			continue
		}

		if err := p.queue.Offer(chunk); err != nil {
			p.metrics.ChunksDropped.Inc()
			if n := p.queue.Drops(); n%dropLogEvery == 1 {
				p.logger.Warn("chunk queue full, dropping newest", "drops", n)
			}
			continue
		}
		p.metrics.ChunksCaptured.Inc()
	}
}
