// Package playback speaks text through a TTS provider and an audio sink.
package playback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-jarvis/pkg/audioio"
	"github.com/teslashibe/go-jarvis/pkg/tts"
)

// ErrPlayback is wrapped by every Speak failure.
var ErrPlayback = errors.New("playback: failed")

// Speaker renders text as audible speech. Speak blocks until playback has
// finished or ctx is done.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// TTSSpeaker synthesizes with a tts.Provider and plays on an audioio.Sink.
// Calls to Speak are serialized.
type TTSSpeaker struct {
	provider tts.Provider
	sink     audioio.Sink
	logger   *slog.Logger

	mu sync.Mutex

	// OnSynthesized, when set, is called after synthesis and before the first
	// sample is written.
	OnSynthesized func(latency time.Duration)
}

// NewTTSSpeaker creates a speaker. The sink must already be started.
func NewTTSSpeaker(provider tts.Provider, sink audioio.Sink, logger *slog.Logger) *TTSSpeaker {
	if logger == nil {
		logger = slog.Default()
	}
	return &TTSSpeaker{
		provider: provider,
		sink:     sink,
		logger:   logger.With("component", "playback.speaker"),
	}
}

// Speak synthesizes text and blocks until the sink has drained.
// On cancellation the queued audio is cleared.
func (s *TTSSpeaker) Speak(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	result, err := s.provider.Synthesize(ctx, text)
	if err != nil {
		return fmt.Errorf("%w: synthesize: %w", ErrPlayback, err)
	}
	pcm, err := result.PCM()
	if err != nil {
		return fmt.Errorf("%w: decode: %w", ErrPlayback, err)
	}
	if s.OnSynthesized != nil {
		s.OnSynthesized(time.Since(start))
	}

	cfg := s.sink.Config()
	samples := Convert(pcm, cfg)

	step := cfg.ChunkSamples()
	if step <= 0 {
		step = len(samples)
	}
	for off := 0; off < len(samples); off += step {
		end := min(off+step, len(samples))
		chunk := audioio.AudioChunk{
			Samples:    samples[off:end],
			SampleRate: cfg.SampleRate,
			Channels:   cfg.Channels,
		}
		if err := s.sink.Write(ctx, chunk); err != nil {
			_ = s.sink.Clear()
			return fmt.Errorf("%w: write: %w", ErrPlayback, err)
		}
	}

	if err := s.sink.Flush(ctx); err != nil {
		_ = s.sink.Clear()
		return fmt.Errorf("%w: flush: %w", ErrPlayback, err)
	}

	s.logger.Debug("spoke",
		"chars", len(text),
		"audio_ms", pcm.Duration().Milliseconds(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Convert turns decoded speech into interleaved samples matching cfg.
func Convert(pcm audioio.AudioChunk, cfg audioio.Config) []int16 {
	channels := pcm.Channels
	if channels <= 0 {
		channels = 1
	}
	mono := audioio.ToMono(pcm.Samples, channels)
	if pcm.SampleRate > 0 {
		mono = audioio.Resample(mono, pcm.SampleRate, cfg.SampleRate)
	}
	return audioio.FromMono(mono, cfg.Channels)
}

var _ Speaker = (*TTSSpeaker)(nil)

func errorf(err error) error {
	return fmt.Errorf("%w: %w", ErrPlayback, err)
}
