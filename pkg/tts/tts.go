// Package tts provides a unified interface for text-to-speech providers.
//
// Providers return encoded audio in an AudioResult; PCM converts it to raw
// samples for playback regardless of the wire encoding (PCM, WAV or Ogg/Opus).
//
// Example usage:
//
//	provider, _ := tts.NewOpenAI(
//	    tts.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    tts.WithVoice(tts.VoiceOnyx),
//	)
//	defer provider.Close()
//
//	result, _ := provider.Synthesize(ctx, "Yes, sir.")
//	chunk, _ := result.PCM()
package tts

import (
	"context"
	"fmt"
	"time"

	"github.com/teslashibe/go-jarvis/pkg/audioio"
)

// Provider defines the TTS provider interface.
type Provider interface {
	// Synthesize converts text to audio, returning the complete audio buffer.
	Synthesize(ctx context.Context, text string) (*AudioResult, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the provider.
	Close() error
}

// AudioResult represents a complete audio synthesis result.
type AudioResult struct {
	// Audio contains the raw audio data in the specified format.
	Audio []byte

	// Format describes the audio encoding and sample rate.
	Format AudioFormat

	// Duration is the estimated audio playback duration.
	Duration time.Duration

	// CharCount is the number of characters synthesized.
	CharCount int

	// LatencyMs is the request latency in milliseconds.
	LatencyMs int64
}

// PCM decodes the result into PCM16 samples.
func (r *AudioResult) PCM() (audioio.AudioChunk, error) {
	switch r.Format.Encoding {
	case EncodingPCM16, EncodingPCM22, EncodingPCM24, EncodingPCM44:
		channels := r.Format.Channels
		if channels == 0 {
			channels = 1
		}
		var c audioio.AudioChunk
		c.FromBytes(r.Audio, SampleRateFromEncoding(r.Format.Encoding), channels)
		return c, nil
	case EncodingWAV:
		return audioio.DecodeWAV(r.Audio)
	case EncodingOpus:
		return DecodeOpus(r.Audio)
	default:
		return audioio.AudioChunk{}, fmt.Errorf("tts: cannot decode %q to PCM", r.Format.Encoding)
	}
}

// AudioFormat describes the audio encoding parameters.
type AudioFormat struct {
	// Encoding specifies the audio codec (e.g., pcm_24000, opus).
	Encoding Encoding

	// SampleRate in Hz (e.g., 24000, 44100, 22050).
	SampleRate int

	// Channels is 1 for mono, 2 for stereo.
	Channels int

	// BitDepth for PCM formats (e.g., 16 for PCM16).
	BitDepth int
}

// Encoding represents audio encoding types.
type Encoding string

const (
	// PCM formats (raw little-endian PCM16 mono, lowest latency)
	EncodingPCM16 Encoding = "pcm_16000"
	EncodingPCM22 Encoding = "pcm_22050"
	EncodingPCM24 Encoding = "pcm_24000"
	EncodingPCM44 Encoding = "pcm_44100"

	// Container/compressed formats
	EncodingWAV  Encoding = "wav"
	EncodingOpus Encoding = "opus" // Ogg/Opus, decoded at 48kHz
)

// SampleRateFromEncoding extracts the sample rate from an encoding type.
func SampleRateFromEncoding(enc Encoding) int {
	switch enc {
	case EncodingPCM16:
		return 16000
	case EncodingPCM22:
		return 22050
	case EncodingPCM24:
		return 24000
	case EncodingPCM44:
		return 44100
	case EncodingOpus:
		return opusSampleRate
	default:
		return 24000
	}
}

// estimatePCMDuration estimates playback time of mono PCM16 bytes.
func estimatePCMDuration(n int, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(n/2) * time.Second / time.Duration(sampleRate)
}
