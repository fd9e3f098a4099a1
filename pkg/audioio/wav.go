package audioio

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/youpy/go-wav"
)

// EncodeWAV wraps interleaved PCM16 samples in a RIFF/WAVE container.
func EncodeWAV(samples []int16, sampleRate, channels int) ([]byte, error) {
	if channels <= 0 || sampleRate <= 0 {
		return nil, fmt.Errorf("invalid wav format: %d Hz, %d channels", sampleRate, channels)
	}

	frames := len(samples) / channels
	var buf bytes.Buffer
	w := wav.NewWriter(&buf, uint32(frames), uint16(channels), uint32(sampleRate), 16)

	out := make([]wav.Sample, frames)
	for i := range out {
		for ch := 0; ch < channels && ch < 2; ch++ {
			out[i].Values[ch] = int(samples[i*channels+ch])
		}
	}
	if err := w.WriteSamples(out); err != nil {
		return nil, fmt.Errorf("write wav samples: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeWAV reads a 16-bit PCM WAVE file into an AudioChunk.
func DecodeWAV(data []byte) (AudioChunk, error) {
	r := wav.NewReader(bytes.NewReader(data))

	format, err := r.Format()
	if err != nil {
		return AudioChunk{}, fmt.Errorf("read wav format: %w", err)
	}
	if format.BitsPerSample != 16 {
		return AudioChunk{}, fmt.Errorf("unsupported wav bit depth %d", format.BitsPerSample)
	}

	channels := int(format.NumChannels)
	chunk := AudioChunk{
		SampleRate: int(format.SampleRate),
		Channels:   channels,
	}

	for {
		samples, err := r.ReadSamples()
		for _, s := range samples {
			for ch := 0; ch < channels; ch++ {
				chunk.Samples = append(chunk.Samples, int16(r.IntValue(s, uint(ch))))
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return AudioChunk{}, fmt.Errorf("read wav samples: %w", err)
		}
	}
	return chunk, nil
}
