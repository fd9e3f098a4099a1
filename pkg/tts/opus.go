package tts

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"gopkg.in/hraban/opus.v2"

	"github.com/teslashibe/go-jarvis/pkg/audioio"
)

// Opus always decodes at 48 kHz regardless of the encoder's input rate.
const opusSampleRate = 48000

// opusFrameSamples is the largest Opus frame (120 ms) at 48 kHz, per channel.
const opusFrameSamples = opusSampleRate * 120 / 1000

// DecodeOpus decodes an Ogg/Opus stream to interleaved PCM16 at 48 kHz.
// The channel count is taken from the OpusHead header.
func DecodeOpus(data []byte) (audioio.AudioChunk, error) {
	channels := opusChannels(data)
	if channels == 0 {
		return audioio.AudioChunk{}, errors.New("tts: opus: missing OpusHead header")
	}

	stream, err := opus.NewStream(bytes.NewReader(data))
	if err != nil {
		return audioio.AudioChunk{}, fmt.Errorf("tts: opus: open stream: %w", err)
	}
	defer stream.Close()

	buf := make([]int16, opusFrameSamples*channels)
	var out []int16
	for {
		n, err := stream.Read(buf)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return audioio.AudioChunk{}, fmt.Errorf("tts: opus: decode: %w", err)
		}
		out = append(out, buf[:n*channels]...)
	}

	return audioio.AudioChunk{
		Samples:    out,
		SampleRate: opusSampleRate,
		Channels:   channels,
	}, nil
}

// opusChannels reads the channel count byte that follows the 8-byte
// "OpusHead" magic and the version byte. Returns 0 if no header is found.
func opusChannels(data []byte) int {
	i := bytes.Index(data, []byte("OpusHead"))
	if i < 0 || i+9 >= len(data) {
		return 0
	}
	return int(data[i+9])
}
