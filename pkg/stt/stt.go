// Package stt turns closed utterances into text.
package stt

import (
	"context"
	"errors"
	"fmt"

	"github.com/teslashibe/go-jarvis/internal/httpc"
	"github.com/teslashibe/go-jarvis/pkg/vad"
)

// ErrTranscription is wrapped by every Transcribe failure.
var ErrTranscription = errors.New("stt: transcription failed")

// ErrEmptyUtterance is returned for utterances with no samples.
var ErrEmptyUtterance = errors.New("stt: empty utterance")

// Transcriber converts an utterance into text.
// An empty string with a nil error means nothing intelligible was said.
type Transcriber interface {
	Transcribe(ctx context.Context, u *vad.Utterance) (string, error)
}

// APIError is a non-2xx answer from a transcription endpoint.
type APIError = httpc.APIError

func transcriptionError(err error) error {
	return fmt.Errorf("%w: %w", ErrTranscription, err)
}
