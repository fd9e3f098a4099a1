package tts

import (
	"errors"

	"github.com/teslashibe/go-jarvis/internal/httpc"
)

var (
	ErrNoAPIKey            = errors.New("tts: API key required")
	ErrNoVoiceID           = errors.New("tts: voice ID required")
	ErrEmptyText           = errors.New("tts: empty text")
	ErrProviderUnavailable = errors.New("tts: no providers available")
)

// APIError is a non-2xx answer from a speech endpoint.
// A Chain parks providers whose error reports IsUnauthorized.
type APIError = httpc.APIError

func wrap(provider string, err error) error {
	return httpc.Wrap("tts", provider, err)
}
