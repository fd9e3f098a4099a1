package inference

import (
	"errors"
	"fmt"
	"strings"

	"github.com/teslashibe/go-jarvis/internal/httpc"
)

var (
	// ErrResponse is wrapped by every Respond failure.
	ErrResponse = errors.New("inference: response generation failed")

	ErrNoAPIKey   = errors.New("inference: API key required")
	ErrNoModel    = errors.New("inference: model required")
	ErrEmptyReply = errors.New("inference: empty reply")

	ErrNoResponders = errors.New("inference: no responders configured")
)

// APIError is a non-2xx answer from the chat endpoint.
type APIError = httpc.APIError

// ChainError collects the failure of every responder in a Chain, in order.
type ChainError struct {
	Errors []error
}

func (e *ChainError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("inference: all %d responders failed: %s", len(e.Errors), strings.Join(msgs, "; "))
}

// Unwrap exposes ErrResponse and every responder error to errors.Is and errors.As.
func (e *ChainError) Unwrap() []error {
	return append([]error{ErrResponse}, e.Errors...)
}

func responseError(err error) error {
	return fmt.Errorf("%w: %w", ErrResponse, err)
}
