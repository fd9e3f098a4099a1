package httpc

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	oai "github.com/openai/openai-go"
)

// APIError is a non-2xx answer from a provider API.
type APIError struct {
	// Service is the capability that made the call: "stt", "inference" or "tts".
	Service    string
	Provider   string
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s [%s]: status %d", e.Service, e.Provider, e.StatusCode)
	if e.Code != "" {
		fmt.Fprintf(&b, " (%s)", e.Code)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// IsUnauthorized reports a rejected or missing key.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// IsRateLimited reports HTTP 429.
func (e *APIError) IsRateLimited() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsRetryable reports throttling and server faults.
func (e *APIError) IsRetryable() bool {
	return e.IsRateLimited() || e.StatusCode >= http.StatusInternalServerError
}

// ProviderError tags a transport, encoding or empty-answer failure with the
// provider that produced it.
type ProviderError struct {
	Service  string
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s [%s]: %v", e.Service, e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Wrap returns err tagged with service and provider, or nil for a nil err.
func Wrap(service, provider string, err error) error {
	if err == nil {
		return nil
	}
	return &ProviderError{Service: service, Provider: provider, Err: err}
}

// FromOpenAI converts an openai-go API error into an APIError.
// Any other error is wrapped with Wrap.
func FromOpenAI(service string, err error) error {
	var apiErr *oai.Error
	if errors.As(err, &apiErr) {
		return &APIError{
			Service:    service,
			Provider:   "openai",
			StatusCode: apiErr.StatusCode,
			Code:       apiErr.Code,
			Message:    apiErr.Message,
		}
	}
	return Wrap(service, "openai", err)
}
