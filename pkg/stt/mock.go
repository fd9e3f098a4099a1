package stt

import (
	"context"
	"sync"

	"github.com/teslashibe/go-jarvis/pkg/vad"
)

// Mock implements Transcriber for testing and offline runs.
// Transcripts are returned in order; once exhausted, Default is returned.
type Mock struct {
	// TranscribeFunc overrides the scripted behaviour when set.
	TranscribeFunc func(ctx context.Context, u *vad.Utterance) (string, error)

	// Default is returned after the script runs out.
	Default string

	mu     sync.Mutex
	script []string
	seen   []string
}

// NewMock returns a mock that replies with transcripts in order.
func NewMock(transcripts ...string) *Mock {
	return &Mock{script: append([]string(nil), transcripts...)}
}

// WithError returns a mock that always fails with err.
func WithError(err error) *Mock {
	return &Mock{
		TranscribeFunc: func(ctx context.Context, u *vad.Utterance) (string, error) {
			return "", transcriptionError(err)
		},
	}
}

// Transcribe returns the next scripted transcript.
func (m *Mock) Transcribe(ctx context.Context, u *vad.Utterance) (string, error) {
	m.mu.Lock()
	if u != nil {
		m.seen = append(m.seen, u.ID)
	}
	fn := m.TranscribeFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, u)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.script) == 0 {
		return m.Default, nil
	}
	text := m.script[0]
	m.script = m.script[1:]
	return text, nil
}

// Utterances returns the IDs of every utterance passed to Transcribe.
func (m *Mock) Utterances() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.seen...)
}

var _ Transcriber = (*Mock)(nil)
