package tts

import (
	"context"
	"sync"
	"time"

	"github.com/teslashibe/go-jarvis/pkg/audioio"
)

// MockCharDuration is how much audio NewMock produces per character.
const MockCharDuration = 20 * time.Millisecond

const mockRate = 24000

// Mock is an in-memory Provider that records every call.
// With a nil SynthesizeFunc it fails with ErrProviderUnavailable.
type Mock struct {
	SynthesizeFunc func(ctx context.Context, text string) (*AudioResult, error)
	HealthFunc     func(ctx context.Context) error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall is one recorded invocation.
type MockCall struct {
	Method string
	Text   string
	At     time.Time
}

// NewMock returns a mock that answers with a quiet 24 kHz tone,
// MockCharDuration per character, so playback takes a predictable time.
func NewMock() *Mock {
	return &Mock{SynthesizeFunc: quietTone}
}

// WithError returns a mock whose Synthesize and Health both fail with err.
func WithError(err error) *Mock {
	return &Mock{
		SynthesizeFunc: func(context.Context, string) (*AudioResult, error) { return nil, err },
		HealthFunc:     func(context.Context) error { return err },
	}
}

// WithLatency delays every Synthesize on m by d, honouring cancellation.
func WithLatency(m *Mock, d time.Duration) *Mock {
	next := m.SynthesizeFunc
	m.SynthesizeFunc = func(ctx context.Context, text string) (*AudioResult, error) {
		t := time.NewTimer(d)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-t.C:
		}
		if next == nil {
			return nil, wrap("mock", ErrProviderUnavailable)
		}
		return next(ctx, text)
	}
	return m
}

func quietTone(_ context.Context, text string) (*AudioResult, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	samples := make([]int16, len(text)*int(MockCharDuration)*mockRate/int(time.Second))
	audioio.FillAmplitude(samples, 0.05)
	return &AudioResult{
		Audio:     audioio.SamplesToBytes(samples),
		Format:    AudioFormat{Encoding: EncodingPCM24, SampleRate: mockRate, Channels: 1, BitDepth: 16},
		CharCount: len(text),
		Duration:  time.Duration(len(text)) * MockCharDuration,
	}, nil
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	m.record("Synthesize", text)
	if m.SynthesizeFunc == nil {
		return nil, wrap("mock", ErrProviderUnavailable)
	}
	return m.SynthesizeFunc(ctx, text)
}

func (m *Mock) Health(ctx context.Context) error {
	m.record("Health", "")
	if m.HealthFunc == nil {
		return nil
	}
	return m.HealthFunc(ctx)
}

func (m *Mock) Close() error {
	m.record("Close", "")
	return nil
}

func (m *Mock) record(method, text string) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Method: method, Text: text, At: time.Now()})
	m.mu.Unlock()
}

// Calls returns a copy of every recorded call.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// CallCount counts recorded calls of method.
func (m *Mock) CallCount(method string) int {
	n := 0
	for _, c := range m.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// Texts returns the text of every Synthesize call, in order.
func (m *Mock) Texts() []string {
	var out []string
	for _, c := range m.Calls() {
		if c.Method == "Synthesize" {
			out = append(out, c.Text)
		}
	}
	return out
}

// Reset forgets recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}

var _ Provider = (*Mock)(nil)
