package inference

import (
	"context"
	"sync"

	"github.com/teslashibe/go-jarvis/pkg/camera"
)

// Mock is an in-memory Responder that records every request.
// With a nil RespondFunc it answers "You said: <prompt>".
type Mock struct {
	RespondFunc func(ctx context.Context, prompt string, frame *camera.Frame) (string, error)
	HealthFunc  func(ctx context.Context) error

	mu    sync.Mutex
	calls []MockCall
}

// MockCall is one recorded invocation. Frame is the pointer Respond received.
type MockCall struct {
	Method string
	Prompt string
	Frame  *camera.Frame
}

func NewMock() *Mock {
	return &Mock{}
}

// WithError returns a mock whose Respond and Health both fail with err.
func WithError(err error) *Mock {
	return &Mock{
		RespondFunc: func(context.Context, string, *camera.Frame) (string, error) { return "", err },
		HealthFunc:  func(context.Context) error { return err },
	}
}

func (m *Mock) Respond(ctx context.Context, prompt string, frame *camera.Frame) (string, error) {
	m.record(MockCall{Method: "Respond", Prompt: prompt, Frame: frame})
	if m.RespondFunc == nil {
		return "You said: " + prompt, nil
	}
	return m.RespondFunc(ctx, prompt, frame)
}

func (m *Mock) Health(ctx context.Context) error {
	m.record(MockCall{Method: "Health"})
	if m.HealthFunc == nil {
		return nil
	}
	return m.HealthFunc(ctx)
}

func (m *Mock) Close() error {
	m.record(MockCall{Method: "Close"})
	return nil
}

func (m *Mock) record(c MockCall) {
	m.mu.Lock()
	m.calls = append(m.calls, c)
	m.mu.Unlock()
}

// Calls returns a copy of every recorded call.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

func (m *Mock) CallCount(method string) int {
	n := 0
	for _, c := range m.Calls() {
		if c.Method == method {
			n++
		}
	}
	return n
}

// LastCall returns the most recent Respond call, or nil if there was none.
func (m *Mock) LastCall() *MockCall {
	calls := m.Calls()
	for i := len(calls) - 1; i >= 0; i-- {
		if calls[i].Method == "Respond" {
			return &calls[i]
		}
	}
	return nil
}

func (m *Mock) Reset() {
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}

var _ Responder = (*Mock)(nil)
