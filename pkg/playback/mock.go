package playback

import (
	"context"
	"sync"
	"time"
)

// Mock implements Speaker for tests. It records every phrase and can
// simulate playback time and failures.
type Mock struct {
	// Delay simulates playback duration.
	Delay time.Duration

	// Err, when set, is returned (wrapped in ErrPlayback) after Delay.
	Err error

	// OnSpeak is called at the start of every Speak.
	OnSpeak func(text string)

	mu     sync.Mutex
	spoken []string
}

// NewMock creates a mock speaker that returns immediately.
func NewMock() *Mock {
	return &Mock{}
}

// Speak records text and waits Delay or until ctx is done.
func (m *Mock) Speak(ctx context.Context, text string) error {
	m.mu.Lock()
	m.spoken = append(m.spoken, text)
	onSpeak, delay, err := m.OnSpeak, m.Delay, m.Err
	m.mu.Unlock()

	if onSpeak != nil {
		onSpeak(text)
	}
	if delay > 0 {
		select {
		case <-ctx.Done():
			return errorf(ctx.Err())
		case <-time.After(delay):
		}
	}
	if err != nil {
		return errorf(err)
	}
	return nil
}

// Spoken returns every phrase passed to Speak, in order.
func (m *Mock) Spoken() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.spoken...)
}

var _ Speaker = (*Mock)(nil)
