package camera

import (
	"errors"
	"sync"
	"time"
)

// MockDevice is a scripted camera for tests.
type MockDevice struct {
	mu sync.Mutex

	// Available lists the indices that open successfully.
	Available map[int]bool

	// Frame is returned by every Read; nil means ErrNoFrame.
	Frame []byte

	// ReadErr, if set, is returned by Read instead of a frame.
	ReadErr error

	opened  []int
	handles []*MockHandle
}

// NewMockDevice returns a device with a camera at each of the given indices.
func NewMockDevice(indices ...int) *MockDevice {
	d := &MockDevice{
		Available: make(map[int]bool),
		Frame:     []byte{0xFF, 0xD8, 0xFF, 0xD9},
	}
	for _, i := range indices {
		d.Available[i] = true
	}
	return d
}

// Open opens index if it is marked available.
func (d *MockDevice) Open(index int) (Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.opened = append(d.opened, index)
	if !d.Available[index] {
		return nil, errors.New("no such camera")
	}
	h := &MockHandle{dev: d, index: index}
	d.handles = append(d.handles, h)
	return h, nil
}

// Attempts returns every index Open was called with.
func (d *MockDevice) Attempts() []int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]int(nil), d.opened...)
}

// Handles returns every handle opened so far.
func (d *MockDevice) Handles() []*MockHandle {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]*MockHandle(nil), d.handles...)
}

// MockHandle is a handle returned by MockDevice.
type MockHandle struct {
	dev    *MockDevice
	index  int
	mu     sync.Mutex
	reads  int
	closed bool
}

func (h *MockHandle) Read() (*Frame, error) {
	h.mu.Lock()
	h.reads++
	closed := h.closed
	h.mu.Unlock()

	if closed {
		return nil, ErrDeviceUnavailable
	}

	h.dev.mu.Lock()
	defer h.dev.mu.Unlock()

	if h.dev.ReadErr != nil {
		return nil, h.dev.ReadErr
	}
	if h.dev.Frame == nil {
		return nil, ErrNoFrame
	}
	return &Frame{
		Data:       append([]byte(nil), h.dev.Frame...),
		Width:      640,
		Height:     480,
		Index:      h.index,
		CapturedAt: time.Now(),
	}, nil
}

func (h *MockHandle) Index() int { return h.index }

func (h *MockHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

// Reads returns how many times Read was called.
func (h *MockHandle) Reads() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.reads
}

// Closed reports whether Close was called.
func (h *MockHandle) Closed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

var _ Device = (*MockDevice)(nil)
