package camera

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"
)

var (
	// ErrDeviceUnavailable is returned when no camera can be opened.
	ErrDeviceUnavailable = errors.New("camera: device unavailable")

	// ErrNoFrame is returned by Handle.Read when the device produced nothing this cycle.
	ErrNoFrame = errors.New("camera: no frame")
)

// Frame is one captured image. Data is an owned JPEG buffer.
type Frame struct {
	Data       []byte
	Width      int
	Height     int
	Index      int
	CapturedAt time.Time
}

// Age returns how long ago the frame was captured.
func (f *Frame) Age(now time.Time) time.Duration {
	return now.Sub(f.CapturedAt)
}

// Device opens camera handles by index.
type Device interface {
	Open(index int) (Handle, error)
}

// Handle is an open camera.
type Handle interface {
	// Read captures one frame. Returns ErrNoFrame if the device had nothing to give.
	Read() (*Frame, error)

	// Index returns the OS index this handle was opened with.
	Index() int

	io.Closer
}

// Open opens the configured camera, probing 0..cfg.MaxProbeIndex when
// cfg.Index is ProbeIndex. The returned error wraps ErrDeviceUnavailable.
func Open(dev Device, cfg Config, logger *slog.Logger) (Handle, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Index != ProbeIndex {
		h, err := dev.Open(cfg.Index)
		if err != nil {
			return nil, fmt.Errorf("%w: index %d: %v", ErrDeviceUnavailable, cfg.Index, err)
		}
		return h, nil
	}

	for i := 0; i <= cfg.MaxProbeIndex; i++ {
		h, err := dev.Open(i)
		if err != nil {
			logger.Debug("camera probe failed", "index", i, "error", err)
			continue
		}
		logger.Info("camera found", "index", i)
		return h, nil
	}
	return nil, fmt.Errorf("%w: no camera at indices 0..%d", ErrDeviceUnavailable, cfg.MaxProbeIndex)
}

// FrameSlot holds the most recent frame. Store replaces; readers never see a
// partially written frame.
type FrameSlot struct {
	p atomic.Pointer[Frame]
}

// Store replaces the current frame.
func (s *FrameSlot) Store(f *Frame) {
	s.p.Store(f)
}

// Load returns the current frame, or nil.
func (s *FrameSlot) Load() *Frame {
	return s.p.Load()
}

// Clear empties the slot.
func (s *FrameSlot) Clear() {
	s.p.Store(nil)
}

// Fresh returns the current frame if it is no older than maxAge. A zero maxAge
// accepts any frame.
func (s *FrameSlot) Fresh(now time.Time, maxAge time.Duration) *Frame {
	f := s.p.Load()
	if f == nil {
		return nil
	}
	if maxAge > 0 && f.Age(now) > maxAge {
		return nil
	}
	return f
}

// Probe returns every index in 0..maxIndex that opens. Handles are closed
// again immediately.
func Probe(dev Device, maxIndex int) []int {
	var found []int
	for i := 0; i <= maxIndex; i++ {
		h, err := dev.Open(i)
		if err != nil {
			continue
		}
		_ = h.Close()
		found = append(found, i)
	}
	return found
}
