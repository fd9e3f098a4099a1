// Package assistant runs the capture, gate and dispatch pipeline.
//
// The Supervisor owns the background tasks: audio capture feeds a bounded
// chunk queue, the gate loop turns chunks into utterances, and the
// Coordinator transcribes, routes and answers them one at a time. Camera
// capture runs beside them and only ever fills a single-slot frame buffer.
package assistant

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// State is the pipeline mode.
type State int32

const (
	// Idle waits for speech.
	Idle State = iota
	// Listening means the gate has opened on user speech while idle.
	Listening
	// Processing covers transcription, routing and response generation.
	Processing
	// Speaking means playback is in progress; gate emission is suppressed.
	Speaking
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Listening:
		return "listening"
	case Processing:
		return "processing"
	case Speaking:
		return "speaking"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "idle":
		*s = Idle
	case "listening":
		*s = Listening
	case "processing":
		*s = Processing
	case "speaking":
		*s = Speaking
	default:
		return fmt.Errorf("unknown state %q", b)
	}
	return nil
}

// Transition describes one change of the shared pair.
type Transition struct {
	From          State     `json:"from"`
	To            State     `json:"to"`
	CameraEnabled bool      `json:"camera_enabled"`
	At            time.Time `json:"at"`
}

// Snapshot is a consistent read of the shared pair.
type Snapshot struct {
	State         State     `json:"state"`
	Since         time.Time `json:"since"`
	CameraEnabled bool      `json:"camera_enabled"`
}

// Shared holds the assistant state and the camera toggle under one mutex.
// Only the Coordinator mutates it; anything may read it.
type Shared struct {
	// notifyMu orders transitions and their observer calls.
	notifyMu sync.Mutex

	mu            sync.Mutex
	state         State
	since         time.Time
	cameraEnabled bool
	observers     []func(Transition)
}

// NewShared creates the shared pair in Idle.
func NewShared(cameraEnabled bool) *Shared {
	return &Shared{
		state:         Idle,
		since:         time.Now(),
		cameraEnabled: cameraEnabled,
	}
}

// State returns the current state.
func (s *Shared) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CameraEnabled reports whether camera context is on.
func (s *Shared) CameraEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cameraEnabled
}

// Snapshot returns state and camera toggle read together.
func (s *Shared) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{State: s.state, Since: s.since, CameraEnabled: s.cameraEnabled}
}

// Observe registers fn to be called after every change, in order.
// fn may read Shared but must not block for long.
func (s *Shared) Observe(fn func(Transition)) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// update applies fn under the lock and notifies observers if it changed anything.
// fn returns false to leave the pair untouched.
func (s *Shared) update(fn func(state *State, camera *bool) bool) bool {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	s.mu.Lock()
	from, cam := s.state, s.cameraEnabled
	if !fn(&s.state, &s.cameraEnabled) || (s.state == from && s.cameraEnabled == cam) {
		s.mu.Unlock()
		return false
	}
	now := time.Now()
	if s.state != from {
		s.since = now
	}
	t := Transition{From: from, To: s.state, CameraEnabled: s.cameraEnabled, At: now}
	observers := s.observers
	s.mu.Unlock()

	for _, fn := range observers {
		fn(t)
	}
	return true
}

// set moves to state unconditionally.
func (s *Shared) set(to State) {
	s.update(func(state *State, _ *bool) bool {
		*state = to
		return true
	})
}

// begin moves Idle or Listening to Processing. It reports false when busy.
func (s *Shared) begin() bool {
	return s.update(func(state *State, _ *bool) bool {
		if *state != Idle && *state != Listening {
			return false
		}
		*state = Processing
		return true
	})
}

// listening toggles between Idle and Listening; other states are left alone.
func (s *Shared) listening(open bool) {
	s.update(func(state *State, _ *bool) bool {
		switch {
		case open && *state == Idle:
			*state = Listening
		case !open && *state == Listening:
			*state = Idle
		default:
			return false
		}
		return true
	})
}

func (s *Shared) setCameraEnabled(enabled bool) {
	s.update(func(_ *State, camera *bool) bool {
		*camera = enabled
		return true
	})
}
