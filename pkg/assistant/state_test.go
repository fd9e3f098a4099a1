package assistant

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShared_BeginOnlyFromIdleOrListening(t *testing.T) {
	tests := []struct {
		from State
		want bool
	}{
		{Idle, true},
		{Listening, true},
		{Processing, false},
		{Speaking, false},
	}
	for _, tt := range tests {
		t.Run(tt.from.String(), func(t *testing.T) {
			s := NewShared(true)
			s.set(tt.from)
			assert.Equal(t, tt.want, s.begin())
			if tt.want {
				assert.Equal(t, Processing, s.State())
			} else {
				assert.Equal(t, tt.from, s.State())
			}
		})
	}
}

func TestShared_ListeningOnlyTouchesIdle(t *testing.T) {
	s := NewShared(true)
	s.listening(true)
	assert.Equal(t, Listening, s.State())
	s.listening(false)
	assert.Equal(t, Idle, s.State())

	s.set(Speaking)
	s.listening(true)
	assert.Equal(t, Speaking, s.State())
	s.listening(false)
	assert.Equal(t, Speaking, s.State())
}

func TestShared_ObserversSeeOrderedTransitions(t *testing.T) {
	s := NewShared(true)

	var mu sync.Mutex
	var got []Transition
	s.Observe(func(tr Transition) {
		mu.Lock()
		got = append(got, tr)
		mu.Unlock()
	})

	require.True(t, s.begin())
	s.set(Speaking)
	s.setCameraEnabled(false)
	s.set(Idle)
	s.set(Idle) // no change, no notification

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 4)
	assert.Equal(t, Idle, got[0].From)
	assert.Equal(t, Processing, got[0].To)
	assert.Equal(t, Speaking, got[1].To)
	assert.False(t, got[2].CameraEnabled)
	assert.Equal(t, Speaking, got[2].To, "camera toggle keeps the state")
	assert.Equal(t, Idle, got[3].To)
}

func TestShared_SnapshotIsConsistent(t *testing.T) {
	s := NewShared(false)
	snap := s.Snapshot()
	assert.Equal(t, Idle, snap.State)
	assert.False(t, snap.CameraEnabled)
	assert.False(t, snap.Since.IsZero())
}

func TestState_TextRoundTrip(t *testing.T) {
	b, err := json.Marshal(Snapshot{State: Speaking})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"state":"speaking"`)

	var st State
	require.NoError(t, st.UnmarshalText([]byte("Processing")))
	assert.Equal(t, Processing, st)
	assert.Error(t, st.UnmarshalText([]byte("dreaming")))
	assert.Equal(t, "state(9)", State(9).String())
}
