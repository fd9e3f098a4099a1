package vad

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-jarvis/pkg/audioio"
)

var epoch = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

// chunk builds a 100ms 16kHz mono chunk at the given mean absolute amplitude.
func chunk(i int, amp float64) audioio.AudioChunk {
	samples := make([]int16, 1600)
	audioio.FillAmplitude(samples, amp)
	return audioio.AudioChunk{
		Samples:    samples,
		SampleRate: 16000,
		Channels:   1,
		CapturedAt: epoch.Add(time.Duration(i+1) * 100 * time.Millisecond),
	}
}

// exampleConfig matches the worked example: 100ms chunks, silence run of 3.
func exampleConfig() Config {
	cfg := DefaultConfig()
	cfg.TriggerThreshold = 0.02
	cfg.ReleaseThreshold = 0.01
	cfg.SilenceRun = 3
	return cfg
}

type feed struct {
	amp float64
	n   int
}

func push(g *Gate, seq ...feed) ([]*Utterance, []Event) {
	var utts []*Utterance
	var events []Event
	i := 0
	for _, f := range seq {
		for k := 0; k < f.n; k++ {
			u, ev := g.Push(chunk(i, f.amp))
			i++
			if u != nil {
				utts = append(utts, u)
			}
			if ev != EventNone {
				events = append(events, ev)
			}
		}
	}
	return utts, events
}

func TestGate_QuietInputNeverEmits(t *testing.T) {
	g := NewGate(exampleConfig())

	utts, events := push(g, feed{0.0, 20}, feed{0.015, 20}, feed{0.005, 20})

	assert.Empty(t, utts)
	assert.Empty(t, events)
	assert.False(t, g.Open())
}

func TestGate_WorkedExample(t *testing.T) {
	g := NewGate(exampleConfig())

	utts, events := push(g, feed{0.05, 5}, feed{0.005, 3})

	require.Len(t, utts, 1)
	u := utts[0]
	assert.Len(t, u.Chunks, 8)
	assert.Equal(t, 800*time.Millisecond, u.Duration)
	assert.Equal(t, epoch, u.Start)
	assert.Equal(t, epoch.Add(800*time.Millisecond), u.End)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, []Event{EventOpened, EventEmitted}, events)
	assert.False(t, g.Open())
}

func TestGate_TrimTrailingSilence(t *testing.T) {
	cfg := exampleConfig()
	cfg.TrimTrailingSilence = true
	g := NewGate(cfg)

	utts, _ := push(g, feed{0.05, 5}, feed{0.005, 3})

	require.Len(t, utts, 1)
	assert.Len(t, utts[0].Chunks, 5)
	assert.Equal(t, 500*time.Millisecond, utts[0].Duration)
}

func TestGate_HysteresisKeepsUtteranceOpen(t *testing.T) {
	g := NewGate(exampleConfig())

	// Dips between release and trigger neither open nor close.
	utts, _ := push(g,
		feed{0.05, 2},
		feed{0.015, 4},
		feed{0.005, 2},
		feed{0.05, 1},
		feed{0.005, 3},
	)

	require.Len(t, utts, 1)
	assert.Len(t, utts[0].Chunks, 12)
}

func TestGate_ShortUtteranceDiscarded(t *testing.T) {
	cfg := exampleConfig()
	cfg.MinUtterance = 500 * time.Millisecond
	cfg.TrimTrailingSilence = true
	g := NewGate(cfg)

	utts, events := push(g, feed{0.05, 2}, feed{0.005, 3})

	assert.Empty(t, utts)
	assert.Contains(t, events, EventTooShort)
}

func TestGate_MaxUtteranceForcesClose(t *testing.T) {
	cfg := exampleConfig()
	cfg.MaxUtterance = time.Second
	g := NewGate(cfg)

	utts, _ := push(g, feed{0.05, 25})

	require.Len(t, utts, 2)
	assert.Equal(t, time.Second, utts[0].Duration)
	assert.Equal(t, time.Second, utts[1].Duration)
	assert.True(t, g.Open(), "the remaining loud chunks start a new utterance")
}

func TestGate_SuppressedWhileSpeaking(t *testing.T) {
	g := NewGate(exampleConfig())
	g.SetSpeaking(true)

	utts, events := push(g, feed{0.05, 5}, feed{0.005, 3})

	assert.Empty(t, utts)
	assert.Equal(t, []Event{EventOpened, EventSuppressed}, events)
}

func TestGate_PartialDiscardedWhenSpeakingEnds(t *testing.T) {
	g := NewGate(exampleConfig())

	g.SetSpeaking(true)
	push(g, feed{0.05, 3})
	require.True(t, g.Open())

	assert.True(t, g.SetSpeaking(false))
	assert.False(t, g.Open())

	// A fresh utterance after speaking is emitted normally.
	utts, _ := push(g, feed{0.05, 4}, feed{0.005, 3})
	require.Len(t, utts, 1)
	assert.Len(t, utts[0].Chunks, 7)
}

func TestGate_UtteranceOverlappingSpeechStartIsDropped(t *testing.T) {
	g := NewGate(exampleConfig())

	push(g, feed{0.05, 3})
	g.SetSpeaking(true)
	assert.False(t, g.SetSpeaking(true), "repeated state is a no-op")

	assert.True(t, g.SetSpeaking(false))
	assert.False(t, g.Open())
}

func TestGate_EmittedUtteranceIsNotMutated(t *testing.T) {
	g := NewGate(exampleConfig())

	utts, _ := push(g, feed{0.05, 5}, feed{0.005, 3})
	require.Len(t, utts, 1)
	u := utts[0]
	first := u.Chunks[0].Samples[0]

	more, _ := push(g, feed{0.08, 5}, feed{0.005, 3})
	require.Len(t, more, 1)

	assert.Len(t, u.Chunks, 8)
	assert.Equal(t, first, u.Chunks[0].Samples[0])
	assert.NotEqual(t, u.ID, more[0].ID)
}

func TestUtterance_Samples(t *testing.T) {
	u := &Utterance{Chunks: []audioio.AudioChunk{chunk(0, 0.05), chunk(1, 0.05)}}

	assert.Len(t, u.Samples(), 3200)
	rate, channels := u.Format()
	assert.Equal(t, 16000, rate)
	assert.Equal(t, 1, channels)
}

func TestConfig_Validate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	cfg := DefaultConfig()
	cfg.ReleaseThreshold = cfg.TriggerThreshold
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.SilenceRun = 0
	assert.Error(t, cfg.Validate())

	cfg = DefaultConfig()
	cfg.MaxUtterance = cfg.MinUtterance
	assert.Error(t, cfg.Validate())
}
