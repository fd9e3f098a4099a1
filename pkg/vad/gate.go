// Package vad splits a stream of audio chunks into utterances using
// amplitude hysteresis.
package vad

import (
	"time"

	"github.com/google/uuid"

	"github.com/teslashibe/go-jarvis/pkg/audioio"
)

// Event describes what a pushed chunk did to the gate.
type Event int

const (
	// EventNone means nothing changed at an utterance boundary.
	EventNone Event = iota
	// EventOpened means the chunk crossed the trigger threshold and started an utterance.
	EventOpened
	// EventEmitted means an utterance closed and was returned.
	EventEmitted
	// EventTooShort means an utterance closed below MinUtterance and was discarded.
	EventTooShort
	// EventSuppressed means an utterance overlapped assistant speech and was discarded.
	EventSuppressed
)

func (e Event) String() string {
	switch e {
	case EventOpened:
		return "opened"
	case EventEmitted:
		return "emitted"
	case EventTooShort:
		return "too_short"
	case EventSuppressed:
		return "suppressed"
	default:
		return "none"
	}
}

// Utterance is a closed span of voiced audio. It is not modified after the
// gate returns it.
type Utterance struct {
	ID       string
	Chunks   []audioio.AudioChunk
	Start    time.Time
	End      time.Time
	Duration time.Duration
}

// Samples returns all chunk samples concatenated.
func (u *Utterance) Samples() []int16 {
	n := 0
	for i := range u.Chunks {
		n += len(u.Chunks[i].Samples)
	}
	out := make([]int16, 0, n)
	for i := range u.Chunks {
		out = append(out, u.Chunks[i].Samples...)
	}
	return out
}

// Format returns the sample rate and channel count of the utterance.
func (u *Utterance) Format() (sampleRate, channels int) {
	if len(u.Chunks) == 0 {
		return 0, 0
	}
	return u.Chunks[0].SampleRate, u.Chunks[0].Channels
}

// Gate is a two-threshold voice activity gate. It is not safe for concurrent
// use; one goroutine owns it.
type Gate struct {
	cfg Config

	open     bool
	chunks   []audioio.AudioChunk
	duration time.Duration
	silence  int

	speaking bool
	tainted  bool
}

// NewGate creates a gate. cfg should already be validated.
func NewGate(cfg Config) *Gate {
	return &Gate{cfg: cfg}
}

// Config returns the gate configuration.
func (g *Gate) Config() Config {
	return g.cfg
}

// Open reports whether an utterance is being accumulated.
func (g *Gate) Open() bool {
	return g.open
}

// SetSpeaking tells the gate whether the assistant is currently talking.
// Audio keeps accumulating while speaking, but anything that overlapped
// speech is never emitted. When speaking ends, an open utterance that
// overlapped it is discarded and SetSpeaking returns true.
func (g *Gate) SetSpeaking(speaking bool) (discarded bool) {
	if speaking == g.speaking {
		return false
	}
	g.speaking = speaking

	if speaking {
		if g.open {
			g.tainted = true
		}
		return false
	}

	if g.open && g.tainted {
		g.reset()
		return true
	}
	return false
}

// Push feeds one chunk. It returns a non-nil Utterance only with EventEmitted.
func (g *Gate) Push(chunk audioio.AudioChunk) (*Utterance, Event) {
	amp := chunk.MeanAbs()

	if !g.open {
		if amp <= g.cfg.TriggerThreshold {
			return nil, EventNone
		}
		g.open = true
		g.tainted = g.speaking
		g.silence = 0
		g.append(chunk)
		if g.duration >= g.cfg.MaxUtterance {
			return g.close(false)
		}
		return nil, EventOpened
	}

	g.append(chunk)
	if amp <= g.cfg.ReleaseThreshold {
		g.silence++
	} else {
		g.silence = 0
	}

	if g.silence >= g.cfg.SilenceRun {
		return g.close(g.cfg.TrimTrailingSilence)
	}
	if g.duration >= g.cfg.MaxUtterance {
		return g.close(false)
	}
	return nil, EventNone
}

// Reset drops any partial utterance.
func (g *Gate) Reset() {
	g.reset()
}

func (g *Gate) append(chunk audioio.AudioChunk) {
	g.chunks = append(g.chunks, chunk)
	g.duration += chunk.Duration()
}

func (g *Gate) close(trim bool) (*Utterance, Event) {
	chunks := g.chunks
	if trim && g.silence > 0 && g.silence < len(chunks) {
		chunks = chunks[:len(chunks)-g.silence]
	}
	tainted := g.tainted

	var duration time.Duration
	for i := range chunks {
		duration += chunks[i].Duration()
	}

	g.reset()

	if tainted {
		return nil, EventSuppressed
	}
	if duration < g.cfg.MinUtterance {
		return nil, EventTooShort
	}

	first, last := chunks[0], chunks[len(chunks)-1]
	utt := &Utterance{
		ID:       uuid.NewString(),
		Chunks:   chunks,
		Duration: duration,
		End:      last.CapturedAt,
	}
	if !first.CapturedAt.IsZero() {
		utt.Start = first.CapturedAt.Add(-first.Duration())
	}
	return utt, EventEmitted
}

// reset hands the chunk slice off and starts a fresh one so emitted
// utterances never share backing storage with later accumulation.
func (g *Gate) reset() {
	g.open = false
	g.chunks = nil
	g.duration = 0
	g.silence = 0
	g.tainted = false
}
