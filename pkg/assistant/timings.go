package assistant

import (
	"sync"
	"time"
)

// Timings tracks latency at each stage of one turn.
// Stage latencies are measured from the moment speech ended.
type Timings struct {
	UtteranceID string
	Outcome     Outcome

	// Timestamps for key events
	SpeechEnd    time.Time // When the gate closed the utterance
	Transcribed  time.Time // When transcription returned
	Responded    time.Time // When response generation returned
	PlaybackDone time.Time // When the reply finished playing

	// Computed latencies (from speech end)
	TranscribeLatency time.Duration
	ResponseLatency   time.Duration
	TotalLatency      time.Duration
}

// Timeline collects per-turn timings and keeps the most recent ones for averaging.
// It is goroutine-safe.
type Timeline struct {
	mu      sync.Mutex
	history []Timings
	limit   int
}

// NewTimeline keeps up to limit turns; limit <= 0 keeps 100.
func NewTimeline(limit int) *Timeline {
	if limit <= 0 {
		limit = 100
	}
	return &Timeline{limit: limit, history: make([]Timings, 0, limit)}
}

// turn starts timing an utterance that ended at speechEnd.
func (t *Timeline) turn(id string, speechEnd time.Time) *Timings {
	if speechEnd.IsZero() {
		speechEnd = time.Now()
	}
	return &Timings{UtteranceID: id, SpeechEnd: speechEnd}
}

func (tm *Timings) markTranscribed() {
	tm.Transcribed = time.Now()
	tm.TranscribeLatency = tm.Transcribed.Sub(tm.SpeechEnd)
}

func (tm *Timings) markResponded() {
	tm.Responded = time.Now()
	tm.ResponseLatency = tm.Responded.Sub(tm.SpeechEnd)
}

// finish records the turn.
func (t *Timeline) finish(tm *Timings, outcome Outcome) Timings {
	tm.Outcome = outcome
	tm.PlaybackDone = time.Now()
	tm.TotalLatency = tm.PlaybackDone.Sub(tm.SpeechEnd)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.history = append(t.history, *tm)
	if len(t.history) > t.limit {
		t.history = t.history[1:]
	}
	return *tm
}

// Recent returns a copy of the recorded turns, oldest first.
func (t *Timeline) Recent() []Timings {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Timings(nil), t.history...)
}

// Average returns mean latencies over answered turns.
func (t *Timeline) Average() Timings {
	t.mu.Lock()
	defer t.mu.Unlock()

	var avg Timings
	n := 0
	for _, h := range t.history {
		if h.Outcome != OutcomeAnswered {
			continue
		}
		avg.TranscribeLatency += h.TranscribeLatency
		avg.ResponseLatency += h.ResponseLatency
		avg.TotalLatency += h.TotalLatency
		n++
	}
	if n == 0 {
		return Timings{}
	}
	d := time.Duration(n)
	avg.TranscribeLatency /= d
	avg.ResponseLatency /= d
	avg.TotalLatency /= d
	return avg
}

// FormatLatency returns a one-line summary for logs.
func (tm Timings) FormatLatency() string {
	return formatDuration(tm.TranscribeLatency) + " STT | " +
		formatDuration(tm.ResponseLatency) + " LLM | " +
		formatDuration(tm.TotalLatency) + " TOTAL"
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "---ms"
	}
	return d.Round(time.Millisecond).String()
}
