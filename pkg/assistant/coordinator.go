package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/teslashibe/go-jarvis/pkg/camera"
	"github.com/teslashibe/go-jarvis/pkg/command"
	"github.com/teslashibe/go-jarvis/pkg/inference"
	"github.com/teslashibe/go-jarvis/pkg/metrics"
	"github.com/teslashibe/go-jarvis/pkg/playback"
	"github.com/teslashibe/go-jarvis/pkg/stt"
	"github.com/teslashibe/go-jarvis/pkg/vad"
	"github.com/teslashibe/go-jarvis/pkg/wakeword"
)

// Outcome is how a dispatched utterance ended.
type Outcome string

const (
	OutcomeAnswered            Outcome = "answered"
	OutcomeCommand             Outcome = "command"
	OutcomeAttention           Outcome = "attention"
	OutcomeUnaddressed         Outcome = "unaddressed"
	OutcomeEmpty               Outcome = "empty"
	OutcomeFallback            Outcome = "fallback"
	OutcomeTranscriptionFailed Outcome = "transcription_failed"
	OutcomePlaybackFailed      Outcome = "playback_failed"
	OutcomeBusy                Outcome = "busy"
)

// Deps are the capabilities the coordinator calls out to.
type Deps struct {
	Transcriber stt.Transcriber
	Responder   inference.Responder
	Speaker     playback.Speaker

	// Frames is read for camera context. Nil runs audio-only.
	Frames *camera.FrameSlot
	// MaxFrameAge drops stale frames; zero accepts any age.
	MaxFrameAge time.Duration
}

// Coordinator takes utterances from the gate and drives them through
// transcription, routing, response generation and playback, one at a time.
type Coordinator struct {
	cfg     Config
	deps    Deps
	shared  *Shared
	router  *command.Router
	wake    *wakeword.Matcher
	timings *Timeline
	logger  *slog.Logger
	metrics *metrics.Metrics

	pending chan *vad.Utterance

	// submitMu orders Submit against Run's exit so a late utterance is
	// never left claiming Processing with nobody to drain it.
	submitMu sync.Mutex
	stopped  bool
}

// NewCoordinator builds a coordinator over shared. cfg is validated here.
func NewCoordinator(cfg Config, deps Deps, shared *Shared, logger *slog.Logger, m *metrics.Metrics) (*Coordinator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("assistant config: %w", err)
	}
	if deps.Transcriber == nil || deps.Responder == nil || deps.Speaker == nil {
		return nil, errors.New("assistant: transcriber, responder and speaker are required")
	}
	if shared == nil {
		shared = NewShared(true)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.Discard()
	}

	router, err := command.NewRouter(cfg.Commands, cfg.Acknowledgement)
	if err != nil {
		return nil, fmt.Errorf("assistant commands: %w", err)
	}

	var opts []wakeword.Option
	if cfg.FuzzyWakeWords {
		opts = append(opts, wakeword.WithFuzzy(cfg.FuzzyThreshold))
	}

	snap := shared.Snapshot()
	m.State.Set(float64(snap.State))
	m.CameraEnabled.Set(boolGauge(snap.CameraEnabled))
	shared.Observe(func(t Transition) {
		m.State.Set(float64(t.To))
		m.CameraEnabled.Set(boolGauge(t.CameraEnabled))
	})

	return &Coordinator{
		cfg:     cfg,
		deps:    deps,
		shared:  shared,
		router:  router,
		wake:    wakeword.New(cfg.WakeWords, opts...),
		timings: NewTimeline(0),
		logger:  logger.With("component", "assistant.coordinator"),
		metrics: m,
		pending: make(chan *vad.Utterance, 1),
	}, nil
}

// Shared returns the state pair the coordinator mutates.
func (c *Coordinator) Shared() *Shared {
	return c.shared
}

// Timings returns the per-turn latency history.
func (c *Coordinator) Timings() *Timeline {
	return c.timings
}

// SetListening marks the gate as open (or closed) on user speech. It only
// moves between Idle and Listening.
func (c *Coordinator) SetListening(open bool) {
	c.shared.listening(open)
}

// Submit hands an utterance to the dispatch loop without blocking. It claims
// Processing immediately; if the coordinator is already busy, or Run has
// returned, the utterance is dropped and Submit returns false.
func (c *Coordinator) Submit(u *vad.Utterance) bool {
	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	if c.stopped {
		c.metrics.UtterancesDiscarded.WithLabelValues(metrics.ReasonStopped).Inc()
		c.logger.Debug("utterance dropped, dispatch stopped", "utterance_id", u.ID)
		return false
	}
	if !c.shared.begin() {
		c.dropBusy(u)
		return false
	}
	select {
	case c.pending <- u:
		return true
	default:
		// Unreachable while begin guards the slot.
		c.shared.set(Idle)
		c.dropBusy(u)
		return false
	}
}

func (c *Coordinator) dropBusy(u *vad.Utterance) {
	c.metrics.UtterancesDiscarded.WithLabelValues(metrics.ReasonBusy).Inc()
	c.metrics.Turns.WithLabelValues(string(OutcomeBusy)).Inc()
	c.logger.Debug("utterance dropped, assistant busy",
		"utterance_id", u.ID,
		"state", c.shared.State().String(),
	)
}

// Run processes submitted utterances in order until ctx is cancelled.
// Utterances submitted after Run returns are dropped.
func (c *Coordinator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			c.stop()
			return nil
		case u := <-c.pending:
			c.handle(ctx, u)
		}
	}
}

func (c *Coordinator) stop() {
	c.submitMu.Lock()
	defer c.submitMu.Unlock()

	c.stopped = true
	select {
	case u := <-c.pending:
		c.shared.set(Idle)
		c.metrics.UtterancesDiscarded.WithLabelValues(metrics.ReasonStopped).Inc()
		c.logger.Debug("pending utterance dropped on shutdown", "utterance_id", u.ID)
	default:
	}
}

// Process runs one utterance synchronously. It returns OutcomeBusy without
// side effects other than the drop counter when a turn is already in flight.
func (c *Coordinator) Process(ctx context.Context, u *vad.Utterance) Outcome {
	if !c.shared.begin() {
		c.dropBusy(u)
		return OutcomeBusy
	}
	return c.handle(ctx, u)
}

// handle runs a claimed turn. The state is Processing on entry and Idle on return.
func (c *Coordinator) handle(ctx context.Context, u *vad.Utterance) (outcome Outcome) {
	tm := c.timings.turn(u.ID, u.End)
	log := c.logger.With("utterance_id", u.ID)

	defer func() {
		c.shared.set(Idle)
		done := c.timings.finish(tm, outcome)
		c.metrics.Turns.WithLabelValues(string(outcome)).Inc()
		log.Info("turn complete",
			"outcome", string(outcome),
			"latency", done.FormatLatency(),
		)
	}()

	text, err := c.transcribe(ctx, u)
	tm.markTranscribed()
	if err != nil {
		log.Warn("transcription failed, discarding utterance", "error", err)
		return OutcomeTranscriptionFailed
	}
	if text == "" {
		log.Debug("empty transcript, discarding utterance")
		return OutcomeEmpty
	}
	log.Info("transcribed", "text", text)

	if cmd, ok := c.router.Route(text); ok {
		c.apply(cmd)
		log.Info("command applied", "command", cmd.Kind.String(), "phrase", cmd.Phrase)
		if err := c.speak(ctx, cmd.Ack); err != nil {
			log.Warn("acknowledgement playback failed", "error", err)
			return OutcomePlaybackFailed
		}
		return OutcomeCommand
	}

	prompt, addressed := c.wake.Match(text)
	if !addressed {
		log.Debug("no wake word, ignoring", "text", text)
		return OutcomeUnaddressed
	}

	if prompt == "" {
		if err := c.speak(ctx, c.cfg.AttentionPhrase); err != nil {
			log.Warn("attention playback failed", "error", err)
			return OutcomePlaybackFailed
		}
		return OutcomeAttention
	}

	reply, err := c.respond(ctx, prompt)
	tm.markResponded()
	outcome = OutcomeAnswered
	if err != nil {
		log.Warn("response generation failed, speaking fallback", "error", err)
		reply = c.cfg.FallbackPhrase
		outcome = OutcomeFallback
	}

	if err := c.speak(ctx, reply); err != nil {
		log.Warn("reply playback failed", "error", err)
		return OutcomePlaybackFailed
	}
	return outcome
}

func (c *Coordinator) transcribe(ctx context.Context, u *vad.Utterance) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	text, err := c.deps.Transcriber.Transcribe(ctx, u)
	c.metrics.StageDuration.WithLabelValues("transcribe").Observe(time.Since(start).Seconds())
	return strings.TrimSpace(text), err
}

func (c *Coordinator) respond(ctx context.Context, prompt string) (string, error) {
	frame := c.contextFrame()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.CallTimeout)
	defer cancel()

	start := time.Now()
	reply, err := c.deps.Responder.Respond(ctx, prompt, frame)
	c.metrics.StageDuration.WithLabelValues("respond").Observe(time.Since(start).Seconds())
	if err != nil {
		return "", err
	}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return "", inference.ErrEmptyReply
	}
	return reply, nil
}

// contextFrame returns the latest frame when camera context is on.
func (c *Coordinator) contextFrame() *camera.Frame {
	if c.deps.Frames == nil || !c.shared.CameraEnabled() {
		return nil
	}
	return c.deps.Frames.Fresh(time.Now(), c.deps.MaxFrameAge)
}

// speak plays text in the Speaking state.
func (c *Coordinator) speak(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	c.shared.set(Speaking)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.PlaybackTimeout)
	defer cancel()

	start := time.Now()
	err := c.deps.Speaker.Speak(ctx, text)
	c.metrics.StageDuration.WithLabelValues("playback").Observe(time.Since(start).Seconds())
	return err
}

func (c *Coordinator) apply(cmd command.Command) {
	switch cmd.Kind {
	case command.EnableCamera:
		c.shared.setCameraEnabled(true)
	case command.DisableCamera:
		c.shared.setCameraEnabled(false)
		if c.deps.Frames != nil {
			c.deps.Frames.Clear()
		}
	}
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
