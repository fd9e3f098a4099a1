package assistant

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teslashibe/go-jarvis/pkg/audioio"
	"github.com/teslashibe/go-jarvis/pkg/capture"
	"github.com/teslashibe/go-jarvis/pkg/metrics"
	"github.com/teslashibe/go-jarvis/pkg/vad"
)

// ErrShutdownTimeout is returned when the tasks do not stop within the grace period.
var ErrShutdownTimeout = errors.New("assistant: shutdown grace period exceeded")

// DefaultShutdownGrace is used when Pipeline.ShutdownGrace is zero.
const DefaultShutdownGrace = 5 * time.Second

// Pipeline is everything the supervisor runs.
type Pipeline struct {
	Audio       *capture.AudioProducer
	Queue       *capture.ChunkQueue
	Gate        *vad.Gate
	Coordinator *Coordinator

	// Camera is optional.
	Camera *capture.CameraProducer

	ShutdownGrace time.Duration
}

// Status is a point-in-time view of the running pipeline.
type Status struct {
	State           State     `json:"state"`
	Since           time.Time `json:"since"`
	CameraEnabled   bool      `json:"camera_enabled"`
	CameraAvailable bool      `json:"camera_available"`
	QueueLen        int       `json:"queue_len"`
	QueueCap        int       `json:"queue_cap"`
	QueueDrops      int64     `json:"queue_drops"`
	LastTurn        *Timings  `json:"last_turn,omitempty"`
}

// Supervisor starts the capture, gate and dispatch tasks and owns shutdown.
type Supervisor struct {
	p       Pipeline
	shared  *Shared
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewSupervisor checks p and returns a supervisor for it.
func NewSupervisor(p Pipeline, logger *slog.Logger, m *metrics.Metrics) (*Supervisor, error) {
	if p.Audio == nil || p.Queue == nil || p.Gate == nil || p.Coordinator == nil {
		return nil, errors.New("assistant: audio, queue, gate and coordinator are required")
	}
	if p.ShutdownGrace <= 0 {
		p.ShutdownGrace = DefaultShutdownGrace
	}
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.Discard()
	}
	return &Supervisor{
		p:       p,
		shared:  p.Coordinator.Shared(),
		logger:  logger.With("component", "assistant.supervisor"),
		metrics: m,
	}, nil
}

// Shared returns the state pair.
func (s *Supervisor) Shared() *Shared {
	return s.shared
}

// Status returns a snapshot for status reporting.
func (s *Supervisor) Status() Status {
	snap := s.shared.Snapshot()
	st := Status{
		State:         snap.State,
		Since:         snap.Since,
		CameraEnabled: snap.CameraEnabled,
		QueueLen:      s.p.Queue.Len(),
		QueueCap:      s.p.Queue.Cap(),
		QueueDrops:    s.p.Queue.Drops(),
	}
	if s.p.Camera != nil {
		st.CameraAvailable = s.p.Camera.Available()
	}
	if recent := s.p.Coordinator.Timings().Recent(); len(recent) > 0 {
		last := recent[len(recent)-1]
		st.LastTurn = &last
	}
	return st
}

// Run opens the microphone and runs every task until ctx is cancelled or a
// task fails. A microphone that cannot be opened is fatal and returned as
// audioio.ErrDeviceUnavailable before anything else starts. After
// cancellation the tasks get ShutdownGrace to return, otherwise Run returns
// ErrShutdownTimeout and leaves them behind.
func (s *Supervisor) Run(ctx context.Context) error {
	if err := s.p.Audio.Open(ctx); err != nil {
		s.logger.Error("microphone unavailable", "error", err)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.p.Audio.Run(gctx) })
	if s.p.Camera != nil {
		g.Go(func() error { return s.p.Camera.Run(gctx) })
	}
	g.Go(func() error { return s.gateLoop(gctx) })
	g.Go(func() error { return s.p.Coordinator.Run(gctx) })

	done := make(chan error, 1)
	go func() { done <- g.Wait() }()

	s.logger.Info("assistant running", "camera", s.p.Camera != nil)

	select {
	case err := <-done:
		if err != nil {
			s.logger.Error("pipeline task failed", "error", err)
		}
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", "grace", s.p.ShutdownGrace)
	timer := time.NewTimer(s.p.ShutdownGrace)
	defer timer.Stop()

	select {
	case err := <-done:
		s.logger.Info("shutdown complete")
		return err
	case <-timer.C:
		s.logger.Error("tasks did not stop in time", "grace", s.p.ShutdownGrace)
		return ErrShutdownTimeout
	}
}

// gateLoop feeds queued chunks through the gate and submits utterances.
// It returns when ctx is cancelled or the audio producer closes the queue.
func (s *Supervisor) gateLoop(ctx context.Context) error {
	chunks := s.p.Queue.C()
	for {
		select {
		case <-ctx.Done():
			return nil
		case chunk, ok := <-chunks:
			if !ok {
				return nil
			}
			s.step(chunk)
		}
	}
}

func (s *Supervisor) step(chunk audioio.AudioChunk) {
	gate := s.p.Gate
	coord := s.p.Coordinator

	if gate.SetSpeaking(s.shared.State() == Speaking) {
		s.metrics.UtterancesDiscarded.WithLabelValues(metrics.ReasonSpeaking).Inc()
		s.logger.Debug("utterance overlapped playback, discarded")
	}

	utt, ev := gate.Push(chunk)
	switch ev {
	case vad.EventOpened:
		coord.SetListening(true)
	case vad.EventEmitted:
		s.metrics.UtterancesEmitted.Inc()
		s.metrics.UtteranceDuration.Observe(utt.Duration.Seconds())
		s.logger.Debug("utterance emitted", "utterance_id", utt.ID, "duration", utt.Duration)
		coord.Submit(utt)
	case vad.EventTooShort:
		s.metrics.UtterancesDiscarded.WithLabelValues(metrics.ReasonTooShort).Inc()
		coord.SetListening(false)
	case vad.EventSuppressed:
		s.metrics.UtterancesDiscarded.WithLabelValues(metrics.ReasonSpeaking).Inc()
		coord.SetListening(false)
	}
}
