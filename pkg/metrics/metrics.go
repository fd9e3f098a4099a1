// Package metrics holds the Prometheus instruments for the assistant pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Utterance discard reasons.
const (
	ReasonTooShort = "too_short"
	ReasonSpeaking = "speaking"
	ReasonBusy     = "busy"
	ReasonStopped  = "stopped"
)

// Metrics contains all Prometheus metrics for the assistant.
type Metrics struct {
	// Audio capture
	ChunksCaptured prometheus.Counter
	ChunksDropped  prometheus.Counter
	SourceErrors   prometheus.Counter

	// Camera capture
	FramesCaptured  prometheus.Counter
	FramesDiscarded prometheus.Counter
	CameraErrors    prometheus.Counter
	CameraEnabled   prometheus.Gauge

	// Gate
	UtterancesEmitted   prometheus.Counter
	UtterancesDiscarded *prometheus.CounterVec
	UtteranceDuration   prometheus.Histogram

	// Dispatch
	Turns         *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	State         prometheus.Gauge
}

// New creates the metrics and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		ChunksCaptured: f.NewCounter(prometheus.CounterOpts{
			Name: "jarvis_audio_chunks_captured_total",
			Help: "Total number of audio chunks accepted into the chunk queue",
		}),
		ChunksDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "jarvis_audio_chunks_dropped_total",
			Help: "Total number of audio chunks dropped because the chunk queue was full",
		}),
		SourceErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "jarvis_audio_source_errors_total",
			Help: "Total number of transient audio read failures",
		}),
		FramesCaptured: f.NewCounter(prometheus.CounterOpts{
			Name: "jarvis_camera_frames_captured_total",
			Help: "Total number of camera frames stored in the latest-frame slot",
		}),
		FramesDiscarded: f.NewCounter(prometheus.CounterOpts{
			Name: "jarvis_camera_frames_discarded_total",
			Help: "Total number of camera frames read while the camera was disabled",
		}),
		CameraErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "jarvis_camera_read_errors_total",
			Help: "Total number of failed camera reads",
		}),
		CameraEnabled: f.NewGauge(prometheus.GaugeOpts{
			Name: "jarvis_camera_enabled",
			Help: "1 when camera context is enabled, 0 otherwise",
		}),
		UtterancesEmitted: f.NewCounter(prometheus.CounterOpts{
			Name: "jarvis_utterances_emitted_total",
			Help: "Total number of utterances emitted by the voice activity gate",
		}),
		UtterancesDiscarded: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jarvis_utterances_discarded_total",
			Help: "Total number of utterances discarded, by reason",
		}, []string{"reason"}),
		UtteranceDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "jarvis_utterance_duration_seconds",
			Help:    "Duration of emitted utterances",
			Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 250ms to 32s
		}),
		Turns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "jarvis_turns_total",
			Help: "Total number of dispatched utterances, by outcome",
		}, []string{"outcome"}),
		StageDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jarvis_stage_duration_seconds",
			Help:    "Latency of each external call",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
		}, []string{"stage"}),
		State: f.NewGauge(prometheus.GaugeOpts{
			Name: "jarvis_assistant_state",
			Help: "Current assistant state (0=idle, 1=listening, 2=processing, 3=speaking)",
		}),
	}
}

// Discard returns metrics registered with a private registry, for tests and
// components constructed without metrics.
func Discard() *Metrics {
	return New(prometheus.NewRegistry())
}
