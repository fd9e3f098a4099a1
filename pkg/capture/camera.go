package capture

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/teslashibe/go-jarvis/pkg/camera"
	"github.com/teslashibe/go-jarvis/pkg/metrics"
)

const (
	// maxReadFailures is how many consecutive hard read errors mark the camera disconnected.
	maxReadFailures = 10
	// maxEmptyReads is how many consecutive empty reads do the same. An
	// unplugged V4L2 device keeps answering with empty frames rather than errors.
	maxEmptyReads = 30
)

type pollResult int

const (
	pollOK pollResult = iota
	pollEmpty
	pollFailed
)

// EnabledFunc reports whether captured frames should be kept.
type EnabledFunc func() bool

// CameraProducer polls a camera into a FrameSlot.
type CameraProducer struct {
	dev     camera.Device
	cfg     camera.Config
	slot    *camera.FrameSlot
	enabled EnabledFunc
	logger  *slog.Logger
	metrics *metrics.Metrics

	available atomic.Bool
}

// NewCameraProducer creates a producer that stores frames into slot while enabled returns true.
func NewCameraProducer(dev camera.Device, cfg camera.Config, slot *camera.FrameSlot, enabled EnabledFunc, logger *slog.Logger, m *metrics.Metrics) *CameraProducer {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.Discard()
	}
	if enabled == nil {
		enabled = func() bool { return true }
	}
	return &CameraProducer{
		dev:     dev,
		cfg:     cfg,
		slot:    slot,
		enabled: enabled,
		logger:  logger.With("component", "capture.camera"),
		metrics: m,
	}
}

// Available reports whether a camera handle is currently open.
func (p *CameraProducer) Available() bool {
	return p.available.Load()
}

// Run opens the camera and polls it every cfg.PollInterval until ctx is cancelled.
// An open failure or a disconnect is not an error: the producer logs it,
// leaves the slot empty and returns nil so the pipeline continues audio-only.
func (p *CameraProducer) Run(ctx context.Context) error {
	h, err := camera.Open(p.dev, p.cfg, p.logger)
	if err != nil {
		p.logger.Warn("camera unavailable, continuing audio-only", "error", err)
		return nil
	}
	defer h.Close()

	p.available.Store(true)
	defer p.available.Store(false)

	p.logger.Info("camera capture started", "index", h.Index(), "interval", p.cfg.PollInterval)

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	failures, empty := 0, 0
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		switch p.poll(h) {
		case pollOK:
			failures, empty = 0, 0
			continue
		case pollEmpty:
			empty++
		case pollFailed:
			failures++
		}
		if failures >= maxReadFailures || empty >= maxEmptyReads {
			p.slot.Clear()
			p.logger.Warn("camera disconnected, disabling camera context", "failures", failures, "empty_reads", empty)
			return nil
		}
	}
}

// poll reads one frame into the slot.
func (p *CameraProducer) poll(h camera.Handle) pollResult {
	frame, err := h.Read()
	if err != nil {
		if errors.Is(err, camera.ErrNoFrame) {
			p.logger.Debug("camera returned no frame")
			return pollEmpty
		}
		p.metrics.CameraErrors.Inc()
		p.logger.Warn("camera read failed", "error", err)
		return pollFailed
	}

	if !p.enabled() {
		p.metrics.FramesDiscarded.Inc()
		return pollOK
	}

	p.slot.Store(frame)
	// The coordinator may have disabled capture and cleared the slot
	// between the check above and the store.
	if !p.enabled() {
		p.slot.Clear()
		p.metrics.FramesDiscarded.Inc()
		return pollOK
	}
	p.metrics.FramesCaptured.Inc()
	return pollOK
}
