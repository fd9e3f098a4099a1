package audioio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gen2brain/malgo"
)

// sourceBacklog is how many complete chunks the capture callback may queue
// before it starts dropping.
const sourceBacklog = 16

// openDevice initializes a miniaudio context and device of the given kind.
func openDevice(cfg Config, kind DeviceKind, logger *slog.Logger, cb malgo.DeviceCallbacks) (*malgo.AllocatedContext, *malgo.Device, error) {
	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		logger.Debug("miniaudio", "msg", strings.TrimSpace(msg))
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: init context: %v", ErrDeviceUnavailable, err)
	}
	release := func() {
		_ = mctx.Uninit()
		mctx.Free()
	}

	devices, err := listDevices(mctx, kind)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
	}
	selected, err := selectDevice(devices, cfg.Device)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("%w: %s: %v", ErrDeviceUnavailable, kind, err)
	}

	dc := malgo.DefaultDeviceConfig(kind.malgoType())
	dc.SampleRate = uint32(cfg.SampleRate)
	dc.Alsa.NoMMap = 1
	if kind == KindCapture {
		dc.Capture.Format = malgo.FormatS16
		dc.Capture.Channels = uint32(cfg.Channels)
		if selected != nil {
			dc.Capture.DeviceID = selected.id.Pointer()
		}
	} else {
		dc.Playback.Format = malgo.FormatS16
		dc.Playback.Channels = uint32(cfg.Channels)
		if selected != nil {
			dc.Playback.DeviceID = selected.id.Pointer()
		}
	}

	dev, err := malgo.InitDevice(mctx.Context, dc, cb)
	if err != nil {
		release()
		return nil, nil, fmt.Errorf("%w: init %s device: %v", ErrDeviceUnavailable, kind, err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		release()
		return nil, nil, fmt.Errorf("%w: start %s device: %v", ErrDeviceUnavailable, kind, err)
	}

	name := "default"
	if selected != nil {
		name = selected.Name
	}
	logger.Info("audio device opened", "kind", kind, "device", name)

	return mctx, dev, nil
}

func closeDevice(mctx *malgo.AllocatedContext, dev *malgo.Device) {
	if dev != nil {
		_ = dev.Stop()
		dev.Uninit()
	}
	if mctx != nil {
		_ = mctx.Uninit()
		mctx.Free()
	}
}

// malgoSource captures microphone audio through miniaudio.
type malgoSource struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	closed  bool
	mctx    *malgo.AllocatedContext
	device  *malgo.Device
	chunks  chan AudioChunk

	// pending is only touched from the device callback.
	pending []int16

	chunksRead  atomic.Int64
	samplesRead atomic.Int64
	overruns    atomic.Int64
}

func newMalgoSource(cfg Config, logger *slog.Logger) *malgoSource {
	return &malgoSource{
		cfg:    cfg,
		logger: logger.With("component", "audioio.malgo_source"),
	}
}

func (s *malgoSource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}

	chunks := make(chan AudioChunk, sourceBacklog)
	s.chunks = chunks
	s.pending = make([]int16, 0, s.cfg.ChunkSamples()*2)

	mctx, dev, err := openDevice(s.cfg, KindCapture, s.logger, malgo.DeviceCallbacks{
		Data: func(_, input []byte, frames uint32) {
			s.onData(chunks, input, frames)
		},
	})
	if err != nil {
		s.chunks = nil
		return err
	}

	s.mctx = mctx
	s.device = dev
	s.running = true
	return nil
}

func (s *malgoSource) onData(chunks chan<- AudioChunk, input []byte, frames uint32) {
	n := int(frames) * s.cfg.Channels * 2
	if n > len(input) {
		n = len(input)
	}
	s.pending = append(s.pending, BytesToSamples(input[:n])...)

	size := s.cfg.ChunkSamples()
	for len(s.pending) >= size {
		samples := make([]int16, size)
		copy(samples, s.pending[:size])
		s.pending = append(s.pending[:0], s.pending[size:]...)

		chunk := AudioChunk{
			Samples:    samples,
			SampleRate: s.cfg.SampleRate,
			Channels:   s.cfg.Channels,
			CapturedAt: time.Now(),
		}
		select {
		case chunks <- chunk:
			s.chunksRead.Add(1)
			s.samplesRead.Add(int64(size))
		default:
			s.overruns.Add(1)
		}
	}
}

func (s *malgoSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false

	// Stopping the device waits for the in-flight callback, so the channel
	// has no writers once closeDevice returns.
	closeDevice(s.mctx, s.device)
	s.mctx, s.device = nil, nil
	close(s.chunks)

	s.logger.Info("audio capture stopped", "overruns", s.overruns.Load())
	return nil
}

func (s *malgoSource) Read(ctx context.Context) (AudioChunk, error) {
	s.mu.Lock()
	ch := s.chunks
	s.mu.Unlock()

	if ch == nil {
		return AudioChunk{}, io.EOF
	}

	select {
	case <-ctx.Done():
		return AudioChunk{}, ctx.Err()
	case chunk, ok := <-ch:
		if !ok {
			return AudioChunk{}, io.EOF
		}
		return chunk, nil
	}
}

func (s *malgoSource) Config() Config { return s.cfg }

func (s *malgoSource) Name() string { return string(BackendMalgo) }

func (s *malgoSource) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.Stop()
}

func (s *malgoSource) Stats() SourceStats {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	return SourceStats{
		ChunksRead:  s.chunksRead.Load(),
		SamplesRead: s.samplesRead.Load(),
		Overruns:    s.overruns.Load(),
		Running:     running,
		Backend:     string(BackendMalgo),
	}
}

var _ SourceWithStats = (*malgoSource)(nil)

// malgoSink plays PCM16 audio through miniaudio.
type malgoSink struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	running bool
	closed  bool
	mctx    *malgo.AllocatedContext
	device  *malgo.Device
	queue   []int16

	chunksWritten  atomic.Int64
	samplesWritten atomic.Int64
	underruns      atomic.Int64
}

func newMalgoSink(cfg Config, logger *slog.Logger) *malgoSink {
	return &malgoSink{
		cfg:    cfg,
		logger: logger.With("component", "audioio.malgo_sink"),
	}
}

func (s *malgoSink) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}

	mctx, dev, err := openDevice(s.cfg, KindPlayback, s.logger, malgo.DeviceCallbacks{
		Data: s.onData,
	})
	if err != nil {
		return err
	}

	s.mctx = mctx
	s.device = dev
	s.running = true
	return nil
}

func (s *malgoSink) onData(output, _ []byte, frames uint32) {
	want := int(frames) * s.cfg.Channels

	s.mu.Lock()
	n := want
	if n > len(s.queue) {
		n = len(s.queue)
	}
	for i := 0; i < n; i++ {
		v := s.queue[i]
		output[i*2] = byte(v)
		output[i*2+1] = byte(v >> 8)
	}
	s.queue = s.queue[n:]
	s.mu.Unlock()

	if n > 0 && n < want {
		s.underruns.Add(1)
	}
	clear(output[n*2 : want*2])
}

func (s *malgoSink) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	mctx, dev := s.mctx, s.device
	s.mctx, s.device = nil, nil
	s.queue = nil
	s.mu.Unlock()

	// The data callback takes s.mu, so the device is stopped outside the lock.
	closeDevice(mctx, dev)
	return nil
}

func (s *malgoSink) Write(ctx context.Context, chunk AudioChunk) error {
	samples := conform(chunk, s.cfg)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !s.running {
		return io.ErrClosedPipe
	}
	s.queue = append(s.queue, samples...)
	s.chunksWritten.Add(1)
	s.samplesWritten.Add(int64(len(samples)))
	return nil
}

func (s *malgoSink) Flush(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		s.mu.Lock()
		remaining := len(s.queue)
		running := s.running
		s.mu.Unlock()

		if remaining == 0 || !running {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *malgoSink) Clear() error {
	s.mu.Lock()
	s.queue = s.queue[:0]
	s.mu.Unlock()
	return nil
}

func (s *malgoSink) Config() Config { return s.cfg }

func (s *malgoSink) Name() string { return string(BackendMalgo) }

func (s *malgoSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	return s.Stop()
}

func (s *malgoSink) Stats() SinkStats {
	s.mu.Lock()
	running := s.running
	buffered := int64(len(s.queue))
	s.mu.Unlock()

	return SinkStats{
		ChunksWritten:   s.chunksWritten.Load(),
		SamplesWritten:  s.samplesWritten.Load(),
		Underruns:       s.underruns.Load(),
		Running:         running,
		Backend:         string(BackendMalgo),
		BufferedSamples: buffered,
	}
}

var _ SinkWithStats = (*malgoSink)(nil)

// conform converts a chunk to the sink's sample rate and channel layout.
func conform(chunk AudioChunk, cfg Config) []int16 {
	channels := chunk.Channels
	if channels <= 0 {
		channels = 1
	}
	mono := ToMono(chunk.Samples, channels)
	if chunk.SampleRate > 0 {
		mono = Resample(mono, chunk.SampleRate, cfg.SampleRate)
	}
	return FromMono(mono, cfg.Channels)
}
