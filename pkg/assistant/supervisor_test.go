package assistant

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-jarvis/pkg/audioio"
	"github.com/teslashibe/go-jarvis/pkg/camera"
	"github.com/teslashibe/go-jarvis/pkg/capture"
	"github.com/teslashibe/go-jarvis/pkg/metrics"
	"github.com/teslashibe/go-jarvis/pkg/vad"
)

func gateConfig() vad.Config {
	return vad.Config{
		TriggerThreshold: 0.02,
		ReleaseThreshold: 0.01,
		SilenceRun:       3,
		MinUtterance:     50 * time.Millisecond,
		MaxUtterance:     15 * time.Second,
	}
}

// workedExample is five loud chunks followed by three quiet ones.
var workedExample = []float64{0.05, 0.05, 0.05, 0.05, 0.05, 0.005, 0.005, 0.005}

type harness struct {
	*fixture
	src    *audioio.MockSource
	camera *camera.MockDevice
	sup    *Supervisor
}

func newHarness(t *testing.T, src *audioio.MockSource, transcripts ...string) *harness {
	t.Helper()
	f := newFixture(t, transcripts...)

	queue := capture.NewChunkQueue(64)
	dev := camera.NewMockDevice(0)
	camCfg := camera.DefaultConfig()
	camCfg.PollInterval = 5 * time.Millisecond

	sup, err := NewSupervisor(Pipeline{
		Audio:         capture.NewAudioProducer(src, queue, nil, f.metrics),
		Queue:         queue,
		Gate:          vad.NewGate(gateConfig()),
		Coordinator:   f.coord,
		Camera:        capture.NewCameraProducer(dev, camCfg, f.frames, f.shared.CameraEnabled, nil, f.metrics),
		ShutdownGrace: time.Second,
	}, nil, f.metrics)
	require.NoError(t, err)

	return &harness{fixture: f, src: src, camera: dev, sup: sup}
}

func mockSource(opts ...audioio.MockSourceOption) *audioio.MockSource {
	cfg := audioio.DefaultConfig()
	cfg.Backend = audioio.BackendMock
	cfg.ChunkDuration = 10 * time.Millisecond
	return audioio.NewMockSource(cfg, nil, opts...)
}

func (h *harness) start(t *testing.T) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.sup.Run(ctx) }()
	return cancel, done
}

func waitStopped(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(3 * time.Second):
		t.Fatal("supervisor did not stop")
		return nil
	}
}

func TestSupervisor_WorkedExampleHideCamera(t *testing.T) {
	h := newHarness(t, mockSource(audioio.WithAmplitudes(workedExample, false)))

	var mu sync.Mutex
	var chunks []int
	h.stt.TranscribeFunc = func(ctx context.Context, u *vad.Utterance) (string, error) {
		mu.Lock()
		chunks = append(chunks, len(u.Chunks))
		mu.Unlock()
		return "hide camera", nil
	}

	cancel, done := h.start(t)

	require.Eventually(t, func() bool {
		return len(h.speaker.Spoken()) == 1 && h.shared.State() == Idle
	}, 3*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, waitStopped(t, done))

	mu.Lock()
	assert.Equal(t, []int{8}, chunks, "one utterance spanning all eight chunks")
	mu.Unlock()

	assert.False(t, h.shared.CameraEnabled())
	assert.Equal(t, []string{DefaultAttentionPhrase}, h.speaker.Spoken())
	assert.Zero(t, h.responder.CallCount("Respond"))
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.UtterancesEmitted))
	assert.Equal(t, 1.0, h.turns(OutcomeCommand))

	assert.True(t, h.src.Closed(), "microphone released on shutdown")
	for _, hd := range h.camera.Handles() {
		assert.True(t, hd.Closed(), "camera released on shutdown")
	}
}

func TestSupervisor_QuietInputNeverDispatches(t *testing.T) {
	h := newHarness(t, mockSource(audioio.WithAmplitudes([]float64{0.005}, true)))

	cancel, done := h.start(t)
	time.Sleep(150 * time.Millisecond)
	cancel()
	require.NoError(t, waitStopped(t, done))

	assert.Empty(t, h.stt.Utterances())
	assert.Zero(t, testutil.ToFloat64(h.metrics.UtterancesEmitted))
	assert.Equal(t, Idle, h.shared.State())
}

func TestSupervisor_SpeechDuringPlaybackIsDropped(t *testing.T) {
	h := newHarness(t, mockSource(audioio.WithAmplitudes(workedExample, false)))
	h.shared.set(Speaking)

	cancel, done := h.start(t)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(h.metrics.UtterancesDiscarded.WithLabelValues(metrics.ReasonSpeaking)) == 1
	}, 3*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, waitStopped(t, done))

	assert.Empty(t, h.stt.Utterances())
	assert.Zero(t, testutil.ToFloat64(h.metrics.UtterancesEmitted))
}

func TestSupervisor_MicrophoneUnavailableIsFatal(t *testing.T) {
	h := newHarness(t, mockSource(audioio.WithStartError(errors.New("no such device"))))

	err := h.sup.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, audioio.ErrDeviceUnavailable)
	assert.Empty(t, h.camera.Attempts(), "nothing else starts without a microphone")
}

func TestSupervisor_CameraUnavailableDegrades(t *testing.T) {
	h := newHarness(t, mockSource(audioio.WithAmplitudes(workedExample, false)), "jarvis what do you see")
	h.camera.Available = map[int]bool{}

	cancel, done := h.start(t)
	require.Eventually(t, func() bool { return len(h.speaker.Spoken()) == 1 }, 3*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, waitStopped(t, done))

	call := h.responder.LastCall()
	require.NotNil(t, call)
	assert.Nil(t, call.Frame)
	assert.False(t, h.sup.Status().CameraAvailable)
}

func TestSupervisor_ShutdownTimeout(t *testing.T) {
	h := newHarness(t, mockSource(audioio.WithAmplitudes(workedExample, false)), "jarvis sing")
	h.sup.p.ShutdownGrace = 50 * time.Millisecond

	stuck := make(chan struct{})
	t.Cleanup(func() { close(stuck) })
	h.speaker.OnSpeak = func(string) { <-stuck }

	cancel, done := h.start(t)
	require.Eventually(t, func() bool { return h.shared.State() == Speaking }, 3*time.Second, 10*time.Millisecond)

	cancel()
	assert.ErrorIs(t, waitStopped(t, done), ErrShutdownTimeout)
}

func TestSupervisor_Status(t *testing.T) {
	h := newHarness(t, mockSource())
	st := h.sup.Status()
	assert.Equal(t, Idle, st.State)
	assert.True(t, st.CameraEnabled)
	assert.Equal(t, 64, st.QueueCap)
	assert.Nil(t, st.LastTurn)
}

func TestNewSupervisor_RequiresParts(t *testing.T) {
	_, err := NewSupervisor(Pipeline{}, nil, nil)
	assert.Error(t, err)
}
