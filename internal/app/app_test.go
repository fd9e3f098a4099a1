package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-jarvis/internal/config"
	"github.com/teslashibe/go-jarvis/pkg/assistant"
	"github.com/teslashibe/go-jarvis/pkg/audioio"
	"github.com/teslashibe/go-jarvis/pkg/camera"
	"github.com/teslashibe/go-jarvis/pkg/inference"
	"github.com/teslashibe/go-jarvis/pkg/tts"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Providers.Mock = true
	cfg.Audio.Backend = audioio.BackendMock
	cfg.Audio.ChunkDuration = 10 * time.Millisecond
	cfg.Speaker.Backend = audioio.BackendMock
	cfg.Gate.SilenceRun = 3
	cfg.Gate.MinUtterance = 50 * time.Millisecond
	cfg.Camera.Index = 0
	cfg.Camera.PollInterval = 5 * time.Millisecond
	return cfg
}

func TestApp_AnswersWithMockProviders(t *testing.T) {
	cfg := testConfig()
	src := audioio.NewMockSource(cfg.Audio.Config, nil,
		audioio.WithAmplitudes([]float64{0.05, 0.05, 0.05, 0.05, 0.05, 0.005, 0.005, 0.005}, false))
	sink := audioio.NewMockSink(cfg.Speaker, nil)
	dev := camera.NewMockDevice(0)

	a, err := New(cfg, nil, WithAudioSource(src), WithAudioSink(sink), WithCameraDevice(dev))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, a.Init(ctx))

	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()

	require.Eventually(t, func() bool {
		st := a.Supervisor().Status()
		return st.LastTurn != nil && st.State == assistant.Idle
	}, 3*time.Second, 10*time.Millisecond)

	st := a.Supervisor().Status()
	assert.Equal(t, assistant.OutcomeAnswered, st.LastTurn.Outcome)
	assert.NotEmpty(t, sink.Written(), "reply should reach the speaker")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("app did not stop")
	}
	assert.NoError(t, a.Shutdown())
	assert.True(t, src.Closed())
}

func TestApp_MicrophoneFailureIsFatal(t *testing.T) {
	cfg := testConfig()
	src := audioio.NewMockSource(cfg.Audio.Config, nil, audioio.WithStartError(audioio.ErrDeviceUnavailable))

	a, err := New(cfg, nil, WithAudioSource(src), WithCameraDevice(camera.NewMockDevice()))
	require.NoError(t, err)
	require.NoError(t, a.Init(context.Background()))

	err = a.Run(context.Background())
	assert.ErrorIs(t, err, audioio.ErrDeviceUnavailable)
	assert.NoError(t, a.Shutdown())
}

func TestApp_MockModeUsesMockAudio(t *testing.T) {
	cfg := testConfig()
	cfg.Audio.Backend = audioio.BackendMalgo
	cfg.Speaker.Backend = audioio.BackendMalgo

	a, err := New(cfg, nil, WithCameraDevice(camera.NewMockDevice()))
	require.NoError(t, err)
	require.NoError(t, a.Init(context.Background()))
	defer a.Shutdown()

	assert.Equal(t, string(audioio.BackendMock), a.source.Name())
	assert.Equal(t, string(audioio.BackendMock), a.sink.Name())
	assert.Equal(t, audioio.BackendMalgo, cfg.Audio.Backend, "config must not be rewritten")
}

func liveConfig() *config.Config {
	cfg := testConfig()
	cfg.Providers.Mock = false
	cfg.Providers.OpenAI.APIKey = "sk-test"
	return cfg
}

func TestApp_ResponderChainFromFallbacks(t *testing.T) {
	cfg := liveConfig()
	cfg.Providers.LLM.Fallbacks = []config.LLMFallback{
		{Model: "gpt-4o"},
		{Model: "llama3.2-vision", BaseURL: "http://127.0.0.1:11434/v1", APIKey: "ollama"},
	}
	a, err := New(cfg, nil)
	require.NoError(t, err)

	r, err := a.responders()
	require.NoError(t, err)
	chain, ok := r.(*inference.Chain)
	require.True(t, ok, "fallbacks should produce a chain, got %T", r)
	assert.Len(t, chain.Responders(), 3)

	cfg.Providers.LLM.Fallbacks = nil
	r, err = a.responders()
	require.NoError(t, err)
	assert.IsType(t, &inference.OpenAI{}, r)
}

func TestApp_TTSProvidersFollowOrder(t *testing.T) {
	cfg := liveConfig()
	cfg.Providers.TTS.Order = []string{config.TTSElevenLabsWS, config.TTSOpenAI, config.TTSElevenLabs}
	cfg.Providers.TTS.ElevenLabs.APIKey = "el-test"
	a, err := New(cfg, nil)
	require.NoError(t, err)

	voices, err := a.ttsProviders()
	require.NoError(t, err)
	require.Len(t, voices, 3)
	assert.IsType(t, &tts.ElevenLabsWS{}, voices[0])
	assert.IsType(t, &tts.OpenAI{}, voices[1])
	assert.IsType(t, &tts.ElevenLabs{}, voices[2])

	cfg.Providers.TTS.ElevenLabs.APIKey = ""
	voices, err = a.ttsProviders()
	require.NoError(t, err)
	assert.Len(t, voices, 1, "elevenlabs without a key is skipped")
}

func TestApp_RejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Providers.Mock = false
	cfg.Providers.OpenAI.APIKey = ""

	_, err := New(cfg, nil)
	assert.Error(t, err)
}

func TestApp_RunBeforeInit(t *testing.T) {
	a, err := New(testConfig(), nil)
	require.NoError(t, err)
	assert.Error(t, a.Run(context.Background()))
}

func TestApp_RegistryExposesPipelineMetrics(t *testing.T) {
	a, err := New(testConfig(), nil)
	require.NoError(t, err)

	families, err := a.Registry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["jarvis_assistant_state"])
	assert.True(t, names["go_goroutines"])
}
