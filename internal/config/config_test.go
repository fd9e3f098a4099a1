package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/go-jarvis/pkg/command"
)

func TestDefaultIsValidWithKey(t *testing.T) {
	cfg := Default()
	cfg.Providers.OpenAI.APIKey = "sk-test"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Audio.QueueSize != 64 {
		t.Errorf("queue_size = %d, want 64", cfg.Audio.QueueSize)
	}
	if cfg.Audio.SampleRate != 16000 || cfg.Speaker.SampleRate != 24000 {
		t.Errorf("unexpected sample rates: mic %d, speaker %d", cfg.Audio.SampleRate, cfg.Speaker.SampleRate)
	}
}

func TestLoadFromReader(t *testing.T) {
	doc := `
audio:
  sample_rate: 48000
  chunk_duration: 50ms
  device: first
  queue_size: 16
gate:
  trigger_threshold: 0.05
  release_threshold: 0.02
  silence_run: 3
camera:
  index: 2
  mirror: false
assistant:
  wake_words: ["computer"]
  call_timeout: 5s
  commands:
    - phrase: lights off
      command: disable_camera
providers:
  openai:
    api_key: sk-file
  tts:
    order: [elevenlabs]
`
	cfg, err := LoadFromReader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Audio.SampleRate != 48000 || cfg.Audio.ChunkDuration != 50*time.Millisecond {
		t.Errorf("audio = %+v", cfg.Audio)
	}
	if cfg.Audio.Channels != 1 {
		t.Errorf("unset channels should keep the default, got %d", cfg.Audio.Channels)
	}
	if cfg.Audio.QueueSize != 16 || cfg.Audio.Device != "first" {
		t.Errorf("audio queue/device = %d/%q", cfg.Audio.QueueSize, cfg.Audio.Device)
	}
	if cfg.Gate.SilenceRun != 3 {
		t.Errorf("silence_run = %d, want 3", cfg.Gate.SilenceRun)
	}
	if cfg.Camera.Index != 2 || cfg.Camera.Mirror {
		t.Errorf("camera = %+v", cfg.Camera)
	}
	if got := cfg.Assistant.WakeWords; len(got) != 1 || got[0] != "computer" {
		t.Errorf("wake_words = %v", got)
	}
	if cfg.Assistant.CallTimeout != 5*time.Second {
		t.Errorf("call_timeout = %v", cfg.Assistant.CallTimeout)
	}
	if len(cfg.Assistant.Commands) != 1 || cfg.Assistant.Commands[0].Kind != command.DisableCamera {
		t.Errorf("commands = %+v", cfg.Assistant.Commands)
	}
	if cfg.Providers.OpenAI.APIKey != "sk-file" {
		t.Errorf("api key = %q", cfg.Providers.OpenAI.APIKey)
	}
}

func TestLoadFromReaderRejectsUnknownFields(t *testing.T) {
	_, err := LoadFromReader(strings.NewReader("audio:\n  sample_rte: 8000\n"))
	if err == nil {
		t.Fatal("expected error for misspelled key")
	}
}

func TestValidateJoinsErrors(t *testing.T) {
	doc := `
audio:
  queue_size: 0
gate:
  silence_run: 0
assistant:
  wake_words: []
providers:
  tts:
    order: [festival]
`
	_, err := LoadFromReader(strings.NewReader(doc))
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, want := range []string{"queue_size", "silence_run", "wake_words", "openai.api_key", "festival"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %s, got: %v", want, err)
		}
	}
}

func TestLLMFallbacksAndStreamingVoice(t *testing.T) {
	doc := `
providers:
  openai:
    api_key: sk-test
  llm:
    fallbacks:
      - model: gpt-4o
      - base_url: http://127.0.0.1:11434/v1
  tts:
    order: [elevenlabs_ws, openai]
`
	_, err := LoadFromReader(strings.NewReader(doc))
	if err == nil || !strings.Contains(err.Error(), "llm.fallbacks[1].model") {
		t.Fatalf("expected missing fallback model error, got %v", err)
	}
	if strings.Contains(err.Error(), "elevenlabs_ws") {
		t.Errorf("elevenlabs_ws should be a known tts provider: %v", err)
	}

	doc = strings.Replace(doc, "base_url: http://127.0.0.1:11434/v1", `model: llama3.2-vision
        base_url: http://127.0.0.1:11434/v1`, 1)
	cfg, err := LoadFromReader(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if fb := cfg.Providers.LLM.Fallbacks; len(fb) != 2 || fb[1].BaseURL != "http://127.0.0.1:11434/v1" {
		t.Errorf("fallbacks = %+v", fb)
	}
}

func TestMockProvidersNeedNoKey(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader("providers:\n  mock: true\n"))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if !cfg.Providers.Mock {
		t.Error("mock should be set")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvOpenAIKey:         "sk-env",
		EnvElevenLabsKey:     "el-env",
		EnvElevenLabsVoiceID: "voice-env",
		EnvLogLevel:          "debug",
	}
	cfg := Default()
	cfg.ApplyEnv(func(k string) string { return env[k] })

	if cfg.Providers.OpenAI.APIKey != "sk-env" {
		t.Errorf("openai key = %q", cfg.Providers.OpenAI.APIKey)
	}
	if cfg.Providers.TTS.ElevenLabs.APIKey != "el-env" || cfg.Providers.TTS.ElevenLabs.VoiceID != "voice-env" {
		t.Errorf("elevenlabs = %+v", cfg.Providers.TTS.ElevenLabs)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q", cfg.Log.Level)
	}
}

func TestLoadWithEnvFile(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "jarvis.yaml")
	envPath := filepath.Join(dir, ".env")

	if err := os.WriteFile(yamlPath, []byte("status:\n  enabled: true\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(envPath, []byte("OPENAI_API_KEY=sk-dotenv\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(EnvOpenAIKey, "")
	os.Unsetenv(EnvOpenAIKey)

	cfg, err := Load(yamlPath, envPath, filepath.Join(dir, "missing.env"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Providers.OpenAI.APIKey != "sk-dotenv" {
		t.Errorf("api key = %q, want value from .env", cfg.Providers.OpenAI.APIKey)
	}
	if !cfg.Status.Enabled {
		t.Error("status.enabled should come from the file")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
