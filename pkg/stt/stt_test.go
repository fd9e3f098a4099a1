package stt

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teslashibe/go-jarvis/pkg/audioio"
	"github.com/teslashibe/go-jarvis/pkg/vad"
)

func testUtterance(chunks int) *vad.Utterance {
	u := &vad.Utterance{ID: "u-1", Duration: time.Duration(chunks) * 100 * time.Millisecond}
	for i := 0; i < chunks; i++ {
		samples := make([]int16, 1600)
		audioio.FillAmplitude(samples, 0.1)
		u.Chunks = append(u.Chunks, audioio.AudioChunk{Samples: samples, SampleRate: 16000, Channels: 1})
	}
	return u
}

func TestOpenAITranscribe(t *testing.T) {
	var uploaded audioio.AudioChunk
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/transcriptions", r.URL.Path)
		if !assert.NoError(t, r.ParseMultipartForm(1<<20)) {
			return
		}
		assert.Equal(t, ModelWhisper1, r.FormValue("model"))
		assert.Equal(t, "en", r.FormValue("language"))
		assert.Equal(t, "Jarvis", r.FormValue("prompt"))

		f, hdr, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		assert.Equal(t, "utterance.wav", hdr.Filename)

		data, err := io.ReadAll(f)
		assert.NoError(t, err)
		uploaded, err = audioio.DecodeWAV(data)
		assert.NoError(t, err)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"text": "  Hey Jarvis, what time is it?  "})
	}))
	defer srv.Close()

	cfg := DefaultConfig()
	cfg.APIKey = "test"
	cfg.BaseURL = srv.URL + "/v1/"
	cfg.MaxRetries = 0
	tr, err := NewOpenAI(cfg)
	require.NoError(t, err)

	text, err := tr.Transcribe(context.Background(), testUtterance(5))
	require.NoError(t, err)
	assert.Equal(t, "Hey Jarvis, what time is it?", text)

	assert.Equal(t, 16000, uploaded.SampleRate)
	assert.Equal(t, 1, uploaded.Channels)
	assert.Len(t, uploaded.Samples, 5*1600)
}

func TestOpenAITranscribeErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key","type":"invalid_request_error","code":"invalid_api_key","param":null}}`))
	}))
	defer srv.Close()

	tr, err := NewOpenAI(Config{APIKey: "bad", BaseURL: srv.URL + "/v1/"})
	require.NoError(t, err)

	_, err = tr.Transcribe(context.Background(), testUtterance(3))
	require.ErrorIs(t, err, ErrTranscription)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.True(t, apiErr.IsUnauthorized())

	_, err = tr.Transcribe(context.Background(), &vad.Utterance{ID: "empty"})
	assert.ErrorIs(t, err, ErrEmptyUtterance)
	assert.ErrorIs(t, err, ErrTranscription)
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	_, err := NewOpenAI(DefaultConfig())
	assert.Error(t, err)
}

func TestMock(t *testing.T) {
	m := NewMock("hey jarvis hello", "")
	m.Default = "fallback"
	ctx := context.Background()

	text, err := m.Transcribe(ctx, &vad.Utterance{ID: "a"})
	require.NoError(t, err)
	assert.Equal(t, "hey jarvis hello", text)

	text, _ = m.Transcribe(ctx, &vad.Utterance{ID: "b"})
	assert.Empty(t, text)

	text, _ = m.Transcribe(ctx, &vad.Utterance{ID: "c"})
	assert.Equal(t, "fallback", text)
	assert.Equal(t, []string{"a", "b", "c"}, m.Utterances())

	boom := errors.New("offline")
	_, err = WithError(boom).Transcribe(ctx, &vad.Utterance{ID: "d"})
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, err, ErrTranscription)
}
