package tts_test

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-jarvis/pkg/tts"
)

// streamServer answers the stream-input protocol: it reads the opening
// message, the text and the end-of-input message, then replies with chunks.
func streamServer(t *testing.T, chunks [][]byte, final bool) (*httptest.Server, chan []string) {
	t.Helper()
	texts := make(chan []string, 1)
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("xi-api-key") != "key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":{"status":"invalid_api_key","message":"Invalid API key"}}`))
			return
		}
		if !strings.HasSuffix(r.URL.Path, "/"+tts.VoiceGeorge+"/stream-input") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.URL.Query().Get("output_format") != "pcm_24000" {
			t.Errorf("unexpected output_format %q", r.URL.Query().Get("output_format"))
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()

		var got []string
		for {
			var msg struct {
				Text string `json:"text"`
			}
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			got = append(got, msg.Text)
			if msg.Text == "" {
				break
			}
		}
		texts <- got

		for _, c := range chunks {
			_ = conn.WriteJSON(map[string]any{"audio": base64.StdEncoding.EncodeToString(c)})
		}
		if final {
			_ = conn.WriteJSON(map[string]any{"isFinal": true})
		}
		// Hold the socket open until the client goes away.
		_, _, _ = conn.ReadMessage()
	}))
	return srv, texts
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestElevenLabsWS(t *testing.T) {
	t.Run("requires voice", func(t *testing.T) {
		if _, err := tts.NewElevenLabsWS(tts.WithAPIKey("k")); !errors.Is(err, tts.ErrNoVoiceID) {
			t.Errorf("expected ErrNoVoiceID, got %v", err)
		}
	})

	t.Run("collects streamed chunks", func(t *testing.T) {
		srv, texts := streamServer(t, [][]byte{make([]byte, 2400), make([]byte, 2400)}, true)
		defer srv.Close()

		p, err := tts.NewElevenLabsWS(tts.WithAPIKey("key"), tts.WithVoice(tts.VoiceGeorge), tts.WithBaseURL(wsURL(srv)))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Name() != "elevenlabs_ws" {
			t.Errorf("unexpected name %q", p.Name())
		}

		result, err := p.Synthesize(context.Background(), "Good evening, sir")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(result.Audio) != 4800 {
			t.Errorf("expected 4800 bytes, got %d", len(result.Audio))
		}
		if result.Duration != 100*time.Millisecond {
			t.Errorf("expected 100ms, got %v", result.Duration)
		}
		if result.Format.SampleRate != 24000 {
			t.Errorf("expected 24 kHz, got %d", result.Format.SampleRate)
		}

		got := <-texts
		if len(got) != 3 || got[0] != " " || got[1] != "Good evening, sir " || got[2] != "" {
			t.Errorf("unexpected messages %q", got)
		}
	})

	t.Run("handshake rejection is unauthorized", func(t *testing.T) {
		srv, _ := streamServer(t, nil, true)
		defer srv.Close()

		p, _ := tts.NewElevenLabsWS(tts.WithAPIKey("bad"), tts.WithVoice(tts.VoiceGeorge), tts.WithBaseURL(wsURL(srv)))
		_, err := p.Synthesize(context.Background(), "hi")

		var apiErr *tts.APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if !apiErr.IsUnauthorized() || apiErr.Provider != "elevenlabs_ws" {
			t.Errorf("unexpected error fields: %+v", apiErr)
		}
		if err := p.Health(context.Background()); !errors.As(err, &apiErr) {
			t.Errorf("expected health to report APIError, got %v", err)
		}
	})

	t.Run("honours context while waiting for audio", func(t *testing.T) {
		srv, _ := streamServer(t, nil, false)
		defer srv.Close()

		p, _ := tts.NewElevenLabsWS(tts.WithAPIKey("key"), tts.WithVoice(tts.VoiceGeorge), tts.WithBaseURL(wsURL(srv)))
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		_, err := p.Synthesize(ctx, "hello")
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline exceeded, got %v", err)
		}
		if time.Since(start) > 2*time.Second {
			t.Errorf("synthesize ignored the deadline")
		}
	})

	t.Run("falls back in a chain", func(t *testing.T) {
		srv, _ := streamServer(t, nil, true)
		defer srv.Close()

		ws, _ := tts.NewElevenLabsWS(tts.WithAPIKey("bad"), tts.WithVoice(tts.VoiceGeorge), tts.WithBaseURL(wsURL(srv)))
		backup := tts.NewMock()
		chain, err := tts.NewChain(nil, ws, backup)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, err := chain.Synthesize(context.Background(), "hello"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if backup.CallCount("Synthesize") != 1 {
			t.Errorf("expected backup to answer")
		}
	})
}
