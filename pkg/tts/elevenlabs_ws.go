package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	elevenLabsWSBaseURL  = "wss://api.elevenlabs.io/v1/text-to-speech"
	providerElevenLabsWS = "elevenlabs_ws"
	wsHandshakeTimeout   = 10 * time.Second
)

// chunkSchedule is the character count ElevenLabs buffers before each
// generation; small first chunks get the first audio out sooner.
var chunkSchedule = []int{120, 160, 250, 290}

// ElevenLabsWS synthesizes over the ElevenLabs stream-input websocket.
// Each Synthesize opens a socket, sends the whole phrase, and collects
// audio chunks until the server marks the stream final.
type ElevenLabsWS struct {
	config  *Config
	dialer  *websocket.Dialer
	logger  *slog.Logger
	baseURL string
}

// NewElevenLabsWS creates the streaming ElevenLabs provider. It takes the
// same options as NewElevenLabs; WithBaseURL expects a ws:// or wss:// URL.
func NewElevenLabsWS(opts ...Option) (*ElevenLabsWS, error) {
	cfg, err := newConfig(ModelTurboV2_5, "", opts)
	if err != nil {
		return nil, err
	}
	if cfg.VoiceID == "" {
		return nil, ErrNoVoiceID
	}
	switch cfg.OutputFormat {
	case EncodingPCM16, EncodingPCM22, EncodingPCM24, EncodingPCM44:
	default:
		return nil, fmt.Errorf("tts [%s]: unsupported output format %q", providerElevenLabsWS, cfg.OutputFormat)
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = elevenLabsWSBaseURL
	}

	return &ElevenLabsWS{
		config:  cfg,
		dialer:  &websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout},
		logger:  cfg.Logger.With("component", "tts.elevenlabs_ws"),
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

func (e *ElevenLabsWS) Name() string {
	return providerElevenLabsWS
}

// wsMessage is one server frame: an audio chunk, the final marker or an error.
type wsMessage struct {
	Audio   string `json:"audio"`
	IsFinal bool   `json:"isFinal"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Synthesize streams text and returns the concatenated PCM.
func (e *ElevenLabsWS) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, wrap(providerElevenLabsWS, ErrEmptyText)
	}
	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}
	start := time.Now()

	conn, err := e.dial(ctx)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	// gorilla reads ignore ctx; closing the socket unblocks them.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	if err := e.send(conn, text); err != nil {
		return nil, e.ctxErr(ctx, fmt.Errorf("send text: %w", err))
	}

	var audio []byte
	var firstChunk time.Duration
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) && len(audio) > 0 {
				break
			}
			return nil, e.ctxErr(ctx, fmt.Errorf("read audio: %w", err))
		}
		if msg.Error != "" {
			return nil, wrap(providerElevenLabsWS, fmt.Errorf("stream error %s: %s", msg.Error, msg.Message))
		}
		if msg.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(msg.Audio)
			if err != nil {
				return nil, wrap(providerElevenLabsWS, fmt.Errorf("decode audio: %w", err))
			}
			if audio == nil {
				firstChunk = time.Since(start)
			}
			audio = append(audio, chunk...)
		}
		if msg.IsFinal {
			break
		}
	}

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	latency := time.Since(start).Milliseconds()

	e.logger.Debug("streamed audio",
		"chars", len(text),
		"bytes", len(audio),
		"first_chunk", firstChunk,
		"latency_ms", latency,
	)

	rate := SampleRateFromEncoding(e.config.OutputFormat)
	return &AudioResult{
		Audio: audio,
		Format: AudioFormat{
			Encoding:   e.config.OutputFormat,
			SampleRate: rate,
			Channels:   1,
			BitDepth:   16,
		},
		CharCount: len(text),
		LatencyMs: latency,
		Duration:  estimatePCMDuration(len(audio), rate),
	}, nil
}

// Health completes a websocket handshake, which checks the key and voice.
func (e *ElevenLabsWS) Health(ctx context.Context) error {
	conn, err := e.dial(ctx)
	if err != nil {
		return err
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return conn.Close()
}

func (e *ElevenLabsWS) Close() error {
	return nil
}

func (e *ElevenLabsWS) dial(ctx context.Context) (*websocket.Conn, error) {
	q := url.Values{}
	q.Set("model_id", e.config.ModelID)
	q.Set("output_format", string(e.config.OutputFormat))
	endpoint := fmt.Sprintf("%s/%s/stream-input?%s", e.baseURL, url.PathEscape(e.config.VoiceID), q.Encode())

	headers := http.Header{}
	headers.Set("xi-api-key", e.config.APIKey)

	conn, resp, err := e.dialer.DialContext(ctx, endpoint, headers)
	if err != nil {
		if resp != nil && resp.StatusCode >= http.StatusBadRequest {
			return nil, e.handshakeError(resp)
		}
		return nil, e.ctxErr(ctx, fmt.Errorf("dial: %w", err))
	}
	return conn, nil
}

// send writes the opening message, the phrase and the empty end-of-input message.
func (e *ElevenLabsWS) send(conn *websocket.Conn, text string) error {
	bos := map[string]any{
		"text":           " ",
		"voice_settings": butlerVoice,
		"generation_config": map[string]any{
			"chunk_length_schedule": chunkSchedule,
		},
	}
	if err := conn.WriteJSON(bos); err != nil {
		return err
	}
	// The server expects every text message to end with a space.
	if err := conn.WriteJSON(map[string]any{"text": text + " ", "flush": true}); err != nil {
		return err
	}
	return conn.WriteJSON(map[string]string{"text": ""})
}

func (e *ElevenLabsWS) handshakeError(resp *http.Response) *APIError {
	apiErr := &APIError{
		Service:    "tts",
		Provider:   providerElevenLabsWS,
		StatusCode: resp.StatusCode,
	}
	if resp.Body == nil {
		return apiErr
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var errResp struct {
		Detail struct {
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"detail"`
	}
	apiErr.Message = strings.TrimSpace(string(body))
	if json.Unmarshal(body, &errResp) == nil && errResp.Detail.Message != "" {
		apiErr.Message = errResp.Detail.Message
		apiErr.Code = errResp.Detail.Status
	}
	return apiErr
}

// ctxErr joins ctx.Err() onto err once ctx is done.
func (e *ElevenLabsWS) ctxErr(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return errors.Join(ctxErr, wrap(providerElevenLabsWS, err))
	}
	return wrap(providerElevenLabsWS, err)
}

var _ Provider = (*ElevenLabsWS)(nil)
