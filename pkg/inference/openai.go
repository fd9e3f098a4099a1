package inference

import (
	"context"
	"log/slog"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/shared"

	"github.com/teslashibe/go-jarvis/internal/httpc"
	"github.com/teslashibe/go-jarvis/pkg/camera"
)

const providerOpenAI = "openai"

// OpenAI implements Responder with chat completions.
// Works with any OpenAI-compatible API (OpenAI, Ollama, vLLM, Groq, etc.).
type OpenAI struct {
	config  *Config
	client  oai.Client
	history *History
	logger  *slog.Logger

	lastUsage Usage
}

// NewOpenAI creates a new chat responder.
func NewOpenAI(opts ...Option) (*OpenAI, error) {
	cfg := DefaultConfig()
	cfg.Apply(opts...)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
		option.WithHTTPClient(httpc.NewClient(cfg.Timeout)),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAI{
		config:  cfg,
		client:  oai.NewClient(reqOpts...),
		history: NewHistory(cfg.HistoryTurns),
		logger:  cfg.Logger.With("component", "inference.openai"),
	}, nil
}

// Respond sends the system prompt, the remembered exchanges and the prompt
// (with the frame attached when non-nil) and returns the first choice's text.
// Successful exchanges are added to the history.
func (o *OpenAI) Respond(ctx context.Context, prompt string, frame *camera.Frame) (string, error) {
	start := time.Now()

	resp, err := o.client.Chat.Completions.New(ctx, o.buildParams(prompt, frame))
	if err != nil {
		return "", responseError(httpc.FromOpenAI("inference", err))
	}
	if len(resp.Choices) == 0 {
		return "", responseError(httpc.Wrap("inference", providerOpenAI, ErrEmptyReply))
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", responseError(httpc.Wrap("inference", providerOpenAI, ErrEmptyReply))
	}

	o.history.Add(prompt, reply)
	o.lastUsage = Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}

	o.logger.Debug("reply generated",
		"model", resp.Model,
		"with_image", frame != nil,
		"history_turns", o.history.Len(),
		"tokens", resp.Usage.TotalTokens,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	return reply, nil
}

// Health checks API connectivity and key validity by listing models.
func (o *OpenAI) Health(ctx context.Context) error {
	if _, err := o.client.Models.List(ctx); err != nil {
		return httpc.FromOpenAI("inference", err)
	}
	return nil
}

// Close releases resources.
func (o *OpenAI) Close() error {
	return nil
}

// History exposes the conversation memory.
func (o *OpenAI) History() *History {
	return o.history
}

// LastUsage returns token usage of the most recent successful reply.
// Respond is only ever called by one goroutine at a time.
func (o *OpenAI) LastUsage() Usage {
	return o.lastUsage
}

func (o *OpenAI) buildParams(prompt string, frame *camera.Frame) oai.ChatCompletionNewParams {
	var messages []oai.ChatCompletionMessageParamUnion

	if o.config.SystemPrompt != "" {
		messages = append(messages, oai.SystemMessage(o.config.SystemPrompt))
	}
	for _, m := range o.history.Messages() {
		switch m.Role {
		case RoleUser:
			messages = append(messages, oai.UserMessage(m.Content))
		case RoleAssistant:
			messages = append(messages, oai.AssistantMessage(m.Content))
		}
	}

	if frame != nil && len(frame.Data) > 0 {
		messages = append(messages, oai.UserMessage([]oai.ChatCompletionContentPartUnionParam{
			oai.TextContentPart(prompt),
			oai.ImageContentPart(oai.ChatCompletionContentPartImageImageURLParam{
				URL:    ImageDataURL(frame),
				Detail: o.config.ImageDetail,
			}),
		}))
	} else {
		messages = append(messages, oai.UserMessage(prompt))
	}

	params := oai.ChatCompletionNewParams{
		Model:    shared.ChatModel(o.config.Model),
		Messages: messages,
	}
	if o.config.Temperature != 0 {
		params.Temperature = param.NewOpt(o.config.Temperature)
	}
	if o.config.MaxTokens > 0 {
		params.MaxCompletionTokens = param.NewOpt(int64(o.config.MaxTokens))
	}
	return params
}

var _ Responder = (*OpenAI)(nil)
