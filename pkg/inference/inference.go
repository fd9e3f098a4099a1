// Package inference generates the assistant's spoken replies.
//
// A Responder receives the user's request (wake word already stripped) and,
// when the camera is enabled and fresh, the latest frame. The OpenAI
// implementation talks to any OpenAI-compatible chat endpoint and keeps a
// bounded conversation history so follow-up questions have context.
//
// Example usage:
//
//	r, _ := inference.NewOpenAI(
//	    inference.WithAPIKey(os.Getenv("OPENAI_API_KEY")),
//	    inference.WithModel("gpt-4o-mini"),
//	)
//	defer r.Close()
//
//	reply, _ := r.Respond(ctx, "what am I holding?", frame)
package inference

import (
	"context"

	"github.com/teslashibe/go-jarvis/pkg/camera"
)

// Responder produces a reply to a user request.
type Responder interface {
	// Respond returns the reply text. frame may be nil.
	// Errors wrap ErrResponse.
	Respond(ctx context.Context, prompt string, frame *camera.Frame) (string, error)

	// Health checks provider connectivity and API key validity.
	Health(ctx context.Context) error

	// Close releases any resources held by the responder.
	Close() error
}

// Usage tracks token consumption for billing and limits.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}
