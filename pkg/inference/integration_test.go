//go:build integration

package inference

import (
	"context"
	"os"
	"testing"
	"time"
)

// Integration tests for real API calls.
// Run with: go test -tags=integration -v ./pkg/inference/...

func TestOpenAIIntegration(t *testing.T) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		t.Skip("OPENAI_API_KEY not set")
	}

	r, err := NewOpenAI(
		WithAPIKey(apiKey),
		WithModel("gpt-4o-mini"),
	)
	if err != nil {
		t.Fatalf("Failed to create responder: %v", err)
	}
	defer r.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	t.Run("Health", func(t *testing.T) {
		if err := r.Health(ctx); err != nil {
			t.Errorf("Health check failed: %v", err)
		}
	})

	t.Run("Respond", func(t *testing.T) {
		reply, err := r.Respond(ctx, "Say the word ready and nothing else.", nil)
		if err != nil {
			t.Fatalf("Respond failed: %v", err)
		}
		t.Logf("reply: %q usage: %+v", reply, r.LastUsage())
		if r.History().Len() != 1 {
			t.Errorf("Expected 1 remembered turn, got %d", r.History().Len())
		}
	})
}
