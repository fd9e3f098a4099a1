package inference

import (
	"context"
	"errors"
	"testing"

	"github.com/teslashibe/go-jarvis/pkg/camera"
)

func TestChainFallsBack(t *testing.T) {
	ctx := context.Background()
	primary := WithError(errors.New("upstream 500"))
	backup := NewMock()

	chain, err := NewChain(nil, primary, backup)
	if err != nil {
		t.Fatalf("NewChain: %v", err)
	}

	frame := &camera.Frame{Data: []byte{1}}
	reply, err := chain.Respond(ctx, "hello", frame)
	if err != nil || reply != "You said: hello" {
		t.Fatalf("Unexpected reply %q, err %v", reply, err)
	}
	if primary.CallCount("Respond") != 1 || backup.CallCount("Respond") != 1 {
		t.Errorf("Expected one call each, got %d and %d", primary.CallCount("Respond"), backup.CallCount("Respond"))
	}
	if last := backup.LastCall(); last == nil || last.Frame != frame {
		t.Error("Expected the frame to reach the fallback")
	}
}

func TestChainPrimaryAnswers(t *testing.T) {
	primary := NewMock()
	backup := NewMock()
	chain, _ := NewChain(nil, primary, backup)

	if _, err := chain.Respond(context.Background(), "hi", nil); err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if backup.CallCount("Respond") != 0 {
		t.Error("Fallback must not be asked when the primary answers")
	}
}

func TestChainAllFail(t *testing.T) {
	first := errors.New("first down")
	second := &APIError{Service: "inference", Provider: "openai", StatusCode: 429}
	chain, _ := NewChain(nil, WithError(first), WithError(second))

	_, err := chain.Respond(context.Background(), "hi", nil)
	var chainErr *ChainError
	if !errors.As(err, &chainErr) || len(chainErr.Errors) != 2 {
		t.Fatalf("Expected ChainError with 2 errors, got %v", err)
	}
	if !errors.Is(err, ErrResponse) || !errors.Is(err, first) {
		t.Errorf("Expected error to wrap ErrResponse and the first failure, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || !apiErr.IsRateLimited() {
		t.Errorf("Expected the rate limit to surface, got %v", err)
	}
}

func TestChainStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	primary := &Mock{RespondFunc: func(ctx context.Context, prompt string, frame *camera.Frame) (string, error) {
		cancel()
		return "", ctx.Err()
	}}
	backup := NewMock()
	chain, _ := NewChain(nil, primary, backup)

	_, err := chain.Respond(ctx, "hi", nil)
	if !errors.Is(err, context.Canceled) || !errors.Is(err, ErrResponse) {
		t.Errorf("Expected cancellation, got %v", err)
	}
	if backup.CallCount("Respond") != 0 {
		t.Error("Fallback must not be asked after cancellation")
	}
}

func TestChainHealthAndClose(t *testing.T) {
	down := errors.New("down")
	healthy := NewMock()
	chain, _ := NewChain(nil, WithError(down), healthy)

	if err := chain.Health(context.Background()); err != nil {
		t.Errorf("Expected healthy chain, got %v", err)
	}

	allDown, _ := NewChain(nil, WithError(down))
	if err := allDown.Health(context.Background()); !errors.Is(err, down) {
		t.Errorf("Expected health failure, got %v", err)
	}

	if err := chain.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
	if healthy.CallCount("Close") != 1 {
		t.Error("Expected Close to reach every responder")
	}
}

func TestNewChainRequiresResponder(t *testing.T) {
	if _, err := NewChain(nil); !errors.Is(err, ErrNoResponders) {
		t.Errorf("Expected ErrNoResponders, got %v", err)
	}
}
