package inference

import (
	"context"
	"errors"
	"log/slog"

	"github.com/teslashibe/go-jarvis/pkg/camera"
)

// Chain asks each Responder in order until one produces a reply.
type Chain struct {
	responders []Responder
	logger     *slog.Logger
}

// NewChain builds a chain over responders. The first is the primary; the
// rest are fallbacks.
func NewChain(logger *slog.Logger, responders ...Responder) (*Chain, error) {
	if len(responders) == 0 {
		return nil, ErrNoResponders
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Chain{
		responders: responders,
		logger:     logger.With("component", "inference.chain"),
	}, nil
}

// Respond returns the first successful reply. A cancelled ctx stops the
// chain at once; otherwise every failure is collected into a ChainError.
func (c *Chain) Respond(ctx context.Context, prompt string, frame *camera.Frame) (string, error) {
	var errs []error

	for i, r := range c.responders {
		reply, err := r.Respond(ctx, prompt, frame)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback responder succeeded", "responder_index", i)
			}
			return reply, nil
		}

		errs = append(errs, err)
		if ctx.Err() != nil {
			return "", responseError(ctx.Err())
		}
		c.logger.Warn("responder failed, trying next",
			"responder_index", i,
			"error", err,
		)
	}
	return "", &ChainError{Errors: errs}
}

// Health succeeds when at least one responder is healthy.
func (c *Chain) Health(ctx context.Context) error {
	var errs []error
	for _, r := range c.responders {
		if err := r.Health(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) == len(c.responders) {
		return &ChainError{Errors: errs}
	}
	c.logger.Debug("health check complete",
		"healthy", len(c.responders)-len(errs),
		"total", len(c.responders),
	)
	return nil
}

// Close closes every responder.
func (c *Chain) Close() error {
	var errs []error
	for _, r := range c.responders {
		errs = append(errs, r.Close())
	}
	return errors.Join(errs...)
}

// Responders returns the chain's members in order.
func (c *Chain) Responders() []Responder {
	return c.responders
}

var _ Responder = (*Chain)(nil)
