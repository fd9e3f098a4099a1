package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Named is implemented by providers that can report a short name for logs.
type Named interface {
	Name() string
}

// Chain implements Provider by trying multiple providers in order.
// The first successful provider wins; if all fail, returns an aggregate error.
//
// A provider that rejects its key is parked for the rest of the process.
type Chain struct {
	providers []Provider
	logger    *slog.Logger

	mu     sync.Mutex
	parked map[int]bool
}

// NewChain creates a provider chain that tries providers in order.
// At least one provider is required.
func NewChain(logger *slog.Logger, providers ...Provider) (*Chain, error) {
	if len(providers) == 0 {
		return nil, ErrProviderUnavailable
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Chain{
		providers: providers,
		logger:    logger.With("component", "tts.chain"),
		parked:    make(map[int]bool),
	}, nil
}

// Synthesize tries each provider until one succeeds.
func (c *Chain) Synthesize(ctx context.Context, text string) (*AudioResult, error) {
	var errs []error

	for i, p := range c.providers {
		if c.isParked(i) {
			continue
		}

		result, err := p.Synthesize(ctx, text)
		if err == nil {
			if i > 0 {
				c.logger.Info("fallback provider succeeded",
					"provider", providerName(p, i),
					"chars", len(text),
				)
			}
			return result, nil
		}

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		errs = append(errs, err)

		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.IsUnauthorized() {
			c.park(i)
			c.logger.Error("provider rejected credentials, disabling",
				"provider", providerName(p, i),
				"error", err,
			)
			continue
		}

		c.logger.Warn("provider failed, trying next",
			"provider", providerName(p, i),
			"error", err,
		)
	}

	if len(errs) == 0 {
		return nil, ErrProviderUnavailable
	}
	return nil, &ChainError{Errors: errs}
}

// Health checks all providers and returns error if all are unhealthy.
func (c *Chain) Health(ctx context.Context) error {
	var healthy int
	var lastErr error

	for _, p := range c.providers {
		if err := p.Health(ctx); err != nil {
			lastErr = err
		} else {
			healthy++
		}
	}

	if healthy == 0 {
		return fmt.Errorf("all %d providers unhealthy: %w", len(c.providers), lastErr)
	}

	c.logger.Debug("health check complete",
		"healthy", healthy,
		"total", len(c.providers),
	)

	return nil
}

// Close closes all providers.
func (c *Chain) Close() error {
	var errs []error
	for _, p := range c.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Providers returns the list of providers in the chain.
func (c *Chain) Providers() []Provider {
	return c.providers
}

func (c *Chain) isParked(i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.parked[i]
}

func (c *Chain) park(i int) {
	c.mu.Lock()
	c.parked[i] = true
	c.mu.Unlock()
}

func providerName(p Provider, i int) string {
	if n, ok := p.(Named); ok {
		return n.Name()
	}
	return fmt.Sprintf("#%d", i)
}

// ChainError aggregates errors from all providers in a chain.
type ChainError struct {
	Errors []error
}

// Error implements the error interface.
func (e *ChainError) Error() string {
	if len(e.Errors) == 0 {
		return "tts chain: no errors recorded"
	}
	if len(e.Errors) == 1 {
		return fmt.Sprintf("tts chain: %v", e.Errors[0])
	}
	return fmt.Sprintf("tts chain: all %d providers failed, last error: %v", len(e.Errors), e.Errors[len(e.Errors)-1])
}

// Unwrap exposes every provider error to errors.Is and errors.As.
func (e *ChainError) Unwrap() []error {
	return e.Errors
}

var _ Provider = (*Chain)(nil)
