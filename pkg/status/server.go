// Package status serves a read-only view of the running assistant: health,
// a JSON snapshot, Prometheus metrics and a websocket of state transitions.
package status

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-jarvis/pkg/assistant"
	"github.com/teslashibe/go-jarvis/pkg/hub"
)

// EventTransition is the envelope type for state transitions on /ws/status.
const EventTransition = "transition"

const shutdownTimeout = 2 * time.Second

// Source reports the pipeline status. *assistant.Supervisor implements it.
type Source interface {
	Status() assistant.Status
}

// Server is the status HTTP server.
type Server struct {
	app    *fiber.App
	addr   string
	source Source
	hub    *hub.Hub
	logger *slog.Logger
}

// New builds the server. gatherer may be nil to use the default registry.
func New(addr string, source Source, gatherer prometheus.Gatherer, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{
		addr:   addr,
		source: source,
		logger: logger.With("component", "status"),
	}
	s.hub = hub.New("status", s.logger)

	app := fiber.New(fiber.Config{
		AppName:               "jarvis status",
		DisableStartupMessage: true,
	})
	app.Use(recover.New())

	app.Get("/healthz", s.handleHealth)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// App exposes the fiber app, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Hub returns the transition broadcast hub.
func (s *Server) Hub() *hub.Hub {
	return s.hub
}

// Publish broadcasts a state transition. Pass it to assistant.Shared.Observe.
func (s *Server) Publish(t assistant.Transition) {
	if err := s.hub.BroadcastEvent(EventTransition, t); err != nil {
		s.logger.Warn("encode transition failed", "error", err)
	}
}

// Run serves until ctx is cancelled, then shuts down.
func (s *Server) Run(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go s.hub.Run(hubCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("status server listening", "addr", s.addr)
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	stopHub()
	if err := s.app.ShutdownWithTimeout(shutdownTimeout); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
