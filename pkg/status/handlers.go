package status

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-jarvis/pkg/hub"
)

// handleHealth reports liveness with the current state.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	st := s.source.Status()
	return c.JSON(fiber.Map{
		"status": "ok",
		"state":  st.State,
	})
}

// handleStatus returns the full snapshot.
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.source.Status())
}

// handleStatusWS streams transitions. The current snapshot is sent first.
func (s *Server) handleStatusWS(c *websocket.Conn) {
	msg, err := hub.Encode("status", s.source.Status())
	if err == nil {
		_ = c.WriteMessage(websocket.TextMessage, msg.Data)
	}
	hub.NewClient(s.hub, c).Serve()
}
