package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/teslashibe/go-clawd/pkg/hub"
)

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(s.Status())
}

// handleConversation returns the persisted history as stored on disk.
func (s *Server) handleConversation(c *fiber.Ctx) error {
	turns, err := s.store.LoadStrict()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
	return c.JSON(fiber.Map{
		"path":  s.store.Path(),
		"turns": turns,
	})
}

func (s *Server) handleEventsWS(c *websocket.Conn) {
	client := hub.NewClient(s.events, c)
	if client == nil {
		c.Close()
		return
	}
	client.Run()
}
