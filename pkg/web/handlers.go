package web

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/davidmun910/infraredSignalDetector/pkg/hub"
)

// handleIndex serves the dashboard page
func (s *Server) handleIndex(c *fiber.Ctx) error {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		return err
	}
	c.Type("html")
	return c.Send(page)
}

// handleStatus returns the latest loop status
func (s *Server) handleStatus(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":         s.Status(),
		"frames":         s.Frames(),
		"stop_requested": s.StopRequested(),
		"streaming":      s.canvasHub.IsRunning(),
		"canvas_clients": s.canvasHub.ClientCount(),
		"canvas_skipped": s.canvasHub.Skipped(),
		"canvas_dropped": s.canvasHub.Dropped(),
		"status_clients": s.statusHub.ClientCount(),
		"status_dropped": s.statusHub.Dropped(),
	})
}

// handleSnapshot returns the latest canvas as JPEG
func (s *Server) handleSnapshot(c *fiber.Ctx) error {
	jpeg := s.Snapshot()
	if jpeg == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "no canvas yet",
		})
	}
	c.Set(fiber.HeaderContentType, "image/jpeg")
	c.Set(fiber.HeaderCacheControl, "no-store")
	return c.Send(jpeg)
}

// handleStop asks the capture loop to stop
func (s *Server) handleStop(c *fiber.Ctx) error {
	s.RequestStop()
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"status": "stopping",
	})
}

// handleCanvasWS streams canvases as binary JPEG messages
func (s *Server) handleCanvasWS(c *websocket.Conn) {
	s.startHubs()
	if client := hub.NewClient(s.canvasHub, c); client != nil {
		client.Run()
	}
}

// handleStatusWS streams status messages
func (s *Server) handleStatusWS(c *websocket.Conn) {
	s.startHubs()
	client := hub.NewClient(s.statusHub, c)
	if client == nil {
		return
	}
	// Re-send the current status so the new client is not blank
	s.UpdateStatus(s.Status())
	client.Run()
}
