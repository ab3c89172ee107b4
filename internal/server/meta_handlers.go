package server

import (
	"bytes"

	"github.com/VictoriaMetrics/metrics"
	"github.com/gofiber/fiber/v2"
)

// handleHealth reports process liveness plus the platform mode so load
// balancers and the console share one probe.
func (s *Server) handleHealth(c *fiber.Ctx) error {
	status := s.engine.Status()
	return SendSuccess(c, fiber.StatusOK, fiber.Map{
		"version":       s.version,
		"build":         s.buildInfo,
		"safe_mode":     status.SafeMode,
		"system_status": status.SystemStatus,
	})
}

func (s *Server) handleMetrics(c *fiber.Ctx) error {
	var buf bytes.Buffer
	metrics.WritePrometheus(&buf, true)
	c.Set(fiber.HeaderContentType, "text/plain; charset=utf-8")
	return c.Status(fiber.StatusOK).Send(buf.Bytes())
}
