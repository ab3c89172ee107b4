package server

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/vantagehq/vantage/pkg/models"
)

type intelligenceQueryRequest struct {
	Query string `json:"query"`
}

type simulateRequest struct {
	Assumptions map[string]any `json:"assumptions"`
}

// handleIntelligenceQuery answers a natural-language question about the
// current platform state. The intelligence client degrades to a canned
// low-confidence answer when the upstream model is unavailable.
func (s *Server) handleIntelligenceQuery(c *fiber.Ctx) error {
	var req intelligenceQueryRequest
	if err := c.BodyParser(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}
	if strings.TrimSpace(req.Query) == "" {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Query must not be empty", models.ValidationErrorType)
	}

	state := fiber.Map{
		"status": s.engine.Status(),
		"alerts": s.engine.List(),
		"kpis":   s.kpis.Snapshot(),
	}
	return SendSuccess(c, fiber.StatusOK, s.intelligence.Query(c.Context(), req.Query, state))
}

func (s *Server) handleIntelligenceSimulate(c *fiber.Ctx) error {
	var req simulateRequest
	if err := c.BodyParser(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, s.intelligence.Simulate(c.Context(), req.Assumptions))
}
