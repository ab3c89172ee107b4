package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/vantagehq/vantage/internal/sqlite"
	"github.com/vantagehq/vantage/pkg/models"
)

func (s *Server) handleListModels(c *fiber.Ctx) error {
	registry, err := s.sqlite.ListModels(c.Context())
	if err != nil {
		s.log.Error("failed to list models", "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to list models", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, registry)
}

func (s *Server) handleListDecisions(c *fiber.Ctx) error {
	decisions, err := s.sqlite.ListDecisions(c.Context())
	if err != nil {
		s.log.Error("failed to list decisions", "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to list decisions", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, decisions)
}

func (s *Server) handleUpdateDecision(c *fiber.Ctx) error {
	decisionID := c.Params("decisionID")

	var req models.UpdateDecisionRequest
	if err := c.BodyParser(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}
	if _, ok := models.ValidDecisionStatuses[req.Status]; !ok {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid decision status", models.ValidationErrorType)
	}

	// Safe mode keeps prescriptive recommendations advisory only.
	if s.engine.Status().SafeMode && req.Status == models.DecisionStatusApproved {
		return SendErrorWithType(c, fiber.StatusConflict, "Cannot approve decisions while safe mode is active", models.ValidationErrorType)
	}

	if err := s.sqlite.UpdateDecisionStatus(c.Context(), decisionID, req.Status); err != nil {
		if errors.Is(err, sqlite.ErrNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "Decision not found", models.NotFoundErrorType)
		}
		s.log.Error("failed to update decision", "decision_id", decisionID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to update decision", models.GeneralErrorType)
	}

	decision, err := s.sqlite.GetDecision(c.Context(), decisionID)
	if err != nil {
		s.log.Error("failed to reload decision", "decision_id", decisionID, "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to update decision", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, decision)
}
