package server

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/vantagehq/vantage/internal/engine"
	"github.com/vantagehq/vantage/pkg/models"
)

func (s *Server) handleListAlerts(c *fiber.Ctx) error {
	return SendSuccess(c, fiber.StatusOK, s.engine.List())
}

// handleTriggerAlert creates an alert and dispatches notifications before
// responding. Delivery failures surface in the alert's status, not as an
// HTTP error, so the response is 201 either way.
func (s *Server) handleTriggerAlert(c *fiber.Ctx) error {
	var req models.TriggerAlertRequest
	if err := c.BodyParser(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}

	alert, err := s.engine.Trigger(c.Context(), req)
	if err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, err.Error(), models.ValidationErrorType)
	}
	return SendSuccess(c, fiber.StatusCreated, alert)
}

func (s *Server) handleGetAlert(c *fiber.Ctx) error {
	alert, err := s.engine.Get(c.Params("alertID"))
	if err != nil {
		if errors.Is(err, engine.ErrAlertNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "Alert not found", models.NotFoundErrorType)
		}
		s.log.Error("failed to get alert", "alert_id", c.Params("alertID"), "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to retrieve alert", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, alert)
}

func (s *Server) handleGetAuditTrail(c *fiber.Ctx) error {
	trail, err := s.engine.AuditTrail(c.Params("alertID"))
	if err != nil {
		if errors.Is(err, engine.ErrAlertNotFound) {
			return SendErrorWithType(c, fiber.StatusNotFound, "Alert not found", models.NotFoundErrorType)
		}
		s.log.Error("failed to get audit trail", "alert_id", c.Params("alertID"), "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to retrieve audit trail", models.GeneralErrorType)
	}
	return SendSuccess(c, fiber.StatusOK, trail)
}

func (s *Server) handleAcknowledgeAlert(c *fiber.Ctx) error {
	alertID := c.Params("alertID")
	if err := s.engine.Acknowledge(c.Context(), alertID, actor(c)); err != nil {
		switch {
		case errors.Is(err, engine.ErrAlertNotFound):
			return SendErrorWithType(c, fiber.StatusNotFound, "Alert not found", models.NotFoundErrorType)
		case errors.Is(err, engine.ErrAlertResolved):
			return SendErrorWithType(c, fiber.StatusBadRequest, "Alert is already resolved", models.ValidationErrorType)
		default:
			s.log.Error("failed to acknowledge alert", "alert_id", alertID, "error", err)
			return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to acknowledge alert", models.GeneralErrorType)
		}
	}
	return SendSuccess(c, fiber.StatusOK, fiber.Map{"message": "Alert acknowledged"})
}

func (s *Server) handleResolveAlert(c *fiber.Ctx) error {
	alertID := c.Params("alertID")

	var req models.ResolveAlertRequest
	if err := c.BodyParser(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}

	if err := s.engine.Resolve(c.Context(), alertID, req.Notes, actor(c)); err != nil {
		switch {
		case errors.Is(err, engine.ErrAlertNotFound):
			return SendErrorWithType(c, fiber.StatusNotFound, "Alert not found", models.NotFoundErrorType)
		case errors.Is(err, engine.ErrEmptyResolutionNotes):
			return SendErrorWithType(c, fiber.StatusBadRequest, "Resolution notes are required", models.ValidationErrorType)
		default:
			s.log.Error("failed to resolve alert", "alert_id", alertID, "error", err)
			return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to resolve alert", models.GeneralErrorType)
		}
	}
	return SendSuccess(c, fiber.StatusOK, fiber.Map{"message": "Alert resolved"})
}

func (s *Server) handleRedispatchAlert(c *fiber.Ctx) error {
	alertID := c.Params("alertID")

	alert, err := s.engine.Redispatch(c.Context(), alertID, actor(c))
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrAlertNotFound):
			return SendErrorWithType(c, fiber.StatusNotFound, "Alert not found", models.NotFoundErrorType)
		case errors.Is(err, engine.ErrRedispatchNotAllowed):
			return SendErrorWithType(c, fiber.StatusBadRequest, "Alert is not in a failed delivery state", models.ValidationErrorType)
		default:
			s.log.Error("failed to redispatch alert", "alert_id", alertID, "error", err)
			return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to redispatch alert", models.GeneralErrorType)
		}
	}
	return SendSuccess(c, fiber.StatusOK, alert)
}
