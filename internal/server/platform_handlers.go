package server

import (
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"

	"github.com/vantagehq/vantage/internal/engine"
	"github.com/vantagehq/vantage/pkg/models"
)

func (s *Server) handleStatus(c *fiber.Ctx) error {
	return SendSuccess(c, fiber.StatusOK, s.engine.Status())
}

// handleToggleSafeMode flips safe mode and returns the resulting platform
// status so clients can render the new state without a second request.
func (s *Server) handleToggleSafeMode(c *fiber.Ctx) error {
	status := s.engine.ToggleSafeMode()
	s.log.Info("safe mode toggled", "safe_mode", status.SafeMode, "actor", actor(c))
	return SendSuccess(c, fiber.StatusOK, status)
}

func (s *Server) handleListKPIs(c *fiber.Ctx) error {
	return SendSuccess(c, fiber.StatusOK, fiber.Map{
		"kpis":        s.kpis.Snapshot(),
		"last_update": s.kpis.LastUpdate(),
	})
}

func (s *Server) handleListRecipients(c *fiber.Ctx) error {
	return SendSuccess(c, fiber.StatusOK, s.engine.Recipients().Snapshot())
}

func (s *Server) handleAddRecipient(c *fiber.Ctx) error {
	var req models.AddRecipientRequest
	if err := c.BodyParser(&req); err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid request body", models.ValidationErrorType)
	}

	if err := s.engine.Recipients().Add(req.Address); err != nil {
		if errors.Is(err, engine.ErrInvalidRecipient) {
			return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid recipient address", models.ValidationErrorType)
		}
		s.log.Error("failed to add recipient", "error", err)
		return SendErrorWithType(c, fiber.StatusInternalServerError, "Failed to add recipient", models.GeneralErrorType)
	}

	if err := s.sqlite.AddRecipient(c.Context(), req.Address); err != nil {
		s.log.Error("failed to persist recipient", "address", req.Address, "error", err)
	}
	return SendSuccess(c, fiber.StatusCreated, s.engine.Recipients().Snapshot())
}

func (s *Server) handleRemoveRecipient(c *fiber.Ctx) error {
	// Route params arrive percent-encoded; "@" is commonly escaped as %40.
	address, err := url.PathUnescape(c.Params("address"))
	if err != nil {
		return SendErrorWithType(c, fiber.StatusBadRequest, "Invalid recipient address", models.ValidationErrorType)
	}
	s.engine.Recipients().Remove(address)

	if err := s.sqlite.RemoveRecipient(c.Context(), address); err != nil {
		s.log.Error("failed to remove persisted recipient", "address", address, "error", err)
	}
	return SendSuccess(c, fiber.StatusOK, s.engine.Recipients().Snapshot())
}
