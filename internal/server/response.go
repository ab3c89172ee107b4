package server

import (
	"github.com/gofiber/fiber/v2"

	"github.com/vantagehq/vantage/pkg/models"
)

// SendSuccess writes a success envelope with the given status code.
func SendSuccess(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(models.APIResponse{
		Status: "success",
		Data:   data,
	})
}

// SendError writes a general error envelope.
func SendError(c *fiber.Ctx, status int, message string) error {
	return SendErrorWithType(c, status, message, models.GeneralErrorType)
}

// SendErrorWithType writes an error envelope with an explicit error category.
func SendErrorWithType(c *fiber.Ctx, status int, message string, errorType models.ErrorType) error {
	return c.Status(status).JSON(models.APIError{
		Status:    "error",
		Message:   message,
		ErrorType: errorType,
	})
}
