package utils

import (
	"errors"

	"project/backend/apperrors"

	"github.com/gofiber/fiber/v2"
)

// ErrorJSON writes an error response in the shape the web client expects.
func ErrorJSON(c *fiber.Ctx, status int, err error) error {
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// HandleError maps an engine error to its HTTP status: validation 400,
// conflict 409, not found 404, everything else 500.
func HandleError(c *fiber.Ctx, err error) error {
	switch {
	case apperrors.IsValidation(err):
		return ErrorJSON(c, fiber.StatusBadRequest, err)
	case apperrors.IsConflict(err):
		return ErrorJSON(c, fiber.StatusConflict, err)
	case errors.Is(err, apperrors.ErrNotFound):
		return ErrorJSON(c, fiber.StatusNotFound, err)
	default:
		return ErrorJSON(c, fiber.StatusInternalServerError, errors.New("internal server error"))
	}
}
