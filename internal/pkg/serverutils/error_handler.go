package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandlerMiddleware turns errors returned by handlers into JSON replies.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}
		return WriteError(ctx, err)
	}
}

// WriteError maps an error to a status code and the error envelope.
func WriteError(ctx *fiber.Ctx, err error) error {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return ctx.Status(fiber.StatusUnprocessableEntity).JSON(ErrorResponse("Invalid request", verr.Fields))
	}

	var ferr *fiber.Error
	if errors.As(err, &ferr) {
		return ctx.Status(ferr.Code).JSON(ErrorResponse(ferr.Message, nil))
	}

	return ctx.Status(fiber.StatusInternalServerError).JSON(ErrorResponse("Internal server error", nil))
}
