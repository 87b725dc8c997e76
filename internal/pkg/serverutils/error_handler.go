package serverutils

import (
	"errors"

	"voicetask/internal/repository/contract"
	"voicetask/pkg/extraction"

	"github.com/gofiber/fiber/v2"
)

// userMessenger is implemented by errors that carry a notification meant
// for the end user.
type userMessenger interface {
	UserMessage() string
}

// StatusFor maps an error to its HTTP status.
func StatusFor(err error) int {
	var (
		fiberErr      *fiber.Error
		validationErr *ValidationError
		serviceErr    *extraction.ServiceError
		malformedErr  *extraction.MalformedResponseError
	)
	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code
	case errors.As(err, &validationErr), errors.Is(err, extraction.ErrEmptyInput), errors.Is(err, contract.ErrInvalid):
		return fiber.StatusBadRequest
	case errors.Is(err, contract.ErrNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, contract.ErrVersionConflict):
		return fiber.StatusConflict
	case errors.As(err, &malformedErr):
		return fiber.StatusUnprocessableEntity
	case errors.As(err, &serviceErr):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandlerMiddleware turns errors returned by handlers into the standard
// error envelope.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(ctx *fiber.Ctx) error {
		err := ctx.Next()
		if err == nil {
			return nil
		}

		code := StatusFor(err)
		message := err.Error()
		var um userMessenger
		if errors.As(err, &um) {
			message = um.UserMessage()
		} else if code == fiber.StatusInternalServerError {
			message = "Internal server error"
		}

		return ctx.Status(code).JSON(ErrorResponse(code, message))
	}
}
