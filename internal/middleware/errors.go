package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/shopdesk/shopdesk/internal/apperr"
	"github.com/shopdesk/shopdesk/internal/logging"
)

type errorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"request_id,omitempty"`
}

// ErrorHandler renders errors as JSON. Domain errors map through apperr;
// anything else is logged and hidden behind a generic message.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status, msg := apperr.Status(err), apperr.PublicMessage(err)

		var fe *fiber.Error
		if errors.As(err, &fe) {
			status, msg = fe.Code, fe.Message
		}

		if status >= fiber.StatusInternalServerError {
			logging.LogError(logger, "request failed", err,
				slog.String("request_id", RequestIDFrom(c)),
				slog.String("method", c.Method()),
				slog.String("path", c.Path()))
		}

		return c.Status(status).JSON(errorResponse{Error: msg, RequestID: RequestIDFrom(c)})
	}
}
