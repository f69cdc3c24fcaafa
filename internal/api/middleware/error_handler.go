package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/saturnino-fabrica-de-software/liveid/internal/domain"
)

// errorBody is the uniform error envelope every handler relies on
func errorBody(code, message string) fiber.Map {
	return fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	}
}

// ErrorHandler maps AppError values onto their HTTP status and shields
// callers from internal error detail. Anything unrecognized becomes a 500.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		requestID := c.GetRespHeader(fiber.HeaderXRequestID)

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(errorBody("HTTP_ERROR", fiberErr.Message))
		}

		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			if appErr.StatusCode >= 500 {
				logger.Error("internal error",
					slog.String("code", appErr.Code),
					slog.String("message", appErr.Message),
					slog.String("path", c.Path()),
					slog.String("request_id", requestID),
					slog.Any("error", appErr.Err),
				)
			}
			return c.Status(appErr.StatusCode).JSON(errorBody(appErr.Code, appErr.Message))
		}

		logger.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Path()),
			slog.String("request_id", requestID),
		)
		return c.Status(fiber.StatusInternalServerError).
			JSON(errorBody("INTERNAL_ERROR", "An unexpected error occurred"))
	}
}
