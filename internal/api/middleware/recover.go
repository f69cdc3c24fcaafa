package middleware

import (
	"log/slog"
	"runtime/debug"

	"github.com/gofiber/fiber/v2"
)

// Recover turns a handler panic into a logged 500 instead of tearing down
// the connection. Challenge streams hold long-lived engine state, so a
// panicking request must never take the process with it.
func Recover(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					slog.Any("panic", r),
					slog.String("path", c.Path()),
					slog.String("method", c.Method()),
					slog.String("stack", string(debug.Stack())),
				)

				_ = c.Status(fiber.StatusInternalServerError).
					JSON(errorBody("INTERNAL_ERROR", "An unexpected error occurred"))
			}
		}()
		return c.Next()
	}
}
