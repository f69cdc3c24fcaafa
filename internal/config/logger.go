package config

import (
	"log/slog"
	"os"
)

// NewLogger builds the process logger. Production emits JSON at info level
// for log shipping; everything else gets debug-level text with source
// locations for local work.
func NewLogger(env string) *slog.Logger {
	var handler slog.Handler
	switch env {
	case "production":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	default:
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level:     slog.LevelDebug,
			AddSource: env == "development",
		})
	}

	return slog.New(handler).With(slog.String("service", "liveid"))
}
