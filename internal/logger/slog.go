package logger

import (
	"log/slog"
	"os"
)

// NewSlogLogger builds the JSON logger used as the process-wide default.
func NewSlogLogger() *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
