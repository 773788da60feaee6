package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/Pydart-Intelli-Corp/investo-sub000/internal/config"
)

// NewLogger builds the process-wide slog.Logger. Output is JSON on stdout;
// debug level also records source locations.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.Logging.Level)

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: level == slog.LevelDebug,
	})

	logger := slog.New(handler).With("app", cfg.Application.Name)
	logger.Info("logger initialized", "level", level)
	return logger
}

// parseLevel falls back to info on unknown values.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
