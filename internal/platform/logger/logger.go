// Package logger builds the process-wide structured logger. Every component
// receives its slog handle from main; nothing logs through the package-level
// default, so tests can swap in a discarding handler.
package logger

import (
	"log/slog"
	"os"
	"strings"
)

// New returns a JSON logger writing to stdout. The level comes from
// CUSTOS_LOG_LEVEL (debug, info, warn, error); anything else means info.
func New() *slog.Logger {
	opts := &slog.HandlerOptions{Level: levelFromEnv()}
	handler := slog.NewJSONHandler(os.Stdout, opts)
	return slog.New(handler).With("service", "custos")
}

func levelFromEnv() slog.Level {
	switch strings.ToLower(os.Getenv("CUSTOS_LOG_LEVEL")) {
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
