// Package observability wires structured logging and Prometheus metrics
// for the conversion batch.
package observability

import (
	"log/slog"
	"os"

	"github.com/couchcryptid/mag-data-etl/internal/config"
)

// NewLogger builds a slog logger at the configured level. Format "text"
// yields human-readable output; anything else defaults to JSON.
func NewLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	return slog.New(handler)
}
