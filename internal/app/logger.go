package app

import (
	"log/slog"
	"os"
)

// NewLogger returns a slog.Logger writing text or JSON depending on LOG_FORMAT.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg != nil && !cfg.IsProduction() {
		opts.Level = slog.LevelDebug
	}
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts)).With(slog.String("app", "sierra"))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
