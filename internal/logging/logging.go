// Package logging builds the process logger: colored text for development, JSON otherwise.
package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"

	"github.com/ajanata/pico-drivers/internal/config"
)

// New logs to w, which should be stderr so that stdout stays free for telemetry.
func New(cfg config.Config, w io.Writer, appName string) *slog.Logger {
	if cfg.Env == "dev" {
		h := tint.NewHandler(w, &tint.Options{
			Level:      cfg.Level(),
			AddSource:  true,
			TimeFormat: time.Kitchen,
		})
		return slog.New(h).With("app", appName)
	}

	h := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: cfg.Level(),
	})
	return slog.New(h).With(
		"app", appName,
		"env", cfg.Env,
	)
}
