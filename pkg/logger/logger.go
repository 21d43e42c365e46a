// Package logger builds the application slog.Logger with masking, rotation
// and Sentry fan-in.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	slogsentry "github.com/samber/slog-sentry/v2"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/betaione/telegram-bind/pkg/config"
)

// New constructs the root logger from configuration. The returned LevelVar
// can be adjusted at runtime (config hot reload).
func New(cfg config.Config) (*slog.Logger, *slog.LevelVar) {
	lvl := new(slog.LevelVar)
	if level, err := config.ParseLevel(cfg.Logger.Level); err == nil {
		lvl.Set(level)
	}

	var out io.Writer = os.Stdout
	if cfg.Logger.File.Path != "" {
		rotated := &lumberjack.Logger{
			Filename:   cfg.Logger.File.Path,
			MaxSize:    cfg.Logger.File.MaxSizeMB,
			MaxBackups: cfg.Logger.File.MaxBackups,
			MaxAge:     cfg.Logger.File.MaxAgeDays,
			Compress:   cfg.Logger.File.Compress,
		}
		out = io.MultiWriter(os.Stdout, rotated)
	}

	opts := &slog.HandlerOptions{Level: lvl}

	var base slog.Handler
	if cfg.Logger.Format == "json" {
		base = slog.NewJSONHandler(out, opts)
	} else {
		base = slog.NewTextHandler(out, opts)
	}

	handler := slog.Handler(NewMaskingHandler(base))

	if cfg.Sentry.Enabled {
		sentryHandler := slogsentry.Option{Level: slog.LevelError}.NewSentryHandler()
		handler = newFanoutHandler(handler, sentryHandler)
	}

	return slog.New(handler).With(slog.String("env", cfg.AppEnv)), lvl
}

// fanoutHandler duplicates records to every wrapped handler. Kept local
// because the only fan-in this service needs is stdout plus Sentry.
type fanoutHandler struct {
	handlers []slog.Handler
}

func newFanoutHandler(handlers ...slog.Handler) *fanoutHandler {
	return &fanoutHandler{handlers: handlers}
}

func (h *fanoutHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, next := range h.handlers {
		if next.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

func (h *fanoutHandler) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, next := range h.handlers {
		if !next.Enabled(ctx, record.Level) {
			continue
		}

		if err := next.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

func (h *fanoutHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	wrapped := make([]slog.Handler, 0, len(h.handlers))
	for _, next := range h.handlers {
		wrapped = append(wrapped, next.WithAttrs(attrs))
	}

	return &fanoutHandler{handlers: wrapped}
}

func (h *fanoutHandler) WithGroup(name string) slog.Handler {
	wrapped := make([]slog.Handler, 0, len(h.handlers))
	for _, next := range h.handlers {
		wrapped = append(wrapped, next.WithGroup(name))
	}

	return &fanoutHandler{handlers: wrapped}
}
