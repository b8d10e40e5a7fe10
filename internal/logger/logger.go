// Package logger builds the application's slog logger: a tint console
// handler, optionally fanned out to a fluent-bit sink.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/lmittmann/tint"
)

// Config selects level and sinks.  Fluent shipping is enabled when
// FluentHost is set.
type Config struct {
	Level      string
	AddSource  bool
	FluentHost string
	FluentPort int
	FluentTag  string
}

// New returns the logger and a close function flushing the fluent client.
func New(cfg Config, w io.Writer) (*slog.Logger, func() error, error) {
	level := ParseLevel(cfg.Level)
	console := tint.NewHandler(w, &tint.Options{
		Level:      level,
		AddSource:  cfg.AddSource,
		TimeFormat: "2006-01-02 15:04:05",
	})
	if cfg.FluentHost == "" {
		return slog.New(console), func() error { return nil }, nil
	}

	client, err := fluent.New(fluent.Config{
		FluentHost: cfg.FluentHost,
		FluentPort: cfg.FluentPort,
		TagPrefix:  cfg.FluentTag,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("fluent client: %w", err)
	}
	h := Fanout(console, NewFluentHandler(client, level))
	return slog.New(h), client.Close, nil
}

// ParseLevel maps debug/info/warn/error to a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

type ctxKey struct{}

// WithContext stores l in ctx.
func WithContext(ctx context.Context, l *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext returns the request-scoped logger, or slog.Default.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}
