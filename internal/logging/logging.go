// Package logging configures log/slog and logs query and HTTP events.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	eventbus "github.com/hanpama/trellis/internal/eventbus"
	events "github.com/hanpama/trellis/internal/events"
	reqid "github.com/hanpama/trellis/internal/reqid"
)

// Config holds logger configuration.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, text
	Output io.Writer
}

// ParseLevel maps a level name onto a slog level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// New builds a logger from cfg. Output defaults to stderr.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}

	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler)
}

// Setup builds a logger from cfg and installs it as the slog default.
func Setup(cfg Config) *slog.Logger {
	l := New(cfg)
	slog.SetDefault(l)
	return l
}

// Subscribe logs finished queries and HTTP requests to l.
func Subscribe(l *slog.Logger) (unsubscribe func()) {
	unsubs := []func(){
		eventbus.Subscribe(func(ctx context.Context, e events.QueryFinish) {
			attrs := []any{
				slog.Int("rows", e.Rows),
				slog.Duration("duration", e.Duration),
			}
			if rid, ok := reqid.FromContext(ctx); ok {
				attrs = append(attrs, slog.String("request_id", rid))
			}
			if e.Err != nil {
				attrs = append(attrs, slog.String("kind", e.Kind), slog.String("error", e.Err.Error()))
				l.WarnContext(ctx, "query failed", attrs...)
				return
			}
			l.InfoContext(ctx, "query finished", attrs...)
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.AdapterCall) {
			l.DebugContext(ctx, "adapter call",
				slog.String("method", e.Method),
				slog.String("type", e.TypeName),
				slog.String("field", e.Field))
		}),
		eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
			rid := e.RequestID
			if rid == "" {
				rid, _ = reqid.FromContext(ctx)
			}
			attrs := []any{
				slog.String("method", e.Request.Method),
				slog.String("path", e.Request.URL.Path),
				slog.Int("status", e.Status),
				slog.Duration("duration", e.Duration),
				slog.String("request_id", rid),
			}
			if e.Kind != "" {
				attrs = append(attrs, slog.String("kind", e.Kind))
			}
			l.InfoContext(ctx, "http request", attrs...)
		}),
	}
	return func() {
		for _, unsubscribe := range unsubs {
			unsubscribe()
		}
	}
}
