// Package logger provides structured logging using log/slog. It sets up a
// JSON handler with service-level context and trace ID propagation through
// context.Context, adapted directly from the teacher's
// internal/logger/logger.go.
package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"
)

type ctxKey string

const traceIDKey ctxKey = "trace_id"

// Init creates and returns a structured logger for the given service. The
// logger outputs JSON to stdout with the service name embedded, and is set
// as the slog default so package-level slog.Info/etc. calls inherit it. Every
// record passed through a *Context variant (WarnContext, InfoContext, ...)
// picks up the trace ID stashed on its context automatically, via
// traceHandler.
func Init(service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(traceHandler{handler}).With(
		slog.String("service", service),
	)
	slog.SetDefault(logger)
	return logger
}

// WithTraceID stores a trace ID in the context for downstream propagation.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// TraceID extracts the trace ID from context. Returns "" if not set.
func TraceID(ctx context.Context) string {
	if v, ok := ctx.Value(traceIDKey).(string); ok {
		return v
	}
	return ""
}

// GenerateTraceID creates a trace ID from a mint and timestamp.
func GenerateTraceID(mint string, ts time.Time) string {
	return fmt.Sprintf("%s-%d", mint, ts.UnixNano())
}

// traceHandler wraps a slog.Handler and injects the trace_id attribute from
// the record's context into every record that carries one, so callers only
// need to pass a trace-bearing context through the *Context logging methods
// rather than attach the attribute by hand at every call site.
type traceHandler struct {
	slog.Handler
}

func (h traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if tid := TraceID(ctx); tid != "" {
		r.AddAttrs(slog.String("trace_id", tid))
	}
	return h.Handler.Handle(ctx, r)
}

func (h traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return traceHandler{h.Handler.WithAttrs(attrs)}
}

func (h traceHandler) WithGroup(name string) slog.Handler {
	return traceHandler{h.Handler.WithGroup(name)}
}
