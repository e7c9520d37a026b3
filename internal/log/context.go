package log

import (
	"context"
	"log/slog"
	"net/http"
)

type contextKey struct{}

// IntoContext returns a copy of ctx carrying l.
func IntoContext(ctx context.Context, l *Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, l)
}

// FromContext returns the request logger, or one over the slog default.
func FromContext(ctx context.Context) *Logger {
	if l, ok := ctx.Value(contextKey{}).(*Logger); ok {
		return l
	}
	return wrap(slog.Default(), "")
}

// StructuredLogger writes the records whose shape other tools key on:
// request start/end pairs and row changes.
type StructuredLogger struct {
	logger *Logger
}

func NewStructuredLogger(l *Logger) *StructuredLogger {
	return &StructuredLogger{logger: l}
}

func (sl *StructuredLogger) LogHTTPStart(ctx context.Context, r *http.Request, clientIP string) {
	fields := NewFields().WithRequest(r.Method, r.URL.Path, clientIP)
	fields[FieldUserAgent] = r.UserAgent()
	sl.logger.DebugContext(ctx, "HTTP request started", fields.ToSlice()...)
}

// LogHTTPEnd logs at Warn for 4xx and Error for 5xx responses.
func (sl *StructuredLogger) LogHTTPEnd(ctx context.Context, r *http.Request, statusCode int, durationMs int64, clientIP string) {
	level := slog.LevelInfo
	switch {
	case statusCode >= 500:
		level = slog.LevelError
	case statusCode >= 400:
		level = slog.LevelWarn
	}
	fields := NewFields().WithRequest(r.Method, r.URL.Path, clientIP)
	fields[FieldStatusCode] = statusCode
	fields[FieldDuration] = durationMs
	sl.logger.Log(ctx, level, "HTTP request completed", fields.ToSlice()...)
}

func (sl *StructuredLogger) LogRowChanged(ctx context.Context, op, id string, version int64, total string) {
	fields := NewFields().WithRow(id, version).WithOperation(op)
	fields[FieldTotal] = total
	sl.logger.InfoContext(ctx, "Row changed", fields.ToSlice()...)
}
