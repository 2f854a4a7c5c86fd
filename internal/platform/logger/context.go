package logger

import (
	"context"
	"log/slog"
)

// contextKey is an unexported type so context values set here cannot
// collide with other packages.
type contextKey struct{}

var loggerKey = contextKey{}

// WithLogger returns a child context carrying the given logger. Handlers
// attach a request-scoped logger so lower layers log with request metadata.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext extracts the logger carried by the context, or slog.Default()
// when none was attached.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok && l != nil {
		return l
	}
	return slog.Default()
}

// FromContextOrDefault extracts the logger carried by the context, falling
// back to the provided default instead of the process-global one.
func FromContextOrDefault(ctx context.Context, def *slog.Logger) *slog.Logger {
	if l, ok := ctx.Value(loggerKey).(*slog.Logger); ok && l != nil {
		return l
	}
	if def != nil {
		return def
	}
	return slog.Default()
}
