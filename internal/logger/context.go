package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey struct{}

// WithCtx returns a context carrying the given logger.
func WithCtx(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromCtx returns the logger stored in ctx, or a default logger when none is set.
// Handlers attach a request-scoped logger so repository and service logs carry
// the request id without threading it explicitly.
func FromCtx(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok {
		return l
	}
	return NewWithDefaults()
}
