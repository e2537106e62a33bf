package log

import (
	"context"

	"github.com/rs/zerolog"
)

type ctxKey struct{}

// WithLogger stores a logger in the context.
func WithLogger(ctx context.Context, logger zerolog.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// Ctx returns the request-scoped logger, or the global one when ctx carries none.
func Ctx(ctx context.Context) zerolog.Logger {
	if ctx == nil {
		return L()
	}
	if l, ok := ctx.Value(ctxKey{}).(zerolog.Logger); ok {
		return l
	}
	return L()
}

// Detach returns a background context that still carries ctx's logger.
// Use it for work that must outlive the request, such as async cache writes.
func Detach(ctx context.Context) context.Context {
	return WithLogger(context.Background(), Ctx(ctx))
}
