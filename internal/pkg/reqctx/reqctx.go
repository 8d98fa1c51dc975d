// Package reqctx carries per-request values (request ID, authenticated actor)
// through a context.Context.
package reqctx

import (
	"context"

	"github.com/V4T54L/compliance-gate/internal/domain"
)

type requestIDKey struct{}

type actorKey struct{}

// WithRequestID attaches a request ID to ctx.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the request ID in ctx, or "" if none was set.
func RequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

// WithActor attaches the authenticated actor to ctx.
func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// Actor returns the authenticated actor in ctx. The second return is false for
// unauthenticated requests; the zero Actor has an empty persona and ranks 0.
func Actor(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorKey{}).(domain.Actor)
	return actor, ok
}
