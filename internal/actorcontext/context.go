package actorcontext

import (
	"context"
	"strings"
)

// ActorContextKey is the request context key for the acting admin user.
type ActorContextKey struct{}

// SystemActor is recorded when work is started outside an admin request.
const SystemActor = "system"

// WithActor stores the admin user id in the context.
func WithActor(ctx context.Context, actor string) context.Context {
	return context.WithValue(ctx, ActorContextKey{}, strings.TrimSpace(actor))
}

// ActorFromContext returns the admin user id from context, if set.
func ActorFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	actor, ok := ctx.Value(ActorContextKey{}).(string)
	if !ok || actor == "" {
		return "", false
	}
	return actor, true
}

// ActorOrSystem returns the acting user or SystemActor.
func ActorOrSystem(ctx context.Context) string {
	if actor, ok := ActorFromContext(ctx); ok {
		return actor
	}
	return SystemActor
}
