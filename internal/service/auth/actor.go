package auth

import (
	"context"

	"freelanceos/pkg/rbac"
)

// Actor is the authenticated caller attached to a request context.
type Actor struct {
	UserID   string
	Role     string
	ClientID string
}

// IsClient reports whether the actor is a client-portal user.
func (a Actor) IsClient() bool { return a.Role == rbac.RoleClient }

type actorKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the actor on ctx. Contexts without one (workers, CLI) act as admin.
func ActorFrom(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorKey{}).(Actor); ok {
		return a
	}
	return Actor{UserID: "system", Role: rbac.RoleAdmin}
}
