package utils

import "context"

type contextKey string

const (
	actorIDKey    contextKey = "actor_id"
	actorEmailKey contextKey = "actor_email"
	actorRoleKey  contextKey = "actor_role"
)

// SetActorContext sets the authenticated actor into context (called by middleware).
func SetActorContext(ctx context.Context, id int64, email, role string) context.Context {
	ctx = context.WithValue(ctx, actorIDKey, id)
	ctx = context.WithValue(ctx, actorEmailKey, email)
	ctx = context.WithValue(ctx, actorRoleKey, role)
	return ctx
}

// GetActorIDFromContext retrieves the actor id safely.
func GetActorIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(actorIDKey).(int64)
	return id, ok
}

// ActorIDPtr returns the actor id as a nullable pointer for audit columns.
func ActorIDPtr(ctx context.Context) *int64 {
	if id, ok := GetActorIDFromContext(ctx); ok {
		return &id
	}
	return nil
}

func GetActorEmailFromContext(ctx context.Context) string {
	email, _ := ctx.Value(actorEmailKey).(string)
	return email
}

func GetActorRoleFromContext(ctx context.Context) string {
	role, _ := ctx.Value(actorRoleKey).(string)
	return role
}
