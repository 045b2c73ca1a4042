package auth

import (
	"context"

	"github.com/google/uuid"
)

// UserContext holds the pre-authenticated identity the API layer hands to the
// core: a user id and the tenant it is acting in. Authentication itself is
// owned by the transport layer; the core only consumes this pair.
type UserContext struct {
	UserID   uuid.UUID
	TenantID uuid.UUID
	Email    string
}

type contextKey string

const userContextKey contextKey = "userContext"

// WithUserContext adds user context to the context
func WithUserContext(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey, user)
}

// FromContext extracts user context from the context
func FromContext(ctx context.Context) (*UserContext, bool) {
	user, ok := ctx.Value(userContextKey).(*UserContext)
	return user, ok
}

// MustFromContext extracts user context or panics
func MustFromContext(ctx context.Context) *UserContext {
	user, ok := FromContext(ctx)
	if !ok {
		panic("user context not found in context")
	}
	return user
}
