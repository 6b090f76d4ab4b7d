package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Principal is the authenticated identity supplied by the external identity
// provider. The core treats the id as an opaque stable value. SessionID
// identifies the token itself, not the user: state keyed by it dies with the
// token, so a fresh login never inherits it.
type Principal struct {
	ID        uuid.UUID
	Email     string
	SessionID string
	ExpiresAt time.Time
}

// Context keys for authentication data
type contextKey string

const (
	// ContextKeyPrincipal is the context key for the authenticated principal
	ContextKeyPrincipal contextKey = "principal"
)

// WithPrincipal adds the principal to the context
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ContextKeyPrincipal, p)
}

// PrincipalFromContext retrieves the principal from the context
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(ContextKeyPrincipal).(*Principal)
	return p, ok
}
