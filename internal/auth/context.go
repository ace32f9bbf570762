package auth

import (
	"context"

	"github.com/vidtube/backend/internal/models"
)

type ctxKey string

const identityKey ctxKey = "identity"

// WithIdentity stores the authenticated identity on the context.
func WithIdentity(ctx context.Context, identity models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// IdentityFromContext returns the identity attached by the verification
// middleware. The boolean reports whether the request was authenticated.
func IdentityFromContext(ctx context.Context) (models.Identity, bool) {
	if ctx == nil {
		return models.Identity{}, false
	}
	identity, ok := ctx.Value(identityKey).(models.Identity)
	return identity, ok
}
