package auth

import (
	"context"
	"strings"
)

// Identity is the normalized view of the authenticated caller. It is produced
// once by the verifier and passed around instead of re-deriving claim shapes
// in every check.
type Identity struct {
	Subject  string
	Email    string
	Username string
}

type identityKey struct{}

var ctxKey = identityKey{}

// ContextWithIdentity attaches the identity to the context.
func ContextWithIdentity(ctx context.Context, identity *Identity) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if identity == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey, identity)
}

// IdentityFromContext returns the identity bound to the context, or nil for
// anonymous callers.
func IdentityFromContext(ctx context.Context) *Identity {
	if ctx == nil {
		return nil
	}
	if value := ctx.Value(ctxKey); value != nil {
		if identity, ok := value.(*Identity); ok {
			return identity
		}
	}
	return nil
}

// SyntheticID derives a stable fallback identifier for unauthenticated users
// from their display name.
func SyntheticID(username string) string {
	return "temp_" + strings.TrimSpace(username)
}

// SubjectOrSynthetic returns the authenticated subject when present, else the
// synthetic id for the given username.
func SubjectOrSynthetic(identity *Identity, username string) string {
	if identity != nil && identity.Subject != "" {
		return identity.Subject
	}
	return SyntheticID(username)
}
