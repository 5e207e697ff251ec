// Package http provides HTTP middleware and handlers for identity operations.
package http

import (
	"context"

	identityDomain "github.com/allisson/vaultadmin/internal/identity/domain"
)

// identityKey is a context key type for storing the authenticated identity.
type identityKey struct{}

// Identity carries the authenticated caller through core calls, replacing any
// implicit session state. Every authorization decision is made from this
// value, which keeps the core testable without a web server.
type Identity struct {
	Session *identityDomain.Session
	User    *identityDomain.User
}

// WithIdentity stores the authenticated identity in the context.
// This is called by the authentication middleware after successful validation.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, identity)
}

// GetIdentity retrieves the authenticated identity from the context.
// Returns (identity, true) if present, or (nil, false) if no identity was set.
func GetIdentity(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityKey{}).(*Identity)
	return identity, ok
}
