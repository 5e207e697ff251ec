// Package domain defines the SSO broker domain model. Minted tokens live in
// the ephemeral TTL store, never the database; each token is single-use and
// carries a derived credential proof, not the raw secret.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Token is an ephemeral single-use SSO token. The Proof is derived from the
// decrypted secret, the token value, and the broker secret; the plaintext
// password never leaves the broker.
type Token struct {
	// Value is a random 256-bit hex string.
	Value string `json:"value"`
	// SessionID scopes the token to the issuing login session.
	SessionID uuid.UUID `json:"session_id"`
	Username  string    `json:"username"`
	Proof     string    `json:"proof"`
	SiteName  string    `json:"site_name"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the token has passed its expiry.
func (t *Token) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
