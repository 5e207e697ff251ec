package domain

import (
	"time"

	"github.com/google/uuid"
)

// Session represents a server-side login session. The bearer token itself is
// never stored; only its SHA-256 hash is persisted for lookup.
type Session struct {
	ID        uuid.UUID
	TokenHash string
	UserID    uuid.UUID
	// CSRFToken is the per-session anti-forgery token, generated once at
	// login and required on every mutating request.
	CSRFToken string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// Active reports whether the session is usable at the given instant.
func (s *Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
