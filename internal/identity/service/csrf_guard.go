package service

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"

	apperrors "github.com/allisson/vaultadmin/internal/errors"
)

// CSRFGuard generates and verifies per-session anti-forgery tokens. A token is
// created once at login, stored on the session row, and reused until the
// session ends.
type CSRFGuard interface {
	// Generate returns a new 256-bit random token, hex-encoded.
	Generate() (string, error)
	// Verify compares a request-supplied token against the session token in
	// constant time. An empty request token never verifies.
	Verify(sessionToken, requestToken string) bool
}

// csrfGuard implements CSRFGuard.
type csrfGuard struct{}

// Generate returns a fresh random token.
func (g *csrfGuard) Generate() (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", apperrors.Wrap(err, "failed to generate csrf token")
	}
	return hex.EncodeToString(randomBytes), nil
}

// Verify performs a constant-time comparison of the two tokens.
func (g *csrfGuard) Verify(sessionToken, requestToken string) bool {
	if sessionToken == "" || requestToken == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(sessionToken), []byte(requestToken)) == 1
}

// NewCSRFGuard creates a new CSRFGuard instance.
func NewCSRFGuard() CSRFGuard {
	return &csrfGuard{}
}
