// Package usecase implements the SSO token broker: issuing single-use
// tokens bound to a decrypted credential, consuming them exactly once, and
// driving the upstream login handshake.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	identityDomain "github.com/allisson/vaultadmin/internal/identity/domain"
	ssoDomain "github.com/allisson/vaultadmin/internal/sso/domain"
)

// TokenStore defines the ephemeral storage contract for SSO tokens, decrypt
// failure counters, and lockouts. GetDelete must be atomic: of two
// concurrent consumers of the same token, exactly one receives it.
type TokenStore interface {
	Put(ctx context.Context, token *ssoDomain.Token, ttl time.Duration) error
	GetDelete(ctx context.Context, sessionID uuid.UUID, value string) (*ssoDomain.Token, error)
	IncrementFailures(ctx context.Context, sessionID uuid.UUID, window time.Duration) (int64, error)
	ResetFailures(ctx context.Context, sessionID uuid.UUID) error
	Lock(ctx context.Context, sessionID uuid.UUID, duration time.Duration) error
	IsLocked(ctx context.Context, sessionID uuid.UUID) (bool, error)
}

// IssueOutput is returned on successful token issuance.
type IssueOutput struct {
	Token     string
	ExpiresAt time.Time
}

// BrokerUseCase is the SSO token broker.
type BrokerUseCase interface {
	// Issue decrypts the record's secret, derives the credential proof, and
	// mints a single-use token for the session. Repeated decrypt failures
	// lock the session out of issuance.
	Issue(ctx context.Context, session *identityDomain.Session, user *identityDomain.User, recordID uuid.UUID) (*IssueOutput, error)
	// Redeem consumes a token exactly once. An absent token yields
	// ErrTokenDenied, an expired one ErrTokenExpired; both are terminal for
	// that token.
	Redeem(ctx context.Context, sessionID uuid.UUID, value string) (*ssoDomain.Token, error)
	// Proxy redeems a token and performs the upstream login handshake,
	// returning the URL the browser should be redirected to.
	Proxy(ctx context.Context, sessionID uuid.UUID, value string) (string, error)
}
