// Package usecase implements business logic orchestration for identity operations.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	identityDomain "github.com/allisson/vaultadmin/internal/identity/domain"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user *identityDomain.User) error
	Get(ctx context.Context, id uuid.UUID) (*identityDomain.User, error)
	GetByEmail(ctx context.Context, email string) (*identityDomain.User, error)
}

// SessionRepository defines persistence operations for login sessions.
type SessionRepository interface {
	Create(ctx context.Context, session *identityDomain.Session) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*identityDomain.Session, error)
	Revoke(ctx context.Context, sessionID uuid.UUID) error
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

// LoginLockout tracks failed login attempts per email and enforces a
// temporary lockout once the threshold is crossed. Keys are lowercased
// emails; counters and locks are ephemeral and never touch the database.
type LoginLockout interface {
	IncrementFailures(ctx context.Context, email string, window time.Duration) (int64, error)
	ResetFailures(ctx context.Context, email string) error
	Lock(ctx context.Context, email string, duration time.Duration) error
	IsLocked(ctx context.Context, email string) (bool, error)
}

// LoginOutput is returned on successful login. The plain session token is
// only shown once and never persisted.
type LoginOutput struct {
	SessionToken string
	CSRFToken    string
	ExpiresAt    time.Time
	User         *identityDomain.User
}

// SessionUseCase manages login sessions.
type SessionUseCase interface {
	// Login validates credentials and issues a new session.
	Login(ctx context.Context, email, password string) (*LoginOutput, error)
	// Authenticate resolves a bearer session token to its session and user.
	Authenticate(ctx context.Context, tokenHash string) (*identityDomain.Session, *identityDomain.User, error)
	// Logout revokes the given session.
	Logout(ctx context.Context, sessionID uuid.UUID) error
	// CleanExpired deletes sessions that expired before now.
	CleanExpired(ctx context.Context) (int64, error)
}

// CreateUserInput contains the parameters for creating a user.
type CreateUserInput struct {
	Email      string
	Name       string
	Password   string
	Role       identityDomain.Role
	Department string
}

// UserUseCase manages panel users.
type UserUseCase interface {
	Create(ctx context.Context, input *CreateUserInput) (*identityDomain.User, error)
}
