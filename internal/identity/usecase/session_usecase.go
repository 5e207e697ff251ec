package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/vaultadmin/internal/config"
	identityDomain "github.com/allisson/vaultadmin/internal/identity/domain"
	identityService "github.com/allisson/vaultadmin/internal/identity/service"
)

// sessionUseCase implements SessionUseCase.
type sessionUseCase struct {
	config          *config.Config
	userRepo        UserRepository
	sessionRepo     SessionRepository
	passwordService identityService.PasswordService
	tokenService    identityService.TokenService
	csrfGuard       identityService.CSRFGuard
	loginLockout    LoginLockout
}

// Login validates credentials and issues a new session with a fresh CSRF token.
//
// Returns ErrInvalidCredentials for both unknown emails and wrong passwords to
// prevent account enumeration; both count toward the per-email lockout, which
// returns ErrLoginLocked without touching credentials once engaged. The plain
// session token is returned once; only its SHA-256 hash is stored.
func (s *sessionUseCase) Login(ctx context.Context, email, password string) (*LoginOutput, error) {
	lockoutKey := strings.ToLower(email)

	locked, err := s.loginLockout.IsLocked(ctx, lockoutKey)
	if err != nil {
		return nil, err
	}
	if locked {
		return nil, identityDomain.ErrLoginLocked
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, identityDomain.ErrUserNotFound) {
			s.registerFailure(ctx, lockoutKey)
			return nil, identityDomain.ErrInvalidCredentials
		}
		return nil, err
	}

	if !s.passwordService.Compare(password, user.PasswordHash) {
		s.registerFailure(ctx, lockoutKey)
		return nil, identityDomain.ErrInvalidCredentials
	}

	plainToken, tokenHash, err := s.tokenService.GenerateToken()
	if err != nil {
		return nil, err
	}

	csrfToken, err := s.csrfGuard.Generate()
	if err != nil {
		return nil, err
	}

	session := &identityDomain.Session{
		ID:        uuid.Must(uuid.NewV7()),
		TokenHash: tokenHash,
		UserID:    user.ID,
		CSRFToken: csrfToken,
		ExpiresAt: time.Now().UTC().Add(s.config.SessionExpiration),
		RevokedAt: nil,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	if err := s.loginLockout.ResetFailures(ctx, lockoutKey); err != nil {
		slog.WarnContext(ctx, "failed to reset login failure counter", "error", err)
	}

	return &LoginOutput{
		SessionToken: plainToken,
		CSRFToken:    csrfToken,
		ExpiresAt:    session.ExpiresAt,
		User:         user,
	}, nil
}

// Authenticate resolves a session token hash to an active session and its user.
//
// Returns ErrInvalidCredentials uniformly for unknown, expired, and revoked
// tokens so the response does not leak session state.
func (s *sessionUseCase) Authenticate(
	ctx context.Context,
	tokenHash string,
) (*identityDomain.Session, *identityDomain.User, error) {
	session, err := s.sessionRepo.GetByTokenHash(ctx, tokenHash)
	if err != nil {
		if errors.Is(err, identityDomain.ErrSessionNotFound) {
			return nil, nil, identityDomain.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if !session.Active(time.Now().UTC()) {
		return nil, nil, identityDomain.ErrInvalidCredentials
	}

	user, err := s.userRepo.Get(ctx, session.UserID)
	if err != nil {
		// Shouldn't happen due to the foreign key, but handle gracefully.
		if errors.Is(err, identityDomain.ErrUserNotFound) {
			return nil, nil, identityDomain.ErrInvalidCredentials
		}
		return nil, nil, err
	}

	return session, user, nil
}

// registerFailure bumps the email's failed login counter and engages the
// lockout once the threshold is crossed.
func (s *sessionUseCase) registerFailure(ctx context.Context, lockoutKey string) {
	count, err := s.loginLockout.IncrementFailures(ctx, lockoutKey, s.config.LoginLockoutDuration)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count login failure", "error", err)
		return
	}
	if count >= int64(s.config.LoginLockoutMaxAttempts) {
		if err := s.loginLockout.Lock(ctx, lockoutKey, s.config.LoginLockoutDuration); err != nil {
			slog.ErrorContext(ctx, "failed to lock login", "error", err)
		}
	}
}

// Logout revokes the given session.
func (s *sessionUseCase) Logout(ctx context.Context, sessionID uuid.UUID) error {
	return s.sessionRepo.Revoke(ctx, sessionID)
}

// CleanExpired deletes sessions that expired before now.
func (s *sessionUseCase) CleanExpired(ctx context.Context) (int64, error) {
	return s.sessionRepo.DeleteExpired(ctx, time.Now().UTC())
}

// NewSessionUseCase creates a new SessionUseCase with the provided dependencies.
func NewSessionUseCase(
	config *config.Config,
	userRepo UserRepository,
	sessionRepo SessionRepository,
	passwordService identityService.PasswordService,
	tokenService identityService.TokenService,
	csrfGuard identityService.CSRFGuard,
	loginLockout LoginLockout,
) SessionUseCase {
	return &sessionUseCase{
		config:          config,
		userRepo:        userRepo,
		sessionRepo:     sessionRepo,
		passwordService: passwordService,
		tokenService:    tokenService,
		csrfGuard:       csrfGuard,
		loginLockout:    loginLockout,
	}
}
