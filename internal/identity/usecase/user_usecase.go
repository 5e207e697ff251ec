package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/vaultadmin/internal/errors"
	identityDomain "github.com/allisson/vaultadmin/internal/identity/domain"
	identityService "github.com/allisson/vaultadmin/internal/identity/service"
)

// userUseCase implements UserUseCase.
type userUseCase struct {
	userRepo        UserRepository
	passwordService identityService.PasswordService
}

// Create registers a new panel user with an Argon2id-hashed password.
func (u *userUseCase) Create(
	ctx context.Context,
	input *CreateUserInput,
) (*identityDomain.User, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	if email == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "email cannot be empty")
	}
	if input.Password == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "password cannot be empty")
	}
	if !input.Role.Valid() {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "unknown role")
	}

	passwordHash, err := u.passwordService.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &identityDomain.User{
		ID:           uuid.Must(uuid.NewV7()),
		Email:        email,
		Name:         input.Name,
		PasswordHash: passwordHash,
		Role:         input.Role,
		Department:   input.Department,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := u.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}

// NewUserUseCase creates a new UserUseCase with the provided dependencies.
func NewUserUseCase(
	userRepo UserRepository,
	passwordService identityService.PasswordService,
) UserUseCase {
	return &userUseCase{
		userRepo:        userRepo,
		passwordService: passwordService,
	}
}
