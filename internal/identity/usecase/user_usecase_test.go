package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/vaultadmin/internal/errors"
	identityDomain "github.com/allisson/vaultadmin/internal/identity/domain"
)

func TestUserUseCase_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_CreateUser", func(t *testing.T) {
		userRepo := &mockUserRepository{}
		passwordService := &mockPasswordService{}

		passwordService.On("Hash", "password").Return("hashed", nil).Once()

		var created *identityDomain.User
		userRepo.On("Create", ctx, mock.AnythingOfType("*domain.User")).
			Run(func(args mock.Arguments) {
				created = args.Get(1).(*identityDomain.User)
			}).
			Return(nil).Once()

		useCase := NewUserUseCase(userRepo, passwordService)
		user, err := useCase.Create(ctx, &CreateUserInput{
			Email:      "  User@Example.COM ",
			Name:       "Test User",
			Password:   "password",
			Role:       identityDomain.RoleAdmin,
			Department: "engineering",
		})

		require.NoError(t, err)
		assert.Equal(t, created, user)
		assert.Equal(t, "user@example.com", user.Email)
		assert.Equal(t, "hashed", user.PasswordHash)
		assert.Equal(t, identityDomain.RoleAdmin, user.Role)
		assert.Equal(t, "engineering", user.Department)
		assert.False(t, user.CreatedAt.IsZero())

		userRepo.AssertExpectations(t)
		passwordService.AssertExpectations(t)
	})

	t.Run("Error_EmptyEmail", func(t *testing.T) {
		useCase := NewUserUseCase(&mockUserRepository{}, &mockPasswordService{})
		user, err := useCase.Create(ctx, &CreateUserInput{
			Email:    "   ",
			Password: "password",
			Role:     identityDomain.RoleUser,
		})

		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Nil(t, user)
	})

	t.Run("Error_EmptyPassword", func(t *testing.T) {
		useCase := NewUserUseCase(&mockUserRepository{}, &mockPasswordService{})
		user, err := useCase.Create(ctx, &CreateUserInput{
			Email: "user@example.com",
			Role:  identityDomain.RoleUser,
		})

		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Nil(t, user)
	})

	t.Run("Error_InvalidRole", func(t *testing.T) {
		useCase := NewUserUseCase(&mockUserRepository{}, &mockPasswordService{})
		user, err := useCase.Create(ctx, &CreateUserInput{
			Email:    "user@example.com",
			Password: "password",
			Role:     identityDomain.Role("owner"),
		})

		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		assert.Nil(t, user)
	})

	t.Run("Error_EmailTaken", func(t *testing.T) {
		userRepo := &mockUserRepository{}
		passwordService := &mockPasswordService{}

		passwordService.On("Hash", "password").Return("hashed", nil).Once()
		userRepo.On("Create", ctx, mock.AnythingOfType("*domain.User")).
			Return(identityDomain.ErrEmailTaken).Once()

		useCase := NewUserUseCase(userRepo, passwordService)
		user, err := useCase.Create(ctx, &CreateUserInput{
			Email:    "user@example.com",
			Password: "password",
			Role:     identityDomain.RoleUser,
		})

		assert.ErrorIs(t, err, apperrors.ErrConflict)
		assert.Nil(t, user)
	})
}
