// Package service provides identity services: password hashing, session token
// generation and the CSRF guard.
package service

import (
	"github.com/allisson/go-pwdhash"

	apperrors "github.com/allisson/vaultadmin/internal/errors"
)

// PasswordService hashes and verifies login passwords.
type PasswordService interface {
	Hash(plainPassword string) (string, error)
	// Compare performs a constant-time comparison between a plain password and its hash.
	Compare(plainPassword string, hashedPassword string) bool
}

// passwordService implements PasswordService using Argon2id.
type passwordService struct {
	hasher *pwdhash.PasswordHasher
}

// Hash hashes a plain text password using Argon2id.
func (p *passwordService) Hash(plainPassword string) (string, error) {
	hashed, err := p.hasher.Hash([]byte(plainPassword))
	if err != nil {
		return "", apperrors.Wrap(err, "failed to hash password")
	}
	return hashed, nil
}

// Compare verifies a plain password against its stored hash.
func (p *passwordService) Compare(plainPassword string, hashedPassword string) bool {
	ok, err := p.hasher.Verify([]byte(plainPassword), hashedPassword)
	if err != nil {
		return false
	}
	return ok
}

// NewPasswordService creates a PasswordService using Argon2id with the
// Moderate policy for a balance between security and performance.
func NewPasswordService() PasswordService {
	hasher, err := pwdhash.New(
		pwdhash.WithPolicy(pwdhash.PolicyModerate),
	)
	if err != nil {
		// This should never happen with valid policy
		panic(err)
	}

	return &passwordService{hasher: hasher}
}
