package domain

import (
	"github.com/allisson/vaultadmin/internal/errors"
)

// Identity error definitions.
var (
	// ErrUserNotFound indicates a user with the specified ID or email was not found.
	ErrUserNotFound = errors.Wrap(errors.ErrNotFound, "user not found")

	// ErrSessionNotFound indicates a session with the specified token hash was not found.
	ErrSessionNotFound = errors.Wrap(errors.ErrNotFound, "session not found")

	// ErrInvalidCredentials indicates login or session validation failed. Used
	// uniformly for unknown emails, wrong passwords and dead sessions so the
	// response does not confirm account existence.
	ErrInvalidCredentials = errors.Wrap(errors.ErrUnauthorized, "invalid credentials")

	// ErrLoginLocked indicates the email is temporarily locked out of logging
	// in after repeated failed attempts.
	ErrLoginLocked = errors.Wrap(errors.ErrLocked, "too many failed login attempts")

	// ErrCSRFMismatch indicates a mutating request carried a missing or wrong
	// anti-forgery token. No side effect may have occurred.
	ErrCSRFMismatch = errors.Wrap(errors.ErrForbidden, "csrf token mismatch")

	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.Wrap(errors.ErrConflict, "email already registered")
)
