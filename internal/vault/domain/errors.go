package domain

import (
	"github.com/allisson/vaultadmin/internal/errors"
)

// Vault error definitions.
var (
	// ErrRecordNotFound indicates the record does not exist within the
	// caller's visible scope. Also returned when a record exists but belongs
	// to someone else, so unauthorized callers get no existence confirmation.
	ErrRecordNotFound = errors.Wrap(errors.ErrNotFound, "record not found")

	// ErrAssignmentNotFound indicates the service assignment does not exist.
	ErrAssignmentNotFound = errors.Wrap(errors.ErrNotFound, "assignment not found")

	// ErrAssignmentExists indicates the user already holds an assignment for the record.
	ErrAssignmentExists = errors.Wrap(errors.ErrConflict, "assignment already exists")

	// ErrNotAssignable indicates an assignment was requested for a private record.
	ErrNotAssignable = errors.Wrap(errors.ErrInvalidInput, "only shared records can be assigned")

	// ErrSecretUnavailable is the uniform reveal failure reported to clients
	// when stored ciphertext cannot be decrypted. The cause is logged
	// server-side with the record id, never returned.
	ErrSecretUnavailable = errors.New("could not retrieve credentials")
)
