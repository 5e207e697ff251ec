// Package domain defines core cryptographic domain types and errors.
package domain

import (
	"github.com/allisson/vaultadmin/internal/errors"
)

// Cryptographic error definitions.
var (
	// ErrInvalidKeySize indicates the vault key is not exactly 32 bytes.
	// This is a configuration error and must abort process startup.
	ErrInvalidKeySize = errors.New("vault key must be exactly 32 bytes")

	// ErrKeyNotConfigured indicates no vault key material was provided.
	ErrKeyNotConfigured = errors.New("vault key is not configured")

	// ErrEncryptionFailed indicates the cipher rejected an encryption operation.
	// Callers must treat this as fatal for the operation, not retryable.
	ErrEncryptionFailed = errors.New("encryption failed")

	// ErrDecryptionFailed indicates ciphertext could not be decrypted (corrupt
	// data, wrong IV, or key rotated without re-encrypting). The error detail
	// is logged server-side and never surfaced to clients.
	ErrDecryptionFailed = errors.New("decryption failed")
)
