// Package service provides cryptographic services: vault key resolution and
// the symmetric cipher used for credential secrets at rest.
package service

import (
	"context"

	cryptoDomain "github.com/allisson/vaultadmin/internal/crypto/domain"
)

// KeyProvider resolves the process-wide vault encryption key. The key is
// loaded and validated once; it is immutable for the process lifetime.
type KeyProvider interface {
	// Key returns the 32-byte vault key. The returned slice must not be
	// modified or logged by callers.
	Key(ctx context.Context) ([]byte, error)
}

// Cipher encrypts and decrypts opaque secret blobs. Implementations are
// stateless and safe for concurrent use.
type Cipher interface {
	// Encrypt encrypts plaintext with a freshly generated random IV and
	// returns the raw ciphertext and the IV.
	Encrypt(plaintext []byte) (cryptoDomain.CipherText, error)
	// Decrypt is the inverse operation. It returns ErrDecryptionFailed
	// (never panics) on bad padding or corrupt input so callers can
	// distinguish "no secret stored" from "corrupt secret".
	Decrypt(ct cryptoDomain.CipherText) ([]byte, error)
}
