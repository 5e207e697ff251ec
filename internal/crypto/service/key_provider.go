package service

import (
	"context"
	"encoding/base64"
	"sync"

	"gocloud.dev/secrets"

	"github.com/allisson/vaultadmin/internal/config"
	cryptoDomain "github.com/allisson/vaultadmin/internal/crypto/domain"
	apperrors "github.com/allisson/vaultadmin/internal/errors"

	// Register KMS provider drivers for wrapped-key configurations.
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// keyProvider implements KeyProvider. The key is resolved on first access and
// cached for the process lifetime; resolution failures are also cached so a
// misconfigured process fails consistently.
type keyProvider struct {
	cfg *config.Config

	once sync.Once
	key  []byte
	err  error
}

// NewKeyProvider creates a KeyProvider backed by the application configuration.
//
// Two configurations are supported:
//   - VAULT_KEY: base64-encoded 32-byte key used directly.
//   - VAULT_KEY_WRAPPED + KMS_KEY_URI: base64-encoded KMS-wrapped blob,
//     unwrapped once at startup through a gocloud.dev secrets keeper.
func NewKeyProvider(cfg *config.Config) KeyProvider {
	return &keyProvider{cfg: cfg}
}

// Key returns the cached vault key, resolving it on first call.
func (k *keyProvider) Key(ctx context.Context) ([]byte, error) {
	k.once.Do(func() {
		k.key, k.err = k.resolve(ctx)
	})
	return k.key, k.err
}

// resolve loads the key from the environment or unwraps it via KMS.
// The plaintext key is validated to be exactly 32 bytes.
func (k *keyProvider) resolve(ctx context.Context) ([]byte, error) {
	switch {
	case k.cfg.VaultKey != "":
		key, err := base64.StdEncoding.DecodeString(k.cfg.VaultKey)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to decode vault key")
		}
		if len(key) != cryptoDomain.KeySize {
			return nil, cryptoDomain.ErrInvalidKeySize
		}
		return key, nil

	case k.cfg.VaultKeyWrapped != "" && k.cfg.KMSKeyURI != "":
		wrapped, err := base64.StdEncoding.DecodeString(k.cfg.VaultKeyWrapped)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to decode wrapped vault key")
		}

		keeper, err := secrets.OpenKeeper(ctx, k.cfg.KMSKeyURI)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to open KMS keeper")
		}
		defer func() { _ = keeper.Close() }()

		key, err := keeper.Decrypt(ctx, wrapped)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to unwrap vault key")
		}
		if len(key) != cryptoDomain.KeySize {
			cryptoDomain.Zero(key)
			return nil, cryptoDomain.ErrInvalidKeySize
		}
		return key, nil

	default:
		return nil, cryptoDomain.ErrKeyNotConfigured
	}
}
