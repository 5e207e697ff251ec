package usecase

import (
	"context"
	"log/slog"

	cryptoDomain "github.com/allisson/vaultadmin/internal/crypto/domain"
	cryptoService "github.com/allisson/vaultadmin/internal/crypto/service"
	"github.com/allisson/vaultadmin/internal/database"
	apperrors "github.com/allisson/vaultadmin/internal/errors"
)

// rotationPageSize is the batch size used when walking stored records.
const rotationPageSize = 200

// KeyRotationUseCase re-encrypts every stored secret under a new vault key.
type KeyRotationUseCase interface {
	// Rotate walks all records, decrypts each secret with the current cipher
	// and re-encrypts it with the new one. Returns the number of secrets
	// rotated. Records without a stored secret are skipped.
	Rotate(ctx context.Context, newKey []byte) (int64, error)
}

// keyRotationUseCase implements the KeyRotationUseCase interface.
type keyRotationUseCase struct {
	txManager  database.TxManager
	recordRepo RecordRepository
	cipher     cryptoService.Cipher
}

// Rotate processes records in batches, each batch inside its own
// transaction. A decrypt failure aborts the run so a half-corrupt vault is
// not silently re-encrypted.
func (k *keyRotationUseCase) Rotate(ctx context.Context, newKey []byte) (int64, error) {
	newCipher, err := cryptoService.NewAESCBC(newKey)
	if err != nil {
		return 0, err
	}

	var rotated int64
	for offset := 0; ; offset += rotationPageSize {
		records, err := k.recordRepo.ListAll(ctx, offset, rotationPageSize)
		if err != nil {
			return rotated, apperrors.Wrap(err, "failed to list records for rotation")
		}
		if len(records) == 0 {
			return rotated, nil
		}

		err = k.txManager.WithTx(ctx, func(txCtx context.Context) error {
			for _, record := range records {
				if !record.HasSecret() {
					continue
				}

				plaintext, err := k.cipher.Decrypt(record.Secret)
				if err != nil {
					return apperrors.Wrap(err, "failed to decrypt record "+record.ID.String())
				}

				reencrypted, err := newCipher.Encrypt(plaintext)
				cryptoDomain.Zero(plaintext)
				if err != nil {
					return apperrors.Wrap(err, "failed to re-encrypt record "+record.ID.String())
				}

				if err := k.recordRepo.UpdateSecret(txCtx, record.ID, reencrypted); err != nil {
					return err
				}
				rotated++
			}
			return nil
		})
		if err != nil {
			return rotated, err
		}

		slog.InfoContext(ctx, "rotated secret batch", "rotated", rotated)

		if len(records) < rotationPageSize {
			return rotated, nil
		}
	}
}

// NewKeyRotationUseCase creates a new KeyRotationUseCase with the provided dependencies.
func NewKeyRotationUseCase(
	txManager database.TxManager,
	recordRepo RecordRepository,
	cipher cryptoService.Cipher,
) KeyRotationUseCase {
	return &keyRotationUseCase{
		txManager:  txManager,
		recordRepo: recordRepo,
		cipher:     cipher,
	}
}
