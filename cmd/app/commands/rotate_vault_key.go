package commands

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/allisson/vaultadmin/internal/app"
	"github.com/allisson/vaultadmin/internal/config"
	cryptoDomain "github.com/allisson/vaultadmin/internal/crypto/domain"
)

// RunRotateVaultKey re-encrypts every stored secret under a new vault key.
// The current key (from the environment) decrypts, the provided key encrypts.
// After a successful run the new key must be installed as VAULT_KEY before
// the server is restarted.
//
// Requirements: Database must be migrated and accessible.
func RunRotateVaultKey(ctx context.Context, newKeyB64 string) error {
	newKey, err := base64.StdEncoding.DecodeString(newKeyB64)
	if err != nil {
		return fmt.Errorf("failed to decode new key: %w", err)
	}
	if len(newKey) != cryptoDomain.KeySize {
		return fmt.Errorf("new key must be %d bytes, got %d", cryptoDomain.KeySize, len(newKey))
	}
	defer cryptoDomain.Zero(newKey)

	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()
	logger.Info("rotating vault key")

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	keyRotationUseCase, err := container.KeyRotationUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize key rotation use case: %w", err)
	}

	rotated, err := keyRotationUseCase.Rotate(ctx, newKey)
	if err != nil {
		return fmt.Errorf("failed to rotate vault key: %w", err)
	}

	fmt.Printf("Successfully re-encrypted %d secret(s) under the new key\n", rotated)
	fmt.Println("Install the new key as VAULT_KEY and restart the server")

	logger.Info("vault key rotation completed", slog.Int64("rotated", rotated))
	return nil
}
