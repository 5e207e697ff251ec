package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/allisson/vaultadmin/internal/app"
	"github.com/allisson/vaultadmin/internal/config"
)

// RunVerifyAuditLogs walks the whole audit chain and verifies every entry's
// HMAC signature and linkage. Exits with an error if the chain is broken.
//
// Requirements: Database must be migrated and accessible.
func RunVerifyAuditLogs(ctx context.Context) error {
	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()
	logger.Info("verifying audit log chain")

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	auditLogUseCase, err := container.AuditLogUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize audit log use case: %w", err)
	}

	checked, err := auditLogUseCase.Verify(ctx)
	if err != nil {
		return fmt.Errorf("audit chain verification failed after %d entries: %w", checked, err)
	}

	fmt.Printf("Audit chain verified: %d entries intact\n", checked)

	logger.Info("verification completed", slog.Int64("checked", checked))
	return nil
}
