package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/allisson/vaultadmin/internal/app"
	"github.com/allisson/vaultadmin/internal/config"
)

// RunCleanAuditLogs deletes audit logs older than the specified number of
// days. Entries are removed from the head of the chain, so the remaining log
// stays verifiable.
//
// Requirements: Database must be migrated and accessible.
func RunCleanAuditLogs(ctx context.Context, days int) error {
	if days <= 0 {
		return fmt.Errorf("days must be a positive number, got: %d", days)
	}

	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()
	logger.Info("cleaning audit logs", slog.Int("days", days))

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	auditLogUseCase, err := container.AuditLogUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize audit log use case: %w", err)
	}

	retention := time.Duration(days) * 24 * time.Hour
	count, err := auditLogUseCase.CleanOlderThan(ctx, retention)
	if err != nil {
		return fmt.Errorf("failed to delete audit logs: %w", err)
	}

	fmt.Printf("Successfully deleted %d audit log(s) older than %d day(s)\n", count, days)

	logger.Info("cleanup completed",
		slog.Int64("count", count),
		slog.Int("days", days),
	)

	return nil
}
