package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/allisson/vaultadmin/internal/app"
	"github.com/allisson/vaultadmin/internal/config"
)

// RunCleanExpiredSessions deletes login sessions that have already expired.
//
// Requirements: Database must be migrated and accessible.
func RunCleanExpiredSessions(ctx context.Context) error {
	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()
	logger.Info("cleaning expired sessions")

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	sessionUseCase, err := container.SessionUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize session use case: %w", err)
	}

	count, err := sessionUseCase.CleanExpired(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	fmt.Printf("Successfully deleted %d expired session(s)\n", count)

	logger.Info("cleanup completed", slog.Int64("count", count))
	return nil
}
