package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/allisson/vaultadmin/internal/app"
	"github.com/allisson/vaultadmin/internal/config"
	identityDomain "github.com/allisson/vaultadmin/internal/identity/domain"
	identityUseCase "github.com/allisson/vaultadmin/internal/identity/usecase"
)

// RunCreateUser creates a panel user with the given role.
//
// Requirements: Database must be migrated and accessible.
func RunCreateUser(ctx context.Context, email, name, password, role, department, format string) error {
	userRole := identityDomain.Role(role)
	if !userRole.Valid() {
		return fmt.Errorf("invalid role: %s (valid options: user, admin, superadmin)", role)
	}

	// Load configuration
	cfg := config.Load()

	// Create DI container
	container := app.NewContainer(cfg)

	// Get logger from container
	logger := container.Logger()
	logger.Info("creating user",
		slog.String("email", email),
		slog.String("role", role),
	)

	// Ensure cleanup on exit
	defer closeContainer(container, logger)

	userUseCase, err := container.UserUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize user use case: %w", err)
	}

	user, err := userUseCase.Create(ctx, &identityUseCase.CreateUserInput{
		Email:      email,
		Name:       name,
		Password:   password,
		Role:       userRole,
		Department: department,
	})
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	if format == "json" {
		outputUserJSON(user)
	} else {
		fmt.Printf("User created successfully\n")
		fmt.Printf("  ID:    %s\n", user.ID)
		fmt.Printf("  Email: %s\n", user.Email)
		fmt.Printf("  Role:  %s\n", user.Role)
	}

	return nil
}

// outputUserJSON outputs the created user in JSON format for machine consumption.
func outputUserJSON(user *identityDomain.User) {
	result := map[string]any{
		"id":    user.ID.String(),
		"email": user.Email,
		"name":  user.Name,
		"role":  string(user.Role),
	}

	jsonBytes, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal JSON: %v\n", err)
		return
	}

	fmt.Println(string(jsonBytes))
}
