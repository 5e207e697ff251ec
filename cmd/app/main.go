// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/vaultadmin/cmd/app/commands"
)

const version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "vaultadmin",
		Usage:   "Admin panel credential vault",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, version)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunMigrations()
				},
			},
			{
				Name:  "create-user",
				Usage: "Create a panel user",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Aliases:  []string{"e"},
						Required: true,
						Usage:    "User email address (unique)",
					},
					&cli.StringFlag{
						Name:     "name",
						Aliases:  []string{"n"},
						Required: true,
						Usage:    "Human-readable user name",
					},
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						Required: true,
						Usage:    "Initial password",
					},
					&cli.StringFlag{
						Name:    "role",
						Aliases: []string{"r"},
						Value:   "user",
						Usage:   "Access role: user, admin, or superadmin",
					},
					&cli.StringFlag{
						Name:    "department",
						Aliases: []string{"d"},
						Value:   "",
						Usage:   "Optional department label",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Value:   "text",
						Usage:   "Output format: 'text' or 'json'",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunCreateUser(
						ctx,
						cmd.String("email"),
						cmd.String("name"),
						cmd.String("password"),
						cmd.String("role"),
						cmd.String("department"),
						cmd.String("format"),
					)
				},
			},
			{
				Name:  "generate-key",
				Usage: "Generate a random 32-byte key (base64) for VAULT_KEY or AUDIT_SIGNING_KEY",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunGenerateVaultKey()
				},
			},
			{
				Name:  "rotate-vault-key",
				Usage: "Re-encrypt all stored secrets under a new vault key",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "new-key",
						Aliases:  []string{"k"},
						Required: true,
						Usage:    "New base64-encoded 32-byte vault key",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunRotateVaultKey(ctx, cmd.String("new-key"))
				},
			},
			{
				Name:  "clean-audit-logs",
				Usage: "Delete audit logs older than specified days",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:     "days",
						Aliases:  []string{"d"},
						Required: true,
						Usage:    "Delete audit logs older than this many days",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunCleanAuditLogs(ctx, int(cmd.Int("days")))
				},
			},
			{
				Name:  "verify-audit-logs",
				Usage: "Verify the audit log signature chain",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunVerifyAuditLogs(ctx)
				},
			},
			{
				Name:  "clean-expired-sessions",
				Usage: "Delete expired login sessions",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunCleanExpiredSessions(ctx)
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
