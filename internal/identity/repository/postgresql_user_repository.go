// Package repository implements identity persistence for PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/allisson/vaultadmin/internal/database"
	apperrors "github.com/allisson/vaultadmin/internal/errors"
	identityDomain "github.com/allisson/vaultadmin/internal/identity/domain"
)

// PostgreSQLUserRepository implements user persistence for PostgreSQL databases.
type PostgreSQLUserRepository struct {
	db *sql.DB
}

// Create inserts a new user into the PostgreSQL database.
func (p *PostgreSQLUserRepository) Create(ctx context.Context, user *identityDomain.User) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO users (id, email, name, password_hash, role, department, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := querier.ExecContext(
		ctx,
		query,
		user.ID,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.Role,
		user.Department,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if apperrors.As(err, &pqErr) && pqErr.Code == "23505" {
			return identityDomain.ErrEmailTaken
		}
		return apperrors.Wrap(err, "failed to create user")
	}
	return nil
}

// Get retrieves a user by ID.
func (p *PostgreSQLUserRepository) Get(ctx context.Context, id uuid.UUID) (*identityDomain.User, error) {
	return p.getBy(ctx, "id = $1", id)
}

// GetByEmail retrieves a user by email (case-insensitive).
func (p *PostgreSQLUserRepository) GetByEmail(ctx context.Context, email string) (*identityDomain.User, error) {
	return p.getBy(ctx, "lower(email) = $1", strings.ToLower(email))
}

func (p *PostgreSQLUserRepository) getBy(ctx context.Context, where string, arg any) (*identityDomain.User, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, email, name, password_hash, role, department, created_at, updated_at
			  FROM users
			  WHERE ` + where + `
			  LIMIT 1`

	var user identityDomain.User
	err := querier.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.Role,
		&user.Department,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, identityDomain.ErrUserNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get user")
	}

	return &user, nil
}

// NewPostgreSQLUserRepository creates a new PostgreSQL user repository instance.
func NewPostgreSQLUserRepository(db *sql.DB) *PostgreSQLUserRepository {
	return &PostgreSQLUserRepository{db: db}
}
