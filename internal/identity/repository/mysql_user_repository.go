package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/allisson/vaultadmin/internal/database"
	apperrors "github.com/allisson/vaultadmin/internal/errors"
	identityDomain "github.com/allisson/vaultadmin/internal/identity/domain"
)

// MySQLUserRepository implements user persistence for MySQL.
// Uses BINARY(16) for UUIDs with transaction support via database.GetTx().
type MySQLUserRepository struct {
	db *sql.DB
}

// Create inserts a new user into the MySQL database.
func (m *MySQLUserRepository) Create(ctx context.Context, user *identityDomain.User) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO users (id, email, name, password_hash, role, department, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := user.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal user id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		user.Email,
		user.Name,
		user.PasswordHash,
		user.Role,
		user.Department,
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var myErr *mysql.MySQLError
		if apperrors.As(err, &myErr) && myErr.Number == 1062 {
			return identityDomain.ErrEmailTaken
		}
		return apperrors.Wrap(err, "failed to create user")
	}
	return nil
}

// Get retrieves a user by ID.
func (m *MySQLUserRepository) Get(ctx context.Context, id uuid.UUID) (*identityDomain.User, error) {
	rawID, err := id.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal user id")
	}
	return m.getBy(ctx, "id = ?", rawID)
}

// GetByEmail retrieves a user by email (case-insensitive).
func (m *MySQLUserRepository) GetByEmail(ctx context.Context, email string) (*identityDomain.User, error) {
	return m.getBy(ctx, "lower(email) = ?", strings.ToLower(email))
}

func (m *MySQLUserRepository) getBy(ctx context.Context, where string, arg any) (*identityDomain.User, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, email, name, password_hash, role, department, created_at, updated_at
			  FROM users
			  WHERE ` + where + `
			  LIMIT 1`

	var user identityDomain.User
	var rawID []byte
	err := querier.QueryRowContext(ctx, query, arg).Scan(
		&rawID,
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

	parsed, err := uuid.FromBytes(rawID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse user id")
	}
	user.ID = parsed

	return &user, nil
}

// NewMySQLUserRepository creates a new MySQL user repository instance.
func NewMySQLUserRepository(db *sql.DB) *MySQLUserRepository {
	return &MySQLUserRepository{db: db}
}
