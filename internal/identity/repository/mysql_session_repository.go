package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/vaultadmin/internal/database"
	apperrors "github.com/allisson/vaultadmin/internal/errors"
	identityDomain "github.com/allisson/vaultadmin/internal/identity/domain"
)

// MySQLSessionRepository implements session persistence for MySQL.
// Uses BINARY(16) for UUIDs with transaction support via database.GetTx().
type MySQLSessionRepository struct {
	db *sql.DB
}

// Create inserts a new session into the MySQL database.
func (m *MySQLSessionRepository) Create(ctx context.Context, session *identityDomain.Session) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO sessions (id, token_hash, user_id, csrf_token, expires_at, revoked_at, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`

	id, err := session.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal session id")
	}

	userID, err := session.UserID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal user id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		session.TokenHash,
		userID,
		session.CSRFToken,
		session.ExpiresAt,
		session.RevokedAt,
		session.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create session")
	}
	return nil
}

// GetByTokenHash retrieves a session by the SHA-256 hash of its bearer token.
func (m *MySQLSessionRepository) GetByTokenHash(
	ctx context.Context,
	tokenHash string,
) (*identityDomain.Session, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, token_hash, user_id, csrf_token, expires_at, revoked_at, created_at
			  FROM sessions
			  WHERE token_hash = ?
			  LIMIT 1`

	var session identityDomain.Session
	var rawID, rawUserID []byte
	err := querier.QueryRowContext(ctx, query, tokenHash).Scan(
		&rawID,
		&session.TokenHash,
		&rawUserID,
		&session.CSRFToken,
		&session.ExpiresAt,
		&session.RevokedAt,
		&session.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, identityDomain.ErrSessionNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get session by token hash")
	}

	if session.ID, err = uuid.FromBytes(rawID); err != nil {
		return nil, apperrors.Wrap(err, "failed to parse session id")
	}
	if session.UserID, err = uuid.FromBytes(rawUserID); err != nil {
		return nil, apperrors.Wrap(err, "failed to parse user id")
	}

	return &session, nil
}

// Revoke marks a session as revoked. Revoking an already revoked session is a no-op.
func (m *MySQLSessionRepository) Revoke(ctx context.Context, sessionID uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	id, err := sessionID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal session id")
	}

	query := `UPDATE sessions
			  SET revoked_at = ?
			  WHERE id = ? AND revoked_at IS NULL`

	_, err = querier.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return apperrors.Wrap(err, "failed to revoke session")
	}
	return nil
}

// DeleteExpired removes sessions that expired before the cutoff.
// Returns the number of deleted rows.
func (m *MySQLSessionRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at < ?`, cutoff)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete expired sessions")
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}
	return deleted, nil
}

// NewMySQLSessionRepository creates a new MySQL session repository instance.
func NewMySQLSessionRepository(db *sql.DB) *MySQLSessionRepository {
	return &MySQLSessionRepository{db: db}
}
