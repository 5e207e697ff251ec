// Package repository implements audit log persistence for PostgreSQL and
// MySQL.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	auditDomain "github.com/allisson/vaultadmin/internal/audit/domain"
	"github.com/allisson/vaultadmin/internal/database"
	apperrors "github.com/allisson/vaultadmin/internal/errors"
)

// auditChainLockID is the advisory lock key serializing chain appends
// ("auditlog" in hex).
const auditChainLockID int64 = 0x61756469746c6f67

// PostgreSQLAuditLogRepository implements audit log persistence for
// PostgreSQL databases.
type PostgreSQLAuditLogRepository struct {
	db *sql.DB
}

// LockChainHead takes a transaction-scoped advisory lock so only one writer
// at a time can read the chain head and append. Released automatically when
// the transaction commits or rolls back.
func (p *PostgreSQLAuditLogRepository) LockChainHead(ctx context.Context) error {
	querier := database.GetTx(ctx, p.db)

	if _, err := querier.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, auditChainLockID); err != nil {
		return apperrors.Wrap(err, "failed to lock audit chain head")
	}
	return nil
}

// Create inserts a new audit log entry. Handles nil metadata as NULL.
func (p *PostgreSQLAuditLogRepository) Create(ctx context.Context, entry *auditDomain.AuditLog) error {
	querier := database.GetTx(ctx, p.db)

	var metadataJSON []byte
	var err error
	if entry.Metadata != nil {
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal audit log metadata")
		}
	}

	query := `INSERT INTO audit_logs
			  (id, request_id, actor_id, action, target_id, metadata,
			   prev_signature, signature, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = querier.ExecContext(
		ctx,
		query,
		entry.ID,
		entry.RequestID,
		entry.ActorID,
		string(entry.Action),
		entry.TargetID,
		metadataJSON,
		entry.PrevSignature,
		entry.Signature,
		entry.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create audit log")
	}
	return nil
}

// GetLast retrieves the most recent audit log entry, the chain head.
// Returns ErrNotFound when the log is empty.
func (p *PostgreSQLAuditLogRepository) GetLast(ctx context.Context) (*auditDomain.AuditLog, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, request_id, actor_id, action, target_id, metadata,
					 prev_signature, signature, created_at
			  FROM audit_logs
			  ORDER BY id DESC
			  LIMIT 1`

	entry, err := scanAuditLog(querier.QueryRowContext(ctx, query))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, apperrors.ErrNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get last audit log")
	}
	return entry, nil
}

// List retrieves audit logs newest first with pagination and optional
// inclusive time-range filters (nil means no bound).
func (p *PostgreSQLAuditLogRepository) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*auditDomain.AuditLog, error) {
	querier := database.GetTx(ctx, p.db)

	where := "TRUE"
	args := []any{}
	if createdAtFrom != nil {
		args = append(args, *createdAtFrom)
		where += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if createdAtTo != nil {
		args = append(args, *createdAtTo)
		where += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	query := fmt.Sprintf(`SELECT id, request_id, actor_id, action, target_id, metadata,
								 prev_signature, signature, created_at
			  FROM audit_logs
			  WHERE %s
			  ORDER BY id DESC
			  LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)

	args = append(args, limit, offset)

	return p.queryAuditLogs(ctx, querier, query, args...)
}

// ListAsc retrieves audit logs oldest first with pagination, used by chain
// verification to walk the log in signing order.
func (p *PostgreSQLAuditLogRepository) ListAsc(
	ctx context.Context,
	offset, limit int,
) ([]*auditDomain.AuditLog, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, request_id, actor_id, action, target_id, metadata,
					 prev_signature, signature, created_at
			  FROM audit_logs
			  ORDER BY id ASC
			  LIMIT $1 OFFSET $2`

	return p.queryAuditLogs(ctx, querier, query, limit, offset)
}

// DeleteOlderThan removes audit logs created before the cutoff and returns
// the number of rows deleted.
func (p *PostgreSQLAuditLogRepository) DeleteOlderThan(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM audit_logs WHERE created_at < $1`

	result, err := querier.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to delete audit logs")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}
	return affected, nil
}

func (p *PostgreSQLAuditLogRepository) queryAuditLogs(
	ctx context.Context,
	querier database.Querier,
	query string,
	args ...any,
) ([]*auditDomain.AuditLog, error) {
	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	defer func() { _ = rows.Close() }()

	entries := make([]*auditDomain.AuditLog, 0)
	for rows.Next() {
		entry, err := scanAuditLogRows(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan audit log")
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit logs")
	}

	return entries, nil
}

func scanAuditLog(row *sql.Row) (*auditDomain.AuditLog, error) {
	var entry auditDomain.AuditLog
	var action string
	var metadataJSON []byte
	err := row.Scan(
		&entry.ID,
		&entry.RequestID,
		&entry.ActorID,
		&action,
		&entry.TargetID,
		&metadataJSON,
		&entry.PrevSignature,
		&entry.Signature,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	entry.Action = auditDomain.Action(action)
	if err := unmarshalMetadata(&entry, metadataJSON); err != nil {
		return nil, err
	}
	return &entry, nil
}

func scanAuditLogRows(rows *sql.Rows) (*auditDomain.AuditLog, error) {
	var entry auditDomain.AuditLog
	var action string
	var metadataJSON []byte
	err := rows.Scan(
		&entry.ID,
		&entry.RequestID,
		&entry.ActorID,
		&action,
		&entry.TargetID,
		&metadataJSON,
		&entry.PrevSignature,
		&entry.Signature,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	entry.Action = auditDomain.Action(action)
	if err := unmarshalMetadata(&entry, metadataJSON); err != nil {
		return nil, err
	}
	return &entry, nil
}

func unmarshalMetadata(entry *auditDomain.AuditLog, metadataJSON []byte) error {
	if len(metadataJSON) == 0 {
		return nil
	}
	if err := json.Unmarshal(metadataJSON, &entry.Metadata); err != nil {
		return apperrors.Wrap(err, "failed to unmarshal audit log metadata")
	}
	return nil
}

// NewPostgreSQLAuditLogRepository creates a new PostgreSQL audit log repository instance.
func NewPostgreSQLAuditLogRepository(db *sql.DB) *PostgreSQLAuditLogRepository {
	return &PostgreSQLAuditLogRepository{db: db}
}
