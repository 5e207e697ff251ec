package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	auditDomain "github.com/allisson/vaultadmin/internal/audit/domain"
	"github.com/allisson/vaultadmin/internal/database"
	apperrors "github.com/allisson/vaultadmin/internal/errors"
)

// MySQLAuditLogRepository implements audit log persistence for MySQL
// databases. UUIDs are stored as BINARY(16).
type MySQLAuditLogRepository struct {
	db *sql.DB
}

// LockChainHead locks the audit_chain_lock mutex row so only one writer at a
// time can read the chain head and append. MySQL has no transaction-scoped
// advisory locks, so a dedicated single-row table provides the same
// serialization; the row lock is released when the transaction ends.
func (m *MySQLAuditLogRepository) LockChainHead(ctx context.Context) error {
	querier := database.GetTx(ctx, m.db)

	var id int
	err := querier.QueryRowContext(ctx, `SELECT id FROM audit_chain_lock WHERE id = 1 FOR UPDATE`).Scan(&id)
	if err != nil {
		return apperrors.Wrap(err, "failed to lock audit chain head")
	}
	return nil
}

// Create inserts a new audit log entry. Handles nil metadata as NULL.
func (m *MySQLAuditLogRepository) Create(ctx context.Context, entry *auditDomain.AuditLog) error {
	querier := database.GetTx(ctx, m.db)

	var metadataJSON []byte
	var err error
	if entry.Metadata != nil {
		metadataJSON, err = json.Marshal(entry.Metadata)
		if err != nil {
			return apperrors.Wrap(err, "failed to marshal audit log metadata")
		}
	}

	id, err := entry.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal audit log id")
	}

	requestID, err := entry.RequestID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal request id")
	}

	actorID, err := entry.ActorID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal actor id")
	}

	query := `INSERT INTO audit_logs
			  (id, request_id, actor_id, action, target_id, metadata,
			   prev_signature, signature, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		requestID,
		actorID,
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
func (m *MySQLAuditLogRepository) GetLast(ctx context.Context) (*auditDomain.AuditLog, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, request_id, actor_id, action, target_id, metadata,
					 prev_signature, signature, created_at
			  FROM audit_logs
			  ORDER BY id DESC
			  LIMIT 1`

	entry, err := scanMySQLAuditLog(querier.QueryRowContext(ctx, query))
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
func (m *MySQLAuditLogRepository) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*auditDomain.AuditLog, error) {
	querier := database.GetTx(ctx, m.db)

	where := "TRUE"
	args := []any{}
	if createdAtFrom != nil {
		where += " AND created_at >= ?"
		args = append(args, *createdAtFrom)
	}
	if createdAtTo != nil {
		where += " AND created_at <= ?"
		args = append(args, *createdAtTo)
	}

	query := `SELECT id, request_id, actor_id, action, target_id, metadata,
					 prev_signature, signature, created_at
			  FROM audit_logs
			  WHERE ` + where + `
			  ORDER BY id DESC
			  LIMIT ? OFFSET ?`

	args = append(args, limit, offset)

	return m.queryAuditLogs(ctx, querier, query, args...)
}

// ListAsc retrieves audit logs oldest first with pagination, used by chain
// verification to walk the log in signing order.
func (m *MySQLAuditLogRepository) ListAsc(
	ctx context.Context,
	offset, limit int,
) ([]*auditDomain.AuditLog, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, request_id, actor_id, action, target_id, metadata,
					 prev_signature, signature, created_at
			  FROM audit_logs
			  ORDER BY id ASC
			  LIMIT ? OFFSET ?`

	return m.queryAuditLogs(ctx, querier, query, limit, offset)
}

// DeleteOlderThan removes audit logs created before the cutoff and returns
// the number of rows deleted.
func (m *MySQLAuditLogRepository) DeleteOlderThan(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM audit_logs WHERE created_at < ?`

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

func (m *MySQLAuditLogRepository) queryAuditLogs(
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
		entry, err := scanMySQLAuditLogRows(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate audit logs")
	}

	return entries, nil
}

func scanMySQLAuditLog(row *sql.Row) (*auditDomain.AuditLog, error) {
	var entry auditDomain.AuditLog
	var id, requestID, actorID []byte
	var action string
	var metadataJSON []byte
	err := row.Scan(
		&id,
		&requestID,
		&actorID,
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
	return fillMySQLAuditLog(&entry, id, requestID, actorID, action, metadataJSON)
}

func scanMySQLAuditLogRows(rows *sql.Rows) (*auditDomain.AuditLog, error) {
	var entry auditDomain.AuditLog
	var id, requestID, actorID []byte
	var action string
	var metadataJSON []byte
	err := rows.Scan(
		&id,
		&requestID,
		&actorID,
		&action,
		&entry.TargetID,
		&metadataJSON,
		&entry.PrevSignature,
		&entry.Signature,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to scan audit log")
	}
	return fillMySQLAuditLog(&entry, id, requestID, actorID, action, metadataJSON)
}

func fillMySQLAuditLog(
	entry *auditDomain.AuditLog,
	id, requestID, actorID []byte,
	action string,
	metadataJSON []byte,
) (*auditDomain.AuditLog, error) {
	if err := entry.ID.UnmarshalBinary(id); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal audit log id")
	}
	if err := entry.RequestID.UnmarshalBinary(requestID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal request id")
	}
	if err := entry.ActorID.UnmarshalBinary(actorID); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal actor id")
	}
	entry.Action = auditDomain.Action(action)
	if err := unmarshalMetadata(entry, metadataJSON); err != nil {
		return nil, err
	}
	return entry, nil
}

// NewMySQLAuditLogRepository creates a new MySQL audit log repository instance.
func NewMySQLAuditLogRepository(db *sql.DB) *MySQLAuditLogRepository {
	return &MySQLAuditLogRepository{db: db}
}
