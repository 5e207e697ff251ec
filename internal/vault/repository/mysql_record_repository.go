package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/vaultadmin/internal/crypto/domain"
	"github.com/allisson/vaultadmin/internal/database"
	apperrors "github.com/allisson/vaultadmin/internal/errors"
	vaultDomain "github.com/allisson/vaultadmin/internal/vault/domain"
)

// MySQLRecordRepository implements credential record persistence for MySQL.
// UUIDs are stored as BINARY(16).
type MySQLRecordRepository struct {
	db *sql.DB
}

// mysqlScopeClause renders the visibility filter as SQL with '?' placeholders.
func mysqlScopeClause(scope vaultDomain.Scope) (string, []any, error) {
	switch {
	case scope.All:
		return "TRUE", nil, nil
	case scope.SharedAll:
		userID, err := scope.UserID.MarshalBinary()
		if err != nil {
			return "", nil, apperrors.Wrap(err, "failed to marshal user id")
		}
		return "(visibility = 'shared' OR owner_id = ?)", []any{userID}, nil
	default:
		userID, err := scope.UserID.MarshalBinary()
		if err != nil {
			return "", nil, apperrors.Wrap(err, "failed to marshal user id")
		}
		return `(owner_id = ? OR (visibility = 'shared' AND EXISTS (
				SELECT 1 FROM service_assignments sa
				WHERE sa.record_id = credential_records.id AND sa.user_id = ?)))`,
			[]any{userID, userID}, nil
	}
}

// mysqlModifyClause renders the ownership predicate for mutations as SQL.
func mysqlModifyClause(modify vaultDomain.ModifyScope) (string, []any, error) {
	userID, err := modify.UserID.MarshalBinary()
	if err != nil {
		return "", nil, apperrors.Wrap(err, "failed to marshal user id")
	}
	if modify.Admin {
		return "(visibility = 'shared' OR owner_id = ?)", []any{userID}, nil
	}
	return "(visibility = 'private' AND owner_id = ?)", []any{userID}, nil
}

// Create inserts a new credential record.
func (m *MySQLRecordRepository) Create(ctx context.Context, record *vaultDomain.Record) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO credential_records
			  (id, owner_id, created_by, visibility, name, url, username,
			   secret_ciphertext, secret_iv, notes, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	id, err := record.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal record id")
	}

	ownerID, err := mysqlOwnerParam(record.OwnerID)
	if err != nil {
		return err
	}

	createdBy, err := record.CreatedBy.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal created by id")
	}

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		ownerID,
		createdBy,
		record.Visibility,
		record.Name,
		record.URL,
		record.Username,
		nullBytes(record.Secret.Data),
		nullBytes(record.Secret.IV),
		record.Notes,
		record.CreatedAt,
		record.UpdatedAt,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to create record")
	}
	return nil
}

// Get retrieves one record within the caller's visible scope, including its
// ciphertext. A record outside the scope yields ErrRecordNotFound.
func (m *MySQLRecordRepository) Get(
	ctx context.Context,
	recordID uuid.UUID,
	scope vaultDomain.Scope,
) (*vaultDomain.Record, error) {
	querier := database.GetTx(ctx, m.db)

	clause, scopeArgs, err := mysqlScopeClause(scope)
	if err != nil {
		return nil, err
	}
	query := `SELECT id, owner_id, created_by, visibility, name, url, username,
					 secret_ciphertext, secret_iv, notes, created_at, updated_at
			  FROM credential_records
			  WHERE id = ? AND ` + clause + `
			  LIMIT 1`

	id, err := recordID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal record id")
	}

	args := append([]any{id}, scopeArgs...)

	record, err := scanMySQLRecord(querier.QueryRowContext(ctx, query, args...))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, vaultDomain.ErrRecordNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get record")
	}
	return record, nil
}

// List retrieves records within the caller's visible scope, ordered by name.
// Secret columns are not selected; secrets only ever travel through reveal.
func (m *MySQLRecordRepository) List(
	ctx context.Context,
	scope vaultDomain.Scope,
	offset, limit int,
) ([]*vaultDomain.Record, error) {
	querier := database.GetTx(ctx, m.db)

	clause, scopeArgs, err := mysqlScopeClause(scope)
	if err != nil {
		return nil, err
	}
	query := `SELECT id, owner_id, created_by, visibility, name, url, username,
					 notes, created_at, updated_at
			  FROM credential_records
			  WHERE ` + clause + `
			  ORDER BY name, id
			  LIMIT ? OFFSET ?`

	args := append(scopeArgs, limit, offset)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list records")
	}
	defer func() { _ = rows.Close() }()

	var records []*vaultDomain.Record
	for rows.Next() {
		var record vaultDomain.Record
		var id, ownerID, createdBy []byte
		err := rows.Scan(
			&id,
			&ownerID,
			&createdBy,
			&record.Visibility,
			&record.Name,
			&record.URL,
			&record.Username,
			&record.Notes,
			&record.CreatedAt,
			&record.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan record")
		}
		if err := unmarshalRecordIDs(&record, id, ownerID, createdBy); err != nil {
			return nil, err
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate records")
	}

	return records, nil
}

// Update persists field changes with the ownership predicate embedded in the
// WHERE clause. Zero affected rows means the record is gone or not the
// caller's to change; both report ErrRecordNotFound.
func (m *MySQLRecordRepository) Update(
	ctx context.Context,
	record *vaultDomain.Record,
	modify vaultDomain.ModifyScope,
) error {
	querier := database.GetTx(ctx, m.db)

	clause, modifyArgs, err := mysqlModifyClause(modify)
	if err != nil {
		return err
	}
	query := `UPDATE credential_records
			  SET name = ?, url = ?, username = ?,
				  secret_ciphertext = ?, secret_iv = ?, notes = ?, updated_at = ?
			  WHERE id = ? AND ` + clause

	id, err := record.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal record id")
	}

	args := append([]any{
		record.Name,
		record.URL,
		record.Username,
		nullBytes(record.Secret.Data),
		nullBytes(record.Secret.IV),
		record.Notes,
		time.Now().UTC(),
		id,
	}, modifyArgs...)

	result, err := querier.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.Wrap(err, "failed to update record")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if affected == 0 {
		return vaultDomain.ErrRecordNotFound
	}
	return nil
}

// Delete removes a record with the ownership predicate in the WHERE clause.
func (m *MySQLRecordRepository) Delete(
	ctx context.Context,
	recordID uuid.UUID,
	modify vaultDomain.ModifyScope,
) error {
	querier := database.GetTx(ctx, m.db)

	clause, modifyArgs, err := mysqlModifyClause(modify)
	if err != nil {
		return err
	}
	query := `DELETE FROM credential_records WHERE id = ? AND ` + clause

	id, err := recordID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal record id")
	}

	args := append([]any{id}, modifyArgs...)

	result, err := querier.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete record")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if affected == 0 {
		return vaultDomain.ErrRecordNotFound
	}
	return nil
}

// ListAll retrieves every record including ciphertext, used by key rotation.
func (m *MySQLRecordRepository) ListAll(
	ctx context.Context,
	offset, limit int,
) ([]*vaultDomain.Record, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, owner_id, created_by, visibility, name, url, username,
					 secret_ciphertext, secret_iv, notes, created_at, updated_at
			  FROM credential_records
			  ORDER BY id
			  LIMIT ? OFFSET ?`

	rows, err := querier.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list records")
	}
	defer func() { _ = rows.Close() }()

	var records []*vaultDomain.Record
	for rows.Next() {
		record, err := scanMySQLRecordRows(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate records")
	}

	return records, nil
}

// UpdateSecret rewrites only the ciphertext/IV pair, used by key rotation.
func (m *MySQLRecordRepository) UpdateSecret(
	ctx context.Context,
	recordID uuid.UUID,
	secret cryptoDomain.CipherText,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `UPDATE credential_records
			  SET secret_ciphertext = ?, secret_iv = ?, updated_at = ?
			  WHERE id = ?`

	id, err := recordID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal record id")
	}

	_, err = querier.ExecContext(
		ctx, query, nullBytes(secret.Data), nullBytes(secret.IV), time.Now().UTC(), id,
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update record secret")
	}
	return nil
}

func scanMySQLRecord(row *sql.Row) (*vaultDomain.Record, error) {
	var record vaultDomain.Record
	var id, ownerID, createdBy, ciphertext, iv []byte
	err := row.Scan(
		&id,
		&ownerID,
		&createdBy,
		&record.Visibility,
		&record.Name,
		&record.URL,
		&record.Username,
		&ciphertext,
		&iv,
		&record.Notes,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := unmarshalRecordIDs(&record, id, ownerID, createdBy); err != nil {
		return nil, err
	}
	record.Secret = cryptoDomain.CipherText{Data: ciphertext, IV: iv}
	return &record, nil
}

func scanMySQLRecordRows(rows *sql.Rows) (*vaultDomain.Record, error) {
	var record vaultDomain.Record
	var id, ownerID, createdBy, ciphertext, iv []byte
	err := rows.Scan(
		&id,
		&ownerID,
		&createdBy,
		&record.Visibility,
		&record.Name,
		&record.URL,
		&record.Username,
		&ciphertext,
		&iv,
		&record.Notes,
		&record.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to scan record")
	}
	if err := unmarshalRecordIDs(&record, id, ownerID, createdBy); err != nil {
		return nil, err
	}
	record.Secret = cryptoDomain.CipherText{Data: ciphertext, IV: iv}
	return &record, nil
}

// unmarshalRecordIDs fills the record's UUID fields from BINARY(16) columns.
// A NULL owner_id arrives as a nil slice and stays a nil pointer.
func unmarshalRecordIDs(record *vaultDomain.Record, id, ownerID, createdBy []byte) error {
	if err := record.ID.UnmarshalBinary(id); err != nil {
		return apperrors.Wrap(err, "failed to unmarshal record id")
	}
	if len(ownerID) > 0 {
		owner, err := uuid.FromBytes(ownerID)
		if err != nil {
			return apperrors.Wrap(err, "failed to unmarshal owner id")
		}
		record.OwnerID = &owner
	}
	if err := record.CreatedBy.UnmarshalBinary(createdBy); err != nil {
		return apperrors.Wrap(err, "failed to unmarshal created by id")
	}
	return nil
}

// mysqlOwnerParam maps a nil owner pointer to NULL and a set one to BINARY(16).
func mysqlOwnerParam(owner *uuid.UUID) (any, error) {
	if owner == nil {
		return nil, nil
	}
	ownerID, err := owner.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal owner id")
	}
	return ownerID, nil
}

// NewMySQLRecordRepository creates a new MySQL record repository instance.
func NewMySQLRecordRepository(db *sql.DB) *MySQLRecordRepository {
	return &MySQLRecordRepository{db: db}
}
