// Package repository implements credential vault persistence for PostgreSQL
// and MySQL. Visibility scoping is applied inside the SQL itself, and every
// mutation carries its ownership predicate in the WHERE clause so there is no
// time-of-check/time-of-use gap.
package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/vaultadmin/internal/crypto/domain"
	"github.com/allisson/vaultadmin/internal/database"
	apperrors "github.com/allisson/vaultadmin/internal/errors"
	vaultDomain "github.com/allisson/vaultadmin/internal/vault/domain"
)

// PostgreSQLRecordRepository implements credential record persistence for PostgreSQL.
type PostgreSQLRecordRepository struct {
	db *sql.DB
}

// scopeClause renders the visibility filter as SQL. args placeholders start
// at $argOffset+1.
func scopeClause(scope vaultDomain.Scope, argOffset int) (string, []any) {
	switch {
	case scope.All:
		return "TRUE", nil
	case scope.SharedAll:
		return fmt.Sprintf("(visibility = 'shared' OR owner_id = $%d)", argOffset+1),
			[]any{scope.UserID}
	default:
		return fmt.Sprintf(
			`(owner_id = $%d OR (visibility = 'shared' AND EXISTS (
				SELECT 1 FROM service_assignments sa
				WHERE sa.record_id = credential_records.id AND sa.user_id = $%d)))`,
			argOffset+1, argOffset+2,
		), []any{scope.UserID, scope.UserID}
	}
}

// modifyClause renders the ownership predicate for mutations as SQL.
func modifyClause(modify vaultDomain.ModifyScope, argOffset int) (string, []any) {
	if modify.Admin {
		return fmt.Sprintf("(visibility = 'shared' OR owner_id = $%d)", argOffset+1),
			[]any{modify.UserID}
	}
	return fmt.Sprintf("(visibility = 'private' AND owner_id = $%d)", argOffset+1),
		[]any{modify.UserID}
}

// Create inserts a new credential record.
func (p *PostgreSQLRecordRepository) Create(ctx context.Context, record *vaultDomain.Record) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO credential_records
			  (id, owner_id, created_by, visibility, name, url, username,
			   secret_ciphertext, secret_iv, notes, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := querier.ExecContext(
		ctx,
		query,
		record.ID,
		ownerParam(record.OwnerID),
		record.CreatedBy,
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
func (p *PostgreSQLRecordRepository) Get(
	ctx context.Context,
	recordID uuid.UUID,
	scope vaultDomain.Scope,
) (*vaultDomain.Record, error) {
	querier := database.GetTx(ctx, p.db)

	clause, scopeArgs := scopeClause(scope, 1)
	query := `SELECT id, owner_id, created_by, visibility, name, url, username,
					 secret_ciphertext, secret_iv, notes, created_at, updated_at
			  FROM credential_records
			  WHERE id = $1 AND ` + clause + `
			  LIMIT 1`

	args := append([]any{recordID}, scopeArgs...)

	record, err := scanRecord(querier.QueryRowContext(ctx, query, args...))
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
func (p *PostgreSQLRecordRepository) List(
	ctx context.Context,
	scope vaultDomain.Scope,
	offset, limit int,
) ([]*vaultDomain.Record, error) {
	querier := database.GetTx(ctx, p.db)

	clause, scopeArgs := scopeClause(scope, 0)
	query := fmt.Sprintf(`SELECT id, owner_id, created_by, visibility, name, url, username,
								 notes, created_at, updated_at
			  FROM credential_records
			  WHERE %s
			  ORDER BY name, id
			  OFFSET $%d LIMIT $%d`, clause, len(scopeArgs)+1, len(scopeArgs)+2)

	args := append(scopeArgs, offset, limit)

	rows, err := querier.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list records")
	}
	defer func() { _ = rows.Close() }()

	var records []*vaultDomain.Record
	for rows.Next() {
		var record vaultDomain.Record
		var owner uuid.NullUUID
		err := rows.Scan(
			&record.ID,
			&owner,
			&record.CreatedBy,
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
		if owner.Valid {
			ownerID := owner.UUID
			record.OwnerID = &ownerID
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
func (p *PostgreSQLRecordRepository) Update(
	ctx context.Context,
	record *vaultDomain.Record,
	modify vaultDomain.ModifyScope,
) error {
	querier := database.GetTx(ctx, p.db)

	clause, modifyArgs := modifyClause(modify, 8)
	query := `UPDATE credential_records
			  SET name = $2, url = $3, username = $4,
				  secret_ciphertext = $5, secret_iv = $6, notes = $7, updated_at = $8
			  WHERE id = $1 AND ` + clause

	args := append([]any{
		record.ID,
		record.Name,
		record.URL,
		record.Username,
		nullBytes(record.Secret.Data),
		nullBytes(record.Secret.IV),
		record.Notes,
		time.Now().UTC(),
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
func (p *PostgreSQLRecordRepository) Delete(
	ctx context.Context,
	recordID uuid.UUID,
	modify vaultDomain.ModifyScope,
) error {
	querier := database.GetTx(ctx, p.db)

	clause, modifyArgs := modifyClause(modify, 1)
	query := `DELETE FROM credential_records WHERE id = $1 AND ` + clause

	args := append([]any{recordID}, modifyArgs...)

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
func (p *PostgreSQLRecordRepository) ListAll(
	ctx context.Context,
	offset, limit int,
) ([]*vaultDomain.Record, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, owner_id, created_by, visibility, name, url, username,
					 secret_ciphertext, secret_iv, notes, created_at, updated_at
			  FROM credential_records
			  ORDER BY id
			  OFFSET $1 LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list records")
	}
	defer func() { _ = rows.Close() }()

	var records []*vaultDomain.Record
	for rows.Next() {
		record, err := scanRecordRows(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan record")
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate records")
	}

	return records, nil
}

// UpdateSecret rewrites only the ciphertext/IV pair, used by key rotation.
func (p *PostgreSQLRecordRepository) UpdateSecret(
	ctx context.Context,
	recordID uuid.UUID,
	secret cryptoDomain.CipherText,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE credential_records
			  SET secret_ciphertext = $2, secret_iv = $3, updated_at = $4
			  WHERE id = $1`

	_, err := querier.ExecContext(
		ctx, query, recordID, nullBytes(secret.Data), nullBytes(secret.IV), time.Now().UTC(),
	)
	if err != nil {
		return apperrors.Wrap(err, "failed to update record secret")
	}
	return nil
}

// scanRecord scans a single row into a Record, including secret columns.
func scanRecord(row *sql.Row) (*vaultDomain.Record, error) {
	var record vaultDomain.Record
	var owner uuid.NullUUID
	var ciphertext, iv []byte
	err := row.Scan(
		&record.ID,
		&owner,
		&record.CreatedBy,
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
	if owner.Valid {
		ownerID := owner.UUID
		record.OwnerID = &ownerID
	}
	record.Secret = cryptoDomain.CipherText{Data: ciphertext, IV: iv}
	return &record, nil
}

// scanRecordRows is scanRecord for *sql.Rows.
func scanRecordRows(rows *sql.Rows) (*vaultDomain.Record, error) {
	var record vaultDomain.Record
	var owner uuid.NullUUID
	var ciphertext, iv []byte
	err := rows.Scan(
		&record.ID,
		&owner,
		&record.CreatedBy,
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
	if owner.Valid {
		ownerID := owner.UUID
		record.OwnerID = &ownerID
	}
	record.Secret = cryptoDomain.CipherText{Data: ciphertext, IV: iv}
	return &record, nil
}

// ownerParam maps a nil owner pointer to NULL.
func ownerParam(owner *uuid.UUID) any {
	if owner == nil {
		return nil
	}
	return *owner
}

// nullBytes maps empty slices to NULL so "no secret" is stored as NULL.
func nullBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

// NewPostgreSQLRecordRepository creates a new PostgreSQL record repository instance.
func NewPostgreSQLRecordRepository(db *sql.DB) *PostgreSQLRecordRepository {
	return &PostgreSQLRecordRepository{db: db}
}
