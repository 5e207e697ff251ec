package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/allisson/vaultadmin/internal/database"
	apperrors "github.com/allisson/vaultadmin/internal/errors"
	vaultDomain "github.com/allisson/vaultadmin/internal/vault/domain"
)

// PostgreSQLAssignmentRepository implements service assignment persistence for
// PostgreSQL databases.
type PostgreSQLAssignmentRepository struct {
	db *sql.DB
}

// Create inserts a new service assignment. A duplicate (user_id, record_id)
// pair yields ErrAssignmentExists.
func (p *PostgreSQLAssignmentRepository) Create(ctx context.Context, assignment *vaultDomain.Assignment) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO service_assignments (id, user_id, record_id, created_by, created_at)
			  VALUES ($1, $2, $3, $4, $5)`

	_, err := querier.ExecContext(
		ctx,
		query,
		assignment.ID,
		assignment.UserID,
		assignment.RecordID,
		assignment.CreatedBy,
		assignment.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if apperrors.As(err, &pqErr) && pqErr.Code == "23505" {
			return vaultDomain.ErrAssignmentExists
		}
		return apperrors.Wrap(err, "failed to create assignment")
	}
	return nil
}

// Delete removes a service assignment by ID.
func (p *PostgreSQLAssignmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	query := `DELETE FROM service_assignments WHERE id = $1`

	result, err := querier.ExecContext(ctx, query, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete assignment")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to get affected rows")
	}
	if affected == 0 {
		return vaultDomain.ErrAssignmentNotFound
	}
	return nil
}

// ListByRecord retrieves the assignments attached to a record.
func (p *PostgreSQLAssignmentRepository) ListByRecord(
	ctx context.Context,
	recordID uuid.UUID,
) ([]*vaultDomain.Assignment, error) {
	return p.list(ctx, "record_id = $1", recordID)
}

// ListByUser retrieves the assignments held by a user.
func (p *PostgreSQLAssignmentRepository) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*vaultDomain.Assignment, error) {
	return p.list(ctx, "user_id = $1", userID)
}

// Exists reports whether the user holds an assignment for the record.
func (p *PostgreSQLAssignmentRepository) Exists(
	ctx context.Context,
	userID, recordID uuid.UUID,
) (bool, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT EXISTS (
				SELECT 1 FROM service_assignments WHERE user_id = $1 AND record_id = $2)`

	var exists bool
	if err := querier.QueryRowContext(ctx, query, userID, recordID).Scan(&exists); err != nil {
		return false, apperrors.Wrap(err, "failed to check assignment")
	}
	return exists, nil
}

func (p *PostgreSQLAssignmentRepository) list(
	ctx context.Context,
	where string,
	arg any,
) ([]*vaultDomain.Assignment, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT id, user_id, record_id, created_by, created_at
			  FROM service_assignments
			  WHERE ` + where + `
			  ORDER BY created_at, id`

	rows, err := querier.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list assignments")
	}
	defer func() { _ = rows.Close() }()

	var assignments []*vaultDomain.Assignment
	for rows.Next() {
		var assignment vaultDomain.Assignment
		err := rows.Scan(
			&assignment.ID,
			&assignment.UserID,
			&assignment.RecordID,
			&assignment.CreatedBy,
			&assignment.CreatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan assignment")
		}
		assignments = append(assignments, &assignment)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate assignments")
	}

	return assignments, nil
}

// NewPostgreSQLAssignmentRepository creates a new PostgreSQL assignment repository instance.
func NewPostgreSQLAssignmentRepository(db *sql.DB) *PostgreSQLAssignmentRepository {
	return &PostgreSQLAssignmentRepository{db: db}
}
