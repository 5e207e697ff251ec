package repository

import (
	"context"
	"database/sql"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/allisson/vaultadmin/internal/database"
	apperrors "github.com/allisson/vaultadmin/internal/errors"
	vaultDomain "github.com/allisson/vaultadmin/internal/vault/domain"
)

// MySQLAssignmentRepository implements service assignment persistence for
// MySQL databases. UUIDs are stored as BINARY(16).
type MySQLAssignmentRepository struct {
	db *sql.DB
}

// Create inserts a new service assignment. A duplicate (user_id, record_id)
// pair yields ErrAssignmentExists.
func (m *MySQLAssignmentRepository) Create(ctx context.Context, assignment *vaultDomain.Assignment) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT INTO service_assignments (id, user_id, record_id, created_by, created_at)
			  VALUES (?, ?, ?, ?, ?)`

	id, err := assignment.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal assignment id")
	}

	userID, err := assignment.UserID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal user id")
	}

	recordID, err := assignment.RecordID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal record id")
	}

	createdBy, err := assignment.CreatedBy.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal created by id")
	}

	_, err = querier.ExecContext(ctx, query, id, userID, recordID, createdBy, assignment.CreatedAt)
	if err != nil {
		var myErr *mysql.MySQLError
		if apperrors.As(err, &myErr) && myErr.Number == 1062 {
			return vaultDomain.ErrAssignmentExists
		}
		return apperrors.Wrap(err, "failed to create assignment")
	}
	return nil
}

// Delete removes a service assignment by ID.
func (m *MySQLAssignmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	query := `DELETE FROM service_assignments WHERE id = ?`

	idBytes, err := id.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal assignment id")
	}

	result, err := querier.ExecContext(ctx, query, idBytes)
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
func (m *MySQLAssignmentRepository) ListByRecord(
	ctx context.Context,
	recordID uuid.UUID,
) ([]*vaultDomain.Assignment, error) {
	return m.list(ctx, "record_id = ?", recordID)
}

// ListByUser retrieves the assignments held by a user.
func (m *MySQLAssignmentRepository) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*vaultDomain.Assignment, error) {
	return m.list(ctx, "user_id = ?", userID)
}

// Exists reports whether the user holds an assignment for the record.
func (m *MySQLAssignmentRepository) Exists(
	ctx context.Context,
	userID, recordID uuid.UUID,
) (bool, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT EXISTS (
				SELECT 1 FROM service_assignments WHERE user_id = ? AND record_id = ?)`

	userIDBytes, err := userID.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal user id")
	}

	recordIDBytes, err := recordID.MarshalBinary()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to marshal record id")
	}

	var exists bool
	if err := querier.QueryRowContext(ctx, query, userIDBytes, recordIDBytes).Scan(&exists); err != nil {
		return false, apperrors.Wrap(err, "failed to check assignment")
	}
	return exists, nil
}

func (m *MySQLAssignmentRepository) list(
	ctx context.Context,
	where string,
	arg uuid.UUID,
) ([]*vaultDomain.Assignment, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT id, user_id, record_id, created_by, created_at
			  FROM service_assignments
			  WHERE ` + where + `
			  ORDER BY created_at, id`

	argBytes, err := arg.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal id")
	}

	rows, err := querier.QueryContext(ctx, query, argBytes)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list assignments")
	}
	defer func() { _ = rows.Close() }()

	var assignments []*vaultDomain.Assignment
	for rows.Next() {
		var assignment vaultDomain.Assignment
		var id, userID, recordID, createdBy []byte
		err := rows.Scan(&id, &userID, &recordID, &createdBy, &assignment.CreatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan assignment")
		}
		if err := assignment.ID.UnmarshalBinary(id); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal assignment id")
		}
		if err := assignment.UserID.UnmarshalBinary(userID); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal user id")
		}
		if err := assignment.RecordID.UnmarshalBinary(recordID); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal record id")
		}
		if err := assignment.CreatedBy.UnmarshalBinary(createdBy); err != nil {
			return nil, apperrors.Wrap(err, "failed to unmarshal created by id")
		}
		assignments = append(assignments, &assignment)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate assignments")
	}

	return assignments, nil
}

// NewMySQLAssignmentRepository creates a new MySQL assignment repository instance.
func NewMySQLAssignmentRepository(db *sql.DB) *MySQLAssignmentRepository {
	return &MySQLAssignmentRepository{db: db}
}
