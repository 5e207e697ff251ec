// Package usecase implements business logic orchestration for the credential
// vault: record CRUD with access scoping, the reveal path, and service
// assignments.
package usecase

import (
	"context"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/vaultadmin/internal/crypto/domain"
	identityDomain "github.com/allisson/vaultadmin/internal/identity/domain"
	vaultDomain "github.com/allisson/vaultadmin/internal/vault/domain"
)

// RecordRepository defines persistence operations for credential records.
// Read operations take a visibility Scope and mutations take a ModifyScope;
// both are rendered into the SQL so authorization and data access are a
// single statement.
type RecordRepository interface {
	Create(ctx context.Context, record *vaultDomain.Record) error
	Get(ctx context.Context, recordID uuid.UUID, scope vaultDomain.Scope) (*vaultDomain.Record, error)
	List(ctx context.Context, scope vaultDomain.Scope, offset, limit int) ([]*vaultDomain.Record, error)
	Update(ctx context.Context, record *vaultDomain.Record, modify vaultDomain.ModifyScope) error
	Delete(ctx context.Context, recordID uuid.UUID, modify vaultDomain.ModifyScope) error
	ListAll(ctx context.Context, offset, limit int) ([]*vaultDomain.Record, error)
	UpdateSecret(ctx context.Context, recordID uuid.UUID, secret cryptoDomain.CipherText) error
}

// AssignmentRepository defines persistence operations for service assignments.
type AssignmentRepository interface {
	Create(ctx context.Context, assignment *vaultDomain.Assignment) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByRecord(ctx context.Context, recordID uuid.UUID) ([]*vaultDomain.Assignment, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*vaultDomain.Assignment, error)
	Exists(ctx context.Context, userID, recordID uuid.UUID) (bool, error)
}

// UserRepository defines the user lookup needed when granting assignments.
type UserRepository interface {
	Get(ctx context.Context, id uuid.UUID) (*identityDomain.User, error)
}

// CreateRecordInput contains the parameters for creating a credential record.
// A nil Secret stores the record without a secret.
type CreateRecordInput struct {
	Visibility vaultDomain.Visibility
	Name       string
	URL        string
	Username   string
	Secret     *string
	Notes      string
}

// UpdateRecordInput contains the parameters for updating a credential record.
// Secret is tri-state: nil preserves the stored secret, an empty string
// clears it, and any other value replaces it.
type UpdateRecordInput struct {
	Name     string
	URL      string
	Username string
	Secret   *string
	Notes    string
}

// RecordUseCase manages credential records on behalf of an authenticated user.
type RecordUseCase interface {
	Create(ctx context.Context, user *identityDomain.User, input *CreateRecordInput) (*vaultDomain.Record, error)
	// Get retrieves record metadata within the user's visible scope. The
	// returned record carries no secret material.
	Get(ctx context.Context, user *identityDomain.User, recordID uuid.UUID) (*vaultDomain.Record, error)
	List(ctx context.Context, user *identityDomain.User, offset, limit int) ([]*vaultDomain.Record, error)
	Update(ctx context.Context, user *identityDomain.User, recordID uuid.UUID, input *UpdateRecordInput) (*vaultDomain.Record, error)
	Delete(ctx context.Context, user *identityDomain.User, recordID uuid.UUID) error
	// Reveal decrypts the record's secret for an authorized caller. This is
	// the only path that returns plaintext.
	//
	// Security Note: the returned Record holds the plaintext in PlainSecret.
	// Callers MUST zero it after use by calling cryptoDomain.Zero(record.PlainSecret).
	Reveal(ctx context.Context, user *identityDomain.User, recordID uuid.UUID) (*vaultDomain.Record, error)
}

// CreateAssignmentInput contains the parameters for granting a service assignment.
type CreateAssignmentInput struct {
	UserID   uuid.UUID
	RecordID uuid.UUID
}

// AssignmentUseCase manages service assignments. All operations require
// admin or above; the HTTP layer enforces the role.
type AssignmentUseCase interface {
	Create(ctx context.Context, grantedBy *identityDomain.User, input *CreateAssignmentInput) (*vaultDomain.Assignment, error)
	Delete(ctx context.Context, id uuid.UUID) error
	ListByRecord(ctx context.Context, recordID uuid.UUID) ([]*vaultDomain.Assignment, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*vaultDomain.Assignment, error)
}
