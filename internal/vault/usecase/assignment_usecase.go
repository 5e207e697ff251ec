package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	identityDomain "github.com/allisson/vaultadmin/internal/identity/domain"
	vaultDomain "github.com/allisson/vaultadmin/internal/vault/domain"
)

// assignmentUseCase implements the AssignmentUseCase interface.
type assignmentUseCase struct {
	assignmentRepo AssignmentRepository
	recordRepo     RecordRepository
	userRepo       UserRepository
}

// Create grants a user access to a shared record. Only shared records can be
// assigned; the target user must exist.
func (a *assignmentUseCase) Create(
	ctx context.Context,
	grantedBy *identityDomain.User,
	input *CreateAssignmentInput,
) (*vaultDomain.Assignment, error) {
	if _, err := a.userRepo.Get(ctx, input.UserID); err != nil {
		return nil, err
	}

	scope := vaultDomain.ScopeFor(grantedBy.Role, grantedBy.ID)
	record, err := a.recordRepo.Get(ctx, input.RecordID, scope)
	if err != nil {
		return nil, err
	}
	if record.Visibility != vaultDomain.VisibilityShared {
		return nil, vaultDomain.ErrNotAssignable
	}

	assignment := &vaultDomain.Assignment{
		ID:        uuid.Must(uuid.NewV7()),
		UserID:    input.UserID,
		RecordID:  input.RecordID,
		CreatedBy: grantedBy.ID,
		CreatedAt: time.Now().UTC(),
	}

	if err := a.assignmentRepo.Create(ctx, assignment); err != nil {
		return nil, err
	}

	return assignment, nil
}

// Delete revokes a service assignment.
func (a *assignmentUseCase) Delete(ctx context.Context, id uuid.UUID) error {
	return a.assignmentRepo.Delete(ctx, id)
}

// ListByRecord retrieves the assignments attached to a record.
func (a *assignmentUseCase) ListByRecord(
	ctx context.Context,
	recordID uuid.UUID,
) ([]*vaultDomain.Assignment, error) {
	return a.assignmentRepo.ListByRecord(ctx, recordID)
}

// ListByUser retrieves the assignments held by a user.
func (a *assignmentUseCase) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*vaultDomain.Assignment, error) {
	return a.assignmentRepo.ListByUser(ctx, userID)
}

// NewAssignmentUseCase creates a new AssignmentUseCase with the provided dependencies.
func NewAssignmentUseCase(
	assignmentRepo AssignmentRepository,
	recordRepo RecordRepository,
	userRepo UserRepository,
) AssignmentUseCase {
	return &assignmentUseCase{
		assignmentRepo: assignmentRepo,
		recordRepo:     recordRepo,
		userRepo:       userRepo,
	}
}
