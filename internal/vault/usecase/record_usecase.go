package usecase

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/vaultadmin/internal/crypto/domain"
	cryptoService "github.com/allisson/vaultadmin/internal/crypto/service"
	apperrors "github.com/allisson/vaultadmin/internal/errors"
	identityDomain "github.com/allisson/vaultadmin/internal/identity/domain"
	vaultDomain "github.com/allisson/vaultadmin/internal/vault/domain"
)

// recordUseCase implements the RecordUseCase interface.
type recordUseCase struct {
	recordRepo     RecordRepository
	assignmentRepo AssignmentRepository
	cipher         cryptoService.Cipher
}

// Create validates input, encrypts the secret when present, and persists a
// new record. Private records are owned by the creator; shared records have
// no owner and require admin or above.
func (r *recordUseCase) Create(
	ctx context.Context,
	user *identityDomain.User,
	input *CreateRecordInput,
) (*vaultDomain.Record, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "name cannot be empty")
	}
	if !input.Visibility.Valid() {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "unknown visibility")
	}
	if input.Visibility == vaultDomain.VisibilityShared && !user.Role.AtLeast(identityDomain.RoleAdmin) {
		return nil, apperrors.Wrap(apperrors.ErrForbidden, "shared records require admin role")
	}

	now := time.Now().UTC()
	record := &vaultDomain.Record{
		ID:         uuid.Must(uuid.NewV7()),
		CreatedBy:  user.ID,
		Visibility: input.Visibility,
		Name:       name,
		URL:        input.URL,
		Username:   input.Username,
		Notes:      input.Notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if input.Visibility == vaultDomain.VisibilityPrivate {
		ownerID := user.ID
		record.OwnerID = &ownerID
	}

	if input.Secret != nil && *input.Secret != "" {
		secret, err := r.cipher.Encrypt([]byte(*input.Secret))
		if err != nil {
			return nil, err
		}
		record.Secret = secret
	}

	if err := r.recordRepo.Create(ctx, record); err != nil {
		return nil, err
	}

	return record, nil
}

// Get retrieves record metadata within the user's visible scope. The record
// carries its ciphertext so callers can report whether a secret is stored;
// plaintext only ever travels through Reveal.
func (r *recordUseCase) Get(
	ctx context.Context,
	user *identityDomain.User,
	recordID uuid.UUID,
) (*vaultDomain.Record, error) {
	scope := vaultDomain.ScopeFor(user.Role, user.ID)
	return r.recordRepo.Get(ctx, recordID, scope)
}

// List retrieves records within the user's visible scope.
func (r *recordUseCase) List(
	ctx context.Context,
	user *identityDomain.User,
	offset, limit int,
) ([]*vaultDomain.Record, error) {
	scope := vaultDomain.ScopeFor(user.Role, user.ID)
	return r.recordRepo.List(ctx, scope, offset, limit)
}

// Update applies field changes within the user's modify scope. The secret is
// tri-state: nil preserves the stored ciphertext, an empty string clears it,
// any other value is encrypted fresh. The ownership predicate rides in the
// UPDATE's WHERE clause, so a record that is not the caller's to change
// reports ErrRecordNotFound.
func (r *recordUseCase) Update(
	ctx context.Context,
	user *identityDomain.User,
	recordID uuid.UUID,
	input *UpdateRecordInput,
) (*vaultDomain.Record, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, "name cannot be empty")
	}

	scope := vaultDomain.ScopeFor(user.Role, user.ID)
	record, err := r.recordRepo.Get(ctx, recordID, scope)
	if err != nil {
		return nil, err
	}

	record.Name = name
	record.URL = input.URL
	record.Username = input.Username
	record.Notes = input.Notes
	record.UpdatedAt = time.Now().UTC()

	switch {
	case input.Secret == nil:
		// keep the stored ciphertext
	case *input.Secret == "":
		record.Secret = cryptoDomain.CipherText{}
	default:
		secret, err := r.cipher.Encrypt([]byte(*input.Secret))
		if err != nil {
			return nil, err
		}
		record.Secret = secret
	}

	modify := vaultDomain.ModifyScopeFor(user.Role, user.ID)
	if err := r.recordRepo.Update(ctx, record, modify); err != nil {
		return nil, err
	}

	return record, nil
}

// Delete removes a record within the user's modify scope.
func (r *recordUseCase) Delete(
	ctx context.Context,
	user *identityDomain.User,
	recordID uuid.UUID,
) error {
	modify := vaultDomain.ModifyScopeFor(user.Role, user.ID)
	return r.recordRepo.Delete(ctx, recordID, modify)
}

// Reveal decrypts the record's secret for an authorized caller. Authorization
// failures are reported as ErrRecordNotFound so callers cannot confirm a
// record's existence. Decryption failures are logged with the record id and
// reported to the client as the uniform ErrSecretUnavailable.
func (r *recordUseCase) Reveal(
	ctx context.Context,
	user *identityDomain.User,
	recordID uuid.UUID,
) (*vaultDomain.Record, error) {
	scope := vaultDomain.ScopeFor(user.Role, user.ID)
	record, err := r.recordRepo.Get(ctx, recordID, scope)
	if err != nil {
		return nil, err
	}

	assigned := false
	if record.Visibility == vaultDomain.VisibilityShared && !user.Role.AtLeast(identityDomain.RoleAdmin) {
		assigned, err = r.assignmentRepo.Exists(ctx, user.ID, record.ID)
		if err != nil {
			return nil, err
		}
	}

	if !vaultDomain.CanReveal(user.Role, user.ID, record, assigned) {
		return nil, vaultDomain.ErrRecordNotFound
	}

	if record.HasSecret() {
		plaintext, err := r.cipher.Decrypt(record.Secret)
		if err != nil {
			slog.ErrorContext(ctx, "failed to decrypt record secret",
				"record_id", record.ID.String(),
				"error", err,
			)
			return nil, vaultDomain.ErrSecretUnavailable
		}
		record.PlainSecret = plaintext
	}

	record.Secret = cryptoDomain.CipherText{}
	return record, nil
}

// NewRecordUseCase creates a new RecordUseCase with the provided dependencies.
func NewRecordUseCase(
	recordRepo RecordRepository,
	assignmentRepo AssignmentRepository,
	cipher cryptoService.Cipher,
) RecordUseCase {
	return &recordUseCase{
		recordRepo:     recordRepo,
		assignmentRepo: assignmentRepo,
		cipher:         cipher,
	}
}
