package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/vaultadmin/internal/audit/domain"
	auditService "github.com/allisson/vaultadmin/internal/audit/service"
	"github.com/allisson/vaultadmin/internal/database"
	apperrors "github.com/allisson/vaultadmin/internal/errors"
)

// verifyPageSize is the batch size used when walking the chain.
const verifyPageSize = 500

// auditLogUseCase implements the AuditLogUseCase interface.
type auditLogUseCase struct {
	txManager    database.TxManager
	auditLogRepo AuditLogRepository
	signer       *auditService.ChainSigner
}

// Record appends a signed entry to the audit chain. The chain head lock is
// taken first, then the previous entry is read and the new one written, all
// inside a single transaction, so concurrent writers serialize and cannot
// fork the chain by reading the same head.
func (a *auditLogUseCase) Record(
	ctx context.Context,
	requestID, actorID uuid.UUID,
	action auditDomain.Action,
	targetID string,
	metadata map[string]any,
) error {
	entry := &auditDomain.AuditLog{
		ID:        uuid.Must(uuid.NewV7()),
		RequestID: requestID,
		ActorID:   actorID,
		Action:    action,
		TargetID:  targetID,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}

	err := a.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := a.auditLogRepo.LockChainHead(txCtx); err != nil {
			return err
		}

		var prevSignature []byte
		last, err := a.auditLogRepo.GetLast(txCtx)
		if err != nil && !apperrors.Is(err, apperrors.ErrNotFound) {
			return err
		}
		if last != nil {
			prevSignature = last.Signature
		}

		if err := a.signer.Sign(entry, prevSignature); err != nil {
			return err
		}

		return a.auditLogRepo.Create(txCtx, entry)
	})
	if err != nil {
		return apperrors.Wrap(err, "failed to record audit log")
	}
	return nil
}

// List retrieves entries newest first.
func (a *auditLogUseCase) List(
	ctx context.Context,
	offset, limit int,
	createdAtFrom, createdAtTo *time.Time,
) ([]*auditDomain.AuditLog, error) {
	entries, err := a.auditLogRepo.List(ctx, offset, limit, createdAtFrom, createdAtTo)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list audit logs")
	}
	return entries, nil
}

// CleanOlderThan deletes entries older than the retention period.
func (a *auditLogUseCase) CleanOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)
	deleted, err := a.auditLogRepo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to clean audit logs")
	}
	return deleted, nil
}

// Verify walks the whole chain in signing order. The first entry's stored
// PrevSignature is taken as the seed: retention cleanup removes entries from
// the head, so linkage before the first surviving entry cannot be checked.
func (a *auditLogUseCase) Verify(ctx context.Context) (int64, error) {
	var checked int64
	var prevSignature []byte
	first := true

	for offset := 0; ; offset += verifyPageSize {
		entries, err := a.auditLogRepo.ListAsc(ctx, offset, verifyPageSize)
		if err != nil {
			return checked, apperrors.Wrap(err, "failed to walk audit chain")
		}
		if len(entries) == 0 {
			return checked, nil
		}

		for _, entry := range entries {
			if first {
				prevSignature = entry.PrevSignature
				first = false
			}
			if err := a.signer.Verify(entry, prevSignature); err != nil {
				return checked, apperrors.Wrap(err, "audit entry "+entry.ID.String())
			}
			prevSignature = entry.Signature
			checked++
		}

		if len(entries) < verifyPageSize {
			return checked, nil
		}
	}
}

// NewAuditLogUseCase creates a new AuditLogUseCase with the provided dependencies.
func NewAuditLogUseCase(
	txManager database.TxManager,
	auditLogRepo AuditLogRepository,
	signer *auditService.ChainSigner,
) AuditLogUseCase {
	return &auditLogUseCase{
		txManager:    txManager,
		auditLogRepo: auditLogRepo,
		signer:       signer,
	}
}
