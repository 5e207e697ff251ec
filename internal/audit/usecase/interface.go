// Package usecase implements business logic orchestration for the audit log:
// chain-signed recording, listing, retention cleanup, and verification.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	auditDomain "github.com/allisson/vaultadmin/internal/audit/domain"
)

// AuditLogRepository defines persistence operations for audit log entries.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *auditDomain.AuditLog) error
	// LockChainHead serializes appends to the chain. It must be called inside
	// a transaction; the lock is held until the transaction ends.
	LockChainHead(ctx context.Context) error
	GetLast(ctx context.Context) (*auditDomain.AuditLog, error)
	List(ctx context.Context, offset, limit int, createdAtFrom, createdAtTo *time.Time) ([]*auditDomain.AuditLog, error)
	ListAsc(ctx context.Context, offset, limit int) ([]*auditDomain.AuditLog, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditLogUseCase manages the chain-signed audit log.
type AuditLogUseCase interface {
	// Record appends a signed entry to the audit chain. The metadata
	// parameter is optional and can be nil.
	Record(ctx context.Context, requestID, actorID uuid.UUID, action auditDomain.Action, targetID string, metadata map[string]any) error
	// List retrieves entries newest first with optional inclusive time-range
	// filters (nil means no bound).
	List(ctx context.Context, offset, limit int, createdAtFrom, createdAtTo *time.Time) ([]*auditDomain.AuditLog, error)
	// CleanOlderThan deletes entries older than the retention period and
	// returns the number deleted. Deleting from the head of the chain keeps
	// the remainder verifiable from the first surviving entry.
	CleanOlderThan(ctx context.Context, retention time.Duration) (int64, error)
	// Verify walks the whole chain in signing order and returns the number
	// of entries checked. A tampered or truncated chain yields
	// ErrChainBroken.
	Verify(ctx context.Context) (int64, error)
}
