package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	identityDomain "github.com/allisson/vaultadmin/internal/identity/domain"
	"github.com/allisson/vaultadmin/internal/metrics"
	vaultDomain "github.com/allisson/vaultadmin/internal/vault/domain"
)

// recordUseCaseWithMetrics decorates RecordUseCase with metrics instrumentation.
type recordUseCaseWithMetrics struct {
	next    RecordUseCase
	metrics metrics.BusinessMetrics
}

// NewRecordUseCaseWithMetrics wraps a RecordUseCase with metrics recording.
func NewRecordUseCaseWithMetrics(useCase RecordUseCase, m metrics.BusinessMetrics) RecordUseCase {
	return &recordUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (r *recordUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	r.metrics.RecordOperation(ctx, "vault", operation, status)
	r.metrics.RecordDuration(ctx, "vault", operation, time.Since(start), status)
}

// Create records metrics for record creation.
func (r *recordUseCaseWithMetrics) Create(
	ctx context.Context,
	user *identityDomain.User,
	input *CreateRecordInput,
) (*vaultDomain.Record, error) {
	start := time.Now()
	record, err := r.next.Create(ctx, user, input)
	r.record(ctx, "record_create", start, err)
	return record, err
}

// Get records metrics for record retrieval.
func (r *recordUseCaseWithMetrics) Get(
	ctx context.Context,
	user *identityDomain.User,
	recordID uuid.UUID,
) (*vaultDomain.Record, error) {
	start := time.Now()
	record, err := r.next.Get(ctx, user, recordID)
	r.record(ctx, "record_get", start, err)
	return record, err
}

// List records metrics for record listing.
func (r *recordUseCaseWithMetrics) List(
	ctx context.Context,
	user *identityDomain.User,
	offset, limit int,
) ([]*vaultDomain.Record, error) {
	start := time.Now()
	records, err := r.next.List(ctx, user, offset, limit)
	r.record(ctx, "record_list", start, err)
	return records, err
}

// Update records metrics for record updates.
func (r *recordUseCaseWithMetrics) Update(
	ctx context.Context,
	user *identityDomain.User,
	recordID uuid.UUID,
	input *UpdateRecordInput,
) (*vaultDomain.Record, error) {
	start := time.Now()
	record, err := r.next.Update(ctx, user, recordID, input)
	r.record(ctx, "record_update", start, err)
	return record, err
}

// Delete records metrics for record deletion.
func (r *recordUseCaseWithMetrics) Delete(
	ctx context.Context,
	user *identityDomain.User,
	recordID uuid.UUID,
) error {
	start := time.Now()
	err := r.next.Delete(ctx, user, recordID)
	r.record(ctx, "record_delete", start, err)
	return err
}

// Reveal records metrics for secret reveals.
func (r *recordUseCaseWithMetrics) Reveal(
	ctx context.Context,
	user *identityDomain.User,
	recordID uuid.UUID,
) (*vaultDomain.Record, error) {
	start := time.Now()
	record, err := r.next.Reveal(ctx, user, recordID)
	r.record(ctx, "record_reveal", start, err)
	return record, err
}
