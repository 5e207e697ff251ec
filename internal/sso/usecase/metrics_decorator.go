package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	identityDomain "github.com/allisson/vaultadmin/internal/identity/domain"
	"github.com/allisson/vaultadmin/internal/metrics"
	ssoDomain "github.com/allisson/vaultadmin/internal/sso/domain"
)

// brokerUseCaseWithMetrics decorates BrokerUseCase with metrics instrumentation.
type brokerUseCaseWithMetrics struct {
	next    BrokerUseCase
	metrics metrics.BusinessMetrics
}

// NewBrokerUseCaseWithMetrics wraps a BrokerUseCase with metrics recording.
func NewBrokerUseCaseWithMetrics(useCase BrokerUseCase, m metrics.BusinessMetrics) BrokerUseCase {
	return &brokerUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (b *brokerUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	b.metrics.RecordOperation(ctx, "sso", operation, status)
	b.metrics.RecordDuration(ctx, "sso", operation, time.Since(start), status)
}

// Issue records metrics for token issuance.
func (b *brokerUseCaseWithMetrics) Issue(
	ctx context.Context,
	session *identityDomain.Session,
	user *identityDomain.User,
	recordID uuid.UUID,
) (*IssueOutput, error) {
	start := time.Now()
	output, err := b.next.Issue(ctx, session, user, recordID)
	b.record(ctx, "sso_issue", start, err)
	return output, err
}

// Redeem records metrics for token consumption.
func (b *brokerUseCaseWithMetrics) Redeem(
	ctx context.Context,
	sessionID uuid.UUID,
	value string,
) (*ssoDomain.Token, error) {
	start := time.Now()
	token, err := b.next.Redeem(ctx, sessionID, value)
	b.record(ctx, "sso_redeem", start, err)
	return token, err
}

// Proxy records metrics for the upstream handshake.
func (b *brokerUseCaseWithMetrics) Proxy(
	ctx context.Context,
	sessionID uuid.UUID,
	value string,
) (string, error) {
	start := time.Now()
	redirect, err := b.next.Proxy(ctx, sessionID, value)
	b.record(ctx, "sso_proxy", start, err)
	return redirect, err
}
