package usecase

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/url"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/vaultadmin/internal/crypto/domain"
	apperrors "github.com/allisson/vaultadmin/internal/errors"
	identityDomain "github.com/allisson/vaultadmin/internal/identity/domain"
	ssoDomain "github.com/allisson/vaultadmin/internal/sso/domain"
	ssoService "github.com/allisson/vaultadmin/internal/sso/service"
	vaultDomain "github.com/allisson/vaultadmin/internal/vault/domain"
	vaultUsecase "github.com/allisson/vaultadmin/internal/vault/usecase"
)

// tokenBytes is the SSO token entropy: 256 bits, hex-encoded.
const tokenBytes = 32

// expiredTokenGrace keeps a token in the store past its expiry so a late
// redeem is reported as expired rather than unknown.
const expiredTokenGrace = 30 * time.Second

// BrokerConfig carries the broker's tunables.
type BrokerConfig struct {
	BrokerSecret       string
	TokenTTL           time.Duration
	LockoutMaxAttempts int
	LockoutDuration    time.Duration
	// RedirectURL is the external system URL the browser lands on after a
	// successful handshake.
	RedirectURL string
}

// brokerUseCase implements the BrokerUseCase interface.
type brokerUseCase struct {
	tokenStore    TokenStore
	recordUseCase vaultUsecase.RecordUseCase
	upstream      ssoService.UpstreamClient
	config        BrokerConfig
}

// Issue mints a single-use SSO token. The flow is: lockout check, scoped
// reveal of the record's secret, proof derivation, store with TTL. The raw
// secret is zeroed before Issue returns; only the derived proof survives.
func (b *brokerUseCase) Issue(
	ctx context.Context,
	session *identityDomain.Session,
	user *identityDomain.User,
	recordID uuid.UUID,
) (*IssueOutput, error) {
	locked, err := b.tokenStore.IsLocked(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	if locked {
		return nil, ssoDomain.ErrIssueLocked
	}

	record, err := b.recordUseCase.Reveal(ctx, user, recordID)
	if err != nil {
		if apperrors.Is(err, vaultDomain.ErrSecretUnavailable) {
			b.registerFailure(ctx, session.ID)
		}
		return nil, err
	}
	defer cryptoDomain.Zero(record.PlainSecret)

	if len(record.PlainSecret) == 0 {
		return nil, ssoDomain.ErrNoSecret
	}

	value, err := generateTokenValue()
	if err != nil {
		return nil, err
	}

	token := &ssoDomain.Token{
		Value:     value,
		SessionID: session.ID,
		Username:  record.Username,
		Proof:     ssoService.DeriveProof(b.config.BrokerSecret, record.PlainSecret, value),
		SiteName:  record.Name,
		ExpiresAt: time.Now().UTC().Add(b.config.TokenTTL),
	}

	if err := b.tokenStore.Put(ctx, token, b.config.TokenTTL+expiredTokenGrace); err != nil {
		return nil, err
	}

	if err := b.tokenStore.ResetFailures(ctx, session.ID); err != nil {
		slog.WarnContext(ctx, "failed to reset sso failure counter", "error", err)
	}

	return &IssueOutput{Token: token.Value, ExpiresAt: token.ExpiresAt}, nil
}

// Redeem consumes a token exactly once. Consumption happens before the
// expiry check, so an expired token is also gone after the attempt.
func (b *brokerUseCase) Redeem(
	ctx context.Context,
	sessionID uuid.UUID,
	value string,
) (*ssoDomain.Token, error) {
	token, err := b.tokenStore.GetDelete(ctx, sessionID, value)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, ssoDomain.ErrTokenDenied
		}
		return nil, err
	}

	if token.Expired(time.Now().UTC()) {
		return nil, ssoDomain.ErrTokenExpired
	}

	return token, nil
}

// Proxy redeems a token and performs the upstream handshake. An upstream
// failure leaves the token consumed: the user restarts the flow from Issue.
func (b *brokerUseCase) Proxy(
	ctx context.Context,
	sessionID uuid.UUID,
	value string,
) (string, error) {
	token, err := b.Redeem(ctx, sessionID, value)
	if err != nil {
		return "", err
	}

	accessToken, err := b.upstream.Login(ctx, token.Username, token.Proof, token.SiteName)
	if err != nil {
		return "", err
	}

	redirect, err := url.Parse(b.config.RedirectURL)
	if err != nil {
		return "", apperrors.Wrap(err, "invalid sso redirect url")
	}
	query := redirect.Query()
	query.Set("access_token", accessToken)
	redirect.RawQuery = query.Encode()

	return redirect.String(), nil
}

// registerFailure bumps the session's decrypt failure counter and engages
// the lockout once the threshold is crossed.
func (b *brokerUseCase) registerFailure(ctx context.Context, sessionID uuid.UUID) {
	count, err := b.tokenStore.IncrementFailures(ctx, sessionID, b.config.LockoutDuration)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count sso decrypt failure", "error", err)
		return
	}
	if count >= int64(b.config.LockoutMaxAttempts) {
		if err := b.tokenStore.Lock(ctx, sessionID, b.config.LockoutDuration); err != nil {
			slog.ErrorContext(ctx, "failed to lock sso issuance", "error", err)
		}
	}
}

func generateTokenValue() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", apperrors.Wrap(err, "failed to generate sso token")
	}
	return hex.EncodeToString(buf), nil
}

// NewBrokerUseCase creates a new BrokerUseCase with the provided dependencies.
func NewBrokerUseCase(
	tokenStore TokenStore,
	recordUseCase vaultUsecase.RecordUseCase,
	upstream ssoService.UpstreamClient,
	config BrokerConfig,
) BrokerUseCase {
	return &brokerUseCase{
		tokenStore:    tokenStore,
		recordUseCase: recordUseCase,
		upstream:      upstream,
		config:        config,
	}
}
