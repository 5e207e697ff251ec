package usecase

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/allisson/vaultadmin/internal/errors"
	identityDomain "github.com/allisson/vaultadmin/internal/identity/domain"
	ssoDomain "github.com/allisson/vaultadmin/internal/sso/domain"
	ssoService "github.com/allisson/vaultadmin/internal/sso/service"
	vaultDomain "github.com/allisson/vaultadmin/internal/vault/domain"
	vaultUsecase "github.com/allisson/vaultadmin/internal/vault/usecase"
)

type mockTokenStore struct {
	mock.Mock
}

func (m *mockTokenStore) Put(ctx context.Context, token *ssoDomain.Token, ttl time.Duration) error {
	args := m.Called(ctx, token, ttl)
	return args.Error(0)
}

func (m *mockTokenStore) GetDelete(ctx context.Context, sessionID uuid.UUID, value string) (*ssoDomain.Token, error) {
	args := m.Called(ctx, sessionID, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ssoDomain.Token), args.Error(1)
}

func (m *mockTokenStore) IncrementFailures(ctx context.Context, sessionID uuid.UUID, window time.Duration) (int64, error) {
	args := m.Called(ctx, sessionID, window)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockTokenStore) ResetFailures(ctx context.Context, sessionID uuid.UUID) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *mockTokenStore) Lock(ctx context.Context, sessionID uuid.UUID, duration time.Duration) error {
	args := m.Called(ctx, sessionID, duration)
	return args.Error(0)
}

func (m *mockTokenStore) IsLocked(ctx context.Context, sessionID uuid.UUID) (bool, error) {
	args := m.Called(ctx, sessionID)
	return args.Bool(0), args.Error(1)
}

type mockRecordUseCase struct {
	mock.Mock
}

func (m *mockRecordUseCase) Create(ctx context.Context, user *identityDomain.User, input *vaultUsecase.CreateRecordInput) (*vaultDomain.Record, error) {
	args := m.Called(ctx, user, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vaultDomain.Record), args.Error(1)
}

func (m *mockRecordUseCase) Get(ctx context.Context, user *identityDomain.User, recordID uuid.UUID) (*vaultDomain.Record, error) {
	args := m.Called(ctx, user, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vaultDomain.Record), args.Error(1)
}

func (m *mockRecordUseCase) List(ctx context.Context, user *identityDomain.User, offset, limit int) ([]*vaultDomain.Record, error) {
	args := m.Called(ctx, user, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*vaultDomain.Record), args.Error(1)
}

func (m *mockRecordUseCase) Update(ctx context.Context, user *identityDomain.User, recordID uuid.UUID, input *vaultUsecase.UpdateRecordInput) (*vaultDomain.Record, error) {
	args := m.Called(ctx, user, recordID, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vaultDomain.Record), args.Error(1)
}

func (m *mockRecordUseCase) Delete(ctx context.Context, user *identityDomain.User, recordID uuid.UUID) error {
	args := m.Called(ctx, user, recordID)
	return args.Error(0)
}

func (m *mockRecordUseCase) Reveal(ctx context.Context, user *identityDomain.User, recordID uuid.UUID) (*vaultDomain.Record, error) {
	args := m.Called(ctx, user, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*vaultDomain.Record), args.Error(1)
}

type mockUpstreamClient struct {
	mock.Mock
}

func (m *mockUpstreamClient) Login(ctx context.Context, username, proof, siteName string) (string, error) {
	args := m.Called(ctx, username, proof, siteName)
	return args.String(0), args.Error(1)
}

func testBrokerConfig() BrokerConfig {
	return BrokerConfig{
		BrokerSecret:       "broker-secret",
		TokenTTL:           120 * time.Second,
		LockoutMaxAttempts: 5,
		LockoutDuration:    5 * time.Minute,
		RedirectURL:        "https://sso.example.com/landing",
	}
}

func testSessionAndUser() (*identityDomain.Session, *identityDomain.User) {
	user := &identityDomain.User{
		ID:   uuid.Must(uuid.NewV7()),
		Role: identityDomain.RoleUser,
	}
	session := &identityDomain.Session{
		ID:     uuid.Must(uuid.NewV7()),
		UserID: user.ID,
	}
	return session, user
}

func TestBrokerUseCase_Issue(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_Issue", func(t *testing.T) {
		tokenStore := &mockTokenStore{}
		recordUseCase := &mockRecordUseCase{}
		session, user := testSessionAndUser()

		recordID := uuid.Must(uuid.NewV7())
		record := &vaultDomain.Record{
			ID:          recordID,
			Name:        "github",
			Username:    "octocat",
			PlainSecret: []byte("s3cret"),
		}

		tokenStore.On("IsLocked", ctx, session.ID).Return(false, nil).Once()
		recordUseCase.On("Reveal", ctx, user, recordID).Return(record, nil).Once()

		var stored *ssoDomain.Token
		tokenStore.On("Put", ctx, mock.AnythingOfType("*domain.Token"), 120*time.Second+expiredTokenGrace).
			Run(func(args mock.Arguments) {
				stored = args.Get(1).(*ssoDomain.Token)
			}).
			Return(nil).Once()
		tokenStore.On("ResetFailures", ctx, session.ID).Return(nil).Once()

		useCase := NewBrokerUseCase(tokenStore, recordUseCase, &mockUpstreamClient{}, testBrokerConfig())
		output, err := useCase.Issue(ctx, session, user, recordID)

		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, stored.Value, output.Token)
		assert.Len(t, output.Token, 64)
		assert.Equal(t, session.ID, stored.SessionID)
		assert.Equal(t, "octocat", stored.Username)
		assert.Equal(t, "github", stored.SiteName)
		assert.Equal(t,
			ssoService.DeriveProof("broker-secret", []byte("s3cret"), stored.Value),
			stored.Proof)
		assert.WithinDuration(t, time.Now().UTC().Add(120*time.Second), stored.ExpiresAt, time.Minute)

		tokenStore.AssertExpectations(t)
		recordUseCase.AssertExpectations(t)
	})

	t.Run("Error_SessionLocked", func(t *testing.T) {
		tokenStore := &mockTokenStore{}
		recordUseCase := &mockRecordUseCase{}
		session, user := testSessionAndUser()

		tokenStore.On("IsLocked", ctx, session.ID).Return(true, nil).Once()

		useCase := NewBrokerUseCase(tokenStore, recordUseCase, &mockUpstreamClient{}, testBrokerConfig())
		output, err := useCase.Issue(ctx, session, user, uuid.Must(uuid.NewV7()))

		assert.ErrorIs(t, err, ssoDomain.ErrIssueLocked)
		assert.Nil(t, output)
		recordUseCase.AssertNotCalled(t, "Reveal")
	})

	t.Run("Error_RecordWithoutSecret", func(t *testing.T) {
		tokenStore := &mockTokenStore{}
		recordUseCase := &mockRecordUseCase{}
		session, user := testSessionAndUser()

		recordID := uuid.Must(uuid.NewV7())
		record := &vaultDomain.Record{ID: recordID, Name: "github"}

		tokenStore.On("IsLocked", ctx, session.ID).Return(false, nil).Once()
		recordUseCase.On("Reveal", ctx, user, recordID).Return(record, nil).Once()

		useCase := NewBrokerUseCase(tokenStore, recordUseCase, &mockUpstreamClient{}, testBrokerConfig())
		output, err := useCase.Issue(ctx, session, user, recordID)

		assert.ErrorIs(t, err, ssoDomain.ErrNoSecret)
		assert.Nil(t, output)
		tokenStore.AssertNotCalled(t, "Put")
	})

	t.Run("Error_RecordNotVisible", func(t *testing.T) {
		tokenStore := &mockTokenStore{}
		recordUseCase := &mockRecordUseCase{}
		session, user := testSessionAndUser()
		recordID := uuid.Must(uuid.NewV7())

		tokenStore.On("IsLocked", ctx, session.ID).Return(false, nil).Once()
		recordUseCase.On("Reveal", ctx, user, recordID).
			Return(nil, vaultDomain.ErrRecordNotFound).Once()

		useCase := NewBrokerUseCase(tokenStore, recordUseCase, &mockUpstreamClient{}, testBrokerConfig())
		_, err := useCase.Issue(ctx, session, user, recordID)

		assert.ErrorIs(t, err, vaultDomain.ErrRecordNotFound)
		tokenStore.AssertNotCalled(t, "IncrementFailures")
	})

	t.Run("Error_DecryptFailureBelowThreshold", func(t *testing.T) {
		tokenStore := &mockTokenStore{}
		recordUseCase := &mockRecordUseCase{}
		session, user := testSessionAndUser()
		recordID := uuid.Must(uuid.NewV7())

		tokenStore.On("IsLocked", ctx, session.ID).Return(false, nil).Once()
		recordUseCase.On("Reveal", ctx, user, recordID).
			Return(nil, vaultDomain.ErrSecretUnavailable).Once()
		tokenStore.On("IncrementFailures", ctx, session.ID, 5*time.Minute).
			Return(int64(2), nil).Once()

		useCase := NewBrokerUseCase(tokenStore, recordUseCase, &mockUpstreamClient{}, testBrokerConfig())
		_, err := useCase.Issue(ctx, session, user, recordID)

		assert.ErrorIs(t, err, vaultDomain.ErrSecretUnavailable)
		tokenStore.AssertNotCalled(t, "Lock")
		tokenStore.AssertExpectations(t)
	})

	t.Run("Error_DecryptFailureEngagesLockout", func(t *testing.T) {
		tokenStore := &mockTokenStore{}
		recordUseCase := &mockRecordUseCase{}
		session, user := testSessionAndUser()
		recordID := uuid.Must(uuid.NewV7())

		tokenStore.On("IsLocked", ctx, session.ID).Return(false, nil).Once()
		recordUseCase.On("Reveal", ctx, user, recordID).
			Return(nil, vaultDomain.ErrSecretUnavailable).Once()
		tokenStore.On("IncrementFailures", ctx, session.ID, 5*time.Minute).
			Return(int64(5), nil).Once()
		tokenStore.On("Lock", ctx, session.ID, 5*time.Minute).Return(nil).Once()

		useCase := NewBrokerUseCase(tokenStore, recordUseCase, &mockUpstreamClient{}, testBrokerConfig())
		_, err := useCase.Issue(ctx, session, user, recordID)

		assert.ErrorIs(t, err, vaultDomain.ErrSecretUnavailable)
		tokenStore.AssertExpectations(t)
	})
}

func TestBrokerUseCase_Redeem(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_Redeem", func(t *testing.T) {
		tokenStore := &mockTokenStore{}
		sessionID := uuid.Must(uuid.NewV7())

		token := &ssoDomain.Token{
			Value:     "token-value",
			SessionID: sessionID,
			ExpiresAt: time.Now().UTC().Add(time.Minute),
		}
		tokenStore.On("GetDelete", ctx, sessionID, "token-value").Return(token, nil).Once()

		useCase := NewBrokerUseCase(tokenStore, &mockRecordUseCase{}, &mockUpstreamClient{}, testBrokerConfig())
		got, err := useCase.Redeem(ctx, sessionID, "token-value")

		require.NoError(t, err)
		assert.Equal(t, token, got)
		tokenStore.AssertExpectations(t)
	})

	t.Run("Error_UnknownOrConsumedToken", func(t *testing.T) {
		tokenStore := &mockTokenStore{}
		sessionID := uuid.Must(uuid.NewV7())

		tokenStore.On("GetDelete", ctx, sessionID, "token-value").
			Return(nil, apperrors.ErrNotFound).Once()

		useCase := NewBrokerUseCase(tokenStore, &mockRecordUseCase{}, &mockUpstreamClient{}, testBrokerConfig())
		got, err := useCase.Redeem(ctx, sessionID, "token-value")

		assert.ErrorIs(t, err, ssoDomain.ErrTokenDenied)
		assert.Nil(t, got)
	})

	t.Run("Error_ExpiredToken", func(t *testing.T) {
		tokenStore := &mockTokenStore{}
		sessionID := uuid.Must(uuid.NewV7())

		token := &ssoDomain.Token{
			Value:     "token-value",
			SessionID: sessionID,
			ExpiresAt: time.Now().UTC().Add(-time.Minute),
		}
		tokenStore.On("GetDelete", ctx, sessionID, "token-value").Return(token, nil).Once()

		useCase := NewBrokerUseCase(tokenStore, &mockRecordUseCase{}, &mockUpstreamClient{}, testBrokerConfig())
		got, err := useCase.Redeem(ctx, sessionID, "token-value")

		assert.ErrorIs(t, err, ssoDomain.ErrTokenExpired)
		assert.Nil(t, got)
	})
}

func TestBrokerUseCase_Proxy(t *testing.T) {
	ctx := context.Background()

	validToken := func(sessionID uuid.UUID) *ssoDomain.Token {
		return &ssoDomain.Token{
			Value:     "token-value",
			SessionID: sessionID,
			Username:  "octocat",
			Proof:     "proof-hex",
			SiteName:  "github",
			ExpiresAt: time.Now().UTC().Add(time.Minute),
		}
	}

	t.Run("Success_Proxy", func(t *testing.T) {
		tokenStore := &mockTokenStore{}
		upstream := &mockUpstreamClient{}
		sessionID := uuid.Must(uuid.NewV7())

		tokenStore.On("GetDelete", ctx, sessionID, "token-value").
			Return(validToken(sessionID), nil).Once()
		upstream.On("Login", ctx, "octocat", "proof-hex", "github").
			Return("granted-token", nil).Once()

		useCase := NewBrokerUseCase(tokenStore, &mockRecordUseCase{}, upstream, testBrokerConfig())
		redirect, err := useCase.Proxy(ctx, sessionID, "token-value")

		require.NoError(t, err)
		parsed, err := url.Parse(redirect)
		require.NoError(t, err)
		assert.Equal(t, "sso.example.com", parsed.Host)
		assert.Equal(t, "granted-token", parsed.Query().Get("access_token"))

		tokenStore.AssertExpectations(t)
		upstream.AssertExpectations(t)
	})

	t.Run("Error_UpstreamUnavailableConsumesToken", func(t *testing.T) {
		tokenStore := &mockTokenStore{}
		upstream := &mockUpstreamClient{}
		sessionID := uuid.Must(uuid.NewV7())

		tokenStore.On("GetDelete", ctx, sessionID, "token-value").
			Return(validToken(sessionID), nil).Once()
		upstream.On("Login", ctx, "octocat", "proof-hex", "github").
			Return("", ssoDomain.ErrUpstreamUnavailable).Once()

		useCase := NewBrokerUseCase(tokenStore, &mockRecordUseCase{}, upstream, testBrokerConfig())
		redirect, err := useCase.Proxy(ctx, sessionID, "token-value")

		assert.ErrorIs(t, err, ssoDomain.ErrUpstreamUnavailable)
		assert.Empty(t, redirect)
		tokenStore.AssertExpectations(t)
	})

	t.Run("Error_RedeemFailureSkipsUpstream", func(t *testing.T) {
		tokenStore := &mockTokenStore{}
		upstream := &mockUpstreamClient{}
		sessionID := uuid.Must(uuid.NewV7())

		tokenStore.On("GetDelete", ctx, sessionID, "token-value").
			Return(nil, apperrors.ErrNotFound).Once()

		useCase := NewBrokerUseCase(tokenStore, &mockRecordUseCase{}, upstream, testBrokerConfig())
		_, err := useCase.Proxy(ctx, sessionID, "token-value")

		assert.ErrorIs(t, err, ssoDomain.ErrTokenDenied)
		upstream.AssertNotCalled(t, "Login")
	})
}
