package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	auditDomain "github.com/allisson/vaultadmin/internal/audit/domain"
	identityDomain "github.com/allisson/vaultadmin/internal/identity/domain"
	identityHTTP "github.com/allisson/vaultadmin/internal/identity/http"
	vaultDomain "github.com/allisson/vaultadmin/internal/vault/domain"
	vaultUseCase "github.com/allisson/vaultadmin/internal/vault/usecase"
)

type mockRecordUseCase struct {
	mock.Mock
}

func (m *mockRecordUseCase) Create(ctx context.Context, user *identityDomain.User, input *vaultUseCase.CreateRecordInput) (*vaultDomain.Record, error) {
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

func (m *mockRecordUseCase) Update(ctx context.Context, user *identityDomain.User, recordID uuid.UUID, input *vaultUseCase.UpdateRecordInput) (*vaultDomain.Record, error) {
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

type mockAuditLogUseCase struct {
	mock.Mock
}

func (m *mockAuditLogUseCase) Record(ctx context.Context, requestID, actorID uuid.UUID, action auditDomain.Action, targetID string, metadata map[string]any) error {
	args := m.Called(ctx, requestID, actorID, action, targetID, metadata)
	return args.Error(0)
}

func (m *mockAuditLogUseCase) List(ctx context.Context, offset, limit int, createdAtFrom, createdAtTo *time.Time) ([]*auditDomain.AuditLog, error) {
	args := m.Called(ctx, offset, limit, createdAtFrom, createdAtTo)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*auditDomain.AuditLog), args.Error(1)
}

func (m *mockAuditLogUseCase) CleanOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	args := m.Called(ctx, retention)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockAuditLogUseCase) Verify(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func setupRecordHandler(t *testing.T) (*RecordHandler, *mockRecordUseCase, *mockAuditLogUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	recordUseCase := &mockRecordUseCase{}
	auditLog := &mockAuditLogUseCase{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewRecordHandler(recordUseCase, auditLog, logger), recordUseCase, auditLog
}

func createTestContext(t *testing.T, method, url string, body any) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	c.Request = httptest.NewRequest(method, url, reader)
	c.Request.Header.Set("Content-Type", "application/json")

	return c, w
}

func authenticate(c *gin.Context, user *identityDomain.User) {
	ctx := identityHTTP.WithIdentity(c.Request.Context(), &identityHTTP.Identity{User: user})
	c.Request = c.Request.WithContext(ctx)
}

func testUser(role identityDomain.Role) *identityDomain.User {
	return &identityDomain.User{
		ID:    uuid.Must(uuid.NewV7()),
		Email: string(role) + "@example.com",
		Role:  role,
	}
}

func testRecord(owner *identityDomain.User) *vaultDomain.Record {
	now := time.Now().UTC()
	return &vaultDomain.Record{
		ID:         uuid.Must(uuid.NewV7()),
		OwnerID:    &owner.ID,
		CreatedBy:  owner.ID,
		Visibility: vaultDomain.VisibilityPrivate,
		Name:       "GitHub",
		URL:        "https://github.com",
		Username:   "octocat",
		Notes:      "team account",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

func TestRecordHandler_CreateRecordHandler(t *testing.T) {
	t.Run("Success_ValidRequest", func(t *testing.T) {
		handler, recordUseCase, auditLog := setupRecordHandler(t)

		user := testUser(identityDomain.RoleUser)
		record := testRecord(user)

		secret := "hunter2"
		recordUseCase.On("Create", mock.Anything, user, &vaultUseCase.CreateRecordInput{
			Visibility: vaultDomain.VisibilityPrivate,
			Name:       "GitHub",
			URL:        "https://github.com",
			Username:   "octocat",
			Secret:     &secret,
			Notes:      "team account",
		}).Return(record, nil).Once()
		auditLog.On(
			"Record", mock.Anything, uuid.Nil, user.ID,
			auditDomain.ActionRecordCreate, record.ID.String(), map[string]any(nil),
		).Return(nil).Once()

		c, w := createTestContext(t, http.MethodPost, "/v1/records", CreateRecordRequest{
			Visibility: "private",
			Name:       "GitHub",
			URL:        "https://github.com",
			Username:   "octocat",
			Secret:     &secret,
			Notes:      "team account",
		})
		authenticate(c, user)

		handler.CreateRecordHandler(c)

		assert.Equal(t, http.StatusCreated, w.Code)

		var response RecordResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, record.ID.String(), response.ID)
		assert.Equal(t, "GitHub", response.Name)
		assert.NotContains(t, w.Body.String(), "hunter2")

		recordUseCase.AssertExpectations(t)
		auditLog.AssertExpectations(t)
	})

	t.Run("Success_AuditFailureDoesNotBlockResponse", func(t *testing.T) {
		handler, recordUseCase, auditLog := setupRecordHandler(t)

		user := testUser(identityDomain.RoleUser)
		record := testRecord(user)

		recordUseCase.On("Create", mock.Anything, user, mock.Anything).Return(record, nil).Once()
		auditLog.On(
			"Record", mock.Anything, uuid.Nil, user.ID,
			auditDomain.ActionRecordCreate, record.ID.String(), map[string]any(nil),
		).Return(assert.AnError).Once()

		c, w := createTestContext(t, http.MethodPost, "/v1/records", CreateRecordRequest{
			Visibility: "private",
			Name:       "GitHub",
		})
		authenticate(c, user)

		handler.CreateRecordHandler(c)

		assert.Equal(t, http.StatusCreated, w.Code)
		auditLog.AssertExpectations(t)
	})

	t.Run("Error_NoIdentity", func(t *testing.T) {
		handler, recordUseCase, _ := setupRecordHandler(t)

		c, w := createTestContext(t, http.MethodPost, "/v1/records", CreateRecordRequest{
			Visibility: "private",
			Name:       "GitHub",
		})

		handler.CreateRecordHandler(c)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		recordUseCase.AssertNotCalled(t, "Create")
	})

	t.Run("Error_InvalidJSON", func(t *testing.T) {
		handler, recordUseCase, _ := setupRecordHandler(t)

		c, w := createTestContext(t, http.MethodPost, "/v1/records", nil)
		c.Request.Body = io.NopCloser(bytes.NewReader([]byte("invalid json")))
		authenticate(c, testUser(identityDomain.RoleUser))

		handler.CreateRecordHandler(c)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		recordUseCase.AssertNotCalled(t, "Create")
	})

	t.Run("Error_ValidationFailed_MissingName", func(t *testing.T) {
		handler, recordUseCase, _ := setupRecordHandler(t)

		c, w := createTestContext(t, http.MethodPost, "/v1/records", CreateRecordRequest{
			Visibility: "private",
		})
		authenticate(c, testUser(identityDomain.RoleUser))

		handler.CreateRecordHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		recordUseCase.AssertNotCalled(t, "Create")
	})

	t.Run("Error_ValidationFailed_BadVisibility", func(t *testing.T) {
		handler, recordUseCase, _ := setupRecordHandler(t)

		c, w := createTestContext(t, http.MethodPost, "/v1/records", CreateRecordRequest{
			Visibility: "public",
			Name:       "GitHub",
		})
		authenticate(c, testUser(identityDomain.RoleUser))

		handler.CreateRecordHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		recordUseCase.AssertNotCalled(t, "Create")
	})
}

func TestRecordHandler_ListRecordsHandler(t *testing.T) {
	t.Run("Success_DefaultPagination", func(t *testing.T) {
		handler, recordUseCase, _ := setupRecordHandler(t)

		user := testUser(identityDomain.RoleUser)
		records := []*vaultDomain.Record{testRecord(user), testRecord(user)}

		recordUseCase.On("List", mock.Anything, user, 0, 50).Return(records, nil).Once()

		c, w := createTestContext(t, http.MethodGet, "/v1/records", nil)
		authenticate(c, user)

		handler.ListRecordsHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response RecordListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Len(t, response.Records, 2)
		assert.Equal(t, 0, response.Offset)
		assert.Equal(t, 50, response.Limit)

		recordUseCase.AssertExpectations(t)
	})

	t.Run("Error_InvalidPagination", func(t *testing.T) {
		handler, recordUseCase, _ := setupRecordHandler(t)

		c, w := createTestContext(t, http.MethodGet, "/v1/records?limit=500", nil)
		authenticate(c, testUser(identityDomain.RoleUser))

		handler.ListRecordsHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		recordUseCase.AssertNotCalled(t, "List")
	})
}

func TestRecordHandler_GetRecordHandler(t *testing.T) {
	t.Run("Success_Found", func(t *testing.T) {
		handler, recordUseCase, _ := setupRecordHandler(t)

		user := testUser(identityDomain.RoleUser)
		record := testRecord(user)

		recordUseCase.On("Get", mock.Anything, user, record.ID).Return(record, nil).Once()

		c, w := createTestContext(t, http.MethodGet, "/v1/records/"+record.ID.String(), nil)
		c.Params = gin.Params{{Key: "id", Value: record.ID.String()}}
		authenticate(c, user)

		handler.GetRecordHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response RecordResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, record.ID.String(), response.ID)

		recordUseCase.AssertExpectations(t)
	})

	t.Run("Error_MalformedID", func(t *testing.T) {
		handler, recordUseCase, _ := setupRecordHandler(t)

		c, w := createTestContext(t, http.MethodGet, "/v1/records/not-a-uuid", nil)
		c.Params = gin.Params{{Key: "id", Value: "not-a-uuid"}}
		authenticate(c, testUser(identityDomain.RoleUser))

		handler.GetRecordHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		recordUseCase.AssertNotCalled(t, "Get")
	})

	t.Run("Error_OutOfScope", func(t *testing.T) {
		handler, recordUseCase, _ := setupRecordHandler(t)

		user := testUser(identityDomain.RoleUser)
		recordID := uuid.Must(uuid.NewV7())

		recordUseCase.On("Get", mock.Anything, user, recordID).
			Return(nil, vaultDomain.ErrRecordNotFound).Once()

		c, w := createTestContext(t, http.MethodGet, "/v1/records/"+recordID.String(), nil)
		c.Params = gin.Params{{Key: "id", Value: recordID.String()}}
		authenticate(c, user)

		handler.GetRecordHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		recordUseCase.AssertExpectations(t)
	})
}

func TestRecordHandler_UpdateRecordHandler(t *testing.T) {
	t.Run("Success_ValidRequest", func(t *testing.T) {
		handler, recordUseCase, auditLog := setupRecordHandler(t)

		user := testUser(identityDomain.RoleUser)
		record := testRecord(user)

		recordUseCase.On("Update", mock.Anything, user, record.ID, &vaultUseCase.UpdateRecordInput{
			Name:     "Renamed",
			URL:      "https://github.com",
			Username: "octocat",
		}).Return(record, nil).Once()
		auditLog.On(
			"Record", mock.Anything, uuid.Nil, user.ID,
			auditDomain.ActionRecordUpdate, record.ID.String(), map[string]any(nil),
		).Return(nil).Once()

		c, w := createTestContext(t, http.MethodPut, "/v1/records/"+record.ID.String(), UpdateRecordRequest{
			Name:     "Renamed",
			URL:      "https://github.com",
			Username: "octocat",
		})
		c.Params = gin.Params{{Key: "id", Value: record.ID.String()}}
		authenticate(c, user)

		handler.UpdateRecordHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		recordUseCase.AssertExpectations(t)
		auditLog.AssertExpectations(t)
	})

	t.Run("Error_NotOwned", func(t *testing.T) {
		handler, recordUseCase, auditLog := setupRecordHandler(t)

		user := testUser(identityDomain.RoleUser)
		recordID := uuid.Must(uuid.NewV7())

		recordUseCase.On("Update", mock.Anything, user, recordID, mock.Anything).
			Return(nil, vaultDomain.ErrRecordNotFound).Once()

		c, w := createTestContext(t, http.MethodPut, "/v1/records/"+recordID.String(), UpdateRecordRequest{
			Name: "Renamed",
		})
		c.Params = gin.Params{{Key: "id", Value: recordID.String()}}
		authenticate(c, user)

		handler.UpdateRecordHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		auditLog.AssertNotCalled(t, "Record")
	})
}

func TestRecordHandler_DeleteRecordHandler(t *testing.T) {
	t.Run("Success_Deleted", func(t *testing.T) {
		handler, recordUseCase, auditLog := setupRecordHandler(t)

		user := testUser(identityDomain.RoleUser)
		recordID := uuid.Must(uuid.NewV7())

		recordUseCase.On("Delete", mock.Anything, user, recordID).Return(nil).Once()
		auditLog.On(
			"Record", mock.Anything, uuid.Nil, user.ID,
			auditDomain.ActionRecordDelete, recordID.String(), map[string]any(nil),
		).Return(nil).Once()

		c, w := createTestContext(t, http.MethodDelete, "/v1/records/"+recordID.String(), nil)
		c.Params = gin.Params{{Key: "id", Value: recordID.String()}}
		authenticate(c, user)

		handler.DeleteRecordHandler(c)

		assert.Equal(t, http.StatusNoContent, w.Code)
		recordUseCase.AssertExpectations(t)
		auditLog.AssertExpectations(t)
	})

	t.Run("Error_NotOwned", func(t *testing.T) {
		handler, recordUseCase, auditLog := setupRecordHandler(t)

		user := testUser(identityDomain.RoleUser)
		recordID := uuid.Must(uuid.NewV7())

		recordUseCase.On("Delete", mock.Anything, user, recordID).
			Return(vaultDomain.ErrRecordNotFound).Once()

		c, w := createTestContext(t, http.MethodDelete, "/v1/records/"+recordID.String(), nil)
		c.Params = gin.Params{{Key: "id", Value: recordID.String()}}
		authenticate(c, user)

		handler.DeleteRecordHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		auditLog.AssertNotCalled(t, "Record")
	})
}

func TestRecordHandler_RevealRecordHandler(t *testing.T) {
	t.Run("Success_ReturnsPlaintextOnce", func(t *testing.T) {
		handler, recordUseCase, auditLog := setupRecordHandler(t)

		user := testUser(identityDomain.RoleUser)
		record := testRecord(user)
		record.PlainSecret = []byte("hunter2")

		recordUseCase.On("Reveal", mock.Anything, user, record.ID).Return(record, nil).Once()
		auditLog.On(
			"Record", mock.Anything, uuid.Nil, user.ID,
			auditDomain.ActionRecordReveal, record.ID.String(), map[string]any(nil),
		).Return(nil).Once()

		c, w := createTestContext(t, http.MethodPost, "/v1/records/"+record.ID.String()+"/reveal", nil)
		c.Params = gin.Params{{Key: "id", Value: record.ID.String()}}
		authenticate(c, user)

		handler.RevealRecordHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

		var response RevealResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, "hunter2", response.Password)

		// The in-memory plaintext is wiped once the response is written.
		assert.Equal(t, make([]byte, 7), record.PlainSecret)

		recordUseCase.AssertExpectations(t)
		auditLog.AssertExpectations(t)
	})

	t.Run("Error_AuditFailureWithholdsPlaintext", func(t *testing.T) {
		handler, recordUseCase, auditLog := setupRecordHandler(t)

		user := testUser(identityDomain.RoleUser)
		record := testRecord(user)
		record.PlainSecret = []byte("hunter2")

		recordUseCase.On("Reveal", mock.Anything, user, record.ID).Return(record, nil).Once()
		auditLog.On(
			"Record", mock.Anything, uuid.Nil, user.ID,
			auditDomain.ActionRecordReveal, record.ID.String(), map[string]any(nil),
		).Return(assert.AnError).Once()

		c, w := createTestContext(t, http.MethodPost, "/v1/records/"+record.ID.String()+"/reveal", nil)
		c.Params = gin.Params{{Key: "id", Value: record.ID.String()}}
		authenticate(c, user)

		handler.RevealRecordHandler(c)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.NotContains(t, w.Body.String(), "hunter2")
		auditLog.AssertExpectations(t)
	})

	t.Run("Error_OutOfScope", func(t *testing.T) {
		handler, recordUseCase, auditLog := setupRecordHandler(t)

		user := testUser(identityDomain.RoleUser)
		recordID := uuid.Must(uuid.NewV7())

		recordUseCase.On("Reveal", mock.Anything, user, recordID).
			Return(nil, vaultDomain.ErrRecordNotFound).Once()

		c, w := createTestContext(t, http.MethodPost, "/v1/records/"+recordID.String()+"/reveal", nil)
		c.Params = gin.Params{{Key: "id", Value: recordID.String()}}
		authenticate(c, user)

		handler.RevealRecordHandler(c)

		assert.Equal(t, http.StatusNotFound, w.Code)
		auditLog.AssertNotCalled(t, "Record")
	})

	t.Run("Error_SecretUnavailable", func(t *testing.T) {
		handler, recordUseCase, auditLog := setupRecordHandler(t)

		user := testUser(identityDomain.RoleUser)
		recordID := uuid.Must(uuid.NewV7())

		recordUseCase.On("Reveal", mock.Anything, user, recordID).
			Return(nil, vaultDomain.ErrSecretUnavailable).Once()

		c, w := createTestContext(t, http.MethodPost, "/v1/records/"+recordID.String()+"/reveal", nil)
		c.Params = gin.Params{{Key: "id", Value: recordID.String()}}
		authenticate(c, user)

		handler.RevealRecordHandler(c)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		auditLog.AssertNotCalled(t, "Record")
	})
}
