package http

import (
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
)

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

func setupAuditLogHandler(t *testing.T) (*AuditLogHandler, *mockAuditLogUseCase) {
	t.Helper()

	gin.SetMode(gin.TestMode)

	auditLogUseCase := &mockAuditLogUseCase{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return NewAuditLogHandler(auditLogUseCase, logger), auditLogUseCase
}

func createListContext(t *testing.T, url string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, url, nil)

	return c, w
}

func testAuditLog(action auditDomain.Action) *auditDomain.AuditLog {
	return &auditDomain.AuditLog{
		ID:            uuid.Must(uuid.NewV7()),
		RequestID:     uuid.Must(uuid.NewV7()),
		ActorID:       uuid.Must(uuid.NewV7()),
		Action:        action,
		TargetID:      "target-1",
		PrevSignature: []byte{0xde, 0xad},
		Signature:     []byte{0xbe, 0xef},
		CreatedAt:     time.Now().UTC(),
	}
}

func TestAuditLogHandler_ListHandler(t *testing.T) {
	t.Run("Success_DefaultPagination", func(t *testing.T) {
		handler, auditLogUseCase := setupAuditLogHandler(t)

		entries := []*auditDomain.AuditLog{
			testAuditLog(auditDomain.ActionRecordReveal),
			testAuditLog(auditDomain.ActionLogin),
		}

		auditLogUseCase.On("List", mock.Anything, 0, 50, (*time.Time)(nil), (*time.Time)(nil)).
			Return(entries, nil).Once()

		c, w := createListContext(t, "/v1/audit-logs")

		handler.ListHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)

		var response AuditLogListResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		require.Len(t, response.AuditLogs, 2)
		assert.Equal(t, "record.reveal", response.AuditLogs[0].Action)
		assert.Equal(t, "dead", response.AuditLogs[0].PrevSignature)
		assert.Equal(t, "beef", response.AuditLogs[0].Signature)

		auditLogUseCase.AssertExpectations(t)
	})

	t.Run("Success_TimeFilters", func(t *testing.T) {
		handler, auditLogUseCase := setupAuditLogHandler(t)

		from := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		to := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)

		auditLogUseCase.On("List", mock.Anything, 0, 50, &from, &to).
			Return([]*auditDomain.AuditLog{}, nil).Once()

		c, w := createListContext(t,
			"/v1/audit-logs?created_at_from=2026-02-01T00:00:00Z&created_at_to=2026-02-02T00:00:00Z")

		handler.ListHandler(c)

		assert.Equal(t, http.StatusOK, w.Code)
		auditLogUseCase.AssertExpectations(t)
	})

	t.Run("Error_MalformedTimeFilter", func(t *testing.T) {
		handler, auditLogUseCase := setupAuditLogHandler(t)

		c, w := createListContext(t, "/v1/audit-logs?created_at_from=yesterday")

		handler.ListHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		auditLogUseCase.AssertNotCalled(t, "List")
	})

	t.Run("Error_InvertedTimeRange", func(t *testing.T) {
		handler, auditLogUseCase := setupAuditLogHandler(t)

		c, w := createListContext(t,
			"/v1/audit-logs?created_at_from=2026-02-02T00:00:00Z&created_at_to=2026-02-01T00:00:00Z")

		handler.ListHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		auditLogUseCase.AssertNotCalled(t, "List")
	})

	t.Run("Error_InvalidPagination", func(t *testing.T) {
		handler, auditLogUseCase := setupAuditLogHandler(t)

		c, w := createListContext(t, "/v1/audit-logs?offset=-5")

		handler.ListHandler(c)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		auditLogUseCase.AssertNotCalled(t, "List")
	})

	t.Run("Error_RepositoryFailure", func(t *testing.T) {
		handler, auditLogUseCase := setupAuditLogHandler(t)

		auditLogUseCase.On("List", mock.Anything, 0, 50, (*time.Time)(nil), (*time.Time)(nil)).
			Return(nil, assert.AnError).Once()

		c, w := createListContext(t, "/v1/audit-logs")

		handler.ListHandler(c)

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		auditLogUseCase.AssertExpectations(t)
	})
}
