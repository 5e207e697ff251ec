// Package http provides the Gin handler for listing audit log entries.
package http

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	auditDomain "github.com/allisson/vaultadmin/internal/audit/domain"
	auditUseCase "github.com/allisson/vaultadmin/internal/audit/usecase"
	"github.com/allisson/vaultadmin/internal/httputil"
)

// AuditLogResponse represents one audit log entry. Signatures are hex so
// operators can eyeball chain continuity.
type AuditLogResponse struct {
	ID            string         `json:"id"`
	RequestID     string         `json:"request_id"`
	ActorID       string         `json:"actor_id"`
	Action        string         `json:"action"`
	TargetID      string         `json:"target_id,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	PrevSignature string         `json:"prev_signature"`
	Signature     string         `json:"signature"`
	CreatedAt     time.Time      `json:"created_at"`
}

// AuditLogListResponse wraps a page of audit log entries.
type AuditLogListResponse struct {
	AuditLogs []AuditLogResponse `json:"audit_logs"`
	Offset    int                `json:"offset"`
	Limit     int                `json:"limit"`
}

func toAuditLogResponse(entry *auditDomain.AuditLog) AuditLogResponse {
	return AuditLogResponse{
		ID:            entry.ID.String(),
		RequestID:     entry.RequestID.String(),
		ActorID:       entry.ActorID.String(),
		Action:        string(entry.Action),
		TargetID:      entry.TargetID,
		Metadata:      entry.Metadata,
		PrevSignature: hex.EncodeToString(entry.PrevSignature),
		Signature:     hex.EncodeToString(entry.Signature),
		CreatedAt:     entry.CreatedAt,
	}
}

// AuditLogHandler handles audit log listing.
type AuditLogHandler struct {
	auditLogUseCase auditUseCase.AuditLogUseCase
	logger          *slog.Logger
}

// NewAuditLogHandler creates a new audit log handler with required dependencies.
func NewAuditLogHandler(
	auditLogUseCase auditUseCase.AuditLogUseCase,
	logger *slog.Logger,
) *AuditLogHandler {
	return &AuditLogHandler{
		auditLogUseCase: auditLogUseCase,
		logger:          logger,
	}
}

// ListHandler retrieves audit logs newest first with pagination and optional
// inclusive RFC3339 time filters.
// GET /v1/audit-logs?offset=0&limit=50&created_at_from=...&created_at_to=...
// Requires admin role.
func (h *AuditLogHandler) ListHandler(c *gin.Context) {
	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	createdAtFrom, err := parseTimeFilter(c, "created_at_from")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	createdAtTo, err := parseTimeFilter(c, "created_at_to")
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	if createdAtFrom != nil && createdAtTo != nil && createdAtFrom.After(*createdAtTo) {
		httputil.HandleValidationErrorGin(c,
			fmt.Errorf("created_at_from must be before or equal to created_at_to"),
			h.logger)
		return
	}

	entries, err := h.auditLogUseCase.List(c.Request.Context(), offset, limit, createdAtFrom, createdAtTo)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	resp := AuditLogListResponse{
		AuditLogs: make([]AuditLogResponse, 0, len(entries)),
		Offset:    offset,
		Limit:     limit,
	}
	for _, entry := range entries {
		resp.AuditLogs = append(resp.AuditLogs, toAuditLogResponse(entry))
	}

	c.JSON(http.StatusOK, resp)
}

func parseTimeFilter(c *gin.Context, name string) (*time.Time, error) {
	value := c.Query(name)
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s format: must be RFC3339 (e.g., 2026-02-01T00:00:00Z)", name)
	}
	utc := parsed.UTC()
	return &utc, nil
}
