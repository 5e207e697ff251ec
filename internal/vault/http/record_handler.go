// Package http provides Gin handlers for credential records and service
// assignments. List and fetch responses never carry secret material; the
// reveal endpoint is the single path that returns plaintext.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	validation "github.com/jellydator/validation"

	auditDomain "github.com/allisson/vaultadmin/internal/audit/domain"
	auditUseCase "github.com/allisson/vaultadmin/internal/audit/usecase"
	cryptoDomain "github.com/allisson/vaultadmin/internal/crypto/domain"
	apperrors "github.com/allisson/vaultadmin/internal/errors"
	"github.com/allisson/vaultadmin/internal/httputil"
	identityHTTP "github.com/allisson/vaultadmin/internal/identity/http"
	customValidation "github.com/allisson/vaultadmin/internal/validation"
	vaultDomain "github.com/allisson/vaultadmin/internal/vault/domain"
	vaultUseCase "github.com/allisson/vaultadmin/internal/vault/usecase"
)

// CreateRecordRequest contains the fields for creating a credential record.
// Secret is optional; a record can exist without a stored password.
type CreateRecordRequest struct {
	Visibility string  `json:"visibility"`
	Name       string  `json:"name"`
	URL        string  `json:"url"`
	Username   string  `json:"username"`
	Secret     *string `json:"secret"`
	Notes      string  `json:"notes"`
}

// Validate checks if the create request is valid.
func (r *CreateRecordRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required),
		validation.Field(&r.Visibility, validation.Required, validation.In(
			string(vaultDomain.VisibilityPrivate),
			string(vaultDomain.VisibilityShared),
		)),
	)
}

// UpdateRecordRequest contains the fields for updating a credential record.
// Secret is tri-state: absent preserves the stored secret, an empty string
// clears it, any other value replaces it.
type UpdateRecordRequest struct {
	Name     string  `json:"name"`
	URL      string  `json:"url"`
	Username string  `json:"username"`
	Secret   *string `json:"secret"`
	Notes    string  `json:"notes"`
}

// Validate checks if the update request is valid.
func (r *UpdateRecordRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Name, validation.Required),
	)
}

// RecordResponse is the secret-free representation of a credential record.
type RecordResponse struct {
	ID         string    `json:"id"`
	OwnerID    *string   `json:"owner_id,omitempty"`
	CreatedBy  string    `json:"created_by"`
	Visibility string    `json:"visibility"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Username   string    `json:"username"`
	Notes      string    `json:"notes"`
	HasSecret  bool      `json:"has_secret"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// RecordListResponse wraps a page of records.
type RecordListResponse struct {
	Records []RecordResponse `json:"records"`
	Offset  int              `json:"offset"`
	Limit   int              `json:"limit"`
}

// RevealResponse carries a decrypted secret. Single response, never cached.
type RevealResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func toRecordResponse(record *vaultDomain.Record) RecordResponse {
	resp := RecordResponse{
		ID:         record.ID.String(),
		CreatedBy:  record.CreatedBy.String(),
		Visibility: string(record.Visibility),
		Name:       record.Name,
		URL:        record.URL,
		Username:   record.Username,
		Notes:      record.Notes,
		HasSecret:  record.HasSecret(),
		CreatedAt:  record.CreatedAt,
		UpdatedAt:  record.UpdatedAt,
	}
	if record.OwnerID != nil {
		ownerID := record.OwnerID.String()
		resp.OwnerID = &ownerID
	}
	return resp
}

// requestUUID parses the request correlation id set by the requestid
// middleware; uuid.Nil when absent or malformed.
func requestUUID(c *gin.Context) uuid.UUID {
	id, err := uuid.Parse(requestid.Get(c))
	if err != nil {
		return uuid.Nil
	}
	return id
}

// RecordHandler handles credential record CRUD and reveal.
type RecordHandler struct {
	recordUseCase vaultUseCase.RecordUseCase
	auditLog      auditUseCase.AuditLogUseCase
	logger        *slog.Logger
}

// NewRecordHandler creates a new record handler with required dependencies.
func NewRecordHandler(
	recordUseCase vaultUseCase.RecordUseCase,
	auditLog auditUseCase.AuditLogUseCase,
	logger *slog.Logger,
) *RecordHandler {
	return &RecordHandler{
		recordUseCase: recordUseCase,
		auditLog:      auditLog,
		logger:        logger,
	}
}

// CreateRecordHandler creates a credential record.
// POST /v1/records - requires authentication and CSRF token.
func (h *RecordHandler) CreateRecordHandler(c *gin.Context) {
	identity, ok := identityHTTP.GetIdentity(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	record, err := h.recordUseCase.Create(c.Request.Context(), identity.User, &vaultUseCase.CreateRecordInput{
		Visibility: vaultDomain.Visibility(req.Visibility),
		Name:       req.Name,
		URL:        req.URL,
		Username:   req.Username,
		Secret:     req.Secret,
		Notes:      req.Notes,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.audit(c, identity.User.ID, auditDomain.ActionRecordCreate, record.ID.String(), nil)

	c.JSON(http.StatusCreated, toRecordResponse(record))
}

// ListRecordsHandler lists records visible to the caller, without secrets.
// GET /v1/records - requires authentication.
func (h *RecordHandler) ListRecordsHandler(c *gin.Context) {
	identity, ok := identityHTTP.GetIdentity(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
		return
	}

	offset, limit, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleValidationErrorGin(c, err, h.logger)
		return
	}

	records, err := h.recordUseCase.List(c.Request.Context(), identity.User, offset, limit)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	resp := RecordListResponse{
		Records: make([]RecordResponse, 0, len(records)),
		Offset:  offset,
		Limit:   limit,
	}
	for _, record := range records {
		resp.Records = append(resp.Records, toRecordResponse(record))
	}

	c.JSON(http.StatusOK, resp)
}

// GetRecordHandler fetches one record's metadata, without its secret.
// GET /v1/records/:id - requires authentication.
func (h *RecordHandler) GetRecordHandler(c *gin.Context) {
	identity, ok := identityHTTP.GetIdentity(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
		return
	}

	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleErrorGin(c, vaultDomain.ErrRecordNotFound, h.logger)
		return
	}

	record, err := h.recordUseCase.Get(c.Request.Context(), identity.User, recordID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, toRecordResponse(record))
}

// UpdateRecordHandler updates a record within the caller's modify scope.
// PUT /v1/records/:id - requires authentication and CSRF token.
func (h *RecordHandler) UpdateRecordHandler(c *gin.Context) {
	identity, ok := identityHTTP.GetIdentity(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
		return
	}

	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleErrorGin(c, vaultDomain.ErrRecordNotFound, h.logger)
		return
	}

	var req UpdateRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	record, err := h.recordUseCase.Update(c.Request.Context(), identity.User, recordID, &vaultUseCase.UpdateRecordInput{
		Name:     req.Name,
		URL:      req.URL,
		Username: req.Username,
		Secret:   req.Secret,
		Notes:    req.Notes,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.audit(c, identity.User.ID, auditDomain.ActionRecordUpdate, record.ID.String(), nil)

	c.JSON(http.StatusOK, toRecordResponse(record))
}

// DeleteRecordHandler deletes a record within the caller's modify scope.
// DELETE /v1/records/:id - requires authentication and CSRF token.
func (h *RecordHandler) DeleteRecordHandler(c *gin.Context) {
	identity, ok := identityHTTP.GetIdentity(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
		return
	}

	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleErrorGin(c, vaultDomain.ErrRecordNotFound, h.logger)
		return
	}

	if err := h.recordUseCase.Delete(c.Request.Context(), identity.User, recordID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.audit(c, identity.User.ID, auditDomain.ActionRecordDelete, recordID.String(), nil)

	c.Data(http.StatusNoContent, "application/json", nil)
}

// RevealRecordHandler decrypts and returns a record's secret. The audit
// entry is written before the plaintext leaves the process; if it cannot be
// written, no plaintext is returned.
// POST /v1/records/:id/reveal - requires authentication and CSRF token.
func (h *RecordHandler) RevealRecordHandler(c *gin.Context) {
	identity, ok := identityHTTP.GetIdentity(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
		return
	}

	recordID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleErrorGin(c, vaultDomain.ErrRecordNotFound, h.logger)
		return
	}

	record, err := h.recordUseCase.Reveal(c.Request.Context(), identity.User, recordID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	defer cryptoDomain.Zero(record.PlainSecret)

	err = h.auditLog.Record(
		c.Request.Context(),
		requestUUID(c),
		identity.User.ID,
		auditDomain.ActionRecordReveal,
		record.ID.String(),
		nil,
	)
	if err != nil {
		httputil.HandleErrorGin(c, apperrors.Wrap(err, "reveal not recorded"), h.logger)
		return
	}

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, RevealResponse{
		ID:       record.ID.String(),
		Name:     record.Name,
		Username: record.Username,
		Password: string(record.PlainSecret),
	})
}

// audit records a best-effort audit entry for an already-committed mutation.
func (h *RecordHandler) audit(
	c *gin.Context,
	actorID uuid.UUID,
	action auditDomain.Action,
	targetID string,
	metadata map[string]any,
) {
	err := h.auditLog.Record(c.Request.Context(), requestUUID(c), actorID, action, targetID, metadata)
	if err != nil {
		h.logger.WarnContext(c.Request.Context(), "failed to record audit log",
			"action", string(action),
			"target_id", targetID,
			"error", err,
		)
	}
}
