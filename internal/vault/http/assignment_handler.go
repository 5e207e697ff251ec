package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	validation "github.com/jellydator/validation"
	"github.com/jellydator/validation/is"

	auditDomain "github.com/allisson/vaultadmin/internal/audit/domain"
	auditUseCase "github.com/allisson/vaultadmin/internal/audit/usecase"
	"github.com/allisson/vaultadmin/internal/httputil"
	identityHTTP "github.com/allisson/vaultadmin/internal/identity/http"
	customValidation "github.com/allisson/vaultadmin/internal/validation"
	vaultDomain "github.com/allisson/vaultadmin/internal/vault/domain"
	vaultUseCase "github.com/allisson/vaultadmin/internal/vault/usecase"
)

// CreateAssignmentRequest grants a user access to a shared record.
type CreateAssignmentRequest struct {
	UserID   string `json:"user_id"`
	RecordID string `json:"record_id"`
}

// Validate checks if the create request is valid.
func (r *CreateAssignmentRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.UserID, validation.Required, is.UUID),
		validation.Field(&r.RecordID, validation.Required, is.UUID),
	)
}

// AssignmentResponse represents a service assignment.
type AssignmentResponse struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	RecordID  string    `json:"record_id"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// AssignmentListResponse wraps a list of assignments.
type AssignmentListResponse struct {
	Assignments []AssignmentResponse `json:"assignments"`
}

func toAssignmentResponse(assignment *vaultDomain.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:        assignment.ID.String(),
		UserID:    assignment.UserID.String(),
		RecordID:  assignment.RecordID.String(),
		CreatedBy: assignment.CreatedBy.String(),
		CreatedAt: assignment.CreatedAt,
	}
}

// AssignmentHandler handles service assignment management. All routes sit
// behind the admin role middleware.
type AssignmentHandler struct {
	assignmentUseCase vaultUseCase.AssignmentUseCase
	auditLog          auditUseCase.AuditLogUseCase
	logger            *slog.Logger
}

// NewAssignmentHandler creates a new assignment handler with required dependencies.
func NewAssignmentHandler(
	assignmentUseCase vaultUseCase.AssignmentUseCase,
	auditLog auditUseCase.AuditLogUseCase,
	logger *slog.Logger,
) *AssignmentHandler {
	return &AssignmentHandler{
		assignmentUseCase: assignmentUseCase,
		auditLog:          auditLog,
		logger:            logger,
	}
}

// CreateAssignmentHandler grants a user access to a shared record.
// POST /v1/assignments - requires admin role and CSRF token.
func (h *AssignmentHandler) CreateAssignmentHandler(c *gin.Context) {
	identity, ok := identityHTTP.GetIdentity(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	userID, _ := uuid.Parse(req.UserID)
	recordID, _ := uuid.Parse(req.RecordID)

	assignment, err := h.assignmentUseCase.Create(c.Request.Context(), identity.User, &vaultUseCase.CreateAssignmentInput{
		UserID:   userID,
		RecordID: recordID,
	})
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.audit(c, identity.User.ID, auditDomain.ActionAssignmentCreate, assignment.ID.String(), map[string]any{
		"user_id":   assignment.UserID.String(),
		"record_id": assignment.RecordID.String(),
	})

	c.JSON(http.StatusCreated, toAssignmentResponse(assignment))
}

// DeleteAssignmentHandler revokes a service assignment.
// DELETE /v1/assignments/:id - requires admin role and CSRF token.
func (h *AssignmentHandler) DeleteAssignmentHandler(c *gin.Context) {
	identity, ok := identityHTTP.GetIdentity(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleErrorGin(c, vaultDomain.ErrAssignmentNotFound, h.logger)
		return
	}

	if err := h.assignmentUseCase.Delete(c.Request.Context(), id); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.audit(c, identity.User.ID, auditDomain.ActionAssignmentDelete, id.String(), nil)

	c.Data(http.StatusNoContent, "application/json", nil)
}

// ListAssignmentsHandler lists assignments filtered by user or record.
// GET /v1/assignments?user_id=...&record_id=... - requires admin role.
func (h *AssignmentHandler) ListAssignmentsHandler(c *gin.Context) {
	if userID := c.Query("user_id"); userID != "" {
		id, err := uuid.Parse(userID)
		if err != nil {
			httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(
				validation.NewError("validation_invalid_uuid", "user_id must be a valid UUID"),
			), h.logger)
			return
		}
		h.respondAssignments(c, func() ([]*vaultDomain.Assignment, error) {
			return h.assignmentUseCase.ListByUser(c.Request.Context(), id)
		})
		return
	}

	recordID := c.Query("record_id")
	id, err := uuid.Parse(recordID)
	if err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(
			validation.NewError("validation_missing_filter", "user_id or record_id query parameter is required"),
		), h.logger)
		return
	}
	h.respondAssignments(c, func() ([]*vaultDomain.Assignment, error) {
		return h.assignmentUseCase.ListByRecord(c.Request.Context(), id)
	})
}

func (h *AssignmentHandler) respondAssignments(c *gin.Context, list func() ([]*vaultDomain.Assignment, error)) {
	assignments, err := list()
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	resp := AssignmentListResponse{Assignments: make([]AssignmentResponse, 0, len(assignments))}
	for _, assignment := range assignments {
		resp.Assignments = append(resp.Assignments, toAssignmentResponse(assignment))
	}
	c.JSON(http.StatusOK, resp)
}

func (h *AssignmentHandler) audit(
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
