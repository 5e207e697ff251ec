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
	"github.com/allisson/vaultadmin/internal/httputil"
	identityUseCase "github.com/allisson/vaultadmin/internal/identity/usecase"
	customValidation "github.com/allisson/vaultadmin/internal/validation"
)

// LoginRequest contains the login credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks if the login request is valid.
func (r *LoginRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// LoginResponse is returned on successful login. The session token is only
// shown once.
type LoginResponse struct {
	SessionToken string    `json:"session_token"`
	CSRFToken    string    `json:"csrf_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
	Role         string    `json:"role"`
}

// CSRFResponse returns the caller's current anti-forgery token.
type CSRFResponse struct {
	CSRFToken string `json:"csrf_token"`
}

// AuthHandler handles login, logout and CSRF token retrieval.
type AuthHandler struct {
	sessionUseCase identityUseCase.SessionUseCase
	auditLog       auditUseCase.AuditLogUseCase
	logger         *slog.Logger
}

// NewAuthHandler creates a new auth handler with required dependencies.
func NewAuthHandler(
	sessionUseCase identityUseCase.SessionUseCase,
	auditLog auditUseCase.AuditLogUseCase,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		sessionUseCase: sessionUseCase,
		auditLog:       auditLog,
		logger:         logger,
	}
}

// LoginHandler authenticates credentials and issues a session.
// POST /v1/auth/login
func (h *AuthHandler) LoginHandler(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	output, err := h.sessionUseCase.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.audit(c, uuid.Nil, auditDomain.ActionLoginFailed, "", map[string]any{
			"email": req.Email,
		})
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.audit(c, output.User.ID, auditDomain.ActionLogin, output.User.ID.String(), nil)

	c.JSON(http.StatusOK, LoginResponse{
		SessionToken: output.SessionToken,
		CSRFToken:    output.CSRFToken,
		ExpiresAt:    output.ExpiresAt,
		UserID:       output.User.ID.String(),
		Role:         string(output.User.Role),
	})
}

// LogoutHandler revokes the caller's session.
// POST /v1/auth/logout - requires authentication and CSRF token.
func (h *AuthHandler) LogoutHandler(c *gin.Context) {
	identity, ok := GetIdentity(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
		return
	}

	if err := h.sessionUseCase.Logout(c.Request.Context(), identity.Session.ID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.audit(c, identity.User.ID, auditDomain.ActionLogout, identity.User.ID.String(), nil)

	c.Data(http.StatusNoContent, "application/json", nil)
}

// CSRFHandler returns the caller's current anti-forgery token.
// GET /v1/auth/csrf - requires authentication.
func (h *AuthHandler) CSRFHandler(c *gin.Context) {
	identity, ok := GetIdentity(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
		return
	}

	c.JSON(http.StatusOK, CSRFResponse{CSRFToken: identity.Session.CSRFToken})
}

// audit records an audit entry, logging a warning if the write fails.
func (h *AuthHandler) audit(
	c *gin.Context,
	actorID uuid.UUID,
	action auditDomain.Action,
	targetID string,
	metadata map[string]any,
) {
	requestID, err := uuid.Parse(requestid.Get(c))
	if err != nil {
		requestID = uuid.Nil
	}

	ctx := c.Request.Context()
	if err := h.auditLog.Record(ctx, requestID, actorID, action, targetID, metadata); err != nil {
		h.logger.WarnContext(ctx, "failed to record audit entry",
			slog.String("action", string(action)),
			slog.Any("error", err),
		)
	}
}
