package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	validation "github.com/jellydator/validation"
	"github.com/jellydator/validation/is"

	auditDomain "github.com/allisson/vaultadmin/internal/audit/domain"
	auditUseCase "github.com/allisson/vaultadmin/internal/audit/usecase"
	"github.com/allisson/vaultadmin/internal/httputil"
	identityHTTP "github.com/allisson/vaultadmin/internal/identity/http"
	ssoUseCase "github.com/allisson/vaultadmin/internal/sso/usecase"
	customValidation "github.com/allisson/vaultadmin/internal/validation"
)

// LaunchRequest asks the broker to mint an SSO token for a record.
type LaunchRequest struct {
	RecordID string `json:"record_id"`
}

// Validate checks if the launch request is valid.
func (r *LaunchRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.RecordID, validation.Required, is.UUID),
	)
}

// LaunchResponse returns the minted single-use token.
type LaunchResponse struct {
	SSOToken  string    `json:"sso_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// RedeemRequest consumes a token on behalf of an internal caller.
type RedeemRequest struct {
	SessionID string `json:"session_id"`
	SSOToken  string `json:"sso_token"`
}

// Validate checks if the redeem request is valid.
func (r *RedeemRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.SessionID, validation.Required, is.UUID),
		validation.Field(&r.SSOToken, validation.Required),
	)
}

// RedeemResponse carries the derived credential proof, never the raw secret.
type RedeemResponse struct {
	Username string `json:"username"`
	Proof    string `json:"proof"`
	SiteName string `json:"site_name"`
}

// ProxyRequest redeems a token and runs the upstream handshake.
type ProxyRequest struct {
	SSOToken string `json:"sso_token"`
}

// Validate checks if the proxy request is valid.
func (r *ProxyRequest) Validate() error {
	return validation.ValidateStruct(r,
		validation.Field(&r.SSOToken, validation.Required),
	)
}

// ProxyResponse tells the browser where to go after the handshake.
type ProxyResponse struct {
	RedirectURL string `json:"redirect_url"`
}

// SSOHandler handles SSO token launch, redeem, and proxy.
type SSOHandler struct {
	broker   ssoUseCase.BrokerUseCase
	auditLog auditUseCase.AuditLogUseCase
	logger   *slog.Logger
}

// NewSSOHandler creates a new SSO handler with required dependencies.
func NewSSOHandler(
	broker ssoUseCase.BrokerUseCase,
	auditLog auditUseCase.AuditLogUseCase,
	logger *slog.Logger,
) *SSOHandler {
	return &SSOHandler{
		broker:   broker,
		auditLog: auditLog,
		logger:   logger,
	}
}

// LaunchHandler mints a single-use SSO token for one of the caller's records.
// POST /v1/sso/launch - requires authentication and CSRF token.
func (h *SSOHandler) LaunchHandler(c *gin.Context) {
	identity, ok := identityHTTP.GetIdentity(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
		return
	}

	var req LaunchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	recordID, _ := uuid.Parse(req.RecordID)

	output, err := h.broker.Issue(c.Request.Context(), identity.Session, identity.User, recordID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.audit(c, identity.User.ID, auditDomain.ActionSSOLaunch, recordID.String(), nil)

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, LaunchResponse{
		SSOToken:  output.Token,
		ExpiresAt: output.ExpiresAt,
	})
}

// RedeemHandler consumes a token exactly once and returns the derived proof.
// POST /internal/sso/redeem - loopback callers only.
func (h *SSOHandler) RedeemHandler(c *gin.Context) {
	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	sessionID, _ := uuid.Parse(req.SessionID)

	token, err := h.broker.Redeem(c.Request.Context(), sessionID, req.SSOToken)
	if err != nil {
		h.audit(c, uuid.Nil, auditDomain.ActionSSODenied, "", map[string]any{
			"session_id": sessionID.String(),
		})
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.audit(c, uuid.Nil, auditDomain.ActionSSORedeem, token.SiteName, map[string]any{
		"session_id": sessionID.String(),
	})

	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, RedeemResponse{
		Username: token.Username,
		Proof:    token.Proof,
		SiteName: token.SiteName,
	})
}

// ProxyHandler redeems a token, performs the upstream handshake, and
// returns the redirect URL for the browser.
// POST /v1/sso/proxy - requires authentication.
func (h *SSOHandler) ProxyHandler(c *gin.Context) {
	identity, ok := identityHTTP.GetIdentity(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httputil.ErrorResponse{Error: "unauthorized"})
		return
	}

	var req ProxyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.HandleValidationErrorGin(c, customValidation.WrapValidationError(err), h.logger)
		return
	}

	redirectURL, err := h.broker.Proxy(c.Request.Context(), identity.Session.ID, req.SSOToken)
	if err != nil {
		h.audit(c, identity.User.ID, auditDomain.ActionSSODenied, "", nil)
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.audit(c, identity.User.ID, auditDomain.ActionSSORedeem, "", nil)

	c.JSON(http.StatusOK, ProxyResponse{RedirectURL: redirectURL})
}

func (h *SSOHandler) audit(
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
	if err := h.auditLog.Record(c.Request.Context(), requestID, actorID, action, targetID, metadata); err != nil {
		h.logger.WarnContext(c.Request.Context(), "failed to record audit log",
			"action", string(action),
			"error", err,
		)
	}
}
