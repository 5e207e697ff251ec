package http

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/allisson/vaultadmin/internal/errors"
	"github.com/allisson/vaultadmin/internal/httputil"
	identityDomain "github.com/allisson/vaultadmin/internal/identity/domain"
	identityService "github.com/allisson/vaultadmin/internal/identity/service"
	identityUseCase "github.com/allisson/vaultadmin/internal/identity/usecase"
)

// CSRFHeader is the request header carrying the anti-forgery token.
const CSRFHeader = "X-CSRF-Token"

// AuthenticationMiddleware authenticates requests via Bearer session token in
// the Authorization header.
//
// The middleware extracts the token, hashes it, resolves the session and user
// through SessionUseCase.Authenticate, and stores the resulting Identity in
// the request context for downstream handlers (see GetIdentity).
//
// Error handling:
//   - Missing/malformed Authorization header → 401 Unauthorized
//   - Unknown/expired/revoked session → 401 Unauthorized
func AuthenticationMiddleware(
	sessionUseCase identityUseCase.SessionUseCase,
	tokenService identityService.TokenService,
	logger *slog.Logger,
) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Debug("authentication failed: missing authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		// Parse Bearer token (case-insensitive)
		const bearerPrefix = "bearer "
		if len(authHeader) < len(bearerPrefix) ||
			!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
			logger.Debug("authentication failed: malformed authorization header")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		plainToken := authHeader[len(bearerPrefix):]
		if plainToken == "" {
			logger.Debug("authentication failed: empty bearer token")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		tokenHash := tokenService.HashToken(plainToken)

		session, user, err := sessionUseCase.Authenticate(c.Request.Context(), tokenHash)
		if err != nil {
			logger.Debug("authentication failed", slog.String("error", err.Error()))
			httputil.HandleErrorGin(c, err, logger)
			c.Abort()
			return
		}

		ctx := WithIdentity(c.Request.Context(), &Identity{Session: session, User: user})
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// CSRFMiddleware verifies the per-session anti-forgery token on mutating
// requests. MUST be used after AuthenticationMiddleware.
//
// The request token comes from the X-CSRF-Token header and is compared in
// constant time against the token stored on the session. A failed check
// aborts with 403 before any handler side effect runs.
func CSRFMiddleware(csrfGuard identityService.CSRFGuard, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c.Request.Context())
		if !ok || identity == nil {
			logger.Error("csrf middleware: no authenticated identity in context")
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		requestToken := c.GetHeader(CSRFHeader)
		if !csrfGuard.Verify(identity.Session.CSRFToken, requestToken) {
			logger.Warn("csrf verification failed",
				slog.String("user_id", identity.User.ID.String()),
				slog.String("path", c.Request.URL.Path),
			)
			httputil.HandleErrorGin(c, identityDomain.ErrCSRFMismatch, logger)
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireRoleMiddleware enforces a minimum role for the route. MUST be used
// after AuthenticationMiddleware.
func RequireRoleMiddleware(minRole identityDomain.Role, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := GetIdentity(c.Request.Context())
		if !ok || identity == nil {
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}

		if !identity.User.Role.AtLeast(minRole) {
			logger.Debug("authorization failed: insufficient role",
				slog.String("user_id", identity.User.ID.String()),
				slog.String("role", string(identity.User.Role)),
				slog.String("required", string(minRole)),
			)
			httputil.HandleErrorGin(c, apperrors.ErrForbidden, logger)
			c.Abort()
			return
		}

		c.Next()
	}
}
