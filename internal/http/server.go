// Package http provides the admin panel HTTP server: route wiring,
// cross-cutting middleware, and the standalone metrics server.
package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	auditHTTP "github.com/allisson/vaultadmin/internal/audit/http"
	identityHTTP "github.com/allisson/vaultadmin/internal/identity/http"
	ssoHTTP "github.com/allisson/vaultadmin/internal/sso/http"
	vaultHTTP "github.com/allisson/vaultadmin/internal/vault/http"
)

// Handlers groups the request handlers wired into the router.
type Handlers struct {
	Auth       *identityHTTP.AuthHandler
	Record     *vaultHTTP.RecordHandler
	Assignment *vaultHTTP.AssignmentHandler
	SSO        *ssoHTTP.SSOHandler
	AuditLog   *auditHTTP.AuditLogHandler
}

// Middleware groups the cross-cutting middleware wired into the router.
// Optional entries (CORS, RateLimit, Metrics) may be nil.
type Middleware struct {
	Authentication gin.HandlerFunc
	CSRF           gin.HandlerFunc
	AdminOnly      gin.HandlerFunc
	LoopbackOnly   gin.HandlerFunc
	RateLimit      gin.HandlerFunc
	CORS           gin.HandlerFunc
	Metrics        gin.HandlerFunc
}

// Server represents the admin panel HTTP server.
type Server struct {
	server   *http.Server
	logger   *slog.Logger
	done     chan struct{}
	doneOnce sync.Once
}

// NewServer creates a new HTTP server with all routes registered.
func NewServer(
	host string,
	port int,
	logger *slog.Logger,
	handlers Handlers,
	middleware Middleware,
) *Server {
	s := &Server{
		logger: logger,
		done:   make(chan struct{}),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New())
	router.Use(CustomLoggerMiddleware(logger))

	if middleware.CORS != nil {
		router.Use(middleware.CORS)
	}
	if middleware.Metrics != nil {
		router.Use(middleware.Metrics)
	}

	// Health and readiness endpoints
	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	// Public routes
	router.POST("/v1/auth/login", handlers.Auth.LoginHandler)

	// Loopback-only handshake endpoint for the upstream system. Never exposed
	// through the session-authenticated surface.
	router.POST("/internal/sso/redeem", middleware.LoopbackOnly, handlers.SSO.RedeemHandler)

	// Session-authenticated routes
	authenticated := router.Group("/v1")
	authenticated.Use(middleware.Authentication)
	if middleware.RateLimit != nil {
		authenticated.Use(middleware.RateLimit)
	}

	authenticated.POST("/auth/logout", middleware.CSRF, handlers.Auth.LogoutHandler)
	authenticated.GET("/auth/csrf", handlers.Auth.CSRFHandler)

	authenticated.POST("/records", middleware.CSRF, handlers.Record.CreateRecordHandler)
	authenticated.GET("/records", handlers.Record.ListRecordsHandler)
	authenticated.GET("/records/:id", handlers.Record.GetRecordHandler)
	authenticated.PUT("/records/:id", middleware.CSRF, handlers.Record.UpdateRecordHandler)
	authenticated.DELETE("/records/:id", middleware.CSRF, handlers.Record.DeleteRecordHandler)
	authenticated.POST("/records/:id/reveal", middleware.CSRF, handlers.Record.RevealRecordHandler)

	authenticated.POST("/sso/launch", middleware.CSRF, handlers.SSO.LaunchHandler)
	authenticated.POST("/sso/proxy", middleware.CSRF, handlers.SSO.ProxyHandler)

	// Admin-only routes
	admin := authenticated.Group("")
	admin.Use(middleware.AdminOnly)

	admin.POST("/assignments", middleware.CSRF, handlers.Assignment.CreateAssignmentHandler)
	admin.DELETE("/assignments/:id", middleware.CSRF, handlers.Assignment.DeleteAssignmentHandler)
	admin.GET("/assignments", handlers.Assignment.ListAssignmentsHandler)

	admin.GET("/audit-logs", handlers.AuditLog.ListHandler)

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", host, port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.server.Handler
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server. The readiness endpoint
// starts reporting 503 as soon as shutdown begins.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	s.doneOnce.Do(func() { close(s.done) })
	return s.server.Shutdown(ctx)
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the server is accepting work.
func (s *Server) readinessHandler(c *gin.Context) {
	select {
	case <-s.done:
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	}
}
