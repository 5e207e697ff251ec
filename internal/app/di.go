// Package app provides the dependency injection container for assembling
// application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/redis/go-redis/v9"

	auditHTTP "github.com/allisson/vaultadmin/internal/audit/http"
	auditService "github.com/allisson/vaultadmin/internal/audit/service"
	auditUseCase "github.com/allisson/vaultadmin/internal/audit/usecase"
	"github.com/allisson/vaultadmin/internal/config"
	cryptoService "github.com/allisson/vaultadmin/internal/crypto/service"
	"github.com/allisson/vaultadmin/internal/database"
	"github.com/allisson/vaultadmin/internal/http"
	identityDomain "github.com/allisson/vaultadmin/internal/identity/domain"
	identityHTTP "github.com/allisson/vaultadmin/internal/identity/http"
	identityRepository "github.com/allisson/vaultadmin/internal/identity/repository"
	identityService "github.com/allisson/vaultadmin/internal/identity/service"
	identityUseCase "github.com/allisson/vaultadmin/internal/identity/usecase"
	"github.com/allisson/vaultadmin/internal/metrics"
	ssoHTTP "github.com/allisson/vaultadmin/internal/sso/http"
	ssoRepository "github.com/allisson/vaultadmin/internal/sso/repository"
	ssoService "github.com/allisson/vaultadmin/internal/sso/service"
	ssoUseCase "github.com/allisson/vaultadmin/internal/sso/usecase"
	vaultHTTP "github.com/allisson/vaultadmin/internal/vault/http"
	vaultUseCase "github.com/allisson/vaultadmin/internal/vault/usecase"
)

// Container holds all application dependencies and provides methods to access
// them. It follows the lazy initialization pattern - components are created on
// first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger           *slog.Logger
	db               *sql.DB
	redisClient      *redis.Client
	memoryTokenStore *ssoRepository.MemoryTokenStore
	memoryLockout    *identityRepository.MemoryLoginLockout

	// Managers
	txManager database.TxManager

	// Metrics
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics

	// Services
	passwordService identityService.PasswordService
	tokenService    identityService.TokenService
	csrfGuard       identityService.CSRFGuard
	keyProvider     cryptoService.KeyProvider
	cipher          cryptoService.Cipher
	chainSigner     *auditService.ChainSigner
	upstreamClient  ssoService.UpstreamClient

	// Repositories
	userRepo       identityUseCase.UserRepository
	sessionRepo    identityUseCase.SessionRepository
	recordRepo     vaultUseCase.RecordRepository
	assignmentRepo vaultUseCase.AssignmentRepository
	auditLogRepo   auditUseCase.AuditLogRepository
	tokenStore     ssoUseCase.TokenStore
	loginLockout   identityUseCase.LoginLockout

	// Use Cases
	userUseCase        identityUseCase.UserUseCase
	sessionUseCase     identityUseCase.SessionUseCase
	recordUseCase      vaultUseCase.RecordUseCase
	assignmentUseCase  vaultUseCase.AssignmentUseCase
	keyRotationUseCase vaultUseCase.KeyRotationUseCase
	auditLogUseCase    auditUseCase.AuditLogUseCase
	brokerUseCase      ssoUseCase.BrokerUseCase

	// HTTP handlers
	authHandler       *identityHTTP.AuthHandler
	recordHandler     *vaultHTTP.RecordHandler
	assignmentHandler *vaultHTTP.AssignmentHandler
	ssoHandler        *ssoHTTP.SSOHandler
	auditLogHandler   *auditHTTP.AuditLogHandler

	// Servers
	httpServer    *http.Server
	metricsServer *http.MetricsServer

	// Synchronization for lazy initialization
	mu                     sync.Mutex
	loggerInit             sync.Once
	dbInit                 sync.Once
	redisClientInit        sync.Once
	txManagerInit          sync.Once
	metricsProviderInit    sync.Once
	businessMetricsInit    sync.Once
	passwordServiceInit    sync.Once
	tokenServiceInit       sync.Once
	csrfGuardInit          sync.Once
	keyProviderInit        sync.Once
	cipherInit             sync.Once
	chainSignerInit        sync.Once
	upstreamClientInit     sync.Once
	userRepoInit           sync.Once
	sessionRepoInit        sync.Once
	recordRepoInit         sync.Once
	assignmentRepoInit     sync.Once
	auditLogRepoInit       sync.Once
	tokenStoreInit         sync.Once
	loginLockoutInit       sync.Once
	userUseCaseInit        sync.Once
	sessionUseCaseInit     sync.Once
	recordUseCaseInit      sync.Once
	assignmentUseCaseInit  sync.Once
	keyRotationUseCaseInit sync.Once
	auditLogUseCaseInit    sync.Once
	brokerUseCaseInit      sync.Once
	authHandlerInit        sync.Once
	recordHandlerInit      sync.Once
	assignmentHandlerInit  sync.Once
	ssoHandlerInit         sync.Once
	auditLogHandlerInit    sync.Once
	httpServerInit         sync.Once
	metricsServerInit      sync.Once

	// Error storage for failed initializations
	initErrors map[string]error
}

// NewContainer creates a new dependency injection container.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Logger returns the logger instance.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection instance.
func (c *Container) DB() (*sql.DB, error) {
	var err error
	c.dbInit.Do(func() {
		c.db, err = c.initDB()
		if err != nil {
			c.initErrors["db"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager instance.
func (c *Container) TxManager() (database.TxManager, error) {
	var err error
	c.txManagerInit.Do(func() {
		c.txManager, err = c.initTxManager()
		if err != nil {
			c.initErrors["txManager"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// RedisClient returns the redis client instance.
func (c *Container) RedisClient() *redis.Client {
	c.redisClientInit.Do(func() {
		c.redisClient = redis.NewClient(&redis.Options{
			Addr:     c.config.RedisAddr,
			Password: c.config.RedisPassword,
			DB:       c.config.RedisDB,
		})
	})
	return c.redisClient
}

// HTTPServer returns the HTTP server instance.
func (c *Container) HTTPServer() (*http.Server, error) {
	var err error
	c.httpServerInit.Do(func() {
		c.httpServer, err = c.initHTTPServer()
		if err != nil {
			c.initErrors["httpServer"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.memoryTokenStore != nil {
		c.memoryTokenStore.Close()
	}

	if c.memoryLockout != nil {
		c.memoryLockout.Close()
	}

	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("redis close: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}

// initDB creates and configures the database connection.
func (c *Container) initDB() (*sql.DB, error) {
	db, err := database.Connect(database.Config{
		Driver:             c.config.DBDriver,
		ConnectionString:   c.config.DBConnectionString,
		MaxOpenConnections: c.config.DBMaxOpenConnections,
		MaxIdleConnections: c.config.DBMaxIdleConnections,
		ConnMaxLifetime:    c.config.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// initTxManager creates the transaction manager using the database connection.
func (c *Container) initTxManager() (database.TxManager, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for tx manager: %w", err)
	}
	return database.NewTxManager(db), nil
}

// initHTTPServer creates the HTTP server with all routes and middleware wired.
func (c *Container) initHTTPServer() (*http.Server, error) {
	logger := c.Logger()

	authHandler, err := c.AuthHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get auth handler for http server: %w", err)
	}

	recordHandler, err := c.RecordHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get record handler for http server: %w", err)
	}

	assignmentHandler, err := c.AssignmentHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment handler for http server: %w", err)
	}

	ssoHandler, err := c.SSOHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get sso handler for http server: %w", err)
	}

	auditLogHandler, err := c.AuditLogHandler()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log handler for http server: %w", err)
	}

	sessionUseCase, err := c.SessionUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get session use case for http server: %w", err)
	}

	middleware := http.Middleware{
		Authentication: identityHTTP.AuthenticationMiddleware(sessionUseCase, c.TokenService(), logger),
		CSRF:           identityHTTP.CSRFMiddleware(c.CSRFGuard(), logger),
		AdminOnly:      identityHTTP.RequireRoleMiddleware(identityDomain.RoleAdmin, logger),
		LoopbackOnly:   ssoHTTP.LoopbackOnlyMiddleware(),
		CORS:           http.NewCORSMiddleware(c.config.CORSEnabled, c.config.CORSAllowOrigins, logger),
	}

	if c.config.RateLimitEnabled {
		middleware.RateLimit = identityHTTP.RateLimitMiddleware(
			c.config.RateLimitRequestsPerSec,
			c.config.RateLimitBurst,
			logger,
		)
	}

	if c.config.MetricsEnabled {
		metricsProvider, err := c.MetricsProvider()
		if err != nil {
			return nil, fmt.Errorf("failed to get metrics provider for http server: %w", err)
		}
		middleware.Metrics = metrics.HTTPMetricsMiddleware(
			metricsProvider.MeterProvider(),
			c.config.MetricsNamespace,
		)
	}

	server := http.NewServer(
		c.config.ServerHost,
		c.config.ServerPort,
		logger,
		http.Handlers{
			Auth:       authHandler,
			Record:     recordHandler,
			Assignment: assignmentHandler,
			SSO:        ssoHandler,
			AuditLog:   auditLogHandler,
		},
		middleware,
	)

	return server, nil
}
