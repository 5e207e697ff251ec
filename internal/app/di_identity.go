package app

import (
	"fmt"

	identityHTTP "github.com/allisson/vaultadmin/internal/identity/http"
	identityRepository "github.com/allisson/vaultadmin/internal/identity/repository"
	identityService "github.com/allisson/vaultadmin/internal/identity/service"
	identityUseCase "github.com/allisson/vaultadmin/internal/identity/usecase"
)

// PasswordService returns the password hashing service.
func (c *Container) PasswordService() identityService.PasswordService {
	c.passwordServiceInit.Do(func() {
		c.passwordService = identityService.NewPasswordService()
	})
	return c.passwordService
}

// TokenService returns the session token service.
func (c *Container) TokenService() identityService.TokenService {
	c.tokenServiceInit.Do(func() {
		c.tokenService = identityService.NewTokenService()
	})
	return c.tokenService
}

// CSRFGuard returns the anti-forgery token service.
func (c *Container) CSRFGuard() identityService.CSRFGuard {
	c.csrfGuardInit.Do(func() {
		c.csrfGuard = identityService.NewCSRFGuard()
	})
	return c.csrfGuard
}

// LoginLockout returns the failed login tracker. Redis is used when enabled,
// otherwise an in-memory tracker scoped to the process.
func (c *Container) LoginLockout() identityUseCase.LoginLockout {
	c.loginLockoutInit.Do(func() {
		if c.config.RedisEnabled {
			c.loginLockout = identityRepository.NewRedisLoginLockout(c.RedisClient())
			return
		}
		c.memoryLockout = identityRepository.NewMemoryLoginLockout()
		c.loginLockout = c.memoryLockout
	})
	return c.loginLockout
}

// UserRepository returns the user repository based on database driver.
func (c *Container) UserRepository() (identityUseCase.UserRepository, error) {
	var err error
	c.userRepoInit.Do(func() {
		c.userRepo, err = c.initUserRepository()
		if err != nil {
			c.initErrors["userRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["userRepo"]; exists {
		return nil, storedErr
	}
	return c.userRepo, nil
}

// SessionRepository returns the session repository based on database driver.
func (c *Container) SessionRepository() (identityUseCase.SessionRepository, error) {
	var err error
	c.sessionRepoInit.Do(func() {
		c.sessionRepo, err = c.initSessionRepository()
		if err != nil {
			c.initErrors["sessionRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sessionRepo"]; exists {
		return nil, storedErr
	}
	return c.sessionRepo, nil
}

// UserUseCase returns the user use case.
func (c *Container) UserUseCase() (identityUseCase.UserUseCase, error) {
	var err error
	c.userUseCaseInit.Do(func() {
		c.userUseCase, err = c.initUserUseCase()
		if err != nil {
			c.initErrors["userUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["userUseCase"]; exists {
		return nil, storedErr
	}
	return c.userUseCase, nil
}

// SessionUseCase returns the session use case.
func (c *Container) SessionUseCase() (identityUseCase.SessionUseCase, error) {
	var err error
	c.sessionUseCaseInit.Do(func() {
		c.sessionUseCase, err = c.initSessionUseCase()
		if err != nil {
			c.initErrors["sessionUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["sessionUseCase"]; exists {
		return nil, storedErr
	}
	return c.sessionUseCase, nil
}

// AuthHandler returns the HTTP handler for login, logout, and CSRF retrieval.
func (c *Container) AuthHandler() (*identityHTTP.AuthHandler, error) {
	var err error
	c.authHandlerInit.Do(func() {
		c.authHandler, err = c.initAuthHandler()
		if err != nil {
			c.initErrors["authHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["authHandler"]; exists {
		return nil, storedErr
	}
	return c.authHandler, nil
}

// initUserRepository creates the user repository based on the database driver.
func (c *Container) initUserRepository() (identityUseCase.UserRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for user repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return identityRepository.NewPostgreSQLUserRepository(db), nil
	case "mysql":
		return identityRepository.NewMySQLUserRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initSessionRepository creates the session repository based on the database driver.
func (c *Container) initSessionRepository() (identityUseCase.SessionRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for session repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return identityRepository.NewPostgreSQLSessionRepository(db), nil
	case "mysql":
		return identityRepository.NewMySQLSessionRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initUserUseCase creates the user use case with all its dependencies.
func (c *Container) initUserUseCase() (identityUseCase.UserUseCase, error) {
	userRepo, err := c.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository for user use case: %w", err)
	}

	return identityUseCase.NewUserUseCase(userRepo, c.PasswordService()), nil
}

// initSessionUseCase creates the session use case with all its dependencies.
func (c *Container) initSessionUseCase() (identityUseCase.SessionUseCase, error) {
	userRepo, err := c.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository for session use case: %w", err)
	}

	sessionRepo, err := c.SessionRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get session repository for session use case: %w", err)
	}

	return identityUseCase.NewSessionUseCase(
		c.config,
		userRepo,
		sessionRepo,
		c.PasswordService(),
		c.TokenService(),
		c.CSRFGuard(),
		c.LoginLockout(),
	), nil
}

// initAuthHandler creates the auth HTTP handler with all its dependencies.
func (c *Container) initAuthHandler() (*identityHTTP.AuthHandler, error) {
	sessionUseCase, err := c.SessionUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get session use case for auth handler: %w", err)
	}

	auditLogUseCase, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for auth handler: %w", err)
	}

	return identityHTTP.NewAuthHandler(sessionUseCase, auditLogUseCase, c.Logger()), nil
}
