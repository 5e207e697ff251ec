package app

import (
	"fmt"

	ssoHTTP "github.com/allisson/vaultadmin/internal/sso/http"
	ssoRepository "github.com/allisson/vaultadmin/internal/sso/repository"
	ssoService "github.com/allisson/vaultadmin/internal/sso/service"
	ssoUseCase "github.com/allisson/vaultadmin/internal/sso/usecase"
)

// TokenStore returns the ephemeral SSO token store. Redis is used when
// enabled, otherwise an in-memory store scoped to the process.
func (c *Container) TokenStore() ssoUseCase.TokenStore {
	c.tokenStoreInit.Do(func() {
		if c.config.RedisEnabled {
			c.tokenStore = ssoRepository.NewRedisTokenStore(c.RedisClient())
			return
		}
		c.memoryTokenStore = ssoRepository.NewMemoryTokenStore()
		c.tokenStore = c.memoryTokenStore
	})
	return c.tokenStore
}

// UpstreamClient returns the HTTP client for the external system's login endpoint.
func (c *Container) UpstreamClient() ssoService.UpstreamClient {
	c.upstreamClientInit.Do(func() {
		c.upstreamClient = ssoService.NewHTTPUpstreamClient(
			c.config.SSOUpstreamURL,
			c.config.SSOUpstreamConnectTimeout,
			c.config.SSOUpstreamTimeout,
		)
	})
	return c.upstreamClient
}

// BrokerUseCase returns the SSO token broker use case.
func (c *Container) BrokerUseCase() (ssoUseCase.BrokerUseCase, error) {
	var err error
	c.brokerUseCaseInit.Do(func() {
		c.brokerUseCase, err = c.initBrokerUseCase()
		if err != nil {
			c.initErrors["brokerUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["brokerUseCase"]; exists {
		return nil, storedErr
	}
	return c.brokerUseCase, nil
}

// SSOHandler returns the HTTP handler for SSO launch, redeem, and proxy.
func (c *Container) SSOHandler() (*ssoHTTP.SSOHandler, error) {
	var err error
	c.ssoHandlerInit.Do(func() {
		c.ssoHandler, err = c.initSSOHandler()
		if err != nil {
			c.initErrors["ssoHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["ssoHandler"]; exists {
		return nil, storedErr
	}
	return c.ssoHandler, nil
}

// initBrokerUseCase creates the broker use case with all its dependencies.
func (c *Container) initBrokerUseCase() (ssoUseCase.BrokerUseCase, error) {
	if c.config.SSOBrokerSecret == "" {
		return nil, fmt.Errorf("sso broker secret is not configured")
	}

	recordUseCase, err := c.RecordUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get record use case for broker use case: %w", err)
	}

	baseUseCase := ssoUseCase.NewBrokerUseCase(
		c.TokenStore(),
		recordUseCase,
		c.UpstreamClient(),
		ssoUseCase.BrokerConfig{
			BrokerSecret:       c.config.SSOBrokerSecret,
			TokenTTL:           c.config.SSOTokenTTL,
			LockoutMaxAttempts: c.config.LockoutMaxAttempts,
			LockoutDuration:    c.config.LockoutDuration,
			RedirectURL:        c.config.SSOUpstreamRedirectURL,
		},
	)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for broker use case: %w", err)
		}
		return ssoUseCase.NewBrokerUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initSSOHandler creates the SSO HTTP handler with all its dependencies.
func (c *Container) initSSOHandler() (*ssoHTTP.SSOHandler, error) {
	brokerUseCase, err := c.BrokerUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get broker use case for sso handler: %w", err)
	}

	auditLogUseCase, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for sso handler: %w", err)
	}

	return ssoHTTP.NewSSOHandler(brokerUseCase, auditLogUseCase, c.Logger()), nil
}
