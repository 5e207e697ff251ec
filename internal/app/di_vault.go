package app

import (
	"fmt"

	vaultHTTP "github.com/allisson/vaultadmin/internal/vault/http"
	vaultRepository "github.com/allisson/vaultadmin/internal/vault/repository"
	vaultUseCase "github.com/allisson/vaultadmin/internal/vault/usecase"
)

// RecordRepository returns the credential record repository based on database driver.
func (c *Container) RecordRepository() (vaultUseCase.RecordRepository, error) {
	var err error
	c.recordRepoInit.Do(func() {
		c.recordRepo, err = c.initRecordRepository()
		if err != nil {
			c.initErrors["recordRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["recordRepo"]; exists {
		return nil, storedErr
	}
	return c.recordRepo, nil
}

// AssignmentRepository returns the service assignment repository based on database driver.
func (c *Container) AssignmentRepository() (vaultUseCase.AssignmentRepository, error) {
	var err error
	c.assignmentRepoInit.Do(func() {
		c.assignmentRepo, err = c.initAssignmentRepository()
		if err != nil {
			c.initErrors["assignmentRepo"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["assignmentRepo"]; exists {
		return nil, storedErr
	}
	return c.assignmentRepo, nil
}

// RecordUseCase returns the credential record use case.
func (c *Container) RecordUseCase() (vaultUseCase.RecordUseCase, error) {
	var err error
	c.recordUseCaseInit.Do(func() {
		c.recordUseCase, err = c.initRecordUseCase()
		if err != nil {
			c.initErrors["recordUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["recordUseCase"]; exists {
		return nil, storedErr
	}
	return c.recordUseCase, nil
}

// AssignmentUseCase returns the service assignment use case.
func (c *Container) AssignmentUseCase() (vaultUseCase.AssignmentUseCase, error) {
	var err error
	c.assignmentUseCaseInit.Do(func() {
		c.assignmentUseCase, err = c.initAssignmentUseCase()
		if err != nil {
			c.initErrors["assignmentUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["assignmentUseCase"]; exists {
		return nil, storedErr
	}
	return c.assignmentUseCase, nil
}

// KeyRotationUseCase returns the vault key rotation use case.
func (c *Container) KeyRotationUseCase() (vaultUseCase.KeyRotationUseCase, error) {
	var err error
	c.keyRotationUseCaseInit.Do(func() {
		c.keyRotationUseCase, err = c.initKeyRotationUseCase()
		if err != nil {
			c.initErrors["keyRotationUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["keyRotationUseCase"]; exists {
		return nil, storedErr
	}
	return c.keyRotationUseCase, nil
}

// RecordHandler returns the HTTP handler for credential record operations.
func (c *Container) RecordHandler() (*vaultHTTP.RecordHandler, error) {
	var err error
	c.recordHandlerInit.Do(func() {
		c.recordHandler, err = c.initRecordHandler()
		if err != nil {
			c.initErrors["recordHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["recordHandler"]; exists {
		return nil, storedErr
	}
	return c.recordHandler, nil
}

// AssignmentHandler returns the HTTP handler for service assignment operations.
func (c *Container) AssignmentHandler() (*vaultHTTP.AssignmentHandler, error) {
	var err error
	c.assignmentHandlerInit.Do(func() {
		c.assignmentHandler, err = c.initAssignmentHandler()
		if err != nil {
			c.initErrors["assignmentHandler"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["assignmentHandler"]; exists {
		return nil, storedErr
	}
	return c.assignmentHandler, nil
}

// initRecordRepository creates the record repository based on the database driver.
func (c *Container) initRecordRepository() (vaultUseCase.RecordRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for record repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return vaultRepository.NewPostgreSQLRecordRepository(db), nil
	case "mysql":
		return vaultRepository.NewMySQLRecordRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initAssignmentRepository creates the assignment repository based on the database driver.
func (c *Container) initAssignmentRepository() (vaultUseCase.AssignmentRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for assignment repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return vaultRepository.NewPostgreSQLAssignmentRepository(db), nil
	case "mysql":
		return vaultRepository.NewMySQLAssignmentRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// initRecordUseCase creates the record use case with all its dependencies.
func (c *Container) initRecordUseCase() (vaultUseCase.RecordUseCase, error) {
	recordRepo, err := c.RecordRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get record repository for record use case: %w", err)
	}

	assignmentRepo, err := c.AssignmentRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment repository for record use case: %w", err)
	}

	cipher, err := c.Cipher()
	if err != nil {
		return nil, fmt.Errorf("failed to get cipher for record use case: %w", err)
	}

	baseUseCase := vaultUseCase.NewRecordUseCase(recordRepo, assignmentRepo, cipher)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for record use case: %w", err)
		}
		return vaultUseCase.NewRecordUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initAssignmentUseCase creates the assignment use case with all its dependencies.
func (c *Container) initAssignmentUseCase() (vaultUseCase.AssignmentUseCase, error) {
	assignmentRepo, err := c.AssignmentRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment repository for assignment use case: %w", err)
	}

	recordRepo, err := c.RecordRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get record repository for assignment use case: %w", err)
	}

	userRepo, err := c.UserRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get user repository for assignment use case: %w", err)
	}

	return vaultUseCase.NewAssignmentUseCase(assignmentRepo, recordRepo, userRepo), nil
}

// initKeyRotationUseCase creates the key rotation use case with all its dependencies.
func (c *Container) initKeyRotationUseCase() (vaultUseCase.KeyRotationUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for key rotation use case: %w", err)
	}

	recordRepo, err := c.RecordRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get record repository for key rotation use case: %w", err)
	}

	cipher, err := c.Cipher()
	if err != nil {
		return nil, fmt.Errorf("failed to get cipher for key rotation use case: %w", err)
	}

	return vaultUseCase.NewKeyRotationUseCase(txManager, recordRepo, cipher), nil
}

// initRecordHandler creates the record HTTP handler with all its dependencies.
func (c *Container) initRecordHandler() (*vaultHTTP.RecordHandler, error) {
	recordUseCase, err := c.RecordUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get record use case for record handler: %w", err)
	}

	auditLogUseCase, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for record handler: %w", err)
	}

	return vaultHTTP.NewRecordHandler(recordUseCase, auditLogUseCase, c.Logger()), nil
}

// initAssignmentHandler creates the assignment HTTP handler with all its dependencies.
func (c *Container) initAssignmentHandler() (*vaultHTTP.AssignmentHandler, error) {
	assignmentUseCase, err := c.AssignmentUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment use case for assignment handler: %w", err)
	}

	auditLogUseCase, err := c.AuditLogUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit log use case for assignment handler: %w", err)
	}

	return vaultHTTP.NewAssignmentHandler(assignmentUseCase, auditLogUseCase, c.Logger()), nil
}
