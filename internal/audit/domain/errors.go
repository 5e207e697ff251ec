package domain

import (
	"github.com/allisson/vaultadmin/internal/errors"
)

// Audit error definitions.
var (
	// ErrChainBroken indicates an audit entry whose signature does not match
	// its contents or its predecessor.
	ErrChainBroken = errors.New("audit chain verification failed")
)
