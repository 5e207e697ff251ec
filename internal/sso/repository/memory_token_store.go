package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/vaultadmin/internal/errors"
	ssoDomain "github.com/allisson/vaultadmin/internal/sso/domain"
)

// sweepInterval is how often expired entries are removed.
const sweepInterval = 30 * time.Second

type memoryEntry struct {
	token     *ssoDomain.Token
	expiresAt time.Time
}

type counterEntry struct {
	count     int64
	expiresAt time.Time
}

// MemoryTokenStore implements the SSO token store in process memory for
// single-instance deployments and tests. Consumption holds the mutex across
// lookup and delete, so it has the same single-use guarantee as GETDEL.
type MemoryTokenStore struct {
	mu       sync.Mutex
	tokens   map[string]memoryEntry
	failures map[uuid.UUID]counterEntry
	locks    map[uuid.UUID]time.Time
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// Put stores a token under its session and value with the given TTL.
func (m *MemoryTokenStore) Put(_ context.Context, token *ssoDomain.Token, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.tokens[tokenKey(token.SessionID, token.Value)] = memoryEntry{
		token:     token,
		expiresAt: m.now().Add(ttl),
	}
	return nil
}

// GetDelete atomically consumes a token. Returns ErrNotFound when the token
// is absent or already swept.
func (m *MemoryTokenStore) GetDelete(
	_ context.Context,
	sessionID uuid.UUID,
	value string,
) (*ssoDomain.Token, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := tokenKey(sessionID, value)
	entry, ok := m.tokens[key]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	delete(m.tokens, key)

	if m.now().After(entry.expiresAt) {
		return nil, apperrors.ErrNotFound
	}
	return entry.token, nil
}

// IncrementFailures bumps the session's decrypt failure counter and returns
// the new count.
func (m *MemoryTokenStore) IncrementFailures(
	_ context.Context,
	sessionID uuid.UUID,
	window time.Duration,
) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entry, ok := m.failures[sessionID]
	if !ok || now.After(entry.expiresAt) {
		entry = counterEntry{}
	}
	entry.count++
	entry.expiresAt = now.Add(window)
	m.failures[sessionID] = entry
	return entry.count, nil
}

// ResetFailures clears the session's decrypt failure counter.
func (m *MemoryTokenStore) ResetFailures(_ context.Context, sessionID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.failures, sessionID)
	return nil
}

// Lock marks the session locked out of issuing tokens for the duration.
func (m *MemoryTokenStore) Lock(_ context.Context, sessionID uuid.UUID, duration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.locks[sessionID] = m.now().Add(duration)
	return nil
}

// IsLocked reports whether the session is currently locked out.
func (m *MemoryTokenStore) IsLocked(_ context.Context, sessionID uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	until, ok := m.locks[sessionID]
	if !ok {
		return false, nil
	}
	if m.now().After(until) {
		delete(m.locks, sessionID)
		return false, nil
	}
	return true, nil
}

// Close stops the background expiry sweep.
func (m *MemoryTokenStore) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *MemoryTokenStore) sweep() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.removeExpired()
		case <-m.stop:
			return
		}
	}
}

func (m *MemoryTokenStore) removeExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for key, entry := range m.tokens {
		if now.After(entry.expiresAt) {
			delete(m.tokens, key)
		}
	}
	for sessionID, entry := range m.failures {
		if now.After(entry.expiresAt) {
			delete(m.failures, sessionID)
		}
	}
	for sessionID, until := range m.locks {
		if now.After(until) {
			delete(m.locks, sessionID)
		}
	}
}

// NewMemoryTokenStore creates a new in-memory token store and starts its
// expiry sweep.
func NewMemoryTokenStore() *MemoryTokenStore {
	store := &MemoryTokenStore{
		tokens:   make(map[string]memoryEntry),
		failures: make(map[uuid.UUID]counterEntry),
		locks:    make(map[uuid.UUID]time.Time),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go store.sweep()
	return store
}
