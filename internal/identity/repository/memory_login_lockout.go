package repository

import (
	"context"
	"sync"
	"time"
)

// lockoutSweepInterval is how often expired counters and locks are removed.
const lockoutSweepInterval = 30 * time.Second

type failureEntry struct {
	count     int64
	expiresAt time.Time
}

// MemoryLoginLockout tracks failed login attempts in process memory for
// single-instance deployments and tests.
type MemoryLoginLockout struct {
	mu       sync.Mutex
	failures map[string]failureEntry
	locks    map[string]time.Time
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// IncrementFailures bumps the email's failure counter and returns the new
// count.
func (m *MemoryLoginLockout) IncrementFailures(
	_ context.Context,
	email string,
	window time.Duration,
) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	entry, ok := m.failures[email]
	if !ok || now.After(entry.expiresAt) {
		entry = failureEntry{}
	}
	entry.count++
	entry.expiresAt = now.Add(window)
	m.failures[email] = entry
	return entry.count, nil
}

// ResetFailures clears the email's failure counter.
func (m *MemoryLoginLockout) ResetFailures(_ context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.failures, email)
	return nil
}

// Lock marks the email locked out of logging in for the duration.
func (m *MemoryLoginLockout) Lock(_ context.Context, email string, duration time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.locks[email] = m.now().Add(duration)
	return nil
}

// IsLocked reports whether the email is currently locked out.
func (m *MemoryLoginLockout) IsLocked(_ context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	until, ok := m.locks[email]
	if !ok {
		return false, nil
	}
	if m.now().After(until) {
		delete(m.locks, email)
		return false, nil
	}
	return true, nil
}

// Close stops the background expiry sweep.
func (m *MemoryLoginLockout) Close() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *MemoryLoginLockout) sweep() {
	ticker := time.NewTicker(lockoutSweepInterval)
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

func (m *MemoryLoginLockout) removeExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for email, entry := range m.failures {
		if now.After(entry.expiresAt) {
			delete(m.failures, email)
		}
	}
	for email, until := range m.locks {
		if now.After(until) {
			delete(m.locks, email)
		}
	}
}

// NewMemoryLoginLockout creates a new in-memory login lockout and starts its
// expiry sweep.
func NewMemoryLoginLockout() *MemoryLoginLockout {
	lockout := &MemoryLoginLockout{
		failures: make(map[string]failureEntry),
		locks:    make(map[string]time.Time),
		now:      time.Now,
		stop:     make(chan struct{}),
	}
	go lockout.sweep()
	return lockout
}
