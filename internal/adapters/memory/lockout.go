package memory

import (
	"context"
	"sync"
	"time"

	"github.com/sponticoupon/claim-redemption-service/internal/ports"
)

type lockoutEntry struct {
	state     ports.LockoutState
	expiresAt time.Time
}

// LockoutStore is a process-local lockout store for single-instance runs
// without Redis. Counters reset once the lockout window passes.
type LockoutStore struct {
	mu      sync.Mutex
	entries map[string]lockoutEntry
	nowFn   func() time.Time
}

func NewLockoutStore() *LockoutStore {
	return &LockoutStore{
		entries: make(map[string]lockoutEntry),
		nowFn:   time.Now,
	}
}

func (s *LockoutStore) Get(_ context.Context, key string) (ports.LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok || !s.nowFn().Before(entry.expiresAt) {
		delete(s.entries, key)
		return ports.LockoutState{}, nil
	}
	return entry.state, nil
}

func (s *LockoutStore) RecordFailure(_ context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (ports.LockoutState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[key]
	if !ok || !s.nowFn().Before(entry.expiresAt) {
		entry = lockoutEntry{expiresAt: s.nowFn().Add(lockoutWindow)}
	}
	entry.state.FailedCount++
	if entry.state.FailedCount >= threshold {
		lockedUntil := now.Add(lockoutWindow).UTC()
		entry.state.LockedUntil = &lockedUntil
		entry.expiresAt = s.nowFn().Add(lockoutWindow)
	}
	s.entries[key] = entry
	return entry.state, nil
}

func (s *LockoutStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}
