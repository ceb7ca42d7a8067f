package ports

import (
	"context"
	"time"
)

// LockoutState is the current failure envelope for a lockout key.
type LockoutState struct {
	FailedCount int
	LockedUntil *time.Time
}

// Locked reports whether the key is locked at the given instant.
func (s LockoutState) Locked(now time.Time) bool {
	return s.LockedUntil != nil && now.Before(*s.LockedUntil)
}

// LockoutStore keeps short-lived brute-force counters for human-code guessing.
type LockoutStore interface {
	Get(ctx context.Context, key string) (LockoutState, error)
	RecordFailure(ctx context.Context, key string, now time.Time, threshold int, lockoutWindow time.Duration) (LockoutState, error)
	Clear(ctx context.Context, key string) error
}
