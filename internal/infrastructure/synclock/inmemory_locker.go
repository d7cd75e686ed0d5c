package synclock

import (
	"context"
	"sync"

	"github.com/fbstrack/backend/internal/application/tracking"
)

// InMemoryLocker guards the sync run within a single process. Suitable for
// single-instance deployments and tests.
type InMemoryLocker struct {
	mu   sync.Mutex
	held bool
}

// NewInMemoryLocker creates a new in-memory sync locker
func NewInMemoryLocker() *InMemoryLocker {
	return &InMemoryLocker{}
}

// TryLock attempts to take the lock without waiting.
func (l *InMemoryLocker) TryLock(_ context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

// Unlock releases the lock. Releasing an unheld lock is a no-op.
func (l *InMemoryLocker) Unlock(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.held = false
	return nil
}

// Ensure InMemoryLocker implements the sync locker port
var _ tracking.Locker = (*InMemoryLocker)(nil)
