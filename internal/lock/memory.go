package lock

import (
	"context"
	"fmt"
	"sync"
)

// MemoryLocker is a process-local Locker for single-instance runs and tests.
type MemoryLocker struct {
	mu   sync.Mutex
	held map[string]chan struct{}
}

var _ Locker = (*MemoryLocker)(nil)

// NewMemoryLocker returns an empty process-local locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{held: make(map[string]chan struct{})}
}

// Acquire waits until key is free or ctx ends.
func (m *MemoryLocker) Acquire(ctx context.Context, key string) (func(), error) {
	for {
		m.mu.Lock()
		wait, busy := m.held[key]
		if !busy {
			done := make(chan struct{})
			m.held[key] = done
			m.mu.Unlock()

			var once sync.Once
			return func() {
				once.Do(func() {
					m.mu.Lock()
					delete(m.held, key)
					m.mu.Unlock()
					close(done)
				})
			}, nil
		}
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s: %v", ErrNotAcquired, key, ctx.Err())
		case <-wait:
		}
	}
}
