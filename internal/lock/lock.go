// Package lock provides mutual exclusion keyed by string across service instances.
package lock

import (
	"context"
	"errors"
)

// ErrNotAcquired is returned when the lock could not be taken before the context ended.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker hands out exclusive leases on keys. The returned release function is
// safe to call once; leases also expire on their own after the configured TTL.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}
