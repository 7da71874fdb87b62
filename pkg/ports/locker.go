package ports

import (
	"context"
	"time"
)

// UnlockFunc releases a distributed lock.
type UnlockFunc func(ctx context.Context) error

// DistributedLocker coordinates snapshot writes across processes that share a
// store.
type DistributedLocker interface {
	// Lock blocks until the lock for key is acquired or ctx is done. The lock
	// expires after ttl if it is never released. The returned UnlockFunc must be
	// called to release it.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
