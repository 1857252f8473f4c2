package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v8"
)

// DefaultLockExpiry bounds how long a crashed client can hold a lock.
const DefaultLockExpiry = 8 * time.Second

// LockName is the distributed mutex name guarding a record.
func LockName(path string) string {
	return "lockroom:" + CleanPath(path)
}

// RedsyncLocker is a Locker backed by redsync mutexes.
type RedsyncLocker struct {
	rs     *redsync.Redsync
	expiry time.Duration
}

// NewRedsyncLocker creates a locker on rdb. A non-positive expiry uses
// DefaultLockExpiry.
func NewRedsyncLocker(rdb *redis.Client, expiry time.Duration) *RedsyncLocker {
	if expiry <= 0 {
		expiry = DefaultLockExpiry
	}
	pool := goredis.NewPool(rdb)
	return &RedsyncLocker{rs: redsync.New(pool), expiry: expiry}
}

// Lock implements Locker.
func (l *RedsyncLocker) Lock(ctx context.Context, name string) (func(), error) {
	mutex := l.rs.NewMutex(LockName(name), redsync.WithExpiry(l.expiry))
	if err := mutex.LockContext(ctx); err != nil {
		return nil, fmt.Errorf("realtime: lock %s: %w", name, err)
	}
	return func() {
		_, _ = mutex.UnlockContext(context.Background())
	}, nil
}
