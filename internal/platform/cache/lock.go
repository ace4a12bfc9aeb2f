package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// ErrLockNotObtained is returned when another holder owns the key.
var ErrLockNotObtained = errors.New("platform/cache: lock not obtained")

// Locker hands out short-lived distributed locks backed by redis.
type Locker struct {
	client *redislock.Client
}

// NewLocker wraps a redis client.
func NewLocker(rdb *redis.Client) *Locker {
	return &Locker{client: redislock.New(rdb)}
}

// Acquire obtains key for ttl without retrying. The returned release func is safe to call once.
func (l *Locker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(context.Context), error) {
	if l == nil || l.client == nil {
		return nil, errors.New("platform/cache: locker not configured")
	}
	lock, err := l.client.Obtain(ctx, key, ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, ErrLockNotObtained
	}
	if err != nil {
		return nil, fmt.Errorf("platform/cache: obtain %s: %w", key, err)
	}
	return func(ctx context.Context) {
		_ = lock.Release(ctx)
	}, nil
}
