package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestLockerExcludesSecondHolder(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	locker := NewLocker(rdb)
	ctx := context.Background()

	release, err := locker.Acquire(ctx, "sierra:test:lock", time.Minute)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx, "sierra:test:lock", time.Minute)
	require.ErrorIs(t, err, ErrLockNotObtained)

	release(ctx)

	release, err = locker.Acquire(ctx, "sierra:test:lock", time.Minute)
	require.NoError(t, err)
	release(ctx)
}

func TestLockerExpiresAfterTTL(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	locker := NewLocker(rdb)
	ctx := context.Background()

	_, err := locker.Acquire(ctx, "sierra:ttl:lock", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	release, err := locker.Acquire(ctx, "sierra:ttl:lock", time.Second)
	require.NoError(t, err)
	release(ctx)
}
