package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLock(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := NewLocalLock()
	l.now = func() time.Time { return now }

	ok, err := l.Acquire(ctx, "refuel:fee_wallet:1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = l.Acquire(ctx, "refuel:fee_wallet:1", time.Minute)
	assert.False(t, ok, "held lock must not be acquired twice")

	ok, _ = l.Acquire(ctx, "refuel:fee_wallet:2", time.Minute)
	assert.True(t, ok, "different keys never contend")

	now = now.Add(2 * time.Minute)
	ok, _ = l.Acquire(ctx, "refuel:fee_wallet:1", time.Minute)
	assert.True(t, ok, "expired lock is free again")

	require.NoError(t, l.Release(ctx, "refuel:fee_wallet:1"))
	ok, _ = l.Acquire(ctx, "refuel:fee_wallet:1", time.Minute)
	assert.True(t, ok)
}

var (
	_ DistributedLock = (*RedisLock)(nil)
	_ DistributedLock = (*LocalLock)(nil)
)
