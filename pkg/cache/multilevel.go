package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"deposit-collector/pkg/logger"
)

// MultiLevelCache reads through L1 (memory) then L2 (redis).
type MultiLevelCache struct {
	local  Cache
	remote Cache
}

func NewMultiLevelCache(local, remote Cache) *MultiLevelCache {
	return &MultiLevelCache{
		local:  local,
		remote: remote,
	}
}

func (m *MultiLevelCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	// L1 lives half as long so instances converge on L2
	if err := m.local.Set(ctx, key, value, ttl/2); err != nil {
		logger.Warn("local cache set failed", zap.String("key", key), zap.Error(err))
	}
	return m.remote.Set(ctx, key, value, ttl)
}

func (m *MultiLevelCache) Get(ctx context.Context, key string, target interface{}) error {
	// 1. L1
	if err := m.local.Get(ctx, key, target); err == nil {
		return nil
	}

	// 2. L2, then backfill L1 briefly
	if err := m.remote.Get(ctx, key, target); err != nil {
		return ErrMiss
	}
	_ = m.local.Set(ctx, key, target, time.Minute)
	return nil
}

func (m *MultiLevelCache) Delete(ctx context.Context, key string) error {
	_ = m.local.Delete(ctx, key)
	return m.remote.Delete(ctx, key)
}
