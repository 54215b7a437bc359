package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache is a JSON value cache.
type Cache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	// Get unmarshals the cached value into target
	Get(ctx context.Context, key string, target interface{}) error
	Delete(ctx context.Context, key string) error
}
