package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DistributedLock is a cross-process mutual exclusion primitive.
type DistributedLock interface {
	// Acquire tries to take the lock once, it never waits.
	// key: lock name, ttl: expiry guarding against crashed holders
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release frees a lock taken by this instance.
	Release(ctx context.Context, key string) error
}

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLock implements DistributedLock with SET NX and a token-checked release.
type RedisLock struct {
	client *redis.Client
	tokens sync.Map // key -> token
}

func NewRedisLock(client *redis.Client) *RedisLock {
	return &RedisLock{client: client}
}

func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	// SET lock:<key> <token> NX PX ttl
	ok, err := l.client.SetNX(ctx, "lock:"+key, token, ttl).Result()
	if err != nil {
		return false, err
	}
	if ok {
		l.tokens.Store(key, token)
	}
	return ok, nil
}

func (l *RedisLock) Release(ctx context.Context, key string) error {
	token, ok := l.tokens.LoadAndDelete(key)
	if !ok {
		return nil
	}
	return releaseScript.Run(ctx, l.client, []string{"lock:" + key}, token).Err()
}
