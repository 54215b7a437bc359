package lock

import (
	"context"
	"sync"
	"time"
)

// LocalLock is an in-process DistributedLock for single-instance tools and tests.
type LocalLock struct {
	mu    sync.Mutex
	until map[string]time.Time
	now   func() time.Time
}

func NewLocalLock() *LocalLock {
	return &LocalLock{until: make(map[string]time.Time), now: time.Now}
}

func (l *LocalLock) Acquire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if exp, held := l.until[key]; held && now.Before(exp) {
		return false, nil
	}
	l.until[key] = now.Add(ttl)
	return true, nil
}

func (l *LocalLock) Release(_ context.Context, key string) error {
	l.mu.Lock()
	delete(l.until, key)
	l.mu.Unlock()
	return nil
}
