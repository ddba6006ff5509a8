package locker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLocker is a single-process lock registry used when no redis
// instance is configured.
type MemoryLocker struct {
	mu    sync.Mutex
	held  map[string]memoryLock
	nowFn func() time.Time
}

type memoryLock struct {
	token     string
	expiresAt time.Time
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{
		held:  make(map[string]memoryLock),
		nowFn: time.Now,
	}
}

func (l *MemoryLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	if key == "" {
		return "", false, errors.New("lock key is empty")
	}
	if ttl <= 0 {
		return "", false, errors.New("lock ttl must be positive")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFn()
	if existing, ok := l.held[key]; ok && existing.expiresAt.After(now) {
		return "", false, nil
	}

	token := uuid.NewString()
	l.held[key] = memoryLock{token: token, expiresAt: now.Add(ttl)}
	return token, true, nil
}

func (l *MemoryLocker) Release(ctx context.Context, key, token string) error {
	_ = ctx
	if key == "" || token == "" {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.held[key]; ok && existing.token == token {
		delete(l.held, key)
	}
	return nil
}

var _ Locker = (*MemoryLocker)(nil)
