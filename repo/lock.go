package repo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TargetLock serializes the evaluate→consume→create sequence for a
// single target (spec.md §5: "MUST be serialized (single-flight per
// target)"). Unlock is safe to call even if Lock failed or timed out.
type TargetLock interface {
	Lock(ctx context.Context, targetID string) (unlock func(), err error)
}

// RedisLock implements TargetLock with a SETNX-based distributed lock,
// exercising go-redis for the one piece of cross-process coordination
// the pipeline genuinely needs (an in-memory mutex only serializes
// within a single process, which is insufficient once Tier-3 workers
// run across replicas).
type RedisLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisLock creates a lock using client, holding each lock for ttl
// before it auto-expires (a safety net against a crashed holder).
func NewRedisLock(client *redis.Client, ttl time.Duration) *RedisLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLock{client: client, ttl: ttl}
}

func (l *RedisLock) Lock(ctx context.Context, targetID string) (func(), error) {
	key := fmt.Sprintf("pipeline:lock:target:%s", targetID)
	token := NewID()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return func() {}, fmt.Errorf("acquire target lock: %w", err)
	}
	if !ok {
		return func() {}, fmt.Errorf("target %s is already being evaluated", targetID)
	}

	unlock := func() {
		// Best-effort release; if this fails the TTL still reclaims the lock.
		val, err := l.client.Get(ctx, key).Result()
		if err == nil && val == token {
			_ = l.client.Del(ctx, key).Err()
		}
	}
	return unlock, nil
}

// InMemoryLock is a single-process TargetLock used in tests and
// single-replica deployments.
type InMemoryLock struct {
	mu      sync.Mutex
	perTarget map[string]*sync.Mutex
}

// NewInMemoryLock creates an empty in-memory lock table.
func NewInMemoryLock() *InMemoryLock {
	return &InMemoryLock{perTarget: make(map[string]*sync.Mutex)}
}

func (l *InMemoryLock) Lock(ctx context.Context, targetID string) (func(), error) {
	l.mu.Lock()
	m, ok := l.perTarget[targetID]
	if !ok {
		m = &sync.Mutex{}
		l.perTarget[targetID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock, nil
}

var _ TargetLock = (*RedisLock)(nil)
var _ TargetLock = (*InMemoryLock)(nil)
