package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// Revoker remembers revoked token ids until the tokens would have expired.
// Revoke reports first=false when the id was already revoked, so callers can
// use it as an atomic check-and-revoke.
type Revoker interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) (first bool, err error)
	Revoked(ctx context.Context, tokenID string) (bool, error)
}

type MemoryRevoker struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMemoryRevoker() *MemoryRevoker {
	return &MemoryRevoker{entries: make(map[string]time.Time), now: time.Now}
}

func (m *MemoryRevoker) Revoke(_ context.Context, tokenID string, until time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, exp := range m.entries {
		if !exp.After(now) {
			delete(m.entries, id)
		}
	}
	if _, ok := m.entries[tokenID]; ok {
		return false, nil
	}
	if until.After(now) {
		m.entries[tokenID] = until
	}
	return true, nil
}

func (m *MemoryRevoker) Revoked(_ context.Context, tokenID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.entries[tokenID]
	return ok && exp.After(m.now()), nil
}

const redisKeyPrefix = "notejournal:revoked:"

// RedisRevoker shares revocations between server instances; keys expire with
// the token.
type RedisRevoker struct {
	client *redis.Client
}

func NewRedisRevoker(client *redis.Client) *RedisRevoker {
	return &RedisRevoker{client: client}
}

func (r *RedisRevoker) Revoke(ctx context.Context, tokenID string, until time.Time) (bool, error) {
	ttl := time.Until(until)
	if ttl <= 0 {
		return true, nil
	}
	first, err := r.client.SetNX(ctx, redisKeyPrefix+tokenID, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("revoke token: %w", err)
	}
	return first, nil
}

func (r *RedisRevoker) Revoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, redisKeyPrefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("check revoked token: %w", err)
	}
	return n > 0, nil
}
