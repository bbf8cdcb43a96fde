package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisReferences claims payment references with SETNX so every API
// instance sees the same set.
type RedisReferences struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisReferences creates a registry whose claims expire after ttl.
func NewRedisReferences(client *redis.Client, ttl time.Duration) *RedisReferences {
	return &RedisReferences{client: client, ttl: ttl}
}

// Claim reserves reference and reports false if it was already claimed.
func (r *RedisReferences) Claim(ctx context.Context, reference string) (bool, error) {
	ok, err := r.client.SetNX(ctx, referenceKey(reference), time.Now().Unix(), r.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx failed: %w", err)
	}
	return ok, nil
}

func referenceKey(reference string) string {
	return fmt.Sprintf("payref:%s", reference)
}

// MemoryReferences is a single-process registry.
type MemoryReferences struct {
	mu      sync.Mutex
	ttl     time.Duration
	claimed map[string]time.Time
	now     func() time.Time
}

// NewMemoryReferences creates an in-memory registry whose claims expire after ttl.
func NewMemoryReferences(ttl time.Duration) *MemoryReferences {
	return &MemoryReferences{
		ttl:     ttl,
		claimed: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Claim reserves reference and reports false if it was already claimed.
func (m *MemoryReferences) Claim(_ context.Context, reference string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if expires, ok := m.claimed[reference]; ok && now.Before(expires) {
		return false, nil
	}
	m.claimed[reference] = now.Add(m.ttl)

	// Drop expired claims so the map stays bounded.
	for ref, expires := range m.claimed {
		if !now.Before(expires) {
			delete(m.claimed, ref)
		}
	}
	return true, nil
}
