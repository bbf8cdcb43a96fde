package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists flows by session. Get returns a new flow for an unknown
// session.
type Store interface {
	Get(ctx context.Context, sessionID string) (*Flow, error)
	Save(ctx context.Context, flow *Flow) error
}

// MemoryStore keeps flows in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	flows map[string]Flow
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{flows: make(map[string]Flow)}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*Flow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.flows[sessionID]
	if !ok {
		return New(sessionID), nil
	}
	f.UsedReferences = append([]string(nil), f.UsedReferences...)
	return &f, nil
}

func (s *MemoryStore) Save(_ context.Context, flow *Flow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := *flow
	f.UsedReferences = append([]string(nil), flow.UsedReferences...)
	s.flows[flow.SessionID] = f
	return nil
}

// RedisStore keeps flows in redis as JSON.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a RedisStore. Flows expire ttl after their last save.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, sessionID string) (*Flow, error) {
	data, err := s.client.Get(ctx, flowKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return New(sessionID), nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}
	var f Flow
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("unmarshal checkout flow failed: %w", err)
	}
	return &f, nil
}

func (s *RedisStore) Save(ctx context.Context, flow *Flow) error {
	data, err := json.Marshal(flow)
	if err != nil {
		return fmt.Errorf("marshal checkout flow failed: %w", err)
	}
	if err := s.client.Set(ctx, flowKey(flow.SessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func flowKey(sessionID string) string {
	return fmt.Sprintf("checkout:%s", sessionID)
}
