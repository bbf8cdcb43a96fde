package cart

import (
	"context"
	"sync"
)

// MemoryStore keeps carts in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[string]Cart
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string]Cart)}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (*Cart, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.carts[sessionID]
	if !ok {
		return New(sessionID), nil
	}
	c.Items = append([]Item{}, c.Items...)
	return &c, nil
}

func (s *MemoryStore) Save(_ context.Context, cart *Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := *cart
	c.Items = append([]Item{}, cart.Items...)
	s.carts[cart.SessionID] = c
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.carts, sessionID)
	return nil
}
