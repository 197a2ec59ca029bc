package pins

import (
	"context"
	"sync"
)

type key struct{ user, conversation string }

type MemoryRepository struct {
	mu   sync.RWMutex
	pins map[key]bool
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{pins: make(map[key]bool)}
}

func (r *MemoryRepository) Set(_ context.Context, userID, conversationID string, pinned bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pins[key{userID, conversationID}] = pinned
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, userID, conversationID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.pins[key{userID, conversationID}], nil
}
