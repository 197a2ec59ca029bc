package messages

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/auctionchat/internal/common"
	"github.com/dmitrijs2005/auctionchat/internal/server/models"
)

// MemoryRepository keeps messages in process memory. Messages of a
// conversation are held in insertion order.
type MemoryRepository struct {
	mu     sync.RWMutex
	byID   map[string]*models.Message
	byConv map[string][]*models.Message
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		byID:   make(map[string]*models.Message),
		byConv: make(map[string][]*models.Message),
	}
}

func (r *MemoryRepository) Create(_ context.Context, m *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[m.ID]; ok {
		return common.ErrAlreadyExists
	}
	if m.ClientID != "" {
		for _, other := range r.byConv[m.ConversationID] {
			if other.SenderID == m.SenderID && other.ClientID == m.ClientID {
				return common.ErrAlreadyExists
			}
		}
	}
	cp := *m
	r.byID[m.ID] = &cp
	r.byConv[m.ConversationID] = append(r.byConv[m.ConversationID], &cp)
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *MemoryRepository) GetByClientID(_ context.Context, senderID, clientID string) (*models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.byID {
		if m.SenderID == senderID && m.ClientID == clientID && clientID != "" {
			cp := *m
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *MemoryRepository) MarkDeleted(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	m.Deleted = true
	m.Body, m.FileURL, m.FileName, m.FileType, m.FileSize = "", "", "", "", 0
	return nil
}

func (r *MemoryRepository) MarkRead(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.byID[id]
	if !ok || m.Read {
		return false, nil
	}
	m.Read = true
	return true, nil
}

func (r *MemoryRepository) ListRecent(_ context.Context, conversationID string, limit int) ([]*models.Message, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	all := make([]*models.Message, 0, len(r.byConv[conversationID]))
	for _, m := range r.byConv[conversationID] {
		cp := *m
		all = append(all, &cp)
	}
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	if limit >= 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}
