package tickets

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/auctionchat/internal/server/models"
	"github.com/google/uuid"
)

type MemoryRepository struct {
	mu      sync.Mutex
	tickets []models.Ticket
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Create(_ context.Context, t *models.Ticket) (*models.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t.ID = uuid.NewString()
	t.Status = models.TicketStatusOpen
	t.CreatedAt = time.Now().UTC()
	r.tickets = append(r.tickets, *t)
	return t, nil
}

// Len returns the number of stored tickets.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tickets)
}
