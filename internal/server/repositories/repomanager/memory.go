package repomanager

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/auctionchat/internal/dbx"
	"github.com/dmitrijs2005/auctionchat/internal/server/repositories/messages"
	"github.com/dmitrijs2005/auctionchat/internal/server/repositories/pins"
	"github.com/dmitrijs2005/auctionchat/internal/server/repositories/tickets"
	"github.com/dmitrijs2005/auctionchat/internal/server/repositories/users"
)

// MemoryRepositoryManager serves one shared set of in-memory repositories
// regardless of the DBTX passed. WithTx serializes units of work; it does
// not roll back.
type MemoryRepositoryManager struct {
	mu       sync.Mutex
	users    *users.MemoryRepository
	messages *messages.MemoryRepository
	pins     *pins.MemoryRepository
	tickets  *tickets.MemoryRepository
}

func NewMemoryRepositoryManager() *MemoryRepositoryManager {
	return &MemoryRepositoryManager{
		users:    users.NewMemoryRepository(),
		messages: messages.NewMemoryRepository(),
		pins:     pins.NewMemoryRepository(),
		tickets:  tickets.NewMemoryRepository(),
	}
}

func (m *MemoryRepositoryManager) RunMigrations(context.Context) error { return nil }

func (m *MemoryRepositoryManager) Users(dbx.DBTX) users.Repository       { return m.users }
func (m *MemoryRepositoryManager) Messages(dbx.DBTX) messages.Repository { return m.messages }
func (m *MemoryRepositoryManager) Pins(dbx.DBTX) pins.Repository         { return m.pins }
func (m *MemoryRepositoryManager) Tickets(dbx.DBTX) tickets.Repository   { return m.tickets }

func (m *MemoryRepositoryManager) DB() dbx.DBTX { return nil }

func (m *MemoryRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(ctx, nil)
}

func (m *MemoryRepositoryManager) Close() error { return nil }
