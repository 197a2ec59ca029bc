package repomanager

import (
	"context"

	"github.com/dmitrijs2005/auctionchat/internal/dbx"
	"github.com/dmitrijs2005/auctionchat/internal/server/repositories/messages"
	"github.com/dmitrijs2005/auctionchat/internal/server/repositories/pins"
	"github.com/dmitrijs2005/auctionchat/internal/server/repositories/tickets"
	"github.com/dmitrijs2005/auctionchat/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX and runs units of
// work. DB returns the handle to pass outside a transaction.
type RepositoryManager interface {
	RunMigrations(ctx context.Context) error
	Users(db dbx.DBTX) users.Repository
	Messages(db dbx.DBTX) messages.Repository
	Pins(db dbx.DBTX) pins.Repository
	Tickets(db dbx.DBTX) tickets.Repository
	DB() dbx.DBTX
	WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error
	Close() error
}
