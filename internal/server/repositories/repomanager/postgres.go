// Package repomanager provides RepositoryManager implementations for
// PostgreSQL and for process memory.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmitrijs2005/auctionchat/internal/dbx"
	"github.com/dmitrijs2005/auctionchat/internal/server/migrations"
	"github.com/dmitrijs2005/auctionchat/internal/server/repositories/messages"
	"github.com/dmitrijs2005/auctionchat/internal/server/repositories/pins"
	"github.com/dmitrijs2005/auctionchat/internal/server/repositories/tickets"
	"github.com/dmitrijs2005/auctionchat/internal/server/repositories/users"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

// PostgresRepositoryManager vends PostgreSQL-backed repositories.
type PostgresRepositoryManager struct {
	db *sql.DB
}

// Users returns a users.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewPostgresRepository(db)
}

// Messages returns a messages.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Messages(db dbx.DBTX) messages.Repository {
	return messages.NewPostgresRepository(db)
}

// Pins returns a pins.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Pins(db dbx.DBTX) pins.Repository {
	return pins.NewPostgresRepository(db)
}

// Tickets returns a tickets.Repository bound to the provided DBTX.
func (m *PostgresRepositoryManager) Tickets(db dbx.DBTX) tickets.Repository {
	return tickets.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) DB() dbx.DBTX {
	return m.db
}

func (m *PostgresRepositoryManager) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) error {
	return dbx.WithTx(ctx, m.db, nil, fn)
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// RunMigrations sets up goose with the embedded migrations and applies them.
func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := gooseUpContext(ctx, m.db, "."); err != nil {
		return err
	}
	return nil
}

// NewPostgresRepositoryManager wraps an open database handle.
func NewPostgresRepositoryManager(db *sql.DB) *PostgresRepositoryManager {
	return &PostgresRepositoryManager{db: db}
}

// OpenPostgres connects with the pgx driver and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string) (*PostgresRepositoryManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return NewPostgresRepositoryManager(db), nil
}
