// Package storage is the client's local SQLite cache: recent messages per
// conversation and a small key/value metadata table.
package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/auctionchat/internal/client/storage/migrations"
	"github.com/dmitrijs2005/auctionchat/internal/filex"
)

type DB struct {
	db       *sql.DB
	Messages *MessageRepository
	Metadata *MetadataRepository
}

func RunMigrations(ctx context.Context, db *sql.DB) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, ".")
}

// Open opens (creating when needed) the cache at dsn and migrates it.
// ":memory:" gives a throwaway cache.
func Open(ctx context.Context, dsn string) (*DB, error) {
	if dsn != ":memory:" {
		if err := filex.EnsureParentDir(dsn); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// one connection: a :memory: database is per connection, and SQLite
	// serializes writers anyway
	db.SetMaxOpenConns(1)

	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate cache: %w", err)
	}
	return &DB{
		db:       db,
		Messages: NewMessageRepository(db),
		Metadata: NewMetadataRepository(db),
	}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}
