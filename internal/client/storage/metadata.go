package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/auctionchat/internal/dbx"
)

// Metadata keys used by the CLI.
const (
	KeyLastUser  = "last_user"
	KeyLastToken = "last_token"
	KeyUserID    = "user_id"
)

type MetadataRepository struct {
	db dbx.DBTX
}

func NewMetadataRepository(db dbx.DBTX) *MetadataRepository {
	return &MetadataRepository{db: db}
}

// Get returns (nil, nil) for a missing key.
func (r *MetadataRepository) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := dbx.From(ctx, r.db).QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get metadata[%s]: %w", key, err)
	}
	return value, nil
}

func (r *MetadataRepository) Set(ctx context.Context, key string, value []byte) error {
	_, err := dbx.From(ctx, r.db).ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	if err != nil {
		return fmt.Errorf("failed to set metadata[%s]: %w", key, err)
	}
	return nil
}

func (r *MetadataRepository) Delete(ctx context.Context, key string) error {
	_, err := dbx.From(ctx, r.db).ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("failed to delete metadata[%s]: %w", key, err)
	}
	return nil
}
