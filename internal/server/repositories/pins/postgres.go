package pins

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/auctionchat/internal/dbx"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Set(ctx context.Context, userID, conversationID string, pinned bool) error {
	query :=
		`INSERT INTO pins (user_id, conversation_id, pinned, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (user_id, conversation_id)
		 DO UPDATE SET pinned = EXCLUDED.pinned, updated_at = EXCLUDED.updated_at`

	if _, err := dbx.From(ctx, r.db).ExecContext(ctx, query, userID, conversationID, pinned); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, userID, conversationID string) (bool, error) {
	var pinned bool
	err := dbx.From(ctx, r.db).QueryRowContext(ctx,
		`SELECT pinned FROM pins WHERE user_id = $1 AND conversation_id = $2`,
		userID, conversationID).Scan(&pinned)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("db error: %w", err)
	}
	return pinned, nil
}
