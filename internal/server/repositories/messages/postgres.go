package messages

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/auctionchat/internal/common"
	"github.com/dmitrijs2005/auctionchat/internal/dbx"
	"github.com/dmitrijs2005/auctionchat/internal/server/models"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	uniqueViolation = "23505"

	columns = `id, conversation_id, client_id, sender_id, body, file_url, file_name, file_type, file_size, created_at, is_read, is_deleted`
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(s scanner) (*models.Message, error) {
	m := &models.Message{}
	err := s.Scan(&m.ID, &m.ConversationID, &m.ClientID, &m.SenderID, &m.Body,
		&m.FileURL, &m.FileName, &m.FileType, &m.FileSize, &m.CreatedAt, &m.Read, &m.Deleted)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *PostgresRepository) Create(ctx context.Context, m *models.Message) error {
	query :=
		`INSERT INTO messages (id, conversation_id, client_id, sender_id, body, file_url, file_name, file_type, file_size, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := dbx.From(ctx, r.db).ExecContext(ctx, query,
		m.ID, m.ConversationID, m.ClientID, m.SenderID, m.Body,
		m.FileURL, m.FileName, m.FileType, m.FileSize, m.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return common.ErrAlreadyExists
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) get(ctx context.Context, query string, args ...any) (*models.Message, error) {
	m, err := scanMessage(dbx.From(ctx, r.db).QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return m, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id string) (*models.Message, error) {
	return r.get(ctx, `SELECT `+columns+` FROM messages WHERE id = $1`, id)
}

func (r *PostgresRepository) GetByClientID(ctx context.Context, senderID, clientID string) (*models.Message, error) {
	return r.get(ctx, `SELECT `+columns+` FROM messages WHERE sender_id = $1 AND client_id = $2`, senderID, clientID)
}

func (r *PostgresRepository) MarkDeleted(ctx context.Context, id string) error {
	query :=
		`UPDATE messages
		 SET is_deleted = TRUE, body = '', file_url = '', file_name = '', file_type = '', file_size = 0
		 WHERE id = $1`

	res, err := dbx.From(ctx, r.db).ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) MarkRead(ctx context.Context, id string) (bool, error) {
	res, err := dbx.From(ctx, r.db).ExecContext(ctx,
		`UPDATE messages SET is_read = TRUE WHERE id = $1 AND NOT is_read`, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return n > 0, nil
}

func (r *PostgresRepository) ListRecent(ctx context.Context, conversationID string, limit int) ([]*models.Message, error) {
	query :=
		`SELECT ` + columns + ` FROM (
		     SELECT ` + columns + ` FROM messages
		     WHERE conversation_id = $1
		     ORDER BY created_at DESC, id DESC
		     LIMIT $2
		 ) recent
		 ORDER BY created_at, id`

	rows, err := dbx.From(ctx, r.db).QueryContext(ctx, query, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}
