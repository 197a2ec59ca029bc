package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/auctionchat/internal/chat/models"
	"github.com/dmitrijs2005/auctionchat/internal/dbx"
)

// DefaultKeep is how many messages per conversation Save retains.
const DefaultKeep = 500

// MessageRepository caches confirmed messages. It satisfies session.Cache.
type MessageRepository struct {
	db   *sql.DB
	Keep int
}

func NewMessageRepository(db *sql.DB) *MessageRepository {
	return &MessageRepository{db: db, Keep: DefaultKeep}
}

// Save upserts the confirmed messages of a conversation and trims the
// cache to the newest Keep entries. Pending and failed entries are skipped.
func (r *MessageRepository) Save(ctx context.Context, conversationID string, msgs []models.Message) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, m := range msgs {
			if m.ID == "" || m.Status == models.StatusPending || m.Status == models.StatusFailed {
				continue
			}
			var url, name, typ string
			var size int64
			if m.File != nil {
				url, name, typ, size = m.File.URL, m.File.Name, m.File.MIMEType, m.File.Size
			}
			_, err := tx.ExecContext(ctx, `
				INSERT INTO messages (conversation_id, id, client_id, sender_id, body,
					file_url, file_name, file_type, file_size, ts, is_read, is_deleted)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(conversation_id, id) DO UPDATE SET
					body = excluded.body,
					file_url = excluded.file_url,
					file_name = excluded.file_name,
					file_type = excluded.file_type,
					file_size = excluded.file_size,
					is_read = excluded.is_read,
					is_deleted = excluded.is_deleted
			`, conversationID, m.ID, m.ClientID, m.SenderID, m.Body,
				url, name, typ, size, m.Timestamp.UnixMilli(), m.Read, m.Deleted)
			if err != nil {
				return fmt.Errorf("failed to save message %s: %w", m.ID, err)
			}
		}

		_, err := tx.ExecContext(ctx, `
			DELETE FROM messages
			WHERE conversation_id = ? AND rowid NOT IN (
				SELECT rowid FROM messages WHERE conversation_id = ?
				ORDER BY ts DESC, rowid DESC LIMIT ?
			)
		`, conversationID, conversationID, r.Keep)
		if err != nil {
			return fmt.Errorf("failed to trim cache: %w", err)
		}
		return nil
	})
}

// Load returns the cached messages of a conversation, oldest first.
func (r *MessageRepository) Load(ctx context.Context, conversationID string) ([]models.Message, error) {
	rows, err := dbx.From(ctx, r.db).QueryContext(ctx, `
		SELECT id, client_id, sender_id, body, file_url, file_name, file_type, file_size, ts, is_read, is_deleted
		FROM messages WHERE conversation_id = ?
		ORDER BY ts, rowid
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	var out []models.Message
	for rows.Next() {
		var m models.Message
		var url, name, typ string
		var size, ts int64
		if err := rows.Scan(&m.ID, &m.ClientID, &m.SenderID, &m.Body, &url, &name, &typ, &size, &ts, &m.Read, &m.Deleted); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if url != "" {
			m.File = models.NewFileRef(url, name, typ, size)
		}
		m.Timestamp = time.UnixMilli(ts).UTC()
		m.Status = models.StatusConfirmed
		out = append(out, m)
	}
	return out, rows.Err()
}

// Clear drops the cache of one conversation.
func (r *MessageRepository) Clear(ctx context.Context, conversationID string) error {
	_, err := dbx.From(ctx, r.db).ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, conversationID)
	if err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	return nil
}
