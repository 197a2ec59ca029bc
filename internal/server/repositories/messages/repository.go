// Package messages stores chat messages per conversation.
package messages

import (
	"context"

	"github.com/dmitrijs2005/auctionchat/internal/server/models"
)

type Repository interface {
	// Create inserts m. A second message with the same sender and client id
	// yields common.ErrAlreadyExists.
	Create(ctx context.Context, m *models.Message) error
	Get(ctx context.Context, id string) (*models.Message, error)
	GetByClientID(ctx context.Context, senderID, clientID string) (*models.Message, error)
	// MarkDeleted sets the deleted flag and clears body and file.
	MarkDeleted(ctx context.Context, id string) error
	// MarkRead reports whether the flag changed.
	MarkRead(ctx context.Context, id string) (bool, error)
	// ListRecent returns up to limit newest messages, oldest first.
	ListRecent(ctx context.Context, conversationID string, limit int) ([]*models.Message, error)
}
