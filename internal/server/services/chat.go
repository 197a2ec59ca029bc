package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/auctionchat/internal/common"
	"github.com/dmitrijs2005/auctionchat/internal/dbx"
	"github.com/dmitrijs2005/auctionchat/internal/server/models"
	"github.com/dmitrijs2005/auctionchat/internal/server/repositories/repomanager"
	"github.com/google/uuid"
)

// MaxClockSkew bounds how far a client timestamp may drift from the relay
// clock before the relay substitutes its own.
const MaxClockSkew = 5 * time.Minute

const maxBodyLen = 4000

// PostInput is an outgoing message as sent by a client.
type PostInput struct {
	ClientID  string
	Body      string
	FileURL   string
	FileName  string
	FileType  string
	FileSize  int64
	Timestamp time.Time
}

type ChatService struct {
	repomanager repomanager.RepositoryManager
	now         func() time.Time
	newID       func() string
}

func NewChatService(m repomanager.RepositoryManager) *ChatService {
	return &ChatService{
		repomanager: m,
		now:         time.Now,
		newID:       uuid.NewString,
	}
}

// Post stores a message in conversationID. A repeated post with the same
// sender and client id returns the stored message with created=false.
func (s *ChatService) Post(ctx context.Context, senderID, conversationID string, in PostInput) (msg *models.Message, created bool, err error) {
	body := strings.TrimSpace(in.Body)
	if body == "" && in.FileURL == "" {
		return nil, false, fmt.Errorf("%w: message needs a body or a file", common.ErrValidation)
	}
	if len(body) > maxBodyLen {
		return nil, false, fmt.Errorf("%w: body exceeds %d bytes", common.ErrValidation, maxBodyLen)
	}

	err = s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Messages(tx)

		if in.ClientID != "" {
			existing, err := repo.GetByClientID(ctx, senderID, in.ClientID)
			if err == nil {
				if existing.ConversationID != conversationID {
					return fmt.Errorf("%w: client id reused across conversations", common.ErrValidation)
				}
				msg = existing
				return nil
			}
			if !errors.Is(err, common.ErrNotFound) {
				return err
			}
		}

		m := &models.Message{
			ID:             s.newID(),
			ConversationID: conversationID,
			ClientID:       in.ClientID,
			SenderID:       senderID,
			Body:           body,
			FileURL:        in.FileURL,
			FileName:       in.FileName,
			FileType:       in.FileType,
			FileSize:       in.FileSize,
			CreatedAt:      s.timestamp(in.Timestamp),
		}
		if err := repo.Create(ctx, m); err != nil {
			return err
		}
		msg, created = m, true
		return nil
	})
	if errors.Is(err, common.ErrAlreadyExists) && in.ClientID != "" {
		// a concurrent post with the same client id won the insert
		msg, err = s.repomanager.Messages(s.repomanager.DB()).GetByClientID(ctx, senderID, in.ClientID)
		return msg, false, err
	}
	if err != nil {
		return nil, false, err
	}
	return msg, created, nil
}

// timestamp keeps the client's clock unless it is missing or skewed.
func (s *ChatService) timestamp(client time.Time) time.Time {
	now := s.now()
	ts := client
	if ts.IsZero() || ts.Sub(now) > MaxClockSkew || now.Sub(ts) > MaxClockSkew {
		ts = now
	}
	return ts.UTC().Truncate(time.Millisecond)
}

// Delete soft-deletes a message of conversationID. Only the sender may
// delete; deleting twice is not an error.
func (s *ChatService) Delete(ctx context.Context, userID, conversationID, messageID string) (*models.Message, error) {
	var out *models.Message
	err := s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Messages(tx)

		m, err := s.load(ctx, repo.Get, conversationID, messageID)
		if err != nil {
			return err
		}
		if m.SenderID != userID {
			return common.ErrForbidden
		}
		if !m.Deleted {
			if err := repo.MarkDeleted(ctx, m.ID); err != nil {
				return err
			}
		}
		m.Deleted = true
		m.Body, m.FileURL, m.FileName, m.FileType, m.FileSize = "", "", "", "", 0
		out = m
		return nil
	})
	return out, err
}

// MarkRead flags a message as read by its counterparty. changed is false
// when it was already read.
func (s *ChatService) MarkRead(ctx context.Context, userID, conversationID, messageID string) (changed bool, err error) {
	err = s.repomanager.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.Messages(tx)

		m, err := s.load(ctx, repo.Get, conversationID, messageID)
		if err != nil {
			return err
		}
		if m.SenderID == userID {
			return common.ErrForbidden
		}
		changed, err = repo.MarkRead(ctx, m.ID)
		return err
	})
	return changed, err
}

func (s *ChatService) load(ctx context.Context, get func(context.Context, string) (*models.Message, error), conversationID, messageID string) (*models.Message, error) {
	if messageID == "" {
		return nil, fmt.Errorf("%w: message id is required", common.ErrValidation)
	}
	m, err := get(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if m.ConversationID != conversationID {
		return nil, common.ErrNotFound
	}
	return m, nil
}

func (s *ChatService) SetPin(ctx context.Context, userID, conversationID string, pinned bool) error {
	return s.repomanager.Pins(s.repomanager.DB()).Set(ctx, userID, conversationID, pinned)
}

func (s *ChatService) Pinned(ctx context.Context, userID, conversationID string) (bool, error) {
	return s.repomanager.Pins(s.repomanager.DB()).Get(ctx, userID, conversationID)
}

// History returns the newest limit messages of conversationID, oldest first.
func (s *ChatService) History(ctx context.Context, conversationID string, limit int) ([]*models.Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	return s.repomanager.Messages(s.repomanager.DB()).ListRecent(ctx, conversationID, limit)
}
