package session

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/auctionchat/internal/chat/models"
	"github.com/dmitrijs2005/auctionchat/internal/chat/wire"
)

// MarkRead acknowledges a counterparty message. Marking an already read
// message does nothing and sends nothing. A failed acknowledgment rolls the
// flag back unless the server has meanwhile reported the message read.
func (s *Session) MarkRead(ctx context.Context, id string) error {
	if !s.connected() {
		return ErrNotConnected
	}

	var skip bool
	var err error
	if !s.dispatch(func() bool {
		var m models.Message
		m, err = s.store.Get(id)
		switch {
		case err != nil:
			return false
		case m.IsOwn(s.userID):
			err = ErrOwnMessage
			return false
		case m.ID == "":
			err = ErrNotConfirmed
			return false
		case m.Read:
			skip = true
			return false
		}
		_, err = s.store.SetRead(id, true)
		return err == nil
	}) {
		return ErrClosed
	}
	if err != nil || skip {
		return err
	}

	if err := s.ch.Emit(ctx, wire.EventMarkRead, wire.MessageRef{ID: id}); err != nil {
		var reverted bool
		if !s.dispatch(func() bool {
			reverted, _ = s.store.RevertRead(id)
			return reverted
		}) {
			s.log.Warn(ctx, "read result after close discarded", "id", id, "error", err)
			return ErrClosed
		}
		if !reverted {
			s.log.Info(ctx, "read receipt settled by server", "id", id, "error", err)
			return nil
		}
		s.notice(ctx, NoticeRejected, "message could not be marked read", err)
		return fmt.Errorf("mark read %s: %w", id, err)
	}
	return nil
}

// MarkAllRead marks every unread counterparty message, e.g. when the
// conversation comes into view. It stops at the first failure.
func (s *Session) MarkAllRead(ctx context.Context) (int, error) {
	var ids []string
	for _, m := range s.Messages() {
		if m.ID != "" && !m.IsOwn(s.userID) && !m.Read && !m.Deleted {
			ids = append(ids, m.ID)
		}
	}
	n := 0
	for _, id := range ids {
		if err := s.MarkRead(ctx, id); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// DeleteOwnMessage soft-deletes one of the user's confirmed messages. The
// deletion shows immediately; a failure restores the message and records a
// notice, unless the server has already reported it deleted.
func (s *Session) DeleteOwnMessage(ctx context.Context, id string) error {
	if !s.connected() {
		return ErrNotConnected
	}

	var skip bool
	var err error
	if !s.dispatch(func() bool {
		var m models.Message
		m, err = s.store.Get(id)
		switch {
		case err != nil:
			return false
		case !m.IsOwn(s.userID):
			err = ErrNotOwner
			return false
		case m.ID == "":
			err = ErrNotConfirmed
			return false
		case m.Deleted:
			skip = true
			return false
		}
		_, err = s.store.SetDeleted(id, true)
		return err == nil
	}) {
		return ErrClosed
	}
	if err != nil || skip {
		return err
	}

	if err := s.ch.Emit(ctx, wire.EventDeleteMessage, wire.MessageRef{ID: id}); err != nil {
		var reverted bool
		if !s.dispatch(func() bool {
			reverted, _ = s.store.RevertDeleted(id)
			return reverted
		}) {
			s.log.Warn(ctx, "delete result after close discarded", "id", id, "error", err)
			return ErrClosed
		}
		if !reverted {
			s.log.Info(ctx, "deletion settled by server", "id", id, "error", err)
			return nil
		}
		s.notice(ctx, NoticeRejected, "message could not be deleted", err)
		return fmt.Errorf("delete %s: %w", id, err)
	}
	return nil
}
