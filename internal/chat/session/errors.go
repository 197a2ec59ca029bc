package session

import (
	"errors"

	"github.com/dmitrijs2005/auctionchat/internal/chat/store"
	"github.com/dmitrijs2005/auctionchat/internal/chat/wire"
)

var (
	ErrEmptyConversation = errors.New("conversation id is empty")
	ErrNotConnected      = errors.New("not connected")
	ErrClosed            = errors.New("session closed")
	ErrOwnMessage        = errors.New("cannot mark own message as read")
	ErrNotOwner          = errors.New("only the sender can delete a message")
	ErrNotConfirmed      = errors.New("message is not confirmed yet")
	ErrSendFailed        = errors.New("message not delivered")
	ErrUploadsDisabled   = errors.New("file sharing is not configured")

	// ErrRejected matches server refusals; errors.As with *wire.Rejection
	// recovers the code.
	ErrRejected = wire.ErrRejected

	ErrMessageNotFound = store.ErrMessageNotFound
	ErrNotFailed       = store.ErrNotFailed
)
