// Package transport defines the realtime channel a conversation session
// talks through, and Peer, the reconnecting implementation shared by the
// WebSocket and gRPC stream transports.
package transport

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/auctionchat/internal/chat/models"
	"github.com/dmitrijs2005/auctionchat/internal/chat/wire"
)

var (
	ErrUnavailable  = errors.New("service unavailable")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadTopic     = errors.New("topic refused")
	ErrNotConnected = errors.New("channel not connected")
	ErrDisconnected = errors.New("connection lost before acknowledgment")
	ErrAckTimeout   = errors.New("acknowledgment timed out")
	ErrClosed       = errors.New("channel closed")
)

// Handler receives inbound envelopes of one event type.
type Handler func(wire.Envelope)

// Channel is a topic-scoped, bidirectional event channel.
type Channel interface {
	// On registers h for event and returns a function removing it.
	On(event wire.EventType, h Handler) (off func())
	// Emit sends payload as event and waits for the server acknowledgment.
	// A negative acknowledgment is returned as a *wire.Rejection.
	Emit(ctx context.Context, event wire.EventType, payload any) error
	State() models.ConnState
	OnState(fn func(models.ConnState)) (off func())
	// Connect starts connecting in the background.
	Connect() error
	// Disconnect closes the channel for good. It is idempotent.
	Disconnect() error
}

// Dialer creates channels for topics.
type Dialer interface {
	Channel(topic string) Channel
}

// Conn is one physical connection. Send is never called concurrently;
// Recv is called from a single goroutine. Close must unblock Recv.
type Conn interface {
	Send(ctx context.Context, env wire.Envelope) error
	Recv() (wire.Envelope, error)
	Close() error
}

// ConnectFunc establishes a new Conn for a channel. Errors matching
// ErrUnauthorized or ErrBadTopic stop reconnection.
type ConnectFunc func(ctx context.Context) (Conn, error)
