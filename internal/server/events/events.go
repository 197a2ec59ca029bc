// Package events publishes chat activity to a RabbitMQ topic exchange so
// downstream consumers (notifications, moderation, analytics) can follow
// conversations without joining them.
package events

import (
	"context"
	"encoding/json"
	"time"
)

// Event is one published chat event. Payload is the wire payload of the
// corresponding envelope.
type Event struct {
	ID             string          `json:"id"`
	Type           string          `json:"type"`
	ConversationID string          `json:"conversationId"`
	UserID         string          `json:"userId"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	At             time.Time       `json:"at"`
}

// RoutingKey is "chat.<type>", e.g. "chat.new_message".
func (e Event) RoutingKey() string {
	return "chat." + e.Type
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }
