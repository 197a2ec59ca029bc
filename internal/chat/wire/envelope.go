// Package wire defines the JSON event contract spoken over a conversation
// channel, shared by the client transports and the relay backend.
//
// Every frame is an Envelope. Outbound client requests carry a Ref and are
// answered by exactly one "ack" envelope with the same Ref; inbound
// broadcasts (new_message, message_deleted, message_read, pin_changed)
// carry no Ref.
package wire

import (
	"encoding/json"
	"fmt"
)

// EventType names an envelope kind.
type EventType string

const (
	// server -> client
	EventNewMessage     EventType = "new_message"
	EventMessageDeleted EventType = "message_deleted"
	EventMessageRead    EventType = "message_read"
	EventPinChanged     EventType = "pin_changed"
	EventAck            EventType = "ack"

	// client -> server
	EventSendMessage   EventType = "send_message"
	EventDeleteMessage EventType = "delete_message"
	EventMarkRead      EventType = "mark_read"
	EventSetPin        EventType = "set_pin"
)

// Envelope is the frame exchanged on a channel.
type Envelope struct {
	Type    EventType       `json:"type"`
	Ref     string          `json:"ref,omitempty"`
	Topic   string          `json:"topic,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// NewEnvelope marshals payload into an envelope of the given type.
func NewEnvelope(t EventType, ref string, payload any) (Envelope, error) {
	env := Envelope{Type: t, Ref: ref}
	if payload == nil {
		return env, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("marshal %s payload: %w", t, err)
	}
	env.Payload = b
	return env, nil
}

// Decode unmarshals the payload into v and validates it when v knows how.
func (e Envelope) Decode(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("%w: %s has no payload", ErrInvalidPayload, e.Type)
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidPayload, e.Type, err)
	}
	if val, ok := v.(interface{ Validate() error }); ok {
		return val.Validate()
	}
	return nil
}
