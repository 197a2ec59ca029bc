// Package relay implements the server side of a conversation channel: it
// replays recent history to a joining peer, applies the peer's requests
// through the chat service, answers each with an ack and fans the
// resulting events out through the hub. It is transport agnostic; the
// WebSocket and gRPC endpoints adapt their streams to Conn.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/auctionchat/internal/chat/wire"
	"github.com/dmitrijs2005/auctionchat/internal/common"
	"github.com/dmitrijs2005/auctionchat/internal/logging"
	"github.com/dmitrijs2005/auctionchat/internal/server/events"
	"github.com/dmitrijs2005/auctionchat/internal/server/hub"
	"github.com/dmitrijs2005/auctionchat/internal/server/models"
	"github.com/dmitrijs2005/auctionchat/internal/server/services"
)

// ErrBadTopic is returned for topics that do not name a conversation.
var ErrBadTopic = errors.New("relay: topic does not name a conversation")

// ErrEvicted ends a session whose peer could not keep up with broadcasts.
var ErrEvicted = errors.New("relay: subscriber evicted")

// Conn is one peer's envelope stream.
type Conn interface {
	Send(ctx context.Context, env wire.Envelope) error
	// Recv blocks until the next envelope arrives or the stream ends.
	Recv() (wire.Envelope, error)
}

type Handler struct {
	chat         *services.ChatService
	hub          *hub.Hub
	events       events.Publisher
	historyLimit int
	log          logging.Logger
}

func NewHandler(chat *services.ChatService, h *hub.Hub, pub events.Publisher, historyLimit int, log logging.Logger) *Handler {
	if pub == nil {
		pub = events.Nop{}
	}
	return &Handler{
		chat:         chat,
		hub:          h,
		events:       pub,
		historyLimit: historyLimit,
		log:          logging.OrNop(log),
	}
}

// lockedConn serializes writes from the broadcast pump and the ack path.
type lockedConn struct {
	mu sync.Mutex
	Conn
}

func (c *lockedConn) Send(ctx context.Context, env wire.Envelope) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.Send(ctx, env)
}

type session struct {
	*Handler
	conn           *lockedConn
	userID         string
	topic          string
	conversationID string
	log            logging.Logger
}

// Serve runs one peer until its stream ends, ctx is cancelled, or the hub
// evicts it.
func (h *Handler) Serve(ctx context.Context, userID, topic string, conn Conn) error {
	conversationID, ok := common.ConversationFromTopic(topic)
	if !ok {
		return ErrBadTopic
	}

	s := &session{
		Handler:        h,
		conn:           &lockedConn{Conn: conn},
		userID:         userID,
		topic:          topic,
		conversationID: conversationID,
		log:            h.log.With("topic", topic, "user", userID),
	}

	// Join before replay so nothing broadcast in between is lost.
	sub := h.hub.Join(topic, userID)
	defer sub.Leave()

	s.log.Info(ctx, "peer joined", "peers", h.hub.Peers(topic))
	defer s.log.Info(ctx, "peer left")

	if err := s.replay(ctx); err != nil {
		return fmt.Errorf("replay history: %w", err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pumpErr := make(chan error, 1)
	go func() { pumpErr <- s.pump(ctx, sub) }()

	recvErr := make(chan error, 1)
	go func() { recvErr <- s.readLoop(ctx) }()

	select {
	case err := <-recvErr:
		return err
	case err := <-pumpErr:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *session) pump(ctx context.Context, sub *hub.Subscription) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env, ok := <-sub.C():
			if !ok {
				return ErrEvicted
			}
			if err := s.conn.Send(ctx, env); err != nil {
				return err
			}
		}
	}
}

func (s *session) readLoop(ctx context.Context) error {
	for {
		env, err := s.conn.Recv()
		if err != nil {
			return err
		}
		if err := s.handle(ctx, env); err != nil {
			return err
		}
	}
}

// replay sends the newest history as new_message events, followed by the
// deleted and read flags the messages carry, and the user's pin state.
func (s *session) replay(ctx context.Context) error {
	history, err := s.chat.History(ctx, s.conversationID, s.historyLimit)
	if err != nil {
		return err
	}

	var flags []wire.Envelope
	for _, m := range history {
		payload := newMessagePayload(m)
		if m.Deleted {
			payload.Body = common.DeletedMarker
			env, err := wire.NewEnvelope(wire.EventMessageDeleted, "", wire.MessageRef{ID: m.ID})
			if err != nil {
				return err
			}
			flags = append(flags, env)
		}
		if m.Read {
			env, err := wire.NewEnvelope(wire.EventMessageRead, "", wire.MessageRef{ID: m.ID})
			if err != nil {
				return err
			}
			flags = append(flags, env)
		}
		if err := s.send(ctx, wire.EventNewMessage, payload); err != nil {
			return err
		}
	}
	for _, env := range flags {
		if err := s.conn.Send(ctx, env); err != nil {
			return err
		}
	}

	pinned, err := s.chat.Pinned(ctx, s.userID, s.conversationID)
	if err != nil {
		return err
	}
	s.log.Debug(ctx, "history replayed", "messages", len(history), "pinned", pinned)
	return s.send(ctx, wire.EventPinChanged, wire.PinState{Pinned: pinned})
}

func (s *session) send(ctx context.Context, t wire.EventType, payload any) error {
	env, err := wire.NewEnvelope(t, "", payload)
	if err != nil {
		return err
	}
	return s.conn.Send(ctx, env)
}

// handle applies one request and acks it. Only transport failures are
// returned; request failures become negative acks.
func (s *session) handle(ctx context.Context, env wire.Envelope) error {
	var err error
	switch env.Type {
	case wire.EventSendMessage:
		err = s.onSend(ctx, env)
	case wire.EventDeleteMessage:
		err = s.onDelete(ctx, env)
	case wire.EventMarkRead:
		err = s.onMarkRead(ctx, env)
	case wire.EventSetPin:
		err = s.onSetPin(ctx, env)
	default:
		err = fmt.Errorf("%w: unsupported event %q", common.ErrValidation, env.Type)
	}
	return s.ack(ctx, env, err)
}

func (s *session) ack(ctx context.Context, req wire.Envelope, err error) error {
	if req.Ref == "" {
		if err != nil {
			s.log.Warn(ctx, "request without ref failed", "type", req.Type, "error", err)
		}
		return nil
	}

	a := wire.OKAck(req.Ref)
	if err != nil {
		code, msg := classify(err)
		if code == wire.CodeInternal {
			s.log.Error(ctx, "request failed", "type", req.Type, "ref", req.Ref, "error", err)
		} else {
			s.log.Debug(ctx, "request rejected", "type", req.Type, "ref", req.Ref, "code", code, "error", err)
		}
		a = wire.FailAck(req.Ref, code, msg)
	}

	env, mErr := wire.NewEnvelope(wire.EventAck, req.Ref, a)
	if mErr != nil {
		return mErr
	}
	return s.conn.Send(ctx, env)
}

// classify maps service errors to ack codes. Internal errors are not
// described to the peer.
func classify(err error) (code, message string) {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return wire.CodeNotFound, "message not found"
	case errors.Is(err, common.ErrForbidden):
		return wire.CodeForbidden, "not allowed"
	case errors.Is(err, common.ErrValidation), errors.Is(err, wire.ErrInvalidPayload):
		return wire.CodeInvalid, err.Error()
	default:
		return wire.CodeInternal, "internal error"
	}
}

func (s *session) onSend(ctx context.Context, env wire.Envelope) error {
	var req wire.SendMessage
	if err := env.Decode(&req); err != nil {
		return err
	}

	m, created, err := s.chat.Post(ctx, s.userID, s.conversationID, services.PostInput{
		ClientID:  req.ClientID,
		Body:      req.Body,
		FileURL:   req.FileURL,
		FileName:  req.FileName,
		FileType:  req.FileType,
		FileSize:  req.FileSize,
		Timestamp: req.Timestamp.Time,
	})
	if err != nil {
		return err
	}

	out, err := wire.NewEnvelope(wire.EventNewMessage, "", newMessagePayload(m))
	if err != nil {
		return err
	}
	if !created {
		// Retried send: confirm to the sender only.
		return s.conn.Send(ctx, out)
	}
	s.fanOut(ctx, out)
	return nil
}

func (s *session) onDelete(ctx context.Context, env wire.Envelope) error {
	var req wire.MessageRef
	if err := env.Decode(&req); err != nil {
		return err
	}
	if _, err := s.chat.Delete(ctx, s.userID, s.conversationID, req.ID); err != nil {
		return err
	}
	out, err := wire.NewEnvelope(wire.EventMessageDeleted, "", wire.MessageRef{ID: req.ID})
	if err != nil {
		return err
	}
	s.fanOut(ctx, out)
	return nil
}

func (s *session) onMarkRead(ctx context.Context, env wire.Envelope) error {
	var req wire.MessageRef
	if err := env.Decode(&req); err != nil {
		return err
	}
	changed, err := s.chat.MarkRead(ctx, s.userID, s.conversationID, req.ID)
	if err != nil || !changed {
		return err
	}
	out, err := wire.NewEnvelope(wire.EventMessageRead, "", wire.MessageRef{ID: req.ID})
	if err != nil {
		return err
	}
	s.fanOut(ctx, out)
	return nil
}

func (s *session) onSetPin(ctx context.Context, env wire.Envelope) error {
	var req wire.PinState
	if err := env.Decode(&req); err != nil {
		return err
	}
	if err := s.chat.SetPin(ctx, s.userID, s.conversationID, req.Pinned); err != nil {
		return err
	}
	out, err := wire.NewEnvelope(wire.EventPinChanged, "", req)
	if err != nil {
		return err
	}
	s.hub.BroadcastUser(s.topic, s.userID, out)
	s.publish(ctx, out)
	return nil
}

func (s *session) fanOut(ctx context.Context, env wire.Envelope) {
	s.hub.Broadcast(s.topic, env)
	s.publish(ctx, env)
}

// publish forwards env to the event bus. Failures are logged only; the
// chat itself does not depend on the bus.
func (s *session) publish(ctx context.Context, env wire.Envelope) {
	err := s.events.Publish(ctx, events.Event{
		Type:           string(env.Type),
		ConversationID: s.conversationID,
		UserID:         s.userID,
		Payload:        json.RawMessage(env.Payload),
	})
	if err != nil {
		s.log.Warn(ctx, "event publish failed", "type", env.Type, "error", err)
	}
}

func newMessagePayload(m *models.Message) wire.NewMessage {
	return wire.NewMessage{
		ID:        m.ID,
		ClientID:  m.ClientID,
		SenderID:  m.SenderID,
		Body:      m.Body,
		FileURL:   m.FileURL,
		FileName:  m.FileName,
		FileType:  m.FileType,
		FileSize:  m.FileSize,
		Timestamp: wire.Time{Time: m.CreatedAt},
	}
}
