package httpapi

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/dmitrijs2005/auctionchat/internal/chat/wire"
	"github.com/dmitrijs2005/auctionchat/internal/common"
	"github.com/dmitrijs2005/auctionchat/internal/server/relay"
)

const (
	topicLocal   = "topic"
	writeTimeout = 10 * time.Second
	maxFrameSize = 64 << 10
)

// upgrade authenticates the handshake. Failures are plain HTTP responses,
// which clients see as the handshake status.
func (s *HTTPServer) upgrade(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	uid, err := s.authenticate(c)
	if err != nil {
		return err
	}
	topic := c.Query("topic")
	if _, ok := common.ConversationFromTopic(topic); !ok {
		return fiber.NewError(fiber.StatusBadRequest, "invalid topic")
	}
	c.Locals(userIDLocal, uid)
	c.Locals(topicLocal, topic)
	return c.Next()
}

// wsConn adapts a WebSocket connection to relay.Conn.
type wsConn struct {
	c *websocket.Conn
}

func (w wsConn) Send(_ context.Context, env wire.Envelope) error {
	_ = w.c.SetWriteDeadline(time.Now().Add(writeTimeout))
	return w.c.WriteJSON(env)
}

func (w wsConn) Recv() (wire.Envelope, error) {
	var env wire.Envelope
	err := w.c.ReadJSON(&env)
	return env, err
}

func (s *HTTPServer) serveWS(c *websocket.Conn) {
	uid, _ := c.Locals(userIDLocal).(string)
	topic, _ := c.Locals(topicLocal).(string)
	c.SetReadLimit(maxFrameSize)

	err := s.svc.Relay.Serve(s.base, uid, topic, wsConn{c: c})
	switch {
	case err == nil, errors.Is(err, io.EOF), errors.Is(err, context.Canceled),
		websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
		return
	case errors.Is(err, relay.ErrEvicted):
		_ = c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "subscriber too slow"),
			time.Now().Add(time.Second))
	default:
		s.logger.Warn(s.base, "websocket session ended", "topic", topic, "user", uid, "error", err)
	}
}
