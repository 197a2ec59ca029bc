// Package ws carries conversation channels over WebSocket.
package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/fasthttp/websocket"

	"github.com/dmitrijs2005/auctionchat/internal/chat/transport"
	"github.com/dmitrijs2005/auctionchat/internal/chat/wire"
)

const DefaultPingInterval = 25 * time.Second

// Dialer opens WebSocket channels against the relay's /ws endpoint.
type Dialer struct {
	// URL is the endpoint, e.g. ws://localhost:8080/ws.
	URL          string
	Token        func() string
	PingInterval time.Duration
	Options      transport.Options

	ws *websocket.Dialer
}

var _ transport.Dialer = (*Dialer)(nil)

func NewDialer(endpoint string, token func() string, opts transport.Options) *Dialer {
	return &Dialer{
		URL:          endpoint,
		Token:        token,
		PingInterval: DefaultPingInterval,
		Options:      opts,
		ws:           &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

func (d *Dialer) Channel(topic string) transport.Channel {
	return transport.NewPeer(topic, d.connectFunc(topic), d.Options)
}

func (d *Dialer) connectFunc(topic string) transport.ConnectFunc {
	return func(ctx context.Context) (transport.Conn, error) {
		u, err := url.Parse(d.URL)
		if err != nil {
			return nil, fmt.Errorf("parse ws url: %w", err)
		}
		q := u.Query()
		q.Set("topic", topic)
		u.RawQuery = q.Encode()

		h := http.Header{}
		if d.Token != nil {
			if tok := d.Token(); tok != "" {
				h.Set("Authorization", "Bearer "+tok)
			}
		}

		wsd := d.ws
		if wsd == nil {
			wsd = websocket.DefaultDialer
		}
		c, resp, err := wsd.DialContext(ctx, u.String(), h)
		if err != nil {
			return nil, mapDialError(resp, err)
		}
		return newConn(c, d.PingInterval), nil
	}
}

func mapDialError(resp *http.Response, err error) error {
	if resp != nil {
		switch resp.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: handshake status %d", transport.ErrUnauthorized, resp.StatusCode)
		case http.StatusBadRequest:
			return fmt.Errorf("%w: handshake status %d", transport.ErrBadTopic, resp.StatusCode)
		}
	}
	return fmt.Errorf("%w: %v", transport.ErrUnavailable, err)
}

type conn struct {
	c    *websocket.Conn
	ping time.Duration

	stop chan struct{}
	once sync.Once
}

func newConn(c *websocket.Conn, ping time.Duration) *conn {
	cn := &conn{c: c, ping: ping, stop: make(chan struct{})}
	if ping > 0 {
		_ = c.SetReadDeadline(time.Now().Add(2 * ping))
		c.SetPongHandler(func(string) error {
			return c.SetReadDeadline(time.Now().Add(2 * ping))
		})
		go cn.keepAlive()
	}
	return cn
}

func (cn *conn) keepAlive() {
	t := time.NewTicker(cn.ping)
	defer t.Stop()
	for {
		select {
		case <-cn.stop:
			return
		case <-t.C:
			deadline := time.Now().Add(cn.ping / 2)
			if err := cn.c.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func (cn *conn) Send(ctx context.Context, env wire.Envelope) error {
	if dl, ok := ctx.Deadline(); ok {
		_ = cn.c.SetWriteDeadline(dl)
		defer cn.c.SetWriteDeadline(time.Time{})
	}
	return cn.c.WriteJSON(env)
}

func (cn *conn) Recv() (wire.Envelope, error) {
	var env wire.Envelope
	if err := cn.c.ReadJSON(&env); err != nil {
		var ce *websocket.CloseError
		if errors.As(err, &ce) && ce.Code == websocket.ClosePolicyViolation {
			return env, fmt.Errorf("%w: %s", transport.ErrUnauthorized, ce.Text)
		}
		return env, err
	}
	if cn.ping > 0 {
		_ = cn.c.SetReadDeadline(time.Now().Add(2 * cn.ping))
	}
	return env, nil
}

func (cn *conn) Close() error {
	var err error
	cn.once.Do(func() {
		close(cn.stop)
		_ = cn.c.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		err = cn.c.Close()
	})
	return err
}
