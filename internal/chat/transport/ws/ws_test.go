package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/auctionchat/internal/chat/models"
	"github.com/dmitrijs2005/auctionchat/internal/chat/transport"
	"github.com/dmitrijs2005/auctionchat/internal/chat/wire"
)

// echoRelay acks every request and broadcasts a pin_changed for set_pin.
func echoRelay(t *testing.T, wantToken string) *httptest.Server {
	up := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+wantToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("topic") != "vehicle:42" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		c, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer c.Close()
		for {
			var env wire.Envelope
			if err := c.ReadJSON(&env); err != nil {
				return
			}
			ack, _ := wire.NewEnvelope(wire.EventAck, env.Ref, wire.OKAck(env.Ref))
			if err := c.WriteJSON(ack); err != nil {
				return
			}
			if env.Type == wire.EventSetPin {
				out, _ := wire.NewEnvelope(wire.EventPinChanged, "", wire.PinState{Pinned: true})
				_ = c.WriteJSON(out)
			}
		}
	}))
}

func wsURL(s *httptest.Server) string {
	return "ws" + strings.TrimPrefix(s.URL, "http") + "/ws"
}

func TestWS_EmitAndReceive(t *testing.T) {
	srv := echoRelay(t, "tok")
	defer srv.Close()

	d := NewDialer(wsURL(srv), func() string { return "tok" }, transport.Options{})
	ch := d.Channel("vehicle:42")

	pins := make(chan bool, 1)
	ch.On(wire.EventPinChanged, func(env wire.Envelope) {
		var p wire.PinState
		if env.Decode(&p) == nil {
			pins <- p.Pinned
		}
	})
	require.NoError(t, ch.Connect())
	defer ch.Disconnect()
	require.Eventually(t, func() bool { return ch.State() == models.StateConnected }, 2*time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, ch.Emit(ctx, wire.EventSetPin, wire.PinState{Pinned: true}))

	select {
	case pinned := <-pins:
		assert.True(t, pinned)
	case <-time.After(2 * time.Second):
		t.Fatal("no pin_changed received")
	}
}

func TestWS_UnauthorizedHandshake(t *testing.T) {
	srv := echoRelay(t, "tok")
	defer srv.Close()

	d := NewDialer(wsURL(srv), func() string { return "wrong" }, transport.Options{})
	c, err := d.connectFunc("vehicle:42")(context.Background())
	assert.Nil(t, c)
	assert.ErrorIs(t, err, transport.ErrUnauthorized)
}

func TestWS_BadTopicHandshake(t *testing.T) {
	srv := echoRelay(t, "tok")
	defer srv.Close()

	d := NewDialer(wsURL(srv), func() string { return "tok" }, transport.Options{})
	_, err := d.connectFunc("user:1")(context.Background())
	assert.ErrorIs(t, err, transport.ErrBadTopic)
}

func TestWS_UnreachableIsUnavailable(t *testing.T) {
	d := NewDialer("ws://127.0.0.1:1/ws", nil, transport.Options{})
	_, err := d.connectFunc("vehicle:42")(context.Background())
	assert.ErrorIs(t, err, transport.ErrUnavailable)
}
