package hub

import (
	"testing"

	"github.com/dmitrijs2005/auctionchat/internal/chat/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(t wire.EventType) wire.Envelope { return wire.Envelope{Type: t} }

func TestBroadcast_ReachesTopicOnly(t *testing.T) {
	h := New(4, nil)
	a := h.Join("vehicle:1", "u1")
	b := h.Join("vehicle:1", "u2")
	c := h.Join("vehicle:2", "u1")

	h.Broadcast("vehicle:1", env(wire.EventNewMessage))

	assert.Equal(t, wire.EventNewMessage, (<-a.C()).Type)
	assert.Equal(t, wire.EventNewMessage, (<-b.C()).Type)
	assert.Empty(t, c.C())
	assert.Equal(t, 2, h.Peers("vehicle:1"))
}

func TestBroadcastUser(t *testing.T) {
	h := New(4, nil)
	phone := h.Join("vehicle:1", "u1")
	laptop := h.Join("vehicle:1", "u1")
	other := h.Join("vehicle:1", "u2")

	h.BroadcastUser("vehicle:1", "u1", env(wire.EventPinChanged))

	assert.Len(t, phone.C(), 1)
	assert.Len(t, laptop.C(), 1)
	assert.Empty(t, other.C())
}

func TestLeave_ClosesAndIsIdempotent(t *testing.T) {
	h := New(1, nil)
	s := h.Join("vehicle:1", "u1")

	s.Leave()
	s.Leave()

	_, open := <-s.C()
	assert.False(t, open)
	assert.Zero(t, h.Peers("vehicle:1"))

	h.Broadcast("vehicle:1", env(wire.EventNewMessage))
}

func TestSlowSubscriberEvicted(t *testing.T) {
	h := New(1, nil)
	slow := h.Join("vehicle:1", "u1")
	fast := h.Join("vehicle:1", "u2")

	h.Broadcast("vehicle:1", env(wire.EventNewMessage))
	<-fast.C()
	h.Broadcast("vehicle:1", env(wire.EventMessageRead))

	require.Equal(t, 1, h.Peers("vehicle:1"))
	first, open := <-slow.C()
	assert.True(t, open)
	assert.Equal(t, wire.EventNewMessage, first.Type)
	_, open = <-slow.C()
	assert.False(t, open)

	assert.Equal(t, wire.EventMessageRead, (<-fast.C()).Type)
	slow.Leave()
}
