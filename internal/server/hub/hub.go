// Package hub fans envelopes out to the peers joined to a topic.
package hub

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/auctionchat/internal/chat/wire"
	"github.com/dmitrijs2005/auctionchat/internal/logging"
)

// DefaultBuffer is the per-subscriber queue length.
const DefaultBuffer = 64

// Hub routes broadcasts by topic. A subscriber whose queue is full is
// evicted: its channel is closed and its peer is expected to reconnect
// and catch up through history replay.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[uint64]*Subscription
	next   uint64
	buffer int
	log    logging.Logger
}

func New(buffer int, log logging.Logger) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{
		topics: make(map[string]map[uint64]*Subscription),
		buffer: buffer,
		log:    logging.OrNop(log),
	}
}

// Subscription is one peer's membership in a topic.
type Subscription struct {
	hub    *Hub
	id     uint64
	topic  string
	userID string
	out    chan wire.Envelope
	once   sync.Once
}

// C delivers broadcasts. It is closed on Leave or eviction.
func (s *Subscription) C() <-chan wire.Envelope { return s.out }

func (s *Subscription) UserID() string { return s.userID }

// Leave removes the subscription. Safe to call more than once.
func (s *Subscription) Leave() {
	s.hub.remove(s)
}

// Join subscribes userID to topic.
func (h *Hub) Join(topic, userID string) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.next++
	s := &Subscription{
		hub:    h,
		id:     h.next,
		topic:  topic,
		userID: userID,
		out:    make(chan wire.Envelope, h.buffer),
	}
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[uint64]*Subscription)
		h.topics[topic] = subs
	}
	subs[s.id] = s
	return s
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(s)
}

func (h *Hub) removeLocked(s *Subscription) {
	s.once.Do(func() {
		if subs, ok := h.topics[s.topic]; ok {
			delete(subs, s.id)
			if len(subs) == 0 {
				delete(h.topics, s.topic)
			}
		}
		close(s.out)
	})
}

// Broadcast queues env for every subscriber of topic.
func (h *Hub) Broadcast(topic string, env wire.Envelope) {
	h.publish(topic, env, func(*Subscription) bool { return true })
}

// BroadcastUser queues env for the subscribers of topic that belong to
// userID, i.e. the user's other devices.
func (h *Hub) BroadcastUser(topic, userID string, env wire.Envelope) {
	h.publish(topic, env, func(s *Subscription) bool { return s.userID == userID })
}

func (h *Hub) publish(topic string, env wire.Envelope, match func(*Subscription) bool) {
	var evicted []*Subscription

	h.mu.RLock()
	for _, s := range h.topics[topic] {
		if !match(s) {
			continue
		}
		select {
		case s.out <- env:
		default:
			evicted = append(evicted, s)
		}
	}
	h.mu.RUnlock()

	if len(evicted) == 0 {
		return
	}
	h.mu.Lock()
	for _, s := range evicted {
		h.log.Warn(context.Background(), "slow subscriber evicted", "topic", topic, "user", s.userID)
		h.removeLocked(s)
	}
	h.mu.Unlock()
}

// Peers returns the number of subscribers of topic.
func (h *Hub) Peers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}
