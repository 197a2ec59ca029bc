package session

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/auctionchat/internal/chat/models"
	"github.com/dmitrijs2005/auctionchat/internal/chat/transport"
	"github.com/dmitrijs2005/auctionchat/internal/chat/wire"
)

type emitted struct {
	event   wire.EventType
	payload any
}

// fakeChannel records emits and lets tests push inbound events and state
// changes synchronously.
type fakeChannel struct {
	mu       sync.Mutex
	nextID   int
	handlers map[wire.EventType]map[int]transport.Handler
	stateFns map[int]func(models.ConnState)
	state    models.ConnState
	emits    []emitted
	emitHook func(event wire.EventType, payload any) error

	connects    int
	disconnects int
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{
		handlers: make(map[wire.EventType]map[int]transport.Handler),
		stateFns: make(map[int]func(models.ConnState)),
		state:    models.StateDisconnected,
	}
}

func (f *fakeChannel) On(event wire.EventType, h transport.Handler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	if f.handlers[event] == nil {
		f.handlers[event] = make(map[int]transport.Handler)
	}
	f.handlers[event][id] = h
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.handlers[event], id)
	}
}

func (f *fakeChannel) OnState(fn func(models.ConnState)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	id := f.nextID
	f.stateFns[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.stateFns, id)
	}
}

func (f *fakeChannel) Emit(_ context.Context, event wire.EventType, payload any) error {
	f.mu.Lock()
	f.emits = append(f.emits, emitted{event: event, payload: payload})
	hook := f.emitHook
	f.mu.Unlock()
	if hook != nil {
		return hook(event, payload)
	}
	return nil
}

func (f *fakeChannel) State() models.ConnState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeChannel) Connect() error {
	f.mu.Lock()
	f.connects++
	f.mu.Unlock()
	f.setState(models.StateConnecting)
	return nil
}

func (f *fakeChannel) Disconnect() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnects++
	return nil
}

func (f *fakeChannel) setState(s models.ConnState) {
	f.mu.Lock()
	f.state = s
	fns := make([]func(models.ConnState), 0, len(f.stateFns))
	for _, fn := range f.stateFns {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(s)
	}
}

func (f *fakeChannel) push(t wire.EventType, payload any) {
	env, err := wire.NewEnvelope(t, "", payload)
	if err != nil {
		panic(err)
	}
	f.mu.Lock()
	hs := make([]transport.Handler, 0, len(f.handlers[t]))
	for _, h := range f.handlers[t] {
		hs = append(hs, h)
	}
	f.mu.Unlock()
	for _, h := range hs {
		h(env)
	}
}

func (f *fakeChannel) emitted() []emitted {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]emitted(nil), f.emits...)
}

func (f *fakeChannel) setEmitHook(h func(wire.EventType, any) error) {
	f.mu.Lock()
	f.emitHook = h
	f.mu.Unlock()
}

type fakeDialer struct {
	ch     *fakeChannel
	topics []string
}

func (d *fakeDialer) Channel(topic string) transport.Channel {
	d.topics = append(d.topics, topic)
	return d.ch
}

type noticeSink struct {
	mu      sync.Mutex
	notices []Notice
}

func (n *noticeSink) Notify(x Notice) {
	n.mu.Lock()
	n.notices = append(n.notices, x)
	n.mu.Unlock()
}

func (n *noticeSink) kinds() []NoticeKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]NoticeKind, len(n.notices))
	for i, x := range n.notices {
		out[i] = x.Kind
	}
	return out
}

type fakeCache struct {
	mu     sync.Mutex
	loaded []models.Message
	saved  map[string][]models.Message
	err    error
}

func (c *fakeCache) Load(context.Context, string) ([]models.Message, error) {
	return c.loaded, c.err
}

func (c *fakeCache) Save(_ context.Context, id string, msgs []models.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saved == nil {
		c.saved = make(map[string][]models.Message)
	}
	c.saved[id] = msgs
	return nil
}
