package transport

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/auctionchat/internal/chat/models"
	"github.com/dmitrijs2005/auctionchat/internal/chat/wire"
	"github.com/dmitrijs2005/auctionchat/internal/logging"
)

const (
	DefaultAckTimeout      = 10 * time.Second
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMaxInterval     = 30 * time.Second
)

// Options tune a Peer. Zero values fall back to defaults.
type Options struct {
	AckTimeout time.Duration
	// Backoff returns the reconnect policy. It is reset after every
	// successful connection. Returning backoff.Stop ends reconnection.
	Backoff func() backoff.BackOff
	Logger  logging.Logger
}

// NewBackoff returns an exponential policy without an elapsed-time limit.
func NewBackoff(initial, max time.Duration) func() backoff.BackOff {
	if initial <= 0 {
		initial = DefaultInitialInterval
	}
	if max <= 0 {
		max = DefaultMaxInterval
	}
	return func() backoff.BackOff {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = initial
		b.MaxInterval = max
		b.MaxElapsedTime = 0
		return b
	}
}

// Peer implements Channel on top of a ConnectFunc.
type Peer struct {
	topic   string
	connect ConnectFunc
	opts    Options
	log     logging.Logger

	mu        sync.Mutex
	state     models.ConnState
	conn      Conn
	nextID    uint64
	handlers  map[wire.EventType]map[uint64]Handler
	listeners map[uint64]func(models.ConnState)
	pending   map[string]chan error
	started   bool
	closed    bool
	cancel    context.CancelFunc

	writeMu sync.Mutex
	done    chan struct{}
}

var _ Channel = (*Peer)(nil)

func NewPeer(topic string, connect ConnectFunc, opts Options) *Peer {
	if opts.AckTimeout <= 0 {
		opts.AckTimeout = DefaultAckTimeout
	}
	if opts.Backoff == nil {
		opts.Backoff = NewBackoff(0, 0)
	}
	return &Peer{
		topic:     topic,
		connect:   connect,
		opts:      opts,
		log:       logging.OrNop(opts.Logger).With("topic", topic),
		state:     models.StateDisconnected,
		handlers:  make(map[wire.EventType]map[uint64]Handler),
		listeners: make(map[uint64]func(models.ConnState)),
		pending:   make(map[string]chan error),
		done:      make(chan struct{}),
	}
}

func (p *Peer) Topic() string { return p.topic }

// Done is closed when the connect loop has exited.
func (p *Peer) Done() <-chan struct{} { return p.done }

func (p *Peer) On(event wire.EventType, h Handler) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := p.nextID
	if p.handlers[event] == nil {
		p.handlers[event] = make(map[uint64]Handler)
	}
	p.handlers[event][id] = h
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.handlers[event], id)
	}
}

func (p *Peer) OnState(fn func(models.ConnState)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nextID++
	id := p.nextID
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *Peer) State() models.ConnState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Peer) Connect() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	if p.started {
		p.mu.Unlock()
		return nil
	}
	p.started = true
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.mu.Unlock()

	go p.run(ctx)
	return nil
}

func (p *Peer) Disconnect() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.handlers = make(map[wire.EventType]map[uint64]Handler)
	p.listeners = make(map[uint64]func(models.ConnState))
	p.state = models.StateDisconnected
	conn := p.conn
	cancel := p.cancel
	started := p.started
	p.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	var err error
	if conn != nil {
		err = conn.Close()
	}
	if !started {
		close(p.done)
	}
	p.failPending(ErrClosed)
	return err
}

func (p *Peer) Emit(ctx context.Context, event wire.EventType, payload any) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	conn := p.conn
	if p.state != models.StateConnected || conn == nil {
		p.mu.Unlock()
		return ErrNotConnected
	}
	ref := uuid.NewString()
	ack := make(chan error, 1)
	p.pending[ref] = ack
	p.mu.Unlock()

	env, err := wire.NewEnvelope(event, ref, payload)
	if err != nil {
		p.dropPending(ref)
		return err
	}
	env.Topic = p.topic

	p.writeMu.Lock()
	err = conn.Send(ctx, env)
	p.writeMu.Unlock()
	if err != nil {
		p.dropPending(ref)
		return fmt.Errorf("%w: send %s: %v", ErrUnavailable, event, err)
	}

	timer := time.NewTimer(p.opts.AckTimeout)
	defer timer.Stop()

	select {
	case err := <-ack:
		return err
	case <-ctx.Done():
		p.dropPending(ref)
		return ctx.Err()
	case <-timer.C:
		p.dropPending(ref)
		return ErrAckTimeout
	}
}

func (p *Peer) run(ctx context.Context) {
	defer close(p.done)
	bo := p.opts.Backoff()

	for attempt := 1; ; attempt++ {
		p.setState(models.StateConnecting)

		conn, err := p.connect(ctx)
		if err != nil {
			p.setState(models.StateDisconnected)
			if ctx.Err() != nil {
				return
			}
			if errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrBadTopic) {
				p.log.Error(ctx, "channel refused, not retrying", "error", err)
				return
			}
			p.log.Warn(ctx, "channel connect failed", "attempt", attempt, "error", err)
			if !p.sleep(ctx, bo) {
				return
			}
			continue
		}

		if !p.attach(conn) {
			_ = conn.Close()
			return
		}
		bo.Reset()
		attempt = 0
		p.setState(models.StateConnected)
		p.log.Info(ctx, "channel connected")

		err = p.readLoop(conn)

		p.detach(conn)
		p.setState(models.StateDisconnected)
		if ctx.Err() != nil {
			return
		}
		p.log.Warn(ctx, "channel dropped", "error", err)
		if !p.sleep(ctx, bo) {
			return
		}
	}
}

func (p *Peer) sleep(ctx context.Context, bo backoff.BackOff) bool {
	d := bo.NextBackOff()
	if d == backoff.Stop {
		p.log.Error(ctx, "channel reconnect budget exhausted")
		return false
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func (p *Peer) attach(conn Conn) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.conn = conn
	return true
}

func (p *Peer) detach(conn Conn) {
	p.mu.Lock()
	if p.conn == conn {
		p.conn = nil
	}
	p.mu.Unlock()
	_ = conn.Close()
	p.failPending(ErrDisconnected)
}

func (p *Peer) readLoop(conn Conn) error {
	for {
		env, err := conn.Recv()
		if err != nil {
			return err
		}
		if env.Type == wire.EventAck {
			p.resolve(env)
			continue
		}
		p.dispatch(env)
	}
}

func (p *Peer) resolve(env wire.Envelope) {
	var a wire.Ack
	if err := env.Decode(&a); err != nil {
		p.log.Warn(context.Background(), "malformed ack", "error", err)
		return
	}
	if a.Ref == "" {
		a.Ref = env.Ref
	}
	p.mu.Lock()
	ch, ok := p.pending[a.Ref]
	delete(p.pending, a.Ref)
	p.mu.Unlock()
	if !ok {
		p.log.Debug(context.Background(), "ack for unknown ref", "ref", a.Ref)
		return
	}
	ch <- a.Err()
}

func (p *Peer) dispatch(env wire.Envelope) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	hs := make([]Handler, 0, len(p.handlers[env.Type]))
	for _, h := range p.handlers[env.Type] {
		hs = append(hs, h)
	}
	p.mu.Unlock()

	for _, h := range hs {
		h(env)
	}
}

func (p *Peer) setState(s models.ConnState) {
	p.mu.Lock()
	if p.closed || p.state == s {
		p.mu.Unlock()
		return
	}
	p.state = s
	ls := make([]func(models.ConnState), 0, len(p.listeners))
	for _, l := range p.listeners {
		ls = append(ls, l)
	}
	p.mu.Unlock()

	for _, l := range ls {
		l(s)
	}
}

func (p *Peer) dropPending(ref string) {
	p.mu.Lock()
	delete(p.pending, ref)
	p.mu.Unlock()
}

func (p *Peer) failPending(err error) {
	p.mu.Lock()
	pending := p.pending
	p.pending = make(map[string]chan error)
	p.mu.Unlock()
	for _, ch := range pending {
		ch <- err
	}
}
