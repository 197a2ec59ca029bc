package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dmitrijs2005/auctionchat/internal/chat/models"
	"github.com/dmitrijs2005/auctionchat/internal/chat/store"
	"github.com/dmitrijs2005/auctionchat/internal/chat/transport"
	"github.com/dmitrijs2005/auctionchat/internal/chat/upload"
	"github.com/dmitrijs2005/auctionchat/internal/chat/wire"
	"github.com/dmitrijs2005/auctionchat/internal/logging"
)

// Session is one open conversation. All state lives behind mu; inbound
// events arrive from the channel's single reader goroutine and actions
// from callers, and both go through dispatch.
type Session struct {
	id       string
	userID   string
	ch       transport.Channel
	uploads  *upload.Coordinator
	notifier Notifier
	cache    Cache
	cacheTTL time.Duration
	log      logging.Logger
	onClose  func(*Session)

	mu        sync.Mutex
	store     *store.Store
	state     models.ConnState
	pinned    bool
	pinSeq    uint64 // bumped by every pin_changed
	closed    bool
	offs      []func()
	listeners map[int]func()
	nextID    int
}

func (s *Session) ID() string { return s.id }

func (s *Session) State() models.ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Pinned() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pinned
}

// Messages returns the ordered message list.
func (s *Session) Messages() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Snapshot()
}

// Views returns the ordered list projected for rendering.
func (s *Session) Views() []models.View {
	msgs := s.Messages()
	out := make([]models.View, len(msgs))
	for i, m := range msgs {
		out[i] = m.Display()
	}
	return out
}

// Unread counts confirmed messages from others not yet marked read.
func (s *Session) Unread() int {
	n := 0
	for _, m := range s.Messages() {
		if m.ID != "" && !m.IsOwn(s.userID) && !m.Read && !m.Deleted {
			n++
		}
	}
	return n
}

// OnChange registers fn to run after every state change.
func (s *Session) OnChange(fn func()) (off func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listeners == nil {
		s.listeners = make(map[int]func())
	}
	s.nextID++
	id := s.nextID
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// dispatch runs fn under the session lock. It returns false without
// running fn once the session is closed. Listeners run after the lock is
// released when fn reports a change.
func (s *Session) dispatch(fn func() bool) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	changed := fn()
	var ls []func()
	if changed {
		ls = make([]func(), 0, len(s.listeners))
		for _, l := range s.listeners {
			ls = append(ls, l)
		}
	}
	s.mu.Unlock()

	for _, l := range ls {
		l()
	}
	return true
}

func (s *Session) connected() bool {
	return s.State() == models.StateConnected
}

func (s *Session) subscribe() {
	apply := func(env wire.Envelope) {
		var err error
		s.dispatch(func() bool {
			var changed bool
			changed, err = s.store.Apply(env)
			return changed
		})
		if err != nil {
			s.log.Warn(context.Background(), "dropped malformed event", "type", env.Type, "error", err)
		}
	}

	s.offs = append(s.offs,
		s.ch.On(wire.EventNewMessage, apply),
		s.ch.On(wire.EventMessageDeleted, apply),
		s.ch.On(wire.EventMessageRead, apply),
		s.ch.On(wire.EventPinChanged, s.onPinChanged),
		s.ch.OnState(s.onState),
	)
}

func (s *Session) onPinChanged(env wire.Envelope) {
	var p wire.PinState
	if err := env.Decode(&p); err != nil {
		s.log.Warn(context.Background(), "dropped malformed event", "type", env.Type, "error", err)
		return
	}
	s.dispatch(func() bool {
		s.pinSeq++
		changed := s.pinned != p.Pinned
		s.pinned = p.Pinned
		return changed
	})
}

func (s *Session) onState(st models.ConnState) {
	var lost bool
	s.dispatch(func() bool {
		if s.state == st {
			return false
		}
		lost = s.state == models.StateConnected && st == models.StateDisconnected
		s.state = st
		return true
	})
	if lost {
		s.notice(context.Background(), NoticeConnection, "connection lost, reconnecting", nil)
	}
}

// Close unsubscribes, disconnects, cancels uploads and saves the confirmed
// messages to the cache. It is idempotent.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.state = models.StateDisconnected
	offs := s.offs
	s.offs = nil
	s.listeners = nil
	confirmed := s.store.Confirmed()
	s.mu.Unlock()

	for _, off := range offs {
		off()
	}
	if s.uploads != nil {
		s.uploads.Close()
	}
	var err error
	if s.ch != nil {
		err = s.ch.Disconnect()
	}

	if s.cache != nil && len(confirmed) > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), s.cacheTTL)
		if cerr := s.cache.Save(ctx, s.id, confirmed); cerr != nil {
			s.log.Warn(ctx, "message cache save failed", "error", cerr)
		}
		cancel()
	}
	if s.onClose != nil {
		s.onClose(s)
	}
	s.log.Info(context.Background(), "conversation closed")
	return err
}

// Send appends a text message and delivers it.
func (s *Session) Send(ctx context.Context, body string) (models.Message, error) {
	if !s.connected() {
		return models.Message{}, ErrNotConnected
	}
	return s.send(ctx, models.Draft{Body: body})
}

// SendFile runs the upload flow and sends the resulting file with an
// optional caption. ErrCancelled is returned silently when the user backs
// out of the picker.
func (s *Session) SendFile(ctx context.Context, source upload.Source, caption string) (models.Message, error) {
	if !s.connected() {
		return models.Message{}, ErrNotConnected
	}
	if s.uploads == nil {
		return models.Message{}, ErrUploadsDisabled
	}

	pu, err := s.uploads.Select(ctx, source)
	switch {
	case err == nil:
	case errors.Is(err, upload.ErrCancelled):
		return models.Message{}, err
	case errors.Is(err, upload.ErrPermissionDenied):
		s.notice(ctx, NoticePermissionDenied, "media library access is required to share photos and videos", err)
		return models.Message{}, err
	case errors.Is(err, upload.ErrBusy):
		s.notice(ctx, NoticeBusy, "an upload is already in progress", err)
		return models.Message{}, err
	case errors.Is(err, upload.ErrClosed):
		return models.Message{}, ErrClosed
	default:
		s.notice(ctx, NoticeUploadFailed, "could not select file", err)
		return models.Message{}, err
	}

	ref, err := s.uploads.Upload(ctx, pu)
	switch {
	case err == nil:
	case errors.Is(err, upload.ErrClosed):
		return models.Message{}, ErrClosed
	case errors.Is(err, upload.ErrBusy):
		s.notice(ctx, NoticeBusy, "an upload is already in progress", err)
		return models.Message{}, err
	default:
		s.notice(ctx, NoticeUploadFailed, "upload failed", err)
		return models.Message{}, err
	}

	return s.send(ctx, models.Draft{Body: caption, File: ref})
}

func (s *Session) send(ctx context.Context, d models.Draft) (models.Message, error) {
	var m models.Message
	var err error
	if !s.dispatch(func() bool {
		m, err = s.store.Append(d)
		return err == nil
	}) {
		s.log.Warn(ctx, "send after close discarded")
		return models.Message{}, ErrClosed
	}
	if err != nil {
		s.notice(ctx, NoticeValidation, "message is empty", err)
		return models.Message{}, err
	}
	return m, s.deliver(ctx, m)
}

// deliver emits send_message for a pending entry. Any failure leaves the
// entry failed; confirmation arrives as new_message.
func (s *Session) deliver(ctx context.Context, m models.Message) error {
	err := s.ch.Emit(ctx, wire.EventSendMessage, wire.SendMessageFrom(m))
	if err == nil {
		return nil
	}
	if !s.dispatch(func() bool {
		return s.store.MarkFailed(m.ClientID, err.Error()) == nil
	}) {
		s.log.Warn(ctx, "send result after close discarded", "client_id", m.ClientID)
		return ErrClosed
	}
	s.notice(ctx, NoticeRejected, "message could not be sent", err)
	return fmt.Errorf("%w: %w", ErrSendFailed, err)
}

// Retry re-sends a failed message in place.
func (s *Session) Retry(ctx context.Context, key string) error {
	if !s.connected() {
		return ErrNotConnected
	}
	var m models.Message
	var err error
	if !s.dispatch(func() bool {
		m, err = s.store.Retry(key)
		return err == nil
	}) {
		return ErrClosed
	}
	if err != nil {
		return err
	}
	return s.deliver(ctx, m)
}

// Discard drops a failed message.
func (s *Session) Discard(key string) error {
	var err error
	if !s.dispatch(func() bool {
		var m models.Message
		m, err = s.store.Get(key)
		if err != nil {
			return false
		}
		if m.Status != models.StatusFailed {
			err = ErrNotFailed
			return false
		}
		err = s.store.Remove(key)
		return err == nil
	}) {
		return ErrClosed
	}
	return err
}
