// Package store keeps the ordered message list of one conversation and
// reconciles optimistic local entries with server events.
//
// A Store is not safe for concurrent use. The session serializes every
// mutation through its dispatcher.
package store

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/auctionchat/internal/chat/models"
	"github.com/dmitrijs2005/auctionchat/internal/chat/wire"
)

// ProvisionalPrefix starts every locally assigned message id.
const ProvisionalPrefix = "local-"

var (
	ErrMessageNotFound = errors.New("message not found")
	ErrNotFailed       = errors.New("message is not in failed state")
	ErrEmptyDraft      = errors.New("draft has neither body nor file")
)

type entry struct {
	msg models.Message
	seq uint64

	// set once the server has reported the flag
	serverDeleted bool
	serverRead    bool
}

type Store struct {
	userID  string
	now     func() time.Time
	newID   func() string
	seq     uint64
	entries []*entry
}

type Option func(*Store)

// WithClock overrides the clock used to stamp appended messages.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDGenerator overrides provisional id generation.
func WithIDGenerator(gen func() string) Option {
	return func(s *Store) { s.newID = gen }
}

// New returns an empty store for messages authored locally by userID.
func New(userID string, opts ...Option) *Store {
	s := &Store{
		userID: userID,
		now:    func() time.Time { return time.Now().UTC() },
		newID:  func() string { return ProvisionalPrefix + uuid.NewString() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Append adds a pending message for draft and returns it.
func (s *Store) Append(d models.Draft) (models.Message, error) {
	if d.Empty() {
		return models.Message{}, ErrEmptyDraft
	}
	m := models.Message{
		ClientID:  s.newID(),
		SenderID:  s.userID,
		Body:      d.Body,
		File:      d.File,
		Timestamp: s.now(),
		Status:    models.StatusPending,
	}
	s.insert(m)
	return m, nil
}

// Apply decodes an inbound envelope and applies it. Unknown event types
// are ignored.
func (s *Store) Apply(env wire.Envelope) (bool, error) {
	switch env.Type {
	case wire.EventNewMessage:
		var p wire.NewMessage
		if err := env.Decode(&p); err != nil {
			return false, err
		}
		_, changed := s.ApplyNewMessage(p.Message())
		return changed, nil
	case wire.EventMessageDeleted:
		var p wire.MessageRef
		if err := env.Decode(&p); err != nil {
			return false, err
		}
		return s.ApplyDeleted(p.ID), nil
	case wire.EventMessageRead:
		var p wire.MessageRef
		if err := env.Decode(&p); err != nil {
			return false, err
		}
		return s.ApplyRead(p.ID), nil
	default:
		return false, nil
	}
}

// ApplyNewMessage merges a confirmed message from the server. It replaces a
// matching provisional entry in place or inserts by timestamp. A server id
// already present makes it a no-op. The returned message is the stored
// result.
func (s *Store) ApplyNewMessage(m models.Message) (models.Message, bool) {
	if m.ID == "" {
		return models.Message{}, false
	}
	if e := s.byServerID(m.ID); e != nil {
		return e.msg, false
	}
	if e := s.matchProvisional(m); e != nil {
		e.msg.ID = m.ID
		e.msg.Status = models.StatusConfirmed
		e.msg.FailureReason = ""
		if m.File != nil {
			e.msg.File = m.File
		}
		return e.msg, true
	}
	m.Status = models.StatusConfirmed
	e := s.insert(m)
	e.serverDeleted, e.serverRead = m.Deleted, m.Read
	return m, true
}

// ApplyDeleted marks a message deleted and drops its content.
func (s *Store) ApplyDeleted(id string) bool {
	e := s.find(id)
	if e == nil {
		return false
	}
	changed := !e.msg.Deleted || e.msg.Body != "" || e.msg.File != nil
	e.serverDeleted = true
	e.msg.Deleted = true
	e.msg.Body = ""
	e.msg.File = nil
	return changed
}

// ApplyRead marks a message read.
func (s *Store) ApplyRead(id string) bool {
	e := s.find(id)
	if e == nil {
		return false
	}
	e.serverRead = true
	if e.msg.Read {
		return false
	}
	e.msg.Read = true
	return true
}

// Seed loads previously confirmed messages, e.g. from the local cache.
func (s *Store) Seed(msgs []models.Message) {
	for _, m := range msgs {
		s.ApplyNewMessage(m)
	}
}

// Snapshot returns the messages ordered by timestamp, ties in insertion
// order.
func (s *Store) Snapshot() []models.Message {
	out := make([]models.Message, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.msg
	}
	return out
}

// Confirmed returns only the messages carrying a server id.
func (s *Store) Confirmed() []models.Message {
	out := make([]models.Message, 0, len(s.entries))
	for _, e := range s.entries {
		if e.msg.ID != "" {
			out = append(out, e.msg)
		}
	}
	return out
}

func (s *Store) Len() int { return len(s.entries) }

// Get returns a message by server or provisional id.
func (s *Store) Get(key string) (models.Message, error) {
	e := s.find(key)
	if e == nil {
		return models.Message{}, fmt.Errorf("%w: %s", ErrMessageNotFound, key)
	}
	return e.msg, nil
}

// SetDeleted sets the deleted flag and returns the previous value.
func (s *Store) SetDeleted(key string, deleted bool) (bool, error) {
	e := s.find(key)
	if e == nil {
		return false, fmt.Errorf("%w: %s", ErrMessageNotFound, key)
	}
	prev := e.msg.Deleted
	e.msg.Deleted = deleted
	return prev, nil
}

// SetRead sets the read flag and returns the previous value.
func (s *Store) SetRead(key string, read bool) (bool, error) {
	e := s.find(key)
	if e == nil {
		return false, fmt.Errorf("%w: %s", ErrMessageNotFound, key)
	}
	prev := e.msg.Read
	e.msg.Read = read
	return prev, nil
}

// RevertDeleted clears a deleted flag set by SetDeleted. A deletion the
// server has already reported is kept; reverted is false then.
func (s *Store) RevertDeleted(key string) (reverted bool, err error) {
	e := s.find(key)
	if e == nil {
		return false, fmt.Errorf("%w: %s", ErrMessageNotFound, key)
	}
	if e.serverDeleted || !e.msg.Deleted {
		return false, nil
	}
	e.msg.Deleted = false
	return true, nil
}

// RevertRead clears a read flag set by SetRead unless the server has
// reported the message read.
func (s *Store) RevertRead(key string) (reverted bool, err error) {
	e := s.find(key)
	if e == nil {
		return false, fmt.Errorf("%w: %s", ErrMessageNotFound, key)
	}
	if e.serverRead || !e.msg.Read {
		return false, nil
	}
	e.msg.Read = false
	return true, nil
}

// MarkFailed moves an unconfirmed message to the failed state. Confirmed
// messages are left alone, since a server echo may beat a late rejection.
func (s *Store) MarkFailed(key, reason string) error {
	e := s.find(key)
	if e == nil {
		return fmt.Errorf("%w: %s", ErrMessageNotFound, key)
	}
	if e.msg.Status == models.StatusConfirmed {
		return nil
	}
	e.msg.Status = models.StatusFailed
	e.msg.FailureReason = reason
	return nil
}

// Retry returns a failed message to pending, keeping its position.
func (s *Store) Retry(key string) (models.Message, error) {
	e := s.find(key)
	if e == nil {
		return models.Message{}, fmt.Errorf("%w: %s", ErrMessageNotFound, key)
	}
	if e.msg.Status != models.StatusFailed {
		return models.Message{}, ErrNotFailed
	}
	e.msg.Status = models.StatusPending
	e.msg.FailureReason = ""
	return e.msg, nil
}

// Remove drops a message.
func (s *Store) Remove(key string) error {
	for i, e := range s.entries {
		if e.msg.ID == key || e.msg.ClientID == key {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrMessageNotFound, key)
}

func (s *Store) insert(m models.Message) *entry {
	s.seq++
	e := &entry{msg: m, seq: s.seq}
	i := sort.Search(len(s.entries), func(i int) bool {
		return s.entries[i].msg.Timestamp.After(m.Timestamp)
	})
	s.entries = append(s.entries, nil)
	copy(s.entries[i+1:], s.entries[i:])
	s.entries[i] = e
	return e
}

func (s *Store) find(key string) *entry {
	if key == "" {
		return nil
	}
	if e := s.byServerID(key); e != nil {
		return e
	}
	for _, e := range s.entries {
		if e.msg.ID == "" && e.msg.ClientID == key {
			return e
		}
	}
	return nil
}

func (s *Store) byServerID(id string) *entry {
	for _, e := range s.entries {
		if e.msg.ID == id {
			return e
		}
	}
	return nil
}

// matchProvisional finds the local entry a server message confirms: first
// by echoed client id, then by content among pending entries.
func (s *Store) matchProvisional(m models.Message) *entry {
	if m.ClientID != "" {
		for _, e := range s.entries {
			if e.msg.ID == "" && e.msg.ClientID == m.ClientID {
				return e
			}
		}
	}
	for _, e := range s.entries {
		if e.msg.ID != "" || e.msg.Status != models.StatusPending {
			continue
		}
		if e.msg.SenderID == m.SenderID &&
			e.msg.Body == m.Body &&
			fileURL(e.msg.File) == fileURL(m.File) &&
			sameInstant(e.msg.Timestamp, m.Timestamp) {
			return e
		}
	}
	return nil
}

func fileURL(f *models.FileRef) string {
	if f == nil {
		return ""
	}
	return f.URL
}

// sameInstant compares at millisecond precision, the resolution of the
// wire format.
func sameInstant(a, b time.Time) bool {
	return a.Truncate(time.Millisecond).Equal(b.Truncate(time.Millisecond))
}
