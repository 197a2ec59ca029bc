// Package session owns the lifecycle of a vehicle conversation: it opens
// the realtime channel, applies inbound events to the message store and
// runs the optimistic send, read, delete and pin actions.
package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/auctionchat/internal/chat/models"
	"github.com/dmitrijs2005/auctionchat/internal/chat/store"
	"github.com/dmitrijs2005/auctionchat/internal/chat/transport"
	"github.com/dmitrijs2005/auctionchat/internal/chat/upload"
	"github.com/dmitrijs2005/auctionchat/internal/common"
	"github.com/dmitrijs2005/auctionchat/internal/logging"
)

// Cache persists confirmed messages between sessions.
type Cache interface {
	Load(ctx context.Context, conversationID string) ([]models.Message, error)
	Save(ctx context.Context, conversationID string, msgs []models.Message) error
}

type Config struct {
	UserID string
	Dialer transport.Dialer
	// Uploads builds the coordinator of a new session. Nil disables files.
	Uploads  func() *upload.Coordinator
	Cache    Cache
	Notifier Notifier
	Logger   logging.Logger

	StoreOptions []store.Option
	// CacheTimeout bounds cache reads and writes.
	CacheTimeout time.Duration
}

type Manager struct {
	cfg Config
	log logging.Logger

	mu       sync.Mutex
	sessions map[*Session]struct{}
}

func NewManager(cfg Config) *Manager {
	if cfg.CacheTimeout <= 0 {
		cfg.CacheTimeout = 5 * time.Second
	}
	return &Manager{
		cfg:      cfg,
		log:      logging.OrNop(cfg.Logger),
		sessions: make(map[*Session]struct{}),
	}
}

// Open starts a session for a vehicle conversation. The channel connects
// in the background; the returned session starts in the connecting state.
func (m *Manager) Open(ctx context.Context, conversationID string) (*Session, error) {
	conversationID = strings.TrimSpace(conversationID)
	if conversationID == "" {
		return nil, ErrEmptyConversation
	}

	log := m.log.With("conversation", conversationID)
	s := &Session{
		id:       conversationID,
		userID:   m.cfg.UserID,
		store:    store.New(m.cfg.UserID, m.cfg.StoreOptions...),
		state:    models.StateDisconnected,
		notifier: m.cfg.Notifier,
		cache:    m.cfg.Cache,
		cacheTTL: m.cfg.CacheTimeout,
		log:      log,
		onClose:  m.forget,
	}
	if m.cfg.Uploads != nil {
		s.uploads = m.cfg.Uploads()
	}

	if s.cache != nil {
		cctx, cancel := context.WithTimeout(ctx, s.cacheTTL)
		cached, err := s.cache.Load(cctx, conversationID)
		cancel()
		if err != nil {
			log.Warn(ctx, "message cache unavailable", "error", err)
		} else {
			s.store.Seed(cached)
		}
	}

	s.ch = m.cfg.Dialer.Channel(common.Topic(conversationID))
	s.subscribe()
	if err := s.ch.Connect(); err != nil {
		_ = s.Close()
		return nil, err
	}

	m.mu.Lock()
	m.sessions[s] = struct{}{}
	m.mu.Unlock()
	log.Info(ctx, "conversation opened", "cached", s.store.Len())
	return s, nil
}

// CloseAll closes every session still open.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	open := make([]*Session, 0, len(m.sessions))
	for s := range m.sessions {
		open = append(open, s)
	}
	m.mu.Unlock()

	for _, s := range open {
		_ = s.Close()
	}
}

func (m *Manager) forget(s *Session) {
	m.mu.Lock()
	delete(m.sessions, s)
	m.mu.Unlock()
}
