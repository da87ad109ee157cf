package state

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type ManagerOption func(*Manager)

func WithCapacity(capacity int) ManagerOption {
	return func(m *Manager) {
		if capacity > 0 {
			m.capacity = capacity
		}
	}
}

func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.now = now
		}
	}
}

// Manager is the session factory: it loads a session by id or creates one.
type Manager struct {
	store    Store
	capacity int
	now      func() time.Time

	createMu sync.Mutex
}

func NewManager(store Store, opts ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	m := &Manager{
		store:    store,
		capacity: DefaultHistoryCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// Acquire returns the session for id, creating and saving a new one on miss.
func (m *Manager) Acquire(ctx context.Context, sessionID string) (*Session, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return nil, ErrInvalidSession
	}

	s, err := m.store.Load(ctx, id)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrStateNotFound) {
		return nil, err
	}

	m.createMu.Lock()
	defer m.createMu.Unlock()

	// another request may have created it while we waited
	if s, err := m.store.Load(ctx, id); err == nil {
		return s, nil
	} else if !errors.Is(err, ErrStateNotFound) {
		return nil, err
	}

	s, err = NewSession(id, m.capacity, m.now())
	if err != nil {
		return nil, err
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, err
	}
	log.Debug().Str("session_id", id).Int("capacity", m.capacity).Msg("session created")
	return s, nil
}

// Lookup returns an existing session without creating one.
func (m *Manager) Lookup(ctx context.Context, sessionID string) (*Session, error) {
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return nil, ErrInvalidSession
	}
	return m.store.Load(ctx, id)
}

func (m *Manager) Save(ctx context.Context, s *Session) error {
	if err := s.Validate(); err != nil {
		return err
	}
	s.Touch(m.now())
	return m.store.Save(ctx, s)
}

func (m *Manager) Reset(ctx context.Context, sessionID string) error {
	return m.store.Delete(ctx, sessionID)
}
