package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
)

var (
	ErrStateNotFound   = errors.New("session state not found")
	ErrNilSessionState = errors.New("session state is nil")
	ErrInvalidSession  = errors.New("session id is empty")
)

// Session owns one conversation's bounded history. Sessions are created by
// Manager and passed by reference through a request. A stored session may be
// shared by concurrent requests, so the update time is only reached through
// Touch and UpdatedAt.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu        sync.RWMutex
	updatedAt time.Time
	history   *History
}

func NewSession(id string, capacity int, now time.Time) (*Session, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrInvalidSession
	}
	now = now.UTC()
	return &Session{
		ID:        id,
		CreatedAt: now,
		updatedAt: now,
		history:   NewHistory(capacity),
	}, nil
}

func (s *Session) History() *History {
	return s.history
}

// Touch records now as the last update time.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	s.updatedAt = now.UTC()
	s.mu.Unlock()
}

func (s *Session) UpdatedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSessionState
	}
	if strings.TrimSpace(s.ID) == "" {
		return ErrInvalidSession
	}
	if s.history == nil {
		return fmt.Errorf("session %s has no history", s.ID)
	}
	return nil
}

type sessionRecord struct {
	SessionID string    `json:"session_id"`
	Capacity  int       `json:"capacity"`
	Entries   []Entry   `json:"entries"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (s *Session) MarshalJSON() ([]byte, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(sessionRecord{
		SessionID: s.ID,
		Capacity:  s.history.Cap(),
		Entries:   s.history.Snapshot(),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt(),
	})
}

func (s *Session) UnmarshalJSON(data []byte) error {
	var rec sessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}

	h := NewHistory(rec.Capacity)
	for _, e := range rec.Entries {
		h.Append(e)
	}

	s.mu.Lock()
	s.ID = rec.SessionID
	s.CreatedAt = rec.CreatedAt
	s.updatedAt = rec.UpdatedAt
	s.history = h
	s.mu.Unlock()
	return s.Validate()
}
