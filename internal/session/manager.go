package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ent0n29/aac/internal/contextual"
)

type Status string

const (
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrEnded    = errors.New("session ended")
)

// Session carries the per-user state every pipeline stage may read: where the
// user is and which context they pinned manually, if any.
type Session struct {
	ID               string           `json:"session_id"`
	UserID           string           `json:"user_id"`
	Status           Status           `json:"status"`
	Location         string           `json:"location,omitempty"`
	ContextOverride  contextual.Label `json:"context_override,omitempty"`
	InteractionCount int              `json:"interaction_count"`
	StartedAt        time.Time        `json:"started_at"`
	LastActivityAt   time.Time        `json:"last_activity_at"`
}

type Manager struct {
	mu                sync.RWMutex
	sessions          map[string]*Session
	sessionByUser     map[string]string
	inactivityTimeout time.Duration
	onExpire          func(*Session)
}

func NewManager(inactivityTimeout time.Duration) *Manager {
	if inactivityTimeout <= 0 {
		inactivityTimeout = 30 * time.Minute
	}
	return &Manager{
		sessions:          make(map[string]*Session),
		sessionByUser:     make(map[string]string),
		inactivityTimeout: inactivityTimeout,
	}
}

func (m *Manager) InactivityTimeout() time.Duration { return m.inactivityTimeout }

func (m *Manager) SetExpireHook(hook func(*Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onExpire = hook
}

// Create starts a session. A user holding an active session gets it ended first.
func (m *Manager) Create(userID, location string) *Session {
	now := time.Now().UTC()
	s := &Session{
		ID:             uuid.NewString(),
		UserID:         userID,
		Location:       location,
		Status:         StatusActive,
		StartedAt:      now,
		LastActivityAt: now,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if prevID, ok := m.sessionByUser[userID]; ok && userID != "" {
		if prev, ok := m.sessions[prevID]; ok {
			prev.Status = StatusEnded
			prev.LastActivityAt = now
		}
	}
	m.sessions[s.ID] = s
	if userID != "" {
		m.sessionByUser[userID] = s.ID
	}
	return clone(s)
}

func (m *Manager) Get(sessionID string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(s), nil
}

// Active returns the session if it exists and has not ended.
func (m *Manager) Active(sessionID string) (*Session, error) {
	s, err := m.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if s.Status != StatusActive {
		return nil, ErrEnded
	}
	return s, nil
}

// Touch records one processed utterance on the session.
func (m *Manager) Touch(sessionID string) error {
	return m.update(sessionID, func(s *Session) {
		s.InteractionCount++
	})
}

// SetContextOverride pins label for the session; an empty label clears it.
func (m *Manager) SetContextOverride(sessionID string, label contextual.Label) (*Session, error) {
	if label != "" && !label.Valid() {
		return nil, contextual.ErrUnknownLabel
	}
	var out *Session
	err := m.update(sessionID, func(s *Session) {
		s.ContextOverride = label
		out = clone(s)
	})
	return out, err
}

func (m *Manager) SetLocation(sessionID, location string) error {
	return m.update(sessionID, func(s *Session) {
		s.Location = location
	})
}

func (m *Manager) update(sessionID string, fn func(*Session)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrNotFound
	}
	if s.Status != StatusActive {
		return ErrEnded
	}
	fn(s)
	s.LastActivityAt = time.Now().UTC()
	return nil
}

func (m *Manager) End(sessionID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	s.Status = StatusEnded
	s.ContextOverride = ""
	s.LastActivityAt = time.Now().UTC()
	if s.UserID != "" && m.sessionByUser[s.UserID] == s.ID {
		delete(m.sessionByUser, s.UserID)
	}
	return clone(s), nil
}

func (m *Manager) StartJanitor(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.expireInactive()
			}
		}
	}()
}

func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, s := range m.sessions {
		if s.Status == StatusActive {
			count++
		}
	}
	return count
}

// expireInactive ends idle sessions and forgets sessions that ended more than
// one timeout ago.
func (m *Manager) expireInactive() {
	now := time.Now().UTC()
	var expired []*Session

	m.mu.Lock()
	for id, s := range m.sessions {
		idle := now.Sub(s.LastActivityAt)
		if s.Status != StatusActive {
			if idle >= m.inactivityTimeout {
				delete(m.sessions, id)
			}
			continue
		}
		if idle < m.inactivityTimeout {
			continue
		}
		s.Status = StatusEnded
		s.ContextOverride = ""
		s.LastActivityAt = now
		expired = append(expired, clone(s))
		if s.UserID != "" && m.sessionByUser[s.UserID] == s.ID {
			delete(m.sessionByUser, s.UserID)
		}
	}
	hook := m.onExpire
	m.mu.Unlock()

	if hook != nil {
		for _, s := range expired {
			hook(s)
		}
	}
}

func clone(s *Session) *Session {
	c := *s
	return &c
}
