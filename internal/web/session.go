package web

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}

// SessionManager keeps logged-in sessions in memory. Tokens are opaque
// UUIDs; expired entries are dropped on lookup and by the maintenance
// scheduler.
type SessionManager struct {
	mu       sync.Mutex
	ttl      time.Duration
	sessions map[string]Session
}

func NewSessionManager(ttl time.Duration) *SessionManager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SessionManager{ttl: ttl, sessions: make(map[string]Session)}
}

func (m *SessionManager) Create(userID string) Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(m.ttl),
	}
	m.sessions[s.Token] = s
	return s
}

func (m *SessionManager) Lookup(token string) (Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[token]
	if !ok {
		return Session{}, false
	}
	if time.Now().After(s.ExpiresAt) {
		delete(m.sessions, token)
		return Session{}, false
	}
	return s, true
}

func (m *SessionManager) Destroy(token string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, token)
}

// DestroyForUser drops every session of one user, used when an account
// is blocked or deleted.
func (m *SessionManager) DestroyForUser(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for token, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, token)
		}
	}
}

func (m *SessionManager) PruneExpired() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	n := 0
	for token, s := range m.sessions {
		if now.After(s.ExpiresAt) {
			delete(m.sessions, token)
			n++
		}
	}
	return n
}
