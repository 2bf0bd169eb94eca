package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// DefaultSessionTTL is the session lifetime used when none is configured.
const DefaultSessionTTL = 28800 * time.Second

// sessionTokenBytes is the number of random bytes per token (256 bits).
const sessionTokenBytes = 32

// Session is a point-in-time snapshot of an authenticated identity.
//
// Later changes to the user record (role, username) are not reflected
// until the user logs in again.
type Session struct {
	Token     string    `json:"-"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Identity returns the identity captured by the session.
func (s Session) Identity() Identity {
	return Identity{ID: s.UserID, Username: s.Username, Role: s.Role}
}

// expired reports whether the session is no longer valid at now.
func (s Session) expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// SessionManager issues, validates, revokes and sweeps in-memory sessions.
//
// Sessions live only in this process and are lost on restart. Expired
// entries are removed when read (Validate) or by Sweep.
//
// Thread Safety: one mutex serialises every access to the session table.
type SessionManager struct {
	mu       sync.Mutex
	sessions map[string]Session
	ttl      time.Duration
	now      func() time.Time
}

// SessionOption configures a SessionManager.
type SessionOption func(*SessionManager)

// WithClock replaces time.Now, letting tests move time forward.
func WithClock(now func() time.Time) SessionOption {
	return func(m *SessionManager) {
		m.now = now
	}
}

// NewSessionManager creates an empty session table whose sessions last ttl.
// A non-positive ttl selects DefaultSessionTTL.
func NewSessionManager(ttl time.Duration, opts ...SessionOption) *SessionManager {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	m := &SessionManager{
		sessions: make(map[string]Session),
		ttl:      ttl,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// TTL returns the configured session lifetime.
func (m *SessionManager) TTL() time.Duration {
	return m.ttl
}

// Create issues a new token for id with a full TTL.
func (m *SessionManager) Create(id Identity) (Session, error) {
	b := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(b); err != nil {
		return Session{}, fmt.Errorf("generating session token: %w", err)
	}
	token := hex.EncodeToString(b)

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.sessions[token]; exists {
		return Session{}, ErrTokenCollision
	}

	now := m.now()
	s := Session{
		Token:     token,
		UserID:    id.ID,
		Username:  id.Username,
		Role:      id.Role,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	m.sessions[token] = s
	return s, nil
}

// Validate returns the session for token if it exists and has not expired.
// An expired entry is deleted on the way out.
func (m *SessionManager) Validate(token string) (Session, bool) {
	if token == "" {
		return Session{}, false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[token]
	if !ok {
		return Session{}, false
	}
	if s.expired(m.now()) {
		delete(m.sessions, token)
		return Session{}, false
	}
	return s, true
}

// Revoke removes token. Unknown tokens are ignored.
func (m *SessionManager) Revoke(token string) {
	m.mu.Lock()
	delete(m.sessions, token)
	m.mu.Unlock()
}

// Sweep removes every expired session and returns how many were removed.
func (m *SessionManager) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	removed := 0
	for token, s := range m.sessions {
		if s.expired(now) {
			delete(m.sessions, token)
			removed++
		}
	}
	return removed
}

// Count returns the number of stored sessions, including expired ones
// not yet swept.
func (m *SessionManager) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}
