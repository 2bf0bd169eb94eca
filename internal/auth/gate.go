package auth

import (
	"net/http"
	"strings"
)

// bearerPrefix is the scheme prefix of the Authorization header.
const bearerPrefix = "Bearer "

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. It returns "" when the header is missing or uses another scheme.
func BearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < len(bearerPrefix) || !strings.EqualFold(h[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(h[len(bearerPrefix):])
}

// Authorize resolves token to a session and checks the role.
//
// An empty required role admits any authenticated session. Otherwise the
// session role must equal required exactly.
func (m *SessionManager) Authorize(token string, required Role) (Session, error) {
	if token == "" {
		return Session{}, ErrNoToken
	}
	s, ok := m.Validate(token)
	if !ok {
		return Session{}, ErrInvalidOrExpiredToken
	}
	if required != "" && s.Role != required {
		return Session{}, ErrInsufficientRole
	}
	return s, nil
}
