package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/nerrad567/backoffice-core/internal/auth"
)

// loginRequest is the request body for POST /api/login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse is the response body for POST /api/login.
type loginResponse struct {
	Success   bool          `json:"success"`
	Message   string        `json:"message"`
	User      auth.Identity `json:"user"`
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expires_at"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// profile is the data block of GET /api/user/profile.
type profile struct {
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Role      auth.Role `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// handleLogin verifies credentials and issues a session token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, ErrCodeValidation, "Username and password cannot be empty")
		return
	}

	id, err := s.directory.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			s.stats.LoginFailed()
		}
		s.writeDirectoryError(w, r, err)
		return
	}

	sess, err := s.sessions.Create(id)
	if err != nil {
		s.writeDirectoryError(w, r, err)
		return
	}
	s.stats.LoginSucceeded()
	s.stats.SessionCreated()

	s.logger.Info("user logged in", "user_id", id.ID, "role", id.Role)

	writeJSON(w, http.StatusOK, loginResponse{
		Success:   true,
		Message:   "Login successful",
		User:      id,
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
	})
}

// handleLogout revokes the presented token. It succeeds whether or not
// the token was known.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if token := auth.BearerToken(r); token != "" {
		s.sessions.Revoke(token)
		s.stats.LoggedOut()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Logout successful",
	})
}

// handleProfile returns the identity snapshot held by the session.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeAuthError(w, auth.ErrNoToken)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": profile{
			UserID:    sess.UserID,
			Username:  sess.Username,
			Role:      sess.Role,
			CreatedAt: sess.CreatedAt,
			ExpiresAt: sess.ExpiresAt,
		},
	})
}

// handleChangePassword replaces the caller's own password.
func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	sess, ok := sessionFromContext(r.Context())
	if !ok {
		writeAuthError(w, auth.ErrNoToken)
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.directory.ChangePassword(r.Context(), sess.UserID, req.OldPassword, req.NewPassword); err != nil {
		s.writeDirectoryError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Password changed successfully",
	})
}
