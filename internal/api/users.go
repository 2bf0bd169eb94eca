package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/backoffice-core/internal/auth"
)

// ─── Request Types ─────────────────────────────────────────────────

type createUserRequest struct {
	Username string    `json:"username"`
	Password string    `json:"password"`
	Role     auth.Role `json:"role"`
}

type updateUserRequest struct {
	Username string    `json:"username"`
	Password *string   `json:"password,omitempty"`
	Role     auth.Role `json:"role"`
}

// ─── Handlers ──────────────────────────────────────────────────────

// handleListUsers returns all user accounts, newest first.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.directory.List(r.Context())
	if err != nil {
		s.writeDirectoryError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    users,
	})
}

// handleCreateUser creates a new user account.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	user, err := s.directory.Add(r.Context(), req.Username, req.Password, req.Role)
	if err != nil {
		s.writeDirectoryError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "User created successfully",
		"data":    user,
	})
}

// handleGetUser returns a single user by id.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.directory.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeDirectoryError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    user,
	})
}

// handleUpdateUser changes username, role and optionally password.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	user, err := s.directory.Update(r.Context(), chi.URLParam(r, "id"), auth.UserUpdate{
		Username: req.Username,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		s.writeDirectoryError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "User updated successfully",
		"data":    user,
	})
}

// handleDeleteUser removes a non-seed account.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.directory.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeDirectoryError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "User deleted successfully",
	})
}
