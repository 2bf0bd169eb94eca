package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/nerrad567/backoffice-core/internal/auth"
)

// errorResponse is the body of every failed request.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Code    string `json:"code"`
}

// Common error codes.
const (
	ErrCodeBadRequest         = "bad_request"
	ErrCodeValidation         = "validation_error"
	ErrCodeNoToken            = "no_token"
	ErrCodeInvalidToken       = "invalid_token"
	ErrCodeInvalidCredentials = "invalid_credentials"
	ErrCodeForbidden          = "forbidden"
	ErrCodeNotFound           = "not_found"
	ErrCodePasswordMismatch   = "password_mismatch"
	ErrCodeDuplicateUsername  = "duplicate_username"
	ErrCodeInvalidRole        = "invalid_role"
	ErrCodeProtectedAccount   = "protected_account"
	ErrCodeUnavailable        = "unavailable"
	ErrCodeInternal           = "internal_error"
)

// User-facing messages.
const (
	msgInvalidCredentials = "Username or password error"
	msgNoToken            = "No token provided"
	msgInvalidToken       = "Session expired or invalid"
	msgForbidden          = "Insufficient permissions"
	msgUserNotFound       = "User not found"
	msgPasswordMismatch   = "Old password error, please try again"
	msgDuplicateUsername  = "Username already exists"
	msgInvalidRole        = "Invalid role, must be one of root, admin, user"
	msgProtectedAccount   = "Cannot delete default user (root, admin, user)"
	msgInternal           = "Internal server error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{
		Success: false,
		Error:   message,
		Code:    code,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, msgInternal)
}

// writeAuthError maps gate failures to 401/403.
func writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrNoToken):
		writeError(w, http.StatusUnauthorized, ErrCodeNoToken, msgNoToken)
	case errors.Is(err, auth.ErrInsufficientRole):
		writeError(w, http.StatusForbidden, ErrCodeForbidden, msgForbidden)
	default:
		writeError(w, http.StatusUnauthorized, ErrCodeInvalidToken, msgInvalidToken)
	}
}

// writeDirectoryError maps auth sentinels to a response. Anything
// unrecognised, storage failures included, becomes a bare 500 and is logged.
func (s *Server) writeDirectoryError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrValidation):
		writeError(w, http.StatusBadRequest, ErrCodeValidation, validationMessage(err))
	case errors.Is(err, auth.ErrInvalidRole):
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRole, msgInvalidRole)
	case errors.Is(err, auth.ErrDuplicateUsername):
		writeError(w, http.StatusBadRequest, ErrCodeDuplicateUsername, msgDuplicateUsername)
	case errors.Is(err, auth.ErrProtectedAccount):
		writeError(w, http.StatusBadRequest, ErrCodeProtectedAccount, msgProtectedAccount)
	case errors.Is(err, auth.ErrPasswordMismatch):
		writeError(w, http.StatusBadRequest, ErrCodePasswordMismatch, msgPasswordMismatch)
	case errors.Is(err, auth.ErrUserNotFound):
		writeError(w, http.StatusNotFound, ErrCodeNotFound, msgUserNotFound)
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, ErrCodeInvalidCredentials, msgInvalidCredentials)
	default:
		s.logger.Error("request failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", r.Context().Value(ctxKeyRequestID),
		)
		writeInternalError(w)
	}
}

// validationMessage strips the sentinel prefix from a wrapped
// ErrValidation and capitalises the remaining detail.
func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), auth.ErrValidation.Error())
	msg = strings.TrimPrefix(msg, ": ")
	if msg == "" {
		return "Invalid request"
	}
	r, size := utf8.DecodeRuneInString(msg)
	return string(unicode.ToUpper(r)) + msg[size:]
}
