package auth

import "errors"

// Errors returned by the auth package.
//
// Check them with errors.Is; storage failures wrap ErrStorage together with
// the underlying driver error.
var (
	// ErrValidation is returned for missing or malformed input fields.
	ErrValidation = errors.New("auth: validation failed")

	// ErrNoToken is returned by the gate when the request carries no bearer token.
	ErrNoToken = errors.New("auth: no token provided")

	// ErrInvalidOrExpiredToken is returned when the token is unknown or past its expiry.
	ErrInvalidOrExpiredToken = errors.New("auth: session expired or invalid")

	// ErrInsufficientRole is returned when the session role differs from the required role.
	ErrInsufficientRole = errors.New("auth: insufficient permissions")

	// ErrInvalidCredentials is the single login failure for unknown user and wrong password.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	// ErrUserNotFound is returned when no user matches the given id.
	ErrUserNotFound = errors.New("auth: user not found")

	// ErrPasswordMismatch is returned by ChangePassword when the old password is wrong.
	ErrPasswordMismatch = errors.New("auth: password mismatch")

	// ErrDuplicateUsername is returned when the username is already taken.
	ErrDuplicateUsername = errors.New("auth: username already exists")

	// ErrInvalidRole is returned for a role outside root, admin, user.
	ErrInvalidRole = errors.New("auth: invalid role")

	// ErrProtectedAccount is returned when deleting a seed account.
	ErrProtectedAccount = errors.New("auth: seed account cannot be deleted")

	// ErrStorage wraps failures of the persistence backend.
	ErrStorage = errors.New("auth: storage failure")

	// ErrTokenCollision means a freshly generated token already existed.
	ErrTokenCollision = errors.New("auth: session token collision")
)
