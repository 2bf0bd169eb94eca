package auth

import (
	"regexp"
	"time"
)

// usernamePattern defines the valid format for usernames:
// alphanumeric, dots, hyphens, underscores, 1-64 characters.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]{1,64}$`)

// maxUsernameLength is the maximum allowed username length.
const maxUsernameLength = 64

// IsValidUsername checks if a username meets format requirements.
func IsValidUsername(username string) bool {
	return len(username) <= maxUsernameLength && usernamePattern.MatchString(username)
}

// Role is one of the three fixed back-office tiers.
//
// Roles are compared by exact equality only. There is no hierarchy:
// an admin does not satisfy a route that requires root.
type Role string

const (
	// RoleRoot manages user accounts and sessions.
	RoleRoot Role = "root"

	// RoleAdmin runs the shop floor: products, sales, reports.
	RoleAdmin Role = "admin"

	// RoleUser operates the till.
	RoleUser Role = "user"
)

// ValidRoles is the closed set of roles a user record may carry.
var ValidRoles = []Role{RoleRoot, RoleAdmin, RoleUser}

// IsValid reports whether r is one of ValidRoles.
func (r Role) IsValid() bool {
	for _, v := range ValidRoles {
		if r == v {
			return true
		}
	}
	return false
}

// Seed account usernames. Each is created with a password equal to its
// name and the role of the same name.
const (
	SeedRoot  = "root"
	SeedAdmin = "admin"
	SeedUser  = "user"
)

// seedAccounts lists the built-in accounts in creation order.
var seedAccounts = []struct {
	username string
	role     Role
}{
	{SeedRoot, RoleRoot},
	{SeedAdmin, RoleAdmin},
	{SeedUser, RoleUser},
}

// IsProtectedUsername reports whether username belongs to a seed account.
// Seed accounts can never be deleted.
func IsProtectedUsername(username string) bool {
	for _, s := range seedAccounts {
		if s.username == username {
			return true
		}
	}
	return false
}

// User is a persisted back-office account.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // never serialised
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Identity returns the login identity of u.
func (u *User) Identity() Identity {
	return Identity{ID: u.ID, Username: u.Username, Role: u.Role}
}

// Identity is the authenticated subset of a User handed to the session layer.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     Role   `json:"role"`
}

// UserUpdate carries the fields accepted by Directory.Update.
// A nil Password keeps the stored hash.
type UserUpdate struct {
	Username string
	Password *string
	Role     Role
}
