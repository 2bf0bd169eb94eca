// Package auth provides authentication and authorisation for the back-office API.
//
// It implements a 3-role model (user, admin, root) with:
//   - Argon2id password hashing, accepting legacy bcrypt hashes on verify
//   - A user directory backed by SQLite or PostgreSQL, with protected seed accounts
//   - Opaque 256-bit bearer tokens held in an in-process session table
//   - Exact-match role checks (root does not imply admin)
//
// Sessions are snapshots: a role change or account deletion takes effect
// at the next login, not on tokens already issued.
package auth
