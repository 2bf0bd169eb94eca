package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Directory owns the persisted user records.
//
// It validates input, hashes passwords through a CredentialStore and
// leaves uniqueness to the repository's storage constraint, so two
// concurrent Adds of the same username yield exactly one success.
type Directory struct {
	repo   UserRepository
	creds  *CredentialStore
	logger *slog.Logger

	// dummyHash is verified on unknown usernames so a miss costs the same
	// as a wrong password.
	dummyHash string
}

// NewDirectory creates a Directory over repo.
func NewDirectory(repo UserRepository, creds *CredentialStore, logger *slog.Logger) (*Directory, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dummy, err := HashPassword("backoffice-timing-equaliser")
	if err != nil {
		return nil, fmt.Errorf("preparing directory: %w", err)
	}
	return &Directory{repo: repo, creds: creds, logger: logger, dummyHash: dummy}, nil
}

// Authenticate returns the identity for username when password matches.
// Unknown usernames and wrong passwords both yield ErrInvalidCredentials.
func (d *Directory) Authenticate(ctx context.Context, username, password string) (Identity, error) {
	user, err := d.repo.GetByUsername(ctx, username)
	if errors.Is(err, ErrUserNotFound) {
		d.creds.Verify(ctx, password, d.dummyHash)
		if err := ctx.Err(); err != nil {
			return Identity{}, err
		}
		return Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return Identity{}, err
	}

	if !d.creds.Verify(ctx, password, user.PasswordHash) {
		// A request abandoned while waiting for a hash slot is not a
		// failed login.
		if err := ctx.Err(); err != nil {
			return Identity{}, err
		}
		return Identity{}, ErrInvalidCredentials
	}

	if NeedsRehash(user.PasswordHash) {
		d.upgradeHash(ctx, user, password)
	}

	return user.Identity(), nil
}

// upgradeHash replaces a legacy hash after a successful login.
// Failure is logged and otherwise ignored; the old hash still verifies.
// The write only lands while the row still holds the hash that was
// verified, so a password changed in the meantime is never reverted.
func (d *Directory) upgradeHash(ctx context.Context, user *User, password string) {
	hash, err := d.creds.Hash(ctx, password)
	if err != nil {
		d.logger.Warn("password rehash skipped", "user_id", user.ID, "error", err)
		return
	}
	swapped, err := d.repo.SwapPasswordHash(ctx, user.ID, user.PasswordHash, hash)
	if err != nil {
		d.logger.Warn("password rehash not stored", "user_id", user.ID, "error", err)
		return
	}
	if !swapped {
		d.logger.Info("password rehash dropped, hash changed concurrently", "user_id", user.ID)
		return
	}
	d.logger.Info("password hash upgraded", "user_id", user.ID)
}

// Add creates a user account.
func (d *Directory) Add(ctx context.Context, username, password string, role Role) (*User, error) {
	if username == "" || password == "" || role == "" {
		return nil, fmt.Errorf("%w: username, password and role cannot be empty", ErrValidation)
	}
	if !IsValidUsername(username) {
		return nil, fmt.Errorf("%w: username must be 1-64 letters, digits, dots, hyphens or underscores", ErrValidation)
	}
	if !role.IsValid() {
		return nil, ErrInvalidRole
	}

	hash, err := d.creds.Hash(ctx, password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	user := &User{Username: username, PasswordHash: hash, Role: role}
	if err := d.repo.Create(ctx, user); err != nil {
		return nil, err
	}

	d.logger.Info("user created", "user_id", user.ID, "username", user.Username, "role", user.Role)
	return user, nil
}

// Get returns the user with the given id.
func (d *Directory) Get(ctx context.Context, id string) (*User, error) {
	return d.repo.GetByID(ctx, id)
}

// Update changes username and role and, when upd.Password is set, the
// password. updated_at is always refreshed. Without a password the stored
// hash is not part of the write at all.
func (d *Directory) Update(ctx context.Context, id string, upd UserUpdate) (*User, error) {
	if upd.Username == "" || upd.Role == "" {
		return nil, fmt.Errorf("%w: username and role cannot be empty", ErrValidation)
	}
	if !IsValidUsername(upd.Username) {
		return nil, fmt.Errorf("%w: username must be 1-64 letters, digits, dots, hyphens or underscores", ErrValidation)
	}
	if !upd.Role.IsValid() {
		return nil, ErrInvalidRole
	}

	change := &User{ID: id, Username: upd.Username, Role: upd.Role}
	if upd.Password != nil && *upd.Password != "" {
		hash, err := d.creds.Hash(ctx, *upd.Password)
		if err != nil {
			return nil, fmt.Errorf("hashing password: %w", err)
		}
		change.PasswordHash = hash
	}

	if err := d.repo.Update(ctx, change); err != nil {
		return nil, err
	}

	user, err := d.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	d.logger.Info("user updated", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Delete removes a non-seed account. Seed accounts return
// ErrProtectedAccount whatever id they are addressed by.
func (d *Directory) Delete(ctx context.Context, id string) error {
	user, err := d.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if IsProtectedUsername(user.Username) {
		return ErrProtectedAccount
	}

	if err := d.repo.Delete(ctx, id); err != nil {
		return err
	}

	d.logger.Info("user deleted", "user_id", id)
	return nil
}

// ChangePassword replaces the password of id after checking oldPassword.
// On ErrPasswordMismatch the stored hash is left untouched. A hash changed
// between the check and the write also yields ErrPasswordMismatch.
func (d *Directory) ChangePassword(ctx context.Context, id, oldPassword, newPassword string) error {
	if oldPassword == "" || newPassword == "" {
		return fmt.Errorf("%w: old password and new password cannot be empty", ErrValidation)
	}

	user, err := d.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !d.creds.Verify(ctx, oldPassword, user.PasswordHash) {
		if err := ctx.Err(); err != nil {
			return err
		}
		return ErrPasswordMismatch
	}

	hash, err := d.creds.Hash(ctx, newPassword)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}
	swapped, err := d.repo.SwapPasswordHash(ctx, id, user.PasswordHash, hash)
	if err != nil {
		return err
	}
	if !swapped {
		return ErrPasswordMismatch
	}

	d.logger.Info("password changed", "user_id", id)
	return nil
}

// List returns every user, newest first.
func (d *Directory) List(ctx context.Context) ([]User, error) {
	return d.repo.List(ctx)
}
