package auth

import (
	"context"
	"fmt"
)

// SeedDefaults creates the root, admin and user accounts, each with a
// password equal to its username, when the directory is empty.
// It returns the number of accounts created.
func (d *Directory) SeedDefaults(ctx context.Context) (int, error) {
	count, err := d.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("checking user count: %w", err)
	}
	if count > 0 {
		d.logger.Info("users exist, skipping seed accounts")
		return 0, nil
	}

	created := 0
	for _, s := range seedAccounts {
		hash, err := d.creds.Hash(ctx, s.username)
		if err != nil {
			return created, fmt.Errorf("hashing seed password: %w", err)
		}
		user := &User{Username: s.username, PasswordHash: hash, Role: s.role}
		if err := d.repo.Create(ctx, user); err != nil {
			return created, fmt.Errorf("creating seed account %s: %w", s.username, err)
		}
		created++
	}

	d.logger.Warn("seed accounts created",
		"usernames", []string{SeedRoot, SeedAdmin, SeedUser},
		"action_required", "change the default passwords immediately",
	)
	return created, nil
}

// MigrateLegacyPasswords hashes every stored password that is not a
// recognised hash and returns how many were rewritten.
func (d *Directory) MigrateLegacyPasswords(ctx context.Context) (int, error) {
	users, err := d.repo.List(ctx)
	if err != nil {
		return 0, err
	}

	migrated := 0
	for _, u := range users {
		if IsHashed(u.PasswordHash) {
			continue
		}
		hash, err := d.creds.Hash(ctx, u.PasswordHash)
		if err != nil {
			return migrated, fmt.Errorf("hashing password for %s: %w", u.ID, err)
		}
		swapped, err := d.repo.SwapPasswordHash(ctx, u.ID, u.PasswordHash, hash)
		if err != nil {
			return migrated, fmt.Errorf("storing password for %s: %w", u.ID, err)
		}
		if !swapped {
			continue
		}
		migrated++
		d.logger.Info("plaintext password migrated", "user_id", u.ID)
	}
	return migrated, nil
}
