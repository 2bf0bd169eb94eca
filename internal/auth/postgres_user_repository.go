package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL SQLSTATE codes mapped to directory errors.
const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

// PostgresUserRepository implements UserRepository on PostgreSQL through
// the pgx database/sql driver.
type PostgresUserRepository struct {
	db *sql.DB
}

// NewPostgresUserRepository creates a PostgreSQL-backed user repository.
// The schema is expected to be migrated already.
func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

// Create inserts a new user, assigning an ID when none is set.
func (r *PostgresUserRepository) Create(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = newUserID()
	}

	err := r.db.QueryRowContext(ctx,
		`INSERT INTO users (id, username, password_hash, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING created_at, updated_at`,
		user.ID, user.Username, user.PasswordHash, string(user.Role),
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return mapPostgresError("creating user", err)
	}
	return nil
}

// GetByID retrieves a user by their unique ID.
func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	return scanPostgresUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByUsername retrieves a user by their username (case-sensitive).
func (r *PostgresUserRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	return scanPostgresUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

// List returns all users, newest first.
func (r *PostgresUserRepository) List(ctx context.Context) ([]User, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: listing users: %w", ErrStorage, err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanPostgresUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating users: %w", ErrStorage, err)
	}
	return users, nil
}

// Update writes username and role, and refreshes updated_at.
// password_hash is written only when user.PasswordHash is non-empty.
func (r *PostgresUserRepository) Update(ctx context.Context, user *User) error {
	query := `UPDATE users SET username = $1, role = $2, updated_at = now()
		 WHERE id = $3
		 RETURNING updated_at`
	args := []any{user.Username, string(user.Role), user.ID}
	if user.PasswordHash != "" {
		query = `UPDATE users SET username = $1, role = $2, password_hash = $3, updated_at = now()
		 WHERE id = $4
		 RETURNING updated_at`
		args = []any{user.Username, string(user.Role), user.PasswordHash, user.ID}
	}

	err := r.db.QueryRowContext(ctx, query, args...).Scan(&user.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return mapPostgresError("updating user", err)
	}
	return nil
}

// SwapPasswordHash replaces the hash of id with replacement only while the
// stored hash still equals current.
func (r *PostgresUserRepository) SwapPasswordHash(ctx context.Context, id, current, replacement string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2 AND password_hash = $3`,
		replacement, id, current,
	)
	if err != nil {
		return false, fmt.Errorf("%w: swapping password: %w", ErrStorage, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("%w: rows affected: %w", ErrStorage, err)
	}
	return n == 1, nil
}

// Delete removes a user account by ID.
func (r *PostgresUserRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%w: deleting user: %w", ErrStorage, err)
	}
	return requireAffected(result)
}

// Count returns the total number of user accounts.
func (r *PostgresUserRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: counting users: %w", ErrStorage, err)
	}
	return count, nil
}

// requireAffected maps a zero-row write to ErrUserNotFound.
func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %w", ErrStorage, err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// scanPostgresUser scans a user whose timestamps are TIMESTAMPTZ columns.
func scanPostgresUser(s scanner) (*User, error) {
	var u User
	var role string
	var createdAt, updatedAt time.Time

	err := s.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("%w: scanning user: %w", ErrStorage, err)
	}

	u.Role = Role(role)
	u.CreatedAt = createdAt.UTC()
	u.UpdatedAt = updatedAt.UTC()
	return &u, nil
}

// mapPostgresError turns constraint failures into directory errors.
func mapPostgresError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrDuplicateUsername
		case pgCheckViolation:
			return ErrInvalidRole
		}
	}
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
