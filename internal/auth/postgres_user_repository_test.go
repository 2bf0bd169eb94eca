package auth

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

var pgUserColumns = []string{"id", "username", "password_hash", "role", "created_at", "updated_at"}

func newPostgresRepoWithMock(t *testing.T) (*PostgresUserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return NewPostgresUserRepository(db), mock
}

func TestPostgresUserRepository_Create(t *testing.T) {
	repo, mock := newPostgresRepoWithMock(t)
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+users\s*\(id,\s*username,\s*password_hash,\s*role\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*RETURNING\s+created_at,\s*updated_at\s*$`).
		WithArgs(sqlmock.AnyArg(), "alice", storedHash, "admin").
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	u := &User{Username: "alice", PasswordHash: storedHash, Role: RoleAdmin}
	if err := repo.Create(context.Background(), u); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if u.ID == "" || !u.CreatedAt.Equal(now) {
		t.Errorf("Create() did not populate id/timestamps: %+v", u)
	}
}

func TestPostgresUserRepository_Create_ConstraintErrors(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr error
	}{
		{"unique violation", "23505", ErrDuplicateUsername},
		{"check violation", "23514", ErrInvalidRole},
		{"other", "57P01", ErrStorage},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newPostgresRepoWithMock(t)
			mock.ExpectQuery(`INSERT\s+INTO\s+users`).
				WillReturnError(&pgconn.PgError{Code: tt.code})

			err := repo.Create(context.Background(), &User{Username: "alice", PasswordHash: storedHash, Role: RoleUser})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestPostgresUserRepository_GetByUsername(t *testing.T) {
	repo, mock := newPostgresRepoWithMock(t)
	now := time.Now().UTC().Truncate(time.Second)

	mock.ExpectQuery(`(?s)^SELECT\s+id,\s*username,\s*password_hash,\s*role,\s*created_at,\s*updated_at\s+FROM\s+users\s+WHERE\s+username\s*=\s*\$1\s*$`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(pgUserColumns).AddRow("usr-1", "alice", storedHash, "root", now, now))

	got, err := repo.GetByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if got.ID != "usr-1" || got.Role != RoleRoot {
		t.Errorf("GetByUsername() = %+v", got)
	}
}

func TestPostgresUserRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newPostgresRepoWithMock(t)

	mock.ExpectQuery(`FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("usr-x").
		WillReturnError(sql.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), "usr-x"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByID() error = %v, want ErrUserNotFound", err)
	}
}

func TestPostgresUserRepository_List(t *testing.T) {
	repo, mock := newPostgresRepoWithMock(t)
	now := time.Now().UTC().Truncate(time.Second)

	mock.ExpectQuery(`ORDER\s+BY\s+created_at\s+DESC`).
		WillReturnRows(sqlmock.NewRows(pgUserColumns).
			AddRow("usr-2", "bob", storedHash, "user", now, now).
			AddRow("usr-1", "alice", storedHash, "admin", now.Add(-time.Hour), now))

	users, err := repo.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(users) != 2 || users[0].Username != "bob" {
		t.Errorf("List() = %+v", users)
	}
}

func TestPostgresUserRepository_Update_NotFound(t *testing.T) {
	repo, mock := newPostgresRepoWithMock(t)

	mock.ExpectQuery(`(?s)^UPDATE\s+users\s+SET.*RETURNING\s+updated_at\s*$`).
		WithArgs("alice", "user", storedHash, "usr-x").
		WillReturnError(sql.ErrNoRows)

	err := repo.Update(context.Background(), &User{ID: "usr-x", Username: "alice", PasswordHash: storedHash, Role: RoleUser})
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Update() error = %v, want ErrUserNotFound", err)
	}
}

func TestPostgresUserRepository_Update_WithoutPassword(t *testing.T) {
	repo, mock := newPostgresRepoWithMock(t)
	now := time.Now().UTC().Truncate(time.Second)

	mock.ExpectQuery(`^UPDATE\s+users\s+SET\s+username\s*=\s*\$1,\s*role\s*=\s*\$2,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$3`).
		WithArgs("alice", "admin", "usr-1").
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(now))

	u := &User{ID: "usr-1", Username: "alice", Role: RoleAdmin}
	if err := repo.Update(context.Background(), u); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if !u.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %v, want %v", u.UpdatedAt, now)
	}
}

func TestPostgresUserRepository_DeleteAndSwapPasswordHash(t *testing.T) {
	repo, mock := newPostgresRepoWithMock(t)
	ctx := context.Background()

	mock.ExpectExec(`DELETE\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1`).
		WithArgs("usr-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE\s+FROM\s+users`).
		WithArgs("usr-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`UPDATE\s+users\s+SET\s+password_hash.*WHERE\s+id\s*=\s*\$2\s+AND\s+password_hash\s*=\s*\$3`).
		WithArgs("newhash", "usr-2", "oldhash").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE\s+users\s+SET\s+password_hash`).
		WithArgs("newhash", "usr-2", "oldhash").
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(ctx, "usr-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := repo.Delete(ctx, "usr-1"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("second Delete() error = %v, want ErrUserNotFound", err)
	}
	if swapped, err := repo.SwapPasswordHash(ctx, "usr-2", "oldhash", "newhash"); err != nil || !swapped {
		t.Errorf("SwapPasswordHash() = %v, %v, want true, nil", swapped, err)
	}
	if swapped, err := repo.SwapPasswordHash(ctx, "usr-2", "oldhash", "newhash"); err != nil || swapped {
		t.Errorf("stale SwapPasswordHash() = %v, %v, want false, nil", swapped, err)
	}
}

func TestPostgresUserRepository_Count(t *testing.T) {
	repo, mock := newPostgresRepoWithMock(t)

	mock.ExpectQuery(`SELECT\s+COUNT\(\*\)\s+FROM\s+users`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT\s+COUNT\(\*\)\s+FROM\s+users`).
		WillReturnError(errors.New("connection reset"))

	n, err := repo.Count(context.Background())
	if err != nil || n != 3 {
		t.Fatalf("Count() = %d, %v; want 3, nil", n, err)
	}
	if _, err := repo.Count(context.Background()); !errors.Is(err, ErrStorage) {
		t.Errorf("Count() error = %v, want ErrStorage", err)
	}
}
