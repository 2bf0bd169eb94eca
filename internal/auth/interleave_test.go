package auth

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// interleavingRepo runs between exactly once, right after the first read or
// right before the first write that passes through it. It lets a test commit
// a concurrent change inside another operation's read-then-write window.
type interleavingRepo struct {
	*SQLiteUserRepository
	once    sync.Once
	between func()
}

func (r *interleavingRepo) fire() { r.once.Do(r.between) }

func (r *interleavingRepo) GetByID(ctx context.Context, id string) (*User, error) {
	u, err := r.SQLiteUserRepository.GetByID(ctx, id)
	r.fire()
	return u, err
}

func (r *interleavingRepo) GetByUsername(ctx context.Context, username string) (*User, error) {
	u, err := r.SQLiteUserRepository.GetByUsername(ctx, username)
	r.fire()
	return u, err
}

func (r *interleavingRepo) Update(ctx context.Context, user *User) error {
	r.fire()
	return r.SQLiteUserRepository.Update(ctx, user)
}

func (r *interleavingRepo) SwapPasswordHash(ctx context.Context, id, current, replacement string) (bool, error) {
	r.fire()
	return r.SQLiteUserRepository.SwapPasswordHash(ctx, id, current, replacement)
}

// racingDirectory returns a Directory over repo whose first read or write
// is interleaved with between.
func racingDirectory(t *testing.T, repo *SQLiteUserRepository, between func()) *Directory {
	t.Helper()

	dir, err := NewDirectory(&interleavingRepo{SQLiteUserRepository: repo, between: between},
		NewCredentialStore(2), quietLogger())
	if err != nil {
		t.Fatalf("NewDirectory() error = %v", err)
	}
	return dir
}

func TestDirectory_Update_KeepsConcurrentPasswordChange(t *testing.T) {
	dir, repo := testDirectory(t)
	ctx := context.Background()

	user, err := dir.Add(ctx, "clerk", "old-pw", RoleUser)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	racing := racingDirectory(t, repo, func() {
		if err := dir.ChangePassword(ctx, user.ID, "old-pw", "new-pw"); err != nil {
			t.Errorf("concurrent ChangePassword() error = %v", err)
		}
	})

	updated, err := racing.Update(ctx, user.ID, UserUpdate{Username: "clerk", Role: RoleAdmin})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Role != RoleAdmin {
		t.Errorf("Role = %q, want %q", updated.Role, RoleAdmin)
	}

	if _, err := dir.Authenticate(ctx, "clerk", "new-pw"); err != nil {
		t.Errorf("Authenticate(new-pw) error = %v, concurrent password change was lost", err)
	}
	if _, err := dir.Authenticate(ctx, "clerk", "old-pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Authenticate(old-pw) error = %v, want ErrInvalidCredentials", err)
	}
}

func TestDirectory_Authenticate_RehashKeepsConcurrentPasswordChange(t *testing.T) {
	dir, repo := testDirectory(t)
	ctx := context.Background()

	legacy, err := bcrypt.GenerateFromPassword([]byte("old-pw"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt error = %v", err)
	}
	user := &User{Username: "veteran", PasswordHash: string(legacy), Role: RoleUser}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	racing := racingDirectory(t, repo, func() {
		if err := dir.ChangePassword(ctx, user.ID, "old-pw", "new-pw"); err != nil {
			t.Errorf("concurrent ChangePassword() error = %v", err)
		}
	})

	// The login read the bcrypt hash before the change committed, so it
	// still succeeds; its rehash must not land.
	if _, err := racing.Authenticate(ctx, "veteran", "old-pw"); err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}

	if _, err := dir.Authenticate(ctx, "veteran", "new-pw"); err != nil {
		t.Errorf("Authenticate(new-pw) error = %v, rehash reverted the password change", err)
	}
	if _, err := dir.Authenticate(ctx, "veteran", "old-pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Authenticate(old-pw) error = %v, want ErrInvalidCredentials", err)
	}
}

func TestDirectory_ChangePassword_LosesToConcurrentChange(t *testing.T) {
	dir, repo := testDirectory(t)
	ctx := context.Background()

	user, err := dir.Add(ctx, "clerk", "old-pw", RoleUser)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	racing := racingDirectory(t, repo, func() {
		if err := dir.ChangePassword(ctx, user.ID, "old-pw", "theirs"); err != nil {
			t.Errorf("concurrent ChangePassword() error = %v", err)
		}
	})

	if err := racing.ChangePassword(ctx, user.ID, "old-pw", "mine"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("ChangePassword() error = %v, want ErrPasswordMismatch", err)
	}
	if _, err := dir.Authenticate(ctx, "clerk", "theirs"); err != nil {
		t.Errorf("Authenticate(theirs) error = %v", err)
	}
	if _, err := dir.Authenticate(ctx, "clerk", "mine"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("Authenticate(mine) error = %v, want ErrInvalidCredentials", err)
	}
}

// busyDirectory returns a Directory whose only hash slot is held until the
// test ends.
func busyDirectory(t *testing.T) (*Directory, *Directory) {
	t.Helper()

	dir, repo := testDirectory(t)
	creds := NewCredentialStore(1)
	if err := creds.slots.Acquire(context.Background(), 1); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	t.Cleanup(func() { creds.slots.Release(1) })

	busy, err := NewDirectory(repo, creds, quietLogger())
	if err != nil {
		t.Fatalf("NewDirectory() error = %v", err)
	}
	return dir, busy
}

func TestDirectory_Authenticate_ContextExpiredWaitingForSlot(t *testing.T) {
	dir, busy := busyDirectory(t)
	if _, err := dir.Add(context.Background(), "cashier", "s3cret", RoleUser); err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	for _, username := range []string{"cashier", "nobody"} {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		_, err := busy.Authenticate(ctx, username, "wrong")
		cancel()

		if errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Authenticate(%s) = ErrInvalidCredentials for an expired request", username)
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Authenticate(%s) error = %v, want context.DeadlineExceeded", username, err)
		}
	}
}

func TestDirectory_ChangePassword_ContextExpiredWaitingForSlot(t *testing.T) {
	dir, busy := busyDirectory(t)
	user, err := dir.Add(context.Background(), "cashier", "s3cret", RoleUser)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err = busy.ChangePassword(ctx, user.ID, "s3cret", "n3w")
	if errors.Is(err, ErrPasswordMismatch) {
		t.Fatal("ChangePassword() = ErrPasswordMismatch for an expired request")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("ChangePassword() error = %v, want context.DeadlineExceeded", err)
	}
}
