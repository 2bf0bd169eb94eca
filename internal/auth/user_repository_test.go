package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// storedHash stands in for a real hash; the repository never inspects it.
const storedHash = "$argon2id$v=19$m=65536,t=3,p=1$c2FsdHNhbHQ$aGFzaGhhc2g"

func TestUserRepository_CreateAndGetByID(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	ctx := context.Background()

	user := &User{Username: "cashier01", PasswordHash: storedHash, Role: RoleUser}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if !strings.HasPrefix(user.ID, "usr-") {
		t.Fatalf("Create() should generate a usr- ID, got %q", user.ID)
	}
	if user.CreatedAt.IsZero() || !user.CreatedAt.Equal(user.UpdatedAt) {
		t.Errorf("timestamps not initialised: created=%v updated=%v", user.CreatedAt, user.UpdatedAt)
	}

	got, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if got.Username != "cashier01" {
		t.Errorf("Username = %q, want %q", got.Username, "cashier01")
	}
	if got.Role != RoleUser {
		t.Errorf("Role = %q, want %q", got.Role, RoleUser)
	}
	if got.PasswordHash != storedHash {
		t.Error("PasswordHash should round-trip unchanged")
	}
}

func TestUserRepository_GetByUsername(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	ctx := context.Background()

	user := &User{Username: "manager", PasswordHash: storedHash, Role: RoleAdmin}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := repo.GetByUsername(ctx, "manager")
	if err != nil {
		t.Fatalf("GetByUsername() error = %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("ID = %q, want %q", got.ID, user.ID)
	}

	// Lookups are case-sensitive.
	if _, err := repo.GetByUsername(ctx, "Manager"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("GetByUsername(Manager) error = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_GetByUsername_NotFound(t *testing.T) {
	repo := NewUserRepository(testDB(t))

	_, err := repo.GetByUsername(context.Background(), "nonexistent")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("error = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	ctx := context.Background()

	if err := repo.Create(ctx, &User{Username: "duplicate", PasswordHash: storedHash, Role: RoleUser}); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	err := repo.Create(ctx, &User{Username: "duplicate", PasswordHash: storedHash, Role: RoleAdmin})
	if !errors.Is(err, ErrDuplicateUsername) {
		t.Errorf("error = %v, want ErrDuplicateUsername", err)
	}
}

func TestUserRepository_RoleCheckConstraint(t *testing.T) {
	repo := NewUserRepository(testDB(t))

	err := repo.Create(context.Background(), &User{Username: "owner", PasswordHash: storedHash, Role: Role("owner")})
	if !errors.Is(err, ErrInvalidRole) {
		t.Errorf("error = %v, want ErrInvalidRole", err)
	}
}

func TestUserRepository_List(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	users, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if users == nil || len(users) != 0 {
		t.Errorf("List() should return an empty slice, got %v", users)
	}

	for _, name := range []string{"alice", "bob", "charlie"} {
		u := &User{Username: name, PasswordHash: storedHash, Role: RoleUser}
		if err := repo.Create(ctx, u); err != nil { //nolint:govet // shadow: err re-declared in test loop
			t.Fatalf("Create(%s) error = %v", name, err)
		}
	}

	users, err = repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(users) != 3 {
		t.Fatalf("List() returned %d users, want 3", len(users))
	}

	// Newest first; rows created within the same second fall back to insertion order.
	if users[0].Username != "charlie" || users[2].Username != "alice" {
		t.Errorf("List() order = %s,%s,%s, want charlie,bob,alice",
			users[0].Username, users[1].Username, users[2].Username)
	}
}

func TestUserRepository_Update(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	ctx := context.Background()

	user := &User{Username: "updateme", PasswordHash: storedHash, Role: RoleUser}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	user.Username = "renamed"
	user.Role = RoleAdmin
	if err := repo.Update(ctx, user); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err := repo.GetByID(ctx, user.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Username != "renamed" {
		t.Errorf("Username = %q, want %q", got.Username, "renamed")
	}
	if got.Role != RoleAdmin {
		t.Errorf("Role = %q, want %q", got.Role, RoleAdmin)
	}
}

func TestUserRepository_Update_Conflicts(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	seedTestUser(t, db, "taken", RoleUser)
	user := seedTestUser(t, db, "mover", RoleUser)

	user.Username = "taken"
	if err := repo.Update(ctx, user); !errors.Is(err, ErrDuplicateUsername) {
		t.Errorf("Update() to taken name error = %v, want ErrDuplicateUsername", err)
	}

	missing := &User{ID: "usr-missing", Username: "ghost", PasswordHash: storedHash, Role: RoleUser}
	if err := repo.Update(ctx, missing); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Update() unknown id error = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_Update_KeepsHashWhenUnset(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	ctx := context.Background()

	user := &User{Username: "keeper", PasswordHash: storedHash, Role: RoleUser}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.Update(ctx, &User{ID: user.ID, Username: "keeper2", Role: RoleAdmin}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, _ := repo.GetByID(ctx, user.ID)
	if got.PasswordHash != storedHash {
		t.Error("Update() without PasswordHash must not touch the stored hash")
	}

	newHash, _ := HashPassword("new-password")
	if err := repo.Update(ctx, &User{ID: user.ID, Username: "keeper2", Role: RoleAdmin, PasswordHash: newHash}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, _ = repo.GetByID(ctx, user.ID)
	if got.PasswordHash != newHash {
		t.Error("Update() with PasswordHash should store it")
	}
}

func TestUserRepository_SwapPasswordHash(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	ctx := context.Background()

	user := &User{Username: "passchange", PasswordHash: storedHash, Role: RoleUser}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	newHash, _ := HashPassword("new-password")
	swapped, err := repo.SwapPasswordHash(ctx, user.ID, storedHash, newHash)
	if err != nil || !swapped {
		t.Fatalf("SwapPasswordHash() = %v, %v, want true, nil", swapped, err)
	}

	got, _ := repo.GetByID(ctx, user.ID)
	ok, _ := VerifyPassword("new-password", got.PasswordHash)
	if !ok {
		t.Error("new password should verify after SwapPasswordHash")
	}

	// The stored hash is no longer storedHash.
	swapped, err = repo.SwapPasswordHash(ctx, user.ID, storedHash, "stale")
	if err != nil || swapped {
		t.Errorf("SwapPasswordHash() with stale hash = %v, %v, want false, nil", swapped, err)
	}
	got, _ = repo.GetByID(ctx, user.ID)
	if got.PasswordHash != newHash {
		t.Error("stale swap must leave the stored hash unchanged")
	}

	swapped, err = repo.SwapPasswordHash(ctx, "usr-missing", storedHash, newHash)
	if err != nil || swapped {
		t.Errorf("SwapPasswordHash() unknown id = %v, %v, want false, nil", swapped, err)
	}
}

func TestUserRepository_Delete(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	ctx := context.Background()

	user := &User{Username: "deleteme", PasswordHash: storedHash, Role: RoleUser}
	if err := repo.Create(ctx, user); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.Delete(ctx, user.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	_, err := repo.GetByID(ctx, user.ID)
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("after delete, GetByID error = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_Delete_NotFound(t *testing.T) {
	repo := NewUserRepository(testDB(t))

	err := repo.Delete(context.Background(), "nonexistent")
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("error = %v, want ErrUserNotFound", err)
	}
}

func TestUserRepository_Count(t *testing.T) {
	repo := NewUserRepository(testDB(t))
	ctx := context.Background()

	count, err := repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 0 {
		t.Errorf("Count() = %d, want 0", count)
	}

	for _, name := range []string{"one", "two"} {
		u := &User{Username: name, PasswordHash: storedHash, Role: RoleUser}
		repo.Create(ctx, u) //nolint:errcheck // test setup
	}

	count, err = repo.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 2 {
		t.Errorf("Count() = %d, want 2", count)
	}
}

func TestUserRepository_StorageFailure(t *testing.T) {
	db := testDB(t)
	repo := NewUserRepository(db)
	db.Close()

	_, err := repo.Count(context.Background())
	if !errors.Is(err, ErrStorage) {
		t.Errorf("Count() on closed db error = %v, want ErrStorage", err)
	}
}
