package database

import (
	"context"
	"testing"
	"testing/fstest"
)

var testMigrations = fstest.MapFS{
	"20260101_000000_create_widgets.up.sql": {Data: []byte(
		`CREATE TABLE widgets (id TEXT PRIMARY KEY, name TEXT NOT NULL) STRICT;`)},
	"20260101_000000_create_widgets.down.sql": {Data: []byte(`DROP TABLE widgets;`)},
	"20260102_000000_add_gadgets.up.sql": {Data: []byte(
		`CREATE TABLE gadgets (id TEXT PRIMARY KEY) STRICT;`)},
	"README.md": {Data: []byte("not a migration")},
}

func tableExists(t *testing.T, db *DB, name string) bool {
	t.Helper()
	var n int
	err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", name).Scan(&n)
	if err != nil {
		t.Fatalf("querying sqlite_master: %v", err)
	}
	return n == 1
}

func TestMigrate(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, testMigrations); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if !tableExists(t, db, "widgets") || !tableExists(t, db, "gadgets") {
		t.Fatal("migrations did not create their tables")
	}

	applied, pending, err := db.MigrationStatus(ctx, testMigrations)
	if err != nil {
		t.Fatalf("MigrationStatus() error = %v", err)
	}
	if len(applied) != 2 || len(pending) != 0 {
		t.Errorf("applied=%d pending=%d, want 2 and 0", len(applied), len(pending))
	}

	// Idempotent.
	if err := db.Migrate(ctx, testMigrations); err != nil {
		t.Fatalf("second Migrate() error = %v", err)
	}
}

func TestMigrate_FailureKeepsEarlierMigrations(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	broken := fstest.MapFS{
		"20260101_000000_ok.up.sql":     {Data: []byte(`CREATE TABLE ok (id TEXT) STRICT;`)},
		"20260102_000000_broken.up.sql": {Data: []byte(`CREATE TABLE nope (`)},
	}
	if err := db.Migrate(ctx, broken); err == nil {
		t.Fatal("Migrate() should fail on invalid SQL")
	}
	if !tableExists(t, db, "ok") {
		t.Error("first migration should remain applied")
	}

	applied, pending, _ := db.MigrationStatus(ctx, broken)
	if len(applied) != 1 || len(pending) != 1 {
		t.Errorf("applied=%d pending=%d, want 1 and 1", len(applied), len(pending))
	}
}

func TestMigrateDown(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	single := fstest.MapFS{
		"20260101_000000_create_widgets.up.sql":   testMigrations["20260101_000000_create_widgets.up.sql"],
		"20260101_000000_create_widgets.down.sql": testMigrations["20260101_000000_create_widgets.down.sql"],
	}
	if err := db.Migrate(ctx, single); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx, single); err != nil {
		t.Fatalf("MigrateDown() error = %v", err)
	}
	if tableExists(t, db, "widgets") {
		t.Error("MigrateDown() should drop widgets")
	}

	// Nothing left to roll back.
	if err := db.MigrateDown(ctx, single); err != nil {
		t.Errorf("MigrateDown() on empty history error = %v", err)
	}
}

func TestMigrateDown_NoDownFile(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Migrate(ctx, testMigrations); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}
	if err := db.MigrateDown(ctx, testMigrations); err == nil {
		t.Error("MigrateDown() should fail when the latest migration has no down file")
	}
}

func TestMigrate_NilFS(t *testing.T) {
	db := openTestDB(t)

	if err := db.Migrate(context.Background(), nil); err != nil {
		t.Errorf("Migrate(nil) error = %v", err)
	}
}

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename    string
		wantVersion string
		wantName    string
		wantUp      bool
		wantOK      bool
	}{
		{"20260118_120000_create_users.up.sql", "20260118_120000", "create_users", true, true},
		{"20260118_120000_create_users.down.sql", "20260118_120000", "create_users", false, true},
		{"20260118_120000.up.sql", "20260118_120000", "20260118_120000", true, true},
		{"20260118_120000_create_users.sql", "", "", false, false},
		{"create_users.up.sql", "", "", false, false},
		{"20260118_120000_create_users.up.txt", "", "", false, false},
	}
	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, isUp, ok := parseMigrationFilename(tt.filename)
			if ok != tt.wantOK || version != tt.wantVersion || name != tt.wantName || isUp != tt.wantUp {
				t.Errorf("parseMigrationFilename(%q) = %q, %q, %v, %v; want %q, %q, %v, %v",
					tt.filename, version, name, isUp, ok,
					tt.wantVersion, tt.wantName, tt.wantUp, tt.wantOK)
			}
		})
	}
}
