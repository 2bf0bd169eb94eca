// Package database opens and migrates the back-office user store.
//
// SQLite is the default backend: WAL mode, a busy timeout, STRICT tables
// and an embedded up/down migrator keyed by YYYYMMDD_HHMMSS versions.
// PostgreSQL is optional and is migrated with goose.
//
// Usage:
//
//	db, err := database.Open(cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.SQLite); err != nil {
//	    return err
//	}
package database
