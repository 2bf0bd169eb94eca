// Package migrations embeds the schema migrations into the binary.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed sqlite/*.sql
var sqliteFS embed.FS

//go:embed postgres/*.sql
var postgresFS embed.FS

// SQLite holds the up/down migrations for the embedded SQLite migrator.
var SQLite = mustSub(sqliteFS, "sqlite")

// Postgres holds the goose migrations for PostgreSQL.
var Postgres = mustSub(postgresFS, "postgres")

func mustSub(fsys embed.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}
