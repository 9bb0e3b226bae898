// Package appfs embeds the files the binaries need at runtime: database migrations and email templates.
package appfs

import "embed"

//go:embed migrations all:templates
var FS embed.FS

// MigrationsDir returns the goose migrations directory for the database engine.
func MigrationsDir(engine string) string {
	if engine == "sqlite" {
		return "migrations/sqlite"
	}
	return "migrations/postgres"
}
