package repository

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	pgxmigrate "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	sqlitemigrate "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// runMigrations brings the item store schema up to the latest version using
// the embedded migration files for the given backend.
func runMigrations(db *sql.DB, backend Backend) error {
	var (
		driver database.Driver
		err    error
	)
	switch backend {
	case SQLiteBackend:
		driver, err = sqlitemigrate.WithInstance(db, &sqlitemigrate.Config{})
	case PostgresBackend:
		driver, err = pgxmigrate.WithInstance(db, &pgxmigrate.Config{})
	default:
		return fmt.Errorf("%w: migrations not supported for %q", ErrUnknownBackend, backend)
	}
	if err != nil {
		return fmt.Errorf("create %s migrate driver: %w", backend, err)
	}

	src, err := iofs.New(migrationsFS, "migrations/"+string(backend))
	if err != nil {
		return fmt.Errorf("load embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(backend), driver)
	if err != nil {
		return fmt.Errorf("init migrations: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}
