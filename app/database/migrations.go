package database

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// SchemaVersion is the state of the history schema after migrating.
type SchemaVersion struct {
	Version uint
	Applied bool
}

// RunMigrations brings the runs schema up to date. A database left dirty by
// an interrupted migration is reported as an error.
func RunMigrations(db *DB) (SchemaVersion, error) {
	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	applied := true
	if err := m.Up(); err != nil {
		if !errors.Is(err, migrate.ErrNoChange) {
			return SchemaVersion{}, fmt.Errorf("failed to run migrations: %w", err)
		}
		applied = false
	}

	version, dirty, err := m.Version()
	if err != nil {
		return SchemaVersion{}, fmt.Errorf("failed to get migration version: %w", err)
	}
	if dirty {
		return SchemaVersion{}, fmt.Errorf("history schema version %d is dirty", version)
	}

	return SchemaVersion{Version: version, Applied: applied}, nil
}
