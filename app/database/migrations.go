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

// SchemaState is the history schema after startup migrations.
type SchemaState struct {
	Version uint
	// Applied is the number of migrations run by this call
	Applied uint
}

// RunMigrations brings the delivery history schema up to date. A database left
// dirty by an interrupted migration is reported as an error and not touched.
func RunMigrations(db *DB) (SchemaState, error) {
	m, err := newMigrator(db)
	if err != nil {
		return SchemaState{}, err
	}

	before, err := schemaVersion(m)
	if err != nil {
		return SchemaState{}, err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return SchemaState{}, fmt.Errorf("failed to migrate delivery history from version %d: %w", before, err)
	}

	after, err := schemaVersion(m)
	if err != nil {
		return SchemaState{}, err
	}

	return SchemaState{Version: after, Applied: after - before}, nil
}

func newMigrator(db *DB) (*migrate.Migrate, error) {
	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to create sqlite driver: %w", err)
	}

	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return m, nil
}

// schemaVersion treats a fresh database as version 0.
func schemaVersion(m *migrate.Migrate) (uint, error) {
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	if dirty {
		return 0, fmt.Errorf("delivery history schema is dirty at version %d, fix it manually", version)
	}
	return version, nil
}
