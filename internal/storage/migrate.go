package storage

import (
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

// Migrate brings the schema up to date. Running it against a current schema is a no-op.
func (db *DB) Migrate() error {
	m, src, err := db.migrator()
	if err != nil {
		return err
	}
	// m.Close would also close db.conn, so only the source is released.
	defer src.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// MigrateDown rolls back the given number of migrations.
func (db *DB) MigrateDown(steps int) error {
	m, src, err := db.migrator()
	if err != nil {
		return err
	}
	defer src.Close()

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("roll back migrations: %w", err)
	}
	return nil
}

// SchemaVersion reports the applied migration version and whether it is dirty.
func (db *DB) SchemaVersion() (uint, bool, error) {
	m, src, err := db.migrator()
	if err != nil {
		return 0, false, err
	}
	defer src.Close()

	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", err)
	}
	return version, dirty, nil
}

type closer interface{ Close() error }

func (db *DB) migrator() (*migrate.Migrate, closer, error) {
	var (
		driver database.Driver
		err    error
	)
	switch db.driver {
	case DriverPostgres:
		driver, err = pgxmigrate.WithInstance(db.conn, &pgxmigrate.Config{})
	default:
		driver, err = sqlitemigrate.WithInstance(db.conn, &sqlitemigrate.Config{})
	}
	if err != nil {
		return nil, nil, fmt.Errorf("create migration driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, "migrations/"+string(db.driver))
	if err != nil {
		return nil, nil, fmt.Errorf("load migrations: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(db.driver), driver)
	if err != nil {
		src.Close()
		return nil, nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, src, nil
}
