package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// RunMigrations applies all pending migrations for the dialect.
func RunMigrations(dialect Dialect, dsn string) error {
	if !dialect.IsValid() {
		return fmt.Errorf("unsupported dialect %q", dialect)
	}

	// Create a separate connection for migrations to avoid interfering with the main connection
	migrateDB, err := sql.Open(dialect.driverName(), dsnFor(dialect, dsn))
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	driver, err := migrationDriver(dialect, migrateDB)
	if err != nil {
		return fmt.Errorf("create %s driver: %w", dialect, err)
	}

	d, err := iofs.New(migrationsFS, "migrations/"+dialect.String())
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, dialect.String(), driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// MigrationVersion reports the applied schema version and whether it is dirty.
func MigrationVersion(dialect Dialect, dsn string) (uint, bool, error) {
	db, err := sql.Open(dialect.driverName(), dsnFor(dialect, dsn))
	if err != nil {
		return 0, false, fmt.Errorf("open migration database: %w", err)
	}
	defer db.Close()

	driver, err := migrationDriver(dialect, db)
	if err != nil {
		return 0, false, fmt.Errorf("create %s driver: %w", dialect, err)
	}

	v, dirty, err := driver.Version()
	if err != nil {
		return 0, false, fmt.Errorf("read version: %w", err)
	}
	if v == database.NilVersion {
		return 0, false, nil
	}
	return uint(v), dirty, nil
}

func migrationDriver(dialect Dialect, db *sql.DB) (database.Driver, error) {
	if dialect == Postgres {
		return migratepgx.WithInstance(db, &migratepgx.Config{})
	}
	return sqlite.WithInstance(db, &sqlite.Config{})
}
