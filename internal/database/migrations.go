package database

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// ErrDirtySchema is returned when an earlier migration stopped halfway and the
// schema needs manual repair before the store can be used.
var ErrDirtySchema = errors.New("database schema is dirty")

// migrationLogger routes migrate progress messages to slog at debug level.
type migrationLogger struct{}

func (migrationLogger) Printf(format string, v ...any) {
	slog.Debug("Migration", "message", strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (migrationLogger) Verbose() bool {
	return false
}

// RunMigrations brings the schema up to the newest embedded version and
// reports the resulting version and dirty flag.
func RunMigrations(db *DB) (uint, bool, error) {
	driver, err := sqlite.WithInstance(db.DB, &sqlite.Config{})
	if err != nil {
		return 0, false, fmt.Errorf("failed to create sqlite migration driver: %w", err)
	}

	migrations, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return 0, false, fmt.Errorf("failed to read embedded migrations: %w", err)
	}

	// The instance is left open: closing it would close the shared connection.
	m, err := migrate.NewWithInstance("iofs", migrations, "sqlite", driver)
	if err != nil {
		return 0, false, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = migrationLogger{}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		var dirty migrate.ErrDirty
		if errors.As(err, &dirty) {
			return uint(dirty.Version), true, fmt.Errorf("%w at version %d", ErrDirtySchema, dirty.Version)
		}
		return 0, false, fmt.Errorf("failed to apply migrations: %w", err)
	}

	version, dirty, err := m.Version()
	if err != nil {
		return 0, false, fmt.Errorf("failed to read schema version: %w", err)
	}

	return version, dirty, nil
}
