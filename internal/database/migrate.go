package database

import (
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	// Registers the pgx5:// scheme.
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/samber/oops"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Migrate applies every pending up migration.
func Migrate(databaseURL string) error {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return oops.In("database").With("operation", "open migration source").Wrap(err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, migrateURL(databaseURL))
	if err != nil {
		_ = source.Close()
		return oops.In("database").With("operation", "initialize migrator").Wrap(err)
	}
	defer func() {
		if srcErr, dbErr := m.Close(); srcErr != nil || dbErr != nil {
			slog.Warn("migrator close failed", "source_error", srcErr, "database_error", dbErr)
		}
	}()
	m.Log = migrateLogger{}

	from, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return oops.In("database").With("operation", "read schema version").Wrap(err)
	}
	if dirty {
		return fmt.Errorf("database schema is dirty at version %d", from)
	}

	if err := m.Up(); err != nil {
		if errors.Is(err, migrate.ErrNoChange) {
			slog.Info("database schema up to date", "version", from)
			return nil
		}
		return oops.In("database").With("operation", "apply migrations").Wrap(err)
	}

	to, _, _ := m.Version()
	slog.Info("database schema migrated", "from_version", from, "to_version", to)
	return nil
}

// migrateURL rewrites postgres:// URLs to the pgx5:// scheme the driver expects.
func migrateURL(databaseURL string) string {
	for _, prefix := range []string{"postgres://", "postgresql://"} {
		if rest, found := strings.CutPrefix(databaseURL, prefix); found {
			return "pgx5://" + rest
		}
	}
	return databaseURL
}

type migrateLogger struct{}

func (migrateLogger) Printf(format string, args ...any) {
	slog.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (migrateLogger) Verbose() bool {
	return false
}
