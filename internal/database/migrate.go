package database

import (
	"embed"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"codepair/api/internal/config"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies pending schema migrations. A dirty state or a real
// migration failure is fatal at startup; an up-to-date schema is not.
func Migrate(cfg config.PostgresConfig) error {
	source, err := iofs.New(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("migration source: %w", err)
	}

	// the pgx/v5 migrate driver registers itself under the pgx5 scheme
	dsn := cfg.DSN
	if strings.HasPrefix(dsn, "postgres://") {
		dsn = "pgx5://" + strings.TrimPrefix(dsn, "postgres://")
	} else if strings.HasPrefix(dsn, "postgresql://") {
		dsn = "pgx5://" + strings.TrimPrefix(dsn, "postgresql://")
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return fmt.Errorf("migrate init: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}
