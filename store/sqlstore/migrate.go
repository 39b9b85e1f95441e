package sqlstore

import (
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

// MigrationsTable records applied schema versions.
const MigrationsTable = "debtbook_migrations"

//go:embed migrations
var migrationsFS embed.FS

// migrateUp applies every pending migration for the store's dialect.
// The migrate instance is never closed: closing it would close the
// shared *sql.DB as well.
func (s *Store) migrateUp() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("debtbook/sql: migrate: %w", err)
	}

	var driver database.Driver
	switch s.dialect {
	case DialectSQLite:
		driver, err = migratesqlite.WithInstance(sqlDB, &migratesqlite.Config{MigrationsTable: MigrationsTable})
	case DialectPostgres:
		driver, err = migratepg.WithInstance(sqlDB, &migratepg.Config{MigrationsTable: MigrationsTable})
	case DialectMySQL:
		driver, err = migratemysql.WithInstance(sqlDB, &migratemysql.Config{MigrationsTable: MigrationsTable})
	default:
		return fmt.Errorf("debtbook/sql: migrate: unsupported dialect %q", s.dialect)
	}
	if err != nil {
		return fmt.Errorf("debtbook/sql: migrate driver: %w", err)
	}

	src, err := iofs.New(migrationsFS, migrationsDir(s.dialect))
	if err != nil {
		return fmt.Errorf("debtbook/sql: migrate source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, string(s.dialect), driver)
	if err != nil {
		return fmt.Errorf("debtbook/sql: migrate: %w", err)
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("debtbook/sql: migrate up: %w", err)
	}
	return nil
}

// migrationsDir names the embedded directory holding a dialect's SQL files.
// The directory names are not the golang-migrate driver names.
func migrationsDir(d Dialect) string {
	switch d {
	case DialectSQLite:
		return "migrations/sqlite"
	case DialectPostgres:
		return "migrations/postgres"
	case DialectMySQL:
		return "migrations/mysql"
	}
	return "migrations/" + string(d)
}
