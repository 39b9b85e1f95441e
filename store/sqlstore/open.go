package sqlstore

import (
	"fmt"
	"strings"

	gormpg "gorm.io/driver/postgres"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// DefaultBusyTimeout is appended to SQLite DSNs that do not set one, in
// milliseconds.
const DefaultBusyTimeout = 5000

// OpenSQLite opens (creating if needed) the SQLite database at dsn through
// gorm. A single connection is kept open so that writers serialise instead
// of failing with SQLITE_BUSY.
func OpenSQLite(dsn string) (*Store, error) {
	db, err := gorm.Open(gormsqlite.Open(withPragmas(dsn)), Config())
	if err != nil {
		return nil, fmt.Errorf("debtbook/sql: open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("debtbook/sql: open sqlite: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	return New(db, DialectSQLite), nil
}

// OpenPostgres connects to PostgreSQL through gorm.
func OpenPostgres(dsn string) (*Store, error) {
	db, err := gorm.Open(gormpg.Open(dsn), Config())
	if err != nil {
		return nil, fmt.Errorf("debtbook/sql: open postgres: %w", err)
	}
	return New(db, DialectPostgres), nil
}

func withPragmas(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_busy_timeout=%d&_foreign_keys=on", dsn, sep, DefaultBusyTimeout)
}
