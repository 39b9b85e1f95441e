// Package mysql opens a debtbook store on MySQL.
package mysql

import (
	"fmt"
	"strings"

	gormmysql "gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/xraph/debtbook/store/sqlstore"
)

// Open connects to MySQL using a go-sql-driver DSN such as
// "user:pass@tcp(localhost:3306)/debtbook". parseTime is forced on so
// DATE and DATETIME columns scan into time.Time.
func Open(dsn string) (*sqlstore.Store, error) {
	db, err := gorm.Open(gormmysql.Open(withParseTime(dsn)), sqlstore.Config())
	if err != nil {
		return nil, fmt.Errorf("debtbook/mysql: open: %w", err)
	}
	return New(db), nil
}

// New wraps an already open gorm MySQL connection.
func New(db *gorm.DB) *sqlstore.Store {
	return sqlstore.New(db, sqlstore.DialectMySQL)
}

func withParseTime(dsn string) string {
	if strings.Contains(dsn, "parseTime=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&parseTime=true&loc=UTC"
	}
	return dsn + "?parseTime=true&loc=UTC"
}
