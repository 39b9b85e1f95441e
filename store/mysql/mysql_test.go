package mysql

import (
	"context"
	"os"
	"testing"

	"github.com/xraph/debtbook/store"
	"github.com/xraph/debtbook/store/storetest"
)

// TestConformance runs against a live server named by
// DEBTBOOK_TEST_MYSQL_DSN.
func TestConformance(t *testing.T) {
	dsn := os.Getenv("DEBTBOOK_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("DEBTBOOK_TEST_MYSQL_DSN not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		s, err := Open(dsn)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		if err := s.Migrate(context.Background()); err != nil {
			t.Fatalf("Migrate: %v", err)
		}
		for _, table := range []string{"debtbook_payments", "debtbook_debts", "debtbook_counterparties", "debtbook_history"} {
			if err := s.DB().Exec("DELETE FROM " + table).Error; err != nil {
				t.Fatalf("clear %s: %v", table, err)
			}
		}
		return s
	})
}

func TestWithParseTime(t *testing.T) {
	tests := []struct{ in, want string }{
		{"u:p@tcp(db:3306)/debtbook", "u:p@tcp(db:3306)/debtbook?parseTime=true&loc=UTC"},
		{"u:p@tcp(db:3306)/debtbook?charset=utf8mb4", "u:p@tcp(db:3306)/debtbook?charset=utf8mb4&parseTime=true&loc=UTC"},
		{"u:p@tcp(db:3306)/debtbook?parseTime=true", "u:p@tcp(db:3306)/debtbook?parseTime=true"},
	}
	for _, tt := range tests {
		if got := withParseTime(tt.in); got != tt.want {
			t.Errorf("withParseTime(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
