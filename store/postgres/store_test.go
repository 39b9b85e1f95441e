package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/xraph/debtbook"
	"github.com/xraph/debtbook/store"
	"github.com/xraph/debtbook/store/storetest"
)

// TestConformance runs against a live server named by
// DEBTBOOK_TEST_POSTGRES_DSN. Tables are truncated between subtests.
func TestConformance(t *testing.T) {
	dsn := os.Getenv("DEBTBOOK_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DEBTBOOK_TEST_POSTGRES_DSN not set")
	}

	storetest.Run(t, func(t *testing.T) store.Store {
		ctx := context.Background()
		s, err := Open(ctx, dsn)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		t.Cleanup(func() { _ = s.Close() })
		if err := s.Migrate(ctx); err != nil {
			t.Fatalf("Migrate: %v", err)
		}
		_, err = s.pdb.NewRaw("TRUNCATE debtbook_payments, debtbook_debts, debtbook_counterparties, debtbook_history").Exec(ctx)
		if err != nil {
			t.Fatalf("truncate: %v", err)
		}
		return s
	})
}

func TestWrap(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505"}
	other := errors.New("boom")

	tests := []struct {
		name string
		err  error
		want error
	}{
		{"unique violation", fmt.Errorf("pgdriver: exec: %w", dup), debtbook.ErrAlreadyExists},
		{"sentinel passes through", debtbook.ErrConflict, debtbook.ErrConflict},
		{"other", other, other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := wrap("op", tt.err); !errors.Is(got, tt.want) {
				t.Fatalf("wrap = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsNoRows(t *testing.T) {
	if !isNoRows(pgx.ErrNoRows) {
		t.Fatal("pgx.ErrNoRows not recognised")
	}
	if isNoRows(errors.New("boom")) {
		t.Fatal("unrelated error treated as no rows")
	}
}
