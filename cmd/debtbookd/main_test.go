package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/xraph/debtbook"
	"github.com/xraph/debtbook/counterparty"
)

// TestOpenStoreDefaultDriver starts an engine on the default sqlite driver
// under each ORM, which runs the schema migrations.
func TestOpenStoreDefaultDriver(t *testing.T) {
	for _, orm := range []string{"grove", "gorm"} {
		t.Run(orm, func(t *testing.T) {
			ctx := context.Background()
			cfg := &Config{}
			cfg.Store.Driver = "sqlite"
			cfg.Store.ORM = orm
			cfg.Store.DSN = filepath.Join(t.TempDir(), "debtbook.db")

			s, err := openStore(ctx, cfg)
			if err != nil {
				t.Fatalf("openStore: %v", err)
			}
			l := debtbook.New(s)
			if err := l.Start(ctx); err != nil {
				t.Fatalf("Start: %v", err)
			}
			defer func() { _ = l.Stop() }()

			c := &counterparty.Counterparty{Kind: counterparty.KindCustomer, Name: "Asha"}
			if err := l.CreateCounterparty(ctx, "shop-1", c); err != nil {
				t.Fatalf("CreateCounterparty: %v", err)
			}
		})
	}
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	cfg := &Config{}
	cfg.Store.Driver = "redis"
	if _, err := openStore(context.Background(), cfg); err == nil {
		t.Fatal("openStore accepted an unknown driver")
	}
}
