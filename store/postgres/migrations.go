package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the debtbook store (PostgreSQL).
var Migrations = migrate.NewGroup("debtbook")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_debtbook_counterparties",
			Version: "20240101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS debtbook_counterparties (
    id         VARCHAR(64) PRIMARY KEY,
    account_id VARCHAR(255) NOT NULL,
    kind       VARCHAR(16) NOT NULL CHECK (kind IN ('customer', 'supplier')),
    name       TEXT NOT NULL,
    phone      TEXT NOT NULL DEFAULT '',
    email      TEXT NOT NULL DEFAULT '',
    address    TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_debtbook_cp_account_kind ON debtbook_counterparties (account_id, kind, name);
CREATE UNIQUE INDEX IF NOT EXISTS idx_debtbook_cp_supplier_name ON debtbook_counterparties (account_id, name) WHERE kind = 'supplier';
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS debtbook_counterparties`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_debtbook_debts",
			Version: "20240101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS debtbook_debts (
    id               VARCHAR(64) PRIMARY KEY,
    account_id       VARCHAR(255) NOT NULL,
    kind             VARCHAR(16) NOT NULL CHECK (kind IN ('customer', 'supplier')),
    counterparty_id  VARCHAR(64) NOT NULL REFERENCES debtbook_counterparties (id),
    initial_amount   NUMERIC(18, 2) NOT NULL CHECK (initial_amount >= 0),
    remaining_amount NUMERIC(18, 2) NOT NULL CHECK (remaining_amount >= 0),
    description      TEXT NOT NULL DEFAULT '',
    due_date         DATE NOT NULL,
    status           VARCHAR(16) NOT NULL DEFAULT 'active' CHECK (status IN ('active', 'paid', 'overdue')),
    version          BIGINT NOT NULL DEFAULT 0,
    created_at       TIMESTAMPTZ NOT NULL,
    updated_at       TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_debtbook_debts_account_status ON debtbook_debts (account_id, status, kind, due_date);
CREATE INDEX IF NOT EXISTS idx_debtbook_debts_counterparty ON debtbook_debts (counterparty_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS debtbook_debts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_debtbook_payments",
			Version: "20240101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS debtbook_payments (
    id         VARCHAR(64) PRIMARY KEY,
    account_id VARCHAR(255) NOT NULL,
    debt_id    VARCHAR(64) NOT NULL REFERENCES debtbook_debts (id),
    kind       VARCHAR(16) NOT NULL,
    amount     NUMERIC(18, 2) NOT NULL CHECK (amount > 0),
    method     VARCHAR(64) NOT NULL DEFAULT 'Cash',
    paid_at    TIMESTAMPTZ NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_debtbook_payments_account ON debtbook_payments (account_id, paid_at DESC);
CREATE INDEX IF NOT EXISTS idx_debtbook_payments_debt ON debtbook_payments (debt_id);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS debtbook_payments`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_debtbook_history",
			Version: "20240101000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS debtbook_history (
    id          VARCHAR(64) PRIMARY KEY,
    account_id  VARCHAR(255) NOT NULL,
    entity_type VARCHAR(64) NOT NULL,
    entity_id   VARCHAR(64) NOT NULL DEFAULT '',
    action      VARCHAR(32) NOT NULL,
    details     TEXT NOT NULL DEFAULT '',
    recorded_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_debtbook_history_account ON debtbook_history (account_id, recorded_at DESC);
CREATE INDEX IF NOT EXISTS idx_debtbook_history_entity ON debtbook_history (account_id, entity_type);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS debtbook_history`)
				return err
			},
		},
	)
}
