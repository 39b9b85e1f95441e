// Package plugin provides an extensible hook system for debtbook.
// Plugins observe engine events; a failing plugin is logged and never
// affects the outcome of the operation that triggered it.
package plugin

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/xraph/debtbook/counterparty"
	"github.com/xraph/debtbook/debt"
	"github.com/xraph/debtbook/id"
	"github.com/xraph/debtbook/payment"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts. l is the *debtbook.Ledger.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, l any) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Counterparty hooks
// ──────────────────────────────────────────────────

// OnCounterpartyCreated is called after a customer or supplier is stored.
type OnCounterpartyCreated interface {
	Plugin
	OnCounterpartyCreated(ctx context.Context, c *counterparty.Counterparty) error
}

// ──────────────────────────────────────────────────
// Debt hooks
// ──────────────────────────────────────────────────

// OnDebtCreated is called after a debt is stored. c is the debt's counterparty.
type OnDebtCreated interface {
	Plugin
	OnDebtCreated(ctx context.Context, d *debt.Debt, c *counterparty.Counterparty) error
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentRecorded is called after a payment has been committed. d is the
// debt as of that commit.
type OnPaymentRecorded interface {
	Plugin
	OnPaymentRecorded(ctx context.Context, d *debt.Debt, p *payment.Payment) error
}

// OnPaymentRejected is called when a payment is refused by a business rule
// (invalid amount, overpayment, already settled).
type OnPaymentRejected interface {
	Plugin
	OnPaymentRejected(ctx context.Context, account string, debtID id.DebtID, amount decimal.Decimal, reason error) error
}

// OnPaymentConflict is called each time a payment loses an optimistic
// concurrency race and is about to be re-evaluated.
type OnPaymentConflict interface {
	Plugin
	OnPaymentConflict(ctx context.Context, account string, debtID id.DebtID, attempt int) error
}
