// Package store defines the unified persistence contract for debtbook.
package store

import (
	"context"

	"github.com/xraph/debtbook/counterparty"
	"github.com/xraph/debtbook/debt"
	"github.com/xraph/debtbook/history"
	"github.com/xraph/debtbook/id"
	"github.com/xraph/debtbook/payment"
)

// Store is the unified storage interface for all debtbook entities.
// Every read and write is scoped by account: a record owned by another
// account is reported as not found.
type Store interface {
	// Counterparty methods
	CreateCounterparty(ctx context.Context, c *counterparty.Counterparty) error
	GetCounterparty(ctx context.Context, account string, cid id.CounterpartyID) (*counterparty.Counterparty, error)
	ListCounterparties(ctx context.Context, account string, opts counterparty.ListOpts) ([]*counterparty.Counterparty, error)

	// Debt methods
	CreateDebt(ctx context.Context, d *debt.Debt) error
	GetDebt(ctx context.Context, account string, debtID id.DebtID) (*debt.Debt, error)
	ListDebts(ctx context.Context, account string, opts debt.ListOpts) ([]*debt.Debt, error)
	ApplyPayment(ctx context.Context, d *debt.Debt, expectedVersion int64, p *payment.Payment) error

	// Payment methods
	ListPayments(ctx context.Context, account string, opts payment.ListOpts) ([]*payment.Payment, error)

	// History methods
	AppendHistory(ctx context.Context, e *history.Entry) error
	ListHistory(ctx context.Context, account string, opts history.ListOpts) ([]*history.Entry, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

// Compile-time checks that the sub-contracts stay in step with Store.
var (
	_ counterparty.Store = Store(nil)
	_ debt.Store         = Store(nil)
	_ payment.Store      = Store(nil)
	_ history.Store      = Store(nil)
)
