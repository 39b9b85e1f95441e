package debt

import (
	"context"
	"time"

	"github.com/xraph/debtbook/counterparty"
	"github.com/xraph/debtbook/id"
	"github.com/xraph/debtbook/payment"
)

type Store interface {
	CreateDebt(ctx context.Context, d *Debt) error
	GetDebt(ctx context.Context, account string, debtID id.DebtID) (*Debt, error)
	ListDebts(ctx context.Context, account string, opts ListOpts) ([]*Debt, error)

	// ApplyPayment stores d (the debt after the payment) and appends p as a
	// single atomic unit. It succeeds only while the stored version still
	// equals expectedVersion and returns debtbook.ErrConflict otherwise.
	ApplyPayment(ctx context.Context, d *Debt, expectedVersion int64, p *payment.Payment) error
}

// ListOpts filters ListDebts. Results are ordered by due date ascending,
// then creation time, then ID. Zero DueFrom/DueTo leave the range open;
// both bounds are inclusive.
type ListOpts struct {
	Kind           counterparty.Kind
	Status         Status
	CounterpartyID id.CounterpartyID
	DueFrom        time.Time
	DueTo          time.Time
	Limit          int
	Offset         int
}
