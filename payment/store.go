package payment

import (
	"context"

	"github.com/xraph/debtbook/counterparty"
	"github.com/xraph/debtbook/id"
)

// Store reads payments. Payments are written only through the debt store's
// ApplyPayment so that balance and payment land together.
type Store interface {
	ListPayments(ctx context.Context, account string, opts ListOpts) ([]*Payment, error)
}

// ListOpts filters ListPayments. Results are ordered newest first.
type ListOpts struct {
	Kind   counterparty.Kind
	DebtID id.DebtID
	Limit  int
	Offset int
}
