package counterparty

import (
	"context"

	"github.com/xraph/debtbook/id"
)

// Store persists counterparties. Supplier names are unique per account;
// a duplicate yields debtbook.ErrAlreadyExists.
type Store interface {
	CreateCounterparty(ctx context.Context, c *Counterparty) error
	GetCounterparty(ctx context.Context, account string, cid id.CounterpartyID) (*Counterparty, error)
	ListCounterparties(ctx context.Context, account string, opts ListOpts) ([]*Counterparty, error)
}

// ListOpts filters ListCounterparties. Results are ordered by name.
type ListOpts struct {
	Kind   Kind
	Limit  int
	Offset int
}
