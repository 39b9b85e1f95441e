package counterparty

import (
	"github.com/xraph/debtbook/id"
	"github.com/xraph/debtbook/types"
)

// Kind is the direction of obligation between an account and a counterparty.
type Kind string

const (
	// KindCustomer owes the account.
	KindCustomer Kind = "customer"
	// KindSupplier is owed by the account.
	KindSupplier Kind = "supplier"
)

// Kinds lists every valid Kind.
var Kinds = []Kind{KindCustomer, KindSupplier}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindCustomer || k == KindSupplier
}

// Prefix returns the ID prefix used for counterparties of this kind.
func (k Kind) Prefix() id.Prefix {
	if k == KindSupplier {
		return id.PrefixSupplier
	}
	return id.PrefixCustomer
}

// NewID generates an ID for a counterparty of this kind.
func (k Kind) NewID() id.ID { return id.New(k.Prefix()) }

// EntityType is the audit entity name for the counterparty itself.
func (k Kind) EntityType() string { return string(k) }

// DebtEntityType is the audit entity name for debts of this kind.
func (k Kind) DebtEntityType() string { return string(k) + "_debt" }

// KindOf derives the kind from a counterparty ID prefix.
func KindOf(cid id.CounterpartyID) (Kind, bool) {
	switch cid.Prefix() {
	case id.PrefixCustomer:
		return KindCustomer, true
	case id.PrefixSupplier:
		return KindSupplier, true
	default:
		return "", false
	}
}

// Counterparty is a customer or supplier owned by one account.
// Email is only collected for suppliers; Phone mostly for customers.
type Counterparty struct {
	types.Entity
	ID      id.CounterpartyID `json:"id"`
	Account string            `json:"account"`
	Kind    Kind              `json:"kind"`
	Name    string            `json:"name"`
	Phone   string            `json:"phone,omitempty"`
	Email   string            `json:"email,omitempty"`
	Address string            `json:"address,omitempty"`
}
