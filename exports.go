package debtbook

import (
	"github.com/xraph/debtbook/counterparty"
	"github.com/xraph/debtbook/debt"
	"github.com/xraph/debtbook/payment"
	"github.com/xraph/debtbook/types"
)

// Re-export common types so callers can stay on the root package.

// Entity is re-exported from types package.
type Entity = types.Entity

// Kind is re-exported from counterparty package.
type Kind = counterparty.Kind

// Counterparty kinds.
const (
	Customer = counterparty.KindCustomer
	Supplier = counterparty.KindSupplier
)

// Debt statuses.
const (
	StatusActive  = debt.StatusActive
	StatusPaid    = debt.StatusPaid
	StatusOverdue = debt.StatusOverdue
)

// Payment methods.
const (
	Cash   = payment.MethodCash
	Card   = payment.MethodCard
	Online = payment.MethodOnline
)

// Re-export helpers
var (
	NewEntity   = types.NewEntity
	FormatMoney = types.Format
	ParseAmount = types.ParseAmount
	ParseDate   = types.ParseDate
)
