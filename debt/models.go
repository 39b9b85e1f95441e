package debt

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/debtbook/counterparty"
	"github.com/xraph/debtbook/id"
	"github.com/xraph/debtbook/types"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

// Valid reports whether s is one of the closed set of statuses.
func (s Status) Valid() bool {
	return s == StatusActive || s == StatusPaid || s == StatusOverdue
}

// Debt is an obligation between an account and one counterparty.
//
// RemainingAmount always equals InitialAmount minus the sum of the debt's
// payments and is never negative. Version increases by one with every
// applied payment and guards concurrent writers.
type Debt struct {
	types.Entity
	ID              id.DebtID         `json:"id"`
	Account         string            `json:"account"`
	Kind            counterparty.Kind `json:"kind"`
	CounterpartyID  id.CounterpartyID `json:"counterparty_id"`
	InitialAmount   decimal.Decimal   `json:"initial_amount"`
	RemainingAmount decimal.Decimal   `json:"remaining_amount"`
	Description     string            `json:"description,omitempty"`
	DueDate         time.Time         `json:"due_date"`
	Status          Status            `json:"status"`
	Version         int64             `json:"version"`
}

// Paid returns the amount settled so far.
func (d *Debt) Paid() decimal.Decimal {
	return d.InitialAmount.Sub(d.RemainingAmount)
}

// IsSettled reports whether the debt has been paid off.
func (d *Debt) IsSettled() bool {
	return d.Status == StatusPaid
}
