package payment

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/debtbook/counterparty"
	"github.com/xraph/debtbook/id"
)

// Method is an informational label describing how a payment was made.
type Method string

const (
	MethodCash   Method = "Cash"
	MethodCard   Method = "Card"
	MethodOnline Method = "Online"
)

// Payment is an immutable partial settlement of one debt.
type Payment struct {
	ID        id.PaymentID      `json:"id"`
	Account   string            `json:"account"`
	DebtID    id.DebtID         `json:"debt_id"`
	Kind      counterparty.Kind `json:"kind"`
	Amount    decimal.Decimal   `json:"amount"`
	Method    Method            `json:"method"`
	PaidAt    time.Time         `json:"paid_at"`
	CreatedAt time.Time         `json:"created_at"`
}
