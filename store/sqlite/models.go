package sqlite

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/xraph/grove"

	"github.com/xraph/debtbook/counterparty"
	"github.com/xraph/debtbook/debt"
	"github.com/xraph/debtbook/history"
	"github.com/xraph/debtbook/id"
	"github.com/xraph/debtbook/payment"
	"github.com/xraph/debtbook/types"
)

// ==================== Counterparty models ====================

type counterpartyModel struct {
	grove.BaseModel `grove:"table:debtbook_counterparties"`

	ID        string    `grove:"id,pk"`
	AccountID string    `grove:"account_id"`
	Kind      string    `grove:"kind"`
	Name      string    `grove:"name"`
	Phone     string    `grove:"phone"`
	Email     string    `grove:"email"`
	Address   string    `grove:"address"`
	CreatedAt time.Time `grove:"created_at"`
	UpdatedAt time.Time `grove:"updated_at"`
}

func toCounterpartyModel(c *counterparty.Counterparty) *counterpartyModel {
	return &counterpartyModel{
		ID:        c.ID.String(),
		AccountID: c.Account,
		Kind:      string(c.Kind),
		Name:      c.Name,
		Phone:     c.Phone,
		Email:     c.Email,
		Address:   c.Address,
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	}
}

func fromCounterpartyModel(m *counterpartyModel) (*counterparty.Counterparty, error) {
	cid, err := id.ParseCounterpartyID(m.ID)
	if err != nil {
		return nil, err
	}
	return &counterparty.Counterparty{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:      cid,
		Account: m.AccountID,
		Kind:    counterparty.Kind(m.Kind),
		Name:    m.Name,
		Phone:   m.Phone,
		Email:   m.Email,
		Address: m.Address,
	}, nil
}

// ==================== Debt models ====================

// Amounts are stored as TEXT so no precision is lost to REAL affinity.
type debtModel struct {
	grove.BaseModel `grove:"table:debtbook_debts"`

	ID              string          `grove:"id,pk"`
	AccountID       string          `grove:"account_id"`
	Kind            string          `grove:"kind"`
	CounterpartyID  string          `grove:"counterparty_id"`
	InitialAmount   decimal.Decimal `grove:"initial_amount"`
	RemainingAmount decimal.Decimal `grove:"remaining_amount"`
	Description     string          `grove:"description"`
	DueDate         time.Time       `grove:"due_date"`
	Status          string          `grove:"status"`
	Version         int64           `grove:"version"`
	CreatedAt       time.Time       `grove:"created_at"`
	UpdatedAt       time.Time       `grove:"updated_at"`
}

func toDebtModel(d *debt.Debt) *debtModel {
	return &debtModel{
		ID:              d.ID.String(),
		AccountID:       d.Account,
		Kind:            string(d.Kind),
		CounterpartyID:  d.CounterpartyID.String(),
		InitialAmount:   d.InitialAmount,
		RemainingAmount: d.RemainingAmount,
		Description:     d.Description,
		DueDate:         types.Date(d.DueDate),
		Status:          string(d.Status),
		Version:         d.Version,
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}
}

func fromDebtModel(m *debtModel) (*debt.Debt, error) {
	debtID, err := id.ParseDebtID(m.ID)
	if err != nil {
		return nil, err
	}
	cid, err := id.ParseCounterpartyID(m.CounterpartyID)
	if err != nil {
		return nil, err
	}
	return &debt.Debt{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt.UTC(),
			UpdatedAt: m.UpdatedAt.UTC(),
		},
		ID:              debtID,
		Account:         m.AccountID,
		Kind:            counterparty.Kind(m.Kind),
		CounterpartyID:  cid,
		InitialAmount:   m.InitialAmount,
		RemainingAmount: m.RemainingAmount,
		Description:     m.Description,
		DueDate:         types.Date(m.DueDate),
		Status:          debt.Status(m.Status),
		Version:         m.Version,
	}, nil
}

// ==================== Payment models ====================

type paymentModel struct {
	grove.BaseModel `grove:"table:debtbook_payments"`

	ID        string          `grove:"id,pk"`
	AccountID string          `grove:"account_id"`
	DebtID    string          `grove:"debt_id"`
	Kind      string          `grove:"kind"`
	Amount    decimal.Decimal `grove:"amount"`
	Method    string          `grove:"method"`
	PaidAt    time.Time       `grove:"paid_at"`
	CreatedAt time.Time       `grove:"created_at"`
}

func toPaymentModel(p *payment.Payment) *paymentModel {
	return &paymentModel{
		ID:        p.ID.String(),
		AccountID: p.Account,
		DebtID:    p.DebtID.String(),
		Kind:      string(p.Kind),
		Amount:    p.Amount,
		Method:    string(p.Method),
		PaidAt:    p.PaidAt.UTC(),
		CreatedAt: p.CreatedAt.UTC(),
	}
}

func fromPaymentModel(m *paymentModel) (*payment.Payment, error) {
	payID, err := id.ParsePaymentID(m.ID)
	if err != nil {
		return nil, err
	}
	debtID, err := id.ParseDebtID(m.DebtID)
	if err != nil {
		return nil, err
	}
	return &payment.Payment{
		ID:        payID,
		Account:   m.AccountID,
		DebtID:    debtID,
		Kind:      counterparty.Kind(m.Kind),
		Amount:    m.Amount,
		Method:    payment.Method(m.Method),
		PaidAt:    m.PaidAt.UTC(),
		CreatedAt: m.CreatedAt.UTC(),
	}, nil
}

// ==================== History models ====================

type historyModel struct {
	grove.BaseModel `grove:"table:debtbook_history"`

	ID         string    `grove:"id,pk"`
	AccountID  string    `grove:"account_id"`
	EntityType string    `grove:"entity_type"`
	EntityID   string    `grove:"entity_id"`
	Action     string    `grove:"action"`
	Details    string    `grove:"details"`
	RecordedAt time.Time `grove:"recorded_at"`
}

func toHistoryModel(e *history.Entry) *historyModel {
	return &historyModel{
		ID:         e.ID.String(),
		AccountID:  e.Account,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		Action:     e.Action,
		Details:    e.Details,
		RecordedAt: e.Timestamp.UTC(),
	}
}

func fromHistoryModel(m *historyModel) (*history.Entry, error) {
	hid, err := id.ParseHistoryID(m.ID)
	if err != nil {
		return nil, err
	}
	return &history.Entry{
		ID:         hid,
		Account:    m.AccountID,
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		Action:     m.Action,
		Details:    m.Details,
		Timestamp:  m.RecordedAt.UTC(),
	}, nil
}
