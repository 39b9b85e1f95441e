package sqlstore

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/debtbook/counterparty"
	"github.com/xraph/debtbook/debt"
	"github.com/xraph/debtbook/history"
	"github.com/xraph/debtbook/id"
	"github.com/xraph/debtbook/payment"
	"github.com/xraph/debtbook/types"
)

// ──────────────────────────────────────────────────
// Counterparty model
// ──────────────────────────────────────────────────

type counterpartyModel struct {
	ID        string    `gorm:"column:id;primaryKey"`
	AccountID string    `gorm:"column:account_id"`
	Kind      string    `gorm:"column:kind"`
	Name      string    `gorm:"column:name"`
	Phone     string    `gorm:"column:phone"`
	Email     string    `gorm:"column:email"`
	Address   string    `gorm:"column:address"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (counterpartyModel) TableName() string { return "debtbook_counterparties" }

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

// ──────────────────────────────────────────────────
// Debt model
// ──────────────────────────────────────────────────

type debtModel struct {
	ID              string          `gorm:"column:id;primaryKey"`
	AccountID       string          `gorm:"column:account_id"`
	Kind            string          `gorm:"column:kind"`
	CounterpartyID  string          `gorm:"column:counterparty_id"`
	InitialAmount   decimal.Decimal `gorm:"column:initial_amount"`
	RemainingAmount decimal.Decimal `gorm:"column:remaining_amount"`
	Description     string          `gorm:"column:description"`
	DueDate         time.Time       `gorm:"column:due_date"`
	Status          string          `gorm:"column:status"`
	Version         int64           `gorm:"column:version"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (debtModel) TableName() string { return "debtbook_debts" }

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

// ──────────────────────────────────────────────────
// Payment model
// ──────────────────────────────────────────────────

type paymentModel struct {
	ID        string          `gorm:"column:id;primaryKey"`
	AccountID string          `gorm:"column:account_id"`
	DebtID    string          `gorm:"column:debt_id"`
	Kind      string          `gorm:"column:kind"`
	Amount    decimal.Decimal `gorm:"column:amount"`
	Method    string          `gorm:"column:method"`
	PaidAt    time.Time       `gorm:"column:paid_at"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime:false"`
}

func (paymentModel) TableName() string { return "debtbook_payments" }

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

// ──────────────────────────────────────────────────
// History model
// ──────────────────────────────────────────────────

type historyModel struct {
	ID         string    `gorm:"column:id;primaryKey"`
	AccountID  string    `gorm:"column:account_id"`
	EntityType string    `gorm:"column:entity_type"`
	EntityID   string    `gorm:"column:entity_id"`
	Action     string    `gorm:"column:action"`
	Details    string    `gorm:"column:details"`
	RecordedAt time.Time `gorm:"column:recorded_at"`
}

func (historyModel) TableName() string { return "debtbook_history" }

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
