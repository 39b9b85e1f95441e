package mongo

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/xraph/debtbook/counterparty"
	"github.com/xraph/debtbook/debt"
	"github.com/xraph/debtbook/history"
	"github.com/xraph/debtbook/id"
	"github.com/xraph/debtbook/payment"
	"github.com/xraph/debtbook/types"
)

// ==================== Counterparty models ====================

type counterpartyModel struct {
	ID        string    `bson:"_id"`
	AccountID string    `bson:"account_id"`
	Kind      string    `bson:"kind"`
	Name      string    `bson:"name"`
	Phone     string    `bson:"phone,omitempty"`
	Email     string    `bson:"email,omitempty"`
	Address   string    `bson:"address,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
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

// debtModel is the debt document. Payments are embedded in the document
// so a balance change and its payment are written by one update.
type debtModel struct {
	ID              string          `bson:"_id"`
	AccountID       string          `bson:"account_id"`
	Kind            string          `bson:"kind"`
	CounterpartyID  string          `bson:"counterparty_id"`
	InitialAmount   bson.Decimal128 `bson:"initial_amount"`
	RemainingAmount bson.Decimal128 `bson:"remaining_amount"`
	Description     string          `bson:"description,omitempty"`
	DueDate         time.Time       `bson:"due_date"`
	Status          string          `bson:"status"`
	Version         int64           `bson:"version"`
	Payments        []paymentModel  `bson:"payments"`
	CreatedAt       time.Time       `bson:"created_at"`
	UpdatedAt       time.Time       `bson:"updated_at"`
}

func toDebtModel(d *debt.Debt) (*debtModel, error) {
	initial, err := toDecimal128(d.InitialAmount)
	if err != nil {
		return nil, err
	}
	remaining, err := toDecimal128(d.RemainingAmount)
	if err != nil {
		return nil, err
	}
	return &debtModel{
		ID:              d.ID.String(),
		AccountID:       d.Account,
		Kind:            string(d.Kind),
		CounterpartyID:  d.CounterpartyID.String(),
		InitialAmount:   initial,
		RemainingAmount: remaining,
		Description:     d.Description,
		DueDate:         types.Date(d.DueDate),
		Status:          string(d.Status),
		Version:         d.Version,
		Payments:        []paymentModel{},
		CreatedAt:       d.CreatedAt.UTC(),
		UpdatedAt:       d.UpdatedAt.UTC(),
	}, nil
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
	initial, err := fromDecimal128(m.InitialAmount)
	if err != nil {
		return nil, err
	}
	remaining, err := fromDecimal128(m.RemainingAmount)
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
		InitialAmount:   initial,
		RemainingAmount: remaining,
		Description:     m.Description,
		DueDate:         types.Date(m.DueDate),
		Status:          debt.Status(m.Status),
		Version:         m.Version,
	}, nil
}

// ==================== Payment models ====================

type paymentModel struct {
	ID        string          `bson:"_id"`
	AccountID string          `bson:"account_id"`
	DebtID    string          `bson:"debt_id"`
	Kind      string          `bson:"kind"`
	Amount    bson.Decimal128 `bson:"amount"`
	Method    string          `bson:"method"`
	PaidAt    time.Time       `bson:"paid_at"`
	CreatedAt time.Time       `bson:"created_at"`
}

func toPaymentModel(p *payment.Payment) (*paymentModel, error) {
	amount, err := toDecimal128(p.Amount)
	if err != nil {
		return nil, err
	}
	return &paymentModel{
		ID:        p.ID.String(),
		AccountID: p.Account,
		DebtID:    p.DebtID.String(),
		Kind:      string(p.Kind),
		Amount:    amount,
		Method:    string(p.Method),
		PaidAt:    p.PaidAt.UTC(),
		CreatedAt: p.CreatedAt.UTC(),
	}, nil
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
	amount, err := fromDecimal128(m.Amount)
	if err != nil {
		return nil, err
	}
	return &payment.Payment{
		ID:        payID,
		Account:   m.AccountID,
		DebtID:    debtID,
		Kind:      counterparty.Kind(m.Kind),
		Amount:    amount,
		Method:    payment.Method(m.Method),
		PaidAt:    m.PaidAt.UTC(),
		CreatedAt: m.CreatedAt.UTC(),
	}, nil
}

// ==================== History models ====================

type historyModel struct {
	ID         string    `bson:"_id"`
	AccountID  string    `bson:"account_id"`
	EntityType string    `bson:"entity_type"`
	EntityID   string    `bson:"entity_id,omitempty"`
	Action     string    `bson:"action"`
	Details    string    `bson:"details"`
	RecordedAt time.Time `bson:"recorded_at"`
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

// ==================== Decimal helpers ====================

func toDecimal128(d decimal.Decimal) (bson.Decimal128, error) {
	v, err := bson.ParseDecimal128(d.String())
	if err != nil {
		return bson.Decimal128{}, fmt.Errorf("debtbook/mongo: encode amount %s: %w", d, err)
	}
	return v, nil
}

func fromDecimal128(v bson.Decimal128) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(v.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("debtbook/mongo: decode amount %s: %w", v, err)
	}
	return d, nil
}
