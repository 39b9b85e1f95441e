package debtbook

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/debtbook/counterparty"
	"github.com/xraph/debtbook/debt"
	"github.com/xraph/debtbook/id"
	"github.com/xraph/debtbook/types"
)

// Report lists the active debts of one kind falling due in a date range.
type Report struct {
	Kind             counterparty.Kind `json:"kind"`
	From             time.Time         `json:"from"`
	To               time.Time         `json:"to"`
	Lines            []ReportLine      `json:"lines"`
	TotalOutstanding decimal.Decimal   `json:"total_outstanding"`
}

// ReportLine is one debt in a Report.
type ReportLine struct {
	DebtID           id.DebtID         `json:"debt_id"`
	CounterpartyID   id.CounterpartyID `json:"counterparty_id"`
	CounterpartyName string            `json:"counterparty_name"`
	InitialAmount    decimal.Decimal   `json:"initial_amount"`
	RemainingAmount  decimal.Decimal   `json:"remaining_amount"`
	DueDate          time.Time         `json:"due_date"`
}

// Outstanding sums the remaining amount of account's active debts of kind.
// An empty kind sums both directions.
func (l *Ledger) Outstanding(ctx context.Context, account string, kind counterparty.Kind) (decimal.Decimal, error) {
	ds, err := l.ListActive(ctx, account, kind)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, d := range ds {
		total = total.Add(d.RemainingAmount)
	}
	return total, nil
}

// DebtReport builds a Report of account's active debts of kind whose due
// date lies in [from, to]. A zero bound leaves that side open.
func (l *Ledger) DebtReport(ctx context.Context, account string, kind counterparty.Kind, from, to time.Time) (*Report, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	from, to = types.Date(from), types.Date(to)
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return nil, ValidationError{Field: "to", Message: "must not be before from"}
	}

	ds, err := l.ListDebts(ctx, account, debt.ListOpts{
		Kind:    kind,
		Status:  debt.StatusActive,
		DueFrom: from,
		DueTo:   to,
	})
	if err != nil {
		return nil, err
	}

	r := &Report{
		Kind:             kind,
		From:             from,
		To:               to,
		Lines:            make([]ReportLine, 0, len(ds)),
		TotalOutstanding: decimal.Zero,
	}

	names := make(map[string]string)
	for _, d := range ds {
		key := d.CounterpartyID.String()
		name, ok := names[key]
		if !ok {
			c, err := l.store.GetCounterparty(ctx, account, d.CounterpartyID)
			if err != nil {
				return nil, l.storeErr("debt report", err)
			}
			name = c.Name
			names[key] = name
		}

		r.Lines = append(r.Lines, ReportLine{
			DebtID:           d.ID,
			CounterpartyID:   d.CounterpartyID,
			CounterpartyName: name,
			InitialAmount:    d.InitialAmount,
			RemainingAmount:  d.RemainingAmount,
			DueDate:          d.DueDate,
		})
		r.TotalOutstanding = r.TotalOutstanding.Add(d.RemainingAmount)
	}

	return r, nil
}
