// Package audithook bridges debtbook engine events to an audit trail backend.
//
// It defines a local Recorder interface; NewHistoryRecorder persists events
// to the store's history and NewLogRecorder writes them to a slog.Logger.
// Recording is best-effort: a failing recorder is logged and the operation
// that produced the event is unaffected.
package audithook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/debtbook/counterparty"
	"github.com/xraph/debtbook/debt"
	"github.com/xraph/debtbook/id"
	"github.com/xraph/debtbook/payment"
	"github.com/xraph/debtbook/plugin"
	"github.com/xraph/debtbook/types"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin                = (*Extension)(nil)
	_ plugin.OnInit                = (*Extension)(nil)
	_ plugin.OnCounterpartyCreated = (*Extension)(nil)
	_ plugin.OnDebtCreated         = (*Extension)(nil)
	_ plugin.OnPaymentRecorded     = (*Extension)(nil)
	_ plugin.OnPaymentRejected     = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is one audit record. Resource is the entity type the event is
// filed under ("customer", "supplier_debt", ...); Details is a short human
// readable summary.
type AuditEvent struct {
	Account    string         `json:"account"`
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Details    string         `json:"details"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Multi fans an event out to several recorders and joins their errors.
func Multi(rs ...Recorder) Recorder {
	return RecorderFunc(func(ctx context.Context, event *AuditEvent) error {
		var errs []error
		for _, r := range rs {
			if err := r.Record(ctx, event); err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	})
}

// Extension bridges engine events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
	currency string

	mu       sync.RWMutex
	now      func() time.Time
	clockSet bool // set by WithClock; OnInit then keeps it
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
		currency: types.DefaultCurrency,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// clock is what *debtbook.Ledger exposes for its configured time source.
type clock interface {
	Now() time.Time
}

// OnInit adopts the engine's clock so event timestamps match the records
// they describe. A clock given with WithClock takes precedence.
func (e *Extension) OnInit(_ context.Context, l any) error {
	c, ok := l.(clock)
	if !ok {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.clockSet {
		e.now = c.Now
	}
	return nil
}

func (e *Extension) timestamp() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.now().UTC()
}

// ──────────────────────────────────────────────────
// Counterparty hooks
// ──────────────────────────────────────────────────

// OnCounterpartyCreated implements plugin.OnCounterpartyCreated.
func (e *Extension) OnCounterpartyCreated(ctx context.Context, c *counterparty.Counterparty) error {
	return e.record(ctx, c.Account, ActionCounterpartyCreated, SeverityInfo, OutcomeSuccess,
		c.Kind.EntityType(), c.ID.String(), CategoryDirectory,
		fmt.Sprintf("Created %s: %s", c.Kind, c.Name), nil,
		"name", c.Name,
	)
}

// ──────────────────────────────────────────────────
// Debt hooks
// ──────────────────────────────────────────────────

// OnDebtCreated implements plugin.OnDebtCreated.
func (e *Extension) OnDebtCreated(ctx context.Context, d *debt.Debt, c *counterparty.Counterparty) error {
	return e.record(ctx, d.Account, ActionDebtCreated, SeverityInfo, OutcomeSuccess,
		d.Kind.DebtEntityType(), d.ID.String(), CategoryDebt,
		fmt.Sprintf("Added debt for %s: %s", c.Name, types.Format(d.InitialAmount, e.currency)), nil,
		"counterparty_id", d.CounterpartyID.String(),
		"amount", d.InitialAmount.String(),
		"due_date", d.DueDate.Format(types.DateLayout),
	)
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentRecorded implements plugin.OnPaymentRecorded.
func (e *Extension) OnPaymentRecorded(ctx context.Context, d *debt.Debt, p *payment.Payment) error {
	return e.record(ctx, p.Account, ActionPaymentRecorded, SeverityInfo, OutcomeSuccess,
		d.Kind.DebtEntityType(), d.ID.String(), CategoryPayment,
		fmt.Sprintf("Paid %s on debt %s", types.Format(p.Amount, e.currency), d.ID), nil,
		"payment_id", p.ID.String(),
		"amount", p.Amount.String(),
		"method", string(p.Method),
		"remaining", d.RemainingAmount.String(),
		"status", string(d.Status),
	)
}

// OnPaymentRejected implements plugin.OnPaymentRejected.
func (e *Extension) OnPaymentRejected(ctx context.Context, account string, debtID id.DebtID, amount decimal.Decimal, reason error) error {
	return e.record(ctx, account, ActionPaymentRejected, SeverityWarning, OutcomeFailure,
		"debt", debtID.String(), CategoryPayment,
		fmt.Sprintf("Rejected payment of %s on debt %s", types.Format(amount, e.currency), debtID), reason,
		"amount", amount.String(),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	account, action, severity, outcome string,
	resource, resourceID, category, details string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Account:    account,
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Details:    details,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
		Timestamp:  e.timestamp(),
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
