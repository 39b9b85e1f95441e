// Package observability provides a metrics plugin for debtbook that records
// engine event counts through a MetricFactory.
package observability

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/xraph/debtbook/counterparty"
	"github.com/xraph/debtbook/debt"
	"github.com/xraph/debtbook/id"
	"github.com/xraph/debtbook/payment"
	"github.com/xraph/debtbook/plugin"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin                = (*MetricsExtension)(nil)
	_ plugin.OnCounterpartyCreated = (*MetricsExtension)(nil)
	_ plugin.OnDebtCreated         = (*MetricsExtension)(nil)
	_ plugin.OnPaymentRecorded     = (*MetricsExtension)(nil)
	_ plugin.OnPaymentRejected     = (*MetricsExtension)(nil)
	_ plugin.OnPaymentConflict     = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records engine-wide event metrics.
type MetricsExtension struct {
	factory MetricFactory

	// Counterparty metrics
	CustomerCreated Counter
	SupplierCreated Counter

	// Debt metrics
	DebtCreated  Counter
	DebtSettled  Counter
	DebtOpenedBy Histogram

	// Payment metrics
	PaymentRecorded  Counter
	PaymentAmount    Histogram
	PaymentRejected  Counter
	PaymentConflicts Counter
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		CustomerCreated: factory.Counter("debtbook.customer.created"),
		SupplierCreated: factory.Counter("debtbook.supplier.created"),

		DebtCreated:  factory.Counter("debtbook.debt.created"),
		DebtSettled:  factory.Counter("debtbook.debt.settled"),
		DebtOpenedBy: factory.Histogram("debtbook.debt.initial_amount"),

		PaymentRecorded:  factory.Counter("debtbook.payment.recorded"),
		PaymentAmount:    factory.Histogram("debtbook.payment.amount"),
		PaymentRejected:  factory.Counter("debtbook.payment.rejected"),
		PaymentConflicts: factory.Counter("debtbook.payment.conflicts"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnCounterpartyCreated implements plugin.OnCounterpartyCreated.
func (m *MetricsExtension) OnCounterpartyCreated(_ context.Context, c *counterparty.Counterparty) error {
	if c.Kind == counterparty.KindSupplier {
		m.SupplierCreated.Inc()
	} else {
		m.CustomerCreated.Inc()
	}
	return nil
}

// OnDebtCreated implements plugin.OnDebtCreated.
func (m *MetricsExtension) OnDebtCreated(_ context.Context, d *debt.Debt, _ *counterparty.Counterparty) error {
	m.DebtCreated.Inc()
	m.DebtOpenedBy.Observe(d.InitialAmount.InexactFloat64())
	return nil
}

// OnPaymentRecorded implements plugin.OnPaymentRecorded.
func (m *MetricsExtension) OnPaymentRecorded(_ context.Context, d *debt.Debt, p *payment.Payment) error {
	m.PaymentRecorded.Inc()
	m.PaymentAmount.Observe(p.Amount.InexactFloat64())
	if d.Status == debt.StatusPaid {
		m.DebtSettled.Inc()
	}
	return nil
}

// OnPaymentRejected implements plugin.OnPaymentRejected.
func (m *MetricsExtension) OnPaymentRejected(_ context.Context, _ string, _ id.DebtID, _ decimal.Decimal, _ error) error {
	m.PaymentRejected.Inc()
	return nil
}

// OnPaymentConflict implements plugin.OnPaymentConflict.
func (m *MetricsExtension) OnPaymentConflict(_ context.Context, _ string, _ id.DebtID, _ int) error {
	m.PaymentConflicts.Inc()
	return nil
}
