package audithook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/debtbook/counterparty"
	"github.com/xraph/debtbook/debt"
	"github.com/xraph/debtbook/history"
	"github.com/xraph/debtbook/id"
	"github.com/xraph/debtbook/payment"
)

type captureRecorder struct {
	mu     sync.Mutex
	events []*AuditEvent
}

func (c *captureRecorder) Record(_ context.Context, e *AuditEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
	return nil
}

type historySink struct {
	entries []*history.Entry
	err     error
}

func (h *historySink) AppendHistory(_ context.Context, e *history.Entry) error {
	if h.err != nil {
		return h.err
	}
	h.entries = append(h.entries, e)
	return nil
}

func (h *historySink) ListHistory(context.Context, string, history.ListOpts) ([]*history.Entry, error) {
	return h.entries, nil
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func fixtures() (*counterparty.Counterparty, *debt.Debt, *payment.Payment) {
	c := &counterparty.Counterparty{ID: id.NewCustomerID(), Account: "acct", Kind: counterparty.KindCustomer, Name: "Asha"}
	d := &debt.Debt{
		ID:              id.NewDebtID(),
		Account:         "acct",
		Kind:            counterparty.KindCustomer,
		CounterpartyID:  c.ID,
		InitialAmount:   decimal.NewFromInt(500),
		RemainingAmount: decimal.NewFromInt(450),
		DueDate:         time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		Status:          debt.StatusActive,
	}
	p := &payment.Payment{ID: id.NewPaymentID(), Account: "acct", DebtID: d.ID, Amount: decimal.NewFromInt(50), Method: payment.MethodCash}
	return c, d, p
}

func TestEventDetails(t *testing.T) {
	rec := &captureRecorder{}
	ext := New(rec, WithLogger(quiet()))
	ctx := context.Background()
	c, d, p := fixtures()

	_ = ext.OnCounterpartyCreated(ctx, c)
	_ = ext.OnDebtCreated(ctx, d, c)
	_ = ext.OnPaymentRecorded(ctx, d, p)

	want := []struct {
		action, resource, details string
	}{
		{ActionCounterpartyCreated, "customer", "Created customer: Asha"},
		{ActionDebtCreated, "customer_debt", "Added debt for Asha: ₹500.00"},
		{ActionPaymentRecorded, "customer_debt", "Paid ₹50.00 on debt " + d.ID.String()},
	}
	if len(rec.events) != len(want) {
		t.Fatalf("got %d events, want %d", len(rec.events), len(want))
	}
	for i, w := range want {
		got := rec.events[i]
		if got.Action != w.action || got.Resource != w.resource || got.Details != w.details {
			t.Errorf("event %d = (%s, %s, %q), want (%s, %s, %q)",
				i, got.Action, got.Resource, got.Details, w.action, w.resource, w.details)
		}
		if got.Account != "acct" {
			t.Errorf("event %d account = %q", i, got.Account)
		}
	}
}

func TestDisabledActions(t *testing.T) {
	rec := &captureRecorder{}
	ext := New(rec, WithLogger(quiet()), WithDisabledActions(ActionPaymentRejected))

	err := ext.OnPaymentRejected(context.Background(), "acct", id.NewDebtID(), decimal.NewFromInt(1), errors.New("no"))
	if err != nil {
		t.Fatalf("OnPaymentRejected: %v", err)
	}
	if len(rec.events) != 0 {
		t.Errorf("disabled action was recorded: %+v", rec.events[0])
	}

	_, d, p := fixtures()
	_ = ext.OnPaymentRecorded(context.Background(), d, p)
	if len(rec.events) != 1 {
		t.Errorf("enabled action not recorded")
	}
}

func TestRecorderFailureIsSwallowed(t *testing.T) {
	failing := RecorderFunc(func(context.Context, *AuditEvent) error { return errors.New("disk full") })
	ext := New(failing, WithLogger(quiet()))
	_, d, p := fixtures()

	if err := ext.OnPaymentRecorded(context.Background(), d, p); err != nil {
		t.Fatalf("recorder failure leaked: %v", err)
	}
}

func TestHistoryRecorder(t *testing.T) {
	sink := &historySink{}
	ext := New(NewHistoryRecorder(sink), WithLogger(quiet()))
	ctx := context.Background()
	c, d, p := fixtures()

	_ = ext.OnDebtCreated(ctx, d, c)
	_ = ext.OnPaymentRecorded(ctx, d, p)
	_ = ext.OnPaymentRejected(ctx, "acct", d.ID, decimal.NewFromInt(9999), errors.New("too much"))

	if len(sink.entries) != 2 {
		t.Fatalf("got %d history entries, want 2", len(sink.entries))
	}
	if sink.entries[0].Action != history.ActionCreate || sink.entries[1].Action != history.ActionPayment {
		t.Errorf("actions = %s, %s", sink.entries[0].Action, sink.entries[1].Action)
	}
	for _, e := range sink.entries {
		if e.EntityType != "customer_debt" || e.EntityID != d.ID.String() || e.ID.IsNil() {
			t.Errorf("unexpected entry %+v", e)
		}
	}
}

func TestMulti(t *testing.T) {
	a, b := &captureRecorder{}, &captureRecorder{}
	failing := RecorderFunc(func(context.Context, *AuditEvent) error { return errors.New("x") })

	err := Multi(a, failing, b).Record(context.Background(), &AuditEvent{Action: ActionDebtCreated})
	if err == nil {
		t.Error("expected joined error")
	}
	if len(a.events) != 1 || len(b.events) != 1 {
		t.Error("every recorder should see the event")
	}
}

type engineClock struct{ at time.Time }

func (c engineClock) Now() time.Time { return c.at }

func TestHistoryTimestamps(t *testing.T) {
	fixed := time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)
	other := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()

	tests := []struct {
		name  string
		build func(sink *historySink) *Extension
		want  time.Time
	}{
		{
			name: "engine clock adopted on init",
			build: func(sink *historySink) *Extension {
				ext := New(NewHistoryRecorder(sink), WithLogger(quiet()))
				_ = ext.OnInit(ctx, engineClock{at: fixed})
				return ext
			},
			want: fixed,
		},
		{
			name: "explicit clock wins over engine",
			build: func(sink *historySink) *Extension {
				ext := New(NewHistoryRecorder(sink), WithLogger(quiet()), WithClock(func() time.Time { return fixed }))
				_ = ext.OnInit(ctx, engineClock{at: other})
				return ext
			},
			want: fixed,
		},
		{
			name: "event timestamp beats recorder clock",
			build: func(sink *historySink) *Extension {
				rec := NewHistoryRecorder(sink, WithRecorderClock(func() time.Time { return other }))
				return New(rec, WithLogger(quiet()), WithClock(func() time.Time { return fixed }))
			},
			want: fixed,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &historySink{}
			c, d, _ := fixtures()
			_ = tt.build(sink).OnDebtCreated(ctx, d, c)

			if len(sink.entries) != 1 {
				t.Fatalf("got %d entries, want 1", len(sink.entries))
			}
			if got := sink.entries[0].Timestamp; !got.Equal(tt.want) {
				t.Errorf("timestamp = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestHistoryRecorderClockFallback(t *testing.T) {
	fixed := time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)
	sink := &historySink{}
	rec := NewHistoryRecorder(sink, WithRecorderClock(func() time.Time { return fixed }))

	err := rec.Record(context.Background(), &AuditEvent{
		Account:  "acct",
		Action:   ActionCounterpartyCreated,
		Resource: "customer",
	})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if len(sink.entries) != 1 || !sink.entries[0].Timestamp.Equal(fixed) {
		t.Fatalf("entries = %+v", sink.entries)
	}
}
