package plugin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/debtbook/counterparty"
	"github.com/xraph/debtbook/debt"
	"github.com/xraph/debtbook/id"
	"github.com/xraph/debtbook/payment"
)

type recordingPlugin struct {
	name     string
	recorded atomic.Int32
	rejected atomic.Int32
	fail     bool
}

func (p *recordingPlugin) Name() string { return p.name }

func (p *recordingPlugin) OnPaymentRecorded(context.Context, *debt.Debt, *payment.Payment) error {
	p.recorded.Add(1)
	if p.fail {
		return errors.New("boom")
	}
	return nil
}

func (p *recordingPlugin) OnPaymentRejected(context.Context, string, id.DebtID, decimal.Decimal, error) error {
	p.rejected.Add(1)
	return nil
}

type slowPlugin struct{}

func (slowPlugin) Name() string { return "slow" }

func (slowPlugin) OnDebtCreated(ctx context.Context, _ *debt.Debt, _ *counterparty.Counterparty) error {
	select {
	case <-time.After(time.Second):
	case <-ctx.Done():
	}
	return nil
}

type panicPlugin struct{}

func (panicPlugin) Name() string { return "panicky" }

func (panicPlugin) OnCounterpartyCreated(context.Context, *counterparty.Counterparty) error {
	panic("unexpected")
}

func quietRegistry() *Registry {
	return NewRegistry().WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegisterDuplicate(t *testing.T) {
	r := quietRegistry()
	if err := r.Register(&recordingPlugin{name: "a"}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(&recordingPlugin{name: "a"}); err == nil {
		t.Fatal("expected duplicate registration error")
	}
	if r.Count() != 1 {
		t.Errorf("Count = %d, want 1", r.Count())
	}
	if r.Get("a") == nil {
		t.Error("Get(a) returned nil")
	}
	if r.Get("missing") != nil {
		t.Error("Get(missing) should be nil")
	}
}

func TestEmitDispatchesOnlyToImplementers(t *testing.T) {
	r := quietRegistry()
	a := &recordingPlugin{name: "a"}
	b := &recordingPlugin{name: "b", fail: true}
	for _, p := range []Plugin{a, b, slowPlugin{}} {
		if err := r.Register(p); err != nil {
			t.Fatalf("Register(%s): %v", p.Name(), err)
		}
	}

	ctx := context.Background()
	r.EmitPaymentRecorded(ctx, &debt.Debt{}, &payment.Payment{})
	r.EmitPaymentRejected(ctx, "acct", id.NewDebtID(), decimal.NewFromInt(1), errors.New("no"))

	if a.recorded.Load() != 1 || b.recorded.Load() != 1 {
		t.Errorf("recorded = %d/%d, want 1/1", a.recorded.Load(), b.recorded.Load())
	}
	if a.rejected.Load() != 1 {
		t.Errorf("rejected = %d, want 1", a.rejected.Load())
	}
}

func TestEmitTimeout(t *testing.T) {
	r := quietRegistry().WithTimeout(20 * time.Millisecond)
	if err := r.Register(slowPlugin{}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	start := time.Now()
	r.EmitDebtCreated(context.Background(), &debt.Debt{}, &counterparty.Counterparty{})
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("emission blocked for %v, expected timeout", elapsed)
	}
}

func TestEmitRecoversPanic(t *testing.T) {
	r := quietRegistry()
	if err := r.Register(panicPlugin{}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	r.EmitCounterpartyCreated(context.Background(), &counterparty.Counterparty{})
}

func TestImplementedInterfaces(t *testing.T) {
	got := implementedInterfaces(&recordingPlugin{name: "x"})
	want := map[string]bool{"OnPaymentRecorded": true, "OnPaymentRejected": true}
	if len(got) != len(want) {
		t.Fatalf("interfaces = %v", got)
	}
	for _, name := range got {
		if !want[name] {
			t.Errorf("unexpected interface %q", name)
		}
	}
}
