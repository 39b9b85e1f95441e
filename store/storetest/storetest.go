// Package storetest is a conformance suite every store.Store backend runs
// from its own tests.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/debtbook"
	"github.com/xraph/debtbook/counterparty"
	"github.com/xraph/debtbook/debt"
	"github.com/xraph/debtbook/history"
	"github.com/xraph/debtbook/id"
	"github.com/xraph/debtbook/payment"
	"github.com/xraph/debtbook/store"
	"github.com/xraph/debtbook/types"
)

// Factory returns an empty, migrated store. It is called once per subtest.
type Factory func(t *testing.T) store.Store

// Run executes the full suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"CounterpartyRoundTrip", testCounterpartyRoundTrip},
		{"SupplierNamesUnique", testSupplierNamesUnique},
		{"ListCounterparties", testListCounterparties},
		{"DebtRoundTrip", testDebtRoundTrip},
		{"ListDebtsOrderAndFilters", testListDebts},
		{"ApplyPayment", testApplyPayment},
		{"ApplyPaymentConflict", testApplyPaymentConflict},
		{"ApplyPaymentRace", testApplyPaymentRace},
		{"ListPayments", testListPayments},
		{"History", testHistory},
		{"AccountIsolation", testAccountIsolation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newStore(t)
			tt.fn(t, s)
		})
	}
}

// base is a fixed instant at second precision so every backend round-trips
// it exactly.
var base = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func day(n int) time.Time { return base.AddDate(0, 0, n) }

func newCounterparty(account string, kind counterparty.Kind, name string) *counterparty.Counterparty {
	return &counterparty.Counterparty{
		Entity:  types.NewEntityAt(base),
		ID:      kind.NewID(),
		Account: account,
		Kind:    kind,
		Name:    name,
		Phone:   "555-0100",
	}
}

func newDebt(c *counterparty.Counterparty, amount int64, due, created time.Time) *debt.Debt {
	return &debt.Debt{
		Entity:          types.NewEntityAt(created),
		ID:              id.NewDebtID(),
		Account:         c.Account,
		Kind:            c.Kind,
		CounterpartyID:  c.ID,
		InitialAmount:   decimal.NewFromInt(amount),
		RemainingAmount: decimal.NewFromInt(amount),
		Description:     "goods",
		DueDate:         types.Date(due),
		Status:          debt.StatusActive,
	}
}

func mustCreate(t *testing.T, s store.Store, cs ...*counterparty.Counterparty) {
	t.Helper()
	for _, c := range cs {
		if err := s.CreateCounterparty(context.Background(), c); err != nil {
			t.Fatalf("CreateCounterparty(%s): %v", c.Name, err)
		}
	}
}

func mustCreateDebt(t *testing.T, s store.Store, ds ...*debt.Debt) {
	t.Helper()
	for _, d := range ds {
		if err := s.CreateDebt(context.Background(), d); err != nil {
			t.Fatalf("CreateDebt: %v", err)
		}
	}
}

// pay builds the post-payment state of d and the payment itself.
func pay(d *debt.Debt, amount int64, at time.Time) (*debt.Debt, *payment.Payment) {
	amt := decimal.NewFromInt(amount)
	next := *d
	next.RemainingAmount = d.RemainingAmount.Sub(amt)
	if !next.RemainingAmount.IsPositive() {
		next.Status = debt.StatusPaid
	}
	next.Version = d.Version + 1
	next.UpdatedAt = at
	return &next, &payment.Payment{
		ID:        id.NewPaymentID(),
		Account:   d.Account,
		DebtID:    d.ID,
		Kind:      d.Kind,
		Amount:    amt,
		Method:    payment.MethodCash,
		PaidAt:    at,
		CreatedAt: at,
	}
}

func debtIDs(ds []*debt.Debt) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.ID.String()
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ==================== Counterparties ====================

func testCounterpartyRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := newCounterparty("acct-1", counterparty.KindCustomer, "Asha")
	c.Address = "12 Market Road"
	mustCreate(t, s, c)

	got, err := s.GetCounterparty(ctx, "acct-1", c.ID)
	if err != nil {
		t.Fatalf("GetCounterparty: %v", err)
	}
	if got.ID.String() != c.ID.String() || got.Name != "Asha" || got.Kind != counterparty.KindCustomer {
		t.Errorf("got %+v", got)
	}
	if got.Phone != c.Phone || got.Address != c.Address {
		t.Errorf("contact fields = (%q, %q)", got.Phone, got.Address)
	}
	if !got.CreatedAt.Equal(base) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, base)
	}

	_, err = s.GetCounterparty(ctx, "acct-1", id.NewCustomerID())
	if !errors.Is(err, debtbook.ErrCounterpartyNotFound) {
		t.Errorf("missing counterparty: err = %v, want ErrCounterpartyNotFound", err)
	}
}

func testSupplierNamesUnique(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustCreate(t, s, newCounterparty("acct-1", counterparty.KindSupplier, "Metro Wholesale"))

	err := s.CreateCounterparty(ctx, newCounterparty("acct-1", counterparty.KindSupplier, "Metro Wholesale"))
	if !errors.Is(err, debtbook.ErrAlreadyExists) {
		t.Fatalf("duplicate supplier: err = %v, want ErrAlreadyExists", err)
	}

	// Same name is fine for another account, and for customers.
	mustCreate(t, s,
		newCounterparty("acct-2", counterparty.KindSupplier, "Metro Wholesale"),
		newCounterparty("acct-1", counterparty.KindCustomer, "Metro Wholesale"),
		newCounterparty("acct-1", counterparty.KindCustomer, "Metro Wholesale"),
	)
}

func testListCounterparties(t *testing.T, s store.Store) {
	ctx := context.Background()
	mustCreate(t, s,
		newCounterparty("acct-1", counterparty.KindCustomer, "Chitra"),
		newCounterparty("acct-1", counterparty.KindCustomer, "Asha"),
		newCounterparty("acct-1", counterparty.KindSupplier, "Bharat Traders"),
	)

	all, err := s.ListCounterparties(ctx, "acct-1", counterparty.ListOpts{})
	if err != nil {
		t.Fatalf("ListCounterparties: %v", err)
	}
	names := make([]string, len(all))
	for i, c := range all {
		names[i] = c.Name
	}
	if want := []string{"Asha", "Bharat Traders", "Chitra"}; !equalStrings(names, want) {
		t.Errorf("names = %v, want %v", names, want)
	}

	customers, err := s.ListCounterparties(ctx, "acct-1", counterparty.ListOpts{Kind: counterparty.KindCustomer})
	if err != nil {
		t.Fatalf("ListCounterparties(customer): %v", err)
	}
	if len(customers) != 2 {
		t.Errorf("customers = %d, want 2", len(customers))
	}

	paged, err := s.ListCounterparties(ctx, "acct-1", counterparty.ListOpts{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("ListCounterparties(page): %v", err)
	}
	if len(paged) != 1 || paged[0].Name != "Bharat Traders" {
		t.Errorf("page = %+v", paged)
	}
}

// ==================== Debts ====================

func testDebtRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := newCounterparty("acct-1", counterparty.KindCustomer, "Asha")
	mustCreate(t, s, c)

	d := newDebt(c, 500, day(30), base)
	d.InitialAmount = decimal.RequireFromString("1250.50")
	d.RemainingAmount = d.InitialAmount
	mustCreateDebt(t, s, d)

	got, err := s.GetDebt(ctx, "acct-1", d.ID)
	if err != nil {
		t.Fatalf("GetDebt: %v", err)
	}
	if !got.InitialAmount.Equal(d.InitialAmount) || !got.RemainingAmount.Equal(d.RemainingAmount) {
		t.Errorf("amounts = (%s, %s), want %s", got.InitialAmount, got.RemainingAmount, d.InitialAmount)
	}
	if !got.DueDate.Equal(types.Date(day(30))) {
		t.Errorf("DueDate = %v, want %v", got.DueDate, types.Date(day(30)))
	}
	if got.Status != debt.StatusActive || got.Version != 0 || got.Kind != counterparty.KindCustomer {
		t.Errorf("got %+v", got)
	}
	if got.CounterpartyID.String() != c.ID.String() || got.Description != "goods" {
		t.Errorf("counterparty/description = (%s, %q)", got.CounterpartyID, got.Description)
	}

	_, err = s.GetDebt(ctx, "acct-1", id.NewDebtID())
	if !errors.Is(err, debtbook.ErrDebtNotFound) {
		t.Errorf("missing debt: err = %v, want ErrDebtNotFound", err)
	}
}

func testListDebts(t *testing.T, s store.Store) {
	ctx := context.Background()
	cust := newCounterparty("acct-1", counterparty.KindCustomer, "Asha")
	supp := newCounterparty("acct-1", counterparty.KindSupplier, "Metro")
	mustCreate(t, s, cust, supp)

	late := newDebt(cust, 100, day(20), day(0))
	early := newDebt(cust, 200, day(5), day(1))
	sameDueNewer := newDebt(cust, 300, day(20), day(2))
	supplierDebt := newDebt(supp, 400, day(1), day(0))
	mustCreateDebt(t, s, late, early, sameDueNewer, supplierDebt)

	tests := []struct {
		name string
		opts debt.ListOpts
		want []*debt.Debt
	}{
		{"all by due date", debt.ListOpts{}, []*debt.Debt{supplierDebt, early, late, sameDueNewer}},
		{"customer only", debt.ListOpts{Kind: counterparty.KindCustomer}, []*debt.Debt{early, late, sameDueNewer}},
		{"supplier only", debt.ListOpts{Kind: counterparty.KindSupplier}, []*debt.Debt{supplierDebt}},
		{"by counterparty", debt.ListOpts{CounterpartyID: supp.ID}, []*debt.Debt{supplierDebt}},
		{"due range inclusive", debt.ListOpts{DueFrom: types.Date(day(5)), DueTo: types.Date(day(20))}, []*debt.Debt{early, late, sameDueNewer}},
		{"due from only", debt.ListOpts{DueFrom: types.Date(day(6))}, []*debt.Debt{late, sameDueNewer}},
		{"paid status", debt.ListOpts{Status: debt.StatusPaid}, nil},
		{"paged", debt.ListOpts{Limit: 2, Offset: 1}, []*debt.Debt{early, late}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListDebts(ctx, "acct-1", tt.opts)
			if err != nil {
				t.Fatalf("ListDebts: %v", err)
			}
			if g, w := debtIDs(got), debtIDs(tt.want); !equalStrings(g, w) {
				t.Errorf("ids = %v, want %v", g, w)
			}
		})
	}
}

func testApplyPayment(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := newCounterparty("acct-1", counterparty.KindCustomer, "Asha")
	mustCreate(t, s, c)
	d := newDebt(c, 100, day(10), base)
	mustCreateDebt(t, s, d)

	next, p := pay(d, 40, day(1))
	if err := s.ApplyPayment(ctx, next, d.Version, p); err != nil {
		t.Fatalf("ApplyPayment: %v", err)
	}
	last, p2 := pay(next, 60, day(2))
	if err := s.ApplyPayment(ctx, last, next.Version, p2); err != nil {
		t.Fatalf("ApplyPayment (settle): %v", err)
	}

	got, err := s.GetDebt(ctx, "acct-1", d.ID)
	if err != nil {
		t.Fatalf("GetDebt: %v", err)
	}
	if !got.RemainingAmount.IsZero() || got.Status != debt.StatusPaid || got.Version != 2 {
		t.Errorf("after payments: remaining=%s status=%s version=%d", got.RemainingAmount, got.Status, got.Version)
	}
	if !got.InitialAmount.Equal(decimal.NewFromInt(100)) {
		t.Errorf("initial amount changed: %s", got.InitialAmount)
	}

	missing := *next
	missing.ID = id.NewDebtID()
	_, p3 := pay(&missing, 1, day(3))
	if err := s.ApplyPayment(ctx, &missing, 1, p3); !errors.Is(err, debtbook.ErrDebtNotFound) {
		t.Errorf("unknown debt: err = %v, want ErrDebtNotFound", err)
	}
}

func testApplyPaymentConflict(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := newCounterparty("acct-1", counterparty.KindCustomer, "Asha")
	mustCreate(t, s, c)
	d := newDebt(c, 100, day(10), base)
	mustCreateDebt(t, s, d)

	first, p1 := pay(d, 60, day(1))
	second, p2 := pay(d, 60, day(1))

	if err := s.ApplyPayment(ctx, first, d.Version, p1); err != nil {
		t.Fatalf("first ApplyPayment: %v", err)
	}
	if err := s.ApplyPayment(ctx, second, d.Version, p2); !errors.Is(err, debtbook.ErrConflict) {
		t.Fatalf("stale ApplyPayment: err = %v, want ErrConflict", err)
	}

	got, err := s.GetDebt(ctx, "acct-1", d.ID)
	if err != nil {
		t.Fatalf("GetDebt: %v", err)
	}
	if !got.RemainingAmount.Equal(decimal.NewFromInt(40)) {
		t.Errorf("remaining = %s, want 40", got.RemainingAmount)
	}
	ps, err := s.ListPayments(ctx, "acct-1", payment.ListOpts{DebtID: d.ID})
	if err != nil {
		t.Fatalf("ListPayments: %v", err)
	}
	if len(ps) != 1 || ps[0].ID.String() != p1.ID.String() {
		t.Errorf("payments = %+v, want only the winner", ps)
	}
}

// testApplyPaymentRace fires writers at the same version; exactly one wins.
func testApplyPaymentRace(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := newCounterparty("acct-1", counterparty.KindCustomer, "Asha")
	mustCreate(t, s, c)
	d := newDebt(c, 100, day(10), base)
	mustCreateDebt(t, s, d)

	const writers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			next, p := pay(d, 10, day(1))
			err := s.ApplyPayment(ctx, next, d.Version, p)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errors.Is(err, debtbook.ErrConflict):
				conflicts++
			default:
				t.Errorf("ApplyPayment: %v", err)
			}
		}()
	}
	wg.Wait()

	if wins != 1 || conflicts != writers-1 {
		t.Errorf("wins=%d conflicts=%d, want 1 and %d", wins, conflicts, writers-1)
	}
}

func testListPayments(t *testing.T, s store.Store) {
	ctx := context.Background()
	cust := newCounterparty("acct-1", counterparty.KindCustomer, "Asha")
	supp := newCounterparty("acct-1", counterparty.KindSupplier, "Metro")
	mustCreate(t, s, cust, supp)
	cd := newDebt(cust, 100, day(10), base)
	sd := newDebt(supp, 100, day(10), base)
	mustCreateDebt(t, s, cd, sd)

	cd1, p1 := pay(cd, 10, day(1))
	mustApply(t, s, cd1, cd.Version, p1)
	sd1, p2 := pay(sd, 20, day(2))
	mustApply(t, s, sd1, sd.Version, p2)
	cd2, p3 := pay(cd1, 30, day(3))
	mustApply(t, s, cd2, cd1.Version, p3)

	tests := []struct {
		name string
		opts payment.ListOpts
		want []*payment.Payment
	}{
		{"newest first", payment.ListOpts{}, []*payment.Payment{p3, p2, p1}},
		{"by kind", payment.ListOpts{Kind: counterparty.KindCustomer}, []*payment.Payment{p3, p1}},
		{"by debt", payment.ListOpts{DebtID: sd.ID}, []*payment.Payment{p2}},
		{"limit", payment.ListOpts{Limit: 1}, []*payment.Payment{p3}},
		{"offset", payment.ListOpts{Offset: 2}, []*payment.Payment{p1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.ListPayments(ctx, "acct-1", tt.opts)
			if err != nil {
				t.Fatalf("ListPayments: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d payments, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].ID.String() != tt.want[i].ID.String() {
					t.Errorf("payment %d = %s, want %s", i, got[i].ID, tt.want[i].ID)
				}
			}
		})
	}

	got, err := s.ListPayments(ctx, "acct-1", payment.ListOpts{DebtID: sd.ID})
	if err != nil {
		t.Fatalf("ListPayments: %v", err)
	}
	p := got[0]
	if !p.Amount.Equal(decimal.NewFromInt(20)) || p.Method != payment.MethodCash || !p.PaidAt.Equal(day(2)) || p.Kind != counterparty.KindSupplier {
		t.Errorf("payment fields = %+v", p)
	}
}

func mustApply(t *testing.T, s store.Store, d *debt.Debt, expected int64, p *payment.Payment) {
	t.Helper()
	if err := s.ApplyPayment(context.Background(), d, expected, p); err != nil {
		t.Fatalf("ApplyPayment: %v", err)
	}
}

// ==================== History ====================

func testHistory(t *testing.T, s store.Store) {
	ctx := context.Background()
	entries := []*history.Entry{
		{ID: id.NewHistoryID(), Account: "acct-1", EntityType: "customer", EntityID: "cust_1", Action: history.ActionCreate, Details: "Created customer: Asha", Timestamp: day(0)},
		{ID: id.NewHistoryID(), Account: "acct-1", EntityType: "customer_debt", EntityID: "debt_1", Action: history.ActionCreate, Details: "Added debt", Timestamp: day(1)},
		{ID: id.NewHistoryID(), Account: "acct-1", EntityType: "supplier_debt", EntityID: "debt_2", Action: history.ActionPayment, Details: "Paid", Timestamp: day(2)},
		{ID: id.NewHistoryID(), Account: "acct-2", EntityType: "customer", Action: history.ActionCreate, Timestamp: day(3)},
	}
	for _, e := range entries {
		if err := s.AppendHistory(ctx, e); err != nil {
			t.Fatalf("AppendHistory: %v", err)
		}
	}

	all, err := s.ListHistory(ctx, "acct-1", history.ListOpts{})
	if err != nil {
		t.Fatalf("ListHistory: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d entries, want 3", len(all))
	}
	if all[0].ID.String() != entries[2].ID.String() || all[2].ID.String() != entries[0].ID.String() {
		t.Errorf("history not newest first: %s, %s, %s", all[0].EntityType, all[1].EntityType, all[2].EntityType)
	}
	if all[2].Details != "Created customer: Asha" || all[2].EntityID != "cust_1" || !all[2].Timestamp.Equal(day(0)) {
		t.Errorf("entry fields = %+v", all[2])
	}

	debts, err := s.ListHistory(ctx, "acct-1", history.ListOpts{EntityTypes: []string{"customer_debt", "supplier_debt"}})
	if err != nil {
		t.Fatalf("ListHistory(filtered): %v", err)
	}
	if len(debts) != 2 {
		t.Errorf("filtered entries = %d, want 2", len(debts))
	}

	limited, err := s.ListHistory(ctx, "acct-1", history.ListOpts{Limit: 1})
	if err != nil {
		t.Fatalf("ListHistory(limit): %v", err)
	}
	if len(limited) != 1 || limited[0].ID.String() != entries[2].ID.String() {
		t.Errorf("limited = %+v", limited)
	}
}

// ==================== Isolation ====================

func testAccountIsolation(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := newCounterparty("acct-1", counterparty.KindCustomer, "Asha")
	mustCreate(t, s, c)
	d := newDebt(c, 100, day(10), base)
	mustCreateDebt(t, s, d)

	if _, err := s.GetCounterparty(ctx, "acct-2", c.ID); !errors.Is(err, debtbook.ErrCounterpartyNotFound) {
		t.Errorf("foreign counterparty: err = %v", err)
	}
	if _, err := s.GetDebt(ctx, "acct-2", d.ID); !errors.Is(err, debtbook.ErrDebtNotFound) {
		t.Errorf("foreign debt: err = %v", err)
	}

	foreign := *d
	foreign.Account = "acct-2"
	next, p := pay(&foreign, 10, day(1))
	if err := s.ApplyPayment(ctx, next, d.Version, p); !errors.Is(err, debtbook.ErrDebtNotFound) {
		t.Errorf("foreign ApplyPayment: err = %v, want ErrDebtNotFound", err)
	}

	ds, err := s.ListDebts(ctx, "acct-2", debt.ListOpts{})
	if err != nil {
		t.Fatalf("ListDebts: %v", err)
	}
	if len(ds) != 0 {
		t.Errorf("acct-2 sees %d debts", len(ds))
	}
	ps, err := s.ListPayments(ctx, "acct-2", payment.ListOpts{})
	if err != nil {
		t.Fatalf("ListPayments: %v", err)
	}
	if len(ps) != 0 {
		t.Errorf("acct-2 sees %d payments", len(ps))
	}
}
