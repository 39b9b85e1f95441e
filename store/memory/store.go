// Package memory provides an in-memory store for tests and single-process use.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/xraph/debtbook"
	"github.com/xraph/debtbook/counterparty"
	"github.com/xraph/debtbook/debt"
	"github.com/xraph/debtbook/history"
	"github.com/xraph/debtbook/id"
	"github.com/xraph/debtbook/payment"
	"github.com/xraph/debtbook/store"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store keeps every record in maps guarded by one RWMutex. Records are
// copied on the way in and out so callers never share memory with the store.
type Store struct {
	mu     sync.RWMutex
	closed bool

	counterparties map[string]*counterparty.Counterparty
	debts          map[string]*debt.Debt

	// Append-only logs; slice order is insertion order.
	payments []*payment.Payment
	history  []*history.Entry
}

func New() *Store {
	return &Store{
		counterparties: make(map[string]*counterparty.Counterparty),
		debts:          make(map[string]*debt.Debt),
		payments:       make([]*payment.Payment, 0),
		history:        make([]*history.Entry, 0),
	}
}

// ==================== Counterparty Store ====================

func (s *Store) CreateCounterparty(_ context.Context, c *counterparty.Counterparty) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return debtbook.ErrStoreClosed
	}
	if _, exists := s.counterparties[c.ID.String()]; exists {
		return debtbook.ErrAlreadyExists
	}
	if c.Kind == counterparty.KindSupplier {
		for _, other := range s.counterparties {
			if other.Account == c.Account && other.Kind == counterparty.KindSupplier && other.Name == c.Name {
				return debtbook.ErrAlreadyExists
			}
		}
	}

	cp := *c
	s.counterparties[c.ID.String()] = &cp
	return nil
}

func (s *Store) GetCounterparty(_ context.Context, account string, cid id.CounterpartyID) (*counterparty.Counterparty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.counterparties[cid.String()]
	if !ok || c.Account != account {
		return nil, debtbook.ErrCounterpartyNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) ListCounterparties(_ context.Context, account string, opts counterparty.ListOpts) ([]*counterparty.Counterparty, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*counterparty.Counterparty, 0)
	for _, c := range s.counterparties {
		if c.Account != account {
			continue
		}
		if opts.Kind != "" && c.Kind != opts.Kind {
			continue
		}
		cp := *c
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Name != result[j].Name {
			return result[i].Name < result[j].Name
		}
		return result[i].ID.String() < result[j].ID.String()
	})

	return page(result, opts.Limit, opts.Offset), nil
}

// ==================== Debt Store ====================

func (s *Store) CreateDebt(_ context.Context, d *debt.Debt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return debtbook.ErrStoreClosed
	}
	if _, exists := s.debts[d.ID.String()]; exists {
		return debtbook.ErrAlreadyExists
	}

	cp := *d
	s.debts[d.ID.String()] = &cp
	return nil
}

func (s *Store) GetDebt(_ context.Context, account string, debtID id.DebtID) (*debt.Debt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.debts[debtID.String()]
	if !ok || d.Account != account {
		return nil, debtbook.ErrDebtNotFound
	}
	cp := *d
	return &cp, nil
}

func (s *Store) ListDebts(_ context.Context, account string, opts debt.ListOpts) ([]*debt.Debt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*debt.Debt, 0)
	for _, d := range s.debts {
		if d.Account != account || !matchDebt(d, opts) {
			continue
		}
		cp := *d
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		a, b := result[i], result[j]
		if !a.DueDate.Equal(b.DueDate) {
			return a.DueDate.Before(b.DueDate)
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID.String() < b.ID.String()
	})

	return page(result, opts.Limit, opts.Offset), nil
}

func (s *Store) ApplyPayment(_ context.Context, d *debt.Debt, expectedVersion int64, p *payment.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return debtbook.ErrStoreClosed
	}

	current, ok := s.debts[d.ID.String()]
	if !ok || current.Account != d.Account {
		return debtbook.ErrDebtNotFound
	}
	if current.Version != expectedVersion {
		return debtbook.ErrConflict
	}

	cp := *d
	s.debts[d.ID.String()] = &cp
	pc := *p
	s.payments = append(s.payments, &pc)
	return nil
}

func matchDebt(d *debt.Debt, opts debt.ListOpts) bool {
	if opts.Kind != "" && d.Kind != opts.Kind {
		return false
	}
	if opts.Status != "" && d.Status != opts.Status {
		return false
	}
	if !opts.CounterpartyID.IsNil() && d.CounterpartyID.String() != opts.CounterpartyID.String() {
		return false
	}
	if !opts.DueFrom.IsZero() && d.DueDate.Before(opts.DueFrom) {
		return false
	}
	if !opts.DueTo.IsZero() && d.DueDate.After(opts.DueTo) {
		return false
	}
	return true
}

// ==================== Payment Store ====================

func (s *Store) ListPayments(_ context.Context, account string, opts payment.ListOpts) ([]*payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*payment.Payment, 0)
	for _, p := range slices.Backward(s.payments) {
		if p.Account != account {
			continue
		}
		if opts.Kind != "" && p.Kind != opts.Kind {
			continue
		}
		if !opts.DebtID.IsNil() && p.DebtID.String() != opts.DebtID.String() {
			continue
		}
		cp := *p
		result = append(result, &cp)
	}

	// Newest first; insertion order breaks ties.
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].PaidAt.After(result[j].PaidAt)
	})

	return page(result, opts.Limit, opts.Offset), nil
}

// ==================== History Store ====================

func (s *Store) AppendHistory(_ context.Context, e *history.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return debtbook.ErrStoreClosed
	}
	cp := *e
	s.history = append(s.history, &cp)
	return nil
}

func (s *Store) ListHistory(_ context.Context, account string, opts history.ListOpts) ([]*history.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*history.Entry, 0)
	for _, e := range slices.Backward(s.history) {
		if e.Account != account {
			continue
		}
		if len(opts.EntityTypes) > 0 && !slices.Contains(opts.EntityTypes, e.EntityType) {
			continue
		}
		cp := *e
		result = append(result, &cp)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Timestamp.After(result[j].Timestamp)
	})

	return page(result, opts.Limit, opts.Offset), nil
}

// ==================== Core ====================

// Migrate is a no-op for the memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping reports ErrStoreClosed once Close has been called.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return debtbook.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	return nil
}

// page applies limit/offset to an already ordered slice.
func page[T any](items []T, limit, offset int) []T {
	start := offset
	if start > len(items) {
		start = len(items)
	}
	end := start + limit
	if limit == 0 || end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
