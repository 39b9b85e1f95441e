package debtbook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/debtbook/counterparty"
	"github.com/xraph/debtbook/debt"
	"github.com/xraph/debtbook/history"
	"github.com/xraph/debtbook/id"
	"github.com/xraph/debtbook/payment"
	"github.com/xraph/debtbook/plugin"
	"github.com/xraph/debtbook/store"
	"github.com/xraph/debtbook/types"
)

// DefaultMaxRetries is how many times a payment that lost a concurrent
// update race is re-evaluated before ErrConflict is returned.
const DefaultMaxRetries = 3

// Ledger is the debt engine. It owns the lifecycle of debts and payments
// for any number of accounts; every operation names its account explicitly.
type Ledger struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger

	currency    string
	maxRetries  int
	clock       func() time.Time
	skipMigrate bool
}

// New creates a new Ledger instance.
func New(s store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		store:      s,
		plugins:    plugin.NewRegistry(),
		logger:     slog.Default(),
		currency:   types.DefaultCurrency,
		maxRetries: DefaultMaxRetries,
		clock:      time.Now,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(l *Ledger) {
		_ = l.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithCurrency sets the currency used to validate amount precision and to
// format audit details.
func WithCurrency(code string) Option {
	return func(l *Ledger) {
		if code != "" {
			l.currency = strings.ToLower(code)
		}
	}
}

// WithMaxRetries bounds re-evaluation of a payment after a version conflict.
// Zero disables retries so a lost race surfaces as ErrConflict.
func WithMaxRetries(n int) Option {
	return func(l *Ledger) {
		if n >= 0 {
			l.maxRetries = n
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.clock = now
		}
	}
}

// WithPluginTimeout bounds each plugin call.
func WithPluginTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		l.plugins.WithTimeout(d)
	}
}

// WithoutMigrate makes Start leave the schema alone, for deployments that
// migrate out of band. Plugins are still initialised.
func WithoutMigrate() Option {
	return func(l *Ledger) {
		l.skipMigrate = true
	}
}

// Start migrates the store and initialises plugins.
func (l *Ledger) Start(ctx context.Context) error {
	if !l.skipMigrate {
		if err := l.store.Migrate(ctx); err != nil {
			return fmt.Errorf("%w: %w", ErrMigrationFailed, err)
		}
	}

	l.plugins.EmitInit(ctx, l)

	l.logger.Info("debtbook started",
		"currency", l.currency,
		"migrated", !l.skipMigrate,
		"max_retries", l.maxRetries,
		"plugins", l.plugins.Count(),
	)

	return nil
}

// Stop notifies plugins and closes the store.
func (l *Ledger) Stop() error {
	l.plugins.EmitShutdown(context.Background())
	return l.store.Close()
}

// Health reports whether the store is reachable.
func (l *Ledger) Health(ctx context.Context) error {
	return l.store.Ping(ctx)
}

// Store returns the underlying store.
func (l *Ledger) Store() store.Store { return l.store }

// Plugins returns the plugin registry.
func (l *Ledger) Plugins() *plugin.Registry { return l.plugins }

// Now reads the engine's clock.
func (l *Ledger) Now() time.Time { return l.clock() }

// Currency returns the configured currency code.
func (l *Ledger) Currency() string { return l.currency }

// ──────────────────────────────────────────────────
// Counterparties
// ──────────────────────────────────────────────────

// CreateCounterparty stores a new customer or supplier for account.
// c.ID is assigned from c.Kind when empty.
func (l *Ledger) CreateCounterparty(ctx context.Context, account string, c *counterparty.Counterparty) error {
	if err := requireAccount(account); err != nil {
		return err
	}
	if !c.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, c.Kind)
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return ValidationError{Field: "name", Message: "must not be empty"}
	}
	if c.ID.IsNil() {
		c.ID = c.Kind.NewID()
	} else if c.ID.Prefix() != c.Kind.Prefix() {
		return ValidationError{Field: "id", Message: fmt.Sprintf("prefix %q does not match kind %q", c.ID.Prefix(), c.Kind)}
	}
	c.Account = account
	c.Entity = types.NewEntityAt(l.clock())

	if err := l.store.CreateCounterparty(ctx, c); err != nil {
		return l.storeErr("create counterparty", err)
	}

	l.plugins.EmitCounterpartyCreated(context.WithoutCancel(ctx), c)
	return nil
}

// GetCounterparty returns a counterparty owned by account.
func (l *Ledger) GetCounterparty(ctx context.Context, account string, cid id.CounterpartyID) (*counterparty.Counterparty, error) {
	if err := requireAccount(account); err != nil {
		return nil, err
	}
	c, err := l.store.GetCounterparty(ctx, account, cid)
	if err != nil {
		return nil, l.storeErr("get counterparty", err)
	}
	return c, nil
}

// ListCounterparties lists account's counterparties ordered by name.
func (l *Ledger) ListCounterparties(ctx context.Context, account string, opts counterparty.ListOpts) ([]*counterparty.Counterparty, error) {
	if err := requireAccount(account); err != nil {
		return nil, err
	}
	if opts.Kind != "" && !opts.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, opts.Kind)
	}
	cs, err := l.store.ListCounterparties(ctx, account, opts)
	if err != nil {
		return nil, l.storeErr("list counterparties", err)
	}
	return cs, nil
}

// ──────────────────────────────────────────────────
// Debts
// ──────────────────────────────────────────────────

// CreateDebt opens a debt against a counterparty owned by account with
// remaining amount equal to amount and status active.
func (l *Ledger) CreateDebt(
	ctx context.Context,
	account string,
	counterpartyID id.CounterpartyID,
	amount decimal.Decimal,
	description string,
	dueDate time.Time,
) (*debt.Debt, error) {
	if err := requireAccount(account); err != nil {
		return nil, err
	}
	if err := l.checkAmount(amount, true); err != nil {
		return nil, err
	}
	if counterpartyID.IsNil() {
		return nil, ErrCounterpartyNotFound
	}

	c, err := l.store.GetCounterparty(ctx, account, counterpartyID)
	if err != nil {
		return nil, l.storeErr("create debt", err)
	}

	d := &debt.Debt{
		ID:              id.NewDebtID(),
		Account:         account,
		Kind:            c.Kind,
		CounterpartyID:  c.ID,
		InitialAmount:   amount,
		RemainingAmount: amount,
		Description:     strings.TrimSpace(description),
		DueDate:         types.Date(dueDate),
		Status:          debt.StatusActive,
		Entity:          types.NewEntityAt(l.clock()),
	}

	if err := l.store.CreateDebt(ctx, d); err != nil {
		return nil, l.storeErr("create debt", err)
	}

	l.plugins.EmitDebtCreated(context.WithoutCancel(ctx), d, c)
	return d, nil
}

// GetDebt returns a debt owned by account.
func (l *Ledger) GetDebt(ctx context.Context, account string, debtID id.DebtID) (*debt.Debt, error) {
	if err := requireAccount(account); err != nil {
		return nil, err
	}
	d, err := l.store.GetDebt(ctx, account, debtID)
	if err != nil {
		return nil, l.storeErr("get debt", err)
	}
	return d, nil
}

// ListDebts lists account's debts ordered by due date ascending.
func (l *Ledger) ListDebts(ctx context.Context, account string, opts debt.ListOpts) ([]*debt.Debt, error) {
	if err := requireAccount(account); err != nil {
		return nil, err
	}
	if opts.Kind != "" && !opts.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, opts.Kind)
	}
	if opts.Status != "" && !opts.Status.Valid() {
		return nil, ValidationError{Field: "status", Message: fmt.Sprintf("unknown status %q", opts.Status)}
	}
	opts.DueFrom = types.Date(opts.DueFrom)
	opts.DueTo = types.Date(opts.DueTo)

	ds, err := l.store.ListDebts(ctx, account, opts)
	if err != nil {
		return nil, l.storeErr("list debts", err)
	}
	return ds, nil
}

// ListActive returns account's active debts of the given kind, oldest due
// first. An empty kind lists both directions. Debts past their due date are
// not reclassified; only stored status counts.
func (l *Ledger) ListActive(ctx context.Context, account string, kind counterparty.Kind) ([]*debt.Debt, error) {
	return l.ListDebts(ctx, account, debt.ListOpts{Kind: kind, Status: debt.StatusActive})
}

// ──────────────────────────────────────────────────
// Payments
// ──────────────────────────────────────────────────

// RecordPayment applies amount against a debt owned by account.
//
// The balance check is repeated against the stored debt on every attempt and
// the store commits only if no other payment landed in between, so a losing
// racer is re-evaluated against the winner's balance. Rejections leave all
// persisted state unchanged.
func (l *Ledger) RecordPayment(
	ctx context.Context,
	account string,
	debtID id.DebtID,
	amount decimal.Decimal,
	method payment.Method,
) (*payment.Payment, error) {
	if err := requireAccount(account); err != nil {
		return nil, err
	}
	if err := l.checkAmount(amount, false); err != nil {
		l.plugins.EmitPaymentRejected(ctx, account, debtID, amount, err)
		return nil, err
	}
	if method = payment.Method(strings.TrimSpace(string(method))); method == "" {
		method = payment.MethodCash
	}

	for attempt := 1; attempt <= l.maxRetries+1; attempt++ {
		d, err := l.store.GetDebt(ctx, account, debtID)
		if err != nil {
			return nil, l.storeErr("record payment", err)
		}

		if d.Status == debt.StatusPaid {
			return nil, l.reject(ctx, d, amount, ErrAlreadySettled)
		}
		if amount.GreaterThan(d.RemainingAmount) {
			return nil, l.reject(ctx, d, amount, fmt.Errorf("%w: amount %s exceeds remaining %s",
				ErrOverpaymentRejected, amount, d.RemainingAmount))
		}

		now := l.clock().UTC()
		next := *d
		next.RemainingAmount = d.RemainingAmount.Sub(amount)
		if !next.RemainingAmount.IsPositive() {
			next.Status = debt.StatusPaid
		}
		next.Version = d.Version + 1
		next.UpdatedAt = now

		p := &payment.Payment{
			ID:        id.NewPaymentID(),
			Account:   account,
			DebtID:    d.ID,
			Kind:      d.Kind,
			Amount:    amount,
			Method:    method,
			PaidAt:    now,
			CreatedAt: now,
		}

		err = l.store.ApplyPayment(ctx, &next, d.Version, p)
		if err == nil {
			l.plugins.EmitPaymentRecorded(context.WithoutCancel(ctx), &next, p)
			return p, nil
		}
		if !errors.Is(err, ErrConflict) {
			return nil, l.storeErr("record payment", err)
		}

		l.logger.Debug("payment lost version race",
			"debt_id", debtID.String(),
			"attempt", attempt,
		)
		l.plugins.EmitPaymentConflict(ctx, account, debtID, attempt)
	}

	return nil, ErrConflict
}

// ListPayments lists account's payments newest first.
func (l *Ledger) ListPayments(ctx context.Context, account string, opts payment.ListOpts) ([]*payment.Payment, error) {
	if err := requireAccount(account); err != nil {
		return nil, err
	}
	if opts.Kind != "" && !opts.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, opts.Kind)
	}
	ps, err := l.store.ListPayments(ctx, account, opts)
	if err != nil {
		return nil, l.storeErr("list payments", err)
	}
	return ps, nil
}

// ──────────────────────────────────────────────────
// History
// ──────────────────────────────────────────────────

// ListHistory lists account's audit trail newest first.
func (l *Ledger) ListHistory(ctx context.Context, account string, opts history.ListOpts) ([]*history.Entry, error) {
	if err := requireAccount(account); err != nil {
		return nil, err
	}
	es, err := l.store.ListHistory(ctx, account, opts)
	if err != nil {
		return nil, l.storeErr("list history", err)
	}
	return es, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func requireAccount(account string) error {
	if strings.TrimSpace(account) == "" {
		return ValidationError{Field: "account", Message: "must not be empty"}
	}
	return nil
}

// checkAmount rejects negative amounts, zero unless allowZero, and amounts
// finer than the currency's minor unit.
func (l *Ledger) checkAmount(amount decimal.Decimal, allowZero bool) error {
	switch {
	case amount.IsNegative():
		return fmt.Errorf("%w: %s is negative", ErrInvalidAmount, amount)
	case amount.IsZero() && !allowZero:
		return fmt.Errorf("%w: must be greater than zero", ErrInvalidAmount)
	case !types.FitsCurrency(amount, l.currency):
		return fmt.Errorf("%w: %s has more precision than %s allows", ErrInvalidAmount, amount, strings.ToUpper(l.currency))
	}
	return nil
}

func (l *Ledger) reject(ctx context.Context, d *debt.Debt, amount decimal.Decimal, reason error) error {
	l.plugins.EmitPaymentRejected(ctx, d.Account, d.ID, amount, reason)
	return reason
}

// storeErr passes domain sentinels through and wraps anything else so
// callers never need to know the backend.
func (l *Ledger) storeErr(op string, err error) error {
	switch {
	case errors.Is(err, ErrDebtNotFound),
		errors.Is(err, ErrCounterpartyNotFound),
		errors.Is(err, ErrAlreadyExists),
		errors.Is(err, ErrConflict),
		errors.Is(err, ErrStoreClosed):
		return err
	}
	l.logger.Error("store operation failed", "op", op, "error", err)
	return fmt.Errorf("debtbook: %s: %w", op, err)
}
