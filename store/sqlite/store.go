// Package sqlite implements store.Store on SQLite via the grove ORM and
// the pure-Go modernc driver. Schema changes run through the grove
// migration orchestrator.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/xraph/grove"
	"github.com/xraph/grove/driver"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate"
	"github.com/xraph/grove/migrate"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/xraph/debtbook"
	"github.com/xraph/debtbook/counterparty"
	"github.com/xraph/debtbook/debt"
	"github.com/xraph/debtbook/history"
	"github.com/xraph/debtbook/id"
	"github.com/xraph/debtbook/payment"
	"github.com/xraph/debtbook/store"
	"github.com/xraph/debtbook/types"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// DefaultBusyTimeout is added to DSNs that do not set one, in
// milliseconds.
const DefaultBusyTimeout = 5000

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// Open opens (creating if needed) the SQLite database at dsn. The pool
// holds a single connection so writers serialise instead of failing with
// SQLITE_BUSY.
func Open(ctx context.Context, dsn string) (*Store, error) {
	sdb := sqlitedriver.New()
	if err := sdb.Open(ctx, withPragmas(dsn), driver.WithPoolSize(1)); err != nil {
		return nil, fmt.Errorf("debtbook/sqlite: open: %w", err)
	}
	db, err := grove.Open(sdb)
	if err != nil {
		_ = sdb.Close()
		return nil, fmt.Errorf("debtbook/sqlite: open: %w", err)
	}
	return New(db), nil
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("debtbook/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("debtbook/sqlite: migration failed: %w", err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Counterparty Store ====================

// CreateCounterparty checks supplier name uniqueness inside the insert
// transaction. The partial unique index on (account_id, name) backs it.
func (s *Store) CreateCounterparty(ctx context.Context, c *counterparty.Counterparty) error {
	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return wrap("create counterparty", err)
	}
	defer func() { _ = tx.Rollback() }()

	if c.Kind == counterparty.KindSupplier {
		n, err := tx.NewSelect((*counterpartyModel)(nil)).
			Where("account_id = ?", c.Account).
			Where("kind = ?", string(counterparty.KindSupplier)).
			Where("name = ?", c.Name).
			Count(ctx)
		if err != nil {
			return wrap("create counterparty", err)
		}
		if n > 0 {
			return debtbook.ErrAlreadyExists
		}
	}
	if _, err := tx.NewInsert(toCounterpartyModel(c)).Exec(ctx); err != nil {
		return wrap("create counterparty", err)
	}
	if err := tx.Commit(); err != nil {
		return wrap("create counterparty", err)
	}
	return nil
}

func (s *Store) GetCounterparty(ctx context.Context, account string, cid id.CounterpartyID) (*counterparty.Counterparty, error) {
	m := new(counterpartyModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", cid.String()).
		Where("account_id = ?", account).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, debtbook.ErrCounterpartyNotFound
		}
		return nil, wrap("get counterparty", err)
	}
	return fromCounterpartyModel(m)
}

func (s *Store) ListCounterparties(ctx context.Context, account string, opts counterparty.ListOpts) ([]*counterparty.Counterparty, error) {
	var models []counterpartyModel
	q := s.sdb.NewSelect(&models).Where("account_id = ?", account)

	if opts.Kind != "" {
		q = q.Where("kind = ?", string(opts.Kind))
	}
	q = paginate(q, opts.Limit, opts.Offset)
	q = q.OrderExpr("name ASC").OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, wrap("list counterparties", err)
	}

	result := make([]*counterparty.Counterparty, 0, len(models))
	for i := range models {
		c, err := fromCounterpartyModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, nil
}

// ==================== Debt Store ====================

func (s *Store) CreateDebt(ctx context.Context, d *debt.Debt) error {
	if _, err := s.sdb.NewInsert(toDebtModel(d)).Exec(ctx); err != nil {
		return wrap("create debt", err)
	}
	return nil
}

func (s *Store) GetDebt(ctx context.Context, account string, debtID id.DebtID) (*debt.Debt, error) {
	m := new(debtModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", debtID.String()).
		Where("account_id = ?", account).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, debtbook.ErrDebtNotFound
		}
		return nil, wrap("get debt", err)
	}
	return fromDebtModel(m)
}

func (s *Store) ListDebts(ctx context.Context, account string, opts debt.ListOpts) ([]*debt.Debt, error) {
	var models []debtModel
	q := s.sdb.NewSelect(&models).Where("account_id = ?", account)

	if opts.Kind != "" {
		q = q.Where("kind = ?", string(opts.Kind))
	}
	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if !opts.CounterpartyID.IsNil() {
		q = q.Where("counterparty_id = ?", opts.CounterpartyID.String())
	}
	if !opts.DueFrom.IsZero() {
		q = q.Where("due_date >= ?", types.Date(opts.DueFrom))
	}
	if !opts.DueTo.IsZero() {
		q = q.Where("due_date <= ?", types.Date(opts.DueTo))
	}
	q = paginate(q, opts.Limit, opts.Offset)
	q = q.OrderExpr("due_date ASC").OrderExpr("created_at ASC").OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, wrap("list debts", err)
	}

	result := make([]*debt.Debt, 0, len(models))
	for i := range models {
		d, err := fromDebtModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, nil
}

// ApplyPayment performs a compare-and-swap on the debt version and inserts
// the payment in the same transaction.
func (s *Store) ApplyPayment(ctx context.Context, d *debt.Debt, expectedVersion int64, p *payment.Payment) error {
	tx, err := s.sdb.BeginTxQuery(ctx, nil)
	if err != nil {
		return wrap("apply payment", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.NewUpdate((*debtModel)(nil)).
		Set("remaining_amount = ?", d.RemainingAmount).
		Set("status = ?", string(d.Status)).
		Set("version = ?", d.Version).
		Set("updated_at = ?", d.UpdatedAt.UTC()).
		Where("id = ?", d.ID.String()).
		Where("account_id = ?", d.Account).
		Where("version = ?", expectedVersion).
		Exec(ctx)
	if err != nil {
		return wrap("apply payment", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return wrap("apply payment", err)
	}
	if rows == 0 {
		n, err := tx.NewSelect((*debtModel)(nil)).
			Where("id = ?", d.ID.String()).
			Where("account_id = ?", d.Account).
			Count(ctx)
		if err != nil {
			return wrap("apply payment", err)
		}
		if n == 0 {
			return debtbook.ErrDebtNotFound
		}
		return debtbook.ErrConflict
	}

	if _, err := tx.NewInsert(toPaymentModel(p)).Exec(ctx); err != nil {
		return wrap("apply payment", err)
	}
	if err := tx.Commit(); err != nil {
		return wrap("apply payment", err)
	}
	return nil
}

// ==================== Payment Store ====================

func (s *Store) ListPayments(ctx context.Context, account string, opts payment.ListOpts) ([]*payment.Payment, error) {
	var models []paymentModel
	q := s.sdb.NewSelect(&models).Where("account_id = ?", account)

	if opts.Kind != "" {
		q = q.Where("kind = ?", string(opts.Kind))
	}
	if !opts.DebtID.IsNil() {
		q = q.Where("debt_id = ?", opts.DebtID.String())
	}
	q = paginate(q, opts.Limit, opts.Offset)
	q = q.OrderExpr("paid_at DESC").OrderExpr("id DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, wrap("list payments", err)
	}

	result := make([]*payment.Payment, 0, len(models))
	for i := range models {
		p, err := fromPaymentModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, nil
}

// ==================== History Store ====================

func (s *Store) AppendHistory(ctx context.Context, e *history.Entry) error {
	if _, err := s.sdb.NewInsert(toHistoryModel(e)).Exec(ctx); err != nil {
		return wrap("append history", err)
	}
	return nil
}

func (s *Store) ListHistory(ctx context.Context, account string, opts history.ListOpts) ([]*history.Entry, error) {
	var models []historyModel
	q := s.sdb.NewSelect(&models).Where("account_id = ?", account)

	if len(opts.EntityTypes) > 0 {
		args := make([]any, len(opts.EntityTypes))
		for i, et := range opts.EntityTypes {
			args[i] = et
		}
		q = q.Where("entity_type IN ("+placeholders(len(args))+")", args...)
	}
	q = paginate(q, opts.Limit, opts.Offset)
	q = q.OrderExpr("recorded_at DESC").OrderExpr("id DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, wrap("list history", err)
	}

	result := make([]*history.Entry, 0, len(models))
	for i := range models {
		e, err := fromHistoryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	return result, nil
}

// ==================== Helpers ====================

// paginate applies limit/offset. SQLite rejects OFFSET without LIMIT, so
// an offset alone gets an unbounded limit.
func paginate(q *sqlitedriver.SelectQuery, limit, offset int) *sqlitedriver.SelectQuery {
	if limit > 0 {
		q = q.Limit(limit)
	} else if offset > 0 {
		q = q.Limit(math.MaxInt32)
	}
	if offset > 0 {
		q = q.Offset(offset)
	}
	return q
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// withPragmas adds a busy timeout and foreign key enforcement to every
// connection the pool opens.
func withPragmas(dsn string) string {
	if strings.Contains(dsn, "busy_timeout") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", dsn, sep, DefaultBusyTimeout)
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var serr *moderncsqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	code := serr.Code()
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

// wrap maps driver errors onto debtbook sentinels and prefixes the rest.
func wrap(op string, err error) error {
	switch {
	case errors.Is(err, debtbook.ErrAlreadyExists),
		errors.Is(err, debtbook.ErrDebtNotFound),
		errors.Is(err, debtbook.ErrCounterpartyNotFound),
		errors.Is(err, debtbook.ErrConflict):
		return err
	case isUniqueViolation(err):
		return fmt.Errorf("%w: %w", debtbook.ErrAlreadyExists, err)
	}
	return fmt.Errorf("debtbook/sqlite: %s: %w", op, err)
}
