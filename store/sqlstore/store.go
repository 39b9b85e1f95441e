// Package sqlstore implements store.Store on gorm for SQLite, PostgreSQL
// and MySQL. Schema changes are applied with golang-migrate from SQL files
// embedded per dialect.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gorm.io/gorm"
	"gorm.io/gorm/logger"

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

// Dialect names the SQL database behind a Store.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite3"
	DialectPostgres Dialect = "postgres"
	DialectMySQL    Dialect = "mysql"
)

// Store implements store.Store using gorm.
type Store struct {
	db      *gorm.DB
	dialect Dialect
}

// New wraps an open gorm connection. The connection should be opened with
// TranslateError enabled so unique violations surface as
// debtbook.ErrAlreadyExists.
func New(db *gorm.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// Config returns the gorm configuration every backend opens with.
func Config() *gorm.Config {
	return &gorm.Config{
		TranslateError:         true,
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	}
}

// DB returns the underlying gorm database for direct access.
func (s *Store) DB() *gorm.DB { return s.db }

// Dialect returns the SQL dialect of the store.
func (s *Store) Dialect() Dialect { return s.dialect }

// Migrate creates the required tables and indexes.
func (s *Store) Migrate(_ context.Context) error {
	return s.migrateUp()
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ==================== Counterparty Store ====================

// CreateCounterparty checks supplier name uniqueness inside the insert
// transaction. SQLite and PostgreSQL back the check with a partial unique
// index as well.
func (s *Store) CreateCounterparty(ctx context.Context, c *counterparty.Counterparty) error {
	m := toCounterpartyModel(c)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if c.Kind == counterparty.KindSupplier {
			var n int64
			err := tx.Model(&counterpartyModel{}).
				Where("account_id = ? AND kind = ? AND name = ?", c.Account, string(counterparty.KindSupplier), c.Name).
				Count(&n).Error
			if err != nil {
				return err
			}
			if n > 0 {
				return debtbook.ErrAlreadyExists
			}
		}
		return tx.Create(m).Error
	})
	if err != nil {
		return wrap("create counterparty", err)
	}
	return nil
}

func (s *Store) GetCounterparty(ctx context.Context, account string, cid id.CounterpartyID) (*counterparty.Counterparty, error) {
	m := new(counterpartyModel)
	err := s.db.WithContext(ctx).
		Where("id = ? AND account_id = ?", cid.String(), account).
		Take(m).Error
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
	q := s.db.WithContext(ctx).
		Where("account_id = ?", account).
		Order("name ASC").
		Order("id ASC")
	if opts.Kind != "" {
		q = q.Where("kind = ?", string(opts.Kind))
	}
	q = paginate(q, opts.Limit, opts.Offset)

	if err := q.Find(&models).Error; err != nil {
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
	if err := s.db.WithContext(ctx).Create(toDebtModel(d)).Error; err != nil {
		return wrap("create debt", err)
	}
	return nil
}

func (s *Store) GetDebt(ctx context.Context, account string, debtID id.DebtID) (*debt.Debt, error) {
	m := new(debtModel)
	err := s.db.WithContext(ctx).
		Where("id = ? AND account_id = ?", debtID.String(), account).
		Take(m).Error
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
	q := s.db.WithContext(ctx).
		Where("account_id = ?", account).
		Order("due_date ASC").
		Order("created_at ASC").
		Order("id ASC")
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

	if err := q.Find(&models).Error; err != nil {
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
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&debtModel{}).
			Where("id = ? AND account_id = ? AND version = ?", d.ID.String(), d.Account, expectedVersion).
			Updates(map[string]any{
				"remaining_amount": d.RemainingAmount,
				"status":           string(d.Status),
				"version":          d.Version,
				"updated_at":       d.UpdatedAt.UTC(),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var n int64
			err := tx.Model(&debtModel{}).
				Where("id = ? AND account_id = ?", d.ID.String(), d.Account).
				Count(&n).Error
			if err != nil {
				return err
			}
			if n == 0 {
				return debtbook.ErrDebtNotFound
			}
			return debtbook.ErrConflict
		}
		return tx.Create(toPaymentModel(p)).Error
	})
	if err != nil {
		return wrap("apply payment", err)
	}
	return nil
}

// ==================== Payment Store ====================

func (s *Store) ListPayments(ctx context.Context, account string, opts payment.ListOpts) ([]*payment.Payment, error) {
	var models []paymentModel
	q := s.db.WithContext(ctx).
		Where("account_id = ?", account).
		Order("paid_at DESC").
		Order("id DESC")
	if opts.Kind != "" {
		q = q.Where("kind = ?", string(opts.Kind))
	}
	if !opts.DebtID.IsNil() {
		q = q.Where("debt_id = ?", opts.DebtID.String())
	}
	q = paginate(q, opts.Limit, opts.Offset)

	if err := q.Find(&models).Error; err != nil {
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
	if err := s.db.WithContext(ctx).Create(toHistoryModel(e)).Error; err != nil {
		return wrap("append history", err)
	}
	return nil
}

func (s *Store) ListHistory(ctx context.Context, account string, opts history.ListOpts) ([]*history.Entry, error) {
	var models []historyModel
	q := s.db.WithContext(ctx).
		Where("account_id = ?", account).
		Order("recorded_at DESC").
		Order("id DESC")
	if len(opts.EntityTypes) > 0 {
		q = q.Where("entity_type IN ?", opts.EntityTypes)
	}
	q = paginate(q, opts.Limit, opts.Offset)

	if err := q.Find(&models).Error; err != nil {
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

// paginate applies limit/offset. MySQL rejects OFFSET without LIMIT, so an
// offset alone gets an unbounded limit.
func paginate(q *gorm.DB, limit, offset int) *gorm.DB {
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

func isNoRows(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// wrap maps driver errors onto debtbook sentinels and prefixes the rest.
func wrap(op string, err error) error {
	switch {
	case errors.Is(err, debtbook.ErrAlreadyExists),
		errors.Is(err, debtbook.ErrDebtNotFound),
		errors.Is(err, debtbook.ErrCounterpartyNotFound),
		errors.Is(err, debtbook.ErrConflict):
		return err
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %w", debtbook.ErrAlreadyExists, err)
	}
	return fmt.Errorf("debtbook/sql: %s: %w", op, err)
}
