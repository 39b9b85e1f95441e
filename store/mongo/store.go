// Package mongo implements store.Store on MongoDB. Payments live inside
// their debt document, so recording one is a single-document update and
// needs no multi-document transaction.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/debtbook"
	"github.com/xraph/debtbook/counterparty"
	"github.com/xraph/debtbook/debt"
	"github.com/xraph/debtbook/history"
	"github.com/xraph/debtbook/id"
	"github.com/xraph/debtbook/payment"
	"github.com/xraph/debtbook/store"
	"github.com/xraph/debtbook/types"
)

// Collection name constants.
const (
	colCounterparties = "debtbook_counterparties"
	colDebts          = "debtbook_debts"
	colHistory        = "debtbook_history"
)

// compile-time interface check
var _ store.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove's mongo driver.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove. Close disconnects the
// client.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// Open connects to uri and uses the named database.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	mdb := mongodriver.New()
	if err := mdb.Open(ctx, uri, mongodriver.WithDatabase(database)); err != nil {
		return nil, fmt.Errorf("debtbook/mongo: connect: %w", err)
	}
	db, err := grove.Open(mdb)
	if err != nil {
		_ = mdb.Close()
		return nil, fmt.Errorf("debtbook/mongo: connect: %w", err)
	}
	return New(db), nil
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Database returns the MongoDB database the store writes to.
func (s *Store) Database() *mongo.Database { return s.mdb.Database() }

// Migrate creates indexes for all debtbook collections.
func (s *Store) Migrate(ctx context.Context) error {
	for col, models := range migrationIndexes() {
		if len(models) == 0 {
			continue
		}
		if _, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("debtbook/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Counterparty Store ====================

func (s *Store) CreateCounterparty(ctx context.Context, c *counterparty.Counterparty) error {
	col := s.mdb.Collection(colCounterparties)
	if c.Kind == counterparty.KindSupplier {
		n, err := col.CountDocuments(ctx, bson.M{
			"account_id": c.Account,
			"kind":       string(counterparty.KindSupplier),
			"name":       c.Name,
		})
		if err != nil {
			return fmt.Errorf("debtbook/mongo: create counterparty: %w", err)
		}
		if n > 0 {
			return debtbook.ErrAlreadyExists
		}
	}

	if _, err := col.InsertOne(ctx, toCounterpartyModel(c)); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %w", debtbook.ErrAlreadyExists, err)
		}
		return fmt.Errorf("debtbook/mongo: create counterparty: %w", err)
	}
	return nil
}

func (s *Store) GetCounterparty(ctx context.Context, account string, cid id.CounterpartyID) (*counterparty.Counterparty, error) {
	var m counterpartyModel
	err := s.mdb.Collection(colCounterparties).
		FindOne(ctx, bson.M{"_id": cid.String(), "account_id": account}).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, debtbook.ErrCounterpartyNotFound
		}
		return nil, fmt.Errorf("debtbook/mongo: get counterparty: %w", err)
	}
	return fromCounterpartyModel(&m)
}

func (s *Store) ListCounterparties(ctx context.Context, account string, opts counterparty.ListOpts) ([]*counterparty.Counterparty, error) {
	filter := bson.M{"account_id": account}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}
	findOpts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}})
	paginate(findOpts, opts.Limit, opts.Offset)

	cur, err := s.mdb.Collection(colCounterparties).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("debtbook/mongo: list counterparties: %w", err)
	}
	var models []counterpartyModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("debtbook/mongo: list counterparties: %w", err)
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

// withoutPayments keeps embedded payments out of debt reads.
var withoutPayments = bson.M{"payments": 0}

func (s *Store) CreateDebt(ctx context.Context, d *debt.Debt) error {
	m, err := toDebtModel(d)
	if err != nil {
		return err
	}
	if _, err := s.mdb.Collection(colDebts).InsertOne(ctx, m); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %w", debtbook.ErrAlreadyExists, err)
		}
		return fmt.Errorf("debtbook/mongo: create debt: %w", err)
	}
	return nil
}

func (s *Store) GetDebt(ctx context.Context, account string, debtID id.DebtID) (*debt.Debt, error) {
	var m debtModel
	err := s.mdb.Collection(colDebts).
		FindOne(ctx,
			bson.M{"_id": debtID.String(), "account_id": account},
			options.FindOne().SetProjection(withoutPayments)).
		Decode(&m)
	if err != nil {
		if isNoDocuments(err) {
			return nil, debtbook.ErrDebtNotFound
		}
		return nil, fmt.Errorf("debtbook/mongo: get debt: %w", err)
	}
	return fromDebtModel(&m)
}

func (s *Store) ListDebts(ctx context.Context, account string, opts debt.ListOpts) ([]*debt.Debt, error) {
	filter := bson.M{"account_id": account}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	if !opts.CounterpartyID.IsNil() {
		filter["counterparty_id"] = opts.CounterpartyID.String()
	}
	due := bson.M{}
	if !opts.DueFrom.IsZero() {
		due["$gte"] = types.Date(opts.DueFrom)
	}
	if !opts.DueTo.IsZero() {
		due["$lte"] = types.Date(opts.DueTo)
	}
	if len(due) > 0 {
		filter["due_date"] = due
	}

	findOpts := options.Find().
		SetProjection(withoutPayments).
		SetSort(bson.D{
			{Key: "due_date", Value: 1},
			{Key: "created_at", Value: 1},
			{Key: "_id", Value: 1},
		})
	paginate(findOpts, opts.Limit, opts.Offset)

	cur, err := s.mdb.Collection(colDebts).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("debtbook/mongo: list debts: %w", err)
	}
	var models []debtModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("debtbook/mongo: list debts: %w", err)
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

// ApplyPayment sets the new balance and pushes the payment in one update
// filtered on the expected version.
func (s *Store) ApplyPayment(ctx context.Context, d *debt.Debt, expectedVersion int64, p *payment.Payment) error {
	remaining, err := toDecimal128(d.RemainingAmount)
	if err != nil {
		return err
	}
	pm, err := toPaymentModel(p)
	if err != nil {
		return err
	}

	col := s.mdb.Collection(colDebts)
	res, err := col.UpdateOne(ctx,
		bson.M{"_id": d.ID.String(), "account_id": d.Account, "version": expectedVersion},
		bson.M{
			"$set": bson.M{
				"remaining_amount": remaining,
				"status":           string(d.Status),
				"version":          d.Version,
				"updated_at":       d.UpdatedAt.UTC(),
			},
			"$push": bson.M{"payments": pm},
		})
	if err != nil {
		return fmt.Errorf("debtbook/mongo: apply payment: %w", err)
	}
	if res.MatchedCount > 0 {
		return nil
	}

	n, err := col.CountDocuments(ctx, bson.M{"_id": d.ID.String(), "account_id": d.Account})
	if err != nil {
		return fmt.Errorf("debtbook/mongo: apply payment: %w", err)
	}
	if n == 0 {
		return debtbook.ErrDebtNotFound
	}
	return debtbook.ErrConflict
}

// ==================== Payment Store ====================

func (s *Store) ListPayments(ctx context.Context, account string, opts payment.ListOpts) ([]*payment.Payment, error) {
	match := bson.M{"account_id": account}
	if opts.Kind != "" {
		match["kind"] = string(opts.Kind)
	}
	if !opts.DebtID.IsNil() {
		match["_id"] = opts.DebtID.String()
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$unwind", Value: "$payments"}},
		{{Key: "$replaceRoot", Value: bson.M{"newRoot": "$payments"}}},
		{{Key: "$sort", Value: bson.D{{Key: "paid_at", Value: -1}, {Key: "_id", Value: -1}}}},
	}
	if opts.Offset > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$skip", Value: int64(opts.Offset)}})
	}
	if opts.Limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: int64(opts.Limit)}})
	}

	cur, err := s.mdb.Collection(colDebts).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("debtbook/mongo: list payments: %w", err)
	}
	var models []paymentModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("debtbook/mongo: list payments: %w", err)
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
	if _, err := s.mdb.Collection(colHistory).InsertOne(ctx, toHistoryModel(e)); err != nil {
		return fmt.Errorf("debtbook/mongo: append history: %w", err)
	}
	return nil
}

func (s *Store) ListHistory(ctx context.Context, account string, opts history.ListOpts) ([]*history.Entry, error) {
	filter := bson.M{"account_id": account}
	if len(opts.EntityTypes) > 0 {
		filter["entity_type"] = bson.M{"$in": opts.EntityTypes}
	}
	findOpts := options.Find().SetSort(bson.D{{Key: "recorded_at", Value: -1}, {Key: "_id", Value: -1}})
	paginate(findOpts, opts.Limit, opts.Offset)

	cur, err := s.mdb.Collection(colHistory).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("debtbook/mongo: list history: %w", err)
	}
	var models []historyModel
	if err := cur.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("debtbook/mongo: list history: %w", err)
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

func paginate(opts *options.FindOptionsBuilder, limit, offset int) {
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
}

func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colCounterparties: {
			{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "kind", Value: 1}, {Key: "name", Value: 1}}},
			{
				Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "name", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetName("supplier_name_unique").
					SetPartialFilterExpression(bson.M{"kind": string(counterparty.KindSupplier)}),
			},
		},
		colDebts: {
			{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "status", Value: 1}, {Key: "kind", Value: 1}, {Key: "due_date", Value: 1}}},
			{Keys: bson.D{{Key: "counterparty_id", Value: 1}}},
			{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "payments.paid_at", Value: -1}}},
		},
		colHistory: {
			{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "recorded_at", Value: -1}}},
			{Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "entity_type", Value: 1}}},
		},
	}
}
