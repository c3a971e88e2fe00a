package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/shipment-legs/internal/core/domain"
	"github.com/99minutos/shipment-legs/internal/core/ports"
)

// LedgerRepository implements ports.LedgerRepository using MongoDB. Rows are
// only ever inserted.
type LedgerRepository struct {
	client   *mongo.Client
	col      *mongo.Collection
	accounts *mongo.Collection
}

func NewLedgerRepository(db *mongo.Database) *LedgerRepository {
	return &LedgerRepository{
		client:   db.Client(),
		col:      db.Collection(collectionLedger),
		accounts: db.Collection(collectionAccounts),
	}
}

// AppendDeposit decrements the courier's outstanding counter only if it
// covers the deposit, then inserts the row. Both happen in one transaction,
// so two concurrent deposits can never overdraw.
func (r *LedgerRepository) AppendDeposit(ctx context.Context, tx *domain.LedgerTransaction) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return runInTx(ctx, r.client, func(sc context.Context) error {
		res, err := r.accounts.UpdateOne(sc,
			bson.M{"_id": tx.CourierID, "outstanding": bson.M{"$gte": -tx.Amount}},
			bson.M{
				"$inc": bson.M{"outstanding": tx.Amount},
				"$set": bson.M{"updated_at": tx.CreatedAt},
			},
		)
		if err != nil {
			return fmt.Errorf("debit custody: %w", err)
		}
		if res.MatchedCount == 0 {
			return domain.ErrInsufficientBalance
		}
		return r.insert(sc, tx)
	})
}

// Append inserts a row that does not move COD custody.
func (r *LedgerRepository) Append(ctx context.Context, tx *domain.LedgerTransaction) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	if tx.Type.IsCOD() {
		return runInTx(ctx, r.client, func(sc context.Context) error {
			if err := r.insert(sc, tx); err != nil {
				return err
			}
			return applyCustody(sc, r.accounts, []*domain.LedgerTransaction{tx})
		})
	}
	return r.insert(ctx, tx)
}

// FindByIdempotencyKey retrieves a row recorded with the given key.
func (r *LedgerRepository) FindByIdempotencyKey(ctx context.Context, courierID, key string) (*domain.LedgerTransaction, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var tx domain.LedgerTransaction
	err := r.col.FindOne(ctx, bson.M{"courier_id": courierID, "idempotency_key": key}).Decode(&tx)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}
	return &tx, nil
}

// Totals sums signed amounts per type for one courier on the server side.
func (r *LedgerRepository) Totals(ctx context.Context, courierID string) (map[domain.TransactionType]int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Aggregate(ctx, totalsPipeline(courierID))
	if err != nil {
		return nil, fmt.Errorf("aggregate totals: %w", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Type  domain.TransactionType `bson:"_id"`
		Total int64                  `bson:"total"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}

	totals := make(map[domain.TransactionType]int64, len(rows))
	for _, row := range rows {
		totals[row.Type] = row.Total
	}
	return totals, nil
}

// List returns a page of one courier's rows, newest first, and the total count.
func (r *LedgerRepository) List(ctx context.Context, f ports.ListTransactionsFilter) ([]*domain.LedgerTransaction, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := transactionFilter(f)
	total, err := r.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := pageOptions(f.Page, f.Limit).SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)

	items := make([]*domain.LedgerTransaction, 0)
	if err := cur.All(ctx, &items); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// EnsureIndexes creates necessary indexes on the ledger collection.
func (r *LedgerRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "courier_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "courier_id", Value: 1}, {Key: "type", Value: 1}}},
		{Keys: bson.D{{Key: "leg_id", Value: 1}}},
		{
			Keys: bson.D{{Key: "courier_id", Value: 1}, {Key: "idempotency_key", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"idempotency_key": bson.M{"$type": "string"}}),
		},
	}

	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *LedgerRepository) insert(ctx context.Context, tx *domain.LedgerTransaction) error {
	if _, err := r.col.InsertOne(ctx, tx); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return domain.ErrDuplicateTransaction
		}
		return fmt.Errorf("insert ledger row: %w", err)
	}
	return nil
}

func totalsPipeline(courierID string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "courier_id", Value: courierID}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$type"},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$amount"}}},
		}}},
	}
}

func transactionFilter(f ports.ListTransactionsFilter) bson.M {
	filter := bson.M{"courier_id": f.CourierID}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	created := bson.M{}
	if !f.DateFrom.IsZero() {
		created["$gte"] = f.DateFrom
	}
	if !f.DateTo.IsZero() {
		created["$lte"] = f.DateTo
	}
	if len(created) > 0 {
		filter["created_at"] = created
	}
	return filter
}
