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

// LegRepository implements ports.LegRepository using MongoDB. Writes to a leg
// and the ledger entries it produces share one transaction.
type LegRepository struct {
	client   *mongo.Client
	legs     *mongo.Collection
	ledger   *mongo.Collection
	accounts *mongo.Collection
}

func NewLegRepository(db *mongo.Database) *LegRepository {
	return &LegRepository{
		client:   db.Client(),
		legs:     db.Collection(collectionLegs),
		ledger:   db.Collection(collectionLedger),
		accounts: db.Collection(collectionAccounts),
	}
}

func (r *LegRepository) FindByID(ctx context.Context, id string) (*domain.ShipmentLeg, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *LegRepository) FindByTrackingCode(ctx context.Context, code string) (*domain.ShipmentLeg, error) {
	return r.findOne(ctx, bson.M{"tracking_code": code})
}

func (r *LegRepository) FindBySequence(ctx context.Context, orderID string, sequence int) (*domain.ShipmentLeg, error) {
	return r.findOne(ctx, bson.M{"shipment_order_id": orderID, "sequence": sequence})
}

func (r *LegRepository) ListByShortCode(ctx context.Context, shortCode string) ([]*domain.ShipmentLeg, error) {
	return r.find(ctx, bson.M{"short_code": shortCode}, options.Find().SetSort(bson.D{{Key: "sequence", Value: 1}, {Key: "created_at", Value: 1}}))
}

func (r *LegRepository) ListByOrder(ctx context.Context, orderID string) ([]*domain.ShipmentLeg, error) {
	return r.find(ctx, bson.M{"shipment_order_id": orderID}, options.Find().SetSort(bson.D{{Key: "sequence", Value: 1}}))
}

// List returns a page of legs matching filter, newest first, and the total count.
func (r *LegRepository) List(ctx context.Context, f ports.ListLegsFilter) ([]*domain.ShipmentLeg, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	filter := legFilter(f)
	total, err := r.legs.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := pageOptions(f.Page, f.Limit).SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "sequence", Value: 1}})
	items, err := r.find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Save replaces the leg if its stored version is still expectedVersion and
// appends entries in the same transaction.
func (r *LegRepository) Save(ctx context.Context, leg *domain.ShipmentLeg, expectedVersion int64, entries []*domain.LedgerTransaction) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	next := leg.Clone()
	next.Version = expectedVersion + 1

	err := runInTx(ctx, r.client, func(tx context.Context) error {
		res, err := r.legs.ReplaceOne(tx, bson.M{"_id": leg.ID, "version": expectedVersion}, next)
		if err != nil {
			return fmt.Errorf("replace leg: %w", err)
		}
		if res.MatchedCount == 0 {
			n, err := r.legs.CountDocuments(tx, bson.M{"_id": leg.ID})
			if err != nil {
				return err
			}
			if n == 0 {
				return domain.ErrLegNotFound
			}
			return domain.ErrConcurrentModification
		}

		if len(entries) == 0 {
			return nil
		}
		docs := make([]interface{}, 0, len(entries))
		for _, e := range entries {
			docs = append(docs, e)
		}
		if _, err := r.ledger.InsertMany(tx, docs); err != nil {
			return fmt.Errorf("insert ledger entries: %w", err)
		}
		return applyCustody(tx, r.accounts, entries)
	})
	if err != nil {
		return err
	}

	leg.Version = next.Version
	return nil
}

// EnsureIndexes creates necessary indexes on the legs collection.
func (r *LegRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "tracking_code", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "shipment_order_id", Value: 1}, {Key: "sequence", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "short_code", Value: 1}}},
		{Keys: bson.D{{Key: "assigned_courier_id", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
	}

	_, err := r.legs.Indexes().CreateMany(ctx, indexes)
	return err
}

func (r *LegRepository) findOne(ctx context.Context, filter bson.M) (*domain.ShipmentLeg, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var l domain.ShipmentLeg
	if err := r.legs.FindOne(ctx, filter).Decode(&l); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrLegNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *LegRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.ShipmentLeg, error) {
	cur, err := r.legs.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	legs := make([]*domain.ShipmentLeg, 0)
	if err := cur.All(ctx, &legs); err != nil {
		return nil, err
	}
	return legs, nil
}

func legFilter(f ports.ListLegsFilter) bson.M {
	filter := bson.M{}
	if f.CourierID != "" {
		filter["assigned_courier_id"] = f.CourierID
	}
	if f.OrderID != "" {
		filter["shipment_order_id"] = f.OrderID
	}
	if f.Sequence > 0 {
		filter["sequence"] = f.Sequence
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return filter
}
