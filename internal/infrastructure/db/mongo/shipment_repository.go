package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/shipment-legs/internal/core/domain"
)

type ShipmentRepository struct {
	client *mongo.Client
	orders *mongo.Collection
	legs   *mongo.Collection
}

func NewShipmentRepository(db *mongo.Database) *ShipmentRepository {
	return &ShipmentRepository{
		client: db.Client(),
		orders: db.Collection(collectionOrders),
		legs:   db.Collection(collectionLegs),
	}
}

// CreateWithLegs inserts the order and all of its legs in one transaction.
func (r *ShipmentRepository) CreateWithLegs(ctx context.Context, order *domain.ShipmentOrder, legs []*domain.ShipmentLeg) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	return runInTx(ctx, r.client, func(tx context.Context) error {
		if _, err := r.orders.InsertOne(tx, order); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return domain.ErrShipmentExists
			}
			return fmt.Errorf("insert order: %w", err)
		}

		docs := make([]interface{}, 0, len(legs))
		for _, l := range legs {
			docs = append(docs, l)
		}
		if _, err := r.legs.InsertMany(tx, docs); err != nil {
			if mongo.IsDuplicateKeyError(err) {
				return domain.ErrShipmentExists
			}
			return fmt.Errorf("insert legs: %w", err)
		}
		return nil
	})
}

// FindByID retrieves an order by its id.
func (r *ShipmentRepository) FindByID(ctx context.Context, orderID string) (*domain.ShipmentOrder, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var o domain.ShipmentOrder
	err := r.orders.FindOne(ctx, bson.M{"_id": orderID}).Decode(&o)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrShipmentNotFound
		}
		return nil, err
	}
	return &o, nil
}

// EnsureIndexes creates necessary indexes on the orders collection.
func (r *ShipmentRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "created_by", Value: 1}}},
	}

	_, err := r.orders.Indexes().CreateMany(ctx, indexes)
	return err
}
