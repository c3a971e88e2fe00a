package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/shipment-legs/internal/core/domain"
)

type ProofRepository struct {
	col *mongo.Collection
}

func NewProofRepository(db *mongo.Database) *ProofRepository {
	return &ProofRepository{col: db.Collection(collectionProofs)}
}

func (r *ProofRepository) Create(ctx context.Context, rec *domain.ProofOfDeliveryRecord) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := r.col.InsertOne(ctx, rec)
	return err
}

// ListByLeg returns a leg's records in upload order.
func (r *ProofRepository) ListByLeg(ctx context.Context, legID string) ([]*domain.ProofOfDeliveryRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "uploaded_at", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.col.Find(ctx, bson.M{"leg_id": legID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make([]*domain.ProofOfDeliveryRecord, 0)
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *ProofRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "leg_id", Value: 1}, {Key: "uploaded_at", Value: 1}},
	})
	return err
}
