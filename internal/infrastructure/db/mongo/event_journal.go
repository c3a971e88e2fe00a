package mongo

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/shipment-legs/internal/core/domain"
)

// EventJournal persists leg events to the leg_events audit collection. It is
// the event sink when no Kafka brokers are configured.
type EventJournal struct {
	col *mongo.Collection
}

func NewEventJournal(db *mongo.Database) *EventJournal {
	return &EventJournal{col: db.Collection(collectionJournal)}
}

// Deliver appends one event to the journal.
func (j *EventJournal) Deliver(ctx context.Context, ev domain.LegEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := j.col.InsertOne(ctx, journalDoc(ev, time.Now().UTC()))
	return err
}

func (j *EventJournal) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, indexTimeout)
	defer cancel()

	_, err := j.col.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "order_id", Value: 1}, {Key: "occurred_at", Value: 1}}},
		{Keys: bson.D{{Key: "courier_id", Value: 1}, {Key: "occurred_at", Value: -1}}},
	})
	return err
}

func journalDoc(ev domain.LegEvent, recordedAt time.Time) bson.M {
	doc := bson.M{
		"type":        ev.Type,
		"order_id":    ev.OrderID,
		"occurred_at": ev.OccurredAt.UTC(),
		"recorded_at": recordedAt,
	}
	if ev.LegID != "" {
		doc["leg_id"] = ev.LegID
		doc["sequence"] = ev.Sequence
		doc["status"] = string(ev.Status)
	}
	if ev.CourierID != "" {
		doc["courier_id"] = ev.CourierID
	}
	if ev.Amount != 0 {
		doc["amount"] = ev.Amount
	}
	return doc
}
