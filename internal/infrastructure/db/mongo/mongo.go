package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/shipment-legs/internal/core/domain"
)

const (
	defaultTimeout = 10 * time.Second
	indexTimeout   = 30 * time.Second

	collectionOrders   = "shipment_orders"
	collectionLegs     = "shipment_legs"
	collectionLedger   = "ledger_transactions"
	collectionAccounts = "courier_accounts"
	collectionProofs   = "proof_of_delivery"
	collectionJournal  = "leg_events"

	// codeWriteConflict is returned when two transactions touch the same document.
	codeWriteConflict = 112
	// labelTransientTxn marks a transaction error the server considers retryable.
	labelTransientTxn = "TransientTransactionError"
)

// Config captures the minimal settings required to establish a MongoDB connection.
type Config struct {
	URI      string
	Database string
	Timeout  time.Duration
}

// Connect establishes a MongoDB client, verifies connectivity with a ping, and
// returns both the client and the selected database. Multi-document
// transactions need a replica set; a standalone server will fail on the first
// write that spans collections.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(connectCtx)
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	db := client.Database(cfg.Database)
	return client, db, nil
}

// runInTx executes fn inside a multi-document transaction. The driver retries
// transient failures; a conflict that survives the retries is reported as
// ErrConcurrentModification. Errors returned by fn abort the transaction and
// are passed through unchanged.
func runInTx(ctx context.Context, client *mongo.Client, fn func(ctx context.Context) error) error {
	sess, err := client.StartSession()
	if err != nil {
		return fmt.Errorf("mongo start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return mapTxnError(err)
}

func mapTxnError(err error) error {
	if err == nil {
		return nil
	}
	var se mongo.ServerError
	if errors.As(err, &se) {
		if se.HasErrorCode(codeWriteConflict) || se.HasErrorLabel(labelTransientTxn) {
			return fmt.Errorf("%w: %v", domain.ErrConcurrentModification, err)
		}
	}
	return err
}

// applyCustody keeps the per-courier outstanding counter in step with the
// COD entries written in the same transaction. The counter is a write guard
// for deposits only; balances are always projected from the ledger itself.
func applyCustody(ctx context.Context, accounts *mongo.Collection, entries []*domain.LedgerTransaction) error {
	for _, e := range entries {
		if !e.Type.IsCOD() {
			continue
		}
		_, err := accounts.UpdateOne(ctx,
			bson.M{"_id": e.CourierID},
			bson.M{
				"$inc": bson.M{"outstanding": e.Amount},
				"$set": bson.M{"updated_at": e.CreatedAt},
			},
			options.Update().SetUpsert(true),
		)
		if err != nil {
			return fmt.Errorf("update custody of %s: %w", e.CourierID, err)
		}
	}
	return nil
}

func pageOptions(page, limit int) *options.FindOptions {
	opts := options.Find()
	if limit > 0 {
		skip := (page - 1) * limit
		if skip < 0 {
			skip = 0
		}
		opts.SetSkip(int64(skip)).SetLimit(int64(limit))
	}
	return opts
}
