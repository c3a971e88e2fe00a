package mongo

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/shipment-legs/internal/core/domain"
	"github.com/99minutos/shipment-legs/internal/core/ports"
)

func TestMapTxnError(t *testing.T) {
	conflict := mongo.CommandError{Code: codeWriteConflict, Message: "WriteConflict"}
	if err := mapTxnError(conflict); !errors.Is(err, domain.ErrConcurrentModification) {
		t.Errorf("write conflict: expected ErrConcurrentModification, got %v", err)
	}

	transient := mongo.CommandError{Code: 251, Labels: []string{labelTransientTxn}}
	if err := mapTxnError(transient); !errors.Is(err, domain.ErrConcurrentModification) {
		t.Errorf("transient: expected ErrConcurrentModification, got %v", err)
	}

	wrappedConflict := fmt.Errorf("commit: %w", mongo.CommandError{Code: 112, Message: "WriteConflict"})
	if err := mapTxnError(wrappedConflict); !errors.Is(err, domain.ErrConcurrentModification) {
		t.Errorf("wrapped write conflict: expected ErrConcurrentModification, got %v", err)
	}

	other := mongo.CommandError{Code: 11000, Message: "duplicate key"}
	if err := mapTxnError(other); errors.Is(err, domain.ErrConcurrentModification) {
		t.Errorf("non-conflict server errors must pass through, got %v", err)
	}

	wrapped := fmt.Errorf("save: %w", domain.ErrInsufficientBalance)
	if err := mapTxnError(wrapped); !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Errorf("domain errors must pass through, got %v", err)
	}

	if err := mapTxnError(nil); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestLegFilter(t *testing.T) {
	got := legFilter(ports.ListLegsFilter{CourierID: "c1", Status: "PENDING", Sequence: 2})
	want := bson.M{"assigned_courier_id": "c1", "status": "PENDING", "sequence": 2}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if len(legFilter(ports.ListLegsFilter{})) != 0 {
		t.Error("empty filter must match everything")
	}
}

func TestTransactionFilter(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	got := transactionFilter(ports.ListTransactionsFilter{CourierID: "c3", Type: "DEPOSIT_COD", DateFrom: from})

	if got["courier_id"] != "c3" || got["type"] != "DEPOSIT_COD" {
		t.Errorf("unexpected filter: %v", got)
	}
	created, ok := got["created_at"].(bson.M)
	if !ok || created["$gte"] != from {
		t.Errorf("expected created_at >= %s, got %v", from, got["created_at"])
	}
	if _, ok := created["$lte"]; ok {
		t.Error("no upper bound was requested")
	}

	if _, ok := transactionFilter(ports.ListTransactionsFilter{CourierID: "c3"})["created_at"]; ok {
		t.Error("no date range was requested")
	}
}

func TestJournalDoc(t *testing.T) {
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	doc := journalDoc(domain.LegEvent{
		Type:       domain.EventLedgerTransaction,
		CourierID:  "c3",
		Amount:     -500,
		OccurredAt: at,
	}, at)

	if doc["courier_id"] != "c3" || doc["amount"] != int64(-500) {
		t.Errorf("unexpected doc: %v", doc)
	}
	if _, ok := doc["leg_id"]; ok {
		t.Error("leg fields must be omitted for courier-level events")
	}
}

func TestPageOptions(t *testing.T) {
	opts := pageOptions(3, 20)
	if opts.Skip == nil || *opts.Skip != 40 || opts.Limit == nil || *opts.Limit != 20 {
		t.Errorf("unexpected page options: skip=%v limit=%v", opts.Skip, opts.Limit)
	}
	if opts := pageOptions(1, 0); opts.Limit != nil {
		t.Error("zero limit means unbounded")
	}
}
