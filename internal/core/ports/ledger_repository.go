package ports

import (
	"context"
	"time"

	"github.com/99minutos/shipment-legs/internal/core/domain"
)

// ListTransactionsFilter carries the query parameters for a courier's ledger.
type ListTransactionsFilter struct {
	CourierID string
	Type      string    // optional
	DateFrom  time.Time // optional: created_at >= DateFrom
	DateTo    time.Time // optional: created_at <= DateTo
	Page      int
	Limit     int
}

// LedgerRepository is the append-only store of ledger transactions.
type LedgerRepository interface {
	// AppendDeposit records a DEPOSIT_COD entry only if the courier's
	// outstanding COD balance covers it at the instant of writing; otherwise
	// it fails with ErrInsufficientBalance. A reused idempotency key fails
	// with ErrDuplicateTransaction.
	AppendDeposit(ctx context.Context, tx *domain.LedgerTransaction) error
	// Append records an entry that does not touch COD custody.
	Append(ctx context.Context, tx *domain.LedgerTransaction) error
	FindByIdempotencyKey(ctx context.Context, courierID, key string) (*domain.LedgerTransaction, error)
	// Totals returns the signed sum of amounts per type for one courier.
	Totals(ctx context.Context, courierID string) (map[domain.TransactionType]int64, error)
	List(ctx context.Context, filter ListTransactionsFilter) ([]*domain.LedgerTransaction, int64, error)
}
