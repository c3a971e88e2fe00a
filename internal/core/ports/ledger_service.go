package ports

import (
	"context"
	"time"

	"github.com/99minutos/shipment-legs/internal/core/domain"
)

// DepositInput carries a cash deposit from a courier back to the company.
type DepositInput struct {
	CourierID      string
	Amount         int64
	IdempotencyKey string
	Actor          domain.Actor
}

// DepositResult is returned by RecordDeposit.
type DepositResult struct {
	Transaction *domain.LedgerTransaction
	// AlreadyExisted is true when the Idempotency-Key matched an earlier deposit.
	AlreadyExisted bool
}

// EntryInput carries a back-office ledger entry (bonus, penalty, correction...).
type EntryInput struct {
	CourierID string
	Type      string
	Amount    int64
	LegID     string
	Note      string
	Actor     domain.Actor
}

// ListTransactionsInput carries the parameters of the transactions endpoint.
type ListTransactionsInput struct {
	CourierID string
	Type      string
	DateFrom  time.Time
	DateTo    time.Time
	Page      int
	Limit     int
	Actor     domain.Actor
}

// ListTransactionsResult is returned by ListTransactions.
type ListTransactionsResult struct {
	Items      []*domain.LedgerTransaction
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// LedgerService exposes the courier COD reconciliation ledger.
type LedgerService interface {
	RecordDeposit(ctx context.Context, input DepositInput) (*DepositResult, error)
	RecordEntry(ctx context.Context, input EntryInput) (*domain.LedgerTransaction, error)
	Balance(ctx context.Context, courierID string, actor domain.Actor) (*domain.Balance, error)
	ListTransactions(ctx context.Context, input ListTransactionsInput) (*ListTransactionsResult, error)
}
