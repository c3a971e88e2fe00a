package ports

import (
	"context"

	"github.com/99minutos/shipment-legs/internal/core/domain"
)

// ListLegsFilter carries all query parameters for listing legs.
type ListLegsFilter struct {
	CourierID string // empty = any courier
	OrderID   string
	Sequence  int    // 0 = any
	Status    string // optional
	Page      int    // 1-based
	Limit     int
}

// LegRepository defines persistence operations for shipment legs.
type LegRepository interface {
	FindByID(ctx context.Context, id string) (*domain.ShipmentLeg, error)
	FindByTrackingCode(ctx context.Context, code string) (*domain.ShipmentLeg, error)
	FindBySequence(ctx context.Context, orderID string, sequence int) (*domain.ShipmentLeg, error)
	ListByShortCode(ctx context.Context, shortCode string) ([]*domain.ShipmentLeg, error)
	ListByOrder(ctx context.Context, orderID string) ([]*domain.ShipmentLeg, error)
	List(ctx context.Context, filter ListLegsFilter) ([]*domain.ShipmentLeg, int64, error)

	// Save writes leg only if the stored version still equals expectedVersion
	// and appends entries to the ledger in the same atomic unit. On success
	// leg.Version is expectedVersion+1. A lost race yields
	// ErrConcurrentModification and nothing is written.
	Save(ctx context.Context, leg *domain.ShipmentLeg, expectedVersion int64, entries []*domain.LedgerTransaction) error
}
