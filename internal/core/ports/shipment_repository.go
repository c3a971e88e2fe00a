package ports

import (
	"context"

	"github.com/99minutos/shipment-legs/internal/core/domain"
)

// ShipmentRepository defines persistence operations for shipment orders.
type ShipmentRepository interface {
	// CreateWithLegs persists the order together with every leg in one atomic
	// unit. A second dispatch of the same order id fails with ErrShipmentExists.
	CreateWithLegs(ctx context.Context, order *domain.ShipmentOrder, legs []*domain.ShipmentLeg) error
	FindByID(ctx context.Context, orderID string) (*domain.ShipmentOrder, error)
}
