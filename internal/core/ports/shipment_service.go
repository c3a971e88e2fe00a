package ports

import (
	"context"

	"github.com/99minutos/shipment-legs/internal/core/domain"
)

// LegSpecInput holds the already-decided attributes of one hop.
type LegSpecInput struct {
	CourierID   string
	Weight      float64
	ShippingFee int64
	CourierFee  int64
	CODAmount   *int64
}

// DispatchInput carries everything needed to decompose an order into legs.
type DispatchInput struct {
	OrderID string
	Route   []string
	Legs    []LegSpecInput
	Actor   domain.Actor
}

// ShipmentDetail is an order together with its legs in sequence order.
type ShipmentDetail struct {
	Order *domain.ShipmentOrder
	Legs  []*domain.ShipmentLeg
}

// ShipmentService defines use-case operations for shipment orders.
type ShipmentService interface {
	Dispatch(ctx context.Context, input DispatchInput) (*ShipmentDetail, error)
	GetShipment(ctx context.Context, orderID string) (*ShipmentDetail, error)
}
