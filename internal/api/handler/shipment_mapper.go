package handler

import (
	"fmt"

	"github.com/99minutos/shipment-legs/internal/core/domain"
	"github.com/99minutos/shipment-legs/internal/core/ports"
)

// --- Request → Service input ---

func toDispatchInput(req dispatchRequest, actor domain.Actor) (ports.DispatchInput, error) {
	legs := make([]ports.LegSpecInput, len(req.Legs))
	for i, l := range req.Legs {
		legs[i] = ports.LegSpecInput{
			CourierID:   l.CourierID,
			Weight:      l.Weight,
			ShippingFee: l.ShippingFee,
			CourierFee:  l.CourierFee,
		}
	}

	if req.CODAmount != nil && *req.CODAmount > 0 {
		if len(legs) == 0 {
			return ports.DispatchInput{}, fmt.Errorf("%w: cod_amount requires leg details", domain.ErrInvalidRoute)
		}
		amount := *req.CODAmount
		legs[len(legs)-1].CODAmount = &amount
	}

	return ports.DispatchInput{
		OrderID: req.OrderID,
		Route:   req.Route,
		Legs:    legs,
		Actor:   actor,
	}, nil
}

// --- Service result → HTTP response ---

func toShipmentResponse(d *ports.ShipmentDetail) shipmentResponse {
	o := d.Order
	return shipmentResponse{
		OrderID:     o.ID,
		Origin:      o.OriginRef,
		Destination: o.DestinationRef,
		Route:       o.Route,
		CODAmount:   o.CODAmount,
		CreatedBy:   o.CreatedBy,
		CreatedAt:   o.CreatedAt.UTC(),
		Legs:        toLegResponses(d.Legs),
		Links: shipmentLinks{
			Self: apiPrefix + "/shipments/" + o.ID,
			Legs: apiPrefix + "/legs?order_id=" + o.ID,
		},
	}
}
