package handler

import (
	"github.com/99minutos/shipment-legs/internal/core/domain"
	"github.com/99minutos/shipment-legs/internal/core/ports"
)

// --- Service result → HTTP response ---

func toLegResponse(l *domain.ShipmentLeg) legResponse {
	history := make([]legHistoryResponse, len(l.History))
	for i, h := range l.History {
		history[i] = legHistoryResponse{
			Status: string(h.Status),
			At:     h.At.UTC(),
			Actor:  h.Actor,
			Note:   h.Note,
		}
	}

	links := legLinks{
		Self:     apiPrefix + "/legs/" + l.ID,
		Shipment: apiPrefix + "/shipments/" + l.ShipmentOrderID,
	}
	if l.Terminal {
		links.Proof = apiPrefix + "/legs/" + l.ID + "/proof"
	}

	return legResponse{
		ID:                l.ID,
		ShipmentOrderID:   l.ShipmentOrderID,
		Sequence:          l.Sequence,
		Terminal:          l.Terminal,
		From:              l.FromLocationRef,
		To:                l.ToLocationRef,
		AssignedCourierID: l.AssignedCourierID,
		Status:            string(l.Status),
		TrackingCode:      l.TrackingCode,
		ShortCode:         l.ShortCode,
		CODAmount:         l.CODAmount,
		CODCollected:      l.CODCollected,
		Weight:            l.Weight,
		ShippingFee:       l.ShippingFee,
		CourierFee:        l.CourierFee,
		VerifiedAt:        l.VerifiedAt,
		VerifiedBy:        l.VerifiedBy,
		ReturnReason:      l.ReturnReason,
		CancelReason:      l.CancelReason,
		CreatedAt:         l.CreatedAt.UTC(),
		StartedAt:         l.StartedAt,
		CompletedAt:       l.CompletedAt,
		UpdatedAt:         l.UpdatedAt.UTC(),
		Version:           l.Version,
		History:           history,
		Links:             links,
	}
}

func toLegResponses(legs []*domain.ShipmentLeg) []legResponse {
	out := make([]legResponse, len(legs))
	for i, l := range legs {
		out[i] = toLegResponse(l)
	}
	return out
}

func toVerifyResponse(r *ports.VerificationResult) verifyResponse {
	return verifyResponse{
		LegID:        r.LegID,
		OrderID:      r.OrderID,
		Sequence:     r.Sequence,
		TrackingCode: r.TrackingCode,
		Required:     r.Required,
		VerifiedAt:   r.VerifiedAt.UTC(),
	}
}

func toListLegsResponse(r *ports.ListLegsResult) listLegsResponse {
	return listLegsResponse{
		Items: toLegResponses(r.Items),
		Pagination: paginationResponse{
			Total:      r.Total,
			Page:       r.Page,
			Limit:      r.Limit,
			TotalPages: r.TotalPages,
		},
	}
}

// --- Request → Service input ---

// toListLegsInput scopes couriers to their own legs; staff may filter freely.
func toListLegsInput(q listLegsQuery, actor domain.Actor) ports.ListLegsInput {
	courierID := q.CourierID
	if !actor.IsStaff() {
		courierID = actor.ID
	}
	return ports.ListLegsInput{
		CourierID: courierID,
		OrderID:   q.OrderID,
		Sequence:  q.Sequence,
		Status:    q.Status,
		Page:      q.Page,
		Limit:     q.Limit,
	}
}
