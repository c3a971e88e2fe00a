package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/shipment-legs/internal/core/domain"
	"github.com/99minutos/shipment-legs/internal/core/ports"
)

type ShipmentService struct {
	repo    ports.ShipmentRepository
	legRepo ports.LegRepository
	events  ports.EventPublisher
	logger  zerolog.Logger
	now     func() time.Time
}

func NewShipmentService(repo ports.ShipmentRepository, legRepo ports.LegRepository, events ports.EventPublisher, logger zerolog.Logger) *ShipmentService {
	return &ShipmentService{
		repo:    repo,
		legRepo: legRepo,
		events:  events,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Dispatch decomposes an order into its legs and persists them atomically.
func (s *ShipmentService) Dispatch(ctx context.Context, input ports.DispatchInput) (*ports.ShipmentDetail, error) {
	if !input.Actor.IsStaff() {
		return nil, domain.ErrForbidden
	}

	plan := domain.RoutePlan{
		OrderID:   input.OrderID,
		Route:     input.Route,
		Legs:      make([]domain.LegSpec, 0, len(input.Legs)),
		CreatedBy: input.Actor.ID,
	}
	for _, l := range input.Legs {
		plan.Legs = append(plan.Legs, domain.LegSpec{
			CourierID:   l.CourierID,
			Weight:      l.Weight,
			ShippingFee: l.ShippingFee,
			CourierFee:  l.CourierFee,
			CODAmount:   l.CODAmount,
		})
	}

	order, legs, err := domain.Decompose(plan, uuid.NewString, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateWithLegs(ctx, order, legs); err != nil {
		s.logger.Error().Err(err).Str("order_id", order.ID).Msg("failed to dispatch shipment")
		return nil, fmt.Errorf("dispatch %s: %w", order.ID, err)
	}

	s.logger.Info().
		Str("order_id", order.ID).
		Int("legs", len(legs)).
		Int64("cod_amount", order.CODAmount).
		Msg("shipment dispatched")

	for _, leg := range legs {
		if leg.AssignedCourierID == "" {
			continue
		}
		s.events.Publish(ctx, domain.LegEvent{
			Type:       domain.EventLegAssigned,
			OrderID:    leg.ShipmentOrderID,
			LegID:      leg.ID,
			Sequence:   leg.Sequence,
			Status:     leg.Status,
			CourierID:  leg.AssignedCourierID,
			OccurredAt: order.CreatedAt,
		})
	}

	return &ports.ShipmentDetail{Order: order, Legs: legs}, nil
}

// GetShipment returns an order with its legs ordered by sequence.
func (s *ShipmentService) GetShipment(ctx context.Context, orderID string) (*ports.ShipmentDetail, error) {
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	legs, err := s.legRepo.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list legs of %s: %w", orderID, err)
	}
	return &ports.ShipmentDetail{Order: order, Legs: legs}, nil
}
