package ports

import (
	"context"
	"time"

	"github.com/99minutos/shipment-legs/internal/core/domain"
)

// VerificationResult is returned by a successful scan verification.
type VerificationResult struct {
	LegID        string
	OrderID      string
	Sequence     int
	TrackingCode string
	// Required is true when pickup of this leg is gated on verification.
	Required   bool
	VerifiedAt time.Time
}

// ListLegsInput carries the parameters of the leg list endpoint.
type ListLegsInput struct {
	CourierID string
	OrderID   string
	Sequence  int
	Status    string
	Page      int
	Limit     int
}

// ListLegsResult is returned by ListLegs.
type ListLegsResult struct {
	Items      []*domain.ShipmentLeg
	Total      int64
	Page       int
	Limit      int
	TotalPages int
}

// LegService drives legs through their lifecycle. Every mutating call is
// idempotent: repeating a call that already succeeded returns the current
// leg without error and without side effects.
type LegService interface {
	GetLeg(ctx context.Context, legID string) (*domain.ShipmentLeg, error)
	GetByTrackingCode(ctx context.Context, code string) (*domain.ShipmentLeg, error)
	FindByShortCode(ctx context.Context, shortCode string) ([]*domain.ShipmentLeg, error)
	ListLegs(ctx context.Context, input ListLegsInput) (*ListLegsResult, error)

	Verify(ctx context.Context, legID string, actor domain.Actor, scannedCode string) (*VerificationResult, error)
	Assign(ctx context.Context, legID, courierID string, actor domain.Actor) (*domain.ShipmentLeg, error)
	ConfirmPickup(ctx context.Context, legID string, actor domain.Actor) (*domain.ShipmentLeg, error)
	ConfirmTransit(ctx context.Context, legID string, actor domain.Actor) (*domain.ShipmentLeg, error)
	ConfirmDelivery(ctx context.Context, legID string, actor domain.Actor) (*domain.ShipmentLeg, error)
	InitiateReturn(ctx context.Context, legID string, actor domain.Actor, reason string) (*domain.ShipmentLeg, error)
	CompleteReturn(ctx context.Context, legID string, actor domain.Actor) (*domain.ShipmentLeg, error)
	Cancel(ctx context.Context, legID string, actor domain.Actor, reason string) (*domain.ShipmentLeg, error)
}
