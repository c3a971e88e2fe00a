package ports

import (
	"context"

	"github.com/99minutos/shipment-legs/internal/core/domain"
)

// ProofRepository stores proof-of-delivery references.
type ProofRepository interface {
	Create(ctx context.Context, rec *domain.ProofOfDeliveryRecord) error
	// ListByLeg returns records in upload order.
	ListByLeg(ctx context.Context, legID string) ([]*domain.ProofOfDeliveryRecord, error)
}
