package ports

import (
	"context"
	"io"

	"github.com/99minutos/shipment-legs/internal/core/domain"
)

// UploadProofInput carries an evidence image received from a courier.
type UploadProofInput struct {
	LegID       string
	Actor       domain.Actor
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// ProofService records proof-of-delivery evidence against terminal legs.
type ProofService interface {
	Attach(ctx context.Context, legID, imageRef string, actor domain.Actor) (*domain.ProofOfDeliveryRecord, error)
	Upload(ctx context.Context, input UploadProofInput) (*domain.ProofOfDeliveryRecord, error)
	List(ctx context.Context, legID string) ([]*domain.ProofOfDeliveryRecord, error)
}
