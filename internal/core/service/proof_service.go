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

type ProofService struct {
	legs   ports.LegRepository
	proofs ports.ProofRepository
	store  ports.ProofStore
	locker ports.Locker
	events ports.EventPublisher
	logger zerolog.Logger
	now    func() time.Time
}

func NewProofService(
	legs ports.LegRepository,
	proofs ports.ProofRepository,
	store ports.ProofStore,
	locker ports.Locker,
	events ports.EventPublisher,
	logger zerolog.Logger,
) *ProofService {
	return &ProofService{
		legs:   legs,
		proofs: proofs,
		store:  store,
		locker: locker,
		events: events,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Upload forwards the image to the proof store and records the returned
// reference. The leg is checked before the upload so rejected requests leave
// no orphaned objects behind.
func (s *ProofService) Upload(ctx context.Context, input ports.UploadProofInput) (*domain.ProofOfDeliveryRecord, error) {
	leg, err := s.legs.FindByID(ctx, input.LegID)
	if err != nil {
		return nil, err
	}
	if err := checkProof(leg, input.Actor); err != nil {
		return nil, err
	}

	ref, err := s.store.Put(ctx, ports.ProofObject{
		LegID:       input.LegID,
		Filename:    input.Filename,
		ContentType: input.ContentType,
		Size:        input.Size,
		Body:        input.Body,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("leg_id", input.LegID).Msg("proof upload failed")
		return nil, fmt.Errorf("store proof: %w", err)
	}

	return s.Attach(ctx, input.LegID, ref, input.Actor)
}

// Attach records an image reference against a delivered terminal leg.
func (s *ProofService) Attach(ctx context.Context, legID, imageRef string, actor domain.Actor) (*domain.ProofOfDeliveryRecord, error) {
	if imageRef == "" {
		return nil, fmt.Errorf("%w: image reference is empty", domain.ErrProofNotAllowed)
	}

	unlock, err := s.locker.Lock(ctx, legLockKey(legID))
	if err != nil {
		return nil, fmt.Errorf("lock leg %s: %w", legID, err)
	}
	defer unlock()

	leg, err := s.legs.FindByID(ctx, legID)
	if err != nil {
		return nil, err
	}
	if err := checkProof(leg, actor); err != nil {
		return nil, err
	}

	rec := &domain.ProofOfDeliveryRecord{
		ID:         uuid.NewString(),
		LegID:      legID,
		ImageRef:   imageRef,
		UploadedBy: actor.ID,
		UploadedAt: s.now(),
	}
	if err := s.proofs.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("record proof: %w", err)
	}

	s.logger.Info().Str("leg_id", legID).Str("image_ref", imageRef).Msg("proof attached")
	s.events.Publish(ctx, domain.LegEvent{
		Type:       domain.EventProofAttached,
		OrderID:    leg.ShipmentOrderID,
		LegID:      leg.ID,
		Sequence:   leg.Sequence,
		Status:     leg.Status,
		CourierID:  leg.AssignedCourierID,
		OccurredAt: rec.UploadedAt,
	})
	return rec, nil
}

// List returns all proof records of a leg in upload order.
func (s *ProofService) List(ctx context.Context, legID string) ([]*domain.ProofOfDeliveryRecord, error) {
	if _, err := s.legs.FindByID(ctx, legID); err != nil {
		return nil, err
	}
	return s.proofs.ListByLeg(ctx, legID)
}

func checkProof(leg *domain.ShipmentLeg, actor domain.Actor) error {
	if err := authorize(leg, actor, assigneeOrStaff); err != nil {
		return err
	}
	if !domain.CanAttachProof(leg) {
		return fmt.Errorf("%w: leg %s is %s (terminal=%t)", domain.ErrProofNotAllowed, leg.ID, leg.Status, leg.Terminal)
	}
	return nil
}
