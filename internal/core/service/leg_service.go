package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/shipment-legs/internal/core/domain"
	"github.com/99minutos/shipment-legs/internal/core/ports"
)

// authPolicy decides who may mutate a leg.
type authPolicy int

const (
	assigneeOnly authPolicy = iota
	assigneeOrStaff
)

type legService struct {
	legs   ports.LegRepository
	locker ports.Locker
	events ports.EventPublisher
	log    zerolog.Logger
	now    func() time.Time
}

// NewLegService returns a LegService implementation.
func NewLegService(legs ports.LegRepository, locker ports.Locker, events ports.EventPublisher, log zerolog.Logger) ports.LegService {
	return &legService{
		legs:   legs,
		locker: locker,
		events: events,
		log:    log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func legLockKey(legID string) string { return "leg:" + legID }

func (s *legService) GetLeg(ctx context.Context, legID string) (*domain.ShipmentLeg, error) {
	return s.legs.FindByID(ctx, legID)
}

// GetByTrackingCode is the canonical lookup: it keys on the full code only.
func (s *legService) GetByTrackingCode(ctx context.Context, code string) (*domain.ShipmentLeg, error) {
	if _, _, err := domain.ResolveTrackingCode(code); err != nil {
		return nil, err
	}
	leg, err := s.legs.FindByTrackingCode(ctx, code)
	if errors.Is(err, domain.ErrLegNotFound) {
		return nil, fmt.Errorf("%w: no leg carries %s", domain.ErrCodeNotFound, code)
	}
	return leg, err
}

// FindByShortCode returns every actionable leg whose label suffix matches,
// lowest sequence first. Callers must disambiguate; the server never picks one.
func (s *legService) FindByShortCode(ctx context.Context, shortCode string) ([]*domain.ShipmentLeg, error) {
	legs, err := s.legs.ListByShortCode(ctx, shortCode)
	if err != nil {
		return nil, err
	}
	out := make([]*domain.ShipmentLeg, 0, len(legs))
	for _, l := range legs {
		if l.Status.Actionable() {
			out = append(out, l)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Sequence != out[j].Sequence {
			return out[i].Sequence < out[j].Sequence
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *legService) ListLegs(ctx context.Context, in ports.ListLegsInput) (*ports.ListLegsResult, error) {
	if in.Status != "" && !domain.LegStatus(in.Status).Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidFilter, in.Status)
	}
	page, limit := normalizePage(in.Page, in.Limit)

	items, total, err := s.legs.List(ctx, ports.ListLegsFilter{
		CourierID: in.CourierID,
		OrderID:   in.OrderID,
		Sequence:  in.Sequence,
		Status:    in.Status,
		Page:      page,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list legs: %w", err)
	}

	return &ports.ListLegsResult{
		Items:      items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages(total, limit),
	}, nil
}

// Verify checks a scanned code against the leg and records the verification
// while the leg is still PENDING.
func (s *legService) Verify(ctx context.Context, legID string, actor domain.Actor, scannedCode string) (*ports.VerificationResult, error) {
	orderID, sequence, err := domain.ResolveTrackingCode(scannedCode)
	if err != nil {
		return nil, err
	}

	var recorded bool
	leg, err := s.mutate(ctx, legID, func(leg *domain.ShipmentLeg) ([]*domain.LedgerTransaction, bool, error) {
		if err := authorize(leg, actor, assigneeOnly); err != nil {
			return nil, false, err
		}
		if leg.ShipmentOrderID != orderID || leg.Sequence != sequence {
			return nil, false, fmt.Errorf("%w: scanned %s for leg %s", domain.ErrCodeMismatch, scannedCode, leg.TrackingCode)
		}
		if leg.Status != domain.LegPending || leg.Verified() {
			return nil, false, nil
		}
		at := s.now()
		leg.VerifiedAt = &at
		leg.VerifiedBy = actor.ID
		leg.UpdatedAt = at
		recorded = true
		return nil, true, nil
	})
	if err != nil {
		return nil, err
	}

	res := &ports.VerificationResult{
		LegID:        leg.ID,
		OrderID:      leg.ShipmentOrderID,
		Sequence:     leg.Sequence,
		TrackingCode: leg.TrackingCode,
		Required:     leg.RequiresVerification(),
	}
	if leg.VerifiedAt != nil {
		res.VerifiedAt = *leg.VerifiedAt
	}
	if recorded {
		s.log.Info().Str("leg_id", leg.ID).Str("courier_id", actor.ID).Msg("leg verified")
		s.publish(ctx, domain.EventLegVerified, leg, nil)
	}
	return res, nil
}

// Assign (re)assigns a PENDING leg. Verification is cleared because the new
// courier has to scan the parcel again.
func (s *legService) Assign(ctx context.Context, legID, courierID string, actor domain.Actor) (*domain.ShipmentLeg, error) {
	if !actor.IsStaff() {
		return nil, domain.ErrForbidden
	}
	if courierID == "" {
		return nil, fmt.Errorf("%w: courier id is required", domain.ErrNotAuthorizedForLeg)
	}

	changed := false
	leg, err := s.mutate(ctx, legID, func(leg *domain.ShipmentLeg) ([]*domain.LedgerTransaction, bool, error) {
		if leg.AssignedCourierID == courierID {
			return nil, false, nil
		}
		if leg.Status != domain.LegPending {
			return nil, false, fmt.Errorf("%w: cannot reassign leg in %s", domain.ErrInvalidTransition, leg.Status)
		}
		leg.AssignedCourierID = courierID
		leg.VerifiedAt = nil
		leg.VerifiedBy = ""
		leg.UpdatedAt = s.now()
		changed = true
		return nil, true, nil
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.log.Info().Str("leg_id", leg.ID).Str("courier_id", courierID).Str("by", actor.ID).Msg("leg assigned")
		s.publish(ctx, domain.EventLegAssigned, leg, nil)
	}
	return leg, nil
}

func (s *legService) ConfirmPickup(ctx context.Context, legID string, actor domain.Actor) (*domain.ShipmentLeg, error) {
	return s.advance(ctx, legID, actor, domain.LegPickingUp, "", assigneeOnly, s.pickupGuard(ctx), nil)
}

func (s *legService) ConfirmTransit(ctx context.Context, legID string, actor domain.Actor) (*domain.ShipmentLeg, error) {
	return s.advance(ctx, legID, actor, domain.LegInTransit, "", assigneeOnly, nil, nil)
}

// ConfirmDelivery completes the hop. On the terminal leg the COD collection is
// written in the same atomic unit as the status change.
func (s *legService) ConfirmDelivery(ctx context.Context, legID string, actor domain.Actor) (*domain.ShipmentLeg, error) {
	return s.advance(ctx, legID, actor, domain.LegDelivered, "", assigneeOnly, nil, deliveryEntries)
}

func (s *legService) InitiateReturn(ctx context.Context, legID string, actor domain.Actor, reason string) (*domain.ShipmentLeg, error) {
	return s.advance(ctx, legID, actor, domain.LegReturning, reason, assigneeOnly, func(leg *domain.ShipmentLeg) error {
		leg.ReturnReason = reason
		return nil
	}, nil)
}

// CompleteReturn closes a return. Recognized COD is reversed with a RETURN_COD
// entry for the courier who collected it.
func (s *legService) CompleteReturn(ctx context.Context, legID string, actor domain.Actor) (*domain.ShipmentLeg, error) {
	return s.advance(ctx, legID, actor, domain.LegReturned, "", assigneeOrStaff, nil, returnEntries)
}

func (s *legService) Cancel(ctx context.Context, legID string, actor domain.Actor, reason string) (*domain.ShipmentLeg, error) {
	return s.advance(ctx, legID, actor, domain.LegCancelled, reason, assigneeOrStaff, func(leg *domain.ShipmentLeg) error {
		leg.CancelReason = reason
		return nil
	}, nil)
}

// pickupGuard enforces the scan gate on the first leg and handoff continuity
// on later ones: the predecessor must be DELIVERED at this leg's origin.
func (s *legService) pickupGuard(ctx context.Context) func(*domain.ShipmentLeg) error {
	return func(leg *domain.ShipmentLeg) error {
		if leg.RequiresVerification() && !leg.Verified() {
			return fmt.Errorf("%w: leg %s", domain.ErrVerificationRequired, leg.ID)
		}
		if leg.Sequence == 1 {
			return nil
		}
		prev, err := s.legs.FindBySequence(ctx, leg.ShipmentOrderID, leg.Sequence-1)
		if err != nil {
			return fmt.Errorf("load predecessor of %s: %w", leg.ID, err)
		}
		if prev.Status != domain.LegDelivered {
			return fmt.Errorf("%w: leg %d is %s", domain.ErrPredecessorNotComplete, prev.Sequence, prev.Status)
		}
		if prev.ToLocationRef != leg.FromLocationRef {
			return fmt.Errorf("%w: leg %d ended at %s, not %s", domain.ErrPredecessorNotComplete, prev.Sequence, prev.ToLocationRef, leg.FromLocationRef)
		}
		return nil
	}
}

type entriesFunc func(leg *domain.ShipmentLeg, at time.Time) []*domain.LedgerTransaction

func deliveryEntries(leg *domain.ShipmentLeg, at time.Time) []*domain.LedgerTransaction {
	var entries []*domain.LedgerTransaction
	if leg.HasCOD() && !leg.CODCollected {
		leg.CODCollected = true
		entries = append(entries, &domain.LedgerTransaction{
			ID:        uuid.NewString(),
			CourierID: leg.AssignedCourierID,
			LegID:     leg.ID,
			Type:      domain.TxCollectCOD,
			Amount:    *leg.CODAmount,
			CreatedAt: at,
		})
	}
	if leg.CourierFee > 0 {
		entries = append(entries, &domain.LedgerTransaction{
			ID:        uuid.NewString(),
			CourierID: leg.AssignedCourierID,
			LegID:     leg.ID,
			Type:      domain.TxDeliveryFee,
			Amount:    leg.CourierFee,
			CreatedAt: at,
		})
	}
	return entries
}

func returnEntries(leg *domain.ShipmentLeg, at time.Time) []*domain.LedgerTransaction {
	if !leg.CODCollected {
		return nil
	}
	return []*domain.LedgerTransaction{{
		ID:        uuid.NewString(),
		CourierID: leg.AssignedCourierID,
		LegID:     leg.ID,
		Type:      domain.TxReturnCOD,
		Amount:    -*leg.CODAmount,
		Note:      leg.ReturnReason,
		CreatedAt: at,
	}}
}

// advance runs one lifecycle transition: authorize, short-circuit replays,
// check legality and guards, apply, then persist leg and ledger entries together.
func (s *legService) advance(
	ctx context.Context,
	legID string,
	actor domain.Actor,
	target domain.LegStatus,
	note string,
	policy authPolicy,
	guard func(*domain.ShipmentLeg) error,
	entries entriesFunc,
) (*domain.ShipmentLeg, error) {
	var (
		from    domain.LegStatus
		written []*domain.LedgerTransaction
	)

	leg, err := s.mutate(ctx, legID, func(leg *domain.ShipmentLeg) ([]*domain.LedgerTransaction, bool, error) {
		if err := authorize(leg, actor, policy); err != nil {
			return nil, false, err
		}
		if leg.Status == target {
			return nil, false, nil
		}
		if !leg.Status.CanTransitionTo(target) {
			return nil, false, domain.TransitionError(leg.Status, target)
		}
		if guard != nil {
			if err := guard(leg); err != nil {
				return nil, false, err
			}
		}

		at := s.now()
		from = leg.Status
		if err := leg.Apply(target, actor.ID, note, at); err != nil {
			return nil, false, err
		}
		if entries != nil {
			written = entries(leg, at)
		}
		return written, true, nil
	})
	if err != nil {
		return nil, err
	}
	if from == "" {
		s.log.Debug().Str("leg_id", leg.ID).Str("status", string(leg.Status)).Msg("transition replayed, no-op")
		return leg, nil
	}

	s.log.Info().
		Str("leg_id", leg.ID).
		Str("order_id", leg.ShipmentOrderID).
		Int("sequence", leg.Sequence).
		Str("from", string(from)).
		Str("to", string(leg.Status)).
		Str("actor", actor.ID).
		Int("ledger_entries", len(written)).
		Msg("leg transitioned")

	s.publish(ctx, domain.EventLegTransitioned, leg, nil)
	for _, tx := range written {
		s.publish(ctx, domain.EventLedgerTransaction, leg, tx)
	}
	return leg, nil
}

// mutate loads the leg under its lock, lets fn change it, and persists with a
// version check. fn reports whether anything changed.
func (s *legService) mutate(
	ctx context.Context,
	legID string,
	fn func(leg *domain.ShipmentLeg) ([]*domain.LedgerTransaction, bool, error),
) (*domain.ShipmentLeg, error) {
	unlock, err := s.locker.Lock(ctx, legLockKey(legID))
	if err != nil {
		return nil, fmt.Errorf("lock leg %s: %w", legID, err)
	}
	defer unlock()

	leg, err := s.legs.FindByID(ctx, legID)
	if err != nil {
		return nil, err
	}
	expected := leg.Version

	entries, changed, err := fn(leg)
	if err != nil {
		return nil, err
	}
	if !changed {
		return leg, nil
	}
	if err := s.legs.Save(ctx, leg, expected, entries); err != nil {
		return nil, fmt.Errorf("save leg %s: %w", legID, err)
	}
	return leg, nil
}

func (s *legService) publish(ctx context.Context, eventType string, leg *domain.ShipmentLeg, tx *domain.LedgerTransaction) {
	ev := domain.LegEvent{
		Type:       eventType,
		OrderID:    leg.ShipmentOrderID,
		LegID:      leg.ID,
		Sequence:   leg.Sequence,
		Status:     leg.Status,
		CourierID:  leg.AssignedCourierID,
		OccurredAt: leg.UpdatedAt,
	}
	if tx != nil {
		ev.CourierID = tx.CourierID
		ev.Amount = tx.Amount
	}
	s.events.Publish(ctx, ev)
}

func authorize(leg *domain.ShipmentLeg, actor domain.Actor, policy authPolicy) error {
	if policy == assigneeOrStaff && actor.IsStaff() {
		return nil
	}
	if actor.ID == "" || leg.AssignedCourierID == "" || actor.ID != leg.AssignedCourierID {
		return fmt.Errorf("%w: %q is not assigned to leg %s", domain.ErrNotAuthorizedForLeg, actor.ID, leg.ID)
	}
	return nil
}
