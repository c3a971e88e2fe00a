package domain

import (
	"fmt"
	"time"
)

// LegStatus represents the lifecycle state of one shipment leg.
type LegStatus string

const (
	LegPending   LegStatus = "PENDING"
	LegPickingUp LegStatus = "PICKING_UP"
	LegInTransit LegStatus = "IN_TRANSIT"
	LegDelivered LegStatus = "DELIVERED"
	LegReturning LegStatus = "RETURNING"
	LegReturned  LegStatus = "RETURNED"
	LegCancelled LegStatus = "CANCELLED"
)

// MaxLegs bounds the number of hops a single order may be decomposed into.
const MaxLegs = 99

// validTransitions is the complete set of legal moves. Anything absent is
// rejected with ErrInvalidTransition.
var validTransitions = map[LegStatus][]LegStatus{
	LegPending:   {LegPickingUp, LegCancelled},
	LegPickingUp: {LegInTransit, LegDelivered},
	LegInTransit: {LegDelivered, LegReturning},
	LegDelivered: {LegReturning},
	LegReturning: {LegReturned},
}

// CanTransitionTo reports whether a transition from current status to next is valid.
func (s LegStatus) CanTransitionTo(next LegStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Valid reports whether s is one of the known statuses.
func (s LegStatus) Valid() bool {
	switch s {
	case LegPending, LegPickingUp, LegInTransit, LegDelivered, LegReturning, LegReturned, LegCancelled:
		return true
	}
	return false
}

// Actionable reports whether a courier still has work to do on a leg in this status.
func (s LegStatus) Actionable() bool {
	switch s {
	case LegPending, LegPickingUp, LegInTransit, LegReturning:
		return true
	}
	return false
}

// TransitionError builds the InvalidTransition failure for an attempted move.
func TransitionError(current, attempted LegStatus) error {
	return fmt.Errorf("%w: cannot move leg from %s to %s", ErrInvalidTransition, current, attempted)
}

// LegHistoryEntry records a single status transition on a leg.
type LegHistoryEntry struct {
	Status LegStatus `json:"status" bson:"status"`
	At     time.Time `json:"at" bson:"at"`
	Actor  string    `json:"actor" bson:"actor"`
	Note   string    `json:"note,omitempty" bson:"note,omitempty"`
}

// ShipmentLeg is one custody hop of a shipment order.
type ShipmentLeg struct {
	ID                string            `json:"id" bson:"_id"`
	ShipmentOrderID   string            `json:"shipment_order_id" bson:"shipment_order_id"`
	Sequence          int               `json:"sequence" bson:"sequence"`
	Terminal          bool              `json:"terminal" bson:"terminal"`
	FromLocationRef   string            `json:"from_location_ref" bson:"from_location_ref"`
	ToLocationRef     string            `json:"to_location_ref" bson:"to_location_ref"`
	AssignedCourierID string            `json:"assigned_courier_id" bson:"assigned_courier_id"`
	Status            LegStatus         `json:"status" bson:"status"`
	TrackingCode      string            `json:"tracking_code" bson:"tracking_code"`
	ShortCode         string            `json:"short_code" bson:"short_code"`
	CODAmount         *int64            `json:"cod_amount,omitempty" bson:"cod_amount,omitempty"`
	CODCollected      bool              `json:"cod_collected" bson:"cod_collected"`
	Weight            float64           `json:"weight" bson:"weight"`
	ShippingFee       int64             `json:"shipping_fee" bson:"shipping_fee"`
	CourierFee        int64             `json:"courier_fee" bson:"courier_fee"`
	VerifiedAt        *time.Time        `json:"verified_at,omitempty" bson:"verified_at,omitempty"`
	VerifiedBy        string            `json:"verified_by,omitempty" bson:"verified_by,omitempty"`
	ReturnReason      string            `json:"return_reason,omitempty" bson:"return_reason,omitempty"`
	CancelReason      string            `json:"cancel_reason,omitempty" bson:"cancel_reason,omitempty"`
	CreatedAt         time.Time         `json:"created_at" bson:"created_at"`
	StartedAt         *time.Time        `json:"started_at,omitempty" bson:"started_at,omitempty"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	UpdatedAt         time.Time         `json:"updated_at" bson:"updated_at"`
	Version           int64             `json:"version" bson:"version"`
	History           []LegHistoryEntry `json:"history" bson:"history"`
}

// HasCOD reports whether delivering this leg recognizes cash on delivery.
func (l *ShipmentLeg) HasCOD() bool {
	return l.Terminal && l.CODAmount != nil && *l.CODAmount > 0
}

// RequiresVerification reports whether pickup is gated on a verified scan.
// Only the first hop of an order (the shop handoff) requires it.
func (l *ShipmentLeg) RequiresVerification() bool {
	return l.Sequence == 1
}

// Verified reports whether a matching scan has been recorded.
func (l *ShipmentLeg) Verified() bool {
	return l.VerifiedAt != nil
}

// Apply moves the leg to next, stamping timestamps and history. It does not
// persist anything and does not bump Version; the repository owns that.
func (l *ShipmentLeg) Apply(next LegStatus, actor, note string, at time.Time) error {
	if !l.Status.CanTransitionTo(next) {
		return TransitionError(l.Status, next)
	}
	l.Status = next
	l.UpdatedAt = at
	switch next {
	case LegPickingUp:
		l.StartedAt = &at
	case LegDelivered:
		l.CompletedAt = &at
	}
	l.History = append(l.History, LegHistoryEntry{Status: next, At: at, Actor: actor, Note: note})
	return nil
}

// Clone returns a deep copy so callers can mutate without aliasing stored state.
func (l *ShipmentLeg) Clone() *ShipmentLeg {
	c := *l
	if l.CODAmount != nil {
		v := *l.CODAmount
		c.CODAmount = &v
	}
	if l.VerifiedAt != nil {
		v := *l.VerifiedAt
		c.VerifiedAt = &v
	}
	if l.StartedAt != nil {
		v := *l.StartedAt
		c.StartedAt = &v
	}
	if l.CompletedAt != nil {
		v := *l.CompletedAt
		c.CompletedAt = &v
	}
	c.History = append([]LegHistoryEntry(nil), l.History...)
	return &c
}
