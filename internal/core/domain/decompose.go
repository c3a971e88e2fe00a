package domain

import (
	"fmt"
	"strings"
	"time"
)

// LegSpec carries the already-decided attributes of one hop.
type LegSpec struct {
	CourierID   string
	Weight      float64
	ShippingFee int64
	CourierFee  int64
	// CODAmount may only be set on the final hop.
	CODAmount *int64
}

// RoutePlan is the input of Decompose: an order and the ordered locations it
// travels through (origin shop, zero or more warehouses, destination customer).
type RoutePlan struct {
	OrderID   string
	Route     []string
	Legs      []LegSpec // empty, or exactly len(Route)-1 entries
	CreatedBy string
}

// Decompose splits plan into one PENDING leg per consecutive pair of
// locations, numbered 1..N. All legs are created up front so the full route
// is visible immediately.
func Decompose(plan RoutePlan, newID func() string, now time.Time) (*ShipmentOrder, []*ShipmentLeg, error) {
	if err := validatePlan(plan); err != nil {
		return nil, nil, err
	}

	n := len(plan.Route) - 1
	order := &ShipmentOrder{
		ID:             plan.OrderID,
		OriginRef:      plan.Route[0],
		DestinationRef: plan.Route[n],
		Route:          append([]string(nil), plan.Route...),
		LegIDs:         make([]string, 0, n),
		CreatedBy:      plan.CreatedBy,
		CreatedAt:      now,
	}

	legs := make([]*ShipmentLeg, 0, n)
	for i := 0; i < n; i++ {
		seq := i + 1
		code, err := IssueTrackingCode(plan.OrderID, seq)
		if err != nil {
			return nil, nil, err
		}
		short, err := ShortForm(code)
		if err != nil {
			return nil, nil, err
		}

		leg := &ShipmentLeg{
			ID:              newID(),
			ShipmentOrderID: plan.OrderID,
			Sequence:        seq,
			Terminal:        seq == n,
			FromLocationRef: plan.Route[i],
			ToLocationRef:   plan.Route[i+1],
			Status:          LegPending,
			TrackingCode:    code,
			ShortCode:       short,
			CreatedAt:       now,
			UpdatedAt:       now,
			History:         []LegHistoryEntry{{Status: LegPending, At: now, Actor: plan.CreatedBy}},
		}
		if len(plan.Legs) > 0 {
			spec := plan.Legs[i]
			leg.AssignedCourierID = spec.CourierID
			leg.Weight = spec.Weight
			leg.ShippingFee = spec.ShippingFee
			leg.CourierFee = spec.CourierFee
			if spec.CODAmount != nil {
				amount := *spec.CODAmount
				leg.CODAmount = &amount
				order.CODAmount = amount
			}
		}

		order.LegIDs = append(order.LegIDs, leg.ID)
		legs = append(legs, leg)
	}

	return order, legs, nil
}

func validatePlan(plan RoutePlan) error {
	if !ValidOrderID(plan.OrderID) {
		return fmt.Errorf("%w: order id %q is not usable", ErrInvalidRoute, plan.OrderID)
	}
	if len(plan.Route) < 2 {
		return fmt.Errorf("%w: at least 2 locations required, got %d", ErrInvalidRoute, len(plan.Route))
	}
	if len(plan.Route)-1 > MaxLegs {
		return fmt.Errorf("%w: at most %d legs allowed", ErrInvalidRoute, MaxLegs)
	}
	for i, ref := range plan.Route {
		if strings.TrimSpace(ref) == "" {
			return fmt.Errorf("%w: location %d is empty", ErrInvalidRoute, i)
		}
		if i > 0 && plan.Route[i-1] == ref {
			return fmt.Errorf("%w: hop %d starts and ends at %s", ErrInvalidRoute, i, ref)
		}
	}

	if len(plan.Legs) == 0 {
		return nil
	}
	if len(plan.Legs) != len(plan.Route)-1 {
		return fmt.Errorf("%w: %d leg specs for %d hops", ErrInvalidRoute, len(plan.Legs), len(plan.Route)-1)
	}
	last := len(plan.Legs) - 1
	for i, spec := range plan.Legs {
		if spec.CODAmount != nil && i != last {
			return fmt.Errorf("%w: cod amount set on leg %d, only the final leg may carry cod", ErrInvalidRoute, i+1)
		}
		if spec.CODAmount != nil && *spec.CODAmount < 0 {
			return fmt.Errorf("%w: cod amount must not be negative", ErrInvalidRoute)
		}
		if spec.ShippingFee < 0 || spec.CourierFee < 0 || spec.Weight < 0 {
			return fmt.Errorf("%w: leg %d has a negative fee or weight", ErrInvalidRoute, i+1)
		}
	}
	return nil
}
