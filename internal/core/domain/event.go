package domain

import "time"

// Event types published on the leg events topic.
const (
	EventLegVerified       = "leg.verified"
	EventLegAssigned       = "leg.assigned"
	EventLegTransitioned   = "leg.transitioned"
	EventProofAttached     = "leg.proof_attached"
	EventLedgerTransaction = "ledger.transaction_recorded"
)

// LegEvent is the notification emitted after a state change has been committed.
type LegEvent struct {
	Type       string    `json:"type"`
	OrderID    string    `json:"order_id"`
	LegID      string    `json:"leg_id,omitempty"`
	Sequence   int       `json:"sequence,omitempty"`
	Status     LegStatus `json:"status,omitempty"`
	CourierID  string    `json:"courier_id,omitempty"`
	Amount     int64     `json:"amount,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// PartitionKey keeps every event of one order on the same partition so
// consumers see them in commit order.
func (e LegEvent) PartitionKey() string {
	if e.OrderID != "" {
		return e.OrderID
	}
	return e.CourierID
}
