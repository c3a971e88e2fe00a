package domain

import "time"

// ProofOfDeliveryRecord points at evidence held by the external proof store.
// Records are never mutated.
type ProofOfDeliveryRecord struct {
	ID         string    `json:"id" bson:"_id"`
	LegID      string    `json:"leg_id" bson:"leg_id"`
	ImageRef   string    `json:"image_ref" bson:"image_ref"`
	UploadedBy string    `json:"uploaded_by" bson:"uploaded_by"`
	UploadedAt time.Time `json:"uploaded_at" bson:"uploaded_at"`
}

// CanAttachProof reports whether evidence may be recorded against leg.
func CanAttachProof(leg *ShipmentLeg) bool {
	return leg.Terminal && leg.Status == LegDelivered
}
