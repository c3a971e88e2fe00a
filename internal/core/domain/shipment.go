package domain

import "time"

// ShipmentOrder is the parent logistics order. It is immutable once its legs
// have been created.
type ShipmentOrder struct {
	ID             string    `json:"id" bson:"_id"`
	OriginRef      string    `json:"origin_ref" bson:"origin_ref"`
	DestinationRef string    `json:"destination_ref" bson:"destination_ref"`
	Route          []string  `json:"route" bson:"route"`
	LegIDs         []string  `json:"leg_ids" bson:"leg_ids"`
	CODAmount      int64     `json:"cod_amount" bson:"cod_amount"`
	CreatedBy      string    `json:"created_by" bson:"created_by"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
}
