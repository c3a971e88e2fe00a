package handler

import "time"

// --- Request types ---

type legSpecRequest struct {
	CourierID   string  `json:"courier_id"   validate:"max=64"`
	Weight      float64 `json:"weight"       validate:"gte=0"`
	ShippingFee int64   `json:"shipping_fee" validate:"gte=0"`
	CourierFee  int64   `json:"courier_fee"  validate:"gte=0"`
}

// dispatchRequest decomposes an order into one leg per consecutive pair of
// route locations. When legs is present it must hold one entry per hop.
// cod_amount is charged on the final leg.
type dispatchRequest struct {
	OrderID   string           `json:"order_id"   validate:"required,max=64"`
	Route     []string         `json:"route"      validate:"required,min=2,dive,required"`
	Legs      []legSpecRequest `json:"legs"       validate:"dive"`
	CODAmount *int64           `json:"cod_amount" validate:"omitempty,gte=0"`
}

// --- Response types ---

type shipmentLinks struct {
	Self string `json:"self"`
	Legs string `json:"legs"`
}

type shipmentResponse struct {
	OrderID     string        `json:"order_id"`
	Origin      string        `json:"origin"`
	Destination string        `json:"destination"`
	Route       []string      `json:"route"`
	CODAmount   int64         `json:"cod_amount"`
	CreatedBy   string        `json:"created_by"`
	CreatedAt   time.Time     `json:"created_at"`
	Legs        []legResponse `json:"legs"`
	Links       shipmentLinks `json:"_links"`
}
