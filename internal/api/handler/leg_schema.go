package handler

import "time"

// --- Request types ---

// verifyRequest takes the scanned code as scannedCode; code is the older name.
type verifyRequest struct {
	ScannedCode string `json:"scannedCode" validate:"required_without=Code,max=100"`
	Code        string `json:"code" validate:"max=100"`
}

func (r verifyRequest) scanned() string {
	if r.ScannedCode != "" {
		return r.ScannedCode
	}
	return r.Code
}

type assignRequest struct {
	CourierID string `json:"courier_id" validate:"required,max=64"`
}

// reasonRequest is the optional body of return and cancel calls.
type reasonRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type listLegsQuery struct {
	CourierID string `query:"courierId"`
	OrderID   string `query:"order_id"`
	Sequence  int    `query:"sequence" validate:"gte=0"`
	Status    string `query:"status"`
	Page      int    `query:"page" validate:"gte=0"`
	Limit     int    `query:"limit" validate:"gte=0"`
}

// --- Response types ---

type legHistoryResponse struct {
	Status string    `json:"status"`
	At     time.Time `json:"at"`
	Actor  string    `json:"actor"`
	Note   string    `json:"note,omitempty"`
}

type legResponse struct {
	ID                string               `json:"id"`
	ShipmentOrderID   string               `json:"shipment_order_id"`
	Sequence          int                  `json:"sequence"`
	Terminal          bool                 `json:"terminal"`
	From              string               `json:"from"`
	To                string               `json:"to"`
	AssignedCourierID string               `json:"assigned_courier_id"`
	Status            string               `json:"status"`
	TrackingCode      string               `json:"tracking_code"`
	ShortCode         string               `json:"short_code"`
	CODAmount         *int64               `json:"cod_amount,omitempty"`
	CODCollected      bool                 `json:"cod_collected"`
	Weight            float64              `json:"weight"`
	ShippingFee       int64                `json:"shipping_fee"`
	CourierFee        int64                `json:"courier_fee"`
	VerifiedAt        *time.Time           `json:"verified_at,omitempty"`
	VerifiedBy        string               `json:"verified_by,omitempty"`
	ReturnReason      string               `json:"return_reason,omitempty"`
	CancelReason      string               `json:"cancel_reason,omitempty"`
	CreatedAt         time.Time            `json:"created_at"`
	StartedAt         *time.Time           `json:"started_at,omitempty"`
	CompletedAt       *time.Time           `json:"completed_at,omitempty"`
	UpdatedAt         time.Time            `json:"updated_at"`
	Version           int64                `json:"version"`
	History           []legHistoryResponse `json:"history"`
	Links             legLinks             `json:"_links"`
}

type legLinks struct {
	Self     string `json:"self"`
	Shipment string `json:"shipment"`
	Proof    string `json:"proof,omitempty"`
}

type verifyResponse struct {
	LegID        string    `json:"leg_id"`
	OrderID      string    `json:"order_id"`
	Sequence     int       `json:"sequence"`
	TrackingCode string    `json:"tracking_code"`
	Required     bool      `json:"required"`
	VerifiedAt   time.Time `json:"verified_at"`
}

type listLegsResponse struct {
	Items      []legResponse      `json:"items"`
	Pagination paginationResponse `json:"pagination"`
}
