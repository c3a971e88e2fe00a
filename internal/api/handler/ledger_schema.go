package handler

import "time"

// --- Request types ---

// depositRequest carries an amount in minor currency units. The ledger
// service rejects non-positive amounts.
type depositRequest struct {
	Amount int64 `json:"amount"`
}

type entryRequest struct {
	Type   string `json:"type" validate:"required"`
	Amount int64  `json:"amount"`
	LegID  string `json:"leg_id" validate:"max=64"`
	Note   string `json:"note" validate:"max=500"`
}

type listTransactionsQuery struct {
	Type     string `query:"type"`
	DateFrom string `query:"date_from"`
	DateTo   string `query:"date_to"`
	Page     int    `query:"page" validate:"gte=0"`
	Limit    int    `query:"limit" validate:"gte=0"`
}

// --- Response types ---

type transactionResponse struct {
	ID         string    `json:"id"`
	CourierID  string    `json:"courier_id"`
	LegID      string    `json:"leg_id,omitempty"`
	Type       string    `json:"type"`
	Amount     int64     `json:"amount"`
	Note       string    `json:"note,omitempty"`
	RecordedBy string    `json:"recorded_by,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type depositResponse struct {
	Transaction    transactionResponse `json:"transaction"`
	AlreadyExisted bool                `json:"already_existed"`
}

type balanceResponse struct {
	CourierID   string `json:"courier_id"`
	Collected   int64  `json:"collected"`
	Paid        int64  `json:"paid"`
	Outstanding int64  `json:"outstanding"`
	NetIncome   int64  `json:"net_income"`
}

type listTransactionsResponse struct {
	Items      []transactionResponse `json:"items"`
	Pagination paginationResponse    `json:"pagination"`
}
