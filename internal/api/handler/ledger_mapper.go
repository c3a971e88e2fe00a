package handler

import (
	"fmt"
	"time"

	"github.com/99minutos/shipment-legs/internal/core/domain"
	"github.com/99minutos/shipment-legs/internal/core/ports"
)

// dateLayouts are accepted for date_from / date_to filters. A bare date in
// date_to covers the whole day.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

// --- Request → Service input ---

func toListTransactionsInput(courierID string, q listTransactionsQuery, actor domain.Actor) (ports.ListTransactionsInput, error) {
	from, err := parseDate(q.DateFrom, false)
	if err != nil {
		return ports.ListTransactionsInput{}, err
	}
	to, err := parseDate(q.DateTo, true)
	if err != nil {
		return ports.ListTransactionsInput{}, err
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		return ports.ListTransactionsInput{}, fmt.Errorf("%w: date_to is before date_from", domain.ErrInvalidFilter)
	}

	return ports.ListTransactionsInput{
		CourierID: courierID,
		Type:      q.Type,
		DateFrom:  from,
		DateTo:    to,
		Page:      q.Page,
		Limit:     q.Limit,
		Actor:     actor,
	}, nil
}

func parseDate(s string, endOfDay bool) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for i, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if i > 0 && endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q is not a date", domain.ErrInvalidFilter, s)
}

// --- Service result → HTTP response ---

func toTransactionResponse(tx *domain.LedgerTransaction) transactionResponse {
	return transactionResponse{
		ID:         tx.ID,
		CourierID:  tx.CourierID,
		LegID:      tx.LegID,
		Type:       string(tx.Type),
		Amount:     tx.Amount,
		Note:       tx.Note,
		RecordedBy: tx.RecordedBy,
		CreatedAt:  tx.CreatedAt.UTC(),
	}
}

func toBalanceResponse(b *domain.Balance) balanceResponse {
	return balanceResponse{
		CourierID:   b.CourierID,
		Collected:   b.Collected,
		Paid:        b.Paid,
		Outstanding: b.Outstanding,
		NetIncome:   b.NetIncome,
	}
}

func toListTransactionsResponse(r *ports.ListTransactionsResult) listTransactionsResponse {
	items := make([]transactionResponse, len(r.Items))
	for i, tx := range r.Items {
		items[i] = toTransactionResponse(tx)
	}
	return listTransactionsResponse{
		Items: items,
		Pagination: paginationResponse{
			Total:      r.Total,
			Page:       r.Page,
			Limit:      r.Limit,
			TotalPages: r.TotalPages,
		},
	}
}
