package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/99minutos/shipment-legs/internal/core/domain"
	"github.com/99minutos/shipment-legs/internal/core/ports"
)

func TestLedgerHandler_Deposit_Created(t *testing.T) {
	var got ports.DepositInput
	stub := &stubLedgerService{
		depositFn: func(ctx context.Context, in ports.DepositInput) (*ports.DepositResult, error) {
			got = in
			return &ports.DepositResult{Transaction: &domain.LedgerTransaction{
				ID: "tx-1", CourierID: in.CourierID, Type: domain.TxDepositCOD, Amount: -in.Amount,
			}}, nil
		},
	}
	h := NewLedgerHandler(stub)

	c, rec := newContext(request{
		method: http.MethodPost, target: "/v1/couriers/c1/deposits",
		body:    `{"amount":500000}`,
		params:  map[string]string{"id": "c1"},
		headers: map[string]string{"Idempotency-Key": "dep-001"},
		actor:   &courierActor,
	})
	if err := h.Deposit(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if got.CourierID != "c1" || got.Amount != 500000 || got.IdempotencyKey != "dep-001" {
		t.Fatalf("unexpected service input: %+v", got)
	}

	var resp struct {
		Data depositResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Data.Transaction.Amount != -500000 || resp.Data.AlreadyExisted {
		t.Fatalf("unexpected payload: %+v", resp.Data)
	}
}

func TestLedgerHandler_Deposit_Replay(t *testing.T) {
	stub := &stubLedgerService{
		depositFn: func(ctx context.Context, in ports.DepositInput) (*ports.DepositResult, error) {
			return &ports.DepositResult{
				Transaction:    &domain.LedgerTransaction{ID: "tx-1", CourierID: "c1", Type: domain.TxDepositCOD, Amount: -100},
				AlreadyExisted: true,
			}, nil
		},
	}
	h := NewLedgerHandler(stub)

	c, rec := newContext(request{
		method: http.MethodPost, target: "/v1/couriers/c1/deposits",
		body:   `{"amount":100}`,
		params: map[string]string{"id": "c1"}, actor: &courierActor,
	})
	if err := h.Deposit(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 on replay, got %d", rec.Code)
	}
}

func TestLedgerHandler_Deposit_Insufficient(t *testing.T) {
	stub := &stubLedgerService{
		depositFn: func(ctx context.Context, in ports.DepositInput) (*ports.DepositResult, error) {
			return nil, domain.ErrInsufficientBalance
		},
	}
	h := NewLedgerHandler(stub)

	c, _ := newContext(request{
		method: http.MethodPost, target: "/v1/couriers/c1/deposits",
		body:   `{"amount":600000}`,
		params: map[string]string{"id": "c1"}, actor: &courierActor,
	})
	if err := h.Deposit(c); !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
}

func TestLedgerHandler_Deposit_BadPayload(t *testing.T) {
	h := NewLedgerHandler(&stubLedgerService{})

	c, _ := newContext(request{
		method: http.MethodPost, target: "/v1/couriers/c1/deposits",
		body:   `{"amount":"lots"}`,
		params: map[string]string{"id": "c1"}, actor: &courierActor,
	})
	if code := httpCode(h.Deposit(c)); code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", code)
	}
}

func TestLedgerHandler_RecordEntry(t *testing.T) {
	var got ports.EntryInput
	stub := &stubLedgerService{
		entryFn: func(ctx context.Context, in ports.EntryInput) (*domain.LedgerTransaction, error) {
			got = in
			return &domain.LedgerTransaction{ID: "tx-2", CourierID: in.CourierID, Type: domain.TxBonus, Amount: in.Amount}, nil
		},
	}
	h := NewLedgerHandler(stub)

	c, rec := newContext(request{
		method: http.MethodPost, target: "/v1/couriers/c1/ledger/entries",
		body:   `{"type":"BONUS","amount":1500,"note":"peak week"}`,
		params: map[string]string{"id": "c1"}, actor: &staffActor,
	})
	if err := h.RecordEntry(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if got.Type != "BONUS" || got.Amount != 1500 || got.Note != "peak week" || got.Actor != staffActor {
		t.Fatalf("unexpected service input: %+v", got)
	}
}

func TestLedgerHandler_Balance(t *testing.T) {
	stub := &stubLedgerService{
		balanceFn: func(ctx context.Context, courierID string, actor domain.Actor) (*domain.Balance, error) {
			return &domain.Balance{CourierID: courierID, Collected: 620000, Paid: 420000, Outstanding: 200000, NetIncome: 3250}, nil
		},
	}
	h := NewLedgerHandler(stub)

	c, rec := newContext(request{
		method: http.MethodGet, target: "/v1/couriers/c1/balance",
		params: map[string]string{"id": "c1"}, actor: &courierActor,
	})
	if err := h.Balance(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}

	var resp struct {
		Data balanceResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	want := balanceResponse{CourierID: "c1", Collected: 620000, Paid: 420000, Outstanding: 200000, NetIncome: 3250}
	if resp.Data != want {
		t.Fatalf("expected %+v, got %+v", want, resp.Data)
	}
}

func TestLedgerHandler_ListTransactions_ParsesDates(t *testing.T) {
	var got ports.ListTransactionsInput
	stub := &stubLedgerService{
		listFn: func(ctx context.Context, in ports.ListTransactionsInput) (*ports.ListTransactionsResult, error) {
			got = in
			return &ports.ListTransactionsResult{Page: 1, Limit: 20}, nil
		},
	}
	h := NewLedgerHandler(stub)

	c, rec := newContext(request{
		method: http.MethodGet, target: "/v1/couriers/c1/transactions?type=DEPOSIT_COD&date_from=2026-03-01&date_to=2026-03-31",
		params: map[string]string{"id": "c1"}, actor: &staffActor,
	})
	if err := h.ListTransactions(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	wantFrom := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	wantTo := time.Date(2026, 3, 31, 23, 59, 59, int(time.Second-time.Nanosecond), time.UTC)
	if !got.DateFrom.Equal(wantFrom) || !got.DateTo.Equal(wantTo) {
		t.Fatalf("unexpected range %s .. %s", got.DateFrom, got.DateTo)
	}
	if got.Type != "DEPOSIT_COD" || got.CourierID != "c1" {
		t.Fatalf("unexpected input: %+v", got)
	}
}

func TestLedgerHandler_ListTransactions_InvalidFilter(t *testing.T) {
	h := NewLedgerHandler(&stubLedgerService{})

	for _, target := range []string{
		"/v1/couriers/c1/transactions?date_from=yesterday",
		"/v1/couriers/c1/transactions?date_from=2026-03-10&date_to=2026-03-01",
	} {
		c, _ := newContext(request{
			method: http.MethodGet, target: target,
			params: map[string]string{"id": "c1"}, actor: &staffActor,
		})
		if err := h.ListTransactions(c); !errors.Is(err, domain.ErrInvalidFilter) {
			t.Fatalf("%s: expected ErrInvalidFilter, got %v", target, err)
		}
	}
}
