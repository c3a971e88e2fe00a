package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/shipment-legs/internal/api/metrics"
	"github.com/99minutos/shipment-legs/internal/core/domain"
	"github.com/99minutos/shipment-legs/internal/core/ports"
)

// LedgerHandler exposes the courier COD reconciliation ledger.
type LedgerHandler struct {
	service ports.LedgerService
}

func NewLedgerHandler(service ports.LedgerService) *LedgerHandler {
	return &LedgerHandler{service: service}
}

// Deposit handles POST /v1/couriers/:id/ledger/deposits.
//
// @Summary      Record a COD deposit
// @Description  Rejected when the amount exceeds the courier's outstanding COD balance at the instant of recording.
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id               path      string          true   "Courier id"
// @Param        Idempotency-Key  header    string          false  "Replays return the original deposit"
// @Param        body             body      depositRequest  true   "Deposit"
// @Success      201              {object}  envelope{data=depositResponse}
// @Success      200              {object}  envelope{data=depositResponse}  "Idempotent replay"
// @Failure      400              {object}  errorResponse
// @Failure      403              {object}  errorResponse
// @Failure      409              {object}  errorResponse
// @Failure      422              {object}  errorResponse
// @Router       /v1/couriers/{id}/ledger/deposits [post]
func (h *LedgerHandler) Deposit(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req depositRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.service.RecordDeposit(c.Request().Context(), ports.DepositInput{
		CourierID:      c.Param("id"),
		Amount:         req.Amount,
		IdempotencyKey: c.Request().Header.Get("Idempotency-Key"),
		Actor:          actor,
	})
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientBalance) {
			metrics.DepositsTotal.WithLabelValues("rejected").Inc()
		}
		return err
	}

	resp := depositResponse{
		Transaction:    toTransactionResponse(result.Transaction),
		AlreadyExisted: result.AlreadyExisted,
	}
	if result.AlreadyExisted {
		metrics.DepositsTotal.WithLabelValues("replayed").Inc()
		return respond(c, http.StatusOK, "deposit already recorded", resp)
	}
	metrics.DepositsTotal.WithLabelValues("accepted").Inc()
	return respond(c, http.StatusCreated, "deposit recorded", resp)
}

// RecordEntry handles POST /v1/couriers/:id/ledger/entries.
//
// @Summary      Record a back-office ledger entry
// @Description  BONUS, PENALTY, WITHDRAWAL, REFUND, ADJUSTMENT or DELIVERY_FEE. COD types are recorded by the leg lifecycle only.
// @Tags         ledger
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string        true  "Courier id"
// @Param        body  body      entryRequest  true  "Entry"
// @Success      201   {object}  envelope{data=transactionResponse}
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Router       /v1/couriers/{id}/ledger/entries [post]
func (h *LedgerHandler) RecordEntry(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req entryRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	tx, err := h.service.RecordEntry(c.Request().Context(), ports.EntryInput{
		CourierID: c.Param("id"),
		Type:      req.Type,
		Amount:    req.Amount,
		LegID:     req.LegID,
		Note:      req.Note,
		Actor:     actor,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "ledger entry recorded", toTransactionResponse(tx))
}

// Balance handles GET /v1/couriers/:id/ledger/balance.
//
// @Summary      Get a courier's balance
// @Tags         ledger
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Courier id"
// @Success      200  {object}  envelope{data=balanceResponse}
// @Failure      403  {object}  errorResponse
// @Router       /v1/couriers/{id}/ledger/balance [get]
func (h *LedgerHandler) Balance(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	b, err := h.service.Balance(c.Request().Context(), c.Param("id"), actor)
	if err != nil {
		return err
	}
	return ok(c, "balance retrieved", toBalanceResponse(b))
}

// ListTransactions handles GET /v1/couriers/:id/ledger/transactions.
//
// @Summary      List a courier's ledger transactions
// @Tags         ledger
// @Produce      json
// @Security     BearerAuth
// @Param        id         path      string  true   "Courier id"
// @Param        type       query     string  false  "Transaction type"
// @Param        date_from  query     string  false  "RFC 3339 timestamp or YYYY-MM-DD"
// @Param        date_to    query     string  false  "RFC 3339 timestamp or YYYY-MM-DD (inclusive)"
// @Param        page       query     int     false  "Page (1-based)"
// @Param        limit      query     int     false  "Page size (max 100)"
// @Success      200        {object}  envelope{data=listTransactionsResponse}
// @Failure      400        {object}  errorResponse
// @Failure      403        {object}  errorResponse
// @Router       /v1/couriers/{id}/ledger/transactions [get]
func (h *LedgerHandler) ListTransactions(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var q listTransactionsQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}

	input, err := toListTransactionsInput(c.Param("id"), q, actor)
	if err != nil {
		return err
	}
	result, err := h.service.ListTransactions(c.Request().Context(), input)
	if err != nil {
		return err
	}
	return ok(c, "transactions retrieved", toListTransactionsResponse(result))
}
