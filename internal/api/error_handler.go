package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/shipment-legs/internal/api/metrics"
	"github.com/99minutos/shipment-legs/internal/core/domain"
)

// errorEnvelope is the canonical error body for all API errors. It mirrors
// the success envelope with data always null.
type errorEnvelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// domainError binds a sentinel to its HTTP status and the reason label
// recorded in metrics.
type domainError struct {
	err    error
	status int
	reason string
}

// domainErrors is checked in order with errors.Is.
var domainErrors = []domainError{
	{domain.ErrInvalidTransition, http.StatusUnprocessableEntity, "invalid_transition"},
	{domain.ErrPredecessorNotComplete, http.StatusUnprocessableEntity, "predecessor_not_complete"},
	{domain.ErrCodeMismatch, http.StatusUnprocessableEntity, "code_mismatch"},
	{domain.ErrVerificationRequired, http.StatusUnprocessableEntity, "verification_required"},
	{domain.ErrProofNotAllowed, http.StatusUnprocessableEntity, "proof_not_allowed"},
	{domain.ErrInsufficientBalance, http.StatusUnprocessableEntity, "insufficient_balance"},
	{domain.ErrNotAuthorizedForLeg, http.StatusForbidden, "not_authorized_for_leg"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
	{domain.ErrCodeNotFound, http.StatusNotFound, "code_not_found"},
	{domain.ErrLegNotFound, http.StatusNotFound, "leg_not_found"},
	{domain.ErrShipmentNotFound, http.StatusNotFound, "shipment_not_found"},
	{domain.ErrTransactionNotFound, http.StatusNotFound, "transaction_not_found"},
	{domain.ErrInvalidRoute, http.StatusBadRequest, "invalid_route"},
	{domain.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{domain.ErrInvalidEntryType, http.StatusBadRequest, "invalid_entry_type"},
	{domain.ErrInvalidFilter, http.StatusBadRequest, "invalid_filter"},
	{domain.ErrConcurrentModification, http.StatusConflict, "concurrent_modification"},
	{domain.ErrShipmentExists, http.StatusConflict, "shipment_exists"},
	{domain.ErrDuplicateTransaction, http.StatusConflict, "duplicate_transaction"},
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders the envelope: {"success": false, "message": "<message>", "data": null}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, msg := resolveError(err, log, c)

		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, errorEnvelope{Success: false, Message: msg})
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, string) {
	// Echo's own errors (bind failures, 404 from router, auth middleware, etc.)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if he.Internal != nil {
			log.Debug().Err(he.Internal).Str("path", c.Path()).Msg("request rejected")
		}
		return he.Code, fmt.Sprintf("%v", he.Message)
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, "request body too large"
	}

	// Known domain errors → deterministic HTTP codes. The wrapped message
	// carries the attempted and current state, so it is safe to return.
	for _, de := range domainErrors {
		if errors.Is(err, de.err) {
			metrics.RequestsRejectedTotal.WithLabelValues(de.reason).Inc()
			return de.status, err.Error()
		}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, "internal error"
}
