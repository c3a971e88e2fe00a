package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/shipment-legs/internal/api/metrics"
	"github.com/99minutos/shipment-legs/internal/core/domain"
	"github.com/99minutos/shipment-legs/internal/core/ports"
)

// LegHandler handles HTTP requests for shipment leg operations.
type LegHandler struct {
	service ports.LegService
}

func NewLegHandler(service ports.LegService) *LegHandler {
	return &LegHandler{service: service}
}

// List handles GET /v1/legs.
//
// @Summary      List legs
// @Description  Couriers only see their own legs; staff may filter by courier.
// @Tags         legs
// @Produce      json
// @Security     BearerAuth
// @Param        courierId   query     string  false  "Courier id (staff only)"
// @Param        order_id    query     string  false  "Shipment order id"
// @Param        sequence    query     int     false  "Leg sequence within the order"
// @Param        status      query     string  false  "Leg status"  Enums(PENDING, PICKING_UP, IN_TRANSIT, DELIVERED, RETURNING, RETURNED, CANCELLED)
// @Param        page        query     int     false  "Page (1-based)"
// @Param        limit       query     int     false  "Page size (max 100)"
// @Success      200         {object}  envelope{data=listLegsResponse}
// @Failure      400         {object}  errorResponse
// @Failure      401         {object}  errorResponse
// @Router       /v1/legs [get]
func (h *LegHandler) List(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var q listLegsQuery
	if err := bindAndValidate(c, &q); err != nil {
		return err
	}
	if q.CourierID == "" {
		q.CourierID = c.QueryParam("courier_id")
	}

	result, err := h.service.ListLegs(c.Request().Context(), toListLegsInput(q, actor))
	if err != nil {
		return err
	}
	return ok(c, "legs retrieved", toListLegsResponse(result))
}

// Get handles GET /v1/legs/:id.
//
// @Summary      Get a leg
// @Tags         legs
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Leg id"
// @Success      200  {object}  envelope{data=legResponse}
// @Failure      404  {object}  errorResponse
// @Router       /v1/legs/{id} [get]
func (h *LegHandler) Get(c echo.Context) error {
	leg, err := h.service.GetLeg(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, "leg retrieved", toLegResponse(leg))
}

// GetByCode handles GET /v1/legs/by-tracking-code/:code.
//
// @Summary      Resolve a full tracking code
// @Tags         legs
// @Produce      json
// @Security     BearerAuth
// @Param        code  path      string  true  "Tracking code (e.g. ORD7F3A9C21-L02-M)"
// @Success      200   {object}  envelope{data=legResponse}
// @Failure      404   {object}  errorResponse
// @Router       /v1/legs/by-tracking-code/{code} [get]
func (h *LegHandler) GetByCode(c echo.Context) error {
	leg, err := h.service.GetByTrackingCode(c.Request().Context(), c.Param("code"))
	if err != nil {
		return err
	}
	return ok(c, "leg retrieved", toLegResponse(leg))
}

// GetByShortCode handles GET /v1/legs/by-short-code/:code.
//
// @Summary      Find actionable legs by short code
// @Description  Short codes may collide across orders, so every actionable match is returned ordered by sequence.
// @Tags         legs
// @Produce      json
// @Security     BearerAuth
// @Param        code  path      string  true  "Short code (e.g. 7F3A9C21-02)"
// @Success      200   {object}  envelope{data=[]legResponse}
// @Failure      404   {object}  errorResponse
// @Router       /v1/legs/by-short-code/{code} [get]
func (h *LegHandler) GetByShortCode(c echo.Context) error {
	legs, err := h.service.FindByShortCode(c.Request().Context(), c.Param("code"))
	if err != nil {
		return err
	}
	return ok(c, "legs retrieved", toLegResponses(legs))
}

// Verify handles POST /v1/legs/:id/verify.
//
// @Summary      Verify a scanned tracking code against a leg
// @Tags         legs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string         true  "Leg id"
// @Param        body  body      verifyRequest  true  "Scanned code"
// @Success      200   {object}  envelope{data=verifyResponse}
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/legs/{id}/verify [post]
func (h *LegHandler) Verify(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req verifyRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.service.Verify(c.Request().Context(), c.Param("id"), actor, req.scanned())
	if err != nil {
		return err
	}
	return ok(c, "tracking code verified", toVerifyResponse(result))
}

// Assign handles POST /v1/legs/:id/assign.
//
// @Summary      Assign a courier to a pending leg
// @Tags         legs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string         true  "Leg id"
// @Param        body  body      assignRequest  true  "Courier"
// @Success      200   {object}  envelope{data=legResponse}
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/legs/{id}/assign [post]
func (h *LegHandler) Assign(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req assignRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	leg, err := h.service.Assign(c.Request().Context(), c.Param("id"), req.CourierID, actor)
	if err != nil {
		return err
	}
	return ok(c, "courier assigned", toLegResponse(leg))
}

// Pickup handles POST /v1/legs/:id/pickup.
//
// @Summary      Confirm pickup
// @Tags         legs
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Leg id"
// @Success      200  {object}  envelope{data=legResponse}
// @Failure      403  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /v1/legs/{id}/pickup [post]
func (h *LegHandler) Pickup(c echo.Context) error {
	return h.transition(c, "pickup confirmed", h.service.ConfirmPickup)
}

// Transit handles POST /v1/legs/:id/transit.
//
// @Summary      Confirm the leg is in transit
// @Tags         legs
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Leg id"
// @Success      200  {object}  envelope{data=legResponse}
// @Failure      403  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /v1/legs/{id}/transit [post]
func (h *LegHandler) Transit(c echo.Context) error {
	return h.transition(c, "leg in transit", h.service.ConfirmTransit)
}

// Deliver handles POST /v1/legs/:id/deliver.
//
// @Summary      Confirm delivery
// @Description  Delivering the terminal leg of a COD order records the collection in the courier's ledger.
// @Tags         legs
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Leg id"
// @Success      200  {object}  envelope{data=legResponse}
// @Failure      403  {object}  errorResponse
// @Failure      409  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /v1/legs/{id}/deliver [post]
func (h *LegHandler) Deliver(c echo.Context) error {
	return h.transition(c, "delivery confirmed", h.service.ConfirmDelivery)
}

// Return handles POST /v1/legs/:id/return.
//
// @Summary      Start returning a leg
// @Tags         legs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string         true   "Leg id"
// @Param        body  body      reasonRequest  false  "Reason"
// @Success      200   {object}  envelope{data=legResponse}
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/legs/{id}/return [post]
func (h *LegHandler) Return(c echo.Context) error {
	return h.transitionWithReason(c, "return initiated", h.service.InitiateReturn)
}

// CompleteReturn handles POST /v1/legs/:id/return/complete.
//
// @Summary      Complete a return
// @Description  Completing the return of a collected COD leg records the cash handed back.
// @Tags         legs
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "Leg id"
// @Success      200  {object}  envelope{data=legResponse}
// @Failure      403  {object}  errorResponse
// @Failure      422  {object}  errorResponse
// @Router       /v1/legs/{id}/return/complete [post]
func (h *LegHandler) CompleteReturn(c echo.Context) error {
	return h.transition(c, "return completed", h.service.CompleteReturn)
}

// Cancel handles POST /v1/legs/:id/cancel.
//
// @Summary      Cancel a pending leg
// @Tags         legs
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string         true   "Leg id"
// @Param        body  body      reasonRequest  false  "Reason"
// @Success      200   {object}  envelope{data=legResponse}
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/legs/{id}/cancel [post]
func (h *LegHandler) Cancel(c echo.Context) error {
	return h.transitionWithReason(c, "leg cancelled", h.service.Cancel)
}

type transitionFunc func(ctx context.Context, legID string, actor domain.Actor) (*domain.ShipmentLeg, error)

type reasonTransitionFunc func(ctx context.Context, legID string, actor domain.Actor, reason string) (*domain.ShipmentLeg, error)

func (h *LegHandler) transition(c echo.Context, message string, fn transitionFunc) error {
	return h.transitionWithReason(c, message, func(ctx context.Context, legID string, actor domain.Actor, _ string) (*domain.ShipmentLeg, error) {
		return fn(ctx, legID, actor)
	})
}

func (h *LegHandler) transitionWithReason(c echo.Context, message string, fn reasonTransitionFunc) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req reasonRequest
	if c.Request().ContentLength > 0 {
		if err := bindAndValidate(c, &req); err != nil {
			return err
		}
	}

	leg, err := fn(c.Request().Context(), c.Param("id"), actor, req.Reason)
	if err != nil {
		return err
	}

	metrics.LegTransitionsTotal.WithLabelValues(string(leg.Status)).Inc()
	return respond(c, http.StatusOK, message, toLegResponse(leg))
}
