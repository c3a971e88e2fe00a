package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/shipment-legs/internal/api/metrics"
	"github.com/99minutos/shipment-legs/internal/core/ports"
)

// ShipmentHandler handles HTTP requests for shipment operations.
type ShipmentHandler struct {
	service ports.ShipmentService
}

func NewShipmentHandler(service ports.ShipmentService) *ShipmentHandler {
	return &ShipmentHandler{service: service}
}

// Dispatch handles POST /v1/shipments.
//
// @Summary      Dispatch an order for logistics
// @Description  Decomposes the route into legs, all created PENDING up front and persisted atomically with the order.
// @Tags         shipments
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      dispatchRequest  true  "Order route and leg details"
// @Success      201   {object}  envelope{data=shipmentResponse}
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /v1/shipments [post]
func (h *ShipmentHandler) Dispatch(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req dispatchRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	input, err := toDispatchInput(req, actor)
	if err != nil {
		return err
	}
	detail, err := h.service.Dispatch(c.Request().Context(), input)
	if err != nil {
		return err
	}

	metrics.ShipmentsDispatchedTotal.Inc()
	metrics.LegsPerShipment.Observe(float64(len(detail.Legs)))
	return respond(c, http.StatusCreated, "shipment dispatched", toShipmentResponse(detail))
}

// Get handles GET /v1/shipments/:orderId.
//
// @Summary      Get a shipment order with its legs
// @Tags         shipments
// @Produce      json
// @Security     BearerAuth
// @Param        orderId  path      string  true  "Order id"
// @Success      200      {object}  envelope{data=shipmentResponse}
// @Failure      404      {object}  errorResponse
// @Router       /v1/shipments/{orderId} [get]
func (h *ShipmentHandler) Get(c echo.Context) error {
	detail, err := h.service.GetShipment(c.Request().Context(), c.Param("orderId"))
	if err != nil {
		return err
	}
	return ok(c, "shipment retrieved", toShipmentResponse(detail))
}
