package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// apiPrefix is where the router mounts the authenticated API; links carry it.
const apiPrefix = "/v1"

// envelope is the uniform body of every response. Errors are rendered with
// the same shape by the router's error handler.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// errorResponse documents the failure shape for swagger.
type errorResponse struct {
	Success bool   `json:"success" example:"false"`
	Message string `json:"message" example:"invalid status transition: cannot move leg from PENDING to DELIVERED"`
	Data    any    `json:"data"`
}

type paginationResponse struct {
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

func respond(c echo.Context, code int, message string, data any) error {
	return c.JSON(code, envelope{Success: true, Message: message, Data: data})
}

func ok(c echo.Context, message string, data any) error {
	return respond(c, http.StatusOK, message, data)
}

// bindAndValidate binds the request body (and query for GETs) into req and
// runs the registered validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
