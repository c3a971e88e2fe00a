package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/99minutos/shipment-legs/internal/api/middleware"
	"github.com/99minutos/shipment-legs/internal/core/domain"
)

// actorFrom extracts the caller injected by the Auth middleware and fails
// fast before any service call when the middleware did not run.
func actorFrom(c echo.Context) (domain.Actor, error) {
	id, _ := c.Get(middleware.ActorIDKey).(string)
	role, _ := c.Get(middleware.RoleKey).(string)
	if id == "" || role == "" {
		return domain.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return domain.Actor{ID: id, Role: role}, nil
}
