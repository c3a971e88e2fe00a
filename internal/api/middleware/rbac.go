package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/99minutos/shipment-legs/internal/core/domain"
)

// RBAC enforces role-based access control. Rejections go through the shared
// error handler so they render in the standard envelope.
func RBAC(allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get(RoleKey).(string)
			if _, ok := allowed[role]; !ok {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}

// StaffOnly is RBAC for back-office endpoints.
func StaffOnly() echo.MiddlewareFunc {
	return RBAC(domain.RoleStaff, domain.RoleAdmin)
}
