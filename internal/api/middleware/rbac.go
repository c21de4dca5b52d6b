package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/littlesprouts/center-api/internal/api/metrics"
	"github.com/littlesprouts/center-api/internal/core/domain"
)

// RequireAuth rejects anonymous requests with 401. It carries no role
// requirement; use it for endpoints any signed-in user may call.
func RequireAuth() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if _, ok := AuthFrom(c); !ok {
				metrics.AccessDeniedTotal.WithLabelValues("unauthorized").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, domain.ErrUnauthorized.Error())
			}
			return next(c)
		}
	}
}

// RequireRole enforces role-based access control. Anonymous requests get
// 401 (prove who you are); authenticated requests outside the allowed set
// get 403 (you proved it but may not pass). Admins pass every gate
// unconditionally — a blanket-trust rule inherited from the legacy system.
func RequireRole(allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ac, ok := AuthFrom(c)
			if !ok {
				metrics.AccessDeniedTotal.WithLabelValues("unauthorized").Inc()
				return echo.NewHTTPError(http.StatusUnauthorized, domain.ErrUnauthorized.Error())
			}
			if ac.Role == domain.RoleAdmin {
				return next(c)
			}
			if _, ok := allowed[ac.Role]; !ok {
				metrics.AccessDeniedTotal.WithLabelValues("forbidden").Inc()
				return echo.NewHTTPError(http.StatusForbidden, domain.ErrForbidden.Error())
			}
			return next(c)
		}
	}
}
