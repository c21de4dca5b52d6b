package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/littlesprouts/center-api/internal/core/domain"
)

func newGateContext(t *testing.T) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %v", err)
	}
	return he.Code
}

func TestRequireRole_AllowsMatchingRole(t *testing.T) {
	c, rec := newGateContext(t)
	c.Set(authContextKey, AuthContext{UserID: "u1", Role: domain.RoleStaff})

	called := false
	handler := RequireRole(domain.RoleStaff)(func(c echo.Context) error {
		called = true
		return c.NoContent(http.StatusOK)
	})

	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !called {
		t.Fatalf("next handler not called")
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRole_ForbidsWrongRole(t *testing.T) {
	c, _ := newGateContext(t)
	c.Set(authContextKey, AuthContext{UserID: "u1", Role: domain.RoleParent})

	handler := RequireRole(domain.RoleStaff)(func(c echo.Context) error {
		t.Fatalf("should not reach next handler")
		return nil
	})

	if code := httpCode(t, handler(c)); code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", code)
	}
}

func TestRequireRole_AnonymousGets401(t *testing.T) {
	// Anonymous means "prove who you are" (401), never 403.
	c, _ := newGateContext(t)

	handler := RequireRole(domain.RoleStaff)(func(c echo.Context) error {
		t.Fatalf("should not reach next handler")
		return nil
	})

	if code := httpCode(t, handler(c)); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}
}

func TestRequireRole_AdminBypassesEveryGate(t *testing.T) {
	// Admin passes regardless of the declared role set, even an empty one.
	for _, roles := range [][]string{{domain.RoleStaff}, {domain.RoleParent}, {}} {
		c, rec := newGateContext(t)
		c.Set(authContextKey, AuthContext{UserID: "admin1", Role: domain.RoleAdmin})

		handler := RequireRole(roles...)(func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})

		if err := handler(c); err != nil {
			t.Fatalf("admin rejected for role set %v: %v", roles, err)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200 for role set %v, got %d", roles, rec.Code)
		}
	}
}

func TestRequireAuth(t *testing.T) {
	c, _ := newGateContext(t)
	handler := RequireAuth()(func(c echo.Context) error {
		t.Fatalf("should not reach next handler")
		return nil
	})
	if code := httpCode(t, handler(c)); code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", code)
	}

	c2, rec := newGateContext(t)
	c2.Set(authContextKey, AuthContext{UserID: "u1", Role: domain.RoleParent})
	ok := RequireAuth()(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	if err := ok(c2); err != nil {
		t.Fatalf("authenticated request rejected: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
