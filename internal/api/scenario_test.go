package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/littlesprouts/center-api/internal/api/handler"
	"github.com/littlesprouts/center-api/internal/api/middleware"
	"github.com/littlesprouts/center-api/internal/core/domain"
	"github.com/littlesprouts/center-api/internal/core/service"
	"github.com/littlesprouts/center-api/internal/infrastructure/db/memory"
)

// newTestRouter mirrors NewRouter's wiring on top of the in-memory stores,
// which is exactly the swap the repository interfaces exist to allow.
func newTestRouter(t *testing.T) (*echo.Echo, *memory.UserRepository) {
	t.Helper()
	log := zerolog.Nop()
	users := memory.NewUserRepository()
	sessions := memory.NewSessionStore()
	authService := service.NewAuthService(users, sessions, nil, "http://localhost:8080", time.Hour, log).
		WithBcryptCost(bcrypt.MinCost)
	authHandler := handler.NewAuthHandler(authService, false)
	adminHandler := handler.NewAdminHandler(authService)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(log)
	e.Use(middleware.Session(sessions, users, log))

	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/logout", authHandler.Logout)
	e.POST("/auth/qr-login", authHandler.QRLogin)

	authed := e.Group("/auth", middleware.RequireAuth())
	authed.GET("/me", authHandler.Me)
	authed.PATCH("/profile", authHandler.UpdateProfile)
	authed.POST("/generate-qr-token", authHandler.GenerateQR)
	authed.POST("/disable-qr", authHandler.DisableQR)

	admin := e.Group("/admin", middleware.RequireRole(domain.RoleAdmin))
	admin.GET("/users", adminHandler.ListUsers)
	admin.PATCH("/users/:id/role", adminHandler.ChangeRole)

	return e, users
}

type client struct {
	e       *echo.Echo
	t       *testing.T
	cookies []*http.Cookie
}

func newClient(t *testing.T, e *echo.Echo) *client {
	return &client{e: e, t: t}
}

func (c *client) do(method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	c.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for _, cookie := range c.cookies {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	c.e.ServeHTTP(rec, req)

	// Adopt any cookies the server set, including clears.
	for _, cookie := range rec.Result().Cookies() {
		c.setCookie(cookie)
	}

	var parsed map[string]any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &parsed)
	}
	return rec, parsed
}

func (c *client) setCookie(cookie *http.Cookie) {
	for i, existing := range c.cookies {
		if existing.Name == cookie.Name {
			c.cookies[i] = cookie
			return
		}
	}
	c.cookies = append(c.cookies, cookie)
}

func userID(t *testing.T, resp map[string]any) string {
	t.Helper()
	user, ok := resp["user"].(map[string]any)
	if !ok {
		t.Fatalf("no user in response: %+v", resp)
	}
	id, _ := user["id"].(string)
	if id == "" {
		t.Fatalf("user missing id: %+v", user)
	}
	return id
}

func TestFullAuthScenario(t *testing.T) {
	e, _ := newTestRouter(t)
	alice := newClient(t, e)

	// Register.
	rec, resp := alice.do(http.MethodPost, "/auth/register",
		`{"username":"alice","email":"alice@x.com","password":"pw123456","confirm_password":"pw123456","first_name":"Alice","last_name":"A"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	aliceID := userID(t, resp)

	// Login with the email form of the identifier.
	rec, resp = alice.do(http.MethodPost, "/auth/login",
		`{"identifier":"alice@x.com","password":"pw123456"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d", rec.Code)
	}
	if userID(t, resp) != aliceID {
		t.Fatalf("login resolved a different user")
	}

	// Generate a QR credential.
	rec, resp = alice.do(http.MethodPost, "/auth/generate-qr-token", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("generate-qr: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	qrURL, _ := resp["qr_url"].(string)
	parsedQR, err := url.Parse(qrURL)
	if err != nil {
		t.Fatalf("qr url unparseable: %v", err)
	}
	if parsedQR.Query().Get("uid") != aliceID {
		t.Fatalf("qr url missing uid: %s", qrURL)
	}
	token := parsedQR.Query().Get("token")
	if token == "" {
		t.Fatalf("qr url missing token: %s", qrURL)
	}

	// Redeem it from a fresh, unauthenticated client.
	scanner := newClient(t, e)
	rec, resp = scanner.do(http.MethodPost, "/auth/qr-login",
		`{"uid":"`+aliceID+`","token":"`+token+`"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("qr-login: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if userID(t, resp) != aliceID {
		t.Fatalf("qr login resolved a different user")
	}

	// The scanner's session works like any other.
	rec, resp = scanner.do(http.MethodGet, "/auth/me", "")
	if rec.Code != http.StatusOK || userID(t, resp) != aliceID {
		t.Fatalf("me after qr login: expected alice, got %d %+v", rec.Code, resp)
	}

	// Disable QR, then the old token must be dead.
	if rec, _ = alice.do(http.MethodPost, "/auth/disable-qr", ""); rec.Code != http.StatusOK {
		t.Fatalf("disable-qr: expected 200, got %d", rec.Code)
	}
	rec, _ = newClient(t, e).do(http.MethodPost, "/auth/qr-login",
		`{"uid":"`+aliceID+`","token":"`+token+`"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("qr-login after disable: expected 401, got %d", rec.Code)
	}

	// Logout, then /auth/me is anonymous again.
	if rec, _ = alice.do(http.MethodPost, "/auth/logout", ""); rec.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rec.Code)
	}
	if rec, _ = alice.do(http.MethodGet, "/auth/me", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("me after logout: expected 401, got %d", rec.Code)
	}
}

func TestRoleGateOverHTTP(t *testing.T) {
	e, users := newTestRouter(t)

	// Anonymous caller: 401.
	rec, _ := newClient(t, e).do(http.MethodGet, "/admin/users", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous: expected 401, got %d", rec.Code)
	}

	// A parent (registration always yields parent): 403.
	parent := newClient(t, e)
	if rec, _ = parent.do(http.MethodPost, "/auth/register",
		`{"username":"pat","password":"pw123456","confirm_password":"pw123456"}`); rec.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d", rec.Code)
	}
	if rec, _ = parent.do(http.MethodGet, "/admin/users", ""); rec.Code != http.StatusForbidden {
		t.Fatalf("parent: expected 403, got %d", rec.Code)
	}

	// Promote pat to admin directly in the store, then the gate opens.
	all, _ := users.List(context.Background())
	for _, u := range all {
		u.Role = domain.RoleAdmin
		if _, err := users.Update(context.Background(), u); err != nil {
			t.Fatalf("promote: %v", err)
		}
	}
	if rec, _ = parent.do(http.MethodGet, "/admin/users", ""); rec.Code != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d", rec.Code)
	}

	// Admin can change another user's role through the API.
	other := newClient(t, e)
	var resp map[string]any
	if rec, resp = other.do(http.MethodPost, "/auth/register",
		`{"username":"sam","password":"pw123456","confirm_password":"pw123456"}`); rec.Code != http.StatusCreated {
		t.Fatalf("register sam: expected 201, got %d", rec.Code)
	}
	samID := userID(t, resp)

	rec, resp = parent.do(http.MethodPatch, "/admin/users/"+samID+"/role", `{"role":"staff"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("change role: expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if user, _ := resp["user"].(map[string]any); user["role"] != domain.RoleStaff {
		t.Fatalf("expected staff role, got %+v", resp)
	}

	// But sam (staff) still cannot change roles himself.
	rec, _ = other.do(http.MethodPatch, "/admin/users/"+samID+"/role", `{"role":"admin"}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("staff self-promotion: expected 403, got %d", rec.Code)
	}
}

func TestDuplicateRegistrationConflict(t *testing.T) {
	e, _ := newTestRouter(t)

	first := newClient(t, e)
	if rec, _ := first.do(http.MethodPost, "/auth/register",
		`{"username":"dup","password":"pw123456","confirm_password":"pw123456"}`); rec.Code != http.StatusCreated {
		t.Fatalf("first register: expected 201, got %d", rec.Code)
	}

	rec, resp := newClient(t, e).do(http.MethodPost, "/auth/register",
		`{"username":"dup","password":"pw123456","confirm_password":"pw123456"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("second register: expected 400, got %d", rec.Code)
	}
	if msg, _ := resp["error"].(string); !strings.Contains(msg, "username") {
		t.Fatalf("expected username conflict message, got %+v", resp)
	}
}
