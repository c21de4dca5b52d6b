package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/littlesprouts/center-api/internal/core/domain"
	"github.com/littlesprouts/center-api/internal/infrastructure/db/memory"
)

func seedSession(t *testing.T, users *memory.UserRepository, sessions *memory.SessionStore, ttl time.Duration) (*domain.User, *domain.Session) {
	t.Helper()
	user, err := users.Create(context.Background(), &domain.User{Username: "nora", Role: domain.RoleStaff})
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	now := time.Now().UTC()
	session := &domain.Session{ID: "sess-1", UserID: user.ID, CreatedAt: now, ExpiresAt: now.Add(ttl)}
	if err := sessions.Create(context.Background(), session); err != nil {
		t.Fatalf("seed session: %v", err)
	}
	return user, session
}

func runSession(t *testing.T, users *memory.UserRepository, sessions *memory.SessionStore, cookie *http.Cookie) (AuthContext, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got AuthContext
	var ok bool
	mw := Session(sessions, users, zerolog.Nop())
	handler := mw(func(c echo.Context) error {
		got, ok = AuthFrom(c)
		return c.NoContent(http.StatusOK)
	})
	if err := handler(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return got, ok
}

func TestSession_ResolvesValidCookie(t *testing.T) {
	users := memory.NewUserRepository()
	sessions := memory.NewSessionStore()
	user, session := seedSession(t, users, sessions, time.Hour)

	ac, ok := runSession(t, users, sessions, &http.Cookie{Name: SessionCookie, Value: session.ID})
	if !ok {
		t.Fatalf("expected authenticated context")
	}
	if ac.UserID != user.ID || ac.Role != domain.RoleStaff {
		t.Fatalf("unexpected auth context: %+v", ac)
	}
}

func TestSession_MissingCookieIsAnonymous(t *testing.T) {
	users := memory.NewUserRepository()
	sessions := memory.NewSessionStore()

	if _, ok := runSession(t, users, sessions, nil); ok {
		t.Fatalf("expected anonymous context")
	}
}

func TestSession_ExpiredSessionIsAnonymous(t *testing.T) {
	users := memory.NewUserRepository()
	sessions := memory.NewSessionStore()
	_, session := seedSession(t, users, sessions, -time.Minute)

	if _, ok := runSession(t, users, sessions, &http.Cookie{Name: SessionCookie, Value: session.ID}); ok {
		t.Fatalf("expected expired session to resolve anonymous")
	}
}

func TestSession_UnknownSessionIsAnonymous(t *testing.T) {
	users := memory.NewUserRepository()
	sessions := memory.NewSessionStore()

	if _, ok := runSession(t, users, sessions, &http.Cookie{Name: SessionCookie, Value: "forged"}); ok {
		t.Fatalf("expected unknown session to resolve anonymous")
	}
}

func TestSession_OrphanedUserIsAnonymous(t *testing.T) {
	// A session whose user no longer resolves must not authenticate.
	users := memory.NewUserRepository()
	sessions := memory.NewSessionStore()
	now := time.Now().UTC()
	session := &domain.Session{ID: "sess-orphan", UserID: "gone", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	if err := sessions.Create(context.Background(), session); err != nil {
		t.Fatalf("seed session: %v", err)
	}

	if _, ok := runSession(t, users, sessions, &http.Cookie{Name: SessionCookie, Value: session.ID}); ok {
		t.Fatalf("expected orphaned session to resolve anonymous")
	}
}
