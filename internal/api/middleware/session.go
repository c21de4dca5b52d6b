package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/littlesprouts/center-api/internal/core/ports"
)

// SessionCookie is the name of the cookie carrying the opaque session id.
const SessionCookie = "session_id"

const authContextKey = "auth_context"

// AuthContext is the resolved identity threaded through a request. Handlers
// and the role gate read this value instead of poking at the raw session.
type AuthContext struct {
	UserID string
	Role   string
}

// AuthFrom returns the AuthContext resolved by the Session middleware, or
// ok=false when the request is anonymous.
func AuthFrom(c echo.Context) (AuthContext, bool) {
	ac, ok := c.Get(authContextKey).(AuthContext)
	return ac, ok
}

// SetAuth attaches an AuthContext to the request. Used by the Session
// middleware and by handler tests that bypass it.
func SetAuth(c echo.Context, ac AuthContext) {
	c.Set(authContextKey, ac)
}

// Session resolves the session cookie into an AuthContext. It never rejects:
// a missing, expired, or orphaned session simply leaves the request
// anonymous, and RequireAuth / RequireRole decide further down the chain.
func Session(sessions ports.SessionStore, users ports.UserRepository, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cookie, err := c.Cookie(SessionCookie)
			if err != nil || cookie.Value == "" {
				return next(c)
			}

			ctx := c.Request().Context()
			session, err := sessions.Get(ctx, cookie.Value)
			if err != nil || session == nil || session.Expired(time.Now().UTC()) {
				return next(c)
			}

			// A session whose user has vanished is no session at all.
			user, err := users.FindByID(ctx, session.UserID)
			if err != nil {
				log.Debug().Str("session_id", session.ID).Msg("session references missing user")
				return next(c)
			}

			SetAuth(c, AuthContext{UserID: user.ID, Role: user.Role})
			return next(c)
		}
	}
}
