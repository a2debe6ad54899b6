package harvestbook

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

const sessionName = "harvestbook_session"

// userContextKey holds the authenticated *User on the echo context.
const userContextKey = "harvestbook_user"

func (a *App) setupMiddleware() {
	e := a.echo

	e.IPExtractor = echo.ExtractIPFromXFFHeader(
		echo.TrustLoopback(true),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(true),
	)

	e.HTTPErrorHandler = a.httpErrorHandler

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:  true,
		LogURI:     true,
		LogMethod:  true,
		LogLatency: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			c.Logger().Infof("%s %s -> %d (%s)", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))

	e.Use(middleware.Recover())

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "strict-origin-when-cross-origin",
	}))

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
	}))

	e.Use(middleware.BodyLimit("12M"))

	e.Use(session.Middleware(a.newSessionStore()))

	e.Use(a.withUser)
}

// httpErrorHandler renders every error as a JSON envelope with the
// 400/401/403/404/500 conventions. 5xx errors are logged; their details
// never reach the client.
func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := "internal server error"

	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	case errors.Is(err, ErrNotFound):
		code = http.StatusNotFound
		msg = "not found"
	case errors.Is(err, ErrMissingReference), errors.Is(err, ErrBadReorder):
		code = http.StatusBadRequest
		msg = err.Error()
	}
	if code >= 500 {
		c.Logger().Errorf("server error: %v", err)
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, map[string]string{"error": msg})
}

func (a *App) newSessionStore() *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(a.cfg.SessionSecret))
	store.Options = &sessions.Options{
		Path:     "/",
		HttpOnly: true,
		MaxAge:   60 * 60 * 24,
		SameSite: http.SameSiteLaxMode,
		Secure:   a.cfg.CookieSecure,
	}
	return store
}

func (a *App) setUserSession(c echo.Context, userID int64) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values["user_id"] = userID
	return sess.Save(c.Request(), c.Response())
}

func (a *App) clearUserSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// withUser resolves the caller's identity from a bearer token or the
// session cookie and stores the loaded user on the context. Anonymous
// requests pass through; requireUser turns absence into a 401.
func (a *App) withUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if id, ok := a.requestUserID(c); ok {
			// Load from the store so role changes take effect before
			// the token expires.
			user, err := a.store.GetUser(id)
			switch {
			case err == nil:
				c.Set(userContextKey, &user)
			case errors.Is(err, ErrNotFound):
				// Deleted account with a live token; treat as anonymous.
			default:
				return err
			}
		}
		return next(c)
	}
}

// requestUserID extracts an authenticated user id, bearer token first.
func (a *App) requestUserID(c echo.Context) (int64, bool) {
	if auth := c.Request().Header.Get(echo.HeaderAuthorization); auth != "" {
		raw, ok := strings.CutPrefix(auth, "Bearer ")
		if !ok {
			return 0, false
		}
		claims, err := a.parseToken(strings.TrimSpace(raw))
		if err != nil {
			return 0, false
		}
		return claims.UserID, true
	}
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return 0, false
	}
	id, ok := sess.Values["user_id"].(int64)
	return id, ok
}

// currentUser returns the authenticated user stored by withUser.
func currentUser(c echo.Context) (User, bool) {
	user, ok := c.Get(userContextKey).(*User)
	if !ok || user == nil {
		return User{}, false
	}
	return *user, true
}

// requireUser rejects anonymous requests with 401.
func requireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, ok := currentUser(c); !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}
		return next(c)
	}
}

// requireAdmin rejects non-admin callers with 403.
func requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, ok := currentUser(c)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
		}
		if user.Role != RoleAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "admin role required")
		}
		return next(c)
	}
}
