package harvestbook

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 6

// tokenClaims is the bearer token payload: registered claims plus the
// account identity and role.
type tokenClaims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// issueToken signs a 24h (configurable) HMAC bearer token for u.
func (a *App) issueToken(u User) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.cfg.SiteName,
			Subject:   fmt.Sprintf("%d", u.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.cfg.TokenTTL)),
		},
		UserID:   u.ID,
		Username: u.Username,
		Role:     u.Role,
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(a.cfg.TokenSecret))
}

// parseToken verifies a bearer token and returns its claims.
func (a *App) parseToken(raw string) (*tokenClaims, error) {
	claims := &tokenClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return []byte(a.cfg.TokenSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

type registerRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

type authResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

func (a *App) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" || strings.ContainsAny(req.Username, " \t") {
		return echo.NewHTTPError(http.StatusBadRequest, "username is required and may not contain spaces")
	}
	if !strings.Contains(req.Email, "@") {
		return echo.NewHTTPError(http.StatusBadRequest, "email is invalid")
	}
	if len(req.Password) < minPasswordLength {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user, err := a.store.CreateUser(User{
		Username:     req.Username,
		Email:        req.Email,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		PasswordHash: string(hash),
		Role:         RoleUser,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return echo.NewHTTPError(http.StatusBadRequest, "username or email already in use")
		}
		return err
	}

	token, err := a.issueToken(user)
	if err != nil {
		return err
	}
	if err := a.setUserSession(c, user.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, authResponse{Token: token, User: user})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *App) handleLogin(c echo.Context) error {
	ip := c.RealIP()
	if !a.loginLimiter.Check(ip) {
		return echo.NewHTTPError(http.StatusTooManyRequests, "too many login attempts, try again later")
	}
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	login := strings.TrimSpace(req.Username)
	if login == "" || req.Password == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}

	// Username lookup is case-insensitive; email works too. Only failed
	// attempts count toward the per-IP limit.
	user, err := a.store.GetUserByLogin(login)
	if err != nil {
		if err == ErrNotFound {
			a.loginLimiter.Record(ip)
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
		}
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		a.loginLimiter.Record(ip)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid credentials")
	}

	token, err := a.issueToken(user)
	if err != nil {
		return err
	}
	if err := a.setUserSession(c, user.ID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, authResponse{Token: token, User: user})
}

func (a *App) handleLogout(c echo.Context) error {
	// Bearer tokens expire on their own; only the cookie session is cleared.
	if err := a.clearUserSession(c); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (a *App) handleGetProfile(c echo.Context) error {
	user, _ := currentUser(c)
	return c.JSON(http.StatusOK, user)
}

type profileRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

func (a *App) handleUpdateProfile(c echo.Context) error {
	user, _ := currentUser(c)
	var req profileRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		email = user.Email
	}
	if !strings.Contains(email, "@") {
		return echo.NewHTTPError(http.StatusBadRequest, "email is invalid")
	}
	if err := a.store.UpdateUserProfile(user.ID, email, strings.TrimSpace(req.DisplayName)); err != nil {
		if isUniqueViolation(err) {
			return echo.NewHTTPError(http.StatusBadRequest, "email already in use")
		}
		return err
	}
	updated, err := a.store.GetUser(user.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

type passwordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (a *App) handleUpdatePassword(c echo.Context) error {
	user, _ := currentUser(c)
	var req passwordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)) != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "current password is incorrect")
	}
	if len(req.NewPassword) < minPasswordLength {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("new password must be at least %d characters", minPasswordLength))
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := a.store.UpdateUserPassword(user.ID, string(hash)); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
