package harvestbook

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

type setupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleSetup is the one-off provisioning endpoint, gated by the
// x-setup-key header. It is idempotent: the schema already exists after
// NewStore, and an existing account is promoted instead of duplicated.
func (a *App) handleSetup(c echo.Context) error {
	if a.cfg.SetupKey == "" {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	key := c.Request().Header.Get("x-setup-key")
	if subtle.ConstantTimeCompare([]byte(key), []byte(a.cfg.SetupKey)) != 1 {
		return echo.NewHTTPError(http.StatusForbidden, "invalid setup key")
	}

	var req setupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" || !strings.Contains(req.Email, "@") || len(req.Password) < minPasswordLength {
		return echo.NewHTTPError(http.StatusBadRequest, "username, email and a password of at least 6 characters are required")
	}

	if existing, err := a.store.GetUserByLogin(req.Username); err == nil {
		if existing.Role != RoleAdmin {
			if err := a.store.UpdateUserRole(existing.ID, RoleAdmin); err != nil {
				return err
			}
			existing.Role = RoleAdmin
		}
		return c.JSON(http.StatusOK, existing)
	} else if err != ErrNotFound {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	admin, err := a.store.CreateUser(User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         RoleAdmin,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return echo.NewHTTPError(http.StatusBadRequest, "email already in use")
		}
		return err
	}
	return c.JSON(http.StatusCreated, admin)
}
