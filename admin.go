package harvestbook

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

func (a *App) handleListUsers(c echo.Context) error {
	users, err := a.store.ListUsers()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

type roleRequest struct {
	Role string `json:"role"`
}

// handleSetUserRole changes an account's role. Admins may not change their
// own role; the rejection happens before any write, so storage is untouched.
func (a *App) handleSetUserRole(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	admin, _ := currentUser(c)
	if id == admin.ID {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot change your own role")
	}
	var req roleRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Role != RoleUser && req.Role != RoleAdmin {
		return echo.NewHTTPError(http.StatusBadRequest, "role must be user or admin")
	}
	if err := a.store.UpdateUserRole(id, req.Role); err != nil {
		return err
	}
	user, err := a.store.GetUser(id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, user)
}

// handleDeleteUser removes an account. Content the user authored stays,
// with its user reference set null. Self-deletion is rejected.
func (a *App) handleDeleteUser(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	admin, _ := currentUser(c)
	if id == admin.ID {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot delete your own account")
	}
	if err := a.store.DeleteUser(id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
