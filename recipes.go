package harvestbook

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type recipeRequest struct {
	Title         string `json:"title"`
	Ingredients   string `json:"ingredients"`
	Instructions  string `json:"instructions"`
	ContributedBy string `json:"contributed_by"`
}

func (a *App) handleListEventRecipes(c echo.Context) error {
	eventID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if _, err := a.store.GetEvent(eventID); err != nil {
		return err
	}
	recipes, err := a.store.ListEventRecipes(eventID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, recipes)
}

func (a *App) handleCreateRecipe(c echo.Context) error {
	eventID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req recipeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}
	recipe, err := a.store.CreateRecipe(Recipe{
		EventID:       eventID,
		Title:         req.Title,
		Ingredients:   req.Ingredients,
		Instructions:  req.Instructions,
		ContributedBy: req.ContributedBy,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return echo.NewHTTPError(http.StatusNotFound, "event not found")
		}
		return err
	}
	return c.JSON(http.StatusCreated, recipe)
}

func (a *App) handleGetRecipe(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	recipe, err := a.store.GetRecipe(id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, recipe)
}

func (a *App) handleUpdateRecipe(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	recipe, err := a.store.GetRecipe(id)
	if err != nil {
		return err
	}
	req := recipeRequest{
		Title:         recipe.Title,
		Ingredients:   recipe.Ingredients,
		Instructions:  recipe.Instructions,
		ContributedBy: recipe.ContributedBy,
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}
	recipe.Title = req.Title
	recipe.Ingredients = req.Ingredients
	recipe.Instructions = req.Instructions
	recipe.ContributedBy = req.ContributedBy
	if err := a.store.UpdateRecipe(recipe); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, recipe)
}

func (a *App) handleDeleteRecipe(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := a.store.DeleteRecipe(id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
