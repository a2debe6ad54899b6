package harvestbook

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

// parseID reads a positive integer path parameter.
func parseID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, name+" must be a positive integer")
	}
	return id, nil
}

// signEvent attaches a fresh signed menu URL. Signed URLs are generated per
// read and never stored.
func (a *App) signEvent(e Event) Event {
	if e.MenuImageKey != "" {
		e.MenuImageURL = a.blobs.SignedURL(a.cfg.SiteURL, e.MenuImageKey, a.cfg.MediaURLTTL)
	}
	return e
}

func (a *App) handleListEvents(c echo.Context) error {
	events, err := a.store.ListEvents()
	if err != nil {
		return err
	}
	for i := range events {
		events[i] = a.signEvent(events[i])
	}
	return c.JSON(http.StatusOK, events)
}

func (a *App) handleGetEvent(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	event, err := a.store.GetEvent(id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, a.signEvent(event))
}

type eventRequest struct {
	Year        int    `json:"year"`
	Title       string `json:"title"`
	EventDate   string `json:"event_date"`
	Description string `json:"description"`
}

func (r *eventRequest) validate() error {
	if r.Year < 1900 || r.Year > 2200 {
		return echo.NewHTTPError(http.StatusBadRequest, "year is out of range")
	}
	if r.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}
	if _, err := time.Parse("2006-01-02", r.EventDate); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "event_date must be YYYY-MM-DD")
	}
	return nil
}

func (a *App) handleCreateEvent(c echo.Context) error {
	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}
	event, err := a.store.CreateEvent(Event{
		Year:        req.Year,
		Title:       req.Title,
		EventDate:   req.EventDate,
		Description: req.Description,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return echo.NewHTTPError(http.StatusBadRequest, "an event for that year already exists")
		}
		return err
	}
	return c.JSON(http.StatusCreated, event)
}

func (a *App) handleUpdateEvent(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	event, err := a.store.GetEvent(id)
	if err != nil {
		return err
	}
	var req eventRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}
	event.Year = req.Year
	event.Title = req.Title
	event.EventDate = req.EventDate
	event.Description = req.Description
	if err := a.store.UpdateEvent(event); err != nil {
		if isUniqueViolation(err) {
			return echo.NewHTTPError(http.StatusBadRequest, "an event for that year already exists")
		}
		return err
	}
	return c.JSON(http.StatusOK, a.signEvent(event))
}

// handleSetMenuImage uploads the event's menu image through the image
// pipeline into the blob store, replacing any previous menu object.
func (a *App) handleSetMenuImage(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	event, err := a.store.GetEvent(id)
	if err != nil {
		return err
	}
	file, err := c.FormFile("image")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "image file is required")
	}
	if file.Size > a.cfg.MaxUploadBytes {
		return echo.NewHTTPError(http.StatusBadRequest, "image file is too large")
	}
	src, err := file.Open()
	if err != nil {
		return err
	}
	defer src.Close()

	_, _, data, err := processImage(src)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "image could not be decoded")
	}
	key, err := a.blobs.Put(data, ".jpg")
	if err != nil {
		return err
	}
	oldKey := event.MenuImageKey
	event.MenuImageKey = key
	if err := a.store.UpdateEvent(event); err != nil {
		return err
	}
	if oldKey != "" {
		if err := a.blobs.Delete(oldKey); err != nil {
			c.Logger().Warnf("delete old menu image %s: %v", oldKey, err)
		}
	}
	return c.JSON(http.StatusOK, a.signEvent(event))
}

// handleDeleteEvent removes an event; photos, recipes, blog posts and
// journal pages cascade at the database level. Blob cleanup is best-effort
// and never blocks the delete.
func (a *App) handleDeleteEvent(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	keys, err := a.store.EventObjectKeys(id)
	if err != nil {
		return err
	}
	if err := a.store.DeleteEvent(id); err != nil {
		return err
	}
	for _, key := range keys {
		if err := a.blobs.Delete(key); err != nil {
			c.Logger().Warnf("delete blob %s for event %d: %v", key, id, err)
		}
	}
	a.posts.Invalidate()
	return c.NoContent(http.StatusNoContent)
}
