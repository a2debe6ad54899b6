package harvestbook

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
)

type journalPageRequest struct {
	EventID      int64  `json:"event_id"`
	PageNumber   int    `json:"page_number"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	LayoutConfig string `json:"layout_config"`
	IsPublished  bool   `json:"is_published"`
}

func (a *App) handleListJournalPages(c echo.Context) error {
	year := 0
	if y := c.QueryParam("year"); y != "" {
		var err error
		year, err = strconv.Atoi(y)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "year must be an integer")
		}
	}
	_, authed := currentUser(c)
	pages, err := a.store.ListJournalPages(year, !authed)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, pages)
}

func (a *App) handleCreateJournalPage(c echo.Context) error {
	var req journalPageRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	event, err := a.store.GetEvent(req.EventID)
	if err != nil {
		if err == ErrNotFound {
			return echo.NewHTTPError(http.StatusBadRequest, "event_id does not exist")
		}
		return err
	}
	if req.PageNumber <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "page_number must be positive")
	}
	page, err := a.store.CreateJournalPage(JournalPage{
		EventID:      event.ID,
		Year:         event.Year,
		PageNumber:   req.PageNumber,
		Title:        req.Title,
		Description:  req.Description,
		LayoutConfig: req.LayoutConfig,
		IsPublished:  req.IsPublished,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return echo.NewHTTPError(http.StatusBadRequest, "page_number already used for that year")
		}
		return err
	}
	return c.JSON(http.StatusCreated, page)
}

// handleGetJournalPage returns a page with its content items hydrated in
// display order. Unpublished pages are visible to authenticated users only.
func (a *App) handleGetJournalPage(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	page, err := a.store.GetJournalPage(id)
	if err != nil {
		return err
	}
	if !page.IsPublished {
		if _, authed := currentUser(c); !authed {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
	}
	if err := a.hydrateItems(page.Items); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (a *App) handleUpdateJournalPage(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	page, err := a.store.GetJournalPage(id)
	if err != nil {
		return err
	}
	req := journalPageRequest{
		PageNumber:   page.PageNumber,
		Title:        page.Title,
		Description:  page.Description,
		LayoutConfig: page.LayoutConfig,
		IsPublished:  page.IsPublished,
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.PageNumber <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "page_number must be positive")
	}
	page.PageNumber = req.PageNumber
	page.Title = req.Title
	page.Description = req.Description
	page.LayoutConfig = req.LayoutConfig
	page.IsPublished = req.IsPublished
	if err := a.store.UpdateJournalPage(page); err != nil {
		if isUniqueViolation(err) {
			return echo.NewHTTPError(http.StatusBadRequest, "page_number already used for that year")
		}
		return err
	}
	return c.JSON(http.StatusOK, page)
}

func (a *App) handleDeleteJournalPage(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := a.store.DeleteJournalPage(id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type contentItemRequest struct {
	Type         ContentType `json:"content_type"`
	ContentID    *int64      `json:"content_id"`
	CustomText   string      `json:"custom_text"`
	HeadingLevel int         `json:"heading_level"`
	IsVisible    *bool       `json:"is_visible"`
	DisplayOrder int         `json:"display_order"`
}

func (r *contentItemRequest) validate() error {
	if !r.Type.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "content_type must be one of menu, photo, page_photo, blog, text, heading")
	}
	if r.Type == ContentHeading && (r.HeadingLevel < 1 || r.HeadingLevel > 4) {
		return echo.NewHTTPError(http.StatusBadRequest, "heading_level must be between 1 and 4")
	}
	if r.DisplayOrder < 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "display_order must not be negative")
	}
	return nil
}

func (a *App) handleCreateContentItem(c echo.Context) error {
	pageID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if _, err := a.store.GetJournalPage(pageID); err != nil {
		return err
	}
	var req contentItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}
	visible := true
	if req.IsVisible != nil {
		visible = *req.IsVisible
	}
	item, err := a.store.CreateContentItem(JournalContentItem{
		PageID:       pageID,
		Type:         req.Type,
		ContentID:    req.ContentID,
		CustomText:   req.CustomText,
		HeadingLevel: req.HeadingLevel,
		DisplayOrder: req.DisplayOrder,
		IsVisible:    visible,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return echo.NewHTTPError(http.StatusBadRequest, "display_order already used on this page")
		}
		return err // ErrMissingReference maps to 400 in the error handler
	}
	return c.JSON(http.StatusCreated, item)
}

func (a *App) handleUpdateContentItem(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	item, err := a.store.GetContentItem(id)
	if err != nil {
		return err
	}
	req := contentItemRequest{
		Type:         item.Type,
		ContentID:    item.ContentID,
		CustomText:   item.CustomText,
		HeadingLevel: item.HeadingLevel,
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}
	item.Type = req.Type
	item.ContentID = req.ContentID
	item.CustomText = req.CustomText
	item.HeadingLevel = req.HeadingLevel
	if req.IsVisible != nil {
		item.IsVisible = *req.IsVisible
	}
	if err := a.store.UpdateContentItem(item); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, item)
}

func (a *App) handleDeleteContentItem(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := a.store.DeleteContentItem(id); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

type reorderRequest struct {
	Items []ItemOrder `json:"items"`
}

// handleReorderContentItems applies a new display order to a page's items
// atomically; afterwards, reading the page yields exactly the submitted
// sequence.
func (a *App) handleReorderContentItems(c echo.Context) error {
	pageID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if _, err := a.store.GetJournalPage(pageID); err != nil {
		return err
	}
	var req reorderRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := a.store.ReorderContentItems(pageID, req.Items); err != nil {
		return err // ErrBadReorder maps to 400 in the error handler
	}
	items, err := a.store.ListContentItems(pageID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, items)
}

// hydrateItems resolves content references in bulk: one query per
// referenced type over the distinct content ids, never one per item.
// References whose target has been deleted are marked missing rather than
// failing the read. Image-bearing entities get fresh signed URLs.
func (a *App) hydrateItems(items []JournalContentItem) error {
	var eventIDs, photoIDs, postIDs []int64
	seen := map[refKind]map[int64]struct{}{
		refEvent: {}, refPhoto: {}, refBlogPost: {},
	}
	for _, it := range items {
		kind := it.Type.kind()
		if kind == refNone || it.ContentID == nil {
			continue
		}
		id := *it.ContentID
		if _, dup := seen[kind][id]; dup {
			continue
		}
		seen[kind][id] = struct{}{}
		switch kind {
		case refEvent:
			eventIDs = append(eventIDs, id)
		case refPhoto:
			photoIDs = append(photoIDs, id)
		case refBlogPost:
			postIDs = append(postIDs, id)
		}
	}

	events, err := a.store.GetEventsByIDs(eventIDs)
	if err != nil {
		return err
	}
	photos, err := a.store.GetPhotosByIDs(photoIDs)
	if err != nil {
		return err
	}
	posts, err := a.store.GetBlogPostsByIDs(postIDs)
	if err != nil {
		return err
	}

	for i := range items {
		it := &items[i]
		if it.Type.kind() == refNone {
			continue
		}
		if it.ContentID == nil {
			it.Missing = true
			continue
		}
		id := *it.ContentID
		switch it.Type.kind() {
		case refEvent:
			if e, ok := events[id]; ok {
				e = a.signEvent(e)
				it.Menu = &e
			} else {
				it.Missing = true
			}
		case refPhoto:
			if p, ok := photos[id]; ok {
				p = a.signPhoto(p)
				it.Photo = &p
			} else {
				it.Missing = true
			}
		case refBlogPost:
			if p, ok := posts[id]; ok {
				it.Post = &p
			} else {
				it.Missing = true
			}
		}
	}
	return nil
}

// availableContent is the journal editor's picker payload for one event.
type availableContent struct {
	Menu       *Event     `json:"menu,omitempty"`
	Photos     []Photo    `json:"photos"`
	PagePhotos []Photo    `json:"page_photos"`
	Posts      []BlogPost `json:"posts"`
}

// handleAvailableContent lists everything attachable to a journal page for
// one event: the menu, individual photos, scanned page photos, and
// published blog posts.
func (a *App) handleAvailableContent(c echo.Context) error {
	eventID, err := strconv.ParseInt(c.QueryParam("event_id"), 10, 64)
	if err != nil || eventID <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "event_id must be a positive integer")
	}
	event, err := a.store.GetEvent(eventID)
	if err != nil {
		return err
	}

	var out availableContent
	if event.MenuImageKey != "" {
		signed := a.signEvent(event)
		out.Menu = &signed
	}
	individuals, err := a.store.ListEventPhotos(eventID, PhotoIndividual)
	if err != nil {
		return err
	}
	pagePhotos, err := a.store.ListEventPhotos(eventID, PhotoPage)
	if err != nil {
		return err
	}
	for i := range individuals {
		individuals[i] = a.signPhoto(individuals[i])
	}
	for i := range pagePhotos {
		pagePhotos[i] = a.signPhoto(pagePhotos[i])
	}
	out.Photos = individuals
	out.PagePhotos = pagePhotos

	out.Posts, err = a.store.ListEventBlogPosts(eventID, true)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, out)
}
