package harvestbook

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// canEditPost reports whether user may modify or see drafts of post.
func canEditPost(user User, post BlogPost) bool {
	if user.Role == RoleAdmin {
		return true
	}
	return post.UserID != nil && *post.UserID == user.ID
}

func (a *App) handleListEventBlogPosts(c echo.Context) error {
	eventID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if _, err := a.store.GetEvent(eventID); err != nil {
		return err
	}
	posts, err := a.store.ListEventBlogPosts(eventID, false)
	if err != nil {
		return err
	}
	// Drafts are visible only to their author and to admins.
	user, authed := currentUser(c)
	visible := posts[:0]
	for _, p := range posts {
		if p.Status == StatusPublished || (authed && canEditPost(user, p)) {
			visible = append(visible, p)
		}
	}
	return c.JSON(http.StatusOK, visible)
}

type blogPostRequest struct {
	Title   string     `json:"title"`
	Content string     `json:"content"`
	Tags    []string   `json:"tags"`
	Status  PostStatus `json:"status"`
}

func (r *blogPostRequest) validate() error {
	if r.Title == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "title is required")
	}
	if r.Status == "" {
		r.Status = StatusDraft
	}
	if !r.Status.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "status must be draft or published")
	}
	return nil
}

func (a *App) handleCreateBlogPost(c echo.Context) error {
	eventID, err := parseID(c, "id")
	if err != nil {
		return err
	}
	user, _ := currentUser(c)
	var req blogPostRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}
	post, err := a.store.CreateBlogPost(BlogPost{
		EventID: eventID,
		UserID:  &user.ID,
		Title:   req.Title,
		Content: req.Content,
		Tags:    req.Tags,
		Status:  req.Status,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			return echo.NewHTTPError(http.StatusNotFound, "event not found")
		}
		return err
	}
	a.posts.Invalidate()
	return c.JSON(http.StatusCreated, post)
}

func (a *App) handleGetBlogPost(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	post, err := a.store.GetBlogPost(id)
	if err != nil {
		return err
	}
	if post.Status != StatusPublished {
		user, authed := currentUser(c)
		if !authed || !canEditPost(user, post) {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
	}
	return c.JSON(http.StatusOK, post)
}

func (a *App) handleUpdateBlogPost(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	user, _ := currentUser(c)
	post, err := a.store.GetBlogPost(id)
	if err != nil {
		return err
	}
	if !canEditPost(user, post) {
		return echo.NewHTTPError(http.StatusForbidden, "not your post")
	}
	req := blogPostRequest{Title: post.Title, Content: post.Content, Tags: post.Tags, Status: post.Status}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if err := req.validate(); err != nil {
		return err
	}
	post.Title = req.Title
	post.Content = req.Content
	post.Tags = req.Tags
	post.Status = req.Status
	updated, err := a.store.UpdateBlogPost(post)
	if err != nil {
		return err
	}
	a.posts.Invalidate()
	return c.JSON(http.StatusOK, updated)
}

func (a *App) handleDeleteBlogPost(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	user, _ := currentUser(c)
	post, err := a.store.GetBlogPost(id)
	if err != nil {
		return err
	}
	if !canEditPost(user, post) {
		return echo.NewHTTPError(http.StatusForbidden, "not your post")
	}
	if err := a.store.DeleteBlogPost(id); err != nil {
		return err
	}
	a.posts.Invalidate()
	return c.NoContent(http.StatusNoContent)
}

// handleSearchBlogPosts lists published posts across events, filtered by
// tag and/or full-text query. Tag-only listings come from the cache; a text
// query always hits the store.
func (a *App) handleSearchBlogPosts(c echo.Context) error {
	tag := c.QueryParam("tag")
	q := c.QueryParam("q")
	var (
		posts []BlogPost
		err   error
	)
	if q == "" {
		posts, err = a.posts.ListPublished(tag)
	} else {
		posts, err = a.store.SearchBlogPosts(tag, q)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, posts)
}

func (a *App) handleListBlogTags(c echo.Context) error {
	tags, err := a.posts.ListTags()
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tags)
}
