// Package harvestbook is a family content-archive web application. It
// serves yearly Thanksgiving events with their menus, photos, recipes and
// blog posts, and a journal editor that composes them into ordered
// scrapbook pages. Built with Echo and SQLite; image bytes live in a
// signed-URL blob store.
package harvestbook

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/mkern/harvestbook/blob"
)

// App wires together the store, blob storage, cache, middleware and routes.
type App struct {
	cfg   Config
	echo  *echo.Echo
	store *Store
	blobs *blob.Store
	posts *postCache

	loginLimiter *loginLimiter
}

// New builds an App from a config. Start opens the database and listens.
func New(cfg Config) *App {
	cfg.setDefaults()
	return &App{
		cfg:  cfg,
		echo: echo.New(),
	}
}

// Start initializes storage, middleware and routes, then serves until the
// listener fails or the server is shut down.
func (a *App) Start() error {
	if a.cfg.TokenSecret == "" {
		return fmt.Errorf("harvestbook: TokenSecret is required")
	}
	if a.cfg.SessionSecret == "" {
		return fmt.Errorf("harvestbook: SessionSecret is required")
	}

	store, err := NewStore(a.cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("harvestbook: init store: %w", err)
	}
	a.store = store

	blobs, err := blob.New(a.cfg.BlobDir, []byte(a.cfg.TokenSecret))
	if err != nil {
		return fmt.Errorf("harvestbook: init blob store: %w", err)
	}
	a.blobs = blobs

	a.posts = newPostCache(store, a.cfg.PostCacheTTL)
	a.loginLimiter = newLoginLimiter(5, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()

	if err := a.echo.Start(a.cfg.Addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (a *App) setupRoutes() {
	e := a.echo

	// Public surface.
	e.GET("/media/:key", a.handleMedia)
	e.GET("/feed.xml", a.handleFeed)
	e.POST("/setup", a.handleSetup)

	e.POST("/auth/register", a.handleRegister)
	e.POST("/auth/login", a.handleLogin)
	e.POST("/auth/logout", a.handleLogout)

	api := e.Group("/api/v1")

	// Profile (self-service).
	api.GET("/profile", a.handleGetProfile, requireUser)
	api.PUT("/profile", a.handleUpdateProfile, requireUser)
	api.PUT("/profile/password", a.handleUpdatePassword, requireUser)

	// Admin user management.
	admin := api.Group("/admin", requireAdmin)
	admin.GET("/users", a.handleListUsers)
	admin.PUT("/users/:id/role", a.handleSetUserRole)
	admin.DELETE("/users/:id", a.handleDeleteUser)

	// Events: public reads, admin writes.
	api.GET("/events", a.handleListEvents)
	api.GET("/events/:id", a.handleGetEvent)
	api.POST("/events", a.handleCreateEvent, requireAdmin)
	api.PUT("/events/:id", a.handleUpdateEvent, requireAdmin)
	api.PUT("/events/:id/menu", a.handleSetMenuImage, requireAdmin)
	api.DELETE("/events/:id", a.handleDeleteEvent, requireAdmin)

	// Photos.
	api.GET("/events/:id/photos", a.handleListEventPhotos)
	api.POST("/events/:id/photos", a.handleUploadPhoto, requireUser)
	api.GET("/photos/:id", a.handleGetPhoto)
	api.PUT("/photos/:id", a.handleUpdatePhoto, requireUser)
	api.PUT("/photos/:id/type", a.handleSetPhotoType, requireUser)
	api.DELETE("/photos/:id", a.handleDeletePhoto, requireUser)

	// Recipes.
	api.GET("/events/:id/recipes", a.handleListEventRecipes)
	api.POST("/events/:id/recipes", a.handleCreateRecipe, requireUser)
	api.GET("/recipes/:id", a.handleGetRecipe)
	api.PUT("/recipes/:id", a.handleUpdateRecipe, requireUser)
	api.DELETE("/recipes/:id", a.handleDeleteRecipe, requireUser)

	// Blog.
	api.GET("/blog-posts", a.handleSearchBlogPosts)
	api.GET("/blog-posts/tags", a.handleListBlogTags)
	api.GET("/events/:id/blog-posts", a.handleListEventBlogPosts)
	api.POST("/events/:id/blog-posts", a.handleCreateBlogPost, requireUser)
	api.GET("/blog-posts/:id", a.handleGetBlogPost)
	api.PUT("/blog-posts/:id", a.handleUpdateBlogPost, requireUser)
	api.DELETE("/blog-posts/:id", a.handleDeleteBlogPost, requireUser)

	// Journal.
	api.GET("/journal/pages", a.handleListJournalPages)
	api.POST("/journal/pages", a.handleCreateJournalPage, requireUser)
	api.GET("/journal/pages/:id", a.handleGetJournalPage)
	api.PUT("/journal/pages/:id", a.handleUpdateJournalPage, requireUser)
	api.DELETE("/journal/pages/:id", a.handleDeleteJournalPage, requireUser)
	api.POST("/journal/pages/:id/items", a.handleCreateContentItem, requireUser)
	api.PUT("/journal/pages/:id/reorder", a.handleReorderContentItems, requireUser)
	api.PUT("/journal/items/:id", a.handleUpdateContentItem, requireUser)
	api.DELETE("/journal/items/:id", a.handleDeleteContentItem, requireUser)
	api.GET("/journal/available-content", a.handleAvailableContent, requireUser)
}

// Close cleans up resources. Call when the app is shutting down.
func (a *App) Close() error {
	if a.store != nil {
		return a.store.Close()
	}
	return nil
}
