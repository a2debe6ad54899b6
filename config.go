package harvestbook

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all configuration for a harvestbook site.
type Config struct {
	SiteName string `env:"HARVESTBOOK_SITE_NAME"` // feed title (default "Harvestbook")
	SiteURL  string `env:"HARVESTBOOK_SITE_URL"`  // canonical URL, no trailing slash
	Addr     string `env:"HARVESTBOOK_ADDR"`      // listen address (default ":3000")

	DatabasePath string `env:"HARVESTBOOK_DATABASE_PATH"` // SQLite path (default "data/harvestbook.db")
	BlobDir      string `env:"HARVESTBOOK_BLOB_DIR"`      // image object store (default "data/blobs")

	TokenSecret   string `env:"HARVESTBOOK_TOKEN_SECRET"`   // required: JWT + signed media URLs
	SessionSecret string `env:"HARVESTBOOK_SESSION_SECRET"` // required: cookie session encryption
	SetupKey      string `env:"HARVESTBOOK_SETUP_KEY"`      // gates POST /setup; empty disables it
	CookieSecure  bool   `env:"HARVESTBOOK_COOKIE_SECURE"`  // set true behind HTTPS

	TokenTTL     time.Duration `env:"HARVESTBOOK_TOKEN_TTL"`      // bearer token lifetime (default 24h)
	MediaURLTTL  time.Duration `env:"HARVESTBOOK_MEDIA_URL_TTL"`  // signed URL lifetime (default 15m)
	PostCacheTTL time.Duration `env:"HARVESTBOOK_POST_CACHE_TTL"` // published-post cache TTL (default 5m)

	MaxUploadBytes int64 `env:"HARVESTBOOK_MAX_UPLOAD_BYTES"` // per-file ceiling (default 10MB)
}

// LoadConfig reads configuration from environment variables and applies
// defaults. Required secrets are validated in App.Start, not here, so tests
// can build configs by hand.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.setDefaults()
	return cfg, nil
}

func (c *Config) setDefaults() {
	if c.SiteName == "" {
		c.SiteName = "Harvestbook"
	}
	if c.SiteURL == "" {
		c.SiteURL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/harvestbook.db"
	}
	if c.BlobDir == "" {
		c.BlobDir = "data/blobs"
	}
	if c.TokenTTL == 0 {
		c.TokenTTL = 24 * time.Hour
	}
	if c.MediaURLTTL == 0 {
		c.MediaURLTTL = 15 * time.Minute
	}
	if c.PostCacheTTL == 0 {
		c.PostCacheTTL = 5 * time.Minute
	}
	if c.MaxUploadBytes == 0 {
		c.MaxUploadBytes = 10 << 20
	}
}
