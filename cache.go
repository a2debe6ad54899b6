package harvestbook

import (
	"strings"
	"sync"
	"time"
)

// postCache is an in-memory cache of published blog posts and tags with a
// TTL. It backs the feed and the tag-filtered listing; full-text search
// always goes to the store.
type postCache struct {
	mu      sync.RWMutex
	posts   []BlogPost
	tags    []string
	fetched time.Time
	ttl     time.Duration
	store   *Store
}

func newPostCache(s *Store, ttl time.Duration) *postCache {
	return &postCache{store: s, ttl: ttl}
}

func (c *postCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *postCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.tags = nil
	c.mu.Unlock()
}

func (c *postCache) load() error {
	if c.valid() {
		return nil
	}
	posts, err := c.store.SearchBlogPosts("", "")
	if err != nil {
		return err
	}
	tags, err := c.store.ListBlogTags()
	if err != nil {
		return err
	}
	c.posts = posts
	c.tags = tags
	c.fetched = time.Now()
	return nil
}

// ensureLoaded returns cached posts and tags after ensuring the cache is
// fresh. Read lock first; write lock only when a reload is needed.
func (c *postCache) ensureLoaded() ([]BlogPost, []string, error) {
	c.mu.RLock()
	if c.valid() {
		posts, tags := c.posts, c.tags
		c.mu.RUnlock()
		return posts, tags, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.load(); err != nil {
		return nil, nil, err
	}
	return c.posts, c.tags, nil
}

// ListPublished returns published posts, optionally filtered by tag.
func (c *postCache) ListPublished(tag string) ([]BlogPost, error) {
	posts, _, err := c.ensureLoaded()
	if err != nil {
		return nil, err
	}
	if tag == "" {
		return posts, nil
	}
	var filtered []BlogPost
	for _, p := range posts {
		for _, t := range p.Tags {
			if t == normalizeTag(tag) {
				filtered = append(filtered, p)
				break
			}
		}
	}
	return filtered, nil
}

// ListTags returns all unique tags from published posts.
func (c *postCache) ListTags() ([]string, error) {
	_, tags, err := c.ensureLoaded()
	return tags, err
}

func normalizeTag(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}
