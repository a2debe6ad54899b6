package harvestbook

import (
	"database/sql"
	"sort"
	"strings"
	"time"
)

const blogColumns = `id, event_id, user_id, title, content, tags, status, published_at, created_at, updated_at`

func scanBlogPost(row interface{ Scan(...any) error }) (BlogPost, error) {
	var p BlogPost
	var tags, created, updated string
	var published sql.NullString
	err := row.Scan(&p.ID, &p.EventID, &p.UserID, &p.Title, &p.Content, &tags, &p.Status, &published, &created, &updated)
	if err != nil {
		return BlogPost{}, err
	}
	p.Tags = parseTags(tags)
	p.CreatedAt = parseTime(created)
	p.UpdatedAt = parseTime(updated)
	if published.Valid {
		t := parseTime(published.String)
		p.PublishedAt = &t
	}
	return p, nil
}

// CreateBlogPost inserts a post. Publishing at creation stamps published_at;
// drafts leave it null.
func (s *Store) CreateBlogPost(p BlogPost) (BlogPost, error) {
	now := time.Now().UTC().Truncate(time.Second)
	p.CreatedAt = now
	p.UpdatedAt = now
	var published sql.NullString
	if p.Status == StatusPublished {
		p.PublishedAt = &now
		published = sql.NullString{String: now.Format(time.RFC3339), Valid: true}
	} else {
		p.PublishedAt = nil
	}
	res, err := s.db.Exec(`INSERT INTO blog_posts (event_id, user_id, title, content, tags, status, published_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.EventID, p.UserID, p.Title, p.Content, tagString(p.Tags), p.Status, published,
		now.Format(time.RFC3339), now.Format(time.RFC3339))
	if err != nil {
		return BlogPost{}, err
	}
	p.ID, err = res.LastInsertId()
	return p, err
}

// GetBlogPost returns a post by id regardless of status.
func (s *Store) GetBlogPost(id int64) (BlogPost, error) {
	return scanBlogPost(s.db.QueryRow(`SELECT `+blogColumns+` FROM blog_posts WHERE id = ?`, id))
}

// UpdateBlogPost rewrites a post and applies the lifecycle rule: a
// transition into published stamps published_at, a transition out clears it,
// and staying published keeps the original timestamp.
func (s *Store) UpdateBlogPost(p BlogPost) (BlogPost, error) {
	current, err := s.GetBlogPost(p.ID)
	if err != nil {
		return BlogPost{}, err
	}
	now := time.Now().UTC().Truncate(time.Second)
	var published sql.NullString
	switch {
	case p.Status == StatusPublished && current.PublishedAt != nil:
		published = sql.NullString{String: current.PublishedAt.Format(time.RFC3339), Valid: true}
		p.PublishedAt = current.PublishedAt
	case p.Status == StatusPublished:
		published = sql.NullString{String: now.Format(time.RFC3339), Valid: true}
		p.PublishedAt = &now
	default:
		p.PublishedAt = nil
	}
	err = s.execAffectingOne(`UPDATE blog_posts SET title = ?, content = ?, tags = ?, status = ?, published_at = ?, updated_at = ? WHERE id = ?`,
		p.Title, p.Content, tagString(p.Tags), p.Status, published, now.Format(time.RFC3339), p.ID)
	if err != nil {
		return BlogPost{}, err
	}
	p.EventID = current.EventID
	p.UserID = current.UserID
	p.CreatedAt = current.CreatedAt
	p.UpdatedAt = now
	return p, nil
}

// DeleteBlogPost removes a post.
func (s *Store) DeleteBlogPost(id int64) error {
	return s.execAffectingOne(`DELETE FROM blog_posts WHERE id = ?`, id)
}

// ListEventBlogPosts returns an event's posts newest first. When
// publishedOnly is set, drafts are excluded.
func (s *Store) ListEventBlogPosts(eventID int64, publishedOnly bool) ([]BlogPost, error) {
	query := `SELECT ` + blogColumns + ` FROM blog_posts WHERE event_id = ?`
	if publishedOnly {
		query += ` AND status = 'published'`
	}
	query += ` ORDER BY created_at DESC, id DESC`
	return s.queryBlogPosts(query, eventID)
}

// SearchBlogPosts returns published posts filtered by tag and/or a
// case-insensitive substring match over title and content.
func (s *Store) SearchBlogPosts(tag, q string) ([]BlogPost, error) {
	query := `SELECT ` + blogColumns + ` FROM blog_posts WHERE status = 'published'`
	var args []any
	if tag != "" {
		query += ` AND instr(lower(tags), ',' || ? || ',') > 0`
		args = append(args, strings.ToLower(strings.TrimSpace(tag)))
	}
	if q != "" {
		query += ` AND (instr(lower(title), ?) > 0 OR instr(lower(content), ?) > 0)`
		needle := strings.ToLower(strings.TrimSpace(q))
		args = append(args, needle, needle)
	}
	query += ` ORDER BY published_at DESC, id DESC`
	return s.queryBlogPosts(query, args...)
}

// GetBlogPostsByIDs bulk-fetches posts keyed by id, for journal hydration.
func (s *Store) GetBlogPostsByIDs(ids []int64) (map[int64]BlogPost, error) {
	out := make(map[int64]BlogPost, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args := inClause(`SELECT `+blogColumns+` FROM blog_posts WHERE id IN `, ids)
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanBlogPost(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// ListBlogTags returns a sorted, deduplicated slice of tags from published
// posts.
func (s *Store) ListBlogTags() ([]string, error) {
	rows, err := s.db.Query(`SELECT tags FROM blog_posts WHERE status = 'published'`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := make(map[string]struct{})
	for rows.Next() {
		var tags string
		if err := rows.Scan(&tags); err != nil {
			return nil, err
		}
		for _, t := range parseTags(tags) {
			set[strings.ToLower(t)] = struct{}{}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var result []string
	for t := range set {
		result = append(result, t)
	}
	sort.Strings(result)
	return result, nil
}

func (s *Store) queryBlogPosts(query string, args ...any) ([]BlogPost, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []BlogPost
	for rows.Next() {
		p, err := scanBlogPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// tagString encodes tags as a comma-delimited string (",go,web,") so tag
// filters can match whole tags with instr.
func tagString(tags []string) string {
	normalized := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			normalized = append(normalized, t)
		}
	}
	return "," + strings.Join(normalized, ",") + ","
}

// parseTags splits a comma-delimited tag string (e.g. ",go,web,") into a slice.
func parseTags(tagStr string) []string {
	tagStr = strings.Trim(tagStr, ",")
	if tagStr == "" {
		return nil
	}
	parts := strings.Split(tagStr, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
