package harvestbook

import "time"

// Role names stored on a user row.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an account in the family archive. PasswordHash never leaves the
// server; the json tag keeps it out of API responses.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	DisplayName  string    `json:"display_name,omitempty"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Event is a yearly occasion (one per year) anchoring menus, photos,
// recipes, blog posts and journal pages.
type Event struct {
	ID           int64  `json:"id"`
	Year         int    `json:"year"`
	Title        string `json:"title"`
	EventDate    string `json:"event_date"` // YYYY-MM-DD
	Description  string `json:"description,omitempty"`
	MenuImageKey string `json:"-"`
	MenuImageURL string `json:"menu_image_url,omitempty"` // signed, per-read
}

// PhotoType classifies a photo for the journal editor's pickers.
type PhotoType string

const (
	PhotoIndividual PhotoType = "individual"
	PhotoPage       PhotoType = "page"
)

// Valid reports whether t is one of the two accepted photo types.
func (t PhotoType) Valid() bool {
	return t == PhotoIndividual || t == PhotoPage
}

// Photo belongs to exactly one event. Bytes live in the blob store under
// ObjectKey; URL carries a short-lived signed link on reads.
type Photo struct {
	ID         int64     `json:"id"`
	EventID    int64     `json:"event_id"`
	Filename   string    `json:"filename"`
	Caption    string    `json:"caption,omitempty"`
	Type       PhotoType `json:"photo_type"`
	ObjectKey  string    `json:"-"`
	Width      int       `json:"width"`
	Height     int       `json:"height"`
	Size       int       `json:"size"`
	UploadedBy *int64    `json:"uploaded_by,omitempty"`
	URL        string    `json:"url,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Recipe is a dish record tied to an event.
type Recipe struct {
	ID            int64     `json:"id"`
	EventID       int64     `json:"event_id"`
	Title         string    `json:"title"`
	Ingredients   string    `json:"ingredients"`
	Instructions  string    `json:"instructions"`
	ContributedBy string    `json:"contributed_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// PostStatus is the blog post lifecycle state.
type PostStatus string

const (
	StatusDraft     PostStatus = "draft"
	StatusPublished PostStatus = "published"
)

// Valid reports whether s is a known post status.
func (s PostStatus) Valid() bool {
	return s == StatusDraft || s == StatusPublished
}

// BlogPost belongs to one event and one authoring user. UserID is nil once
// the author's account is deleted; the post itself survives.
// PublishedAt is non-nil exactly when Status is published.
type BlogPost struct {
	ID          int64      `json:"id"`
	EventID     int64      `json:"event_id"`
	UserID      *int64     `json:"user_id,omitempty"`
	Title       string     `json:"title"`
	Content     string     `json:"content"`
	Tags        []string   `json:"tags"`
	Status      PostStatus `json:"status"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ContentType tags a journal content item. Reference types point into
// another table; text and heading carry inline content only.
type ContentType string

const (
	ContentMenu      ContentType = "menu"       // references an event's menu
	ContentPhoto     ContentType = "photo"      // references an individual photo
	ContentPagePhoto ContentType = "page_photo" // references a scanned page photo
	ContentBlog      ContentType = "blog"       // references a blog post
	ContentText      ContentType = "text"       // inline custom text
	ContentHeading   ContentType = "heading"    // inline heading with a level
)

// refKind names the table a content type resolves against.
type refKind int

const (
	refNone refKind = iota
	refEvent
	refPhoto
	refBlogPost
)

// kind maps a content type to its reference target. Unknown types map to
// refNone and fail Valid.
func (t ContentType) kind() refKind {
	switch t {
	case ContentMenu:
		return refEvent
	case ContentPhoto, ContentPagePhoto:
		return refPhoto
	case ContentBlog:
		return refBlogPost
	default:
		return refNone
	}
}

// Valid reports whether t is one of the six accepted content types.
func (t ContentType) Valid() bool {
	switch t {
	case ContentMenu, ContentPhoto, ContentPagePhoto, ContentBlog, ContentText, ContentHeading:
		return true
	}
	return false
}

// NeedsReference reports whether items of this type must carry a content id.
func (t ContentType) NeedsReference() bool {
	return t.kind() != refNone
}

// JournalPage is one scrapbook page of a year's journal.
type JournalPage struct {
	ID           int64                `json:"id"`
	EventID      int64                `json:"event_id"`
	Year         int                  `json:"year"`
	PageNumber   int                  `json:"page_number"`
	Title        string               `json:"title"`
	Description  string               `json:"description,omitempty"`
	LayoutConfig string               `json:"layout_config,omitempty"`
	IsPublished  bool                 `json:"is_published"`
	Items        []JournalContentItem `json:"items,omitempty"`
}

// JournalContentItem is one ordered slot on a journal page. ContentID is
// set for reference types and nil for text/heading. The hydrated fields
// (Menu, Photo, Post) are filled on reads; Missing marks a reference whose
// target entity has since been deleted.
type JournalContentItem struct {
	ID           int64       `json:"id"`
	PageID       int64       `json:"page_id"`
	Type         ContentType `json:"content_type"`
	ContentID    *int64      `json:"content_id,omitempty"`
	CustomText   string      `json:"custom_text,omitempty"`
	HeadingLevel int         `json:"heading_level,omitempty"`
	DisplayOrder int         `json:"display_order"`
	IsVisible    bool        `json:"is_visible"`

	Menu    *Event    `json:"menu,omitempty"`
	Photo   *Photo    `json:"photo,omitempty"`
	Post    *BlogPost `json:"post,omitempty"`
	Missing bool      `json:"missing,omitempty"`
}

// ItemOrder is one entry of a reorder request.
type ItemOrder struct {
	ItemID       int64 `json:"item_id"`
	DisplayOrder int   `json:"display_order"`
}
