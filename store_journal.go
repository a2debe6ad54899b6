package harvestbook

import (
	"errors"
	"fmt"
)

// Errors surfaced by journal writes. Handlers map them to 400 responses.
var (
	// ErrMissingReference means a content item's content_id did not
	// resolve in the type-appropriate table at write time.
	ErrMissingReference = errors.New("content reference does not exist")
	// ErrBadReorder means a reorder request named items outside the page
	// or contained duplicate ids or display orders.
	ErrBadReorder = errors.New("invalid reorder request")
)

const pageColumns = `id, event_id, year, page_number, title, description, layout_config, is_published`

func scanJournalPage(row interface{ Scan(...any) error }) (JournalPage, error) {
	var p JournalPage
	var published int
	err := row.Scan(&p.ID, &p.EventID, &p.Year, &p.PageNumber, &p.Title, &p.Description, &p.LayoutConfig, &published)
	if err != nil {
		return JournalPage{}, err
	}
	p.IsPublished = published == 1
	return p, nil
}

// CreateJournalPage inserts a page. (year, page_number) is unique.
func (s *Store) CreateJournalPage(p JournalPage) (JournalPage, error) {
	res, err := s.db.Exec(`INSERT INTO journal_pages (event_id, year, page_number, title, description, layout_config, is_published)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.EventID, p.Year, p.PageNumber, p.Title, p.Description, p.LayoutConfig, boolInt(p.IsPublished))
	if err != nil {
		return JournalPage{}, err
	}
	p.ID, err = res.LastInsertId()
	return p, err
}

// GetJournalPage returns a page with its content items ordered by
// display_order. Items are not hydrated here; see App.hydrateItems.
func (s *Store) GetJournalPage(id int64) (JournalPage, error) {
	p, err := scanJournalPage(s.db.QueryRow(`SELECT `+pageColumns+` FROM journal_pages WHERE id = ?`, id))
	if err != nil {
		return JournalPage{}, err
	}
	p.Items, err = s.ListContentItems(id)
	return p, err
}

// ListJournalPages returns pages (without items) ordered by year then page
// number. Zero year means all years; publishedOnly hides unpublished pages.
func (s *Store) ListJournalPages(year int, publishedOnly bool) ([]JournalPage, error) {
	query := `SELECT ` + pageColumns + ` FROM journal_pages WHERE 1=1`
	var args []any
	if year != 0 {
		query += ` AND year = ?`
		args = append(args, year)
	}
	if publishedOnly {
		query += ` AND is_published = 1`
	}
	query += ` ORDER BY year DESC, page_number`
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []JournalPage
	for rows.Next() {
		p, err := scanJournalPage(rows)
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}

// UpdateJournalPage rewrites the mutable fields of a page.
func (s *Store) UpdateJournalPage(p JournalPage) error {
	return s.execAffectingOne(`UPDATE journal_pages SET page_number = ?, title = ?, description = ?, layout_config = ?, is_published = ? WHERE id = ?`,
		p.PageNumber, p.Title, p.Description, p.LayoutConfig, boolInt(p.IsPublished), p.ID)
}

// DeleteJournalPage removes a page and, via cascade, its content items.
func (s *Store) DeleteJournalPage(id int64) error {
	return s.execAffectingOne(`DELETE FROM journal_pages WHERE id = ?`, id)
}

const itemColumns = `id, page_id, content_type, content_id, custom_text, heading_level, display_order, is_visible`

func scanContentItem(row interface{ Scan(...any) error }) (JournalContentItem, error) {
	var it JournalContentItem
	var visible int
	err := row.Scan(&it.ID, &it.PageID, &it.Type, &it.ContentID, &it.CustomText, &it.HeadingLevel, &it.DisplayOrder, &visible)
	if err != nil {
		return JournalContentItem{}, err
	}
	it.IsVisible = visible == 1
	return it, nil
}

// ListContentItems returns a page's items ordered by display_order.
func (s *Store) ListContentItems(pageID int64) ([]JournalContentItem, error) {
	rows, err := s.db.Query(`SELECT `+itemColumns+` FROM journal_content_items WHERE page_id = ? ORDER BY display_order, id`, pageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []JournalContentItem
	for rows.Next() {
		it, err := scanContentItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// GetContentItem returns a single content item by id.
func (s *Store) GetContentItem(id int64) (JournalContentItem, error) {
	return scanContentItem(s.db.QueryRow(`SELECT `+itemColumns+` FROM journal_content_items WHERE id = ?`, id))
}

// CreateContentItem inserts an item after verifying that its content_id
// resolves in the type-appropriate table. The check runs at write time;
// the reference is not a database foreign key. An explicit display_order
// colliding with an existing item on the page fails the UNIQUE constraint.
func (s *Store) CreateContentItem(it JournalContentItem) (JournalContentItem, error) {
	if err := s.checkReference(it.Type, it.ContentID); err != nil {
		return JournalContentItem{}, err
	}
	if it.DisplayOrder == 0 {
		// Append at the end of the page.
		var next int
		if err := s.db.QueryRow(`SELECT COALESCE(MAX(display_order), 0) + 1 FROM journal_content_items WHERE page_id = ?`, it.PageID).Scan(&next); err != nil {
			return JournalContentItem{}, err
		}
		it.DisplayOrder = next
	}
	res, err := s.db.Exec(`INSERT INTO journal_content_items (page_id, content_type, content_id, custom_text, heading_level, display_order, is_visible)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		it.PageID, it.Type, it.ContentID, it.CustomText, it.HeadingLevel, it.DisplayOrder, boolInt(it.IsVisible))
	if err != nil {
		return JournalContentItem{}, err
	}
	it.ID, err = res.LastInsertId()
	return it, err
}

// UpdateContentItem rewrites an item, re-verifying the reference when type
// or content id change.
func (s *Store) UpdateContentItem(it JournalContentItem) error {
	if err := s.checkReference(it.Type, it.ContentID); err != nil {
		return err
	}
	return s.execAffectingOne(`UPDATE journal_content_items SET content_type = ?, content_id = ?, custom_text = ?, heading_level = ?, is_visible = ? WHERE id = ?`,
		it.Type, it.ContentID, it.CustomText, it.HeadingLevel, boolInt(it.IsVisible), it.ID)
}

// DeleteContentItem removes an item.
func (s *Store) DeleteContentItem(id int64) error {
	return s.execAffectingOne(`DELETE FROM journal_content_items WHERE id = ?`, id)
}

// checkReference verifies at write time that content_id exists in the table
// the content type resolves against. Inline types must not carry an id.
func (s *Store) checkReference(t ContentType, contentID *int64) error {
	kind := t.kind()
	if kind == refNone {
		if contentID != nil {
			return fmt.Errorf("%w: %s items carry no content id", ErrMissingReference, t)
		}
		return nil
	}
	if contentID == nil {
		return fmt.Errorf("%w: %s items require a content id", ErrMissingReference, t)
	}
	var table string
	switch kind {
	case refEvent:
		table = "events"
	case refPhoto:
		table = "photos"
	case refBlogPost:
		table = "blog_posts"
	}
	var one int
	err := s.db.QueryRow(`SELECT 1 FROM `+table+` WHERE id = ?`, *contentID).Scan(&one)
	if err == ErrNotFound {
		return fmt.Errorf("%w: %s %d", ErrMissingReference, t, *contentID)
	}
	return err
}

// ReorderContentItems applies a full set of display_order assignments to a
// page in one transaction: either every item moves or none does. The request
// must cover every item on the page, so an unmoved item can never be left
// holding an order the request assigns elsewhere. It is rejected when an id
// does not belong to the page, when an item is left out, or when ids or
// orders repeat.
func (s *Store) ReorderContentItems(pageID int64, orders []ItemOrder) error {
	if len(orders) == 0 {
		return fmt.Errorf("%w: empty order list", ErrBadReorder)
	}
	seenIDs := make(map[int64]struct{}, len(orders))
	seenOrders := make(map[int]struct{}, len(orders))
	for _, o := range orders {
		if o.DisplayOrder <= 0 {
			return fmt.Errorf("%w: display order %d must be positive", ErrBadReorder, o.DisplayOrder)
		}
		if _, dup := seenIDs[o.ItemID]; dup {
			return fmt.Errorf("%w: duplicate item %d", ErrBadReorder, o.ItemID)
		}
		if _, dup := seenOrders[o.DisplayOrder]; dup {
			return fmt.Errorf("%w: duplicate display order %d", ErrBadReorder, o.DisplayOrder)
		}
		seenIDs[o.ItemID] = struct{}{}
		seenOrders[o.DisplayOrder] = struct{}{}
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rows, err := tx.Query(`SELECT id FROM journal_content_items WHERE page_id = ?`, pageID)
	if err != nil {
		return err
	}
	pageItems := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		pageItems[id] = struct{}{}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}
	for id := range seenIDs {
		if _, ok := pageItems[id]; !ok {
			return fmt.Errorf("%w: item %d is not on page %d", ErrBadReorder, id, pageID)
		}
	}
	for id := range pageItems {
		if _, ok := seenIDs[id]; !ok {
			return fmt.Errorf("%w: item %d on page %d is missing from the order list", ErrBadReorder, id, pageID)
		}
	}

	// Park every item on a negative order first so swaps never collide
	// with a not-yet-moved row under the (page_id, display_order) UNIQUE
	// constraint.
	if _, err := tx.Exec(`UPDATE journal_content_items SET display_order = -display_order WHERE page_id = ?`, pageID); err != nil {
		return err
	}
	for _, o := range orders {
		if _, err := tx.Exec(`UPDATE journal_content_items SET display_order = ? WHERE id = ? AND page_id = ?`,
			o.DisplayOrder, o.ItemID, pageID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
