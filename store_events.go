package harvestbook

const eventColumns = `id, year, title, event_date, description, menu_image_key`

func scanEvent(row interface{ Scan(...any) error }) (Event, error) {
	var e Event
	err := row.Scan(&e.ID, &e.Year, &e.Title, &e.EventDate, &e.Description, &e.MenuImageKey)
	return e, err
}

// CreateEvent inserts an event. The UNIQUE constraint on year enforces one
// event per year.
func (s *Store) CreateEvent(e Event) (Event, error) {
	res, err := s.db.Exec(`INSERT INTO events (year, title, event_date, description, menu_image_key) VALUES (?, ?, ?, ?, ?)`,
		e.Year, e.Title, e.EventDate, e.Description, e.MenuImageKey)
	if err != nil {
		return Event{}, err
	}
	e.ID, err = res.LastInsertId()
	return e, err
}

// GetEvent returns an event by id.
func (s *Store) GetEvent(id int64) (Event, error) {
	return scanEvent(s.db.QueryRow(`SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
}

// ListEvents returns all events ordered by year descending.
func (s *Store) ListEvents() ([]Event, error) {
	rows, err := s.db.Query(`SELECT ` + eventColumns + ` FROM events ORDER BY year DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// GetEventsByIDs bulk-fetches events keyed by id, for journal hydration.
func (s *Store) GetEventsByIDs(ids []int64) (map[int64]Event, error) {
	out := make(map[int64]Event, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args := inClause(`SELECT `+eventColumns+` FROM events WHERE id IN `, ids)
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out[e.ID] = e
	}
	return out, rows.Err()
}

// UpdateEvent rewrites the mutable fields of an event.
func (s *Store) UpdateEvent(e Event) error {
	return s.execAffectingOne(`UPDATE events SET year = ?, title = ?, event_date = ?, description = ?, menu_image_key = ? WHERE id = ?`,
		e.Year, e.Title, e.EventDate, e.Description, e.MenuImageKey, e.ID)
}

// DeleteEvent removes an event. Photos, recipes, blog posts and journal
// pages (with their content items) go with it via ON DELETE CASCADE.
// Polymorphic journal references into the deleted rows are tolerated and
// hydrate as missing.
func (s *Store) DeleteEvent(id int64) error {
	return s.execAffectingOne(`DELETE FROM events WHERE id = ?`, id)
}

// EventObjectKeys returns every blob key owned by the event (menu image
// plus photo objects), for best-effort cleanup before deletion.
func (s *Store) EventObjectKeys(id int64) ([]string, error) {
	var keys []string
	var menuKey string
	if err := s.db.QueryRow(`SELECT menu_image_key FROM events WHERE id = ?`, id).Scan(&menuKey); err != nil {
		return nil, err
	}
	if menuKey != "" {
		keys = append(keys, menuKey)
	}
	rows, err := s.db.Query(`SELECT object_key FROM photos WHERE event_id = ?`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		if k != "" {
			keys = append(keys, k)
		}
	}
	return keys, rows.Err()
}

// inClause builds an "IN (?, ?, ...)" suffix and its argument slice.
func inClause(prefix string, ids []int64) (string, []any) {
	args := make([]any, len(ids))
	placeholders := make([]byte, 0, 2*len(ids)+1)
	placeholders = append(placeholders, '(')
	for i, id := range ids {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
		args[i] = id
	}
	placeholders = append(placeholders, ')')
	return prefix + string(placeholders), args
}
