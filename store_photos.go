package harvestbook

import "time"

const photoColumns = `id, event_id, filename, caption, photo_type, object_key, width, height, size, uploaded_by, created_at`

func scanPhoto(row interface{ Scan(...any) error }) (Photo, error) {
	var p Photo
	var created string
	err := row.Scan(&p.ID, &p.EventID, &p.Filename, &p.Caption, &p.Type, &p.ObjectKey,
		&p.Width, &p.Height, &p.Size, &p.UploadedBy, &created)
	if err != nil {
		return Photo{}, err
	}
	p.CreatedAt = parseTime(created)
	return p, nil
}

// CreatePhoto inserts a photo row. A nonexistent event id surfaces as a
// foreign key constraint error, never a silent success.
func (s *Store) CreatePhoto(p Photo) (Photo, error) {
	p.CreatedAt = time.Now().UTC().Truncate(time.Second)
	res, err := s.db.Exec(`INSERT INTO photos (event_id, filename, caption, photo_type, object_key, width, height, size, uploaded_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.EventID, p.Filename, p.Caption, p.Type, p.ObjectKey, p.Width, p.Height, p.Size, p.UploadedBy, p.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return Photo{}, err
	}
	p.ID, err = res.LastInsertId()
	return p, err
}

// GetPhoto returns a photo by id.
func (s *Store) GetPhoto(id int64) (Photo, error) {
	return scanPhoto(s.db.QueryRow(`SELECT `+photoColumns+` FROM photos WHERE id = ?`, id))
}

// ListEventPhotos returns an event's photos, optionally filtered by type,
// in upload order.
func (s *Store) ListEventPhotos(eventID int64, photoType PhotoType) ([]Photo, error) {
	query := `SELECT ` + photoColumns + ` FROM photos WHERE event_id = ?`
	args := []any{eventID}
	if photoType != "" {
		query += ` AND photo_type = ?`
		args = append(args, photoType)
	}
	query += ` ORDER BY created_at, id`
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var photos []Photo
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		photos = append(photos, p)
	}
	return photos, rows.Err()
}

// GetPhotosByIDs bulk-fetches photos keyed by id, for journal hydration.
func (s *Store) GetPhotosByIDs(ids []int64) (map[int64]Photo, error) {
	out := make(map[int64]Photo, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	query, args := inClause(`SELECT `+photoColumns+` FROM photos WHERE id IN `, ids)
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanPhoto(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// UpdatePhoto rewrites caption and type.
func (s *Store) UpdatePhoto(id int64, caption string, photoType PhotoType) error {
	return s.execAffectingOne(`UPDATE photos SET caption = ?, photo_type = ? WHERE id = ?`, caption, photoType, id)
}

// UpdatePhotoType reclassifies a photo. Callers validate the type first;
// the CHECK constraint is the backstop.
func (s *Store) UpdatePhotoType(id int64, photoType PhotoType) error {
	return s.execAffectingOne(`UPDATE photos SET photo_type = ? WHERE id = ?`, photoType, id)
}

// DeletePhoto removes a photo row. Blob cleanup is the caller's concern.
func (s *Store) DeletePhoto(id int64) error {
	return s.execAffectingOne(`DELETE FROM photos WHERE id = ?`, id)
}
