package harvestbook

import (
	"fmt"
	"time"
)

// Timestamps are stored as RFC 3339 UTC strings.
func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339, s)
	return t
}

// CreateUser inserts a user and returns it with its assigned id.
// Username uniqueness is case-insensitive (NOCASE collation); email is
// stored lowercased by the caller.
func (s *Store) CreateUser(u User) (User, error) {
	u.CreatedAt = time.Now().UTC().Truncate(time.Second)
	res, err := s.db.Exec(`INSERT INTO users (username, email, display_name, password_hash, role, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		u.Username, u.Email, u.DisplayName, u.PasswordHash, u.Role, u.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return User{}, err
	}
	u.ID, err = res.LastInsertId()
	return u, err
}

const userColumns = `id, username, email, display_name, password_hash, role, created_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	var created string
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.DisplayName, &u.PasswordHash, &u.Role, &created); err != nil {
		return User{}, err
	}
	u.CreatedAt = parseTime(created)
	return u, nil
}

// GetUser returns a user by id.
func (s *Store) GetUser(id int64) (User, error) {
	return scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// GetUserByLogin looks a user up by username (case-insensitive) or email.
func (s *Store) GetUserByLogin(login string) (User, error) {
	return scanUser(s.db.QueryRow(`SELECT `+userColumns+` FROM users WHERE username = ? COLLATE NOCASE OR email = lower(?)`, login, login))
}

// ListUsers returns all users ordered by creation time.
func (s *Store) ListUsers() ([]User, error) {
	rows, err := s.db.Query(`SELECT ` + userColumns + ` FROM users ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateUserProfile updates the self-service fields.
func (s *Store) UpdateUserProfile(id int64, email, displayName string) error {
	return s.execAffectingOne(`UPDATE users SET email = ?, display_name = ? WHERE id = ?`, email, displayName, id)
}

// UpdateUserPassword replaces the stored bcrypt hash.
func (s *Store) UpdateUserPassword(id int64, hash string) error {
	return s.execAffectingOne(`UPDATE users SET password_hash = ? WHERE id = ?`, hash, id)
}

// UpdateUserRole sets the role. Self-demotion checks happen in the handler.
func (s *Store) UpdateUserRole(id int64, role string) error {
	return s.execAffectingOne(`UPDATE users SET role = ? WHERE id = ?`, role, id)
}

// DeleteUser removes a user. Authored blog posts and uploaded photos keep
// their rows with the user reference set null.
func (s *Store) DeleteUser(id int64) error {
	return s.execAffectingOne(`DELETE FROM users WHERE id = ?`, id)
}

// execAffectingOne runs an UPDATE/DELETE expected to touch exactly one row
// and converts a zero-row result into ErrNotFound.
func (s *Store) execAffectingOne(query string, args ...any) error {
	res, err := s.db.Exec(query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
