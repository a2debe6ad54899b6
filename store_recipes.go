package harvestbook

import "time"

const recipeColumns = `id, event_id, title, ingredients, instructions, contributed_by, created_at`

func scanRecipe(row interface{ Scan(...any) error }) (Recipe, error) {
	var r Recipe
	var created string
	err := row.Scan(&r.ID, &r.EventID, &r.Title, &r.Ingredients, &r.Instructions, &r.ContributedBy, &created)
	if err != nil {
		return Recipe{}, err
	}
	r.CreatedAt = parseTime(created)
	return r, nil
}

// CreateRecipe inserts a recipe tied to an event.
func (s *Store) CreateRecipe(r Recipe) (Recipe, error) {
	r.CreatedAt = time.Now().UTC().Truncate(time.Second)
	res, err := s.db.Exec(`INSERT INTO recipes (event_id, title, ingredients, instructions, contributed_by, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		r.EventID, r.Title, r.Ingredients, r.Instructions, r.ContributedBy, r.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return Recipe{}, err
	}
	r.ID, err = res.LastInsertId()
	return r, err
}

// GetRecipe returns a recipe by id.
func (s *Store) GetRecipe(id int64) (Recipe, error) {
	return scanRecipe(s.db.QueryRow(`SELECT `+recipeColumns+` FROM recipes WHERE id = ?`, id))
}

// ListEventRecipes returns an event's recipes in creation order.
func (s *Store) ListEventRecipes(eventID int64) ([]Recipe, error) {
	rows, err := s.db.Query(`SELECT `+recipeColumns+` FROM recipes WHERE event_id = ? ORDER BY created_at, id`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipes []Recipe
	for rows.Next() {
		r, err := scanRecipe(rows)
		if err != nil {
			return nil, err
		}
		recipes = append(recipes, r)
	}
	return recipes, rows.Err()
}

// UpdateRecipe rewrites the mutable fields of a recipe.
func (s *Store) UpdateRecipe(r Recipe) error {
	return s.execAffectingOne(`UPDATE recipes SET title = ?, ingredients = ?, instructions = ?, contributed_by = ? WHERE id = ?`,
		r.Title, r.Ingredients, r.Instructions, r.ContributedBy, r.ID)
}

// DeleteRecipe removes a recipe.
func (s *Store) DeleteRecipe(id int64) error {
	return s.execAffectingOne(`DELETE FROM recipes WHERE id = ?`, id)
}
