package server

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// recipeMemory tracks which recipes were served recently, so consecutive
// plans do not repeat the same dishes. Entries expire after seven days.
type recipeMemory struct {
	db  *sql.DB
	ttl time.Duration
}

func newRecipeMemory(db *sql.DB) *recipeMemory {
	return &recipeMemory{db: db, ttl: 7 * 24 * time.Hour}
}

// RecentNames returns the names of recipes used within the retention window.
func (m *recipeMemory) RecentNames(ctx context.Context) (map[string]bool, error) {
	threshold := time.Now().UTC().Add(-m.ttl)
	rows, err := m.db.QueryContext(ctx,
		"SELECT recipe_name FROM recent_recipes WHERE used_at >= ?", threshold)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent recipes: %w", err)
	}
	defer rows.Close()

	recent := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan recent recipe: %w", err)
		}
		recent[name] = true
	}
	return recent, rows.Err()
}

// MarkUsed records the given recipe names as used now and drops expired rows.
func (m *recipeMemory) MarkUsed(ctx context.Context, names ...string) error {
	now := time.Now().UTC()
	for _, name := range names {
		_, err := m.db.ExecContext(ctx,
			"INSERT INTO recent_recipes (recipe_name, used_at) VALUES (?, ?) ON CONFLICT(recipe_name) DO UPDATE SET used_at = excluded.used_at",
			name, now)
		if err != nil {
			return fmt.Errorf("failed to record recent recipe: %w", err)
		}
	}
	_, err := m.db.ExecContext(ctx,
		"DELETE FROM recent_recipes WHERE used_at < ?", now.Add(-m.ttl))
	if err != nil {
		return fmt.Errorf("failed to prune recent recipes: %w", err)
	}
	return nil
}
