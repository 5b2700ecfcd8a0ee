package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/karanpatel1993/meal-planner-buddy/internal/mealplan"
)

// SQLiteRepository persists saved recipes in the local database. Recipes are
// stored as JSON blobs; the dedup key is materialized into its own column so
// the uniqueness invariant also holds at the schema level.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository on an existing connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// List returns all saved recipes in insertion order.
func (r *SQLiteRepository) List(ctx context.Context) ([]mealplan.SavedRecipe, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT id, data FROM saved_recipes ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to list saved recipes: %w", err)
	}
	defer rows.Close()

	saved := make([]mealplan.SavedRecipe, 0)
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, fmt.Errorf("failed to scan saved recipe: %w", err)
		}
		var recipe mealplan.Recipe
		if err := json.Unmarshal([]byte(data), &recipe); err != nil {
			return nil, fmt.Errorf("failed to unmarshal saved recipe %s: %w", id, err)
		}
		saved = append(saved, mealplan.SavedRecipe{ID: id, Recipe: recipe})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return saved, nil
}

// Save appends a recipe at the end of the list.
func (r *SQLiteRepository) Save(ctx context.Context, saved mealplan.SavedRecipe) error {
	data, err := json.Marshal(saved.Recipe)
	if err != nil {
		return fmt.Errorf("failed to marshal recipe: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO saved_recipes (id, dedup_key, data, position)
		 VALUES (?, ?, ?, (SELECT COALESCE(MAX(position) + 1, 0) FROM saved_recipes))`,
		saved.ID, saved.Recipe.DedupKey(), string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to insert saved recipe: %w", err)
	}
	return nil
}

// Delete removes a saved recipe by id.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM saved_recipes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete saved recipe: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	return nil
}

// SQLiteCandidateCache persists the most recent candidate set. The CLI runs
// one command per process, so without it save-by-index would have nothing to
// resolve against after plan exits.
type SQLiteCandidateCache struct {
	db *sql.DB
}

// NewSQLiteCandidateCache creates a candidate cache on an existing connection.
func NewSQLiteCandidateCache(db *sql.DB) *SQLiteCandidateCache {
	return &SQLiteCandidateCache{db: db}
}

// Load returns the cached candidates in order.
func (c *SQLiteCandidateCache) Load(ctx context.Context) ([]mealplan.Recipe, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT data FROM candidates ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("failed to load candidates: %w", err)
	}
	defer rows.Close()

	recipes := make([]mealplan.Recipe, 0)
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		var recipe mealplan.Recipe
		if err := json.Unmarshal([]byte(data), &recipe); err != nil {
			return nil, fmt.Errorf("failed to unmarshal candidate: %w", err)
		}
		recipes = append(recipes, recipe)
	}
	return recipes, rows.Err()
}

// Replace swaps the cached set for the given one atomically.
func (c *SQLiteCandidateCache) Replace(ctx context.Context, recipes []mealplan.Recipe) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM candidates"); err != nil {
		return fmt.Errorf("failed to clear candidates: %w", err)
	}
	for i, recipe := range recipes {
		data, err := json.Marshal(recipe)
		if err != nil {
			return fmt.Errorf("failed to marshal candidate: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO candidates (position, data) VALUES (?, ?)", i, string(data)); err != nil {
			return fmt.Errorf("failed to insert candidate: %w", err)
		}
	}
	return tx.Commit()
}
