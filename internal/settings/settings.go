// Package settings persists small key→string values, most importantly the
// user's Gemini API key. An absent key reads back as the empty string and
// means "not configured", never an error.
package settings

import (
	"context"
	"database/sql"
	"fmt"
)

// KeyAPIKey names the stored model-provider credential.
const KeyAPIKey = "api_key"

// Store is a sqlite-backed key→value store.
type Store struct {
	db *sql.DB
}

// NewStore creates a settings store on an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get returns the value for key, or "" when the key was never set.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, nil
}

// Set stores or replaces the value for key.
func (s *Store) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT (key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	return nil
}
