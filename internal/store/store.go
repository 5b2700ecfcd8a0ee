// Package store owns the two recipe collections the app works with: the
// volatile candidates from the most recent generation, and the persisted,
// deduplicated list of saved recipes.
package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/karanpatel1993/meal-planner-buddy/internal/mealplan"
)

// ErrNotFound is returned when a save or delete references an index that does
// not resolve to a recipe.
var ErrNotFound = errors.New("recipe not found")

// SaveOutcome reports what a Save call did.
type SaveOutcome int

const (
	// OutcomeSaved means the recipe was persisted and appended.
	OutcomeSaved SaveOutcome = iota
	// OutcomeAlreadySaved means an equal recipe was already saved; the call
	// was a no-op, not an error.
	OutcomeAlreadySaved
)

// Repository persists the saved-recipes list. Implementations are the local
// sqlite store and the backend saved-recipes API.
type Repository interface {
	List(ctx context.Context) ([]mealplan.SavedRecipe, error)
	Save(ctx context.Context, saved mealplan.SavedRecipe) error
	Delete(ctx context.Context, id string) error
}

// CandidateCache persists the most recent candidate set across processes, so
// save-by-index still resolves after the process that planned has exited.
type CandidateCache interface {
	Load(ctx context.Context) ([]mealplan.Recipe, error)
	Replace(ctx context.Context, recipes []mealplan.Recipe) error
}

// Store holds the current candidate recipes and the saved list. All mutating
// operations are serialized by a single mutex so overlapping save/delete
// clicks cannot interleave.
type Store struct {
	mu    sync.Mutex
	repo  Repository
	cache CandidateCache

	candidates []mealplan.Recipe
	saved      []mealplan.SavedRecipe
}

// New creates a Store and loads the persisted saved-recipes list. Candidates
// start empty and live only as long as the process.
func New(ctx context.Context, repo Repository) (*Store, error) {
	return NewWithCache(ctx, repo, nil)
}

// NewWithCache additionally restores the candidate set from the cache, and
// keeps the cache in sync on every SetCandidates.
func NewWithCache(ctx context.Context, repo Repository, cache CandidateCache) (*Store, error) {
	saved, err := repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load saved recipes: %w", err)
	}
	s := &Store{repo: repo, cache: cache, saved: saved}
	if cache != nil {
		candidates, err := cache.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load candidates: %w", err)
		}
		s.candidates = candidates
	}
	return s, nil
}

// SetCandidates replaces the candidate list wholesale. Save-by-index always
// resolves against the most recent set. A cache write failure keeps the
// in-memory set usable and is only logged.
func (s *Store) SetCandidates(ctx context.Context, recipes []mealplan.Recipe) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.candidates = append([]mealplan.Recipe(nil), recipes...)
	if s.cache != nil {
		if err := s.cache.Replace(ctx, s.candidates); err != nil {
			log.Printf("Warning: failed to persist candidates: %v", err)
		}
	}
}

// Candidates returns a snapshot of the current candidate recipes.
func (s *Store) Candidates() []mealplan.Recipe {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mealplan.Recipe(nil), s.candidates...)
}

// IsDuplicate reports whether an equal recipe (same name and serialized
// ingredient list) is already saved.
func (s *Store) IsDuplicate(r mealplan.Recipe) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isDuplicateLocked(r)
}

func (s *Store) isDuplicateLocked(r mealplan.Recipe) bool {
	key := r.DedupKey()
	for _, saved := range s.saved {
		if saved.Recipe.DedupKey() == key {
			return true
		}
	}
	return false
}

// Save persists the candidate at index. A duplicate is a successful no-op;
// an out-of-range index fails with ErrNotFound and mutates nothing.
func (s *Store) Save(ctx context.Context, index int) (SaveOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.candidates) {
		return 0, fmt.Errorf("%w: no candidate at index %d", ErrNotFound, index)
	}
	return s.saveLocked(ctx, s.candidates[index])
}

// SaveRecipe persists a recipe that did not come from the candidate list,
// such as one imported from a web page. Deduplication applies the same way.
func (s *Store) SaveRecipe(ctx context.Context, recipe mealplan.Recipe) (SaveOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saveLocked(ctx, recipe)
}

func (s *Store) saveLocked(ctx context.Context, recipe mealplan.Recipe) (SaveOutcome, error) {
	if s.isDuplicateLocked(recipe) {
		return OutcomeAlreadySaved, nil
	}

	saved := mealplan.SavedRecipe{ID: uuid.NewString(), Recipe: recipe}
	if err := s.repo.Save(ctx, saved); err != nil {
		return 0, fmt.Errorf("failed to persist recipe: %w", err)
	}
	s.saved = append(s.saved, saved)
	return OutcomeSaved, nil
}

// Delete removes the saved recipe at index. An out-of-range index fails with
// ErrNotFound and mutates nothing.
func (s *Store) Delete(ctx context.Context, index int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if index < 0 || index >= len(s.saved) {
		return fmt.Errorf("%w: no saved recipe at index %d", ErrNotFound, index)
	}

	if err := s.repo.Delete(ctx, s.saved[index].ID); err != nil {
		return fmt.Errorf("failed to delete recipe: %w", err)
	}
	s.saved = append(s.saved[:index], s.saved[index+1:]...)
	return nil
}

// List returns a snapshot of the saved recipes.
func (s *Store) List() []mealplan.SavedRecipe {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mealplan.SavedRecipe(nil), s.saved...)
}
