package store

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/karanpatel1993/meal-planner-buddy/internal/genclient"
	"github.com/karanpatel1993/meal-planner-buddy/internal/mealplan"
)

// RemoteRepository keeps the saved-recipes list on the backend, for proxy
// deployments where persistence lives server-side.
type RemoteRepository struct {
	client *genclient.ProxyClient
}

// NewRemoteRepository creates a repository backed by the proxy API.
func NewRemoteRepository(client *genclient.ProxyClient) *RemoteRepository {
	return &RemoteRepository{client: client}
}

// List fetches the saved recipes from the backend.
func (r *RemoteRepository) List(ctx context.Context) ([]mealplan.SavedRecipe, error) {
	return r.client.SavedRecipes(ctx)
}

// Save persists the recipe on the backend under its id.
func (r *RemoteRepository) Save(ctx context.Context, saved mealplan.SavedRecipe) error {
	return r.client.SaveRecipe(ctx, saved.ID, saved.Recipe)
}

// Delete removes the recipe on the backend. A backend 404 maps onto
// ErrNotFound so callers see one error regardless of repository.
func (r *RemoteRepository) Delete(ctx context.Context, id string) error {
	err := r.client.DeleteRecipe(ctx, id)
	var aerr *genclient.APIError
	if errors.As(err, &aerr) && aerr.Status == http.StatusNotFound {
		return fmt.Errorf("%w: id %s", ErrNotFound, id)
	}
	return err
}
