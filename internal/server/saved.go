package server

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/karanpatel1993/meal-planner-buddy/internal/mealplan"
	"github.com/karanpatel1993/meal-planner-buddy/internal/store"
)

// SavedRecipes handles GET /api/saved-recipes.
func (s *Server) SavedRecipes(c *gin.Context) {
	saved, err := s.saved.List(c.Request.Context())
	if err != nil {
		log.Printf("Error listing saved recipes: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to list saved recipes"})
		return
	}
	if saved == nil {
		saved = []mealplan.SavedRecipe{}
	}
	c.JSON(http.StatusOK, saved)
}

// SaveRecipe handles POST /api/save-recipe/:id. The body is the recipe; the
// id in the path becomes its storage handle. Saving a recipe that is already
// stored conflicts instead of creating a second row.
func (s *Server) SaveRecipe(c *gin.Context) {
	var recipe mealplan.Recipe
	if err := c.ShouldBindJSON(&recipe); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "invalid recipe body"})
		return
	}
	if recipe.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "recipe name is required"})
		return
	}

	saved := mealplan.SavedRecipe{ID: c.Param("id"), Recipe: recipe}
	if err := s.saved.Save(c.Request.Context(), saved); err != nil {
		// The two unique columns fail for different reasons: a dedup_key hit
		// means the same recipe was saved before, an id hit means the caller
		// reused a handle for a different recipe.
		if strings.Contains(err.Error(), "saved_recipes.dedup_key") {
			c.JSON(http.StatusConflict, gin.H{"detail": "recipe already saved"})
			return
		}
		if strings.Contains(err.Error(), "saved_recipes.id") {
			c.JSON(http.StatusConflict, gin.H{"detail": "recipe id already in use"})
			return
		}
		log.Printf("Error saving recipe: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to save recipe"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved", "id": saved.ID})
}

// DeleteRecipe handles DELETE /api/delete-recipe/:id.
func (s *Server) DeleteRecipe(c *gin.Context) {
	err := s.saved.Delete(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "recipe not found"})
		return
	}
	if err != nil {
		log.Printf("Error deleting recipe: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to delete recipe"})
		return
	}
	c.Status(http.StatusNoContent)
}
