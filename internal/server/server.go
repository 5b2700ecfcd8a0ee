// Package server is the backend half of proxy mode: a small gin API that
// generates meal plans with a model credential that never leaves the server,
// and persists saved recipes for its clients.
package server

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/karanpatel1993/meal-planner-buddy/internal/database"
	"github.com/karanpatel1993/meal-planner-buddy/internal/llm"
	"github.com/karanpatel1993/meal-planner-buddy/internal/store"
)

// Server holds the API's dependencies.
type Server struct {
	gen        llm.TextGenerator
	saved      *store.SQLiteRepository
	memory     *recipeMemory
	serviceKey string
}

// New creates a Server on top of the given model client and database.
// serviceKey is the "id:secret" pair clients mint tokens from; empty disables
// authentication.
func New(gen llm.TextGenerator, db *database.DB, serviceKey string) *Server {
	return &Server{
		gen:        gen,
		saved:      store.NewSQLiteRepository(db.SQL),
		memory:     newRecipeMemory(db.SQL),
		serviceKey: serviceKey,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       12 * time.Hour,
	}))

	r.GET("/api/health", s.Health)

	api := r.Group("/api")
	api.Use(s.requireServiceToken())
	{
		api.POST("/generate-meal-plan", s.GenerateMealPlan)
		api.GET("/saved-recipes", s.SavedRecipes)
		api.POST("/save-recipe/:id", s.SaveRecipe)
		api.DELETE("/delete-recipe/:id", s.DeleteRecipe)
	}

	return r
}

// Health handles GET /api/health.
func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}
