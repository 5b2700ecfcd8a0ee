package server

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"log"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/karanpatel1993/meal-planner-buddy/internal/mealplan"
)

//go:embed recipes_prompt.md
var recipesPrompt string

var recipesTemplate = template.Must(
	template.New("recipes").Funcs(template.FuncMap{"join": strings.Join}).Parse(recipesPrompt),
)

type recipesPromptData struct {
	Ingredients         []mealplan.Ingredient
	DietaryPreference   string
	ExcludedIngredients []string
	MaxPreparationTime  int
}

// GenerateMealPlan handles POST /api/generate-meal-plan. It asks the model
// for candidate recipes, then selects one per meal slot by score, splits each
// recipe's ingredients into used and missing, and consolidates the day's
// shopping list.
func (s *Server) GenerateMealPlan(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": fmt.Sprintf("invalid request: %v", err)})
		return
	}

	ingredients := mealplan.ParseIngredients(req.RawIngredients)
	if len(ingredients) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "at least one ingredient is required"})
		return
	}
	if req.Date == "" {
		req.Date = time.Now().Format("2006-01-02")
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 90*time.Second)
	defer cancel()

	candidates, err := s.candidateRecipes(ctx, ingredients, req)
	if err != nil {
		log.Printf("Error generating candidate recipes: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"detail": "failed to generate recipes"})
		return
	}

	recent, err := s.memory.RecentNames(ctx)
	if err != nil {
		log.Printf("Warning: failed to load recent recipes: %v", err)
		recent = map[string]bool{}
	}

	available := indexIngredients(ingredients)
	picked := make(map[string]bool, 3)
	plan := mealplan.DailyPlan{Date: req.Date}

	for _, slot := range []struct {
		mealType string
		meal     *mealplan.Meal
	}{
		{"breakfast", &plan.Breakfast},
		{"lunch", &plan.Lunch},
		{"dinner", &plan.Dinner},
	} {
		recipe, ok := pickMeal(candidates, slot.mealType, available, req, recent, picked)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"detail": "No suitable recipes found for given preferences"})
			return
		}
		picked[recipe.Name] = true
		used, missing := splitIngredients(recipe, available)
		*slot.meal = mealplan.Meal{Recipe: recipe, UsedIngredients: used, MissingIngredients: missing}
	}

	plan.ShoppingList = mealplan.ConsolidateShoppingList(plan.Breakfast, plan.Lunch, plan.Dinner)

	if err := s.memory.MarkUsed(ctx, plan.Breakfast.Recipe.Name, plan.Lunch.Recipe.Name, plan.Dinner.Recipe.Name); err != nil {
		log.Printf("Warning: failed to record served recipes: %v", err)
	}

	c.JSON(http.StatusOK, plan)
}

func (s *Server) candidateRecipes(ctx context.Context, ingredients []mealplan.Ingredient, req planRequest) ([]mealplan.Recipe, error) {
	data := recipesPromptData{
		Ingredients:         ingredients,
		DietaryPreference:   req.DietaryPreference,
		ExcludedIngredients: req.ExcludedIngredients,
	}
	if req.MaxPreparationTime != nil {
		data.MaxPreparationTime = *req.MaxPreparationTime
	}

	var buf bytes.Buffer
	if err := recipesTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	text, err := s.gen.GenerateContent(ctx, buf.String())
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	plan, err := mealplan.Normalize([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("failed to normalize model output: %w", err)
	}
	recipes := plan.CandidateRecipes()
	if len(recipes) == 0 {
		return nil, fmt.Errorf("model returned no recipes")
	}
	return recipes, nil
}
