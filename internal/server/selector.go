package server

import (
	"strings"

	"github.com/karanpatel1993/meal-planner-buddy/internal/mealplan"
)

// planRequest is the structured generation request accepted by the API.
type planRequest struct {
	Date                string   `json:"date"`
	RawIngredients      []string `json:"raw_ingredients" binding:"required"`
	DietaryPreference   string   `json:"dietary_preference"`
	ExcludedIngredients []string `json:"excluded_ingredients"`
	MaxPreparationTime  *int     `json:"max_preparation_time"`
}

// scoreRecipe ranks a candidate against the request. Recipes that use more of
// the available ingredients win; quick recipes get a bonus, slow ones a
// penalty; a matching dietary tag is rewarded and every excluded ingredient
// costs heavily.
func scoreRecipe(r mealplan.Recipe, available map[string]mealplan.Ingredient, req planRequest) float64 {
	var score float64

	if len(r.RequiredIngredients) > 0 {
		have := 0
		for _, ing := range r.RequiredIngredients {
			if _, ok := available[normalizeName(ing.Name)]; ok {
				have++
			}
		}
		score += float64(have) / float64(len(r.RequiredIngredients)) * 5
	}

	if r.PreparationTime > 0 {
		if r.PreparationTime <= 30 {
			score += 2
		} else if r.PreparationTime > 60 {
			score--
		}
	}

	if req.DietaryPreference != "" {
		for _, pref := range r.DietaryPreferences {
			if strings.EqualFold(pref, req.DietaryPreference) {
				score += 3
				break
			}
		}
	}

	for _, excluded := range req.ExcludedIngredients {
		for _, ing := range r.RequiredIngredients {
			if normalizeName(ing.Name) == normalizeName(excluded) {
				score -= 10
			}
		}
	}

	return score
}

// admissible rejects recipes that can never be served for this request,
// regardless of score.
func admissible(r mealplan.Recipe, req planRequest) bool {
	if req.MaxPreparationTime != nil && r.PreparationTime > *req.MaxPreparationTime {
		return false
	}
	for _, excluded := range req.ExcludedIngredients {
		for _, ing := range r.RequiredIngredients {
			if normalizeName(ing.Name) == normalizeName(excluded) {
				return false
			}
		}
	}
	return true
}

// pickMeal selects the highest-scoring admissible candidate for a meal slot,
// preferring recipes not used recently and not already picked today.
func pickMeal(candidates []mealplan.Recipe, mealType string, available map[string]mealplan.Ingredient, req planRequest, recent, picked map[string]bool) (mealplan.Recipe, bool) {
	best := -1
	var bestScore float64
	for pass := 0; pass < 2 && best == -1; pass++ {
		for i, r := range candidates {
			if r.MealType != "" && !strings.EqualFold(r.MealType, mealType) {
				continue
			}
			if picked[r.Name] || !admissible(r, req) {
				continue
			}
			// First pass skips recently served recipes; the second pass
			// allows them back in rather than serving nothing.
			if pass == 0 && recent[r.Name] {
				continue
			}
			score := scoreRecipe(r, available, req)
			if best == -1 || score > bestScore {
				best, bestScore = i, score
			}
		}
	}
	if best == -1 {
		return mealplan.Recipe{}, false
	}
	return candidates[best], true
}

// splitIngredients divides a recipe's ingredients into the ones covered by
// what the user has and the ones that go on the shopping list. An available
// ingredient covers a required one when the names and units match and the
// available quantity is at least the required one.
func splitIngredients(r mealplan.Recipe, available map[string]mealplan.Ingredient) (used, missing []mealplan.Ingredient) {
	used = []mealplan.Ingredient{}
	missing = []mealplan.Ingredient{}
	for _, need := range r.RequiredIngredients {
		have, ok := available[normalizeName(need.Name)]
		if !ok {
			missing = append(missing, need)
			continue
		}
		if have.Unit != "" && need.Unit != "" && !strings.EqualFold(have.Unit, need.Unit) {
			missing = append(missing, need)
			continue
		}
		haveQty, haveOK := have.Quantity.Float()
		needQty, needOK := need.Quantity.Float()
		if haveOK && needOK && haveQty < needQty {
			missing = append(missing, need)
			continue
		}
		used = append(used, need)
	}
	return used, missing
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func indexIngredients(ingredients []mealplan.Ingredient) map[string]mealplan.Ingredient {
	indexed := make(map[string]mealplan.Ingredient, len(ingredients))
	for _, ing := range ingredients {
		indexed[normalizeName(ing.Name)] = ing
	}
	return indexed
}
