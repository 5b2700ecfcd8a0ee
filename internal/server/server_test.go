package server

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karanpatel1993/meal-planner-buddy/internal/database"
	"github.com/karanpatel1993/meal-planner-buddy/internal/mealplan"
)

const candidateRecipesJSON = `{
  "recipes": [
    {
      "name": "Rice Porridge",
      "meal_type": "breakfast",
      "required_ingredients": [
        {"name": "rice", "quantity": 200, "unit": "grams"},
        {"name": "milk", "quantity": 1, "unit": "liter"}
      ],
      "instructions": ["Simmer rice in milk."],
      "preparation_time": 25
    },
    {
      "name": "Veggie Omelette",
      "meal_type": "breakfast",
      "required_ingredients": [{"name": "eggs", "quantity": 3, "unit": "pieces"}],
      "instructions": ["Whisk and fry."],
      "preparation_time": 15
    },
    {
      "name": "Chicken Rice Bowl",
      "meal_type": "lunch",
      "required_ingredients": [
        {"name": "rice", "quantity": 300, "unit": "grams"},
        {"name": "chicken breast", "quantity": 2, "unit": "pieces"}
      ],
      "instructions": ["Cook rice.", "Grill chicken."],
      "preparation_time": 40
    },
    {
      "name": "Fried Rice",
      "meal_type": "lunch",
      "required_ingredients": [
        {"name": "rice", "quantity": 200, "unit": "grams"},
        {"name": "eggs", "quantity": 2, "unit": "pieces"}
      ],
      "instructions": ["Fry rice with eggs."],
      "preparation_time": 20
    },
    {
      "name": "Tomato Soup",
      "meal_type": "dinner",
      "required_ingredients": [
        {"name": "tomatoes", "quantity": 4, "unit": "pieces"},
        {"name": "basil", "quantity": 1, "unit": "bunch"}
      ],
      "instructions": ["Blend and heat tomatoes."],
      "preparation_time": 30
    },
    {
      "name": "Chicken Curry",
      "meal_type": "dinner",
      "required_ingredients": [
        {"name": "chicken breast", "quantity": 2, "unit": "pieces"},
        {"name": "curry paste", "quantity": 1, "unit": "jar"}
      ],
      "instructions": ["Simmer chicken in curry."],
      "preparation_time": 50
    }
  ]
}`

type mockTextGenerator struct {
	response string
	err      error
	prompts  []string
}

func (m *mockTextGenerator) GenerateContent(_ context.Context, prompt string) (string, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

func newTestServer(t *testing.T, gen *mockTextGenerator, serviceKey string) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db, err := database.NewDB(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(gen, db, serviceKey)
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &mockTextGenerator{response: candidateRecipesJSON}, "")
	w := doJSON(t, srv.Router(), http.MethodGet, "/api/health", nil, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status": "healthy"}`, w.Body.String())
}

func TestGenerateMealPlan(t *testing.T) {
	gen := &mockTextGenerator{response: candidateRecipesJSON}
	srv := newTestServer(t, gen, "")
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/api/generate-meal-plan", map[string]any{
		"date":            "2026-08-29",
		"raw_ingredients": []string{"500 grams rice", "2 pieces chicken breast", "4 pieces tomatoes", "3 pieces eggs"},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var plan mealplan.DailyPlan
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plan))
	assert.Equal(t, "2026-08-29", plan.Date)
	assert.NotEmpty(t, plan.Breakfast.Recipe.Name)
	assert.NotEmpty(t, plan.Lunch.Recipe.Name)
	assert.NotEmpty(t, plan.Dinner.Recipe.Name)
	assert.NotEqual(t, plan.Lunch.Recipe.Name, plan.Dinner.Recipe.Name)

	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "500 grams rice")
}

func TestGenerateMealPlanShoppingList(t *testing.T) {
	gen := &mockTextGenerator{response: candidateRecipesJSON}
	srv := newTestServer(t, gen, "")

	// No tomatoes or basil on hand, so Tomato Soup's ingredients must end up
	// on the shopping list.
	w := doJSON(t, srv.Router(), http.MethodPost, "/api/generate-meal-plan", map[string]any{
		"raw_ingredients": []string{"500 grams rice", "1 liter milk", "3 pieces eggs"},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var plan mealplan.DailyPlan
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &plan))

	names := make(map[string]bool)
	for _, ing := range plan.ShoppingList {
		names[ing.Name] = true
	}
	assert.True(t, names["tomatoes"], "shopping list: %v", plan.ShoppingList)
	assert.True(t, names["basil"], "shopping list: %v", plan.ShoppingList)
}

func TestGenerateMealPlanExcludedIngredient(t *testing.T) {
	gen := &mockTextGenerator{response: candidateRecipesJSON}
	srv := newTestServer(t, gen, "")
	router := srv.Router()

	// Both dinner candidates are excluded; there is nothing left to serve.
	w := doJSON(t, router, http.MethodPost, "/api/generate-meal-plan", map[string]any{
		"raw_ingredients":      []string{"500 grams rice", "3 pieces eggs"},
		"excluded_ingredients": []string{"tomatoes", "chicken breast"},
	}, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"detail": "No suitable recipes found for given preferences"}`, w.Body.String())
}

func TestGenerateMealPlanAvoidsRecentRecipes(t *testing.T) {
	gen := &mockTextGenerator{response: candidateRecipesJSON}
	srv := newTestServer(t, gen, "")
	router := srv.Router()

	body := map[string]any{
		"raw_ingredients": []string{"500 grams rice", "2 pieces chicken breast", "4 pieces tomatoes", "3 pieces eggs", "1 liter milk"},
	}

	w := doJSON(t, router, http.MethodPost, "/api/generate-meal-plan", body, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var first mealplan.DailyPlan
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &first))

	w = doJSON(t, router, http.MethodPost, "/api/generate-meal-plan", body, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var second mealplan.DailyPlan
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &second))

	assert.NotEqual(t, first.Breakfast.Recipe.Name, second.Breakfast.Recipe.Name)
	assert.NotEqual(t, first.Lunch.Recipe.Name, second.Lunch.Recipe.Name)
	assert.NotEqual(t, first.Dinner.Recipe.Name, second.Dinner.Recipe.Name)
}

func TestGenerateMealPlanBadRequest(t *testing.T) {
	srv := newTestServer(t, &mockTextGenerator{response: candidateRecipesJSON}, "")
	router := srv.Router()

	w := doJSON(t, router, http.MethodPost, "/api/generate-meal-plan", map[string]any{
		"raw_ingredients": []string{},
	}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSavedRecipesRoundTrip(t *testing.T) {
	srv := newTestServer(t, &mockTextGenerator{}, "")
	router := srv.Router()

	recipe := mealplan.Recipe{
		Name:                "Tomato Soup",
		RequiredIngredients: []mealplan.Ingredient{{Name: "tomatoes", Quantity: "4", Unit: "pieces"}},
		Instructions:        []string{"Blend and heat tomatoes."},
	}

	w := doJSON(t, router, http.MethodPost, "/api/save-recipe/abc-123", recipe, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, router, http.MethodPost, "/api/save-recipe/other-id", recipe, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/saved-recipes", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var saved []mealplan.SavedRecipe
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
	require.Len(t, saved, 1)
	assert.Equal(t, "abc-123", saved[0].ID)
	assert.Equal(t, "Tomato Soup", saved[0].Recipe.Name)

	w = doJSON(t, router, http.MethodDelete, "/api/delete-recipe/abc-123", nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, router, http.MethodDelete, "/api/delete-recipe/abc-123", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSaveRecipeIDReuseConflicts(t *testing.T) {
	srv := newTestServer(t, &mockTextGenerator{}, "")
	router := srv.Router()

	soup := mealplan.Recipe{
		Name:                "Tomato Soup",
		RequiredIngredients: []mealplan.Ingredient{{Name: "tomatoes", Quantity: "4", Unit: "pieces"}},
		Instructions:        []string{"Blend and heat tomatoes."},
	}
	omelette := mealplan.Recipe{
		Name:                "Veggie Omelette",
		RequiredIngredients: []mealplan.Ingredient{{Name: "eggs", Quantity: "3", Unit: "pieces"}},
		Instructions:        []string{"Whisk and fry."},
	}

	w := doJSON(t, router, http.MethodPost, "/api/save-recipe/abc-123", soup, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// The same recipe again is a duplicate, regardless of the id.
	w = doJSON(t, router, http.MethodPost, "/api/save-recipe/other-id", soup, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "recipe already saved")

	// A different recipe under a taken id is an id collision, not a duplicate.
	w = doJSON(t, router, http.MethodPost, "/api/save-recipe/abc-123", omelette, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "recipe id already in use")

	// Neither conflict created a second row.
	w = doJSON(t, router, http.MethodGet, "/api/saved-recipes", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var saved []mealplan.SavedRecipe
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &saved))
	require.Len(t, saved, 1)
	assert.Equal(t, "abc-123", saved[0].ID)
}

func TestServiceTokenRequired(t *testing.T) {
	serviceKey := "buddy:00112233445566778899aabbccddeeff"
	srv := newTestServer(t, &mockTextGenerator{}, serviceKey)
	router := srv.Router()

	// Health stays open.
	w := doJSON(t, router, http.MethodGet, "/api/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/saved-recipes", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	secret, err := hex.DecodeString("00112233445566778899aabbccddeeff")
	require.NoError(t, err)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(5 * time.Minute).Unix(),
		"aud": "/api/",
	})
	token.Header["kid"] = "buddy"
	signed, err := token.SignedString(secret)
	require.NoError(t, err)

	w = doJSON(t, router, http.MethodGet, "/api/saved-recipes", nil, map[string]string{
		"Authorization": "Bearer " + signed,
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// A token signed with the wrong secret is rejected.
	wrong, err := token.SignedString([]byte("not-the-secret"))
	require.NoError(t, err)
	w = doJSON(t, router, http.MethodGet, "/api/saved-recipes", nil, map[string]string{
		"Authorization": "Bearer " + wrong,
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
