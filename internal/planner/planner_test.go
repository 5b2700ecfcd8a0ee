package planner

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/karanpatel1993/meal-planner-buddy/internal/genclient"
	"github.com/karanpatel1993/meal-planner-buddy/internal/mealplan"
	"github.com/karanpatel1993/meal-planner-buddy/internal/store"
)

const planFixture = `{
  "date": "2026-08-29",
  "breakfast": {
    "recipe": {
      "name": "Rice Porridge",
      "required_ingredients": [{"name": "rice", "quantity": "200", "unit": "grams"}],
      "instructions": ["Simmer rice in milk."]
    },
    "used_ingredients": [{"name": "rice", "quantity": "200", "unit": "grams"}],
    "missing_ingredients": []
  },
  "lunch": {
    "recipe": {
      "name": "Chicken Rice Bowl",
      "required_ingredients": [
        {"name": "rice", "quantity": "300", "unit": "grams"},
        {"name": "chicken breast", "quantity": "2", "unit": "pieces"}
      ],
      "instructions": ["Cook rice.", "Grill chicken."]
    },
    "used_ingredients": [
      {"name": "rice", "quantity": "300", "unit": "grams"},
      {"name": "chicken breast", "quantity": "2", "unit": "pieces"}
    ],
    "missing_ingredients": []
  },
  "dinner": {
    "recipe": {
      "name": "Tomato Soup",
      "required_ingredients": [{"name": "tomatoes", "quantity": "4", "unit": "pieces"}],
      "instructions": ["Blend and heat tomatoes."]
    },
    "used_ingredients": [{"name": "tomatoes", "quantity": "4", "unit": "pieces"}],
    "missing_ingredients": [{"name": "basil", "quantity": "1", "unit": "bunch"}]
  },
  "shopping_list": [{"name": "basil", "quantity": "1", "unit": "bunch"}]
}`

type mockGenerator struct {
	lastRequest genclient.Request
	response    json.RawMessage
	err         error
}

func (m *mockGenerator) Generate(_ context.Context, req genclient.Request) (json.RawMessage, error) {
	m.lastRequest = req
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

type memoryRepo struct {
	saved []mealplan.SavedRecipe
}

func (m *memoryRepo) List(_ context.Context) ([]mealplan.SavedRecipe, error) {
	return append([]mealplan.SavedRecipe(nil), m.saved...), nil
}

func (m *memoryRepo) Save(_ context.Context, saved mealplan.SavedRecipe) error {
	m.saved = append(m.saved, saved)
	return nil
}

func (m *memoryRepo) Delete(_ context.Context, id string) error {
	for i, s := range m.saved {
		if s.ID == id {
			m.saved = append(m.saved[:i], m.saved[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func newTestPlanner(t *testing.T, gen genclient.Generator) (*Planner, *store.Store) {
	t.Helper()
	recipes, err := store.New(context.Background(), &memoryRepo{})
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	return New("direct", "gemini-1.5-flash", gen, recipes, nil), recipes
}

func TestPlanSetsCandidates(t *testing.T) {
	gen := &mockGenerator{response: json.RawMessage(planFixture)}
	p, recipes := newTestPlanner(t, gen)

	plan, err := p.Plan(context.Background(), Input{
		Ingredients: []string{"500 grams rice", "2 pieces chicken breast", "4 pieces tomatoes"},
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if plan.Kind != mealplan.KindDailyPlan {
		t.Errorf("expected daily plan, got %q", plan.Kind)
	}

	candidates := recipes.Candidates()
	if len(candidates) != 3 {
		t.Fatalf("expected 3 candidates, got %d", len(candidates))
	}
	if candidates[1].Name != "Chicken Rice Bowl" {
		t.Errorf("unexpected candidate order: %q", candidates[1].Name)
	}
}

func TestPlanPromptContainsEveryIngredient(t *testing.T) {
	gen := &mockGenerator{response: json.RawMessage(planFixture)}
	p, _ := newTestPlanner(t, gen)

	ingredients := []string{"500 grams rice", "2 pieces chicken breast", "1 liter milk"}
	_, err := p.Plan(context.Background(), Input{
		Ingredients:         ingredients,
		DietaryPreference:   string(mealplan.DietVegetarian),
		ExcludedIngredients: []string{"nuts"},
		MaxPreparationTime:  30,
	})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}

	prompt := gen.lastRequest.Prompt
	for _, ing := range ingredients {
		if !strings.Contains(prompt, ing) {
			t.Errorf("prompt is missing ingredient %q", ing)
		}
	}
	if !strings.Contains(prompt, string(mealplan.DietVegetarian)) {
		t.Error("prompt is missing the dietary preference")
	}
	if !strings.Contains(prompt, "nuts") {
		t.Error("prompt is missing the excluded ingredient")
	}
	if !strings.Contains(prompt, "30") {
		t.Error("prompt is missing the max preparation time")
	}
}

// The JSON example embedded in the prompt template must stay parseable by the
// normalizer, otherwise the model is asked for a shape we would then reject.
func TestPromptExampleNormalizes(t *testing.T) {
	prompt, err := buildPrompt(promptData{
		Ingredients: []string{"500 grams rice"},
		Date:        "2026-08-29",
	})
	if err != nil {
		t.Fatalf("buildPrompt: %v", err)
	}

	start := strings.Index(prompt, "```json")
	if start == -1 {
		t.Fatal("prompt has no fenced JSON example")
	}
	rest := prompt[start+len("```json"):]
	end := strings.Index(rest, "```")
	if end == -1 {
		t.Fatal("prompt JSON example is not closed")
	}

	plan, err := mealplan.Normalize([]byte(rest[:end]))
	if err != nil {
		t.Fatalf("prompt example does not normalize: %v", err)
	}
	if plan.Kind != mealplan.KindDailyPlan {
		t.Errorf("expected daily plan example, got %q", plan.Kind)
	}
}

func TestPlanEmptyIngredients(t *testing.T) {
	gen := &mockGenerator{response: json.RawMessage(planFixture)}
	p, _ := newTestPlanner(t, gen)

	for _, ingredients := range [][]string{nil, {}, {"  ", "\t"}} {
		_, err := p.Plan(context.Background(), Input{Ingredients: ingredients})
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("ingredients %v: expected ErrInvalidInput, got %v", ingredients, err)
		}
	}
	if gen.lastRequest.Prompt != "" {
		t.Error("generator was called for invalid input")
	}
}

func TestPlanDefaultsDate(t *testing.T) {
	gen := &mockGenerator{response: json.RawMessage(planFixture)}
	p, _ := newTestPlanner(t, gen)

	_, err := p.Plan(context.Background(), Input{Ingredients: []string{"500 grams rice"}})
	if err != nil {
		t.Fatalf("Plan: %v", err)
	}
	if len(gen.lastRequest.Date) != len("2006-01-02") {
		t.Errorf("expected ISO date default, got %q", gen.lastRequest.Date)
	}
}

func TestPlanGenerationErrorLeavesCandidates(t *testing.T) {
	good := &mockGenerator{response: json.RawMessage(planFixture)}
	p, recipes := newTestPlanner(t, good)
	if _, err := p.Plan(context.Background(), Input{Ingredients: []string{"rice"}}); err != nil {
		t.Fatalf("Plan: %v", err)
	}
	before := recipes.Candidates()

	apiErr := &genclient.APIError{Status: 502, Message: "bad gateway"}
	failing := New("direct", "gemini-1.5-flash", &mockGenerator{err: apiErr}, recipes, nil)
	_, err := failing.Plan(context.Background(), Input{Ingredients: []string{"rice"}})
	var gotAPI *genclient.APIError
	if !errors.As(err, &gotAPI) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if len(recipes.Candidates()) != len(before) {
		t.Error("failed generation replaced the candidate set")
	}
}

func TestPlanNormalizeErrorLeavesCandidates(t *testing.T) {
	gen := &mockGenerator{response: json.RawMessage(`{"unexpected": true}`)}
	p, recipes := newTestPlanner(t, gen)

	_, err := p.Plan(context.Background(), Input{Ingredients: []string{"rice"}})
	var normErr *mealplan.NormalizeError
	if !errors.As(err, &normErr) {
		t.Fatalf("expected NormalizeError, got %v", err)
	}
	if len(recipes.Candidates()) != 0 {
		t.Error("failed normalization populated the candidate set")
	}
}

func TestPlanMissingAPIKeyIsInvalidInput(t *testing.T) {
	p, _ := newTestPlanner(t, &mockGenerator{err: genclient.ErrNoAPIKey})
	_, err := p.Plan(context.Background(), Input{Ingredients: []string{"rice"}})
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
	if !errors.Is(err, genclient.ErrNoAPIKey) {
		t.Errorf("expected ErrNoAPIKey in chain, got %v", err)
	}
}
