package mealplan

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Stage identifies the normalization step that rejected a response.
type Stage string

const (
	// StageEnvelope covers extraction of text from a provider candidate wrapper.
	StageEnvelope Stage = "envelope"
	// StageParse covers decoding the (possibly fenced) text as JSON.
	StageParse Stage = "parse"
	// StageValidate covers shape detection and required-field checks.
	StageValidate Stage = "validate"
)

// NormalizeError is the single error kind raised by Normalize. It names the
// failing stage and carries a bounded excerpt of the offending payload.
type NormalizeError struct {
	Stage   Stage
	Excerpt string
	Err     error
}

func (e *NormalizeError) Error() string {
	if e.Excerpt != "" {
		return fmt.Sprintf("response invalid at %s stage: %v (payload: %s)", e.Stage, e.Err, e.Excerpt)
	}
	return fmt.Sprintf("response invalid at %s stage: %v", e.Stage, e.Err)
}

func (e *NormalizeError) Unwrap() error { return e.Err }

const excerptLimit = 160

func excerpt(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= excerptLimit {
		return s
	}
	return s[:excerptLimit] + "..."
}

// geminiEnvelope mirrors the generateContent response wrapper.
type geminiEnvelope struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// ExtractCandidateText unwraps a provider envelope and returns the first
// candidate's text. The error is a NormalizeError when the nested fields the
// envelope promises are absent or empty.
func ExtractCandidateText(raw []byte) (string, error) {
	var env geminiEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", &NormalizeError{Stage: StageEnvelope, Excerpt: excerpt(string(raw)), Err: err}
	}
	if len(env.Candidates) == 0 {
		return "", &NormalizeError{Stage: StageEnvelope, Err: fmt.Errorf("no candidates in response")}
	}
	parts := env.Candidates[0].Content.Parts
	if len(parts) == 0 || parts[0].Text == "" {
		return "", &NormalizeError{Stage: StageEnvelope, Err: fmt.Errorf("candidate has no text content")}
	}
	return parts[0].Text, nil
}

// StripFences removes Markdown code-fence decoration around a JSON document.
// It is a no-op on unfenced input and idempotent.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// Normalize turns a raw response body, a provider envelope, fenced text, or a
// bare JSON object, into a validated Plan. Any failure is reported as a single
// NormalizeError; no partially normalized plan is ever returned.
func Normalize(raw []byte) (*Plan, error) {
	body := bytes.TrimSpace(raw)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		// Not an object: either raw model text or a JSON-encoded string.
		text := string(body)
		var quoted string
		if json.Unmarshal(body, &quoted) == nil {
			text = quoted
		}
		body = []byte(StripFences(text))
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, &NormalizeError{Stage: StageParse, Excerpt: excerpt(text), Err: err}
		}
	}

	if _, ok := fields["candidates"]; ok {
		text, err := ExtractCandidateText(body)
		if err != nil {
			return nil, err
		}
		body = []byte(StripFences(text))
		fields = nil
		if err := json.Unmarshal(body, &fields); err != nil {
			return nil, &NormalizeError{Stage: StageParse, Excerpt: excerpt(text), Err: err}
		}
	}

	return validate(body, fields)
}

// validate detects the response shape by key presence, in fixed priority:
// recipes list, then single-day plan, then a meal_plan wrapper around a
// single-day plan.
func validate(body []byte, fields map[string]json.RawMessage) (*Plan, error) {
	switch {
	case fields["recipes"] != nil:
		var list struct {
			Recipes []Recipe `json:"recipes"`
		}
		if err := json.Unmarshal(body, &list); err != nil {
			return nil, &NormalizeError{Stage: StageValidate, Excerpt: excerpt(string(body)), Err: err}
		}
		if list.Recipes == nil {
			list.Recipes = []Recipe{}
		}
		for i := range list.Recipes {
			if err := normalizeRecipe(&list.Recipes[i]); err != nil {
				return nil, &NormalizeError{Stage: StageValidate, Err: fmt.Errorf("recipes[%d]: %w", i, err)}
			}
		}
		return &Plan{Kind: KindRecipeList, Recipes: list.Recipes}, nil

	case fields["breakfast"] != nil && fields["lunch"] != nil && fields["dinner"] != nil:
		var daily DailyPlan
		if err := json.Unmarshal(body, &daily); err != nil {
			return nil, &NormalizeError{Stage: StageValidate, Excerpt: excerpt(string(body)), Err: err}
		}
		if err := normalizeDaily(&daily); err != nil {
			return nil, &NormalizeError{Stage: StageValidate, Err: err}
		}
		return &Plan{Kind: KindDailyPlan, Daily: &daily}, nil

	case fields["meal_plan"] != nil && fields["shopping_list"] != nil:
		var wrapper struct {
			MealPlan     json.RawMessage `json:"meal_plan"`
			ShoppingList []Ingredient    `json:"shopping_list"`
		}
		if err := json.Unmarshal(body, &wrapper); err != nil {
			return nil, &NormalizeError{Stage: StageValidate, Excerpt: excerpt(string(body)), Err: err}
		}
		var daily DailyPlan
		if err := json.Unmarshal(wrapper.MealPlan, &daily); err != nil {
			return nil, &NormalizeError{Stage: StageValidate, Excerpt: excerpt(string(wrapper.MealPlan)), Err: err}
		}
		if len(daily.ShoppingList) == 0 {
			daily.ShoppingList = wrapper.ShoppingList
		}
		if err := normalizeDaily(&daily); err != nil {
			return nil, &NormalizeError{Stage: StageValidate, Err: err}
		}
		return &Plan{Kind: KindDailyPlan, Daily: &daily}, nil
	}

	return nil, &NormalizeError{
		Stage:   StageValidate,
		Excerpt: excerpt(string(body)),
		Err:     fmt.Errorf("missing required fields: expected recipes, breakfast/lunch/dinner, or meal_plan"),
	}
}

func normalizeDaily(daily *DailyPlan) error {
	if daily.Date == "" {
		return fmt.Errorf("missing required field date")
	}
	for _, slot := range []struct {
		name string
		meal *Meal
	}{
		{"breakfast", &daily.Breakfast},
		{"lunch", &daily.Lunch},
		{"dinner", &daily.Dinner},
	} {
		if err := normalizeMeal(slot.meal); err != nil {
			return fmt.Errorf("%s: %w", slot.name, err)
		}
	}
	if daily.ShoppingList == nil {
		daily.ShoppingList = []Ingredient{}
	}
	return nil
}

func normalizeMeal(meal *Meal) error {
	if err := normalizeRecipe(&meal.Recipe); err != nil {
		return err
	}
	if meal.UsedIngredients == nil {
		meal.UsedIngredients = []Ingredient{}
	}
	if meal.MissingIngredients == nil {
		meal.MissingIngredients = []Ingredient{}
	}

	// Used and missing must stay disjoint by name; used wins.
	used := make(map[string]bool, len(meal.UsedIngredients))
	for _, ing := range meal.UsedIngredients {
		used[ing.Name] = true
	}
	missing := meal.MissingIngredients[:0]
	for _, ing := range meal.MissingIngredients {
		if !used[ing.Name] {
			missing = append(missing, ing)
		}
	}
	meal.MissingIngredients = missing
	return nil
}

func normalizeRecipe(r *Recipe) error {
	if r.Name == "" {
		return fmt.Errorf("recipe is missing a name")
	}
	if len(r.Instructions) == 0 {
		return fmt.Errorf("recipe %q has no instructions", r.Name)
	}
	if r.RequiredIngredients == nil {
		r.RequiredIngredients = []Ingredient{}
	}
	return nil
}
