package mealplan

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// DietaryPreference is the set of diets a plan can be restricted to.
// An empty value means no restriction.
type DietaryPreference string

const (
	DietNone       DietaryPreference = "none"
	DietVegetarian DietaryPreference = "vegetarian"
	DietVegan      DietaryPreference = "vegan"
	DietKeto       DietaryPreference = "keto"
	DietPaleo      DietaryPreference = "paleo"
)

// Quantity holds an ingredient amount. Models emit quantities as either JSON
// numbers or strings ("2", "to taste"), so both are accepted and the original
// token is preserved on round-trip.
type Quantity string

// UnmarshalJSON accepts a JSON number or string.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*q = Quantity(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*q = Quantity(n.String())
	return nil
}

// MarshalJSON emits numeric quantities as numbers and everything else as
// strings. ParseFloat alone is not enough: it also accepts "NaN", "Inf" and
// hex floats, none of which are valid JSON tokens, so those stay strings.
func (q Quantity) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseFloat(string(q), 64); err == nil && json.Valid([]byte(q)) {
		return []byte(q), nil
	}
	return json.Marshal(string(q))
}

// Float returns the numeric value of the quantity, or false when it is not a number.
func (q Quantity) Float() (float64, bool) {
	f, err := strconv.ParseFloat(string(q), 64)
	return f, err == nil
}

// Ingredient is a single ingredient with an optional amount. Two ingredients
// match when name and unit are equal; the quantity is informational.
type Ingredient struct {
	Name     string   `json:"name"`
	Quantity Quantity `json:"quantity"`
	Unit     string   `json:"unit"`
}

// String renders the ingredient as "quantity unit name".
func (i Ingredient) String() string {
	parts := make([]string, 0, 3)
	if i.Quantity != "" {
		parts = append(parts, string(i.Quantity))
	}
	if i.Unit != "" {
		parts = append(parts, i.Unit)
	}
	parts = append(parts, i.Name)
	return strings.Join(parts, " ")
}

// Recipe is a normalized recipe. After normalization RequiredIngredients is
// never nil and Instructions is non-empty.
type Recipe struct {
	Name                string       `json:"name"`
	Description         string       `json:"description,omitempty"`
	MealType            string       `json:"meal_type,omitempty"`
	RequiredIngredients []Ingredient `json:"required_ingredients"`
	Instructions        []string     `json:"instructions"`
	PreparationTime     int          `json:"preparation_time,omitempty"`
	DietaryPreferences  []string     `json:"dietary_preferences,omitempty"`
}

// DedupKey is the identity used to decide whether two recipes are the same for
// save operations: the name plus the serialized ingredient list, order-sensitive.
func (r Recipe) DedupKey() string {
	ingredients, err := json.Marshal(r.RequiredIngredients)
	if err != nil {
		// Never collapse to name-only: two recipes with different
		// ingredients must still get different keys.
		return r.Name + "\x00" + fmt.Sprintf("%+v", r.RequiredIngredients)
	}
	return r.Name + "\x00" + string(ingredients)
}

// Meal pairs a recipe with the split of ingredients the user already has and
// the ones they still need. The two lists never share a name.
type Meal struct {
	Recipe             Recipe       `json:"recipe"`
	UsedIngredients    []Ingredient `json:"used_ingredients"`
	MissingIngredients []Ingredient `json:"missing_ingredients"`
}

// DailyPlan is a single-day plan with one meal per slot.
type DailyPlan struct {
	Date         string       `json:"date"`
	Breakfast    Meal         `json:"breakfast"`
	Lunch        Meal         `json:"lunch"`
	Dinner       Meal         `json:"dinner"`
	ShoppingList []Ingredient `json:"shopping_list"`
}

// SavedRecipe is the persisted wrapper around a saved recipe. ID is the
// storage handle; identity for deduplication is the recipe's DedupKey, never
// the ID.
type SavedRecipe struct {
	ID     string `json:"id,omitempty"`
	Recipe Recipe `json:"recipe"`
}

// Kind discriminates the two plan shapes a backend or model may return.
type Kind string

const (
	KindDailyPlan  Kind = "daily-plan"
	KindRecipeList Kind = "recipe-list"
)

// Plan is the normalized generation result: either a full daily plan or a flat
// list of candidate recipes, tagged with Kind.
type Plan struct {
	Kind    Kind
	Daily   *DailyPlan
	Recipes []Recipe
}

// MarshalJSON emits the wire shape of the underlying variant, without the tag.
func (p Plan) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case KindDailyPlan:
		return json.Marshal(p.Daily)
	default:
		return json.Marshal(struct {
			Recipes []Recipe `json:"recipes"`
		}{Recipes: p.Recipes})
	}
}

// CandidateRecipes returns the recipes a user can save from this plan. For a
// daily plan that is the three meal recipes in slot order.
func (p *Plan) CandidateRecipes() []Recipe {
	if p.Kind == KindRecipeList {
		return p.Recipes
	}
	if p.Daily == nil {
		return nil
	}
	return []Recipe{p.Daily.Breakfast.Recipe, p.Daily.Lunch.Recipe, p.Daily.Dinner.Recipe}
}

// ParseIngredients turns raw "quantity unit name" lines into Ingredients.
// Lines that do not start with a numeric quantity are kept as name-only
// ingredients rather than dropped, so every user-entered name survives.
func ParseIngredients(lines []string) []Ingredient {
	ingredients := make([]Ingredient, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) >= 3 {
			if _, err := strconv.ParseFloat(parts[0], 64); err == nil {
				ingredients = append(ingredients, Ingredient{
					Name:     strings.Join(parts[2:], " "),
					Quantity: Quantity(parts[0]),
					Unit:     parts[1],
				})
				continue
			}
		}
		ingredients = append(ingredients, Ingredient{Name: line})
	}
	return ingredients
}

// ConsolidateShoppingList merges the missing ingredients of the given meals,
// summing numeric quantities per (name, unit) pair. Entries keep first-seen
// order; non-numeric quantities are kept as-is and never summed.
func ConsolidateShoppingList(meals ...Meal) []Ingredient {
	type key struct{ name, unit string }
	index := make(map[key]int)
	consolidated := make([]Ingredient, 0)

	for _, meal := range meals {
		for _, ing := range meal.MissingIngredients {
			k := key{ing.Name, ing.Unit}
			at, seen := index[k]
			if !seen {
				index[k] = len(consolidated)
				consolidated = append(consolidated, ing)
				continue
			}
			have, haveOK := consolidated[at].Quantity.Float()
			add, addOK := ing.Quantity.Float()
			if haveOK && addOK {
				consolidated[at].Quantity = Quantity(strconv.FormatFloat(have+add, 'f', -1, 64))
			}
		}
	}
	return consolidated
}
