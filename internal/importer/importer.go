// Package importer turns a recipe web page into a saved recipe: it fetches
// the page, strips the noise, has the model extract the structured recipe and
// stores it through the regular deduplicating save path.
package importer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/karanpatel1993/meal-planner-buddy/internal/llm"
	"github.com/karanpatel1993/meal-planner-buddy/internal/mealplan"
	"github.com/karanpatel1993/meal-planner-buddy/internal/store"
)

// Importer fetches and extracts recipes from URLs.
type Importer struct {
	textGen    llm.TextGenerator
	recipes    *store.Store
	httpClient *http.Client
}

// extractedRecipe is the shape the model is asked to return.
type extractedRecipe struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Ingredients     []string `json:"ingredients"`
	Instructions    []string `json:"instructions"`
	PreparationTime int      `json:"preparation_time"`
}

// New creates an Importer saving into the given store.
func New(textGen llm.TextGenerator, recipes *store.Store) *Importer {
	return &Importer{
		textGen: textGen,
		recipes: recipes,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ImportURL fetches the URL, extracts the recipe and saves it. An already
// saved recipe is reported through the outcome, not as an error.
func (i *Importer) ImportURL(ctx context.Context, url string) (mealplan.Recipe, store.SaveOutcome, error) {
	content, err := i.fetchAndCleanHTML(ctx, url)
	if err != nil {
		return mealplan.Recipe{}, 0, fmt.Errorf("failed to fetch content: %w", err)
	}

	recipe, err := i.extractRecipe(ctx, content)
	if err != nil {
		return mealplan.Recipe{}, 0, err
	}

	outcome, err := i.recipes.SaveRecipe(ctx, recipe)
	if err != nil {
		return mealplan.Recipe{}, 0, err
	}
	return recipe, outcome, nil
}

func (i *Importer) fetchAndCleanHTML(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := i.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	// Remove noise to save model tokens
	doc.Find("script, style, nav, footer, iframe, ads, .ads, #ads").Each(func(_ int, s *goquery.Selection) {
		s.Remove()
	})

	return doc.Find("body").Text(), nil
}

func (i *Importer) extractRecipe(ctx context.Context, content string) (mealplan.Recipe, error) {
	prompt := fmt.Sprintf(`
You are a recipe extraction expert. Extract the recipe details from the following page content.
Return the result strictly as a JSON object with this structure:
{
  "name": "Recipe name",
  "description": "One-line description",
  "ingredients": ["500 grams rice", "2 pieces chicken breast", ...],
  "instructions": ["Step 1 description", "Step 2 description", ...],
  "preparation_time": 30
}
preparation_time is in minutes. Each ingredient starts with its quantity and unit when known.

Page content:
%s
`, content)

	response, err := i.textGen.GenerateContent(ctx, prompt)
	if err != nil {
		return mealplan.Recipe{}, fmt.Errorf("ai extraction failed: %w", err)
	}

	var extracted extractedRecipe
	if err := json.Unmarshal([]byte(mealplan.StripFences(response)), &extracted); err != nil {
		return mealplan.Recipe{}, fmt.Errorf("failed to parse ai response: %w", err)
	}
	if extracted.Name == "" || len(extracted.Instructions) == 0 {
		return mealplan.Recipe{}, fmt.Errorf("page does not contain a usable recipe")
	}

	return mealplan.Recipe{
		Name:                extracted.Name,
		Description:         extracted.Description,
		RequiredIngredients: mealplan.ParseIngredients(extracted.Ingredients),
		Instructions:        extracted.Instructions,
		PreparationTime:     extracted.PreparationTime,
	}, nil
}
