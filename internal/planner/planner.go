// Package planner runs the generation pipeline: validate input, build the
// prompt/request, call the generation client, normalize the response, and
// publish the resulting candidates to the recipe store.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/karanpatel1993/meal-planner-buddy/internal/genclient"
	"github.com/karanpatel1993/meal-planner-buddy/internal/mealplan"
	"github.com/karanpatel1993/meal-planner-buddy/internal/metrics"
	"github.com/karanpatel1993/meal-planner-buddy/internal/store"
)

// ErrInvalidInput covers requests rejected before any network call.
var ErrInvalidInput = errors.New("invalid input")

// Input is the structured user input for one generation.
type Input struct {
	// Ingredients holds raw lines of user input, one ingredient per line.
	Ingredients []string
	// DietaryPreference is empty for no restriction.
	DietaryPreference string
	ExcludedIngredients []string
	// MaxPreparationTime in minutes; 0 means no limit.
	MaxPreparationTime int
	// Date in ISO form; empty defaults to today.
	Date string
}

// Planner orchestrates generation. It does no rendering and never retries;
// every failure surfaces exactly once to the caller.
type Planner struct {
	mode    string
	model   string
	gen     genclient.Generator
	recipes *store.Store
	metrics *metrics.Store
}

// New creates a Planner. metricsStore may be nil to disable recording.
func New(mode, model string, gen genclient.Generator, recipes *store.Store, metricsStore *metrics.Store) *Planner {
	return &Planner{mode: mode, model: model, gen: gen, recipes: recipes, metrics: metricsStore}
}

// Plan generates a meal plan or recipe list. On success the plan's candidate
// recipes replace the store's candidate set; on failure neither the store nor
// any prior state is touched.
func (p *Planner) Plan(ctx context.Context, in Input) (*mealplan.Plan, error) {
	ingredients := cleanLines(in.Ingredients)
	if len(ingredients) == 0 {
		return nil, fmt.Errorf("%w: at least one ingredient is required", ErrInvalidInput)
	}

	date := in.Date
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	prompt, err := buildPrompt(promptData{
		Ingredients:         ingredients,
		DietaryPreference:   in.DietaryPreference,
		ExcludedIngredients: in.ExcludedIngredients,
		MaxPreparationTime:  in.MaxPreparationTime,
		Date:                date,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build prompt: %w", err)
	}

	req := genclient.Request{
		Date:                date,
		RawIngredients:      ingredients,
		DietaryPreference:   in.DietaryPreference,
		ExcludedIngredients: in.ExcludedIngredients,
		Prompt:              prompt,
	}
	if in.MaxPreparationTime > 0 {
		req.MaxPreparationTime = &in.MaxPreparationTime
	}

	start := time.Now()
	raw, err := p.gen.Generate(ctx, req)
	if err != nil {
		p.record(ctx, metrics.OutcomeFailure, start)
		if errors.Is(err, genclient.ErrNoAPIKey) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		return nil, err
	}

	plan, err := mealplan.Normalize(raw)
	if err != nil {
		p.record(ctx, metrics.OutcomeFailure, start)
		return nil, err
	}

	p.record(ctx, metrics.OutcomeSuccess, start)
	p.recipes.SetCandidates(ctx, plan.CandidateRecipes())
	return plan, nil
}

func (p *Planner) record(ctx context.Context, outcome string, start time.Time) {
	if p.metrics == nil {
		return
	}
	err := p.metrics.Record(ctx, metrics.Execution{
		Mode:      p.mode,
		Model:     p.model,
		Outcome:   outcome,
		LatencyMS: time.Since(start).Milliseconds(),
	})
	if err != nil {
		log.Printf("Warning: failed to record metric: %v", err)
	}
}

func cleanLines(lines []string) []string {
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}
	return cleaned
}
