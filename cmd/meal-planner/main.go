package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/karanpatel1993/meal-planner-buddy/internal/config"
	"github.com/karanpatel1993/meal-planner-buddy/internal/database"
	"github.com/karanpatel1993/meal-planner-buddy/internal/genclient"
	"github.com/karanpatel1993/meal-planner-buddy/internal/importer"
	"github.com/karanpatel1993/meal-planner-buddy/internal/llm"
	"github.com/karanpatel1993/meal-planner-buddy/internal/mealplan"
	"github.com/karanpatel1993/meal-planner-buddy/internal/metrics"
	"github.com/karanpatel1993/meal-planner-buddy/internal/planner"
	"github.com/karanpatel1993/meal-planner-buddy/internal/settings"
	"github.com/karanpatel1993/meal-planner-buddy/internal/store"
)

func main() {
	ctx := context.Background()

	cfg, err := config.NewFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.NewDB(ctx, cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	settingsStore := settings.NewStore(db.SQL)
	metricsStore := metrics.NewStore(db.SQL)

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	// set-key works without a generation client; handle it before wiring one.
	if os.Args[1] == "set-key" {
		if len(os.Args) != 3 {
			log.Fatal("Usage: meal-planner set-key <gemini-api-key>")
		}
		if err := settingsStore.Set(ctx, settings.KeyAPIKey, os.Args[2]); err != nil {
			log.Fatalf("Failed to store API key: %v", err)
		}
		fmt.Println("API key stored.")
		return
	}

	apiKey, err := resolveAPIKey(ctx, cfg, settingsStore)
	if err != nil {
		log.Fatalf("Failed to load API key: %v", err)
	}

	var gen genclient.Generator
	var proxyClient *genclient.ProxyClient
	if cfg.Mode == config.ModeProxy {
		proxyClient = genclient.NewProxyClient(cfg.BackendURL, cfg.ServiceKey)
		gen = proxyClient
	} else {
		gen = genclient.NewGeminiClient(apiKey, cfg.GeminiModel)
	}

	var repo store.Repository
	if cfg.Mode == config.ModeProxy {
		repo = store.NewRemoteRepository(proxyClient)
	} else {
		repo = store.NewSQLiteRepository(db.SQL)
	}

	// Each CLI invocation is its own process; the cache is what lets
	// "save 2" find the candidates a previous "plan" produced.
	recipes, err := store.NewWithCache(ctx, repo, store.NewSQLiteCandidateCache(db.SQL))
	if err != nil {
		log.Fatalf("Failed to load saved recipes: %v", err)
	}

	mealPlanner := planner.New(string(cfg.Mode), cfg.GeminiModel, gen, recipes, metricsStore)

	switch os.Args[1] {
	case "plan":
		err = runPlan(ctx, mealPlanner, recipes, os.Args[2:])
	case "save":
		err = runSave(ctx, recipes, os.Args[2:])
	case "list":
		err = runList(recipes)
	case "delete":
		err = runDelete(ctx, recipes, os.Args[2:])
	case "import":
		err = runImport(ctx, cfg, apiKey, recipes, os.Args[2:])
	case "metrics":
		err = runMetrics(ctx, metricsStore, os.Args[2:])
	case "metrics-cleanup":
		err = runMetricsCleanup(ctx, metricsStore, os.Args[2:])
	default:
		fmt.Printf("Unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
}

// resolveAPIKey prefers the environment and falls back to the stored setting.
func resolveAPIKey(ctx context.Context, cfg *config.Config, settingsStore *settings.Store) (string, error) {
	if cfg.GeminiAPIKey != "" {
		return cfg.GeminiAPIKey, nil
	}
	return settingsStore.Get(ctx, settings.KeyAPIKey)
}

func runPlan(ctx context.Context, mealPlanner *planner.Planner, recipes *store.Store, args []string) error {
	planCmd := flag.NewFlagSet("plan", flag.ExitOnError)
	diet := planCmd.String("diet", "", "Dietary preference (vegetarian, vegan, keto, paleo)")
	exclude := planCmd.String("exclude", "", "Comma-separated ingredients to avoid")
	maxPrep := planCmd.Int("max-prep", 0, "Maximum preparation time in minutes")
	date := planCmd.String("date", "", "Plan date (YYYY-MM-DD, default today)")
	planCmd.Parse(args)

	ingredients := planCmd.Args()
	if len(ingredients) == 0 {
		fmt.Println("Enter your ingredients, one per line, then EOF (Ctrl-D):")
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			ingredients = append(ingredients, scanner.Text())
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read ingredients: %w", err)
		}
	}

	in := planner.Input{
		Ingredients:        ingredients,
		DietaryPreference:  *diet,
		MaxPreparationTime: *maxPrep,
		Date:               *date,
	}
	if *exclude != "" {
		for _, e := range strings.Split(*exclude, ",") {
			in.ExcludedIngredients = append(in.ExcludedIngredients, strings.TrimSpace(e))
		}
	}

	plan, err := mealPlanner.Plan(ctx, in)
	if err != nil {
		return describePlanError(err)
	}

	fmt.Println(mealplan.FormatPlan(plan))
	if candidates := recipes.Candidates(); len(candidates) > 0 {
		fmt.Println("Recipes in this plan:")
		for i, r := range candidates {
			fmt.Printf("  %d. %s\n", i+1, r.Name)
		}
		fmt.Println("Save one with: meal-planner save <number>")
	}
	return nil
}

// describePlanError keeps the CLI output actionable for the common failures.
func describePlanError(err error) error {
	var connErr *genclient.ConnectivityError
	var apiErr *genclient.APIError
	var normErr *mealplan.NormalizeError
	switch {
	case errors.Is(err, genclient.ErrNoAPIKey):
		return fmt.Errorf("no API key configured; run: meal-planner set-key <key>, or set GEMINI_API_KEY")
	case errors.As(err, &connErr):
		return fmt.Errorf("could not reach %s; check your network and try again", connErr.Host)
	case errors.As(err, &apiErr):
		return fmt.Errorf("the service rejected the request: %s", apiErr.Message)
	case errors.As(err, &normErr):
		return fmt.Errorf("the model returned an unusable response; try again")
	}
	return err
}

func runSave(ctx context.Context, recipes *store.Store, args []string) error {
	index, err := parseIndexArg(args, "save")
	if err != nil {
		return err
	}
	outcome, err := recipes.Save(ctx, index)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no recipe %d in the last plan; run plan first", index+1)
	}
	if err != nil {
		return err
	}
	if outcome == store.OutcomeAlreadySaved {
		fmt.Println("That recipe is already saved.")
		return nil
	}
	fmt.Println("Recipe saved.")
	return nil
}

func runList(recipes *store.Store) error {
	saved := recipes.List()
	if len(saved) == 0 {
		fmt.Println("No saved recipes yet.")
		return nil
	}
	for i, s := range saved {
		fmt.Printf("%d. %s\n", i+1, s.Recipe.Name)
		if s.Recipe.Description != "" {
			fmt.Printf("   %s\n", s.Recipe.Description)
		}
	}
	return nil
}

func runDelete(ctx context.Context, recipes *store.Store, args []string) error {
	index, err := parseIndexArg(args, "delete")
	if err != nil {
		return err
	}
	err = recipes.Delete(ctx, index)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("no saved recipe %d; run list to see the numbers", index+1)
	}
	if err != nil {
		return err
	}
	fmt.Println("Recipe deleted.")
	return nil
}

func runImport(ctx context.Context, cfg *config.Config, apiKey string, recipes *store.Store, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: meal-planner import <url>")
	}
	if apiKey == "" {
		return fmt.Errorf("recipe import needs an API key; run: meal-planner set-key <key>")
	}

	textGen, err := llm.NewGeminiClient(ctx, apiKey, cfg.GeminiModel)
	if err != nil {
		return fmt.Errorf("failed to initialize model client: %w", err)
	}
	if closer, ok := textGen.(llm.Closer); ok {
		defer closer.Close()
	}

	recipe, outcome, err := importer.New(textGen, recipes).ImportURL(ctx, args[0])
	if err != nil {
		return err
	}
	if outcome == store.OutcomeAlreadySaved {
		fmt.Printf("%q is already in your saved recipes.\n", recipe.Name)
		return nil
	}
	fmt.Printf("Imported and saved %q.\n", recipe.Name)
	return nil
}

func runMetrics(ctx context.Context, metricsStore *metrics.Store, args []string) error {
	metricsCmd := flag.NewFlagSet("metrics", flag.ExitOnError)
	n := metricsCmd.Int("n", 10, "Number of recent generations to show")
	metricsCmd.Parse(args)

	recent, err := metricsStore.Recent(ctx, *n)
	if err != nil {
		return err
	}
	if len(recent) == 0 {
		fmt.Println("No generations recorded yet.")
		return nil
	}
	for _, e := range recent {
		fmt.Printf("%s  %-6s %-7s %s  %dms\n",
			e.Timestamp.Format("2006-01-02 15:04:05"), e.Mode, e.Outcome, e.Model, e.LatencyMS)
	}
	return nil
}

func runMetricsCleanup(ctx context.Context, metricsStore *metrics.Store, args []string) error {
	cleanupCmd := flag.NewFlagSet("metrics-cleanup", flag.ExitOnError)
	days := cleanupCmd.Int("days", 30, "Keep records for the last N days")
	cleanupCmd.Parse(args)

	affected, err := metricsStore.Cleanup(ctx, *days)
	if err != nil {
		return err
	}
	fmt.Printf("Removed %d old metric records.\n", affected)
	return nil
}

func parseIndexArg(args []string, command string) (int, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("usage: meal-planner %s <number>", command)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%q is not a recipe number", args[0])
	}
	return n - 1, nil
}

func printUsage() {
	fmt.Println("Usage: meal-planner <command> [arguments]")
	fmt.Println("\nCommands:")
	fmt.Println("  plan [flags] [ingredients...]   Generate a one-day meal plan")
	fmt.Println("  save <number>                   Save a recipe from the last plan")
	fmt.Println("  list                            List saved recipes")
	fmt.Println("  delete <number>                 Delete a saved recipe")
	fmt.Println("  import <url>                    Import a recipe from a web page")
	fmt.Println("  set-key <key>                   Store the Gemini API key")
	fmt.Println("  metrics                         Show recent generation stats")
	fmt.Println("  metrics-cleanup                 Remove old metric records")
}
