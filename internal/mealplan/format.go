package mealplan

import (
	"fmt"
	"strings"
)

// FormatPlan renders a plan as human-readable text for the CLI and the
// Telegram bot. All rendering stays out of the core pipeline; this is the
// one text surface the presentation layers share.
func FormatPlan(p *Plan) string {
	var sb strings.Builder
	switch p.Kind {
	case KindDailyPlan:
		formatDaily(&sb, p.Daily)
	case KindRecipeList:
		formatRecipeList(&sb, p.Recipes)
	}
	return sb.String()
}

func formatDaily(sb *strings.Builder, daily *DailyPlan) {
	fmt.Fprintf(sb, "Meal Plan for %s\n", daily.Date)
	formatMeal(sb, "Breakfast", daily.Breakfast)
	formatMeal(sb, "Lunch", daily.Lunch)
	formatMeal(sb, "Dinner", daily.Dinner)

	sb.WriteString("\n=== Shopping List ===\n")
	if len(daily.ShoppingList) == 0 {
		sb.WriteString("Nothing to buy.\n")
		return
	}
	for _, ing := range daily.ShoppingList {
		fmt.Fprintf(sb, "- %s\n", ing)
	}
}

func formatMeal(sb *strings.Builder, slot string, meal Meal) {
	fmt.Fprintf(sb, "\n=== %s ===\n", slot)
	fmt.Fprintf(sb, "Recipe: %s\n", meal.Recipe.Name)
	if meal.Recipe.Description != "" {
		fmt.Fprintf(sb, "Description: %s\n", meal.Recipe.Description)
	}
	sb.WriteString("Using:\n")
	for _, ing := range meal.UsedIngredients {
		fmt.Fprintf(sb, "- %s\n", ing)
	}
	sb.WriteString("Missing:\n")
	for _, ing := range meal.MissingIngredients {
		fmt.Fprintf(sb, "- %s\n", ing)
	}
}

func formatRecipeList(sb *strings.Builder, recipes []Recipe) {
	if len(recipes) == 0 {
		sb.WriteString("No recipes generated.\n")
		return
	}
	for i, r := range recipes {
		fmt.Fprintf(sb, "%d. %s\n", i+1, r.Name)
		if r.Description != "" {
			fmt.Fprintf(sb, "   %s\n", r.Description)
		}
		sb.WriteString("   Ingredients:\n")
		for _, ing := range r.RequiredIngredients {
			fmt.Fprintf(sb, "   - %s\n", ing)
		}
		sb.WriteString("   Instructions:\n")
		for j, step := range r.Instructions {
			fmt.Fprintf(sb, "   %d) %s\n", j+1, step)
		}
	}
}
