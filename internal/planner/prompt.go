package planner

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"
)

//go:embed plan_prompt.md
var planPrompt string

// promptData is the template input. Absent optional fields render nothing;
// the template never fails on them.
type promptData struct {
	Ingredients         []string
	DietaryPreference   string
	ExcludedIngredients []string
	MaxPreparationTime  int
	Date                string
}

var promptTemplate = template.Must(
	template.New("plan").Funcs(template.FuncMap{"join": strings.Join}).Parse(planPrompt),
)

// buildPrompt renders the generation prompt. The embedded JSON structure in
// the template is the contract the normalizer validates against; the two are
// exercised together in tests.
func buildPrompt(data promptData) (string, error) {
	var buf bytes.Buffer
	if err := promptTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
