// Package genclient issues generation requests either directly against the
// Gemini generateContent endpoint or through an intermediary backend, and maps
// transport and HTTP failures onto a small error taxonomy. Semantic validation
// of response bodies is deliberately left to the mealplan normalizer: on
// success both clients hand back the raw parsed JSON body unmodified.
package genclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
)

// Request carries the structured generation input. In proxy mode it is posted
// as-is; in direct mode only the pre-built Prompt is sent.
type Request struct {
	Date                string   `json:"date,omitempty"`
	RawIngredients      []string `json:"raw_ingredients"`
	DietaryPreference   string   `json:"dietary_preference"`
	ExcludedIngredients []string `json:"excluded_ingredients,omitempty"`
	MaxPreparationTime  *int     `json:"max_preparation_time,omitempty"`

	// Prompt is the rendered natural-language instruction, used in direct mode.
	Prompt string `json:"-"`
}

// Generator sends a generation request and returns the raw JSON response body.
type Generator interface {
	Generate(ctx context.Context, req Request) (json.RawMessage, error)
}

// decodeResponse applies the shared status/body discrimination: non-2xx turns
// into an APIError with an extracted message, a 2xx body that is not valid
// JSON turns into a MalformedResponseError, and anything else is returned raw.
func decodeResponse(resp *http.Response) (json.RawMessage, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &MalformedResponseError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			Status:  resp.StatusCode,
			Message: extractErrorMessage(resp.StatusCode, body),
		}
	}

	if !json.Valid(body) {
		return nil, &MalformedResponseError{
			Excerpt: snippet(body),
			Err:     errInvalidJSON,
		}
	}
	return json.RawMessage(body), nil
}
