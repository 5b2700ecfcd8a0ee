package genclient

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/karanpatel1993/meal-planner-buddy/internal/mealplan"
)

// ProxyClient talks to the backend service instead of the model provider.
// The Gemini credential never leaves the client; requests are authenticated
// with a short-lived token minted from the "id:secret" service key when one
// is configured.
type ProxyClient struct {
	baseURL    string
	serviceKey string
	httpClient *http.Client
}

// NewProxyClient creates a proxy-mode client for the given base URL.
// serviceKey may be empty, in which case requests go out unauthenticated.
func NewProxyClient(baseURL, serviceKey string) *ProxyClient {
	return &ProxyClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Generate posts the structured request to /api/generate-meal-plan and
// returns the raw JSON body, which may be either plan shape.
func (c *ProxyClient) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	return c.do(ctx, http.MethodPost, "/api/generate-meal-plan", req)
}

// SavedRecipes lists the recipes persisted on the backend.
func (c *ProxyClient) SavedRecipes(ctx context.Context) ([]mealplan.SavedRecipe, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/saved-recipes", nil)
	if err != nil {
		return nil, err
	}
	var saved []mealplan.SavedRecipe
	if err := json.Unmarshal(raw, &saved); err != nil {
		return nil, &MalformedResponseError{Excerpt: snippet(raw), Err: err}
	}
	return saved, nil
}

// SaveRecipe persists a recipe on the backend under the given id.
func (c *ProxyClient) SaveRecipe(ctx context.Context, id string, recipe mealplan.Recipe) error {
	_, err := c.do(ctx, http.MethodPost, "/api/save-recipe/"+id, recipe)
	return err
}

// DeleteRecipe removes a saved recipe on the backend.
func (c *ProxyClient) DeleteRecipe(ctx context.Context, id string) error {
	_, err := c.do(ctx, http.MethodDelete, "/api/delete-recipe/"+id, nil)
	return err
}

func (c *ProxyClient) do(ctx context.Context, method, path string, payload any) (json.RawMessage, error) {
	var body *bytes.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(encoded)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if c.serviceKey != "" {
		token, err := c.mintToken()
		if err != nil {
			return nil, fmt.Errorf("failed to mint service token: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ConnectivityError{Host: req.URL.Host, Err: err}
	}
	defer resp.Body.Close()

	// Deletes ack with an empty body; don't force that through JSON validation.
	ok := resp.StatusCode >= 200 && resp.StatusCode <= 299
	if ok && (resp.StatusCode == http.StatusNoContent || method == http.MethodDelete) {
		return nil, nil
	}
	return decodeResponse(resp)
}

// mintToken creates a short-lived HS256 token from the "id:secret" service
// key, with the key id in the header so the server can pick the right secret.
func (c *ProxyClient) mintToken() (string, error) {
	keyParts := strings.Split(c.serviceKey, ":")
	if len(keyParts) != 2 {
		return "", fmt.Errorf("invalid service key format: expected id:secret")
	}

	secret, err := hex.DecodeString(keyParts[1])
	if err != nil {
		return "", fmt.Errorf("failed to decode secret hex: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(5 * time.Minute).Unix(),
		"aud": "/api/",
	})
	token.Header["kid"] = keyParts[0]

	return token.SignedString(secret)
}
