package genclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"

// ErrNoAPIKey means direct mode was used without a configured credential.
// It is surfaced before any network traffic happens.
var ErrNoAPIKey = errors.New("gemini api key not configured")

// GeminiClient calls the generateContent endpoint directly, authenticating
// with the user's API key as a query parameter.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewGeminiClient creates a direct-mode generation client.
func NewGeminiClient(apiKey, model string) *GeminiClient {
	return &GeminiClient{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultGeminiBaseURL,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// geminiRequest is the provider envelope wrapping the prompt text.
type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

// Generate posts the prompt and returns the raw candidates envelope. The
// normalizer unwraps it; nothing here inspects the generated content.
func (c *GeminiClient) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	if c.apiKey == "" {
		return nil, ErrNoAPIKey
	}

	body, err := json.Marshal(geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: req.Prompt}}}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.baseURL, c.model, url.QueryEscape(c.apiKey))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &ConnectivityError{Host: httpReq.URL.Host, Err: err}
	}
	defer resp.Body.Close()

	return decodeResponse(resp)
}
