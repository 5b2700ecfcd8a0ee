package genclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGeminiGenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		var gotPath, gotKey string
		var gotBody []byte
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotKey = r.URL.Query().Get("key")
			gotBody, _ = io.ReadAll(r.Body)
			w.Write([]byte(`{"candidates": [{"content": {"parts": [{"text": "hello"}]}}]}`))
		}))
		defer server.Close()

		client := NewGeminiClient("secret-key", "gemini-1.5-flash")
		client.baseURL = server.URL

		raw, err := client.Generate(ctx, Request{Prompt: "make me a plan"})
		if err != nil {
			t.Fatalf("Generate failed: %v", err)
		}
		if gotPath != "/v1beta/models/gemini-1.5-flash:generateContent" {
			t.Errorf("Unexpected path: %s", gotPath)
		}
		if gotKey != "secret-key" {
			t.Errorf("Expected api key as query parameter, got %q", gotKey)
		}
		if !strings.Contains(string(gotBody), "make me a plan") {
			t.Errorf("Expected prompt in request envelope, got %s", gotBody)
		}
		// The raw body comes back unmodified.
		if !strings.Contains(string(raw), `"candidates"`) {
			t.Errorf("Expected raw envelope, got %s", raw)
		}
	})

	t.Run("MissingKey", func(t *testing.T) {
		client := NewGeminiClient("", "gemini-1.5-flash")
		if _, err := client.Generate(ctx, Request{Prompt: "p"}); err == nil {
			t.Fatal("Expected an error for missing api key, got nil")
		}
	})

	t.Run("ConnectivityError", func(t *testing.T) {
		client := NewGeminiClient("key", "gemini-1.5-flash")
		client.baseURL = "http://127.0.0.1:1"

		_, err := client.Generate(ctx, Request{Prompt: "p"})
		var cerr *ConnectivityError
		if !errors.As(err, &cerr) {
			t.Fatalf("Expected ConnectivityError, got %v", err)
		}
		if cerr.Host == "" {
			t.Error("Expected the target host in the connectivity error")
		}
	})

	t.Run("MalformedSuccessBody", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		}))
		defer server.Close()

		client := NewGeminiClient("key", "gemini-1.5-flash")
		client.baseURL = server.URL

		_, err := client.Generate(ctx, Request{Prompt: "p"})
		var merr *MalformedResponseError
		if !errors.As(err, &merr) {
			t.Fatalf("Expected MalformedResponseError, got %v", err)
		}
		if !strings.Contains(merr.Excerpt, "not json") {
			t.Errorf("Expected body excerpt, got %q", merr.Excerpt)
		}
	})

	t.Run("APIError", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error": "API key not valid"}`))
		}))
		defer server.Close()

		client := NewGeminiClient("key", "gemini-1.5-flash")
		client.baseURL = server.URL

		_, err := client.Generate(ctx, Request{Prompt: "p"})
		var aerr *APIError
		if !errors.As(err, &aerr) {
			t.Fatalf("Expected APIError, got %v", err)
		}
		if aerr.Status != http.StatusBadRequest || aerr.Message != "API key not valid" {
			t.Errorf("Unexpected APIError: %+v", aerr)
		}
	})
}

func TestExtractErrorMessage(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		want   string
	}{
		{"DetailString", 404, `{"detail": "No suitable recipes found"}`, "No suitable recipes found"},
		{
			"DetailValidationList",
			422,
			`{"detail": [{"loc": ["body", "raw_ingredients"], "msg": "field required"}, {"loc": ["body", "date"], "msg": "invalid date"}]}`,
			"body.raw_ingredients: field required; body.date: invalid date",
		},
		{"MessageField", 500, `{"message": "upstream exploded"}`, "upstream exploded"},
		{"ErrorField", 403, `{"error": "forbidden by policy"}`, "forbidden by policy"},
		{"EmptyJSON", 502, `{}`, "502 Bad Gateway"},
		{"NonJSONBody", 500, `<html>Internal Server Error</html>`, "500 Internal Server Error: <html>Internal Server Error</html>"},
		{"EmptyBody", 503, ``, "503 Service Unavailable"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := extractErrorMessage(tc.status, []byte(tc.body))
			if got != tc.want {
				t.Errorf("extractErrorMessage(%d, %q) = %q, want %q", tc.status, tc.body, got, tc.want)
			}
		})
	}
}

func TestExtractErrorMessageTruncatesLongBodies(t *testing.T) {
	long := "<html>" + strings.Repeat("x", 1000)
	got := extractErrorMessage(500, []byte(long))
	if len(got) > len("500 Internal Server Error: ")+snippetLimit+3 {
		t.Errorf("Expected bounded snippet, got %d bytes", len(got))
	}
}
