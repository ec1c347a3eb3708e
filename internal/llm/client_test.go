package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"wartracker/internal/config"
)

func testConfig(endpoint string) config.LLMConfig {
	return config.LLMConfig{
		Endpoint:    endpoint,
		Model:       "gpt-test",
		APIKey:      "sk-test",
		Timeout:     2 * time.Second,
		MaxTokens:   100,
		Temperature: 0.1,
	}
}

func TestCompleteRoundTrip(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header %q", got)
		}

		var req completionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Model != "gpt-test" {
			t.Errorf("unexpected model %q", req.Model)
		}
		if len(req.Messages) != 2 || req.Messages[0].Role != "system" || req.Messages[1].Role != "user" {
			t.Errorf("unexpected messages: %+v", req.Messages)
		}
		if req.Temperature != 0.1 {
			t.Errorf("unexpected temperature %v", req.Temperature)
		}

		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"  NO_EVENT  "}}]}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	got, err := client.Complete(context.Background(), "system prompt", "user prompt")
	if err != nil {
		t.Fatalf("Complete error: %v", err)
	}
	if got != "NO_EVENT" {
		t.Fatalf("expected trimmed completion, got %q", got)
	}
}

func TestCompleteSurfacesProviderError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	_, err := client.Complete(context.Background(), "s", "u")
	if err == nil {
		t.Fatal("expected error for 429 response")
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Fatalf("error must carry response snippet: %v", err)
	}
}

func TestCompleteRejectsEmptyChoices(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL))
	if _, err := client.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestCompleteRequiresConfiguration(t *testing.T) {
	t.Parallel()

	client := NewClient(config.LLMConfig{})
	if _, err := client.Complete(context.Background(), "s", "u"); err == nil {
		t.Fatal("expected misconfiguration error")
	}
}
