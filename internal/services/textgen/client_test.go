package textgen_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fabula/internal/services"
	"fabula/internal/services/textgen"
	"fabula/internal/story"
)

func chatResponse(content string) string {
	encoded, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}},
		},
	})
	return string(encoded)
}

func TestExpandIdeaParsesPremise(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Fatalf("authorization header = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(chatResponse(`{"synopsis":"A keeper weathers a storm.","genre":"Drama","tone":"Somber"}`)))
	}))
	defer server.Close()

	client := textgen.NewClient(textgen.Config{APIKey: "key", BaseURL: server.URL, Model: "m"})
	premise, err := client.ExpandIdea(context.Background(), "a lighthouse keeper in a storm")
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if premise.Genre != "drama" || premise.Tone != "somber" {
		t.Fatalf("premise = %+v", premise)
	}
	if premise.Synopsis == "" {
		t.Fatal("synopsis missing")
	}
}

func TestComposeScriptToleratesCodeFences(t *testing.T) {
	payload := "```json\n{\"title\":\"The Lighthouse\",\"scenes\":[{\"narration\":\"A storm gathers.\",\"visual_prompt\":\"dark sea\",\"duration_seconds\":5}]}\n```"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(chatResponse(payload)))
	}))
	defer server.Close()

	client := textgen.NewClient(textgen.Config{APIKey: "key", BaseURL: server.URL, Model: "m"})
	script, err := client.ComposeScript(context.Background(), story.Premise{Synopsis: "s"}, 1)
	if err != nil {
		t.Fatalf("compose: %v", err)
	}
	if script.Title != "The Lighthouse" || len(script.Scenes) != 1 {
		t.Fatalf("script = %+v", script)
	}
	if script.Scenes[0].DurationSeconds != 5 {
		t.Fatalf("scene duration = %v", script.Scenes[0].DurationSeconds)
	}
}

func TestRateLimitCarriesRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer server.Close()

	client := textgen.NewClient(textgen.Config{APIKey: "key", BaseURL: server.URL, Model: "m"})
	_, err := client.ExpandIdea(context.Background(), "idea")
	if err == nil {
		t.Fatal("expected rate limit error")
	}
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected normalized error, got %v", err)
	}
	if svcErr.Code != services.CodeRateLimited {
		t.Fatalf("code = %q, want rate_limited", svcErr.Code)
	}
	if svcErr.RetryAfter != 7*time.Second {
		t.Fatalf("retry after = %v, want 7s", svcErr.RetryAfter)
	}
}

func TestRefusalMapsToContentFiltered(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		encoded, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"refusal": "cannot write this"}},
			},
		})
		_, _ = w.Write(encoded)
	}))
	defer server.Close()

	client := textgen.NewClient(textgen.Config{APIKey: "key", BaseURL: server.URL, Model: "m"})
	_, err := client.ExpandIdea(context.Background(), "idea")
	var svcErr *services.Error
	if !errors.As(err, &svcErr) || svcErr.Code != services.CodeContentFiltered {
		t.Fatalf("expected content_filtered, got %v", err)
	}
}

func TestMissingAPIKeyIsConfigurationError(t *testing.T) {
	client := textgen.NewClient(textgen.Config{Model: "m"})
	_, err := client.ExpandIdea(context.Background(), "idea")
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
