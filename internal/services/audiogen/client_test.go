package audiogen_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"fabula/internal/services"
	"fabula/internal/services/audiogen"
)

func TestSpeakReturnsAsset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/speech" {
			t.Fatalf("unexpected path %q", r.URL.Path)
		}
		var payload struct {
			Voice string `json:"voice"`
			Text  string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if payload.Voice != "narrator" || payload.Text == "" {
			t.Fatalf("request payload = %+v", payload)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"url":              "https://cdn.example/clip.mp3",
			"format":           "mp3",
			"duration_seconds": 5.4,
		})
	}))
	defer server.Close()

	client := audiogen.NewClient(audiogen.Config{
		APIKey: "key", BaseURL: server.URL, Model: "tts-multilingual", Voice: "narrator",
	})
	asset, err := client.Speak(context.Background(), "A storm gathers.")
	if err != nil {
		t.Fatalf("speak: %v", err)
	}
	if asset.Location != "https://cdn.example/clip.mp3" || asset.DurationSeconds != 5.4 {
		t.Fatalf("asset = %+v", asset)
	}
}

func TestComposeRejectsNonPositiveDuration(t *testing.T) {
	client := audiogen.NewClient(audiogen.Config{APIKey: "key", BaseURL: "http://localhost"})
	if _, err := client.Compose(context.Background(), "calm piano", 0); err == nil {
		t.Fatal("expected duration validation error")
	}
}

func TestSpeakNormalizesServerOverload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := audiogen.NewClient(audiogen.Config{APIKey: "key", BaseURL: server.URL})
	_, err := client.Speak(context.Background(), "text")
	var svcErr *services.Error
	if !errors.As(err, &svcErr) {
		t.Fatalf("expected normalized error, got %v", err)
	}
	if svcErr.Code != services.CodeServiceUnavailable || !svcErr.Retryable {
		t.Fatalf("error = %+v", svcErr)
	}
}
