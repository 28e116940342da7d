package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"fabula/internal/config"
	"fabula/internal/notifications"
)

func TestNewServiceReturnsNoopWhenTopicMissing(t *testing.T) {
	cfg := config.Default()
	cfg.Notifications.NtfyTopic = ""
	svc := notifications.NewService(&cfg)
	if err := svc.NotifyStageCompleted(context.Background(), "Example", "script"); err != nil {
		t.Fatalf("expected noop notifier to return nil, got %v", err)
	}
}

func TestNtfyServiceFormatsPayloads(t *testing.T) {
	tests := []struct {
		name           string
		notify         func(svc notifications.Service) error
		expectTitle    string
		expectMessage  string
		expectTags     string
		expectPriority string
	}{
		{
			name: "project initialized",
			notify: func(svc notifications.Service) error {
				return svc.NotifyProjectInitialized(context.Background(), "The Lighthouse", 10)
			},
			expectTitle:   "Fabula - Project Started",
			expectMessage: "Generation started: The Lighthouse (10 scenes)",
			expectTags:    "fabula,project,started",
		},
		{
			name: "stage completed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyStageCompleted(context.Background(), "The Lighthouse", "video")
			},
			expectTitle:   "Fabula - Stage Complete",
			expectMessage: "The Lighthouse: video stage complete",
			expectTags:    "fabula,video,completed",
		},
		{
			name: "budget warning",
			notify: func(svc notifications.Service) error {
				return svc.NotifyBudgetWarning(context.Background(), 82.0, 100.0)
			},
			expectTitle:    "Fabula - Budget Warning",
			expectMessage:  "Spending approaching limit: $82.00 of $100.00 used",
			expectTags:     "fabula,budget,warning",
			expectPriority: "high",
		},
		{
			name: "completed",
			notify: func(svc notifications.Service) error {
				return svc.NotifyCompleted(context.Background(), "The Lighthouse", "lighthouse.mp4", 42.50)
			},
			expectTitle:    "Fabula - Complete",
			expectMessage:  "Video ready: The Lighthouse (total cost $42.50)\nFile: lighthouse.mp4",
			expectTags:     "fabula,workflow,completed",
			expectPriority: "high",
		},
		{
			name: "error",
			notify: func(svc notifications.Service) error {
				return svc.NotifyError(context.Background(), errors.New("render timed out"), "video")
			},
			expectTitle:    "Fabula - Error",
			expectMessage:  "Error with video: render timed out",
			expectTags:     "fabula,error,alert",
			expectPriority: "high",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var captured struct {
				title    string
				tags     string
				priority string
				body     string
			}

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("unexpected method: %s", r.Method)
				}
				captured.title = r.Header.Get("Title")
				captured.tags = r.Header.Get("Tags")
				captured.priority = r.Header.Get("Priority")
				body, err := io.ReadAll(r.Body)
				if err != nil {
					t.Fatalf("read body: %v", err)
				}
				captured.body = string(body)
				_ = r.Body.Close()
				w.WriteHeader(http.StatusOK)
			}))
			defer server.Close()

			cfg := config.Default()
			cfg.Notifications.NtfyTopic = server.URL
			cfg.Notifications.RequestTimeout = 5

			svc := notifications.NewService(&cfg)
			if err := tc.notify(svc); err != nil {
				t.Fatalf("notification returned error: %v", err)
			}

			if captured.title != tc.expectTitle {
				t.Fatalf("expected title %q, got %q", tc.expectTitle, captured.title)
			}
			if captured.body != tc.expectMessage {
				t.Fatalf("expected message %q, got %q", tc.expectMessage, captured.body)
			}
			if captured.tags != tc.expectTags {
				t.Fatalf("expected tags %q, got %q", tc.expectTags, captured.tags)
			}
			if captured.priority != tc.expectPriority {
				t.Fatalf("expected priority %q, got %q", tc.expectPriority, captured.priority)
			}
		})
	}
}

func TestNtfyServiceSurfacesServerErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "topic not found", http.StatusNotFound)
	}))
	defer server.Close()

	cfg := config.Default()
	cfg.Notifications.NtfyTopic = server.URL
	cfg.Notifications.RequestTimeout = 5

	svc := notifications.NewService(&cfg)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}
