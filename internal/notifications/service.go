package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"fabula/internal/config"
)

const userAgent = "Fabula/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyProjectInitialized(ctx context.Context, title string, sceneCount int) error
	NotifyStageStarted(ctx context.Context, title, stage string) error
	NotifyStageCompleted(ctx context.Context, title, stage string) error
	NotifyBudgetWarning(ctx context.Context, spent, limit float64) error
	NotifyPaused(ctx context.Context, title, stage string) error
	NotifyResumed(ctx context.Context, title, stage string) error
	NotifyProgressSaved(ctx context.Context, title, stage string) error
	NotifyCompleted(ctx context.Context, title, outputFile string, totalCost float64) error
	NotifyError(ctx context.Context, err error, context string) error
	NotifyCleanup(ctx context.Context, removed int) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint: topic,
		client:   client,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyProjectInitialized(ctx context.Context, title string, sceneCount int) error {
	title = strings.TrimSpace(title)
	data := payload{
		title:   "Fabula - Project Started",
		message: fmt.Sprintf("Generation started: %s (%d scenes)", title, sceneCount),
		tags:    []string{"fabula", "project", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyStageStarted(ctx context.Context, title, stage string) error {
	data := payload{
		title:   "Fabula - Stage Started",
		message: fmt.Sprintf("%s: %s stage started", strings.TrimSpace(title), stage),
		tags:    []string{"fabula", stage, "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyStageCompleted(ctx context.Context, title, stage string) error {
	data := payload{
		title:   "Fabula - Stage Complete",
		message: fmt.Sprintf("%s: %s stage complete", strings.TrimSpace(title), stage),
		tags:    []string{"fabula", stage, "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBudgetWarning(ctx context.Context, spent, limit float64) error {
	data := payload{
		title:    "Fabula - Budget Warning",
		message:  fmt.Sprintf("Spending approaching limit: $%.2f of $%.2f used", spent, limit),
		tags:     []string{"fabula", "budget", "warning"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyPaused(ctx context.Context, title, stage string) error {
	data := payload{
		title:   "Fabula - Paused",
		message: fmt.Sprintf("%s paused during %s stage", strings.TrimSpace(title), stage),
		tags:    []string{"fabula", "pause"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyResumed(ctx context.Context, title, stage string) error {
	data := payload{
		title:   "Fabula - Resumed",
		message: fmt.Sprintf("%s resumed at %s stage", strings.TrimSpace(title), stage),
		tags:    []string{"fabula", "resume"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyProgressSaved(ctx context.Context, title, stage string) error {
	data := payload{
		title:   "Fabula - Progress Saved",
		message: fmt.Sprintf("%s: progress saved at %s stage", strings.TrimSpace(title), stage),
		tags:    []string{"fabula", "checkpoint"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCompleted(ctx context.Context, title, outputFile string, totalCost float64) error {
	title = strings.TrimSpace(title)
	message := fmt.Sprintf("Video ready: %s (total cost $%.2f)", title, totalCost)
	if outputFile = strings.TrimSpace(outputFile); outputFile != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, outputFile)
	}
	data := payload{
		title:    "Fabula - Complete",
		message:  message,
		tags:     []string{"fabula", "workflow", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Fabula - Error",
		message:  builder.String(),
		tags:     []string{"fabula", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyCleanup(ctx context.Context, removed int) error {
	data := payload{
		title:   "Fabula - Cleanup",
		message: fmt.Sprintf("Removed %d stale working files", removed),
		tags:    []string{"fabula", "cleanup"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Fabula - Test",
		message:  "Notification system test",
		tags:     []string{"fabula", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyProjectInitialized(context.Context, string, int) error     { return nil }
func (noopService) NotifyStageStarted(context.Context, string, string) error        { return nil }
func (noopService) NotifyStageCompleted(context.Context, string, string) error      { return nil }
func (noopService) NotifyBudgetWarning(context.Context, float64, float64) error     { return nil }
func (noopService) NotifyPaused(context.Context, string, string) error              { return nil }
func (noopService) NotifyResumed(context.Context, string, string) error             { return nil }
func (noopService) NotifyProgressSaved(context.Context, string, string) error       { return nil }
func (noopService) NotifyCompleted(context.Context, string, string, float64) error  { return nil }
func (noopService) NotifyError(context.Context, error, string) error                { return nil }
func (noopService) NotifyCleanup(context.Context, int) error                        { return nil }
func (noopService) TestNotification(context.Context) error                          { return nil }
