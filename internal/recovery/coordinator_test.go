package recovery_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"fabula/internal/health"
	"fabula/internal/recovery"
	"fabula/internal/retry"
	"fabula/internal/services"
)

func newTestCoordinator() *recovery.Coordinator {
	coordinator := recovery.NewCoordinator(retry.DefaultPolicy(), health.NewTracker(), nil)
	coordinator.WithSleeper(func(ctx context.Context, d time.Duration) error { return nil })
	return coordinator
}

func TestRunCompletesFirstTry(t *testing.T) {
	coordinator := newTestCoordinator()
	unit := recovery.Unit{Operation: "compose-script", Service: "text", ProjectID: "p1", Stage: "script"}

	calls := 0
	outcome, err := coordinator.Run(context.Background(), unit, func(ctx context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if outcome.Status != recovery.OutcomeCompleted || outcome.Attempts != 1 {
		t.Fatalf("outcome = %+v, want completed in 1 attempt", outcome)
	}
	if calls != 1 {
		t.Fatalf("work invoked %d times, want 1", calls)
	}
}

func TestRunRetriesTransientThenSucceeds(t *testing.T) {
	coordinator := newTestCoordinator()
	unit := recovery.Unit{Operation: "generate-video", Service: "video", ProjectID: "p1", Stage: "video"}

	calls := 0
	outcome, err := coordinator.Run(context.Background(), unit, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return services.NewError("video", services.CodeTimeout, "render timed out")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if outcome.Attempts != 3 {
		t.Fatalf("attempts = %d, want 3", outcome.Attempts)
	}
	if len(coordinator.Failures("p1")) != 2 {
		t.Fatalf("expected 2 recorded failures, got %d", len(coordinator.Failures("p1")))
	}
}

func TestRunExhaustsRetriesAndReraisesOriginal(t *testing.T) {
	coordinator := newTestCoordinator()
	unit := recovery.Unit{Operation: "generate-image", Service: "image", ProjectID: "p1", Stage: "image"}

	cause := services.NewError("image", services.CodeTemporaryFailure, "backend overloaded")
	calls := 0
	_, err := coordinator.Run(context.Background(), unit, func(ctx context.Context) error {
		calls++
		return cause
	})
	if err == nil {
		t.Fatal("expected the original error after exhausting retries")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("returned error %v must be the original failure", err)
	}
	// Default policy allows 3 retries: 1 initial + 3 retry invocations.
	if calls != 4 {
		t.Fatalf("work invoked %d times, want 4", calls)
	}
}

func TestRunFallbackForContentFilter(t *testing.T) {
	coordinator := newTestCoordinator()
	unit := recovery.Unit{Operation: "generate-image", Service: "image", ProjectID: "p1", Stage: "image"}

	fallbackRan := false
	coordinator.RegisterFallback(services.CodeContentFiltered,
		func(ctx context.Context, u recovery.Unit, cause error) error {
			fallbackRan = true
			return nil
		})

	outcome, err := coordinator.Run(context.Background(), unit, func(ctx context.Context) error {
		return services.NewError("image", services.CodeContentFiltered, "prompt rejected")
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !fallbackRan {
		t.Fatal("fallback strategy did not run")
	}
	if outcome.Status != recovery.OutcomeFallback {
		t.Fatalf("outcome status = %q, want fallback", outcome.Status)
	}
	if outcome.Suggestion == "" {
		t.Fatal("fallback outcome should carry the resolver suggestion")
	}
}

func TestRunAbortsWithoutFallbackButCarriesSuggestion(t *testing.T) {
	coordinator := newTestCoordinator()
	unit := recovery.Unit{Operation: "expand-idea", Service: "text", ProjectID: "p1", Stage: "idea"}

	cause := services.NewError("text", services.CodeQuotaExceeded, "monthly quota used up")
	outcome, err := coordinator.Run(context.Background(), unit, func(ctx context.Context) error {
		return cause
	})
	if !errors.Is(err, cause) {
		t.Fatalf("expected the original error, got %v", err)
	}
	if outcome.Suggestion == "" {
		t.Fatal("quota failures should surface a suggestion even when aborting")
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	coordinator := newTestCoordinator()
	unit := recovery.Unit{Operation: "generate-speech", Service: "audio", ProjectID: "p1", Stage: "audio"}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	_, err := coordinator.Run(ctx, unit, func(ctx context.Context) error {
		calls++
		cancel()
		return services.NewError("audio", services.CodeTimeout, "synthesis timed out")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("cancelled run invoked work %d times, want 1", calls)
	}
}

func TestBuildReportRecommendsReducedConcurrency(t *testing.T) {
	coordinator := newTestCoordinator()
	unit := recovery.Unit{Operation: "generate-image", Service: "image", ProjectID: "p1", Stage: "image"}

	calls := 0
	_, _ = coordinator.Run(context.Background(), unit, func(ctx context.Context) error {
		calls++
		if calls > 3 {
			return nil
		}
		return services.NewError("image", services.CodeRateLimited, "too many requests")
	})

	report := coordinator.BuildReport("p1")
	if len(report.Failures) != 3 {
		t.Fatalf("expected 3 failures in report, got %d", len(report.Failures))
	}
	found := false
	for _, rec := range report.Recommendations {
		if strings.Contains(rec, "rate-limit") && strings.Contains(rec, "concurrency") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a concurrency recommendation, got %v", report.Recommendations)
	}
}
