package retry_test

import (
	"errors"
	"testing"
	"time"

	"fabula/internal/retry"
	"fabula/internal/services"
)

func fixedPolicy() retry.Policy {
	return retry.Policy{
		MaxRetries:  3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		BackoffBase: 2.0,
		Jitter:      false,
	}
}

func TestRetryableClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"plain", errors.New("boom"), false},
		{"transient sentinel", services.Wrap(services.ErrTransient, "text", "generate", "blip", nil), true},
		{"declared retryable", services.NewError("text", services.CodeRateLimited, "slow down"), true},
		{"timeout code", services.NewError("video", services.CodeTimeout, "deadline"), true},
		{"5xx status", &services.Error{Service: "image", Code: services.CodeUnknown, Status: 502}, true},
		{"429 status", &services.Error{Service: "image", Code: services.CodeUnknown, Status: 429}, true},
		{"quota", services.NewError("text", services.CodeQuotaExceeded, "spent"), false},
		{"filtered", services.NewError("text", services.CodeContentFiltered, "blocked"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retry.Retryable(tt.err); got != tt.retryable {
				t.Fatalf("Retryable=%v, want %v", got, tt.retryable)
			}
		})
	}
}

func TestDelayGrowsAndCaps(t *testing.T) {
	policy := fixedPolicy()
	err := services.NewError("text", services.CodeTimeout, "deadline")

	var prev time.Duration
	for attempt := 0; attempt < 10; attempt++ {
		delay := policy.Delay(err, attempt)
		if delay < prev {
			t.Fatalf("delay decreased at attempt %d: %s < %s", attempt, delay, prev)
		}
		if delay > policy.MaxDelay {
			t.Fatalf("delay %s exceeds cap %s", delay, policy.MaxDelay)
		}
		prev = delay
	}

	if got := policy.Delay(err, 0); got != time.Second {
		t.Fatalf("attempt 0 delay = %s, want 1s", got)
	}
	if got := policy.Delay(err, 2); got != 4*time.Second {
		t.Fatalf("attempt 2 delay = %s, want 4s", got)
	}
}

func TestDelayHonorsSuggestedRetryAfter(t *testing.T) {
	policy := fixedPolicy()
	err := &services.Error{Service: "text", Code: services.CodeRateLimited, Retryable: true, RetryAfter: 9 * time.Second}
	if got := policy.Delay(err, 0); got != 9*time.Second {
		t.Fatalf("delay = %s, want suggested 9s", got)
	}

	err.RetryAfter = 5 * time.Minute
	if got := policy.Delay(err, 0); got != policy.MaxDelay {
		t.Fatalf("delay = %s, want capped %s", got, policy.MaxDelay)
	}
}

func TestJitterStaysWithinBounds(t *testing.T) {
	policy := fixedPolicy()
	policy.Jitter = true
	err := services.NewError("text", services.CodeTimeout, "deadline")

	low := policy.WithRand(func() float64 { return 0 })
	if got := low.Delay(err, 1); got != time.Second {
		t.Fatalf("low jitter delay = %s, want 1s (0.5 x 2s)", got)
	}
	high := policy.WithRand(func() float64 { return 1 })
	if got := high.Delay(err, 1); got != 2*time.Second {
		t.Fatalf("high jitter delay = %s, want 2s", got)
	}
}

func TestResolveDecisions(t *testing.T) {
	policy := fixedPolicy()

	retryErr := services.NewError("text", services.CodeTemporaryFailure, "blip")
	if res := policy.Resolve(retryErr, 0); res.Decision != retry.DecisionRetry {
		t.Fatalf("expected retry, got %s", res.Decision)
	}
	if res := policy.Resolve(retryErr, policy.MaxRetries); res.Decision != retry.DecisionAbort {
		t.Fatal("expected abort once attempts are exhausted")
	}

	quota := services.NewError("text", services.CodeQuotaExceeded, "spent")
	res := policy.Resolve(quota, 0)
	if res.Decision != retry.DecisionFallback {
		t.Fatalf("expected fallback, got %s", res.Decision)
	}
	if res.Suggestion == "" {
		t.Fatal("fallback resolutions must carry a suggestion")
	}

	if res := policy.Resolve(errors.New("hard failure"), 0); res.Decision != retry.DecisionAbort {
		t.Fatalf("expected abort, got %s", res.Decision)
	}
}
