package health_test

import (
	"errors"
	"testing"
	"time"

	"fabula/internal/health"
	"fabula/internal/services"
)

func TestErrorRateEscalation(t *testing.T) {
	tracker := health.NewTracker()
	failure := errors.New("request failed")

	for i := 0; i < 3; i++ {
		tracker.RecordFailure("image", failure)
	}
	if got := tracker.Verdict("image"); got != health.StatusAvailable {
		t.Fatalf("rate 0.3 should still be available, got %s", got)
	}

	tracker.RecordFailure("image", failure)
	if got := tracker.Verdict("image"); got != health.StatusDegraded {
		t.Fatalf("rate 0.4 should be degraded, got %s", got)
	}

	for i := 0; i < 5; i++ {
		tracker.RecordFailure("image", failure)
	}
	if got := tracker.Verdict("image"); got != health.StatusUnavailable {
		t.Fatalf("rate 0.9 should be unavailable for a skippable service, got %s", got)
	}
}

func TestCriticalServiceNeverUnavailableByRateAlone(t *testing.T) {
	tracker := health.NewTracker()
	failure := errors.New("request failed")

	for i := 0; i < 20; i++ {
		tracker.RecordFailure("video", failure)
	}
	if got := tracker.Verdict("video"); got != health.StatusDegraded {
		t.Fatalf("video should cap at degraded without an explicit signal, got %s", got)
	}

	explicit := services.NewError("video", services.CodeServiceUnavailable, "offline")
	tracker.RecordFailure("video", explicit)
	if got := tracker.Verdict("video"); got != health.StatusUnavailable {
		t.Fatalf("explicit unavailable error should escalate, got %s", got)
	}
}

func TestGatePolicy(t *testing.T) {
	tracker := health.NewTracker()
	explicit := services.NewError("", services.CodeServiceUnavailable, "offline")

	tracker.RecordFailure("audio", explicit)
	proceed, err := tracker.Gate("audio")
	if err != nil {
		t.Fatalf("audio gate should skip, not fail: %v", err)
	}
	if proceed {
		t.Fatal("unavailable audio should not proceed")
	}

	tracker.RecordFailure("video", explicit)
	if _, err := tracker.Gate("video"); err == nil {
		t.Fatal("unavailable video must be fatal")
	}

	// Degraded services proceed in reduced mode.
	tracker.Reset("audio")
	for i := 0; i < 4; i++ {
		tracker.RecordFailure("audio", errors.New("blip"))
	}
	if got := tracker.Verdict("audio"); got != health.StatusDegraded {
		t.Fatalf("setup: expected degraded, got %s", got)
	}
	proceed, err = tracker.Gate("audio")
	if err != nil || !proceed {
		t.Fatalf("degraded audio should proceed (proceed=%v, err=%v)", proceed, err)
	}
}

func TestResetClears(t *testing.T) {
	tracker := health.NewTracker()
	tracker.RecordFailure("text", errors.New("boom"))
	tracker.Reset("text")
	if got := tracker.Verdict("text"); got != health.StatusAvailable {
		t.Fatalf("expected available after reset, got %s", got)
	}
	if len(tracker.Snapshot()) != 0 {
		t.Fatal("expected empty snapshot after reset")
	}
}

func TestOverallDegradation(t *testing.T) {
	tracker := health.NewTracker().WithClock(func() time.Time { return time.Unix(0, 0) })
	if got := tracker.Overall(); got != health.DegradationNone {
		t.Fatalf("empty tracker should be none, got %s", got)
	}

	for i := 0; i < 4; i++ {
		tracker.RecordFailure("image", errors.New("blip"))
	}
	if got := tracker.Overall(); got != health.DegradationPartial {
		t.Fatalf("one degraded service should be partial, got %s", got)
	}

	tracker.RecordFailure("audio", services.NewError("", services.CodeServiceUnavailable, "down"))
	if got := tracker.Overall(); got != health.DegradationSevere {
		t.Fatalf("an unavailable service should be severe, got %s", got)
	}
}
