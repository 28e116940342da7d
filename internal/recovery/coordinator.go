// Package recovery drives failure handling for pipeline operations: retry
// orchestration with backoff, fallback routing, failure bookkeeping, and
// checkpoint persistence for resumable runs.
package recovery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"fabula/internal/health"
	"fabula/internal/logging"
	"fabula/internal/retry"
	"fabula/internal/services"
)

// Unit identifies one operation the coordinator is supervising.
type Unit struct {
	Operation string
	Service   string
	ProjectID string
	Stage     string
}

// OutcomeStatus classifies how a supervised operation ended.
type OutcomeStatus string

const (
	OutcomeCompleted OutcomeStatus = "completed"
	OutcomeFallback  OutcomeStatus = "fallback"
)

// Outcome describes a supervised run that did not abort.
type Outcome struct {
	Status     OutcomeStatus
	Attempts   int
	Suggestion string
}

// FailedOperation is one recorded failure, kept for the recovery report.
type FailedOperation struct {
	Unit       Unit
	Err        error
	Attempt    int
	OccurredAt time.Time
}

// Action is one decision the coordinator took, kept for the recovery report.
type Action struct {
	Unit       Unit
	Decision   string
	Delay      time.Duration
	OccurredAt time.Time
}

// FallbackStrategy produces a degraded result after retries are exhausted or
// the failure class is not retryable. Returning an error abandons the
// fallback and re-raises the original failure.
type FallbackStrategy func(ctx context.Context, unit Unit, cause error) error

// Coordinator supervises operations with retry, fallback, and health
// bookkeeping. Safe for concurrent use.
type Coordinator struct {
	logger *slog.Logger
	policy retry.Policy
	health *health.Tracker

	mu        sync.Mutex
	failures  []FailedOperation
	actions   []Action
	fallbacks map[string]FallbackStrategy

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// NewCoordinator builds a coordinator over the given policy and health
// tracker. A nil logger is replaced by a no-op logger.
func NewCoordinator(policy retry.Policy, tracker *health.Tracker, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	if tracker == nil {
		tracker = health.NewTracker()
	}
	return &Coordinator{
		logger:    logger.With(logging.String(logging.FieldComponent, "recovery")),
		policy:    policy,
		health:    tracker,
		fallbacks: make(map[string]FallbackStrategy),
		now:       time.Now,
		sleep:     sleepContext,
	}
}

// WithClock overrides the coordinator clock. Used in tests.
func (c *Coordinator) WithClock(now func() time.Time) *Coordinator {
	c.now = now
	return c
}

// WithSleeper overrides the backoff sleep. Used in tests.
func (c *Coordinator) WithSleeper(fn func(ctx context.Context, d time.Duration) error) *Coordinator {
	c.sleep = fn
	return c
}

// RegisterFallback installs a degraded-mode strategy for one error code.
// A registered strategy converts what would otherwise be an abort into a
// fallback outcome.
func (c *Coordinator) RegisterFallback(code string, strategy FallbackStrategy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fallbacks[code] = strategy
}

// Run executes work under the retry policy. Each retry re-invokes work from
// scratch; after the final attempt fails the original error is returned
// unchanged unless a registered fallback absorbs it.
func (c *Coordinator) Run(ctx context.Context, unit Unit, work func(ctx context.Context) error) (Outcome, error) {
	log := c.logger.With(
		logging.String(logging.FieldProjectID, unit.ProjectID),
		logging.String(logging.FieldStage, unit.Stage),
		logging.String(logging.FieldService, unit.Service),
		logging.String("operation", unit.Operation),
	)

	var lastErr error
	for attempt := 0; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return Outcome{Attempts: attempt}, err
		}

		err := work(ctx)
		if err == nil {
			c.health.RecordSuccess(unit.Service)
			if attempt > 0 {
				log.Info("operation recovered after retries", logging.Int("attempts", attempt+1))
			}
			return Outcome{Status: OutcomeCompleted, Attempts: attempt + 1}, nil
		}

		lastErr = err
		c.health.RecordFailure(unit.Service, err)
		c.recordFailure(unit, err, attempt)

		resolution := c.policy.Resolve(err, attempt)
		c.recordAction(unit, resolution.Decision.String(), resolution.Delay)

		switch resolution.Decision {
		case retry.DecisionRetry:
			log.Warn("operation failed, retrying",
				logging.Int("attempt", attempt+1),
				logging.Duration("delay", resolution.Delay),
				logging.Error(err),
			)
			if sleepErr := c.sleep(ctx, resolution.Delay); sleepErr != nil {
				return Outcome{Attempts: attempt + 1}, sleepErr
			}
			continue

		case retry.DecisionFallback:
			if outcome, ok := c.tryFallback(ctx, unit, err, attempt, log); ok {
				outcome.Suggestion = resolution.Suggestion
				return outcome, nil
			}
			log.Error("no fallback available", logging.Error(err),
				logging.String("suggestion", resolution.Suggestion))
			return Outcome{Attempts: attempt + 1, Suggestion: resolution.Suggestion}, lastErr

		default:
			// Exhausted retries may still have a registered fallback for
			// the failure class.
			if outcome, ok := c.tryFallback(ctx, unit, err, attempt, log); ok {
				return outcome, nil
			}
			log.Error("operation aborted", logging.Int("attempts", attempt+1), logging.Error(err))
			return Outcome{Attempts: attempt + 1}, lastErr
		}
	}
}

func (c *Coordinator) tryFallback(ctx context.Context, unit Unit, cause error, attempt int, log *slog.Logger) (Outcome, bool) {
	strategy := c.fallbackFor(cause)
	if strategy == nil {
		return Outcome{}, false
	}
	if err := strategy(ctx, unit, cause); err != nil {
		log.Error("fallback strategy failed", logging.Error(err))
		return Outcome{}, false
	}
	c.recordAction(unit, "fallback_applied", 0)
	log.Warn("operation completed via fallback", logging.Error(cause))
	return Outcome{Status: OutcomeFallback, Attempts: attempt + 1}, true
}

func (c *Coordinator) fallbackFor(err error) FallbackStrategy {
	code := services.Normalize("", err).Code
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fallbacks[code]
}

func (c *Coordinator) recordFailure(unit Unit, err error, attempt int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = append(c.failures, FailedOperation{
		Unit:       unit,
		Err:        err,
		Attempt:    attempt,
		OccurredAt: c.now(),
	})
}

func (c *Coordinator) recordAction(unit Unit, decision string, delay time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.actions = append(c.actions, Action{
		Unit:       unit,
		Decision:   decision,
		Delay:      delay,
		OccurredAt: c.now(),
	})
}

// Failures returns the recorded failures, optionally filtered by project.
func (c *Coordinator) Failures(projectID string) []FailedOperation {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]FailedOperation, 0, len(c.failures))
	for _, failure := range c.failures {
		if projectID != "" && failure.Unit.ProjectID != projectID {
			continue
		}
		out = append(out, failure)
	}
	return out
}

// Actions returns a copy of the action log.
func (c *Coordinator) Actions() []Action {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Action, len(c.actions))
	copy(out, c.actions)
	return out
}

// Health exposes the coordinator's health tracker.
func (c *Coordinator) Health() *health.Tracker { return c.health }

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
