package retry

import (
	"errors"
	"math"
	"math/rand"
	"net/http"
	"time"

	"fabula/internal/services"
)

const (
	defaultMaxRetries  = 3
	defaultBaseDelay   = time.Second
	defaultMaxDelay    = 30 * time.Second
	defaultBackoffBase = 2.0
)

// Decision is the outcome class for a resolved failure.
type Decision int

const (
	DecisionAbort Decision = iota
	DecisionRetry
	DecisionFallback
)

func (d Decision) String() string {
	switch d {
	case DecisionRetry:
		return "retry"
	case DecisionFallback:
		return "fallback"
	default:
		return "abort"
	}
}

// Resolution carries the decision plus the wait or suggestion that goes with it.
type Resolution struct {
	Decision   Decision
	Delay      time.Duration
	Suggestion string
}

// Policy holds the backoff parameters applied to retryable failures.
type Policy struct {
	MaxRetries  int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	BackoffBase float64
	Jitter      bool

	// rand is overridable for deterministic tests.
	rand func() float64
}

// DefaultPolicy returns the repository default backoff policy.
func DefaultPolicy() Policy {
	return Policy{
		MaxRetries:  defaultMaxRetries,
		BaseDelay:   defaultBaseDelay,
		MaxDelay:    defaultMaxDelay,
		BackoffBase: defaultBackoffBase,
		Jitter:      true,
	}
}

// WithRand returns a copy of the policy using the supplied random source for
// jitter. Used in tests.
func (p Policy) WithRand(fn func() float64) Policy {
	p.rand = fn
	return p
}

// Retryable reports whether the failure is worth retrying at all: it declares
// itself retryable, matches the known transient code set, or carries a
// 5xx / 429 status.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		if svcErr.Retryable {
			return true
		}
		if svcErr.Status == http.StatusTooManyRequests || svcErr.Status >= http.StatusInternalServerError {
			return true
		}
		return false
	}
	return errors.Is(err, services.ErrTransient)
}

// Fallback suggestions keyed by error code. Codes outside this table abort.
var fallbackSuggestions = map[string]string{
	services.CodeQuotaExceeded:    "wait for the quota window to reset or raise the budget limit",
	services.CodeModelUnavailable: "switch to an alternative model for this operation",
	services.CodeContentFiltered:  "rephrase the prompt to avoid filtered content",
}

// Resolve classifies one failure observed on the given zero-based attempt.
// Attempts at or beyond MaxRetries abort so the caller re-raises the original
// error unchanged.
func (p Policy) Resolve(err error, attempt int) Resolution {
	if err == nil {
		return Resolution{Decision: DecisionAbort}
	}

	if Retryable(err) {
		if attempt >= p.maxRetries() {
			return Resolution{Decision: DecisionAbort}
		}
		return Resolution{Decision: DecisionRetry, Delay: p.Delay(err, attempt)}
	}

	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		if suggestion, ok := fallbackSuggestions[svcErr.Code]; ok {
			return Resolution{Decision: DecisionFallback, Suggestion: suggestion}
		}
	}

	return Resolution{Decision: DecisionAbort}
}

// Delay computes the wait before the next attempt. A delay suggested by the
// error itself wins over computed backoff; both are capped at MaxDelay.
func (p Policy) Delay(err error, attempt int) time.Duration {
	var svcErr *services.Error
	if errors.As(err, &svcErr) && svcErr.RetryAfter > 0 {
		return p.cap(svcErr.RetryAfter)
	}

	base := p.BaseDelay
	if base <= 0 {
		base = defaultBaseDelay
	}
	backoff := p.BackoffBase
	if backoff <= 1 {
		backoff = defaultBackoffBase
	}

	delay := time.Duration(float64(base) * math.Pow(backoff, float64(attempt)))
	if delay <= 0 {
		// Overflow from a large attempt count.
		delay = p.maxDelay()
	}
	if p.Jitter {
		delay = time.Duration(float64(delay) * p.jitterFactor())
	}
	return p.cap(delay)
}

func (p Policy) jitterFactor() float64 {
	fn := p.rand
	if fn == nil {
		fn = rand.Float64
	}
	return 0.5 + fn()*0.5
}

func (p Policy) cap(delay time.Duration) time.Duration {
	maxDelay := p.maxDelay()
	if delay > maxDelay {
		return maxDelay
	}
	if delay < 0 {
		return 0
	}
	return delay
}

func (p Policy) maxRetries() int {
	if p.MaxRetries <= 0 {
		return defaultMaxRetries
	}
	return p.MaxRetries
}

func (p Policy) maxDelay() time.Duration {
	if p.MaxDelay <= 0 {
		return defaultMaxDelay
	}
	return p.MaxDelay
}
