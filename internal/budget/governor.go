package budget

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fabula/internal/logging"
)

// Limits holds the configured budget boundaries.
type Limits struct {
	LimitUSD         float64
	WarningThreshold float64
	Window           string
}

// Verdict is the outcome of a pre-flight budget check. Warning and Blocked
// are mutually exclusive: Warning is set when the projected total crosses the
// warning threshold but stays within the limit, Blocked when the limit would
// be exceeded.
type Verdict struct {
	CanProceed     bool
	EstimatedCost  float64
	ProjectedTotal float64
	Remaining      float64
	Warning        string
	Blocked        string
}

// Usage summarizes spend within the configured accounting window.
type Usage struct {
	TotalCost       float64
	Requests        int
	TokenEquivalent float64
	Remaining       float64
	WindowStart     time.Time
}

// Governor prices operations and gates work against the configured limit.
type Governor struct {
	ledger *Ledger
	limits Limits
	logger *slog.Logger

	sessionStart time.Time
	now          func() time.Time
}

// NewGovernor constructs a governor over the supplied ledger. The session
// accounting window starts at construction time.
func NewGovernor(ledger *Ledger, limits Limits, logger *slog.Logger) *Governor {
	return &Governor{
		ledger:       ledger,
		limits:       limits,
		logger:       logging.NewComponentLogger(logger, "budget-governor"),
		sessionStart: time.Now().UTC(),
		now:          time.Now,
	}
}

// WithClock overrides the governor clock. Used in tests.
func (g *Governor) WithClock(now func() time.Time) *Governor {
	g.now = now
	return g
}

// Limits returns the configured boundaries.
func (g *Governor) Limits() Limits { return g.limits }

// UpdateLimits replaces the configured boundaries, e.g. after a config
// reload. The session window start is unaffected.
func (g *Governor) UpdateLimits(limits Limits) { g.limits = limits }

// windowStart derives the accounting cutoff from wall-clock now. The session
// window spans the governor's lifetime; calendar windows use fixed lookback
// periods.
func (g *Governor) windowStart() time.Time {
	now := g.now().UTC()
	switch g.limits.Window {
	case "daily":
		return now.Add(-24 * time.Hour)
	case "weekly":
		return now.Add(-7 * 24 * time.Hour)
	case "monthly":
		return now.Add(-30 * 24 * time.Hour)
	default:
		return g.sessionStart
	}
}

// CheckBudget sums the estimates for the planned operations and compares the
// projected total against the limit.
func (g *Governor) CheckBudget(ctx context.Context, planned []Operation) (Verdict, error) {
	usage, err := g.CurrentUsage(ctx)
	if err != nil {
		return Verdict{}, err
	}

	var estimated float64
	for _, op := range planned {
		estimated += EstimateCost(op)
	}

	limit := g.limits.LimitUSD
	projected := usage.TotalCost + estimated
	verdict := Verdict{
		EstimatedCost:  estimated,
		ProjectedTotal: projected,
		Remaining:      limit - projected,
		CanProceed:     projected <= limit,
	}

	switch {
	case projected > limit:
		verdict.Blocked = fmt.Sprintf(
			"planned operations exceed the budget limit by $%.2f (projected $%.2f, limit $%.2f)",
			projected-limit, projected, limit,
		)
		g.logger.Warn("budget exceeded",
			logging.Float64("projected_usd", projected),
			logging.Float64("limit_usd", limit),
			logging.String(logging.FieldEventType, "budget_blocked"),
		)
	case projected >= g.limits.WarningThreshold*limit && projected < limit:
		verdict.Warning = fmt.Sprintf(
			"projected spend $%.2f has crossed %.0f%% of the $%.2f budget limit",
			projected, g.limits.WarningThreshold*100, limit,
		)
		g.logger.Warn("budget warning threshold crossed",
			logging.Float64("projected_usd", projected),
			logging.Float64("limit_usd", limit),
			logging.String(logging.FieldEventType, "budget_warning"),
		)
	}

	return verdict, nil
}

// Track records actual spend for a completed operation. This is the only
// path that mutates accumulated cost.
func (g *Governor) Track(ctx context.Context, op Operation, actualCost float64, service string) error {
	entry := Entry{
		CreatedAt:     g.now().UTC(),
		Kind:          op.Kind,
		Model:         op.Model,
		InputUnits:    op.InputUnits,
		OutputUnits:   op.OutputUnits,
		Complexity:    op.Complexity,
		EstimatedCost: EstimateCost(op),
		ActualCost:    actualCost,
		Service:       service,
	}
	if err := g.ledger.Append(ctx, entry); err != nil {
		return err
	}
	g.logger.Debug("tracked operation cost",
		logging.String("kind", string(op.Kind)),
		logging.String("model", op.Model),
		logging.String(logging.FieldService, service),
		logging.Float64("actual_usd", actualCost),
	)
	return nil
}

// CurrentUsage recomputes totals from the ledger filtered by the accounting
// window.
func (g *Governor) CurrentUsage(ctx context.Context) (Usage, error) {
	start := g.windowStart()
	entries, err := g.ledger.EntriesSince(ctx, start)
	if err != nil {
		return Usage{}, err
	}

	usage := Usage{WindowStart: start}
	for _, entry := range entries {
		usage.TotalCost += entry.ActualCost
		usage.Requests++
		usage.TokenEquivalent += TokenEquivalent(entry.Kind, entry.InputUnits, entry.OutputUnits)
	}
	usage.Remaining = g.limits.LimitUSD - usage.TotalCost
	return usage, nil
}
