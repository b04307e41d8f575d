package budget

import (
	"sync"

	"github.com/hupe1980/councilmesh/core"
)

// Thresholds driving the degradation policy. Skip applies only to stages
// flagged CanDegrade; force overrides everything but the decision itself.
const (
	skipThreshold  = 0.9
	forceThreshold = 1.0
)

// Ledger tracks cumulative token consumption against a fixed ceiling.
// Usage is monotonically non-decreasing and is the sole input to the
// degradation decisions. Safe for concurrent use.
type Ledger struct {
	mu     sync.Mutex
	budget int
	usage  int
}

// NewLedger creates a ledger with the given token ceiling. An initial usage
// may be seeded when resuming a meeting (continuations).
func NewLedger(budget int) *Ledger {
	return &Ledger{budget: budget}
}

// Seed sets the starting usage, used when a ledger is rebuilt for a meeting
// that already consumed tokens. Values below current usage are ignored.
func (l *Ledger) Seed(usage int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if usage > l.usage {
		l.usage = usage
	}
}

// Record adds tokens to the cumulative usage. Every call counts; there is
// no idempotency. Negative values are ignored.
func (l *Ledger) Record(tokens int) {
	if tokens <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.usage += tokens
}

// Usage returns the tokens consumed so far.
func (l *Ledger) Usage() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.usage
}

// Budget returns the configured ceiling.
func (l *Ledger) Budget() int { return l.budget }

// Ratio returns usage/budget. A non-positive budget counts as already
// exhausted.
func (l *Ledger) Ratio() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.budget <= 0 {
		return forceThreshold
	}
	return float64(l.usage) / float64(l.budget)
}

// ShouldForceDecision reports whether the budget is exhausted and the flow
// must jump straight to the decision stage.
func (l *Ledger) ShouldForceDecision() bool {
	return l.Ratio() >= forceThreshold
}

// ShouldSkip reports whether the stage may be skipped under the current
// budget pressure. Only stages flagged CanDegrade are ever skippable.
func (l *Ledger) ShouldSkip(cfg core.StageConfig) bool {
	return cfg.CanDegrade && l.Ratio() >= skipThreshold
}
