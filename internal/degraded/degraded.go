package degraded

import (
	"context"
	"fmt"
	"strings"
	"time"

	"alpha-squeeze/internal/domain"
)

const DefaultTimeout = 2 * time.Second

// Evaluator is the scoring path the adapter protects.
type Evaluator interface {
	EvaluateMetric(ctx context.Context, m domain.InstrumentDailyMetric) (domain.SqueezeSignal, error)
}

// Availability reports whether the scoring engine can currently serve requests.
type Availability interface {
	Available(ctx context.Context) bool
}

// AvailabilityFunc adapts a plain function to Availability.
type AvailabilityFunc func(ctx context.Context) bool

func (f AvailabilityFunc) Available(ctx context.Context) bool { return f(ctx) }

// Signal builds the fallback for a metric using only the raw inputs on hand.
// The result is deterministic: Trend is Degraded and Score is 0.
func Signal(m domain.InstrumentDailyMetric) domain.SqueezeSignal {
	parts := []string{"scoring engine unavailable"}
	if m.MarginRatio > 0 {
		parts = append(parts, fmt.Sprintf("margin/short ratio %.1f%%", m.MarginRatio))
	}
	if m.BorrowBalanceChange != 0 {
		parts = append(parts, fmt.Sprintf("borrow balance change %+.0f", m.BorrowBalanceChange))
	}
	if m.Close > 0 {
		parts = append(parts, fmt.Sprintf("close %.2f", m.Close))
	}
	return domain.SqueezeSignal{
		Ticker:    m.Ticker,
		TradeDate: domain.TruncateDate(m.TradeDate),
		Score:     0,
		Trend:     domain.TrendDegraded,
		Rationale: strings.Join(parts, "; "),
	}
}

// Adapter returns the engine's signal when it is available and answers in time,
// and the fallback otherwise. It never returns an error.
type Adapter struct {
	evaluator    Evaluator
	availability Availability
	timeout      time.Duration
}

func NewAdapter(evaluator Evaluator, availability Availability, timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Adapter{evaluator: evaluator, availability: availability, timeout: timeout}
}

type outcome struct {
	signal domain.SqueezeSignal
	err    error
}

// Evaluate reports whether the fallback was used alongside the signal.
func (a *Adapter) Evaluate(ctx context.Context, m domain.InstrumentDailyMetric) (domain.SqueezeSignal, bool) {
	if a == nil || a.evaluator == nil {
		return Signal(m), true
	}
	if a.availability != nil && !a.availability.Available(ctx) {
		return Signal(m), true
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		sig, err := a.evaluator.EvaluateMetric(ctx, m)
		done <- outcome{signal: sig, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return Signal(m), true
		}
		return res.signal, false
	case <-ctx.Done():
		return Signal(m), true
	}
}
