package batch

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"alpha-squeeze/internal/domain"
	"alpha-squeeze/internal/squeeze"
	"alpha-squeeze/internal/trigger"

	"golang.org/x/sync/errgroup"
)

// SqueezeBatch is one trading day's cross-section of instrument metrics.
// History holds each ticker's prior sessions, newest first; tickers missing from it
// evaluate with a neutral momentum baseline.
type SqueezeBatch struct {
	TradeDate time.Time
	Metrics   []domain.InstrumentDailyMetric
	History   map[string]domain.MetricHistory
	Weights   domain.WeightConfig
}

// TriggerBatch is one trading day's bond universe. Closes maps underlying ticker to the
// day's close; Prior maps bond ticker to its most recent record before the day.
type TriggerBatch struct {
	TradeDate time.Time
	Bonds     []domain.ConvertibleBond
	Closes    map[string]float64
	Prior     map[string]domain.TriggerTrackingRecord
}

type TriggerResult struct {
	Records []domain.TriggerTrackingRecord
	// Skipped lists bond tickers with no usable underlying close for the day.
	Skipped []string
}

// Evaluator fans per-ticker evaluation out over a bounded worker pool.
type Evaluator struct {
	tracker trigger.Tracker
	workers int
}

func NewEvaluator(tracker trigger.Tracker, workers int) *Evaluator {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Evaluator{tracker: tracker, workers: workers}
}

func (e *Evaluator) Workers() int {
	return e.workers
}

// EvaluateSqueeze scores every instrument on the batch date. Rows dated otherwise are
// ignored and a repeated ticker keeps its last row. Output is sorted by ticker.
func (e *Evaluator) EvaluateSqueeze(ctx context.Context, b SqueezeBatch) ([]domain.SqueezeSignal, error) {
	date := domain.TruncateDate(b.TradeDate)
	rows := latestPerTicker(b.Metrics, date)
	if len(rows) == 0 {
		return nil, nil
	}

	changes := make([]float64, len(rows))
	for i, r := range rows {
		changes[i] = r.BorrowBalanceChange
	}
	ranks := squeeze.PercentileRanks(changes)

	out := make([]domain.SqueezeSignal, len(rows))
	err := e.fanOut(ctx, len(rows), func(i int) error {
		row := rows[i]
		out[i] = squeeze.Evaluate(squeeze.EvaluationInput{
			Metric:           row,
			BorrowPercentile: ranks[i],
			Momentum:         squeeze.MomentumInputFromHistory(row, priorSessions(b.History[row.Ticker], date)),
		}, b.Weights)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// EvaluateTriggers advances every bond's counter for the batch date. Bonds whose underlying
// has no positive close are skipped rather than evaluated, so a data gap never resets a streak.
func (e *Evaluator) EvaluateTriggers(ctx context.Context, b TriggerBatch) (TriggerResult, error) {
	date := domain.TruncateDate(b.TradeDate)

	bonds := make([]domain.ConvertibleBond, 0, len(b.Bonds))
	var skipped []string
	for _, bond := range b.Bonds {
		if c, ok := b.Closes[bond.UnderlyingTicker]; !ok || !(c > 0) {
			skipped = append(skipped, bond.BondTicker)
			continue
		}
		bonds = append(bonds, bond)
	}
	sort.Slice(bonds, func(i, j int) bool { return bonds[i].BondTicker < bonds[j].BondTicker })
	sort.Strings(skipped)

	out := make([]domain.TriggerTrackingRecord, len(bonds))
	err := e.fanOut(ctx, len(bonds), func(i int) error {
		bond := bonds[i]
		var prior trigger.PriorState
		if rec, ok := b.Prior[bond.BondTicker]; ok && rec.TradeDate.Before(date) {
			prior = trigger.PriorFromRecord(rec)
		}
		out[i] = e.tracker.Transition(trigger.TriggerInput{
			Bond:            bond,
			TradeDate:       date,
			UnderlyingClose: b.Closes[bond.UnderlyingTicker],
		}, prior)
		return nil
	})
	if err != nil {
		return TriggerResult{}, err
	}
	return TriggerResult{Records: out, Skipped: skipped}, nil
}

func (e *Evaluator) fanOut(ctx context.Context, n int, fn func(i int) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := 0; i < n; i++ {
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return fn(i)
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("batch evaluation: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("batch evaluation: %w", err)
	}
	return nil
}

func latestPerTicker(metrics []domain.InstrumentDailyMetric, date time.Time) []domain.InstrumentDailyMetric {
	byTicker := make(map[string]domain.InstrumentDailyMetric, len(metrics))
	for _, m := range metrics {
		if m.Ticker == "" || !domain.TruncateDate(m.TradeDate).Equal(date) {
			continue
		}
		byTicker[m.Ticker] = m
	}
	rows := make([]domain.InstrumentDailyMetric, 0, len(byTicker))
	for _, m := range byTicker {
		rows = append(rows, m)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Ticker < rows[j].Ticker })
	return rows
}

// priorSessions drops any history rows on or after the evaluation date.
func priorSessions(history domain.MetricHistory, date time.Time) domain.MetricHistory {
	out := make(domain.MetricHistory, 0, len(history))
	for _, h := range history {
		if domain.TruncateDate(h.TradeDate).Before(date) {
			out = append(out, h)
		}
	}
	return out
}
