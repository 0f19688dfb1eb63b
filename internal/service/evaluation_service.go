package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"alpha-squeeze/internal/batch"
	"alpha-squeeze/internal/domain"
	"alpha-squeeze/internal/repository"
	"alpha-squeeze/internal/squeeze"
	"alpha-squeeze/internal/trigger"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var (
	ErrRunInProgress   = errors.New("an evaluation run is already in progress")
	ErrNotConfigured   = errors.New("evaluation service dependencies are not initialized")
	ErrNoMetricForDate = errors.New("no metric row for ticker and date")
)

type MetricStore interface {
	MetricsForDate(ctx context.Context, date time.Time) ([]domain.InstrumentDailyMetric, error)
	HistoryBefore(ctx context.Context, date time.Time, limit int) (map[string]domain.MetricHistory, error)
	TickerHistory(ctx context.Context, ticker string, date time.Time, limit int) (domain.MetricHistory, error)
	ClosesOn(ctx context.Context, date time.Time) (map[string]float64, error)
	MetricFor(ctx context.Context, ticker string, date time.Time) (domain.InstrumentDailyMetric, error)
	UpsertMetrics(ctx context.Context, metrics []domain.InstrumentDailyMetric) (int, []repository.RowError)
}

type BondStore interface {
	ActiveBonds(ctx context.Context, date time.Time) ([]domain.ConvertibleBond, error)
	UpsertBonds(ctx context.Context, bonds []domain.ConvertibleBond) (int, []repository.RowError)
}

type SignalStore interface {
	UpsertSignals(ctx context.Context, signals []domain.SqueezeSignal) (int, []repository.RowError)
	SignalsForDate(ctx context.Context, date time.Time) ([]domain.SqueezeSignal, error)
	TopSignals(ctx context.Context, f domain.CandidateFilter) ([]domain.SqueezeSignal, error)
}

type TrackingStore interface {
	UpsertRecords(ctx context.Context, records []domain.TriggerTrackingRecord) (int, []repository.RowError)
	LatestBefore(ctx context.Context, date time.Time) (map[string]domain.TriggerTrackingRecord, error)
	RecordsForDate(ctx context.Context, date time.Time) ([]domain.TriggerTrackingRecord, error)
}

type RunStore interface {
	RecordRun(ctx context.Context, run domain.EvaluationRunResult, startedAt, finishedAt time.Time) error
}

type CandidateCache interface {
	TopGeneration(ctx context.Context, date time.Time) (int64, error)
	GetTopCandidates(ctx context.Context, f domain.CandidateFilter, gen int64) ([]domain.SqueezeSignal, bool, error)
	SetTopCandidates(ctx context.Context, f domain.CandidateFilter, gen int64, signals []domain.SqueezeSignal) error
	InvalidateDate(ctx context.Context, date time.Time) error
}

// WeightSource hands out the weight config to apply to the next evaluation.
type WeightSource interface {
	Current() domain.WeightConfig
}

type Stores struct {
	Metrics  MetricStore
	Bonds    BondStore
	Signals  SignalStore
	Tracking TrackingStore
	Runs     RunStore
}

// EvaluationService runs the daily squeeze and trigger evaluation and serves its results.
type EvaluationService struct {
	tracer    trace.Tracer
	logger    *logrus.Logger
	evaluator *batch.Evaluator
	stores    Stores
	cache     CandidateCache
	weights   WeightSource

	runMu    sync.Mutex
	now      func() time.Time
	newRunID func() string
}

func NewEvaluationService(
	tracer trace.Tracer,
	logger *logrus.Logger,
	evaluator *batch.Evaluator,
	stores Stores,
	cache CandidateCache,
	weights WeightSource,
) *EvaluationService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if evaluator == nil {
		evaluator = batch.NewEvaluator(trigger.NewTracker(), 0)
	}
	return &EvaluationService{
		tracer:    tracer,
		logger:    logger,
		evaluator: evaluator,
		stores:    stores,
		cache:     cache,
		weights:   weights,
		now:       time.Now,
		newRunID:  func() string { return uuid.NewString() },
	}
}

// RunDate evaluates every instrument and bond for the date and persists the results.
// Stage failures and rejected rows are reported in Errors; an error is returned only when
// nothing could be evaluated or another run holds the lock.
func (s *EvaluationService) RunDate(ctx context.Context, date time.Time) (domain.EvaluationRunResult, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation-service.run-date")
	defer span.End()

	if s.stores.Metrics == nil || s.stores.Signals == nil || s.weights == nil {
		return domain.EvaluationRunResult{}, ErrNotConfigured
	}
	if !s.runMu.TryLock() {
		return domain.EvaluationRunResult{}, ErrRunInProgress
	}
	defer s.runMu.Unlock()

	date = domain.TruncateDate(date)
	weights := s.weights.Current()
	started := s.now().UTC()
	result := domain.EvaluationRunResult{
		RunID:         s.newRunID(),
		TradeDate:     date,
		ConfigVersion: weights.Version,
	}
	span.SetAttributes(
		attribute.String("run_id", result.RunID),
		attribute.String("trade_date", date.Format(domain.DateLayout)),
	)
	log := s.logger.WithFields(logrus.Fields{"run_id": result.RunID, "trade_date": date.Format(domain.DateLayout)})

	squeezeErr := s.runSqueeze(ctx, date, weights, &result)
	if squeezeErr != nil {
		result.Errors = append(result.Errors, "squeeze: "+squeezeErr.Error())
	}
	triggerErr := s.runTriggers(ctx, date, &result)
	if triggerErr != nil {
		result.Errors = append(result.Errors, "triggers: "+triggerErr.Error())
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	if squeezeErr != nil && triggerErr != nil {
		return result, fmt.Errorf("evaluate %s: %w", date.Format(domain.DateLayout), squeezeErr)
	}

	if s.cache != nil {
		if err := s.cache.InvalidateDate(ctx, date); err != nil {
			log.WithError(err).Warn("candidate cache invalidation failed")
		}
	}
	if s.stores.Runs != nil {
		if err := s.stores.Runs.RecordRun(ctx, result, started, s.now().UTC()); err != nil {
			result.Errors = append(result.Errors, "record_run: "+err.Error())
		}
	}

	log.WithFields(logrus.Fields{
		"signals":  result.SignalsWritten,
		"tracking": result.TrackingWritten,
		"skipped":  len(result.Skipped),
		"errors":   len(result.Errors),
	}).Info("evaluation run complete")
	return result, nil
}

func (s *EvaluationService) runSqueeze(ctx context.Context, date time.Time, weights domain.WeightConfig, result *domain.EvaluationRunResult) error {
	metrics, err := s.stores.Metrics.MetricsForDate(ctx, date)
	if err != nil {
		return fmt.Errorf("load metrics: %w", err)
	}
	if len(metrics) == 0 {
		return nil
	}
	history, err := s.stores.Metrics.HistoryBefore(ctx, date, squeeze.MomentumWindow)
	if err != nil {
		result.Errors = append(result.Errors, "history: "+err.Error())
		history = nil
	}

	signals, err := s.evaluator.EvaluateSqueeze(ctx, batch.SqueezeBatch{
		TradeDate: date,
		Metrics:   metrics,
		History:   history,
		Weights:   weights,
	})
	if err != nil {
		return err
	}

	written, failed := s.stores.Signals.UpsertSignals(ctx, signals)
	result.SignalsWritten = written
	for _, f := range failed {
		result.Errors = append(result.Errors, "signal:"+f.Error())
	}
	return nil
}

func (s *EvaluationService) runTriggers(ctx context.Context, date time.Time, result *domain.EvaluationRunResult) error {
	if s.stores.Bonds == nil || s.stores.Tracking == nil {
		return nil
	}
	bonds, err := s.stores.Bonds.ActiveBonds(ctx, date)
	if err != nil {
		return fmt.Errorf("load bonds: %w", err)
	}
	if len(bonds) == 0 {
		return nil
	}
	closes, err := s.stores.Metrics.ClosesOn(ctx, date)
	if err != nil {
		return fmt.Errorf("load closes: %w", err)
	}
	// prior state must be read before today's rows are written
	prior, err := s.stores.Tracking.LatestBefore(ctx, date)
	if err != nil {
		return fmt.Errorf("load prior tracking: %w", err)
	}

	res, err := s.evaluator.EvaluateTriggers(ctx, batch.TriggerBatch{
		TradeDate: date,
		Bonds:     bonds,
		Closes:    closes,
		Prior:     prior,
	})
	if err != nil {
		return err
	}
	result.Skipped = append(result.Skipped, res.Skipped...)

	written, failed := s.stores.Tracking.UpsertRecords(ctx, res.Records)
	result.TrackingWritten = written
	for _, f := range failed {
		result.Errors = append(result.Errors, "tracking:"+f.Error())
	}
	return nil
}

// EvaluateMetric scores one stored instrument-day against its date's cross-section
// without persisting anything. The degraded adapter wraps this path.
func (s *EvaluationService) EvaluateMetric(ctx context.Context, m domain.InstrumentDailyMetric) (domain.SqueezeSignal, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation-service.evaluate-metric")
	defer span.End()

	if s.stores.Metrics == nil || s.weights == nil {
		return domain.SqueezeSignal{}, ErrNotConfigured
	}
	date := domain.TruncateDate(m.TradeDate)

	peers, err := s.stores.Metrics.MetricsForDate(ctx, date)
	if err != nil {
		return domain.SqueezeSignal{}, fmt.Errorf("load cross-section: %w", err)
	}
	changes := []float64{m.BorrowBalanceChange}
	for _, p := range peers {
		if p.Ticker != m.Ticker {
			changes = append(changes, p.BorrowBalanceChange)
		}
	}

	history, err := s.stores.Metrics.TickerHistory(ctx, m.Ticker, date, squeeze.MomentumWindow)
	if err != nil {
		return domain.SqueezeSignal{}, fmt.Errorf("load history: %w", err)
	}

	return squeeze.Evaluate(squeeze.EvaluationInput{
		Metric:           m,
		BorrowPercentile: squeeze.PercentileRanks(changes)[0],
		Momentum:         squeeze.MomentumInputFromHistory(m, history),
	}, s.weights.Current()), nil
}

// StoredMetric loads the persisted metric row for a ticker and date.
func (s *EvaluationService) StoredMetric(ctx context.Context, ticker string, date time.Time) (domain.InstrumentDailyMetric, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation-service.stored-metric")
	defer span.End()

	if s.stores.Metrics == nil {
		return domain.InstrumentDailyMetric{}, ErrNotConfigured
	}
	m, err := s.stores.Metrics.MetricFor(ctx, ticker, date)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.InstrumentDailyMetric{}, ErrNoMetricForDate
	}
	return m, err
}

func (s *EvaluationService) SignalsForDate(ctx context.Context, date time.Time) ([]domain.SqueezeSignal, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation-service.signals-for-date")
	defer span.End()

	if s.stores.Signals == nil {
		return nil, ErrNotConfigured
	}
	return s.stores.Signals.SignalsForDate(ctx, date)
}

// TopCandidates serves from the cache when possible and fills it on a miss.
func (s *EvaluationService) TopCandidates(ctx context.Context, f domain.CandidateFilter) ([]domain.SqueezeSignal, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation-service.top-candidates")
	defer span.End()
	return s.topCandidates(ctx, f, true)
}

// RefreshTopCandidates reads from storage and writes the result through to the cache,
// replacing whatever the cache held for the filter.
func (s *EvaluationService) RefreshTopCandidates(ctx context.Context, f domain.CandidateFilter) ([]domain.SqueezeSignal, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation-service.refresh-top-candidates")
	defer span.End()
	return s.topCandidates(ctx, f, false)
}

func (s *EvaluationService) topCandidates(ctx context.Context, f domain.CandidateFilter, readCache bool) ([]domain.SqueezeSignal, error) {
	if s.stores.Signals == nil {
		return nil, ErrNotConfigured
	}
	f.TradeDate = domain.TruncateDate(f.TradeDate)

	// the generation is read before the database so a run finishing mid-read
	// invalidates whatever this call writes back
	var gen int64
	cacheable := false
	if s.cache != nil {
		g, err := s.cache.TopGeneration(ctx, f.TradeDate)
		if err != nil {
			s.logger.WithError(err).Warn("candidate cache generation read failed")
		} else {
			gen, cacheable = g, true
		}
	}

	if cacheable && readCache {
		cached, ok, err := s.cache.GetTopCandidates(ctx, f, gen)
		if err != nil {
			s.logger.WithError(err).Warn("candidate cache read failed")
		}
		if ok {
			return cached, nil
		}
	}

	signals, err := s.stores.Signals.TopSignals(ctx, f)
	if err != nil {
		return nil, err
	}
	signals = squeeze.TopCandidates(signals, f.MinScore, f.Limit)

	if cacheable {
		if err := s.cache.SetTopCandidates(ctx, f, gen, signals); err != nil {
			s.logger.WithError(err).Warn("candidate cache write failed")
		}
	}
	return signals, nil
}

func (s *EvaluationService) Warnings(ctx context.Context, date time.Time, minLevel domain.WarningLevel, limit int) ([]domain.TriggerTrackingRecord, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation-service.warnings")
	defer span.End()

	if s.stores.Tracking == nil {
		return nil, ErrNotConfigured
	}
	records, err := s.stores.Tracking.RecordsForDate(ctx, date)
	if err != nil {
		return nil, err
	}
	return trigger.FilterAtLeast(records, minLevel, limit), nil
}

func (s *EvaluationService) WarningSummary(ctx context.Context, date time.Time) (domain.WarningSummary, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation-service.warning-summary")
	defer span.End()

	if s.stores.Tracking == nil {
		return domain.WarningSummary{}, ErrNotConfigured
	}
	records, err := s.stores.Tracking.RecordsForDate(ctx, date)
	if err != nil {
		return domain.WarningSummary{}, err
	}
	return trigger.Summarize(records, date), nil
}

// IngestMetrics stores metric rows supplied by an upstream collector.
func (s *EvaluationService) IngestMetrics(ctx context.Context, metrics []domain.InstrumentDailyMetric) (int, []string, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation-service.ingest-metrics")
	defer span.End()

	if s.stores.Metrics == nil {
		return 0, nil, ErrNotConfigured
	}
	written, failed := s.stores.Metrics.UpsertMetrics(ctx, metrics)
	return written, rowErrors(failed), nil
}

func (s *EvaluationService) IngestBonds(ctx context.Context, bonds []domain.ConvertibleBond) (int, []string, error) {
	ctx, span := s.tracer.Start(ctx, "evaluation-service.ingest-bonds")
	defer span.End()

	if s.stores.Bonds == nil {
		return 0, nil, ErrNotConfigured
	}
	written, failed := s.stores.Bonds.UpsertBonds(ctx, bonds)
	return written, rowErrors(failed), nil
}

func rowErrors(failed []repository.RowError) []string {
	if len(failed) == 0 {
		return nil
	}
	out := make([]string, 0, len(failed))
	for _, f := range failed {
		out = append(out, f.Error())
	}
	return out
}
