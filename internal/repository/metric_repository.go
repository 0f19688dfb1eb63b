package repository

import (
	"context"
	"time"

	"alpha-squeeze/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const upsertMetricSQL = `
INSERT INTO instrument_daily_metrics
    (ticker, trade_date, open, high, low, close, volume, borrow_balance_change, margin_ratio, hv_20d, implied_volatility)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT (ticker, trade_date) DO UPDATE SET
    open = EXCLUDED.open,
    high = EXCLUDED.high,
    low = EXCLUDED.low,
    close = EXCLUDED.close,
    volume = EXCLUDED.volume,
    borrow_balance_change = EXCLUDED.borrow_balance_change,
    margin_ratio = EXCLUDED.margin_ratio,
    hv_20d = EXCLUDED.hv_20d,
    implied_volatility = EXCLUDED.implied_volatility`

const metricColumns = `ticker, trade_date, open, high, low, close, volume, borrow_balance_change, margin_ratio, hv_20d, implied_volatility`

type MetricRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewMetricRepository(pool PgxPool, tracer trace.Tracer) *MetricRepository {
	return &MetricRepository{pool: pool, tracer: tracer}
}

func (r *MetricRepository) UpsertMetrics(ctx context.Context, metrics []domain.InstrumentDailyMetric) (int, []RowError) {
	ctx, span := r.tracer.Start(ctx, "metric-repo.upsert-metrics")
	defer span.End()
	span.SetAttributes(attribute.Int("rows", len(metrics)))

	keys := make([]string, len(metrics))
	args := make([][]any, len(metrics))
	for i, m := range metrics {
		keys[i] = m.Ticker
		args[i] = []any{
			m.Ticker, domain.TruncateDate(m.TradeDate), m.Open, m.High, m.Low, m.Close, m.Volume,
			m.BorrowBalanceChange, m.MarginRatio, m.HistoricalVolatility20D, m.ImpliedVolatility,
		}
	}
	return upsertRows(ctx, r.pool, upsertMetricSQL, keys, args)
}

func (r *MetricRepository) MetricsForDate(ctx context.Context, date time.Time) ([]domain.InstrumentDailyMetric, error) {
	ctx, span := r.tracer.Start(ctx, "metric-repo.metrics-for-date")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT `+metricColumns+`
		 FROM instrument_daily_metrics
		 WHERE trade_date = $1
		 ORDER BY ticker`,
		domain.TruncateDate(date),
	)
	if err != nil {
		return nil, err
	}
	return scanMetrics(rows)
}

// HistoryBefore returns up to limit sessions per ticker strictly before date, newest first.
func (r *MetricRepository) HistoryBefore(ctx context.Context, date time.Time, limit int) (map[string]domain.MetricHistory, error) {
	ctx, span := r.tracer.Start(ctx, "metric-repo.history-before")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT `+metricColumns+` FROM (
		     SELECT *, ROW_NUMBER() OVER (PARTITION BY ticker ORDER BY trade_date DESC) AS rn
		     FROM instrument_daily_metrics
		     WHERE trade_date < $1
		 ) h
		 WHERE rn <= $2
		 ORDER BY ticker, trade_date DESC`,
		domain.TruncateDate(date), limit,
	)
	if err != nil {
		return nil, err
	}
	metrics, err := scanMetrics(rows)
	if err != nil {
		return nil, err
	}

	out := make(map[string]domain.MetricHistory)
	for _, m := range metrics {
		out[m.Ticker] = append(out[m.Ticker], m)
	}
	return out, nil
}

// TickerHistory returns up to limit sessions for one ticker strictly before date, newest first.
func (r *MetricRepository) TickerHistory(ctx context.Context, ticker string, date time.Time, limit int) (domain.MetricHistory, error) {
	ctx, span := r.tracer.Start(ctx, "metric-repo.ticker-history")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT `+metricColumns+`
		 FROM instrument_daily_metrics
		 WHERE ticker = $1 AND trade_date < $2
		 ORDER BY trade_date DESC
		 LIMIT $3`,
		ticker, domain.TruncateDate(date), limit,
	)
	if err != nil {
		return nil, err
	}
	return scanMetrics(rows)
}

// ClosesOn maps ticker to close price for the date, skipping non-positive closes.
func (r *MetricRepository) ClosesOn(ctx context.Context, date time.Time) (map[string]float64, error) {
	ctx, span := r.tracer.Start(ctx, "metric-repo.closes-on")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT ticker, close FROM instrument_daily_metrics WHERE trade_date = $1 AND close > 0`,
		domain.TruncateDate(date),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	closes := make(map[string]float64)
	for rows.Next() {
		var ticker string
		var c float64
		if err := rows.Scan(&ticker, &c); err != nil {
			return nil, err
		}
		closes[ticker] = c
	}
	return closes, rows.Err()
}

func (r *MetricRepository) MetricFor(ctx context.Context, ticker string, date time.Time) (domain.InstrumentDailyMetric, error) {
	ctx, span := r.tracer.Start(ctx, "metric-repo.metric-for")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT `+metricColumns+` FROM instrument_daily_metrics WHERE ticker = $1 AND trade_date = $2`,
		ticker, domain.TruncateDate(date),
	)
	if err != nil {
		return domain.InstrumentDailyMetric{}, err
	}
	metrics, err := scanMetrics(rows)
	if err != nil {
		return domain.InstrumentDailyMetric{}, err
	}
	if len(metrics) == 0 {
		return domain.InstrumentDailyMetric{}, ErrNotFound
	}
	return metrics[0], nil
}

func scanMetrics(rows pgx.Rows) ([]domain.InstrumentDailyMetric, error) {
	defer rows.Close()

	var out []domain.InstrumentDailyMetric
	for rows.Next() {
		var m domain.InstrumentDailyMetric
		if err := rows.Scan(
			&m.Ticker, &m.TradeDate, &m.Open, &m.High, &m.Low, &m.Close, &m.Volume,
			&m.BorrowBalanceChange, &m.MarginRatio, &m.HistoricalVolatility20D, &m.ImpliedVolatility,
		); err != nil {
			return nil, err
		}
		m.TradeDate = domain.TruncateDate(m.TradeDate)
		out = append(out, m)
	}
	return out, rows.Err()
}
