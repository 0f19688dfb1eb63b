package repository

import (
	"context"
	"time"

	"alpha-squeeze/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const upsertSignalSQL = `
INSERT INTO squeeze_signals
    (ticker, trade_date, borrow_score, gamma_score, margin_score, momentum_score, score, trend, rationale, config_version, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW())
ON CONFLICT (ticker, trade_date) DO UPDATE SET
    borrow_score = EXCLUDED.borrow_score,
    gamma_score = EXCLUDED.gamma_score,
    margin_score = EXCLUDED.margin_score,
    momentum_score = EXCLUDED.momentum_score,
    score = EXCLUDED.score,
    trend = EXCLUDED.trend,
    rationale = EXCLUDED.rationale,
    config_version = EXCLUDED.config_version,
    updated_at = NOW()`

const signalColumns = `ticker, trade_date, borrow_score, gamma_score, margin_score, momentum_score, score, trend, rationale, config_version`

type SignalRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewSignalRepository(pool PgxPool, tracer trace.Tracer) *SignalRepository {
	return &SignalRepository{pool: pool, tracer: tracer}
}

// UpsertSignals overwrites any existing signal for the same (ticker, date).
func (r *SignalRepository) UpsertSignals(ctx context.Context, signals []domain.SqueezeSignal) (int, []RowError) {
	ctx, span := r.tracer.Start(ctx, "signal-repo.upsert-signals")
	defer span.End()
	span.SetAttributes(attribute.Int("rows", len(signals)))

	keys := make([]string, len(signals))
	args := make([][]any, len(signals))
	for i, s := range signals {
		keys[i] = s.Ticker
		args[i] = []any{
			s.Ticker, domain.TruncateDate(s.TradeDate),
			s.Factors.Borrow, s.Factors.Gamma, s.Factors.Margin, s.Factors.Momentum,
			s.Score, s.Trend.String(), s.Rationale, s.ConfigVersion,
		}
	}
	return upsertRows(ctx, r.pool, upsertSignalSQL, keys, args)
}

func (r *SignalRepository) SignalsForDate(ctx context.Context, date time.Time) ([]domain.SqueezeSignal, error) {
	ctx, span := r.tracer.Start(ctx, "signal-repo.signals-for-date")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT `+signalColumns+` FROM squeeze_signals WHERE trade_date = $1 ORDER BY ticker`,
		domain.TruncateDate(date),
	)
	if err != nil {
		return nil, err
	}
	return scanSignals(rows)
}

func (r *SignalRepository) TopSignals(ctx context.Context, f domain.CandidateFilter) ([]domain.SqueezeSignal, error) {
	ctx, span := r.tracer.Start(ctx, "signal-repo.top-signals")
	defer span.End()

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+signalColumns+`
		 FROM squeeze_signals
		 WHERE trade_date = $1 AND score >= $2 AND trend <> $3
		 ORDER BY score DESC, ticker
		 LIMIT $4`,
		domain.TruncateDate(f.TradeDate), f.MinScore, domain.TrendDegraded.String(), limit,
	)
	if err != nil {
		return nil, err
	}
	return scanSignals(rows)
}

func scanSignals(rows pgx.Rows) ([]domain.SqueezeSignal, error) {
	defer rows.Close()

	var out []domain.SqueezeSignal
	for rows.Next() {
		var s domain.SqueezeSignal
		var trend string
		if err := rows.Scan(
			&s.Ticker, &s.TradeDate, &s.Factors.Borrow, &s.Factors.Gamma, &s.Factors.Margin, &s.Factors.Momentum,
			&s.Score, &trend, &s.Rationale, &s.ConfigVersion,
		); err != nil {
			return nil, err
		}
		parsed, err := domain.ParseTrend(trend)
		if err != nil {
			return nil, err
		}
		s.Trend = parsed
		s.TradeDate = domain.TruncateDate(s.TradeDate)
		out = append(out, s)
	}
	return out, rows.Err()
}
