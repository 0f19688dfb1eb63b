package repository

import (
	"context"
	"time"

	"alpha-squeeze/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const upsertTrackingSQL = `
INSERT INTO cb_trigger_tracking
    (bond_ticker, trade_date, underlying_ticker, underlying_close, conversion_price, price_ratio, is_above_trigger,
     consecutive_days_above, days_remaining, trigger_progress, outstanding_balance, balance_change_pct,
     warning_level, redemption_score, comment, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
ON CONFLICT (bond_ticker, trade_date) DO UPDATE SET
    underlying_ticker = EXCLUDED.underlying_ticker,
    underlying_close = EXCLUDED.underlying_close,
    conversion_price = EXCLUDED.conversion_price,
    price_ratio = EXCLUDED.price_ratio,
    is_above_trigger = EXCLUDED.is_above_trigger,
    consecutive_days_above = EXCLUDED.consecutive_days_above,
    days_remaining = EXCLUDED.days_remaining,
    trigger_progress = EXCLUDED.trigger_progress,
    outstanding_balance = EXCLUDED.outstanding_balance,
    balance_change_pct = EXCLUDED.balance_change_pct,
    warning_level = EXCLUDED.warning_level,
    redemption_score = EXCLUDED.redemption_score,
    comment = EXCLUDED.comment,
    updated_at = NOW()`

const trackingColumns = `bond_ticker, trade_date, underlying_ticker, underlying_close, conversion_price, price_ratio,
    is_above_trigger, consecutive_days_above, days_remaining, trigger_progress, outstanding_balance,
    balance_change_pct, warning_level, redemption_score, comment`

type TrackingRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewTrackingRepository(pool PgxPool, tracer trace.Tracer) *TrackingRepository {
	return &TrackingRepository{pool: pool, tracer: tracer}
}

func (r *TrackingRepository) UpsertRecords(ctx context.Context, records []domain.TriggerTrackingRecord) (int, []RowError) {
	ctx, span := r.tracer.Start(ctx, "tracking-repo.upsert-records")
	defer span.End()
	span.SetAttributes(attribute.Int("rows", len(records)))

	keys := make([]string, len(records))
	args := make([][]any, len(records))
	for i, rec := range records {
		keys[i] = rec.BondTicker
		args[i] = []any{
			rec.BondTicker, domain.TruncateDate(rec.TradeDate), rec.UnderlyingTicker, rec.UnderlyingClose,
			rec.ConversionPrice, rec.PriceRatio, rec.IsAboveTrigger, rec.ConsecutiveDaysAbove, rec.DaysRemaining,
			rec.TriggerProgress, rec.OutstandingBalance, rec.BalanceChangePercent, rec.WarningLevel.String(),
			rec.RedemptionScore, rec.Comment,
		}
	}
	return upsertRows(ctx, r.pool, upsertTrackingSQL, keys, args)
}

// LatestBefore returns each bond's most recent record strictly before date. Reading
// strictly earlier rows keeps a re-run of the same date from counting itself.
func (r *TrackingRepository) LatestBefore(ctx context.Context, date time.Time) (map[string]domain.TriggerTrackingRecord, error) {
	ctx, span := r.tracer.Start(ctx, "tracking-repo.latest-before")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT DISTINCT ON (bond_ticker) `+trackingColumns+`
		 FROM cb_trigger_tracking
		 WHERE trade_date < $1
		 ORDER BY bond_ticker, trade_date DESC`,
		domain.TruncateDate(date),
	)
	if err != nil {
		return nil, err
	}
	records, err := scanRecords(rows)
	if err != nil {
		return nil, err
	}

	out := make(map[string]domain.TriggerTrackingRecord, len(records))
	for _, rec := range records {
		out[rec.BondTicker] = rec
	}
	return out, nil
}

func (r *TrackingRepository) RecordsForDate(ctx context.Context, date time.Time) ([]domain.TriggerTrackingRecord, error) {
	ctx, span := r.tracer.Start(ctx, "tracking-repo.records-for-date")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT `+trackingColumns+`
		 FROM cb_trigger_tracking
		 WHERE trade_date = $1
		 ORDER BY bond_ticker`,
		domain.TruncateDate(date),
	)
	if err != nil {
		return nil, err
	}
	return scanRecords(rows)
}

func scanRecords(rows pgx.Rows) ([]domain.TriggerTrackingRecord, error) {
	defer rows.Close()

	var out []domain.TriggerTrackingRecord
	for rows.Next() {
		var rec domain.TriggerTrackingRecord
		var level string
		if err := rows.Scan(
			&rec.BondTicker, &rec.TradeDate, &rec.UnderlyingTicker, &rec.UnderlyingClose, &rec.ConversionPrice,
			&rec.PriceRatio, &rec.IsAboveTrigger, &rec.ConsecutiveDaysAbove, &rec.DaysRemaining, &rec.TriggerProgress,
			&rec.OutstandingBalance, &rec.BalanceChangePercent, &level, &rec.RedemptionScore, &rec.Comment,
		); err != nil {
			return nil, err
		}
		parsed, err := domain.ParseWarningLevel(level)
		if err != nil {
			return nil, err
		}
		rec.WarningLevel = parsed
		rec.TradeDate = domain.TruncateDate(rec.TradeDate)
		out = append(out, rec)
	}
	return out, rows.Err()
}
