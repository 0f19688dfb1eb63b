package repository

import (
	"context"
	"time"

	"alpha-squeeze/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const upsertBondSQL = `
INSERT INTO convertible_bonds
    (bond_ticker, underlying_ticker, name, conversion_price, trigger_percent, trigger_days_required,
     outstanding_balance, total_issued, maturity_date, bond_price, active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE)
ON CONFLICT (bond_ticker) DO UPDATE SET
    underlying_ticker = EXCLUDED.underlying_ticker,
    name = EXCLUDED.name,
    conversion_price = EXCLUDED.conversion_price,
    trigger_percent = EXCLUDED.trigger_percent,
    trigger_days_required = EXCLUDED.trigger_days_required,
    outstanding_balance = EXCLUDED.outstanding_balance,
    total_issued = EXCLUDED.total_issued,
    maturity_date = EXCLUDED.maturity_date,
    bond_price = EXCLUDED.bond_price,
    active = TRUE`

type BondRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewBondRepository(pool PgxPool, tracer trace.Tracer) *BondRepository {
	return &BondRepository{pool: pool, tracer: tracer}
}

func (r *BondRepository) UpsertBonds(ctx context.Context, bonds []domain.ConvertibleBond) (int, []RowError) {
	ctx, span := r.tracer.Start(ctx, "bond-repo.upsert-bonds")
	defer span.End()

	keys := make([]string, len(bonds))
	args := make([][]any, len(bonds))
	for i, b := range bonds {
		keys[i] = b.BondTicker
		args[i] = []any{
			b.BondTicker, b.UnderlyingTicker, b.Name, b.ConversionPrice, b.TriggerPercent, b.TriggerDaysRequired,
			b.OutstandingBalance, b.TotalIssued, nullableDate(b.MaturityDate), b.BondPrice,
		}
	}
	return upsertRows(ctx, r.pool, upsertBondSQL, keys, args)
}

// ActiveBonds lists bonds still outstanding on the date: active, not matured, balance left.
func (r *BondRepository) ActiveBonds(ctx context.Context, date time.Time) ([]domain.ConvertibleBond, error) {
	ctx, span := r.tracer.Start(ctx, "bond-repo.active-bonds")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT bond_ticker, underlying_ticker, name, conversion_price, trigger_percent, trigger_days_required,
		        outstanding_balance, total_issued, maturity_date, bond_price
		 FROM convertible_bonds
		 WHERE active AND outstanding_balance > 0
		   AND (maturity_date IS NULL OR maturity_date >= $1)
		 ORDER BY bond_ticker`,
		domain.TruncateDate(date),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bonds []domain.ConvertibleBond
	for rows.Next() {
		var b domain.ConvertibleBond
		var maturity *time.Time
		if err := rows.Scan(
			&b.BondTicker, &b.UnderlyingTicker, &b.Name, &b.ConversionPrice, &b.TriggerPercent, &b.TriggerDaysRequired,
			&b.OutstandingBalance, &b.TotalIssued, &maturity, &b.BondPrice,
		); err != nil {
			return nil, err
		}
		if maturity != nil {
			b.MaturityDate = domain.TruncateDate(*maturity)
		}
		bonds = append(bonds, b)
	}
	return bonds, rows.Err()
}

func nullableDate(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	d := domain.TruncateDate(t)
	return &d
}
