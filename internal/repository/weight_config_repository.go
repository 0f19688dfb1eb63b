package repository

import (
	"context"
	"errors"
	"time"

	"alpha-squeeze/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
)

// WeightConfigRepository stores every accepted weight config as a new immutable version.
type WeightConfigRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewWeightConfigRepository(pool PgxPool, tracer trace.Tracer) *WeightConfigRepository {
	return &WeightConfigRepository{pool: pool, tracer: tracer}
}

// Insert persists w and returns it stamped with its assigned version and creation time.
func (r *WeightConfigRepository) Insert(ctx context.Context, w domain.WeightConfig) (domain.WeightConfig, error) {
	ctx, span := r.tracer.Start(ctx, "weight-config-repo.insert")
	defer span.End()

	var version int
	var createdAt time.Time
	err := r.pool.QueryRow(ctx,
		`INSERT INTO weight_configs
		     (borrow_weight, gamma_weight, margin_weight, momentum_weight, bullish_cutoff, bearish_cutoff)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING version, created_at`,
		w.BorrowWeight, w.GammaWeight, w.MarginWeight, w.MomentumWeight, w.BullishCutoff, w.BearishCutoff,
	).Scan(&version, &createdAt)
	if err != nil {
		return domain.WeightConfig{}, err
	}
	w.Version = version
	w.UpdatedAt = createdAt.UTC()
	return w, nil
}

// Latest returns the newest version, or ErrNotFound when none has been stored.
func (r *WeightConfigRepository) Latest(ctx context.Context) (domain.WeightConfig, error) {
	ctx, span := r.tracer.Start(ctx, "weight-config-repo.latest")
	defer span.End()

	var w domain.WeightConfig
	err := r.pool.QueryRow(ctx,
		`SELECT version, borrow_weight, gamma_weight, margin_weight, momentum_weight, bullish_cutoff, bearish_cutoff, created_at
		 FROM weight_configs
		 ORDER BY version DESC
		 LIMIT 1`,
	).Scan(&w.Version, &w.BorrowWeight, &w.GammaWeight, &w.MarginWeight, &w.MomentumWeight,
		&w.BullishCutoff, &w.BearishCutoff, &w.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.WeightConfig{}, ErrNotFound
	}
	if err != nil {
		return domain.WeightConfig{}, err
	}
	w.UpdatedAt = w.UpdatedAt.UTC()
	return w, nil
}
