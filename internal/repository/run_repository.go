package repository

import (
	"context"
	"time"

	"alpha-squeeze/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type RunRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewRunRepository(pool PgxPool, tracer trace.Tracer) *RunRepository {
	return &RunRepository{pool: pool, tracer: tracer}
}

func (r *RunRepository) RecordRun(ctx context.Context, run domain.EvaluationRunResult, startedAt, finishedAt time.Time) error {
	ctx, span := r.tracer.Start(ctx, "run-repo.record-run")
	defer span.End()

	skipped := run.Skipped
	if skipped == nil {
		skipped = []string{}
	}
	errs := run.Errors
	if errs == nil {
		errs = []string{}
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO evaluation_runs
		     (run_id, trade_date, config_version, signals_written, tracking_written, skipped, errors, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		run.RunID, domain.TruncateDate(run.TradeDate), run.ConfigVersion, run.SignalsWritten, run.TrackingWritten,
		skipped, errs, startedAt, finishedAt,
	)
	return err
}
