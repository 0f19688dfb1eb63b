package job

import (
	"context"
	"fmt"
	"time"

	"alpha-squeeze/internal/domain"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type EvaluationRunner interface {
	RunDate(ctx context.Context, date time.Time) (domain.EvaluationRunResult, error)
}

// EvaluationJob triggers the daily evaluation on a cron schedule evaluated in the
// exchange's timezone. The trade date is the calendar date in that timezone.
type EvaluationJob struct {
	tracer     trace.Tracer
	logger     *logrus.Logger
	runner     EvaluationRunner
	schedule   string
	loc        *time.Location
	runOnStart bool
	now        func() time.Time
}

func NewEvaluationJob(tracer trace.Tracer, logger *logrus.Logger, runner EvaluationRunner, schedule string, loc *time.Location, runOnStart bool) *EvaluationJob {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &EvaluationJob{
		tracer:     tracer,
		logger:     logger,
		runner:     runner,
		schedule:   schedule,
		loc:        loc,
		runOnStart: runOnStart,
		now:        time.Now,
	}
}

// LoadLocation resolves an IANA zone name, falling back to UTC.
func LoadLocation(name string) *time.Location {
	if name == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logrus.WithError(err).WithField("timezone", name).Warn("unknown timezone, using UTC")
		return time.UTC
	}
	return loc
}

// Start registers the schedule and blocks until ctx is cancelled. An invalid schedule
// is returned immediately.
func (j *EvaluationJob) Start(ctx context.Context) error {
	if j.runner == nil {
		j.logger.Warn("evaluation job disabled: no runner")
		<-ctx.Done()
		return nil
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(j.loc))
	if _, err := c.AddFunc(j.schedule, func() { j.runOnce(ctx) }); err != nil {
		return fmt.Errorf("register evaluation schedule %q: %w", j.schedule, err)
	}

	if j.runOnStart {
		j.runOnce(ctx)
	}

	c.Start()
	j.logger.WithFields(logrus.Fields{"schedule": j.schedule, "timezone": j.loc.String()}).Info("evaluation job started")

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	j.logger.Info("evaluation job stopped")
	return nil
}

// TradeDate is today's calendar date in the job's timezone.
func (j *EvaluationJob) TradeDate() time.Time {
	return domain.TruncateDate(j.now().In(j.loc))
}

func (j *EvaluationJob) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	date := j.TradeDate()
	ctx, span := j.tracer.Start(ctx, "evaluation-job.run-once")
	defer span.End()
	span.SetAttributes(attribute.String("trade_date", date.Format(domain.DateLayout)))

	result, err := j.runner.RunDate(ctx, date)
	if err != nil {
		j.logger.WithError(err).WithField("trade_date", date.Format(domain.DateLayout)).Error("scheduled evaluation failed")
		return
	}
	if len(result.Errors) > 0 {
		j.logger.WithFields(logrus.Fields{
			"run_id": result.RunID,
			"errors": result.Errors,
		}).Warn("scheduled evaluation finished with errors")
	}
}
