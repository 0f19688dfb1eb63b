package job

import (
	"context"
	"time"

	"alpha-squeeze/internal/domain"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

// CandidateSource recomputes a candidate query from storage and writes it through to the cache.
type CandidateSource interface {
	RefreshTopCandidates(ctx context.Context, f domain.CandidateFilter) ([]domain.SqueezeSignal, error)
}

// CandidateWarmer keeps the default top-candidates query for the current trade date
// cached, so the first dashboard read after a run does not hit the database. Each tick
// bypasses the cache, so a stale entry never outlives one poll interval.
type CandidateWarmer struct {
	tracer       trace.Tracer
	logger       *logrus.Logger
	source       CandidateSource
	minScore     int
	limit        int
	pollInterval time.Duration
	tradeDate    func() time.Time
}

func NewCandidateWarmer(tracer trace.Tracer, logger *logrus.Logger, source CandidateSource, minScore, limit int, pollInterval time.Duration, tradeDate func() time.Time) *CandidateWarmer {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if pollInterval <= 0 {
		pollInterval = 5 * time.Minute
	}
	if tradeDate == nil {
		tradeDate = func() time.Time { return domain.TruncateDate(time.Now()) }
	}
	return &CandidateWarmer{
		tracer:       tracer,
		logger:       logger,
		source:       source,
		minScore:     minScore,
		limit:        limit,
		pollInterval: pollInterval,
		tradeDate:    tradeDate,
	}
}

// Start warms immediately and then on every tick. Blocks until ctx is cancelled.
func (w *CandidateWarmer) Start(ctx context.Context) {
	if w.source == nil {
		w.logger.Warn("candidate warmer disabled: no source")
		<-ctx.Done()
		return
	}

	w.warm(ctx)
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.warm(ctx)
		}
	}
}

func (w *CandidateWarmer) warm(ctx context.Context) {
	ctx, span := w.tracer.Start(ctx, "candidate-warmer.warm")
	defer span.End()

	date := w.tradeDate()
	signals, err := w.source.RefreshTopCandidates(ctx, domain.CandidateFilter{
		TradeDate: date,
		MinScore:  w.minScore,
		Limit:     w.limit,
	})
	if err != nil {
		w.logger.WithError(err).WithField("trade_date", date.Format(domain.DateLayout)).Warn("candidate warm-up failed")
		return
	}
	w.logger.WithFields(logrus.Fields{
		"trade_date": date.Format(domain.DateLayout),
		"candidates": len(signals),
	}).Debug("candidate cache warmed")
}
