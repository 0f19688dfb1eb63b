package handler

import (
	"context"
	"net/http"
	"time"

	"alpha-squeeze/internal/advisor"
	"alpha-squeeze/internal/domain"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/trace"
)

type EvaluationAPI interface {
	RunDate(ctx context.Context, date time.Time) (domain.EvaluationRunResult, error)
	SignalsForDate(ctx context.Context, date time.Time) ([]domain.SqueezeSignal, error)
	TopCandidates(ctx context.Context, f domain.CandidateFilter) ([]domain.SqueezeSignal, error)
	Warnings(ctx context.Context, date time.Time, minLevel domain.WarningLevel, limit int) ([]domain.TriggerTrackingRecord, error)
	WarningSummary(ctx context.Context, date time.Time) (domain.WarningSummary, error)
	StoredMetric(ctx context.Context, ticker string, date time.Time) (domain.InstrumentDailyMetric, error)
	IngestMetrics(ctx context.Context, metrics []domain.InstrumentDailyMetric) (int, []string, error)
	IngestBonds(ctx context.Context, bonds []domain.ConvertibleBond) (int, []string, error)
}

type WeightAPI interface {
	Current() domain.WeightConfig
	Update(ctx context.Context, w domain.WeightConfig) (domain.WeightConfig, error)
}

// FallbackScorer scores one instrument and reports whether the degraded fallback was used.
type FallbackScorer interface {
	Evaluate(ctx context.Context, m domain.InstrumentDailyMetric) (domain.SqueezeSignal, bool)
}

type BriefAPI interface {
	Write(ctx context.Context, date time.Time) (advisor.Brief, error)
}

type EngineProbe interface {
	Available(ctx context.Context) bool
}

// Deps are the handler's collaborators. Any of them may be nil; the routes that need a
// missing one answer 503.
type Deps struct {
	Evaluations EvaluationAPI
	Weights     WeightAPI
	Scorer      FallbackScorer
	Briefs      BriefAPI
	Engine      EngineProbe
}

type Options struct {
	APIKey            string
	RateLimitPerMin   int
	RateLimitBurst    int
	TopMinScore       int
	TopLimit          int
	DefaultWarnLimit  int
	MaxCandidateLimit int
}

type Handler struct {
	tracer trace.Tracer
	logger *logrus.Logger
	deps   Deps
	opts   Options
}

func New(tracer trace.Tracer, logger *logrus.Logger, deps Deps, opts Options) *Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.TopLimit <= 0 {
		opts.TopLimit = 20
	}
	if opts.DefaultWarnLimit <= 0 {
		opts.DefaultWarnLimit = 50
	}
	if opts.MaxCandidateLimit <= 0 {
		opts.MaxCandidateLimit = 500
	}
	return &Handler{tracer: tracer, logger: logger, deps: deps, opts: opts}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.GET("/squeeze/:date", h.GetSignals)
	api.GET("/squeeze/:date/top", h.GetTopCandidates)
	api.POST("/squeeze/evaluate", h.EvaluateInstrument)
	api.GET("/cb/:date/warnings", h.GetWarnings)
	api.GET("/cb/:date/summary", h.GetWarningSummary)
	api.GET("/config/weights", h.GetWeights)
	api.GET("/brief/:date", h.GetBrief)

	mutating := api.Group("", APIKeyAuth(h.opts.APIKey), RateLimit(h.opts.RateLimitPerMin, h.opts.RateLimitBurst))
	mutating.POST("/evaluate/:date", h.RunEvaluation)
	mutating.PUT("/config/weights", h.UpdateWeights)
	mutating.POST("/metrics", h.IngestMetrics)
	mutating.POST("/bonds", h.IngestBonds)
}

func unavailable(c *gin.Context, what string) {
	c.JSON(http.StatusServiceUnavailable, gin.H{"error": what + " unavailable"})
}

// dateParam parses the :date path segment, writing a 400 on failure.
func dateParam(c *gin.Context) (time.Time, bool) {
	d, err := domain.ParseDate(c.Param("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return time.Time{}, false
	}
	return d, true
}
