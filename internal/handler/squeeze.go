package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"alpha-squeeze/internal/degraded"
	"alpha-squeeze/internal/domain"
	"alpha-squeeze/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// GetSignals godoc
// @Summary      Squeeze signals for a trading date
// @Description  Returns every stored squeeze signal for the date
// @Tags         squeeze
// @Produce      json
// @Param        date  path  string  true  "Trading date (YYYY-MM-DD)"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/squeeze/{date} [get]
func (h *Handler) GetSignals(c *gin.Context) {
	if h.deps.Evaluations == nil {
		unavailable(c, "evaluation service")
		return
	}
	date, ok := dateParam(c)
	if !ok {
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-signals")
	defer span.End()
	span.SetAttributes(attribute.String("trade_date", date.Format(domain.DateLayout)))

	signals, err := h.deps.Evaluations.SignalsForDate(ctx, date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"trade_date": date.Format(domain.DateLayout),
		"count":      len(signals),
		"signals":    signals,
	})
}

// GetTopCandidates godoc
// @Summary      Top squeeze candidates
// @Description  Returns signals at or above min_score, highest score first
// @Tags         squeeze
// @Produce      json
// @Param        date       path   string  true   "Trading date (YYYY-MM-DD)"
// @Param        min_score  query  int     false  "Minimum composite score"  default(70)
// @Param        limit      query  int     false  "Maximum candidates"       default(20)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/squeeze/{date}/top [get]
func (h *Handler) GetTopCandidates(c *gin.Context) {
	if h.deps.Evaluations == nil {
		unavailable(c, "evaluation service")
		return
	}
	date, ok := dateParam(c)
	if !ok {
		return
	}

	minScore := h.opts.TopMinScore
	if v := c.Query("min_score"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 100 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "min_score must be an integer in [0,100]"})
			return
		}
		minScore = n
	}
	limit := h.opts.TopLimit
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= h.opts.MaxCandidateLimit {
			limit = n
		}
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-top-candidates")
	defer span.End()

	candidates, err := h.deps.Evaluations.TopCandidates(ctx, domain.CandidateFilter{
		TradeDate: date,
		MinScore:  minScore,
		Limit:     limit,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"trade_date": date.Format(domain.DateLayout),
		"min_score":  minScore,
		"candidates": candidates,
	})
}

type evaluateRequest struct {
	Ticker    string        `json:"ticker" binding:"required"`
	TradeDate string        `json:"tradeDate" binding:"required"`
	Metric    *metricRecord `json:"metric" binding:"-"`
}

// EvaluateInstrument godoc
// @Summary      Score one instrument
// @Description  Scores a stored or supplied metric row. Falls back to a DEGRADED signal when the engine is unavailable.
// @Tags         squeeze
// @Accept       json
// @Produce      json
// @Param        request  body  evaluateRequest  true  "Ticker and date, optionally with the metric row"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/squeeze/evaluate [post]
func (h *Handler) EvaluateInstrument(c *gin.Context) {
	if h.deps.Scorer == nil {
		unavailable(c, "scorer")
		return
	}
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	date, err := domain.ParseDate(req.TradeDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ticker := strings.TrimSpace(req.Ticker)

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.evaluate-instrument")
	defer span.End()
	span.SetAttributes(attribute.String("ticker", ticker))

	var metric domain.InstrumentDailyMetric
	if req.Metric != nil {
		req.Metric.Ticker, req.Metric.TradeDate = ticker, req.TradeDate
		if err := binding.Validator.ValidateStruct(req.Metric); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		metric, err = req.Metric.toDomain()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	} else {
		if h.deps.Evaluations == nil {
			unavailable(c, "evaluation service")
			return
		}
		metric, err = h.deps.Evaluations.StoredMetric(ctx, ticker, date)
		switch {
		case errors.Is(err, service.ErrNoMetricForDate):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		case err != nil:
			// no inputs to score; never run the engine on a zeroed row
			h.logger.WithError(err).WithFields(logrus.Fields{
				"ticker":     ticker,
				"trade_date": date.Format(domain.DateLayout),
			}).Warn("stored metric unavailable, answering with fallback signal")
			span.SetAttributes(attribute.Bool("degraded", true))
			c.JSON(http.StatusOK, gin.H{
				"signal":   degraded.Signal(domain.InstrumentDailyMetric{Ticker: ticker, TradeDate: date}),
				"degraded": true,
			})
			return
		}
	}

	signal, fallback := h.deps.Scorer.Evaluate(ctx, metric)
	span.SetAttributes(attribute.Bool("degraded", fallback))
	c.JSON(http.StatusOK, gin.H{"signal": signal, "degraded": fallback})
}

// RunEvaluation godoc
// @Summary      Run the daily evaluation
// @Description  Scores every instrument and advances every bond tracker for the date. Safe to re-run.
// @Tags         squeeze
// @Produce      json
// @Param        date  path  string  true  "Trading date (YYYY-MM-DD)"
// @Success      200  {object}  domain.EvaluationRunResult
// @Failure      400  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/evaluate/{date} [post]
func (h *Handler) RunEvaluation(c *gin.Context) {
	if h.deps.Evaluations == nil {
		unavailable(c, "evaluation service")
		return
	}
	date, ok := dateParam(c)
	if !ok {
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.run-evaluation")
	defer span.End()

	result, err := h.deps.Evaluations.RunDate(ctx, date)
	switch {
	case errors.Is(err, service.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	case errors.Is(err, service.ErrNotConfigured):
		unavailable(c, "evaluation storage")
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "result": result})
		return
	}
	c.JSON(http.StatusOK, result)
}
