package handler

import (
	"net/http"
	"strconv"

	"alpha-squeeze/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetWarnings godoc
// @Summary      Convertible bond redemption warnings
// @Description  Returns bonds at or above min_level, most consecutive days first
// @Tags         cb
// @Produce      json
// @Param        date       path   string  true   "Trading date (YYYY-MM-DD)"
// @Param        min_level  query  string  false  "SAFE, CAUTION, WARNING or CRITICAL"  default(CAUTION)
// @Param        limit      query  int     false  "Maximum records"                      default(50)
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/cb/{date}/warnings [get]
func (h *Handler) GetWarnings(c *gin.Context) {
	if h.deps.Evaluations == nil {
		unavailable(c, "evaluation service")
		return
	}
	date, ok := dateParam(c)
	if !ok {
		return
	}

	minLevel := domain.WarningCaution
	if v := c.Query("min_level"); v != "" {
		lvl, err := domain.ParseWarningLevel(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		minLevel = lvl
	}
	limit := h.opts.DefaultWarnLimit
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= h.opts.MaxCandidateLimit {
			limit = n
		}
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-warnings")
	defer span.End()
	span.SetAttributes(attribute.String("min_level", minLevel.String()))

	records, err := h.deps.Evaluations.Warnings(ctx, date, minLevel, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"trade_date": date.Format(domain.DateLayout),
		"min_level":  minLevel,
		"records":    records,
	})
}

// GetWarningSummary godoc
// @Summary      Convertible bond warning counts
// @Description  Returns the number of tracked bonds per warning level
// @Tags         cb
// @Produce      json
// @Param        date  path  string  true  "Trading date (YYYY-MM-DD)"
// @Success      200  {object}  domain.WarningSummary
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/cb/{date}/summary [get]
func (h *Handler) GetWarningSummary(c *gin.Context) {
	if h.deps.Evaluations == nil {
		unavailable(c, "evaluation service")
		return
	}
	date, ok := dateParam(c)
	if !ok {
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-warning-summary")
	defer span.End()

	summary, err := h.deps.Evaluations.WarningSummary(ctx, date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, summary)
}
