package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"alpha-squeeze/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

const maxIngestRows = 5000

type metricRecord struct {
	Ticker                  string  `json:"ticker" binding:"required"`
	TradeDate               string  `json:"tradeDate" binding:"required"`
	Open                    float64 `json:"open" binding:"gte=0"`
	High                    float64 `json:"high" binding:"gte=0"`
	Low                     float64 `json:"low" binding:"gte=0"`
	Close                   float64 `json:"close" binding:"gte=0"`
	Volume                  int64   `json:"volume" binding:"gte=0"`
	BorrowBalanceChange     float64 `json:"borrowBalanceChange"`
	MarginRatio             float64 `json:"marginRatio" binding:"gte=0"`
	HistoricalVolatility20D float64 `json:"historicalVolatility20d" binding:"gte=0"`
	ImpliedVolatility       float64 `json:"impliedVolatility" binding:"gte=0"`
}

func (r metricRecord) toDomain() (domain.InstrumentDailyMetric, error) {
	date, err := domain.ParseDate(r.TradeDate)
	if err != nil {
		return domain.InstrumentDailyMetric{}, err
	}
	return domain.InstrumentDailyMetric{
		Ticker:                  strings.TrimSpace(r.Ticker),
		TradeDate:               date,
		Open:                    r.Open,
		High:                    r.High,
		Low:                     r.Low,
		Close:                   r.Close,
		Volume:                  r.Volume,
		BorrowBalanceChange:     r.BorrowBalanceChange,
		MarginRatio:             r.MarginRatio,
		HistoricalVolatility20D: r.HistoricalVolatility20D,
		ImpliedVolatility:       r.ImpliedVolatility,
	}, nil
}

type bondRecord struct {
	BondTicker          string  `json:"bondTicker" binding:"required"`
	UnderlyingTicker    string  `json:"underlyingTicker" binding:"required"`
	Name                string  `json:"name"`
	ConversionPrice     float64 `json:"conversionPrice" binding:"gt=0"`
	TriggerPercent      float64 `json:"triggerPercent" binding:"gte=0"`
	TriggerDaysRequired int     `json:"triggerDaysRequired" binding:"gte=0"`
	OutstandingBalance  float64 `json:"outstandingBalance" binding:"gte=0"`
	TotalIssued         float64 `json:"totalIssued" binding:"gte=0"`
	MaturityDate        string  `json:"maturityDate"`
	BondPrice           float64 `json:"bondPrice" binding:"gte=0"`
}

func (r bondRecord) toDomain() (domain.ConvertibleBond, error) {
	var maturity time.Time
	if r.MaturityDate != "" {
		d, err := domain.ParseDate(r.MaturityDate)
		if err != nil {
			return domain.ConvertibleBond{}, err
		}
		maturity = d
	}
	return domain.ConvertibleBond{
		BondTicker:          strings.TrimSpace(r.BondTicker),
		UnderlyingTicker:    strings.TrimSpace(r.UnderlyingTicker),
		Name:                r.Name,
		ConversionPrice:     r.ConversionPrice,
		TriggerPercent:      r.TriggerPercent,
		TriggerDaysRequired: r.TriggerDaysRequired,
		OutstandingBalance:  r.OutstandingBalance,
		TotalIssued:         r.TotalIssued,
		MaturityDate:        maturity,
		BondPrice:           r.BondPrice,
	}, nil
}

// IngestMetrics godoc
// @Summary      Upsert daily metric rows
// @Description  Stores instrument metrics keyed by (ticker, tradeDate). Rows that fail are reported, the rest are kept.
// @Tags         ingest
// @Accept       json
// @Produce      json
// @Param        rows  body  []metricRecord  true  "Metric rows"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/metrics [post]
func (h *Handler) IngestMetrics(c *gin.Context) {
	if h.deps.Evaluations == nil {
		unavailable(c, "evaluation service")
		return
	}
	var rows []metricRecord
	if err := c.ShouldBindJSON(&rows); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(rows) == 0 || len(rows) > maxIngestRows {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("expected 1 to %d rows", maxIngestRows)})
		return
	}

	metrics := make([]domain.InstrumentDailyMetric, 0, len(rows))
	for i, r := range rows {
		m, err := r.toDomain()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("row %d: %v", i, err)})
			return
		}
		metrics = append(metrics, m)
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.ingest-metrics")
	defer span.End()
	span.SetAttributes(attribute.Int("rows", len(metrics)))

	written, failed, err := h.deps.Evaluations.IngestMetrics(ctx, metrics)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"written": written, "errors": failed})
}

// IngestBonds godoc
// @Summary      Upsert convertible bond reference data
// @Tags         ingest
// @Accept       json
// @Produce      json
// @Param        rows  body  []bondRecord  true  "Bond rows"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/bonds [post]
func (h *Handler) IngestBonds(c *gin.Context) {
	if h.deps.Evaluations == nil {
		unavailable(c, "evaluation service")
		return
	}
	var rows []bondRecord
	if err := c.ShouldBindJSON(&rows); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if len(rows) == 0 || len(rows) > maxIngestRows {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("expected 1 to %d rows", maxIngestRows)})
		return
	}

	bonds := make([]domain.ConvertibleBond, 0, len(rows))
	for i, r := range rows {
		b, err := r.toDomain()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("row %d: %v", i, err)})
			return
		}
		bonds = append(bonds, b)
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.ingest-bonds")
	defer span.End()
	span.SetAttributes(attribute.Int("rows", len(bonds)))

	written, failed, err := h.deps.Evaluations.IngestBonds(ctx, bonds)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"written": written, "errors": failed})
}
