package handler

import (
	"errors"
	"net/http"

	"alpha-squeeze/internal/domain"
	"alpha-squeeze/internal/squeeze"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// GetWeights godoc
// @Summary      Active weight config
// @Tags         config
// @Produce      json
// @Success      200  {object}  domain.WeightConfig
// @Failure      503  {object}  map[string]string
// @Router       /api/config/weights [get]
func (h *Handler) GetWeights(c *gin.Context) {
	if h.deps.Weights == nil {
		unavailable(c, "config service")
		return
	}
	c.JSON(http.StatusOK, h.deps.Weights.Current())
}

// UpdateWeights godoc
// @Summary      Replace the weight config
// @Description  Validates and activates a new weight config version. Invalid configs are rejected and the active one is kept.
// @Tags         config
// @Accept       json
// @Produce      json
// @Param        config  body  domain.WeightConfig  true  "Weights and trend cutoffs"
// @Success      200  {object}  domain.WeightConfig
// @Failure      400  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Security     ApiKeyAuth
// @Router       /api/config/weights [put]
func (h *Handler) UpdateWeights(c *gin.Context) {
	if h.deps.Weights == nil {
		unavailable(c, "config service")
		return
	}
	var w domain.WeightConfig
	if err := c.ShouldBindJSON(&w); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.update-weights")
	defer span.End()

	updated, err := h.deps.Weights.Update(ctx, w)
	if err != nil {
		if errors.Is(err, squeeze.ErrInvalidWeightConfig) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	span.SetAttributes(attribute.Int("version", updated.Version))
	h.logger.WithField("version", updated.Version).Info("weight config updated via api")
	c.JSON(http.StatusOK, updated)
}
