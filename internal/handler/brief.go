package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GetBrief godoc
// @Summary      Daily market brief
// @Description  Summarises top squeeze candidates and CB warnings. Uses the LLM when configured, plain text otherwise.
// @Tags         brief
// @Produce      json
// @Param        date  path  string  true  "Trading date (YYYY-MM-DD)"
// @Success      200  {object}  advisor.Brief
// @Failure      400  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/brief/{date} [get]
func (h *Handler) GetBrief(c *gin.Context) {
	if h.deps.Briefs == nil {
		unavailable(c, "brief writer")
		return
	}
	date, ok := dateParam(c)
	if !ok {
		return
	}

	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-brief")
	defer span.End()

	brief, err := h.deps.Briefs.Write(ctx, date)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, brief)
}
