package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health godoc
// @Summary      Health check
// @Description  Returns service health and whether the scoring engine is reachable
// @Tags         health
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	available := h.deps.Engine != nil && h.deps.Engine.Available(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "engine_available": available})
}
