package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// @Summary      Current weather conditions
// @Tags         weather
// @Produce      json
// @Success      200  {object}  service.WeatherInfo
// @Failure      502  {object}  map[string]string
// @Router       /api/weather [get]
func (h *Handler) weather(c *gin.Context) {
	info, err := h.services.Weather.Current(c.Request.Context())
	if err != nil {
		// Display-only surface; the scheduler path degrades to "dry" on its own.
		c.JSON(http.StatusBadGateway, gin.H{"error": "weather unavailable"})
		return
	}
	c.JSON(http.StatusOK, info)
}

// @Summary      Rain check
// @Tags         weather
// @Produce      json
// @Success      200  {object}  map[string]bool
// @Router       /api/weather/raining [get]
func (h *Handler) weatherRaining(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"raining": h.services.Weather.IsRaining(c.Request.Context())})
}
