package handlers

import (
	"net/http"

	"home_gateway/internal/service"

	"github.com/gin-gonic/gin"
)

// controlRequest is one (category, key, value) mutation from the browser.
type controlRequest struct {
	Category string `json:"category" binding:"required"` // lights | outlets | irrigation
	Key      string `json:"key" binding:"required"`
	Value    *bool  `json:"value" binding:"required"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// @Summary      Gateway status summary
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Router       /api/status [get]
func (h *Handler) status(c *gin.Context) {
	authenticated := false
	if token, err := c.Cookie(authCookieName); err == nil && token != "" {
		if _, err := h.services.ParseToken(token); err == nil {
			authenticated = true
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":        "online",
		"authenticated": authenticated,
		"link":          h.services.Link.Status(),
	})
}

// @Summary      Full device state snapshot
// @Tags         devices
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/devices [get]
// @Security     BearerAuth
func (h *Handler) getDevices(c *gin.Context) {
	st := h.services.Control.Devices()
	c.JSON(http.StatusOK, gin.H{
		"lights":     st.Lights,
		"outlets":    st.Outlets,
		"irrigation": st.Irrigation,
	})
}

// @Summary      Apply one device command
// @Description  Pump activation is rejected with 409 while rain avoidance detects rain; lights and outlets need the controller link up.
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        body  body  controlRequest  true  "Command"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/control [post]
// @Security     BearerAuth
func (h *Handler) control(c *gin.Context) {
	var req controlRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}

	err := h.services.Control.Switch(c.Request.Context(), service.ControlParams{
		Category: req.Category,
		Key:      req.Key,
		Value:    *req.Value,
	})
	if err != nil {
		h.commandError(c, err, "control_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "applied",
		"category": req.Category,
		"key":      req.Key,
		"value":    *req.Value,
	})
}

// @Summary      Turn every actuator off
// @Tags         devices
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/reset [post]
// @Security     BearerAuth
func (h *Handler) reset(c *gin.Context) {
	if err := h.services.Control.Reset(c.Request.Context()); err != nil {
		h.commandError(c, err, "reset_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reset"})
}

// @Summary      Sensor readings with summary
// @Tags         sensors
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/sensors [get]
// @Security     BearerAuth
func (h *Handler) getSensors(c *gin.Context) {
	readings := h.services.DeviceSync.Readings()

	summary := gin.H{"total_readings": len(readings)}
	if len(readings) > 0 {
		latest := readings[0]
		summary["last_temperature"] = latest.Temperature
		summary["last_humidity"] = latest.Humidity
		summary["last_gas_level"] = latest.GasLevel
		summary["last_gas_alert"] = latest.GasAlert
	}

	c.JSON(http.StatusOK, gin.H{
		"data":    readings,
		"link":    h.services.Link.Status(),
		"summary": summary,
	})
}

// @Summary      Remote controller link status
// @Tags         system
// @Produce      json
// @Success      200  {object}  models.DeviceLinkStatus
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/link [get]
// @Security     BearerAuth
func (h *Handler) linkStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Link.Status())
}
