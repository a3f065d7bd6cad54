package handlers

import (
	"net/http"

	"home_gateway/internal/models"
	"home_gateway/internal/service"

	"github.com/gin-gonic/gin"
)

// irrigationSaveRequest replaces the irrigation configuration wholesale.
type irrigationSaveRequest struct {
	Mode            string                 `json:"mode" binding:"required"` // manual | automatic
	AvoidRain       *bool                  `json:"avoid_rain"`
	DurationMinutes int                    `json:"duration_minutes"`
	Schedules       []models.ScheduleEntry `json:"schedules"`
}

type pumpRequest struct {
	State *bool `json:"state" binding:"required"`
}

// @Summary      Irrigation configuration
// @Tags         irrigation
// @Produce      json
// @Success      200  {object}  models.IrrigationConfig
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/irrigation [get]
// @Security     BearerAuth
func (h *Handler) getIrrigation(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Control.Irrigation())
}

// @Summary      Replace irrigation configuration
// @Description  Saves mode, schedules, rain avoidance and duration as one document. avoid_rain defaults to true when omitted.
// @Tags         irrigation
// @Accept       json
// @Produce      json
// @Param        body  body  irrigationSaveRequest  true  "Configuration"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/irrigation/save [post]
// @Security     BearerAuth
func (h *Handler) saveIrrigation(c *gin.Context) {
	var req irrigationSaveRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}

	avoidRain := true
	if req.AvoidRain != nil {
		avoidRain = *req.AvoidRain
	}
	duration := req.DurationMinutes
	if duration == 0 {
		duration = 5
	}

	saved, err := h.services.Control.SaveIrrigation(c.Request.Context(), service.IrrigationParams{
		Mode:            req.Mode,
		AvoidRain:       avoidRain,
		DurationMinutes: duration,
		Schedules:       req.Schedules,
	})
	if err != nil {
		h.commandError(c, err, "irrigation_save_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "saved", "irrigation": saved})
}

// @Summary      Direct pump control
// @Tags         irrigation
// @Accept       json
// @Produce      json
// @Param        body  body  pumpRequest  true  "Desired pump state"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/irrigation/control [post]
// @Security     BearerAuth
func (h *Handler) irrigationControl(c *gin.Context) {
	var req pumpRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}

	if err := h.services.Control.SetPump(c.Request.Context(), *req.State); err != nil {
		h.commandError(c, err, "pump_control_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "applied", "pump_active": *req.State})
}

// @Summary      Scheduler diagnostic view
// @Tags         irrigation
// @Produce      json
// @Success      200  {object}  service.ScheduleStatus
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/irrigation/schedule [get]
// @Security     BearerAuth
func (h *Handler) scheduleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Scheduler.Status())
}
