package handlers

import (
	"net/http"

	"home_gateway/internal/models"
	"home_gateway/internal/service"

	"github.com/gin-gonic/gin"
)

// dataRequest is the sensor push from the remote controller. Numeric fields
// accept strings because older firmware sends them quoted.
type dataRequest struct {
	Temperature    models.FlexFloat `json:"temperature"`
	Humidity       models.FlexFloat `json:"humidity"`
	GasLevel       models.FlexFloat `json:"gas_level"`
	GasAlert       bool             `json:"gas_alert"`
	Device         string           `json:"device"`
	Heartbeat      bool             `json:"heartbeat"`
	WifiRSSI       int              `json:"wifi_rssi"`
	IrrigationAuto *bool            `json:"irrigation_auto"`
}

// confirmRequest carries only the subset the controller actually applied.
type confirmRequest struct {
	Lights     map[string]bool    `json:"lights"`
	Outlets    map[string]bool    `json:"outlets"`
	Irrigation *confirmIrrigation `json:"irrigation"`
	Device     string             `json:"device"`
}

type confirmIrrigation struct {
	PumpActive    bool  `json:"pump_active"`
	AutomaticMode *bool `json:"automatic_mode"`
}

// @Summary      Poll desired state
// @Description  Read-only projection of the device state reshaped for the controller; the call itself counts as a heartbeat.
// @Tags         device-sync
// @Produce      json
// @Success      200  {object}  service.CommandsView
// @Router       /api/commands [get]
func (h *Handler) commands(c *gin.Context) {
	view := h.services.DeviceSync.Commands(c.GetHeader("X-Device-ID"), c.ClientIP())
	c.JSON(http.StatusOK, view)
}

// @Summary      Push sensor data
// @Description  Appends a reading to the bounded log, updates liveness, and optionally applies an irrigation mode hint.
// @Tags         device-sync
// @Accept       json
// @Produce      json
// @Param        body  body  dataRequest  true  "Sensor payload"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  map[string]string
// @Router       /api/data [post]
func (h *Handler) pushData(c *gin.Context) {
	var req dataRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}

	reading, err := h.services.DeviceSync.Ingest(c.Request.Context(), service.ReadingParams{
		Temperature:    req.Temperature,
		Humidity:       req.Humidity,
		GasLevel:       req.GasLevel,
		GasAlert:       req.GasAlert,
		Device:         req.Device,
		Heartbeat:      req.Heartbeat,
		WifiRSSI:       req.WifiRSSI,
		IPAddress:      c.ClientIP(),
		IrrigationAuto: req.IrrigationAuto,
	})
	if err != nil {
		h.commandError(c, err, "sensor_ingest_failed")
		return
	}

	message := "data saved"
	if req.Heartbeat {
		message = "heartbeat received"
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "message": message, "reading": reading})
}

// @Summary      Confirm applied state
// @Description  Merges the subset of state the controller reports as physically applied.
// @Tags         device-sync
// @Accept       json
// @Produce      json
// @Param        body  body  confirmRequest  true  "Applied state subset"
// @Success      200  {object}  map[string]string
// @Failure      400  {object}  map[string]string
// @Router       /api/confirm [post]
func (h *Handler) confirm(c *gin.Context) {
	var req confirmRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}

	params := service.ConfirmParams{
		Lights:    req.Lights,
		Outlets:   req.Outlets,
		DeviceID:  req.Device,
		IPAddress: c.ClientIP(),
	}
	if req.Irrigation != nil {
		params.Irrigation = &service.ConfirmIrrigation{
			PumpActive:    req.Irrigation.PumpActive,
			AutomaticMode: req.Irrigation.AutomaticMode,
		}
	}

	if err := h.services.DeviceSync.Confirm(c.Request.Context(), params); err != nil {
		h.commandError(c, err, "confirm_failed")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
