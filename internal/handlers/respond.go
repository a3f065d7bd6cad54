package handlers

import (
	"errors"
	"net/http"

	"home_gateway/internal/service"

	"github.com/gin-gonic/gin"
)

// commandError maps the service failure taxonomy onto HTTP. Rain blocks get
// a distinguishable body so the UI can say "blocked by weather" instead of a
// generic failure.
func (h *Handler) commandError(c *gin.Context, err error, logKey string) {
	switch {
	case errors.Is(err, service.ErrWeatherBlocked):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "blocked_by": "rain"})
	case errors.Is(err, service.ErrDeviceOffline):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrUnknownDevice), errors.Is(err, service.ErrUnknownCategory):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidConfig):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		if h.log != nil {
			h.log.Errorw(logKey, "err", err)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// bindJSONOrBadRequest tries to bind the request body into dst and writes a
// 400 JSON on failure. Returns false if the request was already handled.
func (h *Handler) bindJSONOrBadRequest(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		if h.log != nil {
			h.log.Infow("bad_request_body", "path", c.FullPath(), "err", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return false
	}
	return true
}
