package handlers

import (
	"home_gateway/internal/logger"
	"home_gateway/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires the HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)

	h.registerAuthRoutes(router)
	h.registerPublicRoutes(router)
	h.registerDeviceRoutes(router)
	h.registerAPIRoutes(router)

	// Browser state stream (poll-over-socket for the dashboard).
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
		auth.POST("/sign-out", h.signOut)
	}
}

// registerPublicRoutes covers read-only surfaces the login page and the
// dashboard poll before authenticating.
func (h *Handler) registerPublicRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/status", h.status)
		api.GET("/weather", h.weather)
		api.GET("/weather/raining", h.weatherRaining)
	}
}

// registerDeviceRoutes is the remote-controller surface. The embedded client
// carries no session, so these stay outside the auth gate.
func (h *Handler) registerDeviceRoutes(r *gin.Engine) {
	api := r.Group("/api")
	{
		api.GET("/commands", h.commands)
		api.POST("/data", h.pushData)
		api.POST("/confirm", h.confirm)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.authMiddleware)
	{
		api.GET("/devices", h.getDevices)
		api.POST("/control", h.control)
		api.POST("/reset", h.reset)
		api.GET("/sensors", h.getSensors)
		api.GET("/link", h.linkStatus)
		h.registerIrrigationRoutes(api)
		api.GET("/logs", h.getLogs)
	}
}

func (h *Handler) registerIrrigationRoutes(api *gin.RouterGroup) {
	irrigation := api.Group("/irrigation")
	{
		irrigation.GET("", h.getIrrigation)
		irrigation.POST("/save", h.saveIrrigation)
		irrigation.POST("/control", h.irrigationControl)
		irrigation.GET("/schedule", h.scheduleStatus)
	}
}
