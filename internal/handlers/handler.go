package handlers

import (
	"weather_balance/internal/logger"
	"weather_balance/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
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
	router.Use(gin.Recovery(), h.requestLogger)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	router.GET("/health", h.health)

	// Body example: {"userId": 1, "city": "Moscow"}
	router.POST("/update_balance", h.updateBalance)

	h.registerUserRoutes(router)
	h.registerUpdateRoutes(router)

	// Finished updates pushed as they happen
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerUserRoutes(r *gin.Engine) {
	users := r.Group("/users")
	{
		users.GET("", h.listUsers)
		users.POST("", h.addUser)
		users.GET("/:id/balance", h.getBalance)
	}
}

func (h *Handler) registerUpdateRoutes(r *gin.Engine) {
	updates := r.Group("/updates")
	{
		updates.GET("", h.listUpdates)
		updates.GET("/:id", h.getUpdate)
	}
}

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}
