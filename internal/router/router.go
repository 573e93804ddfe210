package router

import (
	"net/http"

	"backoffice/internal/common"
	"backoffice/internal/config"
	"backoffice/internal/domain/dispatch"
	"backoffice/internal/domain/monitor"
	"backoffice/internal/domain/notification"
	"backoffice/internal/middleware"

	"github.com/gin-gonic/gin"
)

// New creates and configures the Gin router with all middleware and routes.
// monitorHandler is nil when no shop is configured.
func New(
	cfg *config.Config,
	notificationHandler *notification.Handler,
	dispatchHandler *dispatch.Handler,
	monitorHandler *monitor.Handler,
) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()

	// Global middleware stack (order matters)
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.CORS(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
	))

	rateLimiter := middleware.NewRateLimiter(
		cfg.RateLimit.RequestsPerSecond,
		cfg.RateLimit.Burst,
	)
	r.Use(rateLimiter.Middleware())
	r.Use(middleware.Logger())

	// Public routes
	r.GET("/health", healthCheck(monitorHandler != nil))

	// Protected API routes (API key required)
	protectedAPI := r.Group("/api/v1")
	protectedAPI.Use(middleware.Auth(cfg.Auth.APIKeys))
	{
		notificationHandler.RegisterRoutes(protectedAPI)
		dispatchHandler.RegisterRoutes(protectedAPI)
		if monitorHandler != nil {
			monitorHandler.RegisterRoutes(protectedAPI)
		}
	}

	return r
}

// healthCheck handles GET /health
func healthCheck(monitoring bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		common.Success(c, http.StatusOK, gin.H{
			"status":     "ok",
			"service":    "backoffice",
			"monitoring": monitoring,
		})
	}
}
