// routes/emergency.go
package routes

import (
	"matte/config"
	"matte/controllers"
	"matte/middleware"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

// SetupEmergencyRoutes mounts the SOS endpoint. Every verb reaches the
// controller so unsupported ones get the 405 body rather than a 404.
func SetupEmergencyRoutes(router *gin.Engine, emergencyController *controllers.EmergencyController, redis *redis.Client, cfg *config.Config) {
	sos := router.Group("/api/emergency")
	sos.Use(middleware.SOSRateLimit(redis, cfg.KeyPrefix, cfg.RateLimitRequest, cfg.RateLimitWindow))
	{
		sos.Any("/sos", emergencyController.HandleSOS)
		sos.Any("/sos/", emergencyController.HandleSOS)
	}
}
