// routes/routes.go
package routes

import (
	"matte/config"
	"matte/controllers"
	"matte/middleware"
	"matte/repositories"
	"matte/services"
	"matte/workers"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

// Dependencies is everything the HTTP layer is built from.
type Dependencies struct {
	Config       *config.Config
	Store        repositories.Store
	Redis        *redis.Client // optional, enables the shared rate limiter
	Emergency    *services.EmergencyService
	ActionWorker *workers.ActionWorker
}

// SetupRoutes initializes all application routes
func SetupRoutes(deps Dependencies) *gin.Engine {
	router := gin.New()

	controllers := initializeControllers(deps)

	setupGlobalMiddleware(router, deps.Config)

	router.GET("/health", controllers.Health.HealthCheck)
	SetupEmergencyRoutes(router, controllers.Emergency, deps.Redis, deps.Config)

	return router
}

type Controllers struct {
	Emergency *controllers.EmergencyController
	Health    *controllers.HealthController
}

func initializeControllers(deps Dependencies) *Controllers {
	var actions controllers.ActionStatsProvider
	if deps.ActionWorker != nil {
		actions = deps.ActionWorker
	}

	return &Controllers{
		Emergency: controllers.NewEmergencyController(deps.Emergency),
		Health:    controllers.NewHealthController(deps.Store, actions, deps.Config.Version),
	}
}

func setupGlobalMiddleware(router *gin.Engine, cfg *config.Config) {
	router.Use(middleware.RequestID())
	router.Use(middleware.NewErrorHandler(cfg.Environment, logrus.StandardLogger()).Handle())
	router.Use(middleware.DefaultLoggerMiddleware())

	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	router.Use(middleware.SecurityHeaders())
}
