package main

import (
	"context"
	"log"
	"matte/config"
	"matte/database"
	"matte/repositories"
	"matte/routes"
	"matte/services"
	"matte/workers"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg := config.Load()

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	setupLogger(cfg)

	// Storage
	var redisClient *redis.Client
	var store repositories.Store

	if cfg.UsesRedis() {
		redisClient = config.InitRedis(cfg)
		defer redisClient.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := redisClient.Ping(ctx).Err()
		cancel()
		if err != nil {
			logrus.Fatal("Failed to connect to Redis: ", err)
		}
	}

	switch cfg.StorageBackend {
	case config.StorageRedis:
		store = repositories.NewRedisStore(redisClient)

	case config.StorageMongo:
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			logrus.Fatal("Failed to connect to database: ", err)
		}
		defer database.Disconnect()
		store = repositories.NewMongoStore(db, cfg.MongoCollection)

	default:
		logrus.Warn("Using in-memory storage; SOS state is lost on restart")
		store = repositories.NewMemoryStore()
	}

	// Repositories
	keys := repositories.NewKeyspace(cfg.KeyPrefix)
	emergencyRepo := repositories.NewEmergencyRepository(store, keys)
	settingsRepo := repositories.NewSettingsRepository(store, keys)
	activeRepo := repositories.NewActiveEmergencyRepository(store, keys, emergencyRepo)
	historyRepo := repositories.NewHistoryRepository(store, keys, emergencyRepo)

	// Action hand-off
	var publisher workers.ActionPublisher = workers.NewLogPublisher(logrus.StandardLogger())
	if redisClient != nil {
		publisher = workers.NewRedisPublisher(redisClient, cfg.ActionChannel)
	}

	workerConfig := workers.DefaultActionWorkerConfig()
	workerConfig.WorkerCount = cfg.ActionWorkerCount
	workerConfig.QueueSize = cfg.ActionQueueSize

	actionWorker := workers.NewActionWorker(publisher, workerConfig)
	actionWorker.Start()

	emergencyService := services.NewEmergencyService(
		settingsRepo,
		activeRepo,
		historyRepo,
		emergencyRepo,
		actionWorker,
		services.EmergencyServiceConfig{AllowOverwrite: cfg.AllowOverwrite},
	)

	router := routes.SetupRoutes(routes.Dependencies{
		Config:       cfg,
		Store:        store,
		Redis:        redisClient,
		Emergency:    emergencyService,
		ActionWorker: actionWorker,
	})

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logrus.Info("🚨 Matte SOS server starting on port ", cfg.Port)
		logrus.Info("📦 Storage backend: ", store.Name())
		logrus.Info("💖 Health Check: /health")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatal("Failed to start server: ", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Error("Server forced to shutdown: ", err)
	}

	// Requests are done; let queued plans go out before storage closes.
	actionWorker.Stop()

	logrus.Info("✅ Server shutdown complete")
}

func setupLogger(cfg *config.Config) {
	logrus.SetFormatter(&logrus.JSONFormatter{})

	if cfg.Environment == "development" {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
		logrus.SetLevel(logrus.DebugLevel)
	} else {
		logrus.SetLevel(logrus.InfoLevel)
	}
}
