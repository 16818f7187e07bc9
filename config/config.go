package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
)

const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageMongo  = "mongo"
)

type Config struct {
	Environment string
	Port        string
	Version     string

	// Storage
	StorageBackend  string
	RedisURL        string
	DatabaseURL     string
	MongoCollection string
	KeyPrefix       string

	// SOS behaviour
	AllowOverwrite bool

	// Action hand-off
	ActionWorkerCount int
	ActionQueueSize   int
	ActionChannel     string

	// Rate limiting
	RateLimitRequest int
	RateLimitWindow  int // minutes
}

func Load() *Config {
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Port:        getEnv("PORT", "8080"),
		Version:     getEnv("APP_VERSION", "1.0.0"),

		StorageBackend:  strings.ToLower(getEnv("STORAGE_BACKEND", StorageMemory)),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379"),
		DatabaseURL:     getEnv("DATABASE_URL", "mongodb://localhost:27017/matte"),
		MongoCollection: getEnv("MONGO_COLLECTION", "sos_kv"),
		KeyPrefix:       getEnv("SOS_KEY_PREFIX", "sos"),

		AllowOverwrite: getEnvAsBool("SOS_ALLOW_OVERWRITE", false),

		ActionWorkerCount: getEnvAsInt("ACTION_WORKER_COUNT", 2),
		ActionQueueSize:   getEnvAsInt("ACTION_QUEUE_SIZE", 256),
		ActionChannel:     getEnv("ACTION_CHANNEL", "sos:actions"),

		RateLimitRequest: getEnvAsInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:  getEnvAsInt("RATE_LIMIT_WINDOW_MINUTES", 1),
	}

	switch cfg.StorageBackend {
	case StorageMemory, StorageRedis, StorageMongo:
	default:
		logrus.Warnf("Unknown storage backend %q, using memory", cfg.StorageBackend)
		cfg.StorageBackend = StorageMemory
	}

	return cfg
}

// UsesRedis reports whether a Redis client is needed for this configuration.
func (c *Config) UsesRedis() bool {
	return c.StorageBackend == StorageRedis
}

func InitRedis(cfg *Config) *redis.Client {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logrus.Warnf("Invalid REDIS_URL, falling back to localhost: %v", err)
		opt = &redis.Options{
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
		}
	}

	client := redis.NewClient(opt)
	return client
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
