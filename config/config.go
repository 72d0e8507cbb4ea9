package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppPort string
	AppMode string

	HeartbeatInterval time.Duration
	HeartbeatGrace    time.Duration
	StatusInterval    time.Duration

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	DocsAPIURL     string
	DocsGitHubURL  string
	DocsSupportURL string
}

func LoadConfig() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		AppPort:           getEnv("APP_PORT", "2808"),
		AppMode:           getEnv("APP_MODE", "debug"),
		HeartbeatInterval: getEnvAsSeconds("HEARTBEAT_INTERVAL_SEC", 15),
		HeartbeatGrace:    getEnvAsSeconds("HEARTBEAT_GRACE_SEC", 5),
		StatusInterval:    getEnvAsSeconds("STATUS_INTERVAL_SEC", 30),
		RedisHost:         getEnv("REDIS_HOST", "localhost"),
		RedisPort:         getEnv("REDIS_PORT", "6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvAsInt("REDIS_DB", 0),
		DocsAPIURL:        getEnv("DOCS_API_URL", "https://docs.tradegate.dev/api"),
		DocsGitHubURL:     getEnv("DOCS_GITHUB_URL", "https://github.com/tradegate/gateway"),
		DocsSupportURL:    getEnv("DOCS_SUPPORT_URL", "https://docs.tradegate.dev/support"),
	}

	// The grace window must be shorter than the ping interval, otherwise two
	// pings can be outstanding for the same session at once.
	if cfg.HeartbeatGrace >= cfg.HeartbeatInterval {
		log.Println("HEARTBEAT_GRACE_SEC >= HEARTBEAT_INTERVAL_SEC, clamping grace to half the interval")
		cfg.HeartbeatGrace = cfg.HeartbeatInterval / 2
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsSeconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback)) * time.Second
}
