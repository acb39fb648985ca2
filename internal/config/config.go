package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Port           string
	AllowedOrigins []string
	LogLevel       string
	AdminJWTSecret string

	DispatchInterval       time.Duration
	MonitorInterval        time.Duration
	DispatchBatchSize      int
	OverflowPromotionBatch int
	SnapshotInterval       time.Duration

	PingPeriod     time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "http://localhost:5173"), ","),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),
	}

	var err error
	config.DispatchInterval, err = getEnvSeconds("DISPATCH_INTERVAL", 2)
	if err != nil {
		return nil, err
	}
	config.MonitorInterval, err = getEnvSeconds("MONITOR_INTERVAL", 5)
	if err != nil {
		return nil, err
	}
	config.SnapshotInterval, err = getEnvSeconds("SNAPSHOT_INTERVAL", 2)
	if err != nil {
		return nil, err
	}

	config.DispatchBatchSize, err = getEnvInt("DISPATCH_BATCH_SIZE", 10)
	if err != nil {
		return nil, err
	}
	config.OverflowPromotionBatch, err = getEnvInt("OVERFLOW_PROMOTION_BATCH", 5)
	if err != nil {
		return nil, err
	}

	// WebSocket timeouts
	pongWait, err := getEnvSeconds("WS_READ_TIMEOUT", 60)
	if err != nil {
		return nil, err
	}
	writeWait, err := getEnvSeconds("WS_WRITE_TIMEOUT", 10)
	if err != nil {
		return nil, err
	}
	config.PongWait = pongWait
	config.PingPeriod = (pongWait * 9) / 10 // Must be less than pongWait
	config.WriteWait = writeWait
	config.MaxMessageSize = 512

	// Trim spaces from allowed origins
	for i, origin := range config.AllowedOrigins {
		config.AllowedOrigins[i] = strings.TrimSpace(origin)
	}

	return config, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return value, nil
}

func getEnvSeconds(key string, defaultSeconds int) (time.Duration, error) {
	value, err := getEnvInt(key, defaultSeconds)
	if err != nil {
		return 0, err
	}
	return time.Duration(value) * time.Second, nil
}
