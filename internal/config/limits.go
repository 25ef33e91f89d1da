package config

import (
	"os"
	"strconv"
	"time"
)

// RateLimitConfig holds the request budgets enforced by the limiters.
type RateLimitConfig struct {
	APIRequests         int
	APIWindow           time.Duration
	LoginAttempts       int
	LoginWindow         time.Duration
	TransactionRequests int
	TransactionWindow   time.Duration
	KeyPrefix           string
}

func LoadRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		APIRequests:         getEnvAsInt("RATE_LIMIT_API_REQUESTS", 200),
		APIWindow:           getEnvAsDuration("RATE_LIMIT_API_WINDOW", 15*time.Minute),
		LoginAttempts:       getEnvAsInt("RATE_LIMIT_LOGIN_ATTEMPTS", 5),
		LoginWindow:         getEnvAsDuration("RATE_LIMIT_LOGIN_WINDOW", 15*time.Minute),
		TransactionRequests: getEnvAsInt("RATE_LIMIT_TRANSACTION_REQUESTS", 10),
		TransactionWindow:   getEnvAsDuration("RATE_LIMIT_TRANSACTION_WINDOW", time.Hour),
		KeyPrefix:           getEnv("RATE_LIMIT_KEY_PREFIX", "ratelimit"),
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if duration, err := time.ParseDuration(val); err == nil {
			return duration
		}
	}
	return defaultVal
}
