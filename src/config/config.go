package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds all configuration for the application.
// The values are loaded from environment variables.
type AppConfig struct {
	// Core settings
	Port         string
	DatabasePath string
	LogLevel     string

	// Questrade API settings
	QuestradeLoginURL     string
	APIRateLimit          float64 // requests per second against the brokerage API
	APIRateBurst          int
	MaxConcurrentAPICalls int

	// Sync engine settings
	SyncPersons          []string
	MaxConcurrentSyncs   int
	ActivityLookbackDays int
	CandleWindowDays     int

	// Market-hours scheduler settings
	SchedulerEnabled   bool
	MarketTimezone     string
	MarketOpen         string // "HH:MM" in market timezone
	MarketClose        string // "HH:MM" in market timezone
	TimeSourceCacheTTL time.Duration

	// Security settings
	AdminJWTSecret string
}

// Cfg is a global instance of the AppConfig.
var Cfg *AppConfig

// LoadConfig loads configuration from environment variables or a .env file.
// It centralizes all configuration logic for the application.
func LoadConfig() {
	// 1. Try loading from the current directory (standard behavior)
	errEnv := godotenv.Load()

	// 2. If not found, try loading from the parent directory (common when running from a subdir)
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}

	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found in current or parent directory. Relying on OS environment variables (expected in production).")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	adminJWTSecret := getEnv("ADMIN_JWT_SECRET", "")
	if adminJWTSecret == "" {
		log.Println("WARNING: ADMIN_JWT_SECRET not set. API endpoints will be unauthenticated. Set this in production.")
	}

	Cfg = &AppConfig{
		// Core
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./portfolio.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		// Questrade API
		QuestradeLoginURL:     getEnv("QUESTRADE_LOGIN_URL", "https://login.questrade.com"),
		APIRateLimit:          getEnvAsFloat("API_RATE_LIMIT", 15),
		APIRateBurst:          getEnvAsInt("API_RATE_BURST", 20),
		MaxConcurrentAPICalls: getEnvAsInt("MAX_CONCURRENT_API_CALLS", 5),

		// Sync engine
		SyncPersons:          getEnvAsList("SYNC_PERSONS"),
		MaxConcurrentSyncs:   getEnvAsInt("MAX_CONCURRENT_SYNCS", 2),
		ActivityLookbackDays: getEnvAsInt("ACTIVITY_LOOKBACK_DAYS", 90),
		CandleWindowDays:     getEnvAsInt("CANDLE_WINDOW_DAYS", 7),

		// Scheduler
		SchedulerEnabled:   getEnvAsBool("SCHEDULER_ENABLED", true),
		MarketTimezone:     getEnv("MARKET_TIMEZONE", "America/New_York"),
		MarketOpen:         getEnv("MARKET_OPEN", "09:30"),
		MarketClose:        getEnv("MARKET_CLOSE", "16:00"),
		TimeSourceCacheTTL: getEnvAsDuration("TIME_SOURCE_CACHE_TTL", 5*time.Minute),

		// Security
		AdminJWTSecret: adminJWTSecret,
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, SchedulerEnabled=%t",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.SchedulerEnabled)
	log.Printf("Sync persons configured: %d", len(Cfg.SyncPersons))
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// getEnvAsInt retrieves an environment variable as an integer or returns a fallback.
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

// getEnvAsFloat retrieves an environment variable as a float64 or returns a fallback.
func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	log.Printf("Invalid float value for %s ('%s'), using default: %g", key, valueStr, fallback)
	return fallback
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a fallback.
func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid boolean value for %s ('%s'), using default: %t", key, valueStr, fallback)
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a fallback.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}

// getEnvAsList retrieves and parses a comma-separated environment variable.
func getEnvAsList(key string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return []string{}
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
