package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port               string
	LogLevel           string
	MaxUploadSizeBytes int64

	// ReferenceTimezone is the one timezone every normalized timestamp is
	// expressed in, regardless of the timezone carried by the source file.
	ReferenceTimezone string

	PreviewCacheTTL             time.Duration
	PreviewCacheCleanupInterval time.Duration

	RateLimitInterval time.Duration
	RateLimitBurst    int
}

var Cfg *AppConfig

func LoadConfig() {
	errEnv := godotenv.Load()
	if errEnv != nil {
		log.Println("Info: No .env file found or error loading .env file. Relying on OS environment variables and defaults. Error (if any):", errEnv)
	} else {
		log.Println(".env file loaded successfully.")
	}

	log.Println("Loading application configuration...")

	maxUploadSizeBytesStr := getEnv("MAX_UPLOAD_SIZE_BYTES", "10485760")
	maxUploadSizeBytes, err := strconv.ParseInt(maxUploadSizeBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_UPLOAD_SIZE_BYTES format '%s'. Using default 10MB. Error: %v", maxUploadSizeBytesStr, err)
		maxUploadSizeBytes = 10 * 1024 * 1024
	}

	referenceTimezone := getEnv("REFERENCE_TIMEZONE", "America/New_York")
	if _, err := time.LoadLocation(referenceTimezone); err != nil {
		log.Printf("WARNING: Invalid REFERENCE_TIMEZONE '%s'. Using default America/New_York. Error: %v", referenceTimezone, err)
		referenceTimezone = "America/New_York"
	}

	Cfg = &AppConfig{
		Port:               getEnv("PORT", "8080"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		MaxUploadSizeBytes: maxUploadSizeBytes,
		ReferenceTimezone:  referenceTimezone,

		PreviewCacheTTL:             getEnvAsDuration("PREVIEW_CACHE_TTL", 15*time.Minute),
		PreviewCacheCleanupInterval: getEnvAsDuration("PREVIEW_CACHE_CLEANUP_INTERVAL", 30*time.Minute),

		RateLimitInterval: getEnvAsDuration("RATE_LIMIT_INTERVAL", 100*time.Millisecond),
		RateLimitBurst:    getEnvAsInt("RATE_LIMIT_BURST", 30),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, ReferenceTimezone=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.ReferenceTimezone)
}

// Location resolves the configured reference timezone. LoadConfig has already
// validated the name, so failures here fall back to UTC.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.ReferenceTimezone)
	if err != nil {
		log.Printf("WARNING: Failed to load reference timezone '%s', falling back to UTC: %v", c.ReferenceTimezone, err)
		return time.UTC
	}
	return loc
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	log.Printf("Environment variable %s not set, using default: %s", key, fallback)
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Integer value for %s not set or empty, using default: %d", key, fallback)
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		log.Printf("Duration value for %s not set or empty, using default: %s", key, fallback.String())
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}
