package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port         string
	DatabasePath string
	LogLevel     string
	JWTSecret    string

	// Import pipeline settings.
	MappingCatalogPath  string
	MaxUploadSizeBytes  int64
	ConfidenceThreshold float64
	PreviewRows         int
	MaxReportedErrors   int
	InsertChunkSize     int
	ResultCacheExpiry   time.Duration
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

	jwtSecret := getEnv("JWT_SECRET", "your-very-secure-and-long-jwt-secret-key-for-hs256-minimum-32-bytes")
	if jwtSecret == "your-very-secure-and-long-jwt-secret-key-for-hs256-minimum-32-bytes" {
		log.Println("WARNING: Using default insecure JWT_SECRET. Set JWT_SECRET environment variable for production.")
	}

	maxUploadSizeBytesStr := getEnv("MAX_UPLOAD_SIZE_BYTES", "10485760")
	maxUploadSizeBytes, err := strconv.ParseInt(maxUploadSizeBytesStr, 10, 64)
	if err != nil {
		log.Printf("WARNING: Invalid MAX_UPLOAD_SIZE_BYTES format '%s'. Using default 10MB. Error: %v", maxUploadSizeBytesStr, err)
		maxUploadSizeBytes = 10 * 1024 * 1024
	}

	confidenceThresholdStr := getEnv("MAPPING_CONFIDENCE_THRESHOLD", "0.7")
	confidenceThreshold, err := strconv.ParseFloat(confidenceThresholdStr, 64)
	if err != nil || confidenceThreshold < 0 || confidenceThreshold > 1 {
		log.Printf("WARNING: Invalid MAPPING_CONFIDENCE_THRESHOLD '%s'. Using default 0.7.", confidenceThresholdStr)
		confidenceThreshold = 0.7
	}

	Cfg = &AppConfig{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./tradefolio.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		JWTSecret:    jwtSecret,

		MappingCatalogPath:  getEnv("MAPPING_CATALOG_PATH", "data/mappings.json"),
		MaxUploadSizeBytes:  maxUploadSizeBytes,
		ConfidenceThreshold: confidenceThreshold,
		PreviewRows:         getEnvAsInt("IMPORT_PREVIEW_ROWS", 10),
		MaxReportedErrors:   getEnvAsInt("IMPORT_MAX_REPORTED_ERRORS", 50),
		InsertChunkSize:     getEnvAsInt("IMPORT_INSERT_CHUNK_SIZE", 500),
		ResultCacheExpiry:   getEnvAsDuration("RESULT_CACHE_EXPIRY", 15*time.Minute),
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, CatalogPath=%s",
		Cfg.Port, Cfg.LogLevel, Cfg.DatabasePath, Cfg.MappingCatalogPath)
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
