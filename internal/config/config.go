// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/MurderWizard/pokemon-pricing/internal/utils"
)

// Config holds application configuration. Resolver tunables default to
// values inferred from the pricing data patterns; they are configuration,
// not hard-coded constants.
type Config struct {
	DataDir        string // Base directory for the price database (always absolute)
	GuidePath      string // Optional override for the condition guide document
	LogLevel       string
	Port           int
	DevMode        bool
	AllowedOrigins []string // CORS origins for the HTTP API

	// Marketplace lookup API. Empty URL disables live lookups; the
	// marketplace adapter then serves stored observations only.
	MarketplaceAPIURL string
	MarketplaceAPIKey string

	// Resolver tunables
	MinUsableConfidence float64       // Adapter results below this are skipped in trust order
	OutlierThreshold    float64       // Fractional deviation from weighted median that drops a candidate
	MaxAgeDays          float64       // Staleness decay horizon: age >= this contributes zero weight
	FreshnessWindow     time.Duration // Store freshness window for statistics and the stale flag
	AdapterTimeout      time.Duration // Per-adapter fetch timeout

	// Scheduled jobs
	VerifyMinAge   time.Duration // Re-verify store entries older than this
	VerifySchedule string        // Cron expression for the re-verification job
	BackupSchedule string        // Cron expression for the backup job

	Backup *BackupConfig
}

// BackupConfig holds cloud backup configuration. Empty bucket disables
// uploads; local snapshots are still written.
type BackupConfig struct {
	Bucket        string
	Endpoint      string // S3-compatible endpoint URL, empty for AWS
	Region        string
	AccessKey     string
	SecretKey     string
	KeepLast      int // Number of local snapshots to retain
	RetentionDays int // Remote snapshots older than this are rotated out; 0 keeps all
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir := getEnv("PRICING_DATA_DIR", "")
	if dataDir == "" {
		dataDir = "./data"
	}

	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:   absDataDir,
		GuidePath: getEnv("CONDITION_GUIDE_PATH", ""),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		Port:      getEnvAsInt("PORT", 8090),
		DevMode:   getEnvAsBool("DEV_MODE", false),

		AllowedOrigins:    utils.ParseCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		MarketplaceAPIURL: getEnv("MARKETPLACE_API_URL", ""),
		MarketplaceAPIKey: getEnv("MARKETPLACE_API_KEY", ""),

		MinUsableConfidence: getEnvAsFloat("MIN_USABLE_CONFIDENCE", 0.4),
		OutlierThreshold:    getEnvAsFloat("OUTLIER_THRESHOLD", 0.4),
		MaxAgeDays:          getEnvAsFloat("MAX_AGE_DAYS", 30),
		FreshnessWindow:     time.Duration(getEnvAsInt("FRESHNESS_WINDOW_DAYS", 7)) * 24 * time.Hour,
		AdapterTimeout:      time.Duration(getEnvAsInt("ADAPTER_TIMEOUT_SECONDS", 5)) * time.Second,

		VerifyMinAge:   time.Duration(getEnvAsInt("VERIFY_MIN_AGE_HOURS", 168)) * time.Hour,
		VerifySchedule: getEnv("VERIFY_SCHEDULE", "0 0 3 * * *"),
		BackupSchedule: getEnv("BACKUP_SCHEDULE", "0 30 2 * * *"),

		Backup: &BackupConfig{
			Bucket:        getEnv("BACKUP_S3_BUCKET", ""),
			Endpoint:      getEnv("BACKUP_S3_ENDPOINT", ""),
			Region:        getEnv("BACKUP_S3_REGION", "auto"),
			AccessKey:     getEnv("BACKUP_S3_ACCESS_KEY", ""),
			SecretKey:     getEnv("BACKUP_S3_SECRET_KEY", ""),
			KeepLast:      getEnvAsInt("BACKUP_KEEP_LAST", 7),
			RetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that tunables are in sane ranges.
func (c *Config) Validate() error {
	if c.MinUsableConfidence < 0 || c.MinUsableConfidence > 1 {
		return fmt.Errorf("MIN_USABLE_CONFIDENCE must be in [0,1], got %.2f", c.MinUsableConfidence)
	}
	if c.OutlierThreshold <= 0 {
		return fmt.Errorf("OUTLIER_THRESHOLD must be positive, got %.2f", c.OutlierThreshold)
	}
	if c.MaxAgeDays <= 0 {
		return fmt.Errorf("MAX_AGE_DAYS must be positive, got %.1f", c.MaxAgeDays)
	}
	if c.AdapterTimeout <= 0 {
		return fmt.Errorf("ADAPTER_TIMEOUT_SECONDS must be positive")
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
