// Package config handles application configuration from environment variables
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server settings
	Port     string
	Env      string // "development", "staging", "production"
	LogLevel string

	// Database
	DatabaseURL string // PostgreSQL connection string (optional, uses in-memory if not set)

	// Tracing
	OTLPEndpoint string // OTLP gRPC endpoint (optional, tracing disabled if not set)

	// Evaluation pipeline
	EvaluateTimeout    time.Duration // overall deadline per evaluation
	SignalGroupTimeout time.Duration // per-signal-group query budget

	// Signal tunables. Changing any of these changes scores, so they are
	// recorded in the assessment's scoring version string.
	DeviationSentinel    float64 // sigma deviation reported on first same-type transaction
	SmallDepositMax      float64 // inbound amount at or below this counts as a small deposit
	BiometricZThreshold  float64 // sigma threshold for behavioral deviation
	MaxTravelSpeedKMH    float64 // above this implied speed, travel is implausible
	MinTravelDistanceKM  float64 // below this distance, impossible travel is never flagged
	PrimaryCountryShare  float64 // share of history that makes a country "primary"
	OddHoursStart        int     // hour of day, inclusive
	OddHoursEnd          int     // hour of day, exclusive; window may wrap midnight
	DormantRelationship  int     // days of counterparty silence before "dormant"
	NewBeneficiaryWindow time.Duration

	// Scoring and decision
	ScoreDivisor    float64 // saturating normalization constant K
	ReviewThreshold float64 // score at or above routes to manual review
}

const (
	DefaultPort     = "8080"
	DefaultEnv      = "development"
	DefaultLogLevel = "info"

	DefaultEvaluateTimeout    = 10 * time.Second
	DefaultSignalGroupTimeout = 2 * time.Second

	DefaultDeviationSentinel    = 5.0
	DefaultSmallDepositMax      = 50.0
	DefaultBiometricZThreshold  = 2.0
	DefaultMaxTravelSpeedKMH    = 900.0
	DefaultMinTravelDistanceKM  = 200.0
	DefaultPrimaryCountryShare  = 0.80
	DefaultOddHoursStart        = 22
	DefaultOddHoursEnd          = 6
	DefaultDormantRelationship  = 180
	DefaultNewBeneficiaryWindow = 48 * time.Hour

	DefaultScoreDivisor    = 25.0
	DefaultReviewThreshold = 0.60
)

// Load reads configuration from environment variables
// It loads .env file if present (for local development)
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not present)
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", DefaultPort),
		Env:          getEnv("ENV", DefaultEnv),
		LogLevel:     getEnv("LOG_LEVEL", DefaultLogLevel),
		DatabaseURL:  os.Getenv("DATABASE_URL"), // Optional, uses in-memory if not set
		OTLPEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),

		EvaluateTimeout:    getEnvDuration("EVALUATE_TIMEOUT", DefaultEvaluateTimeout),
		SignalGroupTimeout: getEnvDuration("SIGNAL_GROUP_TIMEOUT", DefaultSignalGroupTimeout),

		DeviationSentinel:    getEnvFloat("DEVIATION_SENTINEL", DefaultDeviationSentinel),
		SmallDepositMax:      getEnvFloat("SMALL_DEPOSIT_MAX", DefaultSmallDepositMax),
		BiometricZThreshold:  getEnvFloat("BIOMETRIC_Z_THRESHOLD", DefaultBiometricZThreshold),
		MaxTravelSpeedKMH:    getEnvFloat("MAX_TRAVEL_SPEED_KMH", DefaultMaxTravelSpeedKMH),
		MinTravelDistanceKM:  getEnvFloat("MIN_TRAVEL_DISTANCE_KM", DefaultMinTravelDistanceKM),
		PrimaryCountryShare:  getEnvFloat("PRIMARY_COUNTRY_SHARE", DefaultPrimaryCountryShare),
		OddHoursStart:        int(getEnvInt64("ODD_HOURS_START", DefaultOddHoursStart)),
		OddHoursEnd:          int(getEnvInt64("ODD_HOURS_END", DefaultOddHoursEnd)),
		DormantRelationship:  int(getEnvInt64("DORMANT_RELATIONSHIP_DAYS", DefaultDormantRelationship)),
		NewBeneficiaryWindow: getEnvDuration("NEW_BENEFICIARY_WINDOW", DefaultNewBeneficiaryWindow),

		ScoreDivisor:    getEnvFloat("SCORE_DIVISOR", DefaultScoreDivisor),
		ReviewThreshold: getEnvFloat("REVIEW_THRESHOLD", DefaultReviewThreshold),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that the configuration is internally consistent
func (c *Config) Validate() error {
	if c.ScoreDivisor <= 0 {
		return fmt.Errorf("SCORE_DIVISOR must be positive")
	}
	if c.ReviewThreshold < 0 || c.ReviewThreshold > 1 {
		return fmt.Errorf("REVIEW_THRESHOLD must be in [0, 1]")
	}
	if c.OddHoursStart < 0 || c.OddHoursStart > 23 || c.OddHoursEnd < 0 || c.OddHoursEnd > 23 {
		return fmt.Errorf("ODD_HOURS_START and ODD_HOURS_END must be hours in [0, 23]")
	}
	if c.PrimaryCountryShare <= 0 || c.PrimaryCountryShare > 1 {
		return fmt.Errorf("PRIMARY_COUNTRY_SHARE must be in (0, 1]")
	}
	if c.SignalGroupTimeout <= 0 || c.EvaluateTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.SignalGroupTimeout > c.EvaluateTimeout {
		return fmt.Errorf("SIGNAL_GROUP_TIMEOUT cannot exceed EVALUATE_TIMEOUT")
	}
	return nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
