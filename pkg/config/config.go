// Package config handles loading and validating daemon configuration
// from environment variables, with fallback to a .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all environment-sourced settings for the edge daemon.
type Config struct {
	// Kalshi credentials. Set both or neither; with neither the daemon
	// runs read-only and order entry is disabled.
	KalshiAPIKeyID       string
	KalshiPrivateKeyFile string

	// Market scan
	MinStrike      int
	MaxMarkets     int
	SpreadEstimate int

	// Cadence
	PollInterval  time.Duration
	ScoreInterval time.Duration

	// Execution
	DryRun        bool
	AutoLift      bool
	ContractCount int
	MaxDailySpend float64

	// Market data stream
	EnableWSS bool

	// HTTP status API
	HTTPAddr string
}

// Load reads configuration from environment variables with fallback to a
// .env file. Priority order: environment variables > .env file > defaults.
func Load() (*Config, error) {
	// Attempt to load .env file (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		// Credentials
		KalshiAPIKeyID:       getEnv("KALSHI_API_KEY_ID", ""),
		KalshiPrivateKeyFile: getEnv("KALSHI_PRIVATE_KEY_FILE", ""),

		// Scan
		MinStrike:      getEnvInt("EDGE_MIN_STRIKE", 245),
		MaxMarkets:     getEnvInt("EDGE_MAX_MARKETS", 40),
		SpreadEstimate: getEnvInt("EDGE_SPREAD_ESTIMATE", 5),

		// Cadence
		PollInterval:  time.Duration(getEnvInt("EDGE_POLL_INTERVAL_SEC", 30)) * time.Second,
		ScoreInterval: time.Duration(getEnvInt("EDGE_SCORE_INTERVAL_SEC", 30)) * time.Second,

		// Execution
		DryRun:        getEnvBool("EDGE_DRY_RUN", true),
		AutoLift:      getEnvBool("EDGE_AUTO_LIFT", false),
		ContractCount: getEnvInt("EDGE_CONTRACT_COUNT", 1),
		MaxDailySpend: getEnvFloat("EDGE_MAX_DAILY_SPEND", 200),

		// Stream
		EnableWSS: getEnvBool("EDGE_ENABLE_WSS", false),

		// HTTP
		HTTPAddr: getEnv("EDGE_HTTP_ADDR", ":8080"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are consistent and valid.
func (c *Config) Validate() error {
	if (c.KalshiAPIKeyID == "") != (c.KalshiPrivateKeyFile == "") {
		return fmt.Errorf("KALSHI_API_KEY_ID and KALSHI_PRIVATE_KEY_FILE must be set together")
	}

	if c.MinStrike < 1 {
		return fmt.Errorf("EDGE_MIN_STRIKE must be positive")
	}

	if c.SpreadEstimate < 0 {
		return fmt.Errorf("EDGE_SPREAD_ESTIMATE must not be negative")
	}

	if c.PollInterval < time.Second {
		return fmt.Errorf("EDGE_POLL_INTERVAL_SEC must be at least 1")
	}

	if c.ScoreInterval < time.Second {
		return fmt.Errorf("EDGE_SCORE_INTERVAL_SEC must be at least 1")
	}

	if c.ContractCount < 1 {
		return fmt.Errorf("EDGE_CONTRACT_COUNT must be at least 1")
	}

	if c.MaxDailySpend <= 0 {
		return fmt.Errorf("EDGE_MAX_DAILY_SPEND must be positive")
	}

	if c.HTTPAddr == "" {
		return fmt.Errorf("EDGE_HTTP_ADDR is required")
	}

	return nil
}

// HasCredentials reports whether signing credentials are configured.
func (c *Config) HasCredentials() bool {
	return c.KalshiAPIKeyID != "" && c.KalshiPrivateKeyFile != ""
}

// PrivateKeyPEM reads the configured private key file.
func (c *Config) PrivateKeyPEM() (string, error) {
	if c.KalshiPrivateKeyFile == "" {
		return "", fmt.Errorf("KALSHI_PRIVATE_KEY_FILE is not set")
	}
	pem, err := os.ReadFile(c.KalshiPrivateKeyFile)
	if err != nil {
		return "", fmt.Errorf("read private key: %w", err)
	}
	return string(pem), nil
}

// MaskedAPIKeyID returns the key ID with most characters hidden for logging.
func (c *Config) MaskedAPIKeyID() string {
	return maskSecret(c.KalshiAPIKeyID)
}

// maskSecret hides all but the first and last 4 characters of a secret.
func maskSecret(s string) string {
	if len(s) <= 8 {
		if len(s) == 0 {
			return "(not set)"
		}
		return "****"
	}
	return s[:4] + "****" + s[len(s)-4:]
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an environment variable as an integer or returns a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvFloat retrieves an environment variable as a float64 or returns a default.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

// getEnvBool retrieves an environment variable as a boolean or returns a default.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
