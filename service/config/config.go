package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// DefaultTokenMint is the POPCAT mint on mainnet. Overridable via TOKEN_MINT
// for other deployments.
const DefaultTokenMint = "7GCihgDB8fe6KNjn2MYtkzZcRjQy3t9GHdC8uHYmW2hr"

// Config holds all application configuration loaded from environment variables.
// All required fields are validated at startup to ensure fail-fast behavior.
type Config struct {
	// Server configuration
	ServerAddr string
	LogLevel   string

	// Database configuration
	DatabaseURL string

	// NATS configuration (optional; empty disables event publishing)
	NATSURL string

	// Solana configuration
	SolanaRPCURL string
	TokenMint    string

	// Holder discovery configuration
	TopHolderCount int

	// Price lookup configuration
	CoinGeckoBaseURL string
	CoinGeckoCoinID  string

	// Temporal configuration
	TemporalHost      string
	TemporalNamespace string
	TemporalTaskQueue string

	// Ingestion pacing configuration
	SignaturePageLimit int
	ThrottleRetries    int
	ThrottleBackoff    time.Duration
	TxFetchDelay       time.Duration
	WalletDelay        time.Duration

	// Pass scheduling configuration
	PassInterval time.Duration
}

// Load reads configuration from environment variables and validates all required fields.
// Returns an error if any required configuration is missing or invalid.
func Load() (*Config, error) {
	cfg := &Config{}
	var errs []error

	cfg.ServerAddr = getEnvOrDefault("SERVER_ADDR", ":8080")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("DATABASE_URL is required"))
	}

	cfg.NATSURL = os.Getenv("NATS_URL")

	cfg.SolanaRPCURL = os.Getenv("SOLANA_RPC_URL")
	if cfg.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SOLANA_RPC_URL is required"))
	}

	cfg.TokenMint = getEnvOrDefault("TOKEN_MINT", DefaultTokenMint)

	count, err := parseInt("TOP_HOLDER_COUNT", 30)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.TopHolderCount = count
	}

	cfg.CoinGeckoBaseURL = getEnvOrDefault("COINGECKO_BASE_URL", "https://api.coingecko.com")
	cfg.CoinGeckoCoinID = getEnvOrDefault("COINGECKO_COIN_ID", "popcat")

	cfg.TemporalHost = getEnvOrDefault("TEMPORAL_HOST", "localhost:7233")
	cfg.TemporalNamespace = getEnvOrDefault("TEMPORAL_NAMESPACE", "default")
	cfg.TemporalTaskQueue = getEnvOrDefault("TEMPORAL_TASK_QUEUE", "tokenwise-tracking")

	limit, err := parseInt("SIGNATURE_PAGE_LIMIT", 100)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.SignaturePageLimit = limit
	}

	retries, err := parseInt("THROTTLE_RETRIES", 3)
	if err != nil {
		errs = append(errs, err)
	} else {
		cfg.ThrottleRetries = retries
	}

	for _, d := range []struct {
		key   string
		def   string
		field *time.Duration
	}{
		{"THROTTLE_BACKOFF", "500ms", &cfg.ThrottleBackoff},
		{"TX_FETCH_DELAY", "200ms", &cfg.TxFetchDelay},
		{"WALLET_DELAY", "500ms", &cfg.WalletDelay},
		{"PASS_INTERVAL", "15m", &cfg.PassInterval},
	} {
		v, err := parseDuration(d.key, d.def)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		*d.field = v
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %v", errs)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad is like Load but panics if configuration is invalid.
// Useful for process initialization where misconfiguration should halt startup.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}

// Validate checks if the configuration is valid.
// This is useful for testing configuration without loading from env.
func (c *Config) Validate() error {
	var errs []error

	if c.DatabaseURL == "" {
		errs = append(errs, fmt.Errorf("DatabaseURL is required"))
	}

	if c.SolanaRPCURL == "" {
		errs = append(errs, fmt.Errorf("SolanaRPCURL is required"))
	}

	if c.TokenMint == "" {
		errs = append(errs, fmt.Errorf("TokenMint is required"))
	}

	if c.TopHolderCount <= 0 {
		errs = append(errs, fmt.Errorf("TopHolderCount must be positive"))
	}

	if c.SignaturePageLimit <= 0 {
		errs = append(errs, fmt.Errorf("SignaturePageLimit must be positive"))
	}

	if c.ThrottleRetries < 1 {
		errs = append(errs, fmt.Errorf("ThrottleRetries must be at least 1"))
	}

	if c.PassInterval < time.Minute {
		errs = append(errs, fmt.Errorf("PassInterval must be at least 1 minute"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %v", errs)
	}

	return nil
}

// getEnvOrDefault returns the environment variable value or a default if not set.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseDuration parses a duration from an environment variable or uses a default.
func parseDuration(key, defaultValue string) (time.Duration, error) {
	value := getEnvOrDefault(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", key, value, err)
	}
	return duration, nil
}

// parseInt parses an integer from an environment variable or uses a default.
func parseInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	result, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid integer %q: %w", key, value, err)
	}
	return result, nil
}
