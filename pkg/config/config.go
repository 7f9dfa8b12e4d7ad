package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration. All collaborators receive it
// explicitly; there is no module-level mutable state.
type Config struct {
	DatabaseURL  string
	IsProduction bool

	// Admin surface (healthz, metrics, manual sync trigger).
	AdminPort string

	// Aggregator connection.
	AggregatorBaseURL  string
	AggregatorClientID string
	AggregatorSecret   string
	AggregatorTimeout  time.Duration

	// LLM categorizer.
	LLMModel        string
	LLMTimeout      time.Duration
	PromptVersion   string
	CategorizerPool int

	// Cache.
	CacheDir string

	// Sync tuning.
	SyncPageSize       int
	SyncMaxPageRetries int
	SyncWorkers        int
	SyncInterval       time.Duration
	InvestmentBackfill time.Duration
	InvestmentOverlap  time.Duration
}

// LoadConfig loads configuration from environment variables and a .env file
// if present.
func LoadConfig() (*Config, error) {
	// Attempt to load .env file, ignore error if it doesn't exist
	_ = godotenv.Load()

	viper.SetDefault("PGSQL_URL", "")
	viper.SetDefault("IS_PRODUCTION", false)
	viper.SetDefault("ADMIN_PORT", "8086")
	viper.SetDefault("AGGREGATOR_BASE_URL", "")
	viper.SetDefault("AGGREGATOR_CLIENT_ID", "")
	viper.SetDefault("AGGREGATOR_SECRET", "")
	viper.SetDefault("AGGREGATOR_TIMEOUT", "30s")
	viper.SetDefault("LLM_MODEL", "gemini-2.5-flash")
	viper.SetDefault("LLM_TIMEOUT", "60s")
	viper.SetDefault("PROMPT_VERSION", "v3")
	viper.SetDefault("CATEGORIZER_POOL", 4)
	viper.SetDefault("CACHE_DIR", ".finagent-cache")
	viper.SetDefault("SYNC_PAGE_SIZE", 200)
	viper.SetDefault("SYNC_MAX_PAGE_RETRIES", 3)
	viper.SetDefault("SYNC_WORKERS", 4)
	viper.SetDefault("SYNC_INTERVAL", "6h")
	viper.SetDefault("INVESTMENT_BACKFILL", "17520h") // 730 days
	viper.SetDefault("INVESTMENT_OVERLAP", "168h")    // 7 days

	viper.AutomaticEnv()

	cfg := &Config{}

	cfg.DatabaseURL = viper.GetString("PGSQL_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("PGSQL_URL environment variable is required")
	}

	cfg.IsProduction = viper.GetBool("IS_PRODUCTION")
	cfg.AdminPort = viper.GetString("ADMIN_PORT")

	cfg.AggregatorBaseURL = viper.GetString("AGGREGATOR_BASE_URL")
	cfg.AggregatorClientID = viper.GetString("AGGREGATOR_CLIENT_ID")
	cfg.AggregatorSecret = viper.GetString("AGGREGATOR_SECRET")

	var err error
	if cfg.AggregatorTimeout, err = parseDuration("AGGREGATOR_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.LLMTimeout, err = parseDuration("LLM_TIMEOUT", 60*time.Second); err != nil {
		return nil, err
	}
	if cfg.SyncInterval, err = parseDuration("SYNC_INTERVAL", 6*time.Hour); err != nil {
		return nil, err
	}
	if cfg.InvestmentBackfill, err = parseDuration("INVESTMENT_BACKFILL", 730*24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.InvestmentOverlap, err = parseDuration("INVESTMENT_OVERLAP", 7*24*time.Hour); err != nil {
		return nil, err
	}

	cfg.LLMModel = viper.GetString("LLM_MODEL")
	cfg.PromptVersion = viper.GetString("PROMPT_VERSION")
	cfg.CategorizerPool = viper.GetInt("CATEGORIZER_POOL")
	if cfg.CategorizerPool < 1 {
		cfg.CategorizerPool = 1
	}

	cfg.CacheDir = viper.GetString("CACHE_DIR")

	cfg.SyncPageSize = viper.GetInt("SYNC_PAGE_SIZE")
	cfg.SyncMaxPageRetries = viper.GetInt("SYNC_MAX_PAGE_RETRIES")
	cfg.SyncWorkers = viper.GetInt("SYNC_WORKERS")
	if cfg.SyncWorkers < 1 {
		cfg.SyncWorkers = 1
	}

	return cfg, nil
}

func parseDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := viper.GetString(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s (%q): %w", key, raw, err)
	}
	return d, nil
}
