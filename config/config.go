package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/superpoupe/backend/internal/domain"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Store     StoreConfig     `mapstructure:"store"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Grounding GroundingConfig `mapstructure:"grounding"`
	Import    ImportConfig    `mapstructure:"import"`
	Matching  MatchingConfig  `mapstructure:"matching"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	AdminToken      string        `mapstructure:"admin_token"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// StoreConfig selects the catalog database
type StoreConfig struct {
	Driver string `mapstructure:"driver"` // "memory", "postgres", "sqlite" or "none"
	DSN    string `mapstructure:"dsn"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type       string        `mapstructure:"type"` // "memory" or "redis"
	RedisURL   string        `mapstructure:"redis_url"`
	TTL        time.Duration `mapstructure:"ttl"`
	CartTTL    time.Duration `mapstructure:"cart_ttl"`
	MaxEntries int           `mapstructure:"max_entries"`
}

// GroundingConfig holds Gemini API configuration. An empty key disables discovery.
type GroundingConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	BaseURL           string        `mapstructure:"base_url"`
	Model             string        `mapstructure:"model"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
	Timeout           time.Duration `mapstructure:"timeout"`
}

// ImportConfig holds bulk import configuration
type ImportConfig struct {
	BatchSize    int    `mapstructure:"batch_size"`
	Lookback     int    `mapstructure:"lookback"`
	DefaultStore string `mapstructure:"default_store"`
}

// MatchingConfig holds cross-store comparison configuration
type MatchingConfig struct {
	MinConfidence       float64 `mapstructure:"min_confidence"` // 0-100
	EnableFuzzyMatching bool    `mapstructure:"enable_fuzzy_matching"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "console"
}

// Load loads configuration from a .env file, environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/superpoupe/")

	// SUPERPOUPE_CACHE_REDIS_URL -> cache.redis_url
	v.SetEnvPrefix("SUPERPOUPE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set default values
	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads ./.env when present. Variables already set win.
func loadEnvFile() error {
	if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return godotenv.Load(".env")
}

// setDefaults sets default configuration values. Every key needs a default
// so that AutomaticEnv picks it up during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.admin_token", "")
	v.SetDefault("server.shutdown_timeout", "15s")

	// Store defaults
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.dsn", "")

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("cache.cart_ttl", "24h")
	v.SetDefault("cache.max_entries", 10000)

	// Grounding defaults
	v.SetDefault("grounding.api_key", "")
	v.SetDefault("grounding.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("grounding.model", "gemini-2.5-flash")
	v.SetDefault("grounding.requests_per_minute", 10)
	v.SetDefault("grounding.timeout", "60s")

	// Import defaults
	v.SetDefault("import.batch_size", 50)
	v.SetDefault("import.lookback", 12)
	v.SetDefault("import.default_store", string(domain.StoreContinente))

	// Matching defaults
	v.SetDefault("matching.min_confidence", 50.0)
	v.SetDefault("matching.enable_fuzzy_matching", true)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 100)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// validate validates the configuration
func validate(config *Config) error {
	switch config.Store.Driver {
	case "memory", "none":
	case "postgres", "sqlite":
		if config.Store.DSN == "" {
			return fmt.Errorf("store DSN is required when store driver is '%s' (set SUPERPOUPE_STORE_DSN)", config.Store.Driver)
		}
	default:
		return fmt.Errorf("store driver must be 'memory', 'postgres', 'sqlite' or 'none', got: %s", config.Store.Driver)
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	if config.Import.BatchSize <= 0 {
		return fmt.Errorf("import batch size must be positive, got: %d", config.Import.BatchSize)
	}

	if config.Import.Lookback <= 0 {
		return fmt.Errorf("import lookback must be positive, got: %d", config.Import.Lookback)
	}

	if _, ok := domain.ParseStoreID(config.Import.DefaultStore); !ok {
		return fmt.Errorf("unknown default store: %s", config.Import.DefaultStore)
	}

	if config.Matching.MinConfidence < 0 || config.Matching.MinConfidence > 100 {
		return fmt.Errorf("matching min confidence must be between 0 and 100, got: %v", config.Matching.MinConfidence)
	}

	if config.Log.Format != "json" && config.Log.Format != "console" {
		return fmt.Errorf("log format must be 'json' or 'console', got: %s", config.Log.Format)
	}

	if config.Server.Environment == "production" && config.Server.AdminToken == "" {
		return fmt.Errorf("admin token is required in production (set SUPERPOUPE_SERVER_ADMIN_TOKEN)")
	}

	return nil
}
