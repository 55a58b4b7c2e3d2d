package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	// Clean up environment before tests
	cleanupEnv := func() {
		os.Unsetenv("SUPERPOUPE_SERVER_PORT")
		os.Unsetenv("SUPERPOUPE_SERVER_ENVIRONMENT")
		os.Unsetenv("SUPERPOUPE_SERVER_ADMIN_TOKEN")
		os.Unsetenv("SUPERPOUPE_STORE_DRIVER")
		os.Unsetenv("SUPERPOUPE_STORE_DSN")
		os.Unsetenv("SUPERPOUPE_CACHE_TYPE")
		os.Unsetenv("SUPERPOUPE_CACHE_REDIS_URL")
		os.Unsetenv("SUPERPOUPE_CACHE_TTL")
		os.Unsetenv("SUPERPOUPE_GROUNDING_API_KEY")
		os.Unsetenv("SUPERPOUPE_IMPORT_BATCH_SIZE")
		os.Unsetenv("SUPERPOUPE_IMPORT_DEFAULT_STORE")
		os.Unsetenv("SUPERPOUPE_MATCHING_MIN_CONFIDENCE")
		os.Unsetenv("SUPERPOUPE_MATCHING_ENABLE_FUZZY_MATCHING")
		os.Unsetenv("SUPERPOUPE_RATELIMIT_PER_IP")
		os.Unsetenv("SUPERPOUPE_LOG_FORMAT")
	}

	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		cleanupEnv()
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "8080" {
			t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
		}
		if cfg.Server.Environment != "development" {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		if cfg.Server.ShutdownTimeout != 15*time.Second {
			t.Errorf("Server.ShutdownTimeout = %v, want 15s", cfg.Server.ShutdownTimeout)
		}
		if cfg.Store.Driver != "memory" {
			t.Errorf("Store.Driver = %s, want memory", cfg.Store.Driver)
		}
		if cfg.Cache.Type != "memory" {
			t.Errorf("Cache.Type = %s, want memory", cfg.Cache.Type)
		}
		if cfg.Cache.TTL != 5*time.Minute {
			t.Errorf("Cache.TTL = %v, want 5m", cfg.Cache.TTL)
		}
		if cfg.Cache.CartTTL != 24*time.Hour {
			t.Errorf("Cache.CartTTL = %v, want 24h", cfg.Cache.CartTTL)
		}
		if cfg.Grounding.APIKey != "" {
			t.Errorf("Grounding.APIKey = %s, want empty", cfg.Grounding.APIKey)
		}
		if cfg.Grounding.Model != "gemini-2.5-flash" {
			t.Errorf("Grounding.Model = %s, want gemini-2.5-flash", cfg.Grounding.Model)
		}
		if cfg.Import.BatchSize != 50 {
			t.Errorf("Import.BatchSize = %d, want 50", cfg.Import.BatchSize)
		}
		if cfg.Import.Lookback != 12 {
			t.Errorf("Import.Lookback = %d, want 12", cfg.Import.Lookback)
		}
		if cfg.Import.DefaultStore != "continente" {
			t.Errorf("Import.DefaultStore = %s, want continente", cfg.Import.DefaultStore)
		}
		if cfg.Matching.MinConfidence != 50 {
			t.Errorf("Matching.MinConfidence = %v, want 50", cfg.Matching.MinConfidence)
		}
		if !cfg.Matching.EnableFuzzyMatching {
			t.Error("Matching.EnableFuzzyMatching = false, want true")
		}
		if cfg.RateLimit.PerIP != 100 {
			t.Errorf("RateLimit.PerIP = %d, want 100", cfg.RateLimit.PerIP)
		}
		if cfg.Log.Level != "info" {
			t.Errorf("Log.Level = %s, want info", cfg.Log.Level)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("SUPERPOUPE_SERVER_PORT", "9090")
		os.Setenv("SUPERPOUPE_SERVER_ENVIRONMENT", "production")
		os.Setenv("SUPERPOUPE_SERVER_ADMIN_TOKEN", "s3cret")
		os.Setenv("SUPERPOUPE_STORE_DRIVER", "sqlite")
		os.Setenv("SUPERPOUPE_STORE_DSN", "file:catalog.db")
		os.Setenv("SUPERPOUPE_CACHE_TYPE", "redis")
		os.Setenv("SUPERPOUPE_CACHE_REDIS_URL", "redis://localhost:6379")
		os.Setenv("SUPERPOUPE_CACHE_TTL", "1m")
		os.Setenv("SUPERPOUPE_GROUNDING_API_KEY", "gemini-key")
		os.Setenv("SUPERPOUPE_IMPORT_BATCH_SIZE", "25")
		os.Setenv("SUPERPOUPE_IMPORT_DEFAULT_STORE", "pingo doce")
		os.Setenv("SUPERPOUPE_RATELIMIT_PER_IP", "200")
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "9090" {
			t.Errorf("Server.Port = %s, want 9090", cfg.Server.Port)
		}
		if cfg.Server.AdminToken != "s3cret" {
			t.Errorf("Server.AdminToken = %s, want s3cret", cfg.Server.AdminToken)
		}
		if cfg.Store.Driver != "sqlite" {
			t.Errorf("Store.Driver = %s, want sqlite", cfg.Store.Driver)
		}
		if cfg.Store.DSN != "file:catalog.db" {
			t.Errorf("Store.DSN = %s, want file:catalog.db", cfg.Store.DSN)
		}
		if cfg.Cache.Type != "redis" {
			t.Errorf("Cache.Type = %s, want redis", cfg.Cache.Type)
		}
		if cfg.Cache.RedisURL != "redis://localhost:6379" {
			t.Errorf("Cache.RedisURL = %s, want redis://localhost:6379", cfg.Cache.RedisURL)
		}
		if cfg.Cache.TTL != time.Minute {
			t.Errorf("Cache.TTL = %v, want 1m", cfg.Cache.TTL)
		}
		if cfg.Grounding.APIKey != "gemini-key" {
			t.Errorf("Grounding.APIKey = %s, want gemini-key", cfg.Grounding.APIKey)
		}
		if cfg.Import.BatchSize != 25 {
			t.Errorf("Import.BatchSize = %d, want 25", cfg.Import.BatchSize)
		}
		if cfg.Import.DefaultStore != "pingo doce" {
			t.Errorf("Import.DefaultStore = %s, want pingo doce", cfg.Import.DefaultStore)
		}
		if cfg.RateLimit.PerIP != 200 {
			t.Errorf("RateLimit.PerIP = %d, want 200", cfg.RateLimit.PerIP)
		}
	})

	t.Run("fails validation for production without admin token", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("SUPERPOUPE_SERVER_ENVIRONMENT", "production")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Fatal("Load() error = nil, want error for missing admin token")
		}
		if !strings.HasPrefix(err.Error(), "invalid configuration: admin token is required") {
			t.Errorf("Load() error = %v, want 'admin token is required'", err)
		}
	})

	t.Run("fails validation for invalid cache type", func(t *testing.T) {
		cleanupEnv()
		os.Setenv("SUPERPOUPE_CACHE_TYPE", "memcached")
		defer cleanupEnv()

		_, err := Load()
		if err == nil {
			t.Error("Load() error = nil, want error for invalid cache type")
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	// chdir into an isolated directory so the repository .env is never read
	inDir := func(t *testing.T, envContent string) {
		t.Helper()
		dir := t.TempDir()
		if envContent != "" {
			if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(envContent), 0o600); err != nil {
				t.Fatalf("failed to write .env: %v", err)
			}
		}
		wd, err := os.Getwd()
		if err != nil {
			t.Fatalf("Getwd() error = %v", err)
		}
		if err := os.Chdir(dir); err != nil {
			t.Fatalf("Chdir() error = %v", err)
		}
		t.Cleanup(func() { os.Chdir(wd) })
	}

	t.Run("missing file is not an error", func(t *testing.T) {
		inDir(t, "")

		if err := loadEnvFile(); err != nil {
			t.Errorf("loadEnvFile() error = %v, want nil", err)
		}
	})

	t.Run("loads variables", func(t *testing.T) {
		os.Unsetenv("SUPERPOUPE_TEST_ENVFILE")
		defer os.Unsetenv("SUPERPOUPE_TEST_ENVFILE")
		inDir(t, "SUPERPOUPE_TEST_ENVFILE=from-file\n")

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}
		if got := os.Getenv("SUPERPOUPE_TEST_ENVFILE"); got != "from-file" {
			t.Errorf("SUPERPOUPE_TEST_ENVFILE = %q, want from-file", got)
		}
	})

	t.Run("skips comments", func(t *testing.T) {
		os.Unsetenv("SUPERPOUPE_TEST_COMMENTED")
		os.Unsetenv("SUPERPOUPE_TEST_KEPT")
		defer os.Unsetenv("SUPERPOUPE_TEST_KEPT")
		inDir(t, "# SUPERPOUPE_TEST_COMMENTED=yes\nSUPERPOUPE_TEST_KEPT=yes\n")

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}
		if _, ok := os.LookupEnv("SUPERPOUPE_TEST_COMMENTED"); ok {
			t.Error("commented variable was loaded")
		}
		if got := os.Getenv("SUPERPOUPE_TEST_KEPT"); got != "yes" {
			t.Errorf("SUPERPOUPE_TEST_KEPT = %q, want yes", got)
		}
	})

	t.Run("does not override existing variables", func(t *testing.T) {
		os.Setenv("SUPERPOUPE_TEST_EXISTING", "from-env")
		defer os.Unsetenv("SUPERPOUPE_TEST_EXISTING")
		inDir(t, "SUPERPOUPE_TEST_EXISTING=from-file\n")

		if err := loadEnvFile(); err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}
		if got := os.Getenv("SUPERPOUPE_TEST_EXISTING"); got != "from-env" {
			t.Errorf("SUPERPOUPE_TEST_EXISTING = %q, want from-env", got)
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Environment: "development"},
			Store:  StoreConfig{Driver: "memory"},
			Cache:  CacheConfig{Type: "memory"},
			Import: ImportConfig{BatchSize: 50, Lookback: 12, DefaultStore: "continente"},
			Log:    LogConfig{Format: "json"},
		}
	}

	t.Run("passes with valid config", func(t *testing.T) {
		if err := validate(valid()); err != nil {
			t.Errorf("validate() error = %v, want nil", err)
		}
	})

	tests := []struct {
		name   string
		modify func(cfg *Config)
	}{
		{"invalid cache type", func(cfg *Config) { cfg.Cache.Type = "invalid-type" }},
		{"redis cache without URL", func(cfg *Config) { cfg.Cache.Type = "redis" }},
		{"unknown store driver", func(cfg *Config) { cfg.Store.Driver = "oracle" }},
		{"postgres without DSN", func(cfg *Config) { cfg.Store.Driver = "postgres" }},
		{"zero batch size", func(cfg *Config) { cfg.Import.BatchSize = 0 }},
		{"negative lookback", func(cfg *Config) { cfg.Import.Lookback = -1 }},
		{"unknown default store", func(cfg *Config) { cfg.Import.DefaultStore = "mercadona" }},
		{"min confidence above 100", func(cfg *Config) { cfg.Matching.MinConfidence = 120 }},
		{"unknown log format", func(cfg *Config) { cfg.Log.Format = "xml" }},
		{"production without admin token", func(cfg *Config) { cfg.Server.Environment = "production" }},
	}

	for _, tt := range tests {
		t.Run("fails for "+tt.name, func(t *testing.T) {
			cfg := valid()
			tt.modify(cfg)

			if err := validate(cfg); err == nil {
				t.Errorf("validate() error = nil, want error for %s", tt.name)
			}
		})
	}

	t.Run("validates redis cache type with URL", func(t *testing.T) {
		cfg := valid()
		cfg.Cache.Type = "redis"
		cfg.Cache.RedisURL = "redis://localhost:6379"

		if err := validate(cfg); err != nil {
			t.Errorf("validate() error = %v, want nil for valid redis config", err)
		}
	})

	t.Run("accepts store disabled", func(t *testing.T) {
		cfg := valid()
		cfg.Store.Driver = "none"

		if err := validate(cfg); err != nil {
			t.Errorf("validate() error = %v, want nil", err)
		}
	})
}
