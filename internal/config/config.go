package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the application configuration loaded from files, environment and flags.
type Config struct {
	AppName  string `mapstructure:"app_name"`
	Env      string `mapstructure:"app_env"`
	LogLevel string `mapstructure:"log_level"`

	APIKey      string        `mapstructure:"gnews_api_key"`
	APIVersion  string        `mapstructure:"gnews_api_version"`
	MaxWaitMs   int64         `mapstructure:"gnews_max_wait_ms"`
	Endpoint    string        `mapstructure:"gnews_endpoint"`
	HTTPTracing bool          `mapstructure:"http_tracing"`
	MaxWait     time.Duration `mapstructure:"-"`

	FeedsFile           string        `mapstructure:"feeds_file"`
	PublishersFile      string        `mapstructure:"publishers_file"`
	PollIntervalSeconds int64         `mapstructure:"poll_interval"`
	FeedConcurrency     int           `mapstructure:"feed_concurrency"`
	PollInterval        time.Duration `mapstructure:"-"`
	MetricsAddr         string        `mapstructure:"metrics_addr"`

	StorageType            string        `mapstructure:"storage_type"`
	BBoltPath              string        `mapstructure:"bbolt_path"`
	StorageTTLSeconds      int64         `mapstructure:"storage_ttl_seconds"`
	StorageCleanupSeconds  int64         `mapstructure:"storage_cleanup_interval_seconds"`
	StorageTTL             time.Duration `mapstructure:"-"`
	StorageCleanupInterval time.Duration `mapstructure:"-"`
}

// flagKeys maps CLI flag names to config keys. Only flags present in the set are bound.
var flagKeys = map[string]string{
	"apikey":      "gnews_api_key",
	"api-version": "gnews_api_version",
	"max-wait-ms": "gnews_max_wait_ms",
	"endpoint":    "gnews_endpoint",
	"log-level":   "log_level",
	"tracing":     "http_tracing",
}

// Load reads configuration from configs/.env, environment variables and, when
// flags is non-nil, explicitly set command line flags.
func Load(flags *pflag.FlagSet) (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "gnews-go")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("gnews_api_key", "")
	v.SetDefault("gnews_api_version", "v4")
	v.SetDefault("gnews_max_wait_ms", 10000)
	v.SetDefault("gnews_endpoint", "https://gnews.io")
	v.SetDefault("http_tracing", false)
	v.SetDefault("feeds_file", "./configs/feeds.yaml")
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("poll_interval", 900) // seconds
	v.SetDefault("feed_concurrency", 2)
	v.SetDefault("metrics_addr", "")
	v.SetDefault("storage_type", "bbolt")
	v.SetDefault("bbolt_path", "./data/seen.db")
	v.SetDefault("storage_ttl_seconds", int64((5*24*time.Hour)/time.Second))
	v.SetDefault("storage_cleanup_interval_seconds", int64((12*time.Hour)/time.Second))

	v.AutomaticEnv()

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.APIKey = strings.TrimSpace(cfg.APIKey)

	if cfg.MaxWaitMs < 0 {
		return nil, fmt.Errorf("invalid gnews_max_wait_ms (must not be negative)")
	}
	cfg.MaxWait = time.Duration(cfg.MaxWaitMs) * time.Millisecond

	if cfg.PollIntervalSeconds <= 0 {
		return nil, fmt.Errorf("invalid poll_interval (must be positive seconds)")
	}
	cfg.PollInterval = time.Duration(cfg.PollIntervalSeconds) * time.Second

	if cfg.FeedConcurrency <= 0 {
		return nil, fmt.Errorf("invalid feed_concurrency (must be positive)")
	}

	if cfg.StorageTTLSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_ttl_seconds (must be positive seconds)")
	}
	if cfg.StorageCleanupSeconds <= 0 {
		return nil, fmt.Errorf("invalid storage_cleanup_interval_seconds (must be positive seconds)")
	}
	cfg.StorageTTL = time.Duration(cfg.StorageTTLSeconds) * time.Second
	cfg.StorageCleanupInterval = time.Duration(cfg.StorageCleanupSeconds) * time.Second

	return &cfg, nil
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.APIKey != "" {
		c.APIKey = "REDACTED"
	}
	return c
}
