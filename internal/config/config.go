// Package config loads and validates scraper configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Scraper ScraperConfig `mapstructure:"scraper"`
	HTTP    HTTPConfig    `mapstructure:"http"`
	AI      AIConfig      `mapstructure:"ai"`
	Storage StorageConfig `mapstructure:"storage"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ScraperConfig governs crawl politeness and batching behavior.
type ScraperConfig struct {
	UserAgent        string                    `mapstructure:"user_agent"`
	RespectRobots    bool                      `mapstructure:"respect_robots"`
	DelayMs          int                       `mapstructure:"delay_ms"`
	MaxConcurrent    int                       `mapstructure:"max_concurrent"`
	BatchSize        int                       `mapstructure:"batch_size"`
	FetchConcurrency int                       `mapstructure:"fetch_concurrency"`
	SitemapBatchSize int                       `mapstructure:"sitemap_batch_size"`
	SitemapPauseMs   int                       `mapstructure:"sitemap_pause_ms"`
	EnabledSources   []string                  `mapstructure:"enabled_sources"`
	SourceOverrides  map[string]SourceOverride `mapstructure:"source_overrides"`
}

// SourceOverride tightens crawl politeness for one source beyond the global
// defaults.
type SourceOverride struct {
	UserAgent string `mapstructure:"user_agent"`
	DelayMs   int    `mapstructure:"delay_ms"`
}

// HTTPConfig configures HTTP client timeout and retry behavior.
type HTTPConfig struct {
	TimeoutSeconds   int `mapstructure:"timeout_seconds"`
	MaxRetries       int `mapstructure:"max_retries"`
	BackoffInitialMs int `mapstructure:"backoff_initial_ms"`
}

// AIConfig controls the AI extraction fallback.
type AIConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	Endpoint       string `mapstructure:"endpoint"`
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MinTextLength  int    `mapstructure:"min_text_length"`
}

// StorageConfig sets the root directory for recipe and progress persistence.
type StorageConfig struct {
	Root string `mapstructure:"root"`
}

// ServerConfig controls the optional status HTTP server.
type ServerConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// LoggingConfig toggles zap development features. Level overrides the preset
// default when set (debug, info, warn, error).
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PREPFLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("scraper.user_agent", "prepflow-scraper/1.0 (+https://github.com/KuschiKuschbert/prepflow-scraper)")
	v.SetDefault("scraper.respect_robots", true)
	v.SetDefault("scraper.delay_ms", 1000)
	v.SetDefault("scraper.max_concurrent", 3)
	v.SetDefault("scraper.batch_size", 50)
	v.SetDefault("scraper.fetch_concurrency", 3)
	v.SetDefault("scraper.sitemap_batch_size", 10)
	v.SetDefault("scraper.sitemap_pause_ms", 200)
	v.SetDefault("http.timeout_seconds", 60)
	v.SetDefault("http.max_retries", 3)
	v.SetDefault("http.backoff_initial_ms", 1000)
	v.SetDefault("ai.enabled", false)
	v.SetDefault("ai.model", "mistralai/Mistral-7B-Instruct-v0.2")
	v.SetDefault("ai.timeout_seconds", 30)
	v.SetDefault("ai.min_text_length", 200)
	v.SetDefault("storage.root", "data/recipes")
	v.SetDefault("server.enabled", false)
	v.SetDefault("server.port", 8080)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Scraper.DelayMs < 0 {
		return fmt.Errorf("scraper.delay_ms must be >= 0")
	}
	if c.Scraper.MaxConcurrent <= 0 {
		return fmt.Errorf("scraper.max_concurrent must be > 0")
	}
	if c.Scraper.BatchSize <= 0 {
		return fmt.Errorf("scraper.batch_size must be > 0")
	}
	if c.Scraper.FetchConcurrency <= 0 {
		return fmt.Errorf("scraper.fetch_concurrency must be > 0")
	}
	if c.HTTP.TimeoutSeconds <= 0 {
		return fmt.Errorf("http.timeout_seconds must be > 0")
	}
	if c.Storage.Root == "" {
		return fmt.Errorf("storage.root must be set")
	}
	if c.AI.Enabled && c.AI.Endpoint == "" {
		return fmt.Errorf("ai.endpoint must be set when ai is enabled")
	}
	if c.Server.Enabled && c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0 when server is enabled")
	}
	return nil
}

// RequestTimeout converts the HTTP timeout config into a duration.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.TimeoutSeconds) * time.Second
}

// Delay converts the politeness delay config into a duration.
func (c Config) Delay() time.Duration {
	return time.Duration(c.Scraper.DelayMs) * time.Millisecond
}
