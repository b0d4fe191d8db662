// Package config loads service configuration from YAML, .env files and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/yowlens/lens/ranking"
	"github.com/yowlens/lens/storage"
)

// Config holds all configuration for the lens service.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Detector  DetectorConfig  `yaml:"detector"`
	Cache     CacheConfig     `yaml:"cache"`
	Ranking   RankingConfig   `yaml:"ranking"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port             int           `yaml:"port"`
	ReadTimeout      time.Duration `yaml:"read_timeout"`
	WriteTimeout     time.Duration `yaml:"write_timeout"`
	GracefulShutdown time.Duration `yaml:"graceful_shutdown"`
	MaxUploadBytes   int64         `yaml:"max_upload_bytes"`
	AllowedOrigins   []string      `yaml:"allowed_origins"`
}

// DatabaseConfig holds the catalog database settings.
type DatabaseConfig struct {
	URL       string `yaml:"url"`
	Dimension int    `yaml:"dimension"`
	BatchSize int    `yaml:"batch_size"`
}

// EmbeddingConfig holds embedding service settings.
type EmbeddingConfig struct {
	URL        string        `yaml:"url"`
	Model      string        `yaml:"model"`
	Dimension  int           `yaml:"dimension"`
	Timeout    time.Duration `yaml:"timeout"`
	RatePerSec float64       `yaml:"rate_per_sec"`
	Burst      int           `yaml:"burst"`
}

// DetectorConfig holds attribute extraction service settings.
type DetectorConfig struct {
	URL          string        `yaml:"url"`
	Model        string        `yaml:"model"`
	Timeout      time.Duration `yaml:"timeout"`
	RatePerSec   float64       `yaml:"rate_per_sec"`
	Burst        int           `yaml:"burst"`
	Padding      float64       `yaml:"padding"`
	MaxDimension int           `yaml:"max_dimension"`
}

// CacheConfig holds text-embedding cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // memory or redis
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	RedisURL   string        `yaml:"redis_url"`
	PoolSize   int           `yaml:"pool_size"`
}

// RankingConfig holds hybrid ranking settings.
type RankingConfig struct {
	VisualWeight   float64       `yaml:"visual_weight"`
	TextWeight     float64       `yaml:"text_weight"`
	ColorWeight    float64       `yaml:"color_weight"`
	PoolSize       int           `yaml:"pool_size"`
	FinalLimit     int           `yaml:"final_limit"`
	FilterPattern  bool          `yaml:"filter_pattern"`
	MinResults     int           `yaml:"min_results"`
	BoostCap       float64       `yaml:"boost_cap"`
	CallTimeout    time.Duration `yaml:"call_timeout"`
	Concurrency    int           `yaml:"concurrency"`
	SortByCategory bool          `yaml:"sort_by_category"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level   string `yaml:"level"`
	Format  string `yaml:"format"` // json or console
	Service string `yaml:"service"`
}

// Load reads configuration from a YAML file, then .env files, then the
// environment, and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// .env is optional and never overrides variables already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns a configuration with defaults for local development.
func DefaultConfig() *Config {
	rank := ranking.DefaultLensOptions()
	return &Config{
		Server: ServerConfig{
			Port:             8080,
			ReadTimeout:      30 * time.Second,
			WriteTimeout:     120 * time.Second,
			GracefulShutdown: 5 * time.Second,
			MaxUploadBytes:   20 << 20,
			AllowedOrigins:   []string{"*"},
		},
		Database: DatabaseConfig{
			Dimension: storage.DefaultDimension,
			BatchSize: 500,
		},
		Embedding: EmbeddingConfig{
			URL:       "http://localhost:8001",
			Model:     "ViT-B-32",
			Dimension: storage.DefaultDimension,
			Timeout:   30 * time.Second,
		},
		Detector: DetectorConfig{
			URL:          "http://localhost:8002",
			Model:        "gemini-2.0-flash",
			Timeout:      60 * time.Second,
			Padding:      0.12,
			MaxDimension: 1500,
		},
		Cache: CacheConfig{
			Driver:     "memory",
			TTL:        24 * time.Hour,
			MaxEntries: 10000,
			PoolSize:   10,
		},
		Ranking: RankingConfig{
			VisualWeight:   rank.Ranking.VisualWeight,
			TextWeight:     rank.Ranking.TextWeight,
			ColorWeight:    rank.Ranking.ColorWeight,
			PoolSize:       rank.Ranking.PoolSize,
			FinalLimit:     rank.Ranking.FinalLimit,
			FilterPattern:  rank.Ranking.FilterPattern,
			MinResults:     rank.Ranking.MinResults,
			BoostCap:       rank.Ranking.BoostCap,
			CallTimeout:    rank.Ranking.CallTimeout,
			Concurrency:    rank.Concurrency,
			SortByCategory: rank.SortByCategory,
		},
		Log: LogConfig{
			Level:   "info",
			Format:  "json",
			Service: "lens",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}
	if c.Cache.Driver == "redis" && c.Cache.RedisURL == "" {
		return fmt.Errorf("cache driver redis needs a redis url")
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("invalid log format: %s", c.Log.Format)
	}

	r := c.Ranking
	if r.VisualWeight < 0 || r.TextWeight < 0 || r.ColorWeight < 0 {
		return fmt.Errorf("ranking weights must be non-negative")
	}
	if r.BoostCap < 0 {
		return fmt.Errorf("boost_cap must be non-negative")
	}
	if r.FinalLimit < 1 {
		return fmt.Errorf("final_limit must be at least 1")
	}
	if r.PoolSize < r.FinalLimit {
		return fmt.Errorf("pool_size (%d) must be at least final_limit (%d)", r.PoolSize, r.FinalLimit)
	}
	if r.MinResults < 0 {
		return fmt.Errorf("min_results must be non-negative")
	}
	if r.Concurrency < 1 || r.Concurrency > 32 {
		return fmt.Errorf("concurrency must be between 1 and 32")
	}
	if c.Embedding.Dimension != c.Database.Dimension {
		return fmt.Errorf("embedding dimension %d does not match database dimension %d", c.Embedding.Dimension, c.Database.Dimension)
	}
	return nil
}

// RequireDatabase reports an error when no database URL is configured.
func (c *Config) RequireDatabase() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

// Options converts the ranking section into per-garment search options.
func (r RankingConfig) Options() ranking.Options {
	return ranking.Options{
		VisualWeight:  r.VisualWeight,
		TextWeight:    r.TextWeight,
		ColorWeight:   r.ColorWeight,
		PoolSize:      r.PoolSize,
		FinalLimit:    r.FinalLimit,
		FilterPattern: r.FilterPattern,
		MinResults:    r.MinResults,
		BoostCap:      r.BoostCap,
		CallTimeout:   r.CallTimeout,
	}
}

// LensOptions converts the ranking section into whole-image search options.
func (r RankingConfig) LensOptions() ranking.LensOptions {
	return ranking.LensOptions{
		Ranking:        r.Options(),
		Concurrency:    r.Concurrency,
		SortByCategory: r.SortByCategory,
	}
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = storage.NormalizeURL(v)
	}
	if v := os.Getenv("EMBEDDING_URL"); v != "" {
		cfg.Embedding.URL = v
	}
	if v := os.Getenv("DETECTOR_URL"); v != "" {
		cfg.Detector.URL = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.RedisURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("RANKING_COLOR_WEIGHT"); v != "" {
		w, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse RANKING_COLOR_WEIGHT: %w", err)
		}
		cfg.Ranking.ColorWeight = w
	}
	if v := os.Getenv("RANKING_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse RANKING_CONCURRENCY: %w", err)
		}
		cfg.Ranking.Concurrency = n
	}
	return nil
}
