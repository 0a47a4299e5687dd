// Package config provides configuration loading for the Logisplit client.
// Supports YAML files, .env files, environment variables and programmatic overrides.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// Progress channel transports.
const (
	TransportSSE       = "sse"
	TransportWebSocket = "websocket"
)

// Cache drivers.
const (
	CacheNone   = "none"
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Config holds all configuration for the client.
type Config struct {
	Backend       BackendConfig       `yaml:"backend"`
	Progress      ProgressConfig      `yaml:"progress"`
	Preview       PreviewConfig       `yaml:"preview"`
	Output        OutputConfig        `yaml:"output"`
	Cache         CacheConfig         `yaml:"cache"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// BackendConfig holds settings for the remote processing service.
type BackendConfig struct {
	BaseURL        string        `yaml:"base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RetryCount     int           `yaml:"retry_count"`
	RetryWait      time.Duration `yaml:"retry_wait"`
	RetryMaxWait   time.Duration `yaml:"retry_max_wait"`
}

// ProgressConfig holds progress channel settings.
type ProgressConfig struct {
	Transport  string `yaml:"transport"` // sse or websocket
	BufferSize int    `yaml:"buffer_size"`
}

// PreviewConfig holds local preview settings.
type PreviewConfig struct {
	Scale                float64 `yaml:"scale"`
	MaxConcurrentRenders int     `yaml:"max_concurrent_renders"`
	ThumbnailDir         string  `yaml:"thumbnail_dir"` // empty disables thumbnail files
	ThumbnailQuality     int     `yaml:"thumbnail_quality"`
}

// OutputConfig holds settings for saving the result archive.
type OutputConfig struct {
	Dir      string `yaml:"dir"`
	Filename string `yaml:"filename"`
}

// CacheConfig holds pattern list cache settings.
type CacheConfig struct {
	Driver     string        `yaml:"driver"` // none, memory or redis
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
	Redis      RedisConfig   `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Prefix   string `yaml:"prefix"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	ServiceName string `yaml:"service_name"`
}

// Load reads configuration from a YAML file and applies .env and environment overrides.
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

	_ = godotenv.Load() // Ignore error if .env doesn't exist

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration matching a locally running service.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:        "http://localhost:8000",
			RequestTimeout: 30 * time.Second,
			RetryCount:     3,
			RetryWait:      500 * time.Millisecond,
			RetryMaxWait:   2 * time.Second,
		},
		Progress: ProgressConfig{
			Transport:  TransportSSE,
			BufferSize: 64,
		},
		Preview: PreviewConfig{
			Scale:                0.5,
			MaxConcurrentRenders: 4,
			ThumbnailQuality:     85,
		},
		Output: OutputConfig{
			Dir:      ".",
			Filename: "processed.zip",
		},
		Cache: CacheConfig{
			Driver:     CacheNone,
			TTL:        30 * time.Second,
			MaxEntries: 128,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				PoolSize: 4,
				Prefix:   "logisplit:",
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:    "warn",
			LogFormat:   "console",
			ServiceName: "logisplit",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Backend.BaseURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid backend base_url: %q", c.Backend.BaseURL)
	}

	if c.Backend.RetryCount < 0 {
		return fmt.Errorf("retry_count must not be negative")
	}

	if c.Progress.Transport != TransportSSE && c.Progress.Transport != TransportWebSocket {
		return fmt.Errorf("invalid progress transport: %s", c.Progress.Transport)
	}

	if c.Progress.BufferSize < 1 {
		return fmt.Errorf("progress buffer_size must be at least 1")
	}

	if c.Preview.Scale <= 0 || c.Preview.Scale > 4 {
		return fmt.Errorf("preview scale must be in (0, 4], got %v", c.Preview.Scale)
	}

	if c.Preview.MaxConcurrentRenders < 1 {
		return fmt.Errorf("max_concurrent_renders must be at least 1")
	}

	if c.Preview.ThumbnailQuality < 1 || c.Preview.ThumbnailQuality > 100 {
		return fmt.Errorf("thumbnail_quality must be between 1 and 100, got %d", c.Preview.ThumbnailQuality)
	}

	if strings.TrimSpace(c.Output.Filename) == "" {
		return fmt.Errorf("output filename must not be empty")
	}

	switch c.Cache.Driver {
	case CacheNone, CacheMemory, CacheRedis:
	default:
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LOGISPLIT_BACKEND_URL"); v != "" {
		cfg.Backend.BaseURL = strings.TrimRight(v, "/")
	}

	if v := os.Getenv("LOGISPLIT_PROGRESS_TRANSPORT"); v != "" {
		cfg.Progress.Transport = strings.ToLower(v)
	}

	if v := os.Getenv("LOGISPLIT_OUTPUT_DIR"); v != "" {
		cfg.Output.Dir = v
	}

	if v := os.Getenv("LOGISPLIT_THUMBNAIL_DIR"); v != "" {
		cfg.Preview.ThumbnailDir = v
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		opts, err := redis.ParseURL(v)
		if err != nil {
			return fmt.Errorf("parse REDIS_URL: %w", err)
		}
		cfg.Cache.Driver = CacheRedis
		cfg.Cache.Redis.Addr = opts.Addr
		cfg.Cache.Redis.Password = opts.Password
		cfg.Cache.Redis.DB = opts.DB
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}

	return nil
}
