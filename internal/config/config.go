package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server      ServerConfig
	GRPC        GRPCConfig
	NASA        NASAConfig
	Cache       CacheConfig
	Warmer      WarmerConfig
	Worker      WorkerConfig
	LiveMetrics LiveMetricsConfig
	Fallback    FallbackConfig
	RateLimit   RateLimitConfig
	Logging     LoggingConfig
}

type GRPCConfig struct {
	Port int
}

type ServerConfig struct {
	Host string
	Port int
}

// NASAConfig describes the upstream NeoWs endpoint. An empty APIKey is valid:
// every upstream call then fails fast and the fallback dataset is served.
type NASAConfig struct {
	APIKey          string
	BaseURL         string
	Timeout         time.Duration
	DefaultPageSize int
}

type CacheConfig struct {
	Enabled bool
	Path    string
	TTL     time.Duration
}

type WarmerConfig struct {
	Enabled  bool
	Pages    int
	PageSize int
	Interval time.Duration
}

type WorkerConfig struct {
	Count      int
	BufferSize int
}

type LiveMetricsConfig struct {
	Interval time.Duration
}

type FallbackConfig struct {
	DatasetPath string
}

type RateLimitConfig struct {
	RPS int
}

type LoggingConfig struct {
	Level  string
	Format string
}

const MaxPageSize = 100

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "localhost"),
			Port: getEnvInt("SERVER_PORT", 8080),
		},
		GRPC: GRPCConfig{
			Port: getEnvInt("GRPC_PORT", 50051),
		},
		NASA: NASAConfig{
			APIKey:          os.Getenv("NASA_API_KEY"),
			BaseURL:         getEnv("NASA_BASE_URL", "https://api.nasa.gov/neo/rest/v1"),
			Timeout:         getEnvDuration("NASA_TIMEOUT", 15*time.Second),
			DefaultPageSize: getEnvInt("NEO_DEFAULT_PAGE_SIZE", 20),
		},
		Cache: CacheConfig{
			Enabled: getEnvBool("CACHE_ENABLED", true),
			Path:    getEnv("CACHE_PATH", "./data/neo-cache.db"),
			TTL:     getEnvDuration("CACHE_TTL", 5*time.Minute),
		},
		Warmer: WarmerConfig{
			Enabled:  getEnvBool("WARMER_ENABLED", true),
			Pages:    getEnvInt("WARMER_PAGES", 1),
			PageSize: getEnvInt("WARMER_PAGE_SIZE", 20),
			Interval: getEnvDuration("WARMER_INTERVAL", 10*time.Minute),
		},
		Worker: WorkerConfig{
			Count:      getEnvInt("WORKER_COUNT", 2),
			BufferSize: getEnvInt("WORKER_BUFFER_SIZE", 20),
		},
		LiveMetrics: LiveMetricsConfig{
			Interval: getEnvDuration("LIVE_METRICS_INTERVAL", 2*time.Second),
		},
		Fallback: FallbackConfig{
			DatasetPath: os.Getenv("FALLBACK_DATASET_PATH"),
		},
		RateLimit: RateLimitConfig{
			RPS: getEnvInt("RATE_LIMIT_RPS", 5),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.GRPC.Port < 1 || c.GRPC.Port > 65535 {
		return fmt.Errorf("invalid gRPC port: %d", c.GRPC.Port)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	if c.NASA.BaseURL == "" {
		return fmt.Errorf("NASA base URL must not be empty")
	}
	if c.NASA.Timeout <= 0 {
		return fmt.Errorf("NASA timeout must be positive")
	}
	if c.NASA.DefaultPageSize < 1 || c.NASA.DefaultPageSize > MaxPageSize {
		return fmt.Errorf("default page size must be between 1 and %d", MaxPageSize)
	}

	if c.Cache.TTL < 0 {
		return fmt.Errorf("cache TTL must not be negative")
	}
	if c.Warmer.Pages < 0 {
		return fmt.Errorf("warmer pages must not be negative")
	}
	if c.Warmer.PageSize < 1 || c.Warmer.PageSize > MaxPageSize {
		return fmt.Errorf("warmer page size must be between 1 and %d", MaxPageSize)
	}
	if c.Warmer.Interval < time.Minute {
		return fmt.Errorf("warmer interval must be at least 1 minute")
	}
	if c.Worker.Count < 1 {
		return fmt.Errorf("worker count must be at least 1")
	}

	if c.LiveMetrics.Interval < 100*time.Millisecond {
		return fmt.Errorf("live metrics interval must be at least 100ms")
	}
	if c.RateLimit.RPS < 1 {
		return fmt.Errorf("rate limit must be at least 1 request per second")
	}

	return nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return fallback
}
