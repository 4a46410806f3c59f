// Package config loads and validates the routing service configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Catalog   CatalogConfig   `yaml:"catalog"`
	Router    RouterConfig    `yaml:"router"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Storage   StorageConfig   `yaml:"storage"`
	Gateway   GatewayConfig   `yaml:"gateway"`
	Logger    LoggerConfig    `yaml:"logger"`
	Tracer    TracerConfig    `yaml:"tracer"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// CatalogConfig points at the agent catalog source.
type CatalogConfig struct {
	Path string `yaml:"path"`
}

// RouterConfig tunes the suggestion engine. The signal weights are
// deliberately configuration, not constants: the only load-bearing default
// is that the keyword signal dominates.
type RouterConfig struct {
	KeywordWeight  float64        `yaml:"keyword_weight"`  // default 0.7
	SemanticWeight float64        `yaml:"semantic_weight"` // default 0.3
	MaxResults     int            `yaml:"max_results"`     // default 5
	MinConfidence  float64        `yaml:"min_confidence"`  // default 0.25
	GeneralistID   string         `yaml:"generalist_id,omitempty"`
	WorkloadPolicy string         `yaml:"workload_policy"` // "soft" (default) or "hard"
	EmbedTimeout   time.Duration  `yaml:"embed_timeout"`   // default 500ms
	Learning       LearningConfig `yaml:"learning"`
}

// LearningConfig tunes the historical-outcome adjuster.
type LearningConfig struct {
	Enabled     bool    `yaml:"enabled"`
	MinSamples  int     `yaml:"min_samples"`  // default 5
	FloorWeight float64 `yaml:"floor_weight"` // default 0.7
	CeilWeight  float64 `yaml:"ceil_weight"`  // default 1.3
}

// EmbeddingConfig holds text embedding provider settings. An empty provider
// disables semantic scoring entirely.
type EmbeddingConfig struct {
	Provider  string        `yaml:"provider"` // "openai", "ollama", ""
	Model     string        `yaml:"model,omitempty"`
	APIKey    string        `yaml:"api_key,omitempty"`
	BaseURL   string        `yaml:"base_url,omitempty"`
	CacheSize int           `yaml:"cache_size"` // LRU entries, 0 = no cache
	Breaker   BreakerConfig `yaml:"breaker"`
}

// BreakerConfig holds circuit breaker settings for the embedding provider.
type BreakerConfig struct {
	MaxFailures uint32        `yaml:"max_failures"`
	Timeout     time.Duration `yaml:"timeout"`
	Interval    time.Duration `yaml:"interval"`
}

// StorageConfig holds SQLite database locations.
type StorageConfig struct {
	TasksPath   string `yaml:"tasks_path"`
	HistoryPath string `yaml:"history_path"`
}

// GatewayConfig holds the HTTP/WebSocket gateway settings.
type GatewayConfig struct {
	Enabled   bool            `yaml:"enabled"`
	Addr      string          `yaml:"addr"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// AuthConfig holds gateway authentication settings.
type AuthConfig struct {
	Type   string        `yaml:"type"` // "static" or ""
	Tokens []TokenConfig `yaml:"tokens,omitempty"`
}

// TokenConfig holds a single gateway auth token.
type TokenConfig struct {
	Token string `yaml:"token"`
	Name  string `yaml:"name"`
}

// RateLimitConfig holds per-IP rate limiting settings.
type RateLimitConfig struct {
	RequestsPerMin int `yaml:"requests_per_min"` // 0 = disabled
	Burst          int `yaml:"burst"`
}

// LoggerConfig holds logging settings.
type LoggerConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
	Output string `yaml:"output"` // stdout, stderr, or a file path
}

// TracerConfig holds OpenTelemetry tracing settings.
type TracerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Exporter string `yaml:"exporter"` // "stdout" or "noop"
}

// SchedulerConfig holds recurring maintenance settings. Schedules accept
// cron expressions or duration strings; empty disables the task.
type SchedulerConfig struct {
	Enabled          bool          `yaml:"enabled"`
	CatalogReload    string        `yaml:"catalog_reload,omitempty"`
	EmbeddingRefresh string        `yaml:"embedding_refresh,omitempty"`
	HistoryCompact   string        `yaml:"history_compact,omitempty"`
	HistoryMaxAge    time.Duration `yaml:"history_max_age,omitempty"`
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	return &Config{
		Catalog: CatalogConfig{Path: "agents.yaml"},
		Router: RouterConfig{
			KeywordWeight:  0.7,
			SemanticWeight: 0.3,
			MaxResults:     5,
			MinConfidence:  0.25,
			WorkloadPolicy: "soft",
			EmbedTimeout:   500 * time.Millisecond,
			Learning: LearningConfig{
				Enabled:     true,
				MinSamples:  5,
				FloorWeight: 0.7,
				CeilWeight:  1.3,
			},
		},
		Embedding: EmbeddingConfig{CacheSize: 512},
		Storage: StorageConfig{
			TasksPath:   "data/tasks.db",
			HistoryPath: "data/history.db",
		},
		Gateway: GatewayConfig{
			Enabled: true,
			Addr:    "127.0.0.1:8343",
			RateLimit: RateLimitConfig{
				RequestsPerMin: 120,
				Burst:          30,
			},
		},
		Logger: LoggerConfig{Level: "info", Format: "text", Output: "stderr"},
		Tracer: TracerConfig{Enabled: false, Exporter: "noop"},
		Scheduler: SchedulerConfig{
			Enabled:       true,
			CatalogReload: "5m",
			HistoryMaxAge: 90 * 24 * time.Hour,
		},
	}
}

// Load reads the YAML config at path over the defaults and validates it.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
