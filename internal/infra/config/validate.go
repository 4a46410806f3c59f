package config

import (
	"fmt"
	"strings"
)

// ValidationError accumulates config validation errors.
type ValidationError struct {
	Errors []string
}

func (v *ValidationError) Error() string {
	return "config validation failed:\n  - " + strings.Join(v.Errors, "\n  - ")
}

// HasErrors reports whether any validation errors have been recorded.
func (v *ValidationError) HasErrors() bool {
	return len(v.Errors) > 0
}

// Add records a formatted validation error.
func (v *ValidationError) Add(format string, args ...interface{}) {
	v.Errors = append(v.Errors, fmt.Sprintf(format, args...))
}

// Validate checks cfg for structural correctness. It returns a
// *ValidationError when one or more problems are found, allowing callers to
// report all issues at once.
func Validate(cfg *Config) error {
	ve := &ValidationError{}
	validateCatalog(cfg, ve)
	validateRouter(cfg, ve)
	validateEmbedding(cfg, ve)
	validateStorage(cfg, ve)
	validateGateway(cfg, ve)
	validateLogger(cfg, ve)
	validateTracer(cfg, ve)
	if ve.HasErrors() {
		return ve
	}
	return nil
}

func validateCatalog(cfg *Config, ve *ValidationError) {
	if cfg.Catalog.Path == "" {
		ve.Add("catalog.path is required")
	}
}

func validateRouter(cfg *Config, ve *ValidationError) {
	r := cfg.Router
	if r.KeywordWeight <= 0 {
		ve.Add("router.keyword_weight must be > 0")
	}
	if r.SemanticWeight < 0 {
		ve.Add("router.semantic_weight must be >= 0")
	}
	if r.MaxResults <= 0 {
		ve.Add("router.max_results must be > 0")
	}
	if r.MinConfidence < 0 || r.MinConfidence > 1 {
		ve.Add("router.min_confidence must be in [0,1]")
	}
	if r.WorkloadPolicy != "soft" && r.WorkloadPolicy != "hard" {
		ve.Add("router.workload_policy must be %q or %q, got %q", "soft", "hard", r.WorkloadPolicy)
	}
	if r.EmbedTimeout < 0 {
		ve.Add("router.embed_timeout must be >= 0")
	}
	if r.Learning.Enabled {
		if r.Learning.MinSamples <= 0 {
			ve.Add("router.learning.min_samples must be > 0")
		}
		if r.Learning.FloorWeight <= 0 || r.Learning.FloorWeight > 1 {
			ve.Add("router.learning.floor_weight must be in (0,1]")
		}
		if r.Learning.CeilWeight < 1 {
			ve.Add("router.learning.ceil_weight must be >= 1")
		}
	}
}

func validateEmbedding(cfg *Config, ve *ValidationError) {
	switch cfg.Embedding.Provider {
	case "", "ollama":
	case "openai":
		if cfg.Embedding.APIKey == "" {
			ve.Add("embedding.api_key is required for provider %q", cfg.Embedding.Provider)
		}
	default:
		ve.Add("embedding.provider %q is not supported", cfg.Embedding.Provider)
	}
	if cfg.Embedding.CacheSize < 0 {
		ve.Add("embedding.cache_size must be >= 0")
	}
}

func validateStorage(cfg *Config, ve *ValidationError) {
	if cfg.Storage.TasksPath == "" {
		ve.Add("storage.tasks_path is required")
	}
	if cfg.Storage.HistoryPath == "" {
		ve.Add("storage.history_path is required")
	}
}

func validateGateway(cfg *Config, ve *ValidationError) {
	if !cfg.Gateway.Enabled {
		return
	}
	if cfg.Gateway.Addr == "" {
		ve.Add("gateway.addr is required when gateway is enabled")
	}
	switch cfg.Gateway.Auth.Type {
	case "", "static":
	default:
		ve.Add("gateway.auth.type %q is not supported", cfg.Gateway.Auth.Type)
	}
	if cfg.Gateway.Auth.Type == "static" && len(cfg.Gateway.Auth.Tokens) == 0 {
		ve.Add("gateway.auth.tokens must not be empty for static auth")
	}
	for i, tok := range cfg.Gateway.Auth.Tokens {
		if tok.Token == "" {
			ve.Add("gateway.auth.tokens[%d].token is empty", i)
		}
	}
	if cfg.Gateway.RateLimit.RequestsPerMin < 0 {
		ve.Add("gateway.rate_limit.requests_per_min must be >= 0")
	}
}

func validateLogger(cfg *Config, ve *ValidationError) {
	switch strings.ToLower(cfg.Logger.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		ve.Add("logger.level %q is not valid", cfg.Logger.Level)
	}
	switch strings.ToLower(cfg.Logger.Format) {
	case "", "text", "json":
	default:
		ve.Add("logger.format %q is not valid", cfg.Logger.Format)
	}
}

func validateTracer(cfg *Config, ve *ValidationError) {
	if !cfg.Tracer.Enabled {
		return
	}
	switch cfg.Tracer.Exporter {
	case "stdout", "noop", "":
	default:
		ve.Add("tracer.exporter %q is not supported", cfg.Tracer.Exporter)
	}
}
