package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/zaebee/agents-list-sub002/internal/domain"
)

// Default circuit breaker settings.
const (
	defaultCBMaxFailures uint32        = 5
	defaultCBTimeout     time.Duration = 30 * time.Second
	defaultCBInterval    time.Duration = 60 * time.Second
)

// BreakerConfig configures the embedding circuit breaker.
type BreakerConfig struct {
	// MaxFailures is the number of consecutive failures before the circuit opens.
	MaxFailures uint32 `yaml:"max_failures"`
	// Timeout is how long the circuit stays open before transitioning to half-open.
	Timeout time.Duration `yaml:"timeout"`
	// Interval is the cyclic period of the closed state for clearing failure
	// counts. If 0, failures never reset until the circuit opens.
	Interval time.Duration `yaml:"interval"`
}

// BreakerEmbedder wraps an EmbeddingProvider with circuit breaker protection.
// A flapping embedding backend would otherwise add its full timeout to every
// routing request; with the circuit open, requests fail fast into keyword-only
// degraded mode instead.
type BreakerEmbedder struct {
	inner   domain.EmbeddingProvider
	breaker *gobreaker.CircuitBreaker[[][]float32]
	logger  *slog.Logger
}

// NewBreakerEmbedder wraps inner with a circuit breaker.
// If cfg is zero-valued, sensible defaults are used.
func NewBreakerEmbedder(inner domain.EmbeddingProvider, cfg BreakerConfig, logger *slog.Logger) *BreakerEmbedder {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultCBMaxFailures
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultCBTimeout
	}
	interval := cfg.Interval
	if interval == 0 {
		interval = defaultCBInterval
	}

	cb := gobreaker.NewCircuitBreaker[[][]float32](gobreaker.Settings{
		Name:        "embedding:" + inner.Name(),
		MaxRequests: 1, // allow 1 probe in half-open state
		Interval:    interval,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
		IsSuccessful: func(err error) bool {
			return err == nil
		},
	})

	return &BreakerEmbedder{inner: inner, breaker: cb, logger: logger}
}

// Embed implements domain.EmbeddingProvider. Calls are routed through the
// circuit breaker; an open circuit fails immediately.
func (p *BreakerEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vecs, err := p.breaker.Execute(func() ([][]float32, error) {
		return p.inner.Embed(ctx, texts)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("%w: provider %q", domain.ErrEmbeddingBreakerOpen, p.inner.Name())
		}
		return nil, err
	}
	return vecs, nil
}

// Dimensions implements domain.EmbeddingProvider.
func (p *BreakerEmbedder) Dimensions() int { return p.inner.Dimensions() }

// Name implements domain.EmbeddingProvider.
func (p *BreakerEmbedder) Name() string { return p.inner.Name() }

// State returns the current circuit breaker state for monitoring.
func (p *BreakerEmbedder) State() gobreaker.State {
	return p.breaker.State()
}

// Compile-time interface check.
var _ domain.EmbeddingProvider = (*BreakerEmbedder)(nil)
