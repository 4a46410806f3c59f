package domain

import "context"

// EmbeddingProvider is the interface for text embedding backends.
type EmbeddingProvider interface {
	// Embed generates embeddings for the given texts.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the dimensionality of the embedding vectors.
	Dimensions() int
	// Name returns the provider's identifier (e.g., "openai", "ollama").
	Name() string
}

// WorkloadSnapshot exposes the current number of in-flight tasks per agent.
// The snapshot is owned by the task store; the router only reads it. A failing
// snapshot must be treated as zero load, never as a routing error.
type WorkloadSnapshot interface {
	ActiveCount(ctx context.Context, agentID string) (int, error)
}

// SuccessRate is the aggregated outcome history for one agent.
type SuccessRate struct {
	Rate       float64 // fraction of successful outcomes in [0,1]
	SampleSize int     // number of recorded outcomes
}

// OutcomeHistory exposes aggregated per-agent task outcomes. The underlying
// log is append-only and owned by an external store; the router reads only
// the aggregate.
type OutcomeHistory interface {
	SuccessRate(ctx context.Context, agentID string) (SuccessRate, error)
}
