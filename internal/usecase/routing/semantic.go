package routing

import (
	"context"
	"log/slog"
	"math"
	"time"

	"github.com/zaebee/agents-list-sub002/internal/domain"
)

const defaultEmbedTimeout = 500 * time.Millisecond

// SemanticScorer embeds the query text and scores candidates by cosine
// similarity against the catalog snapshot's precomputed profile embeddings.
// Every failure path degrades to a nil vector instead of erroring: routing
// must stay available when the embedding collaborator is down.
type SemanticScorer struct {
	embedder domain.EmbeddingProvider
	timeout  time.Duration
	logger   *slog.Logger
}

// NewSemanticScorer creates a scorer around the given provider. A zero
// timeout selects the default embed timeout.
func NewSemanticScorer(embedder domain.EmbeddingProvider, timeout time.Duration, logger *slog.Logger) *SemanticScorer {
	if timeout <= 0 {
		timeout = defaultEmbedTimeout
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &SemanticScorer{embedder: embedder, timeout: timeout, logger: logger}
}

// QueryVector embeds the query text under a bounded timeout. It returns nil
// (and no error) when the provider is unavailable or slow; the caller treats
// a nil vector as semantic-scoring-disabled and flags the result degraded.
func (s *SemanticScorer) QueryVector(ctx context.Context, text string) []float32 {
	if s == nil || s.embedder == nil || text == "" {
		return nil
	}

	embedCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	vecs, err := s.embedder.Embed(embedCtx, []string{text})
	if err != nil {
		s.logger.Warn("query embedding unavailable, degrading to keyword-only",
			"provider", s.embedder.Name(), "error", err)
		return nil
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil
	}
	return vecs[0]
}

// CosineSimilarity returns the cosine similarity of two vectors clamped to
// [0,1]. Mismatched or empty vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if sim < 0 {
		return 0
	}
	if sim > 1 {
		return 1
	}
	return sim
}
