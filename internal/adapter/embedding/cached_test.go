package embedding

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaebee/agents-list-sub002/internal/domain"
)

// countingProvider counts Embed calls and returns a fixed vector per text.
type countingProvider struct {
	calls atomic.Int64
	err   error
}

func (p *countingProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	p.calls.Add(1)
	if p.err != nil {
		return nil, p.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 1}
	}
	return out, nil
}

func (p *countingProvider) Dimensions() int { return 2 }
func (p *countingProvider) Name() string    { return "counting" }

func TestCachedEmbedderHit(t *testing.T) {
	inner := &countingProvider{}
	cached := NewCachedEmbedder(inner, 8)
	ctx := context.Background()

	first, err := cached.Embed(ctx, []string{"design an api"})
	require.NoError(t, err)
	second, err := cached.Embed(ctx, []string{"design an api"})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, inner.calls.Load(), "second call must be served from cache")
}

func TestCachedEmbedderMissOnNewText(t *testing.T) {
	inner := &countingProvider{}
	cached := NewCachedEmbedder(inner, 8)
	ctx := context.Background()

	_, err := cached.Embed(ctx, []string{"one"})
	require.NoError(t, err)
	_, err = cached.Embed(ctx, []string{"two"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, inner.calls.Load())
}

func TestCachedEmbedderBatchPassthrough(t *testing.T) {
	inner := &countingProvider{}
	cached := NewCachedEmbedder(inner, 8)
	ctx := context.Background()

	batch := []string{"a", "b"}
	_, err := cached.Embed(ctx, batch)
	require.NoError(t, err)
	_, err = cached.Embed(ctx, batch)
	require.NoError(t, err)
	assert.EqualValues(t, 2, inner.calls.Load(), "batch calls are never cached")
}

func TestCachedEmbedderEviction(t *testing.T) {
	inner := &countingProvider{}
	cached := NewCachedEmbedder(inner, 1)
	ctx := context.Background()

	_, err := cached.Embed(ctx, []string{"one"})
	require.NoError(t, err)
	_, err = cached.Embed(ctx, []string{"two"}) // evicts "one"
	require.NoError(t, err)
	_, err = cached.Embed(ctx, []string{"one"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, inner.calls.Load())
}

func TestCachedEmbedderErrorNotCached(t *testing.T) {
	inner := &countingProvider{err: errors.New("down")}
	cached := NewCachedEmbedder(inner, 8)
	ctx := context.Background()

	_, err := cached.Embed(ctx, []string{"x"})
	require.Error(t, err)

	inner.err = nil
	_, err = cached.Embed(ctx, []string{"x"})
	require.NoError(t, err)
	assert.EqualValues(t, 2, inner.calls.Load())
}

func TestCachedEmbedderDisabled(t *testing.T) {
	inner := &countingProvider{}
	var provider domain.EmbeddingProvider = NewCachedEmbedder(inner, 0)
	assert.Same(t, domain.EmbeddingProvider(inner), provider, "maxSize <= 0 returns the inner provider")
}
