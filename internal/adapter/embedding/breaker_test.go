package embedding

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zaebee/agents-list-sub002/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBreakerPassthrough(t *testing.T) {
	inner := &countingProvider{}
	b := NewBreakerEmbedder(inner, BreakerConfig{}, testLogger())

	vecs, err := b.Embed(context.Background(), []string{"hello"})
	require.NoError(t, err)
	assert.Len(t, vecs, 1)
	assert.Equal(t, inner.Dimensions(), b.Dimensions())
	assert.Equal(t, "counting", b.Name())
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &countingProvider{err: errors.New("backend down")}
	b := NewBreakerEmbedder(inner, BreakerConfig{MaxFailures: 3}, testLogger())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := b.Embed(ctx, []string{"x"})
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	// Open circuit fails fast without touching the provider.
	before := inner.calls.Load()
	_, err := b.Embed(ctx, []string{"x"})
	assert.ErrorIs(t, err, domain.ErrEmbeddingBreakerOpen)
	assert.Equal(t, before, inner.calls.Load())
}

func TestBreakerRecovers(t *testing.T) {
	inner := &countingProvider{err: errors.New("backend down")}
	b := NewBreakerEmbedder(inner, BreakerConfig{MaxFailures: 1, Timeout: 50 * time.Millisecond}, testLogger())
	ctx := context.Background()

	_, err := b.Embed(ctx, []string{"x"})
	require.Error(t, err)
	require.Equal(t, gobreaker.StateOpen, b.State())

	inner.err = nil
	time.Sleep(100 * time.Millisecond)

	// The half-open probe succeeds and closes the circuit.
	_, err = b.Embed(ctx, []string{"x"})
	require.NoError(t, err)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}
