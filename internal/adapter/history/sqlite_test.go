package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "history.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSuccessRateEmpty(t *testing.T) {
	store := newTestStore(t)
	sr, err := store.SuccessRate(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Zero(t, sr.SampleSize)
	assert.Zero(t, sr.Rate)
}

func TestRecordAndSuccessRate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	outcomes := []bool{true, true, true, false}
	for i, success := range outcomes {
		require.NoError(t, store.Record(ctx, "backend-architect", "t"+string(rune('0'+i)), success, time.Hour))
	}
	require.NoError(t, store.Record(ctx, "other-agent", "tx", false, time.Minute))

	sr, err := store.SuccessRate(ctx, "backend-architect")
	require.NoError(t, err)
	assert.Equal(t, 4, sr.SampleSize)
	assert.InDelta(t, 0.75, sr.Rate, 1e-9)

	sr, err = store.SuccessRate(ctx, "other-agent")
	require.NoError(t, err)
	assert.Equal(t, 1, sr.SampleSize)
	assert.Zero(t, sr.Rate)
}

func TestCompact(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, "a", "t1", true, time.Minute))
	require.NoError(t, store.Record(ctx, "a", "t2", false, time.Minute))

	// Everything is younger than an hour.
	removed, err := store.Compact(ctx, time.Hour)
	require.NoError(t, err)
	assert.Zero(t, removed)

	// A negative max age moves the cutoff into the future.
	removed, err = store.Compact(ctx, -time.Hour)
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)

	sr, err := store.SuccessRate(ctx, "a")
	require.NoError(t, err)
	assert.Zero(t, sr.SampleSize)
}
