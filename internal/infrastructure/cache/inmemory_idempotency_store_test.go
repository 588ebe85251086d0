package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore(t *testing.T) {
	ctx := context.Background()

	t.Run("first mark wins, second is rejected", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()

		marked, err := store.MarkProcessed(ctx, "BATCH-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, marked)

		marked, err = store.MarkProcessed(ctx, "BATCH-1", time.Hour)
		require.NoError(t, err)
		assert.False(t, marked)
	})

	t.Run("reports processed references", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()

		processed, err := store.IsProcessed(ctx, "BATCH-1")
		require.NoError(t, err)
		assert.False(t, processed)

		_, err = store.MarkProcessed(ctx, "BATCH-1", time.Hour)
		require.NoError(t, err)

		processed, err = store.IsProcessed(ctx, "BATCH-1")
		require.NoError(t, err)
		assert.True(t, processed)
	})

	t.Run("expired entries can be marked again", func(t *testing.T) {
		store := NewInMemoryIdempotencyStore()

		_, err := store.MarkProcessed(ctx, "BATCH-1", -time.Second)
		require.NoError(t, err)

		processed, err := store.IsProcessed(ctx, "BATCH-1")
		require.NoError(t, err)
		assert.False(t, processed)

		marked, err := store.MarkProcessed(ctx, "BATCH-1", time.Hour)
		require.NoError(t, err)
		assert.True(t, marked)
	})
}
