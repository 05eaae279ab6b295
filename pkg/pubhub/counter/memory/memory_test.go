package memory_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pubhub/pubhub/pkg/pubhub/counter/memory"
)

func TestStore(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	_, ok, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	exists, err := store.Exists(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, store.Increment(ctx, "k"))
	require.NoError(t, store.Increment(ctx, "k"))
	require.NoError(t, store.Decrement(ctx, "k"))

	v, ok, err := store.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), v)

	exists, err = store.Exists(ctx, "k")
	require.NoError(t, err)
	assert.True(t, exists)

	// Decrementing a fresh key goes negative rather than clamping.
	require.NoError(t, store.Decrement(ctx, "down"))
	v, _, err = store.Get(ctx, "down")
	require.NoError(t, err)
	assert.Equal(t, int64(-1), v)
}

func TestStoreConcurrentIncrements(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = store.Increment(ctx, "hot")
			}
		}()
	}
	wg.Wait()

	v, ok, err := store.Get(ctx, "hot")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1000), v)
}
