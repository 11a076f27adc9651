package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetGetDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "k1", "v1", 0))
	v, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, "v1", v)

	exists, err := store.Exists(ctx, "k1")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Delete(ctx, "k1"))
	exists, err = store.Exists(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Set(ctx, "k1", "v1", 10*time.Millisecond))
	time.Sleep(25 * time.Millisecond)

	v, err := store.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Empty(t, v)

	exists, err := store.Exists(ctx, "k1")
	require.NoError(t, err)
	assert.False(t, exists)
}
