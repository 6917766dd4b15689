package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/photoshare/internal/repository"
)

func newTestCache(t *testing.T, opts Options) *Cache {
	t.Helper()
	c := NewCache(opts)
	t.Cleanup(c.Stop)
	return c
}

func TestCache_SetGetDelete(t *testing.T) {
	c := newTestCache(t, Options{})
	ctx := context.Background()

	_, err := c.Get(ctx, "k")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)

	value := []byte("v1")
	require.NoError(t, c.Set(ctx, "k", value, 0))
	value[0] = 'x'

	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), got)

	got[0] = 'y'
	again, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), again)

	require.NoError(t, c.Delete(ctx, "k"))
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)

	require.NoError(t, c.Delete(ctx, "missing"))
}

func TestCache_Expiry(t *testing.T) {
	c := newTestCache(t, Options{})
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 10*time.Millisecond))
	_, err := c.Get(ctx, "k")
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, repository.ErrCacheMiss)
}

func TestCache_JanitorSweeps(t *testing.T) {
	c := newTestCache(t, Options{CleanupInterval: 5 * time.Millisecond})
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Millisecond))
	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestCache_MaxEntries(t *testing.T) {
	c := newTestCache(t, Options{MaxEntries: 3})
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("k%d", i), []byte("v"), 0))
		assert.LessOrEqual(t, c.Len(), 3)
	}

	_, err := c.Get(ctx, "k9")
	assert.NoError(t, err)

	// Overwriting an existing key never evicts.
	require.NoError(t, c.Set(ctx, "k9", []byte("w"), 0))
	assert.Equal(t, 3, c.Len())
}

func TestCache_StopIsIdempotent(t *testing.T) {
	c := NewCache(Options{})
	c.Stop()
	c.Stop()
}
