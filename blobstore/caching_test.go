package blobstore

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore wraps a Store and counts Open calls.
type countingStore struct {
	Store
	opens atomic.Int64
}

func (c *countingStore) Open(ctx context.Context, name string) (Blob, error) {
	c.opens.Add(1)
	return c.Store.Open(ctx, name)
}

func TestCachingStore(t *testing.T) {
	ctx := context.Background()

	inner := &countingStore{Store: NewMemoryStore()}
	require.NoError(t, inner.Store.(*MemoryStore).Put(ctx, "c.npy", []byte("cached bytes")))

	store := NewCachingStore(inner, t.TempDir())

	t.Run("first open fills cache", func(t *testing.T) {
		blob, err := store.Open(ctx, "c.npy")
		require.NoError(t, err)
		defer blob.Close()

		assert.Equal(t, int64(12), blob.Size())
		assert.Equal(t, int64(1), inner.opens.Load())
	})

	t.Run("second open is a cache hit", func(t *testing.T) {
		blob, err := store.Open(ctx, "c.npy")
		require.NoError(t, err)
		defer blob.Close()

		buf := make([]byte, 12)
		_, err = blob.ReadAt(buf, 0)
		require.NoError(t, err)
		assert.Equal(t, "cached bytes", string(buf))
		assert.Equal(t, int64(1), inner.opens.Load())
	})

	t.Run("missing blob", func(t *testing.T) {
		_, err := store.Open(ctx, "nope.npy")
		require.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("create invalidates cache", func(t *testing.T) {
		w, err := store.Create(ctx, "c.npy")
		require.NoError(t, err)
		_, err = io.WriteString(w, "fresh")
		require.NoError(t, err)
		require.NoError(t, w.Close())

		blob, err := store.Open(ctx, "c.npy")
		require.NoError(t, err)
		defer blob.Close()

		assert.Equal(t, int64(5), blob.Size())
	})

	t.Run("delete removes both copies", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, "c.npy"))

		_, err := store.Open(ctx, "c.npy")
		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestCachingStoreConcurrentFill(t *testing.T) {
	ctx := context.Background()

	inner := &countingStore{Store: NewMemoryStore()}
	require.NoError(t, inner.Store.(*MemoryStore).Put(ctx, "big.npy", make([]byte, 1<<20)))

	store := NewCachingStore(inner, t.TempDir())

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			blob, err := store.Open(ctx, "big.npy")
			assert.NoError(t, err)
			if blob != nil {
				assert.Equal(t, int64(1<<20), blob.Size())
				blob.Close()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), inner.opens.Load())
}
