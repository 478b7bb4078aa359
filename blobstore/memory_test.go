package blobstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	t.Run("put and open", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "m.npy", []byte("payload")))

		blob, err := store.Open(ctx, "m.npy")
		require.NoError(t, err)
		defer blob.Close()

		assert.Equal(t, int64(7), blob.Size())

		buf := make([]byte, 4)
		n, err := blob.ReadAt(buf, 3)
		require.NoError(t, err)
		assert.Equal(t, "load", string(buf[:n]))
	})

	t.Run("create publishes on close", func(t *testing.T) {
		w, err := store.Create(ctx, "w.npy")
		require.NoError(t, err)
		_, err = w.Write([]byte("abc"))
		require.NoError(t, err)

		_, err = store.Open(ctx, "w.npy")
		require.ErrorIs(t, err, ErrNotFound)

		require.NoError(t, w.Close())

		blob, err := store.Open(ctx, "w.npy")
		require.NoError(t, err)
		assert.Equal(t, int64(3), blob.Size())
	})

	t.Run("blob survives overwrite", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "o.npy", []byte("old")))
		blob, err := store.Open(ctx, "o.npy")
		require.NoError(t, err)

		require.NoError(t, store.Put(ctx, "o.npy", []byte("brand new")))

		buf := make([]byte, 3)
		_, err = blob.ReadAt(buf, 0)
		require.NoError(t, err)
		assert.Equal(t, "old", string(buf))
	})

	t.Run("list and delete", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "d/b.npy", nil))
		require.NoError(t, store.Put(ctx, "d/a.npy", nil))

		names, err := store.List(ctx, "d/")
		require.NoError(t, err)
		assert.Equal(t, []string{"d/a.npy", "d/b.npy"}, names)

		require.NoError(t, store.Delete(ctx, "d/a.npy"))
		_, err = store.Open(ctx, "d/a.npy")
		require.ErrorIs(t, err, ErrNotFound)
	})
}
