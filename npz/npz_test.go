package npz

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	npy "github.com/hupe1980/npygo"
	"github.com/hupe1980/npygo/dtype"
)

func buildArchive(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := NewWriter(&buf)

	require.NoError(t, Add(w, "weights", []int{2, 3}, []float64{1, 2, 3, 4, 5, 6}))
	require.NoError(t, Add(w, "ids.npy", []int{4}, []int32{10, 20, 30, 40}))
	require.NoError(t, w.Close())

	return buf.Bytes()
}

func TestArchiveRoundTrip(t *testing.T) {
	data := buildArchive(t)

	r, err := NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	assert.Equal(t, []string{"ids", "weights"}, r.Names())

	weights, h, err := Read[float64](r, "weights")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, h.Shape)
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, weights)

	// The ".npy" suffix is optional on lookup.
	ids, _, err := Read[int32](r, "ids.npy")
	require.NoError(t, err)
	assert.Equal(t, []int32{10, 20, 30, 40}, ids)
}

func TestArchiveHeader(t *testing.T) {
	data := buildArchive(t)

	r, err := NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	h, err := r.Header("weights")
	require.NoError(t, err)
	assert.Equal(t, []int{2, 3}, h.Shape)
	assert.Equal(t, dtype.Float, h.DType.Kind())
	assert.Equal(t, 8, h.DType.Size())
	assert.False(t, h.FortranOrder)
}

func TestArchiveMissingEntry(t *testing.T) {
	data := buildArchive(t)

	r, err := NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	_, _, err = Read[float64](r, "nope")
	require.ErrorIs(t, err, ErrNoEntry)

	_, err = r.Header("nope")
	require.ErrorIs(t, err, ErrNoEntry)
}

func TestArchiveTypeMismatch(t *testing.T) {
	data := buildArchive(t)

	r, err := NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	_, _, err = Read[float32](r, "weights")
	var mismatch *npy.ErrTypeMismatch
	require.ErrorAs(t, err, &mismatch)
}

func TestReadAll(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, Add(w, "a", []int{2}, []float32{1, 2}))
	require.NoError(t, Add(w, "b", []int{3}, []float32{3, 4, 5}))
	require.NoError(t, Add(w, "c", []int{1}, []float32{6}))
	require.NoError(t, w.Close())

	r, err := NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	arrays, err := ReadAll[float32](r)
	require.NoError(t, err)
	assert.Len(t, arrays, 3)
	assert.Equal(t, []float32{3, 4, 5}, arrays["b"])
}

func TestOpenReader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.npz")
	require.NoError(t, os.WriteFile(path, buildArchive(t), 0o600))

	rc, err := OpenReader(path)
	require.NoError(t, err)
	defer rc.Close()

	weights, _, err := Read[float64](&rc.Reader, "weights")
	require.NoError(t, err)
	assert.Len(t, weights, 6)
}
