package npy

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/npygo/dtype"
)

func encodeArray[T any](t *testing.T, shape []int, values []T, opts ...Option) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, shape, values, opts...))
	return buf.Bytes()
}

func TestViewAccessPathsAgree(t *testing.T) {
	want := []float64{1.5, -2.5, 3.25, 0, 99}
	data := encodeArray(t, []int{5}, want)

	v, err := NewView[float64](bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 5, v.Len())

	slice, err := v.Slice()
	require.NoError(t, err)
	assert.Equal(t, want, slice)

	for i := range want {
		got, err := v.At(i)
		require.NoError(t, err)
		assert.Equal(t, want[i], got)
	}

	var iterated []float64
	for val, err := range v.Iter() {
		require.NoError(t, err)
		iterated = append(iterated, val)
	}
	assert.Equal(t, want, iterated)
}

func TestViewIterRestartable(t *testing.T) {
	data := encodeArray(t, []int{3}, []int32{7, 8, 9})

	v, err := NewView[int32](bytes.NewReader(data))
	require.NoError(t, err)

	first := 0
	for _, err := range v.Iter() {
		require.NoError(t, err)
		first++
		if first == 2 {
			break
		}
	}

	second := 0
	for _, err := range v.Iter() {
		require.NoError(t, err)
		second++
	}
	assert.Equal(t, 3, second)
}

func TestViewTypeMismatch(t *testing.T) {
	data := encodeArray(t, []int{2}, []float64{1, 2})

	_, err := NewView[float32](bytes.NewReader(data))
	var mismatch *ErrTypeMismatch
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 8, mismatch.File.Size())
	assert.Equal(t, 4, mismatch.Binding.Size())
}

func TestViewTruncated(t *testing.T) {
	data := encodeArray(t, []int{4}, []int64{1, 2, 3, 4})

	_, err := NewView[int64](bytes.NewReader(data[:len(data)-5]))
	var trunc *ErrTruncated
	require.ErrorAs(t, err, &trunc)
	assert.Equal(t, int64(len(data)), trunc.Expected)
	assert.Equal(t, int64(len(data)-5), trunc.Actual)
}

func TestViewRejectsOverflowingShape(t *testing.T) {
	// A well-formed header whose shape product wraps int64 must fail
	// at construction, not blow up in Slice.
	f8, err := dtype.Scalar(dtype.Float, 8)
	require.NoError(t, err)
	encoded, err := encodeHeader(&Header{DType: f8, Shape: []int{2, 1 << 62}})
	require.NoError(t, err)

	_, err = NewView[float64](bytes.NewReader(encoded))
	require.ErrorIs(t, err, ErrMalformedHeader)

	_, err = NewReader[float64](bytes.NewReader(encoded))
	require.ErrorIs(t, err, ErrMalformedHeader)
}

func TestViewIndexOutOfRange(t *testing.T) {
	data := encodeArray(t, []int{2}, []uint16{10, 20})

	v, err := NewView[uint16](bytes.NewReader(data))
	require.NoError(t, err)

	var oor *ErrIndexOutOfRange
	_, err = v.At(-1)
	require.ErrorAs(t, err, &oor)

	_, err = v.At(2)
	require.ErrorAs(t, err, &oor)
	assert.Equal(t, 2, oor.Index)
	assert.Equal(t, 2, oor.Len)
}

func TestViewScalarFile(t *testing.T) {
	data := encodeArray(t, nil, []bool{true})

	v, err := NewView[bool](bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 1, v.Len())

	got, err := v.At(0)
	require.NoError(t, err)
	assert.True(t, got)
}

func TestViewEmptyArray(t *testing.T) {
	data := encodeArray(t, []int{0, 3}, []complex64{})

	v, err := NewView[complex64](bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 0, v.Len())

	slice, err := v.Slice()
	require.NoError(t, err)
	assert.Empty(t, slice)
}

func TestViewFortranOrderPassthrough(t *testing.T) {
	// Column-major payload of [[1 2] [3 4]].
	data := encodeArray(t, []int{2, 2}, []float64{1, 3, 2, 4}, WithFortranOrder())

	v, err := NewView[float64](bytes.NewReader(data))
	require.NoError(t, err)

	h := v.Header()
	assert.True(t, h.FortranOrder)

	// Storage order is untouched.
	slice, err := v.Slice()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 3, 2, 4}, slice)

	// Logical (row, col) indexing goes through Offset.
	idx, err := h.Offset(0, 1)
	require.NoError(t, err)
	got, err := v.At(idx)
	require.NoError(t, err)
	assert.Equal(t, 2.0, got)
}

func TestReaderStream(t *testing.T) {
	want := []uint32{5, 6, 7}
	data := encodeArray(t, []int{3}, want)

	r, err := NewReader[uint32](bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 3, r.Remaining())

	for _, w := range want {
		got, err := r.Next()
		require.NoError(t, err)
		assert.Equal(t, w, got)
	}

	_, err = r.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestReaderTruncatedStream(t *testing.T) {
	data := encodeArray(t, []int{3}, []float32{1, 2, 3})

	r, err := NewReader[float32](bytes.NewReader(data[:len(data)-6]))
	require.NoError(t, err)

	_, err = r.Next()
	require.NoError(t, err)

	_, err = r.Next()
	var trunc *ErrTruncated
	require.ErrorAs(t, err, &trunc)
	assert.Equal(t, int64(12), trunc.Expected)
	assert.Equal(t, int64(6), trunc.Actual)
}

func TestReaderSlice(t *testing.T) {
	want := []int16{-1, 0, 1, 2}
	data := encodeArray(t, []int{2, 2}, want)

	r, err := NewReader[int16](bytes.NewReader(data))
	require.NoError(t, err)

	got, err := r.Slice()
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Zero(t, r.Remaining())
}
