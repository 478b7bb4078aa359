package npy

import (
	"errors"
	"fmt"
	"io"
)

// Reader decodes an NPY stream sequentially from a plain io.Reader,
// for sources that are not byte-addressable (pipes, network streams,
// zip entries). Unlike View, truncation can only surface at the first
// failing read.
type Reader[T any] struct {
	r      io.Reader
	header Header
	codec  *elemCodec[T]
	buf    []byte
	remain int
}

// NewReader reads and validates the header immediately and returns
// ErrTypeMismatch when T's binding disagrees with it.
func NewReader[T any](r io.Reader) (*Reader[T], error) {
	codec, err := codecFor[T]()
	if err != nil {
		return nil, err
	}
	h, _, err := readHeader(r)
	if err != nil {
		return nil, err
	}
	if !h.DType.Equal(codec.dt) {
		return nil, &ErrTypeMismatch{File: h.DType, Binding: codec.dt}
	}
	return &Reader[T]{
		r:      r,
		header: *h,
		codec:  codec,
		buf:    make([]byte, h.DType.ItemSize()),
		remain: h.Len(),
	}, nil
}

// Header returns the parsed file header.
func (r *Reader[T]) Header() Header { return r.header }

// Remaining returns how many elements Next can still produce.
func (r *Reader[T]) Remaining() int { return r.remain }

// Next decodes the next element. It returns io.EOF once all elements
// declared by the shape have been produced, and ErrTruncated when the
// stream ends early.
func (r *Reader[T]) Next() (T, error) {
	var out T
	if r.remain == 0 {
		return out, io.EOF
	}
	if n, err := io.ReadFull(r.r, r.buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			// Byte counts are payload-relative: how much the shape
			// declares versus how much the stream delivered.
			itemSize := int64(len(r.buf))
			return out, &ErrTruncated{
				Expected: int64(r.header.Len()) * itemSize,
				Actual:   int64(r.header.Len()-r.remain)*itemSize + int64(n),
				cause:    err,
			}
		}
		return out, fmt.Errorf("npy: reading element: %w", err)
	}
	r.remain--
	err := r.codec.dec(r.buf, &out)
	return out, err
}

// Slice decodes all remaining elements.
func (r *Reader[T]) Slice() ([]T, error) {
	out := make([]T, 0, r.remain)
	for {
		v, err := r.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}
