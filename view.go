package npy

import (
	"fmt"
	"io"
	"iter"
)

// Source is a byte-addressable input: an in-memory buffer
// (*bytes.Reader), a memory-mapped file or a blobstore.Blob all
// satisfy it. A View only observes the source; the source must outlive
// the view and stay immutable while it is read.
type Source interface {
	io.ReaderAt
	Size() int64
}

// View provides random, sequential and bulk access to the elements of
// an NPY byte source. T's binding is checked against the file's
// descriptor once, at construction; all failure modes that can be
// detected eagerly are.
//
// A View performs read-only access and no locking, so any number of
// views and goroutines may share one immutable source.
type View[T any] struct {
	src      Source
	header   Header
	codec    *elemCodec[T]
	dataOff  int64
	elemSize int
	count    int
}

// NewView parses the header of src and binds it to element type T.
// It returns ErrTypeMismatch when T's descriptor disagrees with the
// file's, and ErrTruncated when src is shorter than the header
// implies.
func NewView[T any](src Source) (*View[T], error) {
	codec, err := codecFor[T]()
	if err != nil {
		return nil, err
	}

	h, dataOff, err := readHeader(io.NewSectionReader(src, 0, src.Size()))
	if err != nil {
		return nil, err
	}
	if !h.DType.Equal(codec.dt) {
		return nil, &ErrTypeMismatch{File: h.DType, Binding: codec.dt}
	}

	elemSize := h.DType.ItemSize()
	count := h.Len()
	if need := dataOff + int64(count)*int64(elemSize); src.Size() < need {
		return nil, &ErrTruncated{Expected: need, Actual: src.Size()}
	}

	return &View[T]{
		src:      src,
		header:   *h,
		codec:    codec,
		dataOff:  dataOff,
		elemSize: elemSize,
		count:    count,
	}, nil
}

// Header returns the parsed file header.
func (v *View[T]) Header() Header { return v.header }

// Len returns the total element count.
func (v *View[T]) Len() int { return v.count }

// At decodes the element at index i (storage order).
func (v *View[T]) At(i int) (T, error) {
	var out T
	if i < 0 || i >= v.count {
		return out, &ErrIndexOutOfRange{Index: i, Len: v.count}
	}
	buf := make([]byte, v.elemSize)
	if err := v.readElem(buf, i); err != nil {
		return out, err
	}
	err := v.codec.dec(buf, &out)
	return out, err
}

func (v *View[T]) readElem(buf []byte, i int) error {
	off := v.dataOff + int64(i)*int64(v.elemSize)
	if _, err := v.src.ReadAt(buf, off); err != nil {
		// Size was validated at construction, so a short read means
		// the source shrank or lied about its length.
		return &ErrTruncated{
			Expected: off + int64(v.elemSize),
			Actual:   v.src.Size(),
			cause:    err,
		}
	}
	return nil
}

// Iter returns a lazy sequence of the elements in storage order. Each
// call starts a fresh pass. Iteration stops after the first error.
func (v *View[T]) Iter() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		buf := make([]byte, v.elemSize)
		for i := 0; i < v.count; i++ {
			var out T
			err := v.readElem(buf, i)
			if err == nil {
				err = v.codec.dec(buf, &out)
			}
			if !yield(out, err) || err != nil {
				return
			}
		}
	}
}

// Slice eagerly decodes every element into a new slice. This is the
// only access path that needs the whole payload resident at once.
func (v *View[T]) Slice() ([]T, error) {
	payload := make([]byte, int64(v.count)*int64(v.elemSize))
	if len(payload) > 0 {
		if _, err := v.src.ReadAt(payload, v.dataOff); err != nil {
			return nil, &ErrTruncated{
				Expected: v.dataOff + int64(len(payload)),
				Actual:   v.src.Size(),
				cause:    err,
			}
		}
	}

	out := make([]T, v.count)
	for i := range out {
		start := i * v.elemSize
		if err := v.codec.dec(payload[start:start+v.elemSize], &out[i]); err != nil {
			return nil, fmt.Errorf("npy: decoding element %d: %w", i, err)
		}
	}
	return out, nil
}
