package npy

import (
	"bufio"
	"fmt"
	"io"
)

// Writer streams one NPY array to an output sink. The header is
// written up front, so the shape must be known before the first
// element; the caller then supplies exactly the element count the
// shape declares. A Writer must have exclusive access to its sink for
// its whole lifetime.
type Writer[T any] struct {
	bw       *bufio.Writer
	codec    *elemCodec[T]
	header   Header
	buf      []byte
	expected int
	written  int
	closed   bool
}

// NewWriter writes the preamble and header for an array of the given
// shape immediately and returns a handle for streaming the payload.
// T's binding supplies the descriptor. Options consumed:
// WithFortranOrder, WithBufferSize.
func NewWriter[T any](w io.Writer, shape []int, opts ...Option) (*Writer[T], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	codec, err := codecFor[T]()
	if err != nil {
		return nil, err
	}

	header := Header{
		DType:        codec.dt,
		Shape:        append([]int(nil), shape...),
		FortranOrder: o.fortranOrder,
	}
	encoded, err := encodeHeader(&header)
	if err != nil {
		return nil, err
	}

	bw := bufio.NewWriterSize(w, o.bufferSize)
	if _, err := bw.Write(encoded); err != nil {
		return nil, fmt.Errorf("npy: writing header: %w", err)
	}

	return &Writer[T]{
		bw:       bw,
		codec:    codec,
		header:   header,
		buf:      make([]byte, codec.dt.ItemSize()),
		expected: header.Len(),
	}, nil
}

// Header returns the header this writer emitted.
func (w *Writer[T]) Header() Header { return w.header }

// Write encodes and appends one element. Supplying more elements than
// the shape declares fails with ErrElementCount.
func (w *Writer[T]) Write(v T) error {
	if w.closed {
		return ErrClosed
	}
	if w.written >= w.expected {
		return &ErrElementCount{Expected: w.expected, Got: w.written + 1}
	}
	clear(w.buf)
	if err := w.codec.enc(w.buf, &v); err != nil {
		return fmt.Errorf("npy: encoding element %d: %w", w.written, err)
	}
	if _, err := w.bw.Write(w.buf); err != nil {
		return fmt.Errorf("npy: writing element %d: %w", w.written, err)
	}
	w.written++
	return nil
}

// WriteAll appends the given elements in order.
func (w *Writer[T]) WriteAll(values ...T) error {
	for _, v := range values {
		if err := w.Write(v); err != nil {
			return err
		}
	}
	return nil
}

// Close flushes the sink and invalidates the handle. Closing before
// the declared element count has been supplied fails with
// ErrElementCount; the sink's contents are unspecified in that case.
func (w *Writer[T]) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("npy: flushing: %w", err)
	}
	if w.written != w.expected {
		return &ErrElementCount{Expected: w.expected, Got: w.written}
	}
	return nil
}
