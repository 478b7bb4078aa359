package npy

import (
	"errors"
	"fmt"

	"github.com/hupe1980/npygo/dtype"
)

var (
	// ErrBadMagic is returned when the source does not start with the
	// NPY magic string.
	ErrBadMagic = errors.New("npy: bad magic string")
	// ErrUnsupportedVersion is returned for format versions other than
	// 1.x and 2.x.
	ErrUnsupportedVersion = errors.New("npy: unsupported format version")
	// ErrMalformedHeader is returned when the header dict cannot be
	// parsed.
	ErrMalformedHeader = errors.New("npy: malformed header")
	// ErrMissingField is returned when a required header key (descr,
	// fortran_order, shape) is absent.
	ErrMissingField = errors.New("npy: missing header field")
	// ErrMalformedDescriptor is returned for unparseable descr text.
	// It aliases dtype.ErrMalformed so both match with errors.Is.
	ErrMalformedDescriptor = dtype.ErrMalformed
	// ErrClosed is returned when writing through a closed handle.
	ErrClosed = errors.New("npy: writer is closed")
)

// ErrTypeMismatch indicates that the element binding's descriptor
// disagrees with the file's descriptor. Bytes are never silently
// reinterpreted.
type ErrTypeMismatch struct {
	File    dtype.Type
	Binding dtype.Type
}

func (e *ErrTypeMismatch) Error() string {
	return fmt.Sprintf("npy: type mismatch: file has %s, binding expects %s", e.File, e.Binding)
}

// ErrTruncated indicates a source shorter than the header implies.
//
// The original underlying error (if any) can be accessed via
// errors.Unwrap.
type ErrTruncated struct {
	Expected int64
	Actual   int64
	cause    error
}

func (e *ErrTruncated) Error() string {
	return fmt.Sprintf("npy: truncated data: need %d bytes, have %d", e.Expected, e.Actual)
}

func (e *ErrTruncated) Unwrap() error { return e.cause }

// ErrIndexOutOfRange indicates a random access past the element count.
type ErrIndexOutOfRange struct {
	Index int
	Len   int
}

func (e *ErrIndexOutOfRange) Error() string {
	return fmt.Sprintf("npy: index %d out of range [0, %d)", e.Index, e.Len)
}

// ErrElementCount indicates a write-side under- or overflow against
// the element count the shape declares.
type ErrElementCount struct {
	Expected int
	Got      int
}

func (e *ErrElementCount) Error() string {
	return fmt.Sprintf("npy: element count mismatch: shape declares %d, got %d", e.Expected, e.Got)
}
