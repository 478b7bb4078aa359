package npy

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hupe1980/npygo/internal/mmap"
)

// Read materializes every element of an NPY byte source.
func Read[T any](src Source) ([]T, Header, error) {
	v, err := NewView[T](src)
	if err != nil {
		return nil, Header{}, err
	}
	values, err := v.Slice()
	if err != nil {
		return nil, Header{}, err
	}
	return values, v.Header(), nil
}

// Write emits a complete NPY stream for the given shape and values.
// The value count must equal the product of the shape.
func Write[T any](w io.Writer, shape []int, values []T, opts ...Option) error {
	nw, err := NewWriter[T](w, shape, opts...)
	if err != nil {
		return err
	}
	if err := nw.WriteAll(values...); err != nil {
		return err
	}
	return nw.Close()
}

// File is a memory-mapped NPY file bound to element type T. It owns
// the mapping; the embedded View stays valid until Close.
type File[T any] struct {
	*View[T]
	m      *mmap.File
	logger *Logger
	path   string
}

// Open memory-maps the file at path and binds it to T. Options
// consumed: WithLogger.
func Open[T any](path string, opts ...Option) (*File[T], error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	m, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("npy: opening %s: %w", path, err)
	}
	v, err := NewView[T](m)
	if err != nil {
		m.Close()
		return nil, fmt.Errorf("npy: %s: %w", path, err)
	}

	o.logger.Debug("opened npy file",
		"path", path,
		"dtype", v.Header().DType.String(),
		"shape", v.Header().Shape,
		"elements", v.Len(),
	)
	return &File[T]{View: v, m: m, logger: o.logger, path: path}, nil
}

// Close unmaps the file. The view must not be used afterwards.
func (f *File[T]) Close() error {
	return f.m.Close()
}

// Load reads every element of the file at path.
func Load[T any](path string, opts ...Option) ([]T, Header, error) {
	f, err := Open[T](path, opts...)
	if err != nil {
		return nil, Header{}, err
	}
	defer f.Close()

	values, err := f.Slice()
	if err != nil {
		return nil, Header{}, err
	}
	return values, f.Header(), nil
}

// Save writes an NPY file atomically: the stream goes to a temp file
// in the target directory which is renamed over path only after a
// successful flush and sync. Options consumed: WithFortranOrder,
// WithBufferSize, WithLogger.
func Save[T any](path string, shape []int, values []T, opts ...Option) error {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	dir := filepath.Dir(path)
	base := filepath.Base(path)

	// Temp file in the same directory so the rename is atomic.
	tmp, err := os.CreateTemp(dir, base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
	}()

	_ = tmp.Chmod(0o644)

	if err := Write(tmp, shape, values, opts...); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Rename(tmpName, path); err != nil {
		return err
	}

	// Best-effort: fsync the directory so the rename is durable on
	// POSIX.
	if d, err := os.Open(dir); err == nil {
		_ = d.Sync()
		_ = d.Close()
	}

	o.logger.Debug("saved npy file", "path", path, "shape", shape, "elements", len(values))

	// Success: prevent deferred cleanup from removing the final file.
	tmpName = ""
	return nil
}
