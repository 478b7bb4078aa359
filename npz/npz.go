// Package npz reads and writes NPZ archives, the zip container NumPy
// uses to bundle multiple arrays in one file. Entries are stored
// uncompressed, matching numpy.savez.
package npz

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/klauspost/compress/zip"
	"golang.org/x/sync/errgroup"

	npy "github.com/hupe1980/npygo"
)

// ErrNoEntry is returned when an archive member does not exist.
var ErrNoEntry = errors.New("npz: no such entry")

// Writer appends arrays to an NPZ archive.
type Writer struct {
	zw *zip.Writer
}

// NewWriter creates an NPZ writer on top of w. Call Close to finish
// the archive.
func NewWriter(w io.Writer) *Writer {
	return &Writer{zw: zip.NewWriter(w)}
}

// Close finalizes the zip central directory. It does not close the
// underlying writer.
func (w *Writer) Close() error {
	return w.zw.Close()
}

// Add writes values under name as a stored zip entry. A ".npy" suffix
// is appended when missing, matching numpy.savez naming.
func Add[T any](w *Writer, name string, shape []int, values []T, opts ...npy.Option) error {
	entry, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:   entryName(name),
		Method: zip.Store,
	})
	if err != nil {
		return fmt.Errorf("npz: creating entry %q: %w", name, err)
	}

	return npy.Write(entry, shape, values, opts...)
}

// Reader reads arrays out of an NPZ archive.
type Reader struct {
	zr      *zip.Reader
	entries map[string]*zip.File
}

// NewReader opens an NPZ archive from r, which must span the whole
// archive.
func NewReader(r io.ReaderAt, size int64) (*Reader, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("npz: opening archive: %w", err)
	}

	entries := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		entries[strings.TrimSuffix(f.Name, ".npy")] = f
	}

	return &Reader{zr: zr, entries: entries}, nil
}

// Names returns the array names in the archive, sorted, without the
// ".npy" suffix.
func (r *Reader) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Header returns the NPY header of the named array without decoding
// its payload.
func (r *Reader) Header(name string) (npy.Header, error) {
	f, ok := r.lookup(name)
	if !ok {
		return npy.Header{}, fmt.Errorf("%w: %q", ErrNoEntry, name)
	}

	rc, err := f.Open()
	if err != nil {
		return npy.Header{}, fmt.Errorf("npz: opening entry %q: %w", name, err)
	}
	defer rc.Close()

	h, err := npy.ReadHeader(rc)
	if err != nil {
		return npy.Header{}, fmt.Errorf("npz: entry %q: %w", name, err)
	}
	return *h, nil
}

func (r *Reader) lookup(name string) (*zip.File, bool) {
	f, ok := r.entries[strings.TrimSuffix(name, ".npy")]
	return f, ok
}

// Read decodes the named array from the archive.
func Read[T any](r *Reader, name string) ([]T, npy.Header, error) {
	f, ok := r.lookup(name)
	if !ok {
		return nil, npy.Header{}, fmt.Errorf("%w: %q", ErrNoEntry, name)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, npy.Header{}, fmt.Errorf("npz: opening entry %q: %w", name, err)
	}
	defer rc.Close()

	nr, err := npy.NewReader[T](rc)
	if err != nil {
		return nil, npy.Header{}, fmt.Errorf("npz: entry %q: %w", name, err)
	}

	values, err := nr.Slice()
	if err != nil {
		return nil, npy.Header{}, fmt.Errorf("npz: entry %q: %w", name, err)
	}
	return values, nr.Header(), nil
}

// ReadAll decodes every array in the archive concurrently. All
// entries must share the element type T.
func ReadAll[T any](r *Reader) (map[string][]T, error) {
	var (
		mu  sync.Mutex
		out = make(map[string][]T, len(r.entries))
	)

	g := new(errgroup.Group)
	for _, name := range r.Names() {
		g.Go(func() error {
			values, _, err := Read[T](r, name)
			if err != nil {
				return err
			}
			mu.Lock()
			out[name] = values
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// ReadCloser is a Reader backed by an open file.
type ReadCloser struct {
	Reader
	f *os.File
}

// OpenReader opens the NPZ archive at path.
func OpenReader(path string) (*ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	r, err := NewReader(f, fi.Size())
	if err != nil {
		f.Close()
		return nil, err
	}

	return &ReadCloser{Reader: *r, f: f}, nil
}

// Close closes the underlying file.
func (rc *ReadCloser) Close() error {
	return rc.f.Close()
}

func entryName(name string) string {
	if strings.HasSuffix(name, ".npy") {
		return name
	}
	return name + ".npy"
}
