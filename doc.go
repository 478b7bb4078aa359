// Package npy reads and writes the NPY binary array format: a short
// textual header describing element type, shape and memory order,
// followed by a flat block of raw typed values. Data access works over
// any byte-addressable source, so the same code serves an in-memory
// buffer, a memory-mapped file or a range-read remote blob without
// materializing the payload.
//
// # Reading
//
// Memory-mapped access through a typed view:
//
//	f, err := npy.Open[float64]("data.npy")
//	defer f.Close()
//	v, err := f.At(2)          // random access
//	for v, err := range f.Iter() { ... }
//	all, err := f.Slice()      // bulk materialization
//
// Any Source (io.ReaderAt + Size) works the same way:
//
//	view, err := npy.NewView[int32](bytes.NewReader(raw))
//
// Sequential sources use Reader:
//
//	r, err := npy.NewReader[float32](conn)
//	for { v, err := r.Next(); ... }
//
// # Writing
//
// The shape is declared up front; the writer emits the padded header
// immediately and enforces the element count:
//
//	w, err := npy.NewWriter[float64](out, []int{3})
//	w.WriteAll(1.0, 2.0, 3.0)
//	err = w.Close()
//
// npy.Save writes a file atomically via temp-file + rename.
//
// # Record elements
//
// Built-in bindings cover bool, the fixed-width integers, Float16,
// float32/64 and complex64/128. A record (compound) element type
// implements Marshaler: it declares its dtype and encodes/decodes each
// field at its declared byte offset. The binding is checked against
// the file's descriptor when a view, reader or writer is constructed;
// a mismatch is a hard error, never a reinterpretation.
//
// Multiple named arrays can be bundled in one archive with the npz
// subpackage; remote and cached byte sources live in blobstore.
package npy
