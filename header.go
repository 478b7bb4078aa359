package npy

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/hupe1980/npygo/dtype"
	"github.com/hupe1980/npygo/internal/pylit"
)

// Magic identifies a NumPy data file. See
// https://numpy.org/neps/nep-0001-npy-format.html
var Magic = [6]byte{'\x93', 'N', 'U', 'M', 'P', 'Y'}

// headerAlign is the alignment of the payload start. The whole
// preamble+header is padded with spaces and a trailing newline to a
// multiple of this.
const headerAlign = 64

// Header describes the array stored in an NPY file: its element
// descriptor, shape and storage order. It is constructed once, at
// parse time or from the caller's type and shape, and immutable
// afterwards.
type Header struct {
	DType        dtype.Type
	Shape        []int
	FortranOrder bool
}

// Len returns the total element count: the product of the shape. An
// empty shape describes a single scalar.
func (h *Header) Len() int {
	n := 1
	for _, d := range h.Shape {
		n *= d
	}
	return n
}

// Offset maps logical coordinates to the element's index in storage
// order, honoring FortranOrder. Views always walk storage order; this
// is the derived convenience for callers that need logical indexing.
func (h *Header) Offset(coords ...int) (int, error) {
	if len(coords) != len(h.Shape) {
		return 0, fmt.Errorf("npy: got %d coordinates for rank %d", len(coords), len(h.Shape))
	}
	idx := 0
	if h.FortranOrder {
		stride := 1
		for i, c := range coords {
			if c < 0 || c >= h.Shape[i] {
				return 0, &ErrIndexOutOfRange{Index: c, Len: h.Shape[i]}
			}
			idx += c * stride
			stride *= h.Shape[i]
		}
	} else {
		stride := 1
		for i := len(coords) - 1; i >= 0; i-- {
			c := coords[i]
			if c < 0 || c >= h.Shape[i] {
				return 0, &ErrIndexOutOfRange{Index: c, Len: h.Shape[i]}
			}
			idx += c * stride
			stride *= h.Shape[i]
		}
	}
	return idx, nil
}

// readPreamble validates the magic string and returns the version
// pair.
func readPreamble(r io.Reader) (major, minor byte, err error) {
	var pre [8]byte
	if _, err := io.ReadFull(r, pre[:]); err != nil {
		return 0, 0, fmt.Errorf("%w: %w", ErrBadMagic, err)
	}
	if [6]byte(pre[:6]) != Magic {
		return 0, 0, ErrBadMagic
	}
	major, minor = pre[6], pre[7]
	if major != 1 && major != 2 {
		return 0, 0, fmt.Errorf("%w: %d.%d", ErrUnsupportedVersion, major, minor)
	}
	return major, minor, nil
}

// ReadHeader parses the NPY preamble and header dict from r, leaving
// the reader positioned at the start of the payload.
func ReadHeader(r io.Reader) (*Header, error) {
	h, _, err := readHeader(r)
	return h, err
}

// readHeader parses the full preamble plus header dict and returns the
// header and the byte offset at which the payload starts.
func readHeader(r io.Reader) (*Header, int64, error) {
	major, _, err := readPreamble(r)
	if err != nil {
		return nil, 0, err
	}

	var headerLen int
	var lenFieldSize int
	switch major {
	case 1:
		var buf [2]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, 0, fmt.Errorf("%w: short length field: %w", ErrMalformedHeader, err)
		}
		headerLen = int(binary.LittleEndian.Uint16(buf[:]))
		lenFieldSize = 2
	default:
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, 0, fmt.Errorf("%w: short length field: %w", ErrMalformedHeader, err)
		}
		headerLen = int(binary.LittleEndian.Uint32(buf[:]))
		lenFieldSize = 4
	}

	text := make([]byte, headerLen)
	if _, err := io.ReadFull(r, text); err != nil {
		return nil, 0, fmt.Errorf("%w: short header: %w", ErrMalformedHeader, err)
	}

	h, err := parseHeaderDict(string(text))
	if err != nil {
		return nil, 0, err
	}
	return h, int64(len(Magic) + 2 + lenFieldSize + headerLen), nil
}

func parseHeaderDict(text string) (*Header, error) {
	v, err := pylit.Parse(strings.TrimRight(text, " \n"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedHeader, err)
	}
	if v.Kind != pylit.KindDict {
		return nil, fmt.Errorf("%w: header is not a dict", ErrMalformedHeader)
	}

	descr, ok := v.Lookup("descr")
	if !ok {
		return nil, fmt.Errorf("%w: descr", ErrMissingField)
	}
	dt, err := dtype.FromLiteral(descr)
	if err != nil {
		return nil, err
	}

	order, ok := v.Lookup("fortran_order")
	if !ok {
		return nil, fmt.Errorf("%w: fortran_order", ErrMissingField)
	}
	if order.Kind != pylit.KindBool {
		return nil, fmt.Errorf("%w: fortran_order is not a boolean", ErrMalformedHeader)
	}

	shapeVal, ok := v.Lookup("shape")
	if !ok {
		return nil, fmt.Errorf("%w: shape", ErrMissingField)
	}
	if shapeVal.Kind != pylit.KindTuple && shapeVal.Kind != pylit.KindList {
		return nil, fmt.Errorf("%w: shape is not a tuple", ErrMalformedHeader)
	}
	shape := make([]int, len(shapeVal.Items))
	count := int64(1)
	for i, item := range shapeVal.Items {
		if item.Kind != pylit.KindInt || item.Int < 0 {
			return nil, fmt.Errorf("%w: shape dimension %d is not a non-negative integer", ErrMalformedHeader, i)
		}
		if item.Int != 0 && count > math.MaxInt64/item.Int {
			return nil, fmt.Errorf("%w: shape product overflows", ErrMalformedHeader)
		}
		count *= item.Int
		shape[i] = int(item.Int)
	}
	if itemSize := int64(dt.ItemSize()); itemSize > 0 && count > math.MaxInt64/itemSize {
		return nil, fmt.Errorf("%w: payload size %d x %d overflows", ErrMalformedHeader, count, itemSize)
	}

	return &Header{DType: dt, Shape: shape, FortranOrder: order.Bool}, nil
}

// encodeHeader serializes magic, version, length field and the padded
// header dict. Version 1.0 is used unless the header overflows its
// 16-bit length field, in which case 2.0 with a 32-bit field is
// chosen. The result's length is a multiple of headerAlign so the
// payload starts aligned.
func encodeHeader(h *Header) ([]byte, error) {
	for i, d := range h.Shape {
		if d < 0 {
			return nil, fmt.Errorf("npy: negative dimension %d at axis %d", d, i)
		}
	}

	shape := make([]pylit.Value, len(h.Shape))
	for i, d := range h.Shape {
		shape[i] = pylit.Integer(int64(d))
	}
	order := "False"
	if h.FortranOrder {
		order = "True"
	}
	dict := fmt.Sprintf("{'descr': %s, 'fortran_order': %s, 'shape': %s, }",
		h.DType.Literal(), order, pylit.Tuple(shape...))

	build := func(major byte, lenFieldSize int) []byte {
		base := len(Magic) + 2 + lenFieldSize
		pad := (headerAlign - (base+len(dict)+1)%headerAlign) % headerAlign
		headerLen := len(dict) + pad + 1

		out := make([]byte, 0, base+headerLen)
		out = append(out, Magic[:]...)
		out = append(out, major, 0)
		switch lenFieldSize {
		case 2:
			out = binary.LittleEndian.AppendUint16(out, uint16(headerLen))
		default:
			out = binary.LittleEndian.AppendUint32(out, uint32(headerLen))
		}
		out = append(out, dict...)
		for i := 0; i < pad; i++ {
			out = append(out, ' ')
		}
		return append(out, '\n')
	}

	// Worst-case v1 padding still fits the 16-bit field?
	if len(dict)+headerAlign <= math.MaxUint16 {
		return build(1, 2), nil
	}
	if int64(len(dict))+headerAlign > math.MaxUint32 {
		return nil, fmt.Errorf("npy: header too large (%d bytes)", len(dict))
	}
	return build(2, 4), nil
}
