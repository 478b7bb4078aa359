// Package dtype describes NPY element layouts: scalar kinds with a
// byte width and endianness, and compound (record) layouts of named
// fields at fixed byte offsets.
//
// A Type is an immutable value. The textual form is numpy's descr
// mini-language: "<f8", "|b1", ">u4" for scalars, a list of
// (name, format) tuples for packed records, and the
// names/formats/offsets/itemsize dict for records with padding.
package dtype

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrMalformed is wrapped by all descriptor parse and construction
// failures.
var ErrMalformed = errors.New("dtype: malformed descriptor")

// Kind is the scalar type class, the second character of a type-string.
type Kind uint8

const (
	// Bool is code 'b': one byte, 0x00 or 0x01.
	Bool Kind = iota
	// Int is code 'i': signed integer of 1, 2, 4 or 8 bytes.
	Int
	// Uint is code 'u': unsigned integer of 1, 2, 4 or 8 bytes.
	Uint
	// Float is code 'f': IEEE-754 binary of 2, 4 or 8 bytes.
	Float
	// Complex is code 'c': two floats, real part first, 8 or 16 bytes
	// total.
	Complex
	// Bytes is code 'S': a byte string of exactly size bytes,
	// zero-padded on the right.
	Bytes
	// Unicode is code 'U': size code points, each a 32-bit integer of
	// the declared endianness.
	Unicode
	// Raw is code 'V': an opaque blob of size bytes.
	Raw
)

var kindCodes = [...]byte{'b', 'i', 'u', 'f', 'c', 'S', 'U', 'V'}

func kindFromCode(c byte) (Kind, bool) {
	for k, code := range kindCodes {
		if code == c {
			return Kind(k), true
		}
	}
	return 0, false
}

func (k Kind) String() string {
	if int(k) < len(kindCodes) {
		return string(kindCodes[k])
	}
	return "?"
}

// validSizes returns the permitted widths for a kind, or nil when any
// non-negative width is allowed.
func (k Kind) validSizes() []int {
	switch k {
	case Bool:
		return []int{1}
	case Int, Uint:
		return []int{1, 2, 4, 8}
	case Float:
		return []int{2, 4, 8}
	case Complex:
		return []int{8, 16}
	default:
		return nil
	}
}

// requiresOrder reports whether the '|' tag is illegal for this
// kind/size combination.
func (k Kind) requiresOrder(size int) bool {
	switch k {
	case Bool, Int, Uint, Float, Complex:
		return size != 1
	case Unicode:
		return true
	default: // Bytes, Raw
		return false
	}
}

// ByteOrder is the endianness tag, the first character of a
// type-string.
type ByteOrder uint8

const (
	// NotApplicable is tag '|', used for single-byte and opaque types.
	NotApplicable ByteOrder = iota
	// LittleEndian is tag '<'.
	LittleEndian
	// BigEndian is tag '>'.
	BigEndian
)

func (o ByteOrder) String() string {
	switch o {
	case LittleEndian:
		return "<"
	case BigEndian:
		return ">"
	default:
		return "|"
	}
}

// Binary returns the encoding/binary order for multi-byte access.
// NotApplicable maps to the platform order, which is correct for the
// single-byte types it tags.
func (o ByteOrder) Binary() binary.ByteOrder {
	switch o {
	case LittleEndian:
		return binary.LittleEndian
	case BigEndian:
		return binary.BigEndian
	default:
		if NativeOrder() == BigEndian {
			return binary.BigEndian
		}
		return binary.LittleEndian
	}
}

var nativeOrder = func() ByteOrder {
	var b [2]byte
	binary.NativeEndian.PutUint16(b[:], 0x0102)
	if b[0] == 0x02 {
		return LittleEndian
	}
	return BigEndian
}()

// NativeOrder returns the platform byte order. The '=' tag is
// normalized to this at parse time so descriptor comparison is
// order-independent.
func NativeOrder() ByteOrder { return nativeOrder }

// Field is one named member of a compound Type.
type Field struct {
	Name   string
	Offset int // byte offset within the element
	Type   Type
}

// Type is a scalar or compound element descriptor.
//
// The zero Type is invalid; obtain values from Parse or the
// constructors.
type Type struct {
	kind     Kind
	size     int // the count in the type-string (code points for Unicode)
	order    ByteOrder
	fields   []Field // non-nil for compound types
	itemSize int     // compound total width
}

// Scalar returns a scalar Type with the platform's byte order where an
// order is required and '|' where it is not.
func Scalar(k Kind, size int) (Type, error) {
	order := NotApplicable
	if k.requiresOrder(size) {
		order = NativeOrder()
	}
	return ScalarWithOrder(k, size, order)
}

// ScalarWithOrder returns a scalar Type with an explicit byte order.
// Types that do not need an order are normalized to '|' so that
// equivalent descriptors compare equal.
func ScalarWithOrder(k Kind, size int, order ByteOrder) (Type, error) {
	if size < 0 {
		return Type{}, fmt.Errorf("%w: negative size %d", ErrMalformed, size)
	}
	if sizes := k.validSizes(); sizes != nil {
		ok := false
		for _, s := range sizes {
			ok = ok || s == size
		}
		if !ok {
			return Type{}, fmt.Errorf("%w: invalid size %d for kind %q (valid: %v)", ErrMalformed, size, k, sizes)
		}
	}
	if k.requiresOrder(size) {
		if order == NotApplicable {
			return Type{}, fmt.Errorf("%w: kind %q with size %d requires an explicit byte order", ErrMalformed, k, size)
		}
	} else {
		order = NotApplicable
	}
	return Type{kind: k, size: size, order: order}, nil
}

// Compound returns a record Type with explicit field offsets and total
// width. Gaps between fields are padding. Offsets must be
// non-decreasing and every field must fit inside itemSize.
func Compound(itemSize int, fields ...Field) (Type, error) {
	if len(fields) == 0 {
		return Type{}, fmt.Errorf("%w: compound type has no fields", ErrMalformed)
	}
	if itemSize < 0 {
		return Type{}, fmt.Errorf("%w: negative itemsize %d", ErrMalformed, itemSize)
	}
	seen := make(map[string]struct{}, len(fields))
	prev := 0
	for _, f := range fields {
		if f.Name == "" {
			return Type{}, fmt.Errorf("%w: empty field name", ErrMalformed)
		}
		if _, dup := seen[f.Name]; dup {
			return Type{}, fmt.Errorf("%w: duplicate field %q", ErrMalformed, f.Name)
		}
		seen[f.Name] = struct{}{}
		if f.Offset < prev {
			return Type{}, fmt.Errorf("%w: field %q offset %d before preceding field", ErrMalformed, f.Name, f.Offset)
		}
		if f.Offset+f.Type.ItemSize() > itemSize {
			return Type{}, fmt.Errorf("%w: field %q extends past itemsize %d", ErrMalformed, f.Name, itemSize)
		}
		prev = f.Offset
	}
	out := make([]Field, len(fields))
	copy(out, fields)
	return Type{fields: out, itemSize: itemSize}, nil
}

// Packed returns a record Type with fields laid out back to back in
// the given order. Field offsets in the arguments are ignored.
func Packed(fields ...Field) (Type, error) {
	off := 0
	packed := make([]Field, len(fields))
	for i, f := range fields {
		f.Offset = off
		packed[i] = f
		off += f.Type.ItemSize()
	}
	return Compound(off, packed...)
}

// IsCompound reports whether t is a record type.
func (t Type) IsCompound() bool { return t.fields != nil }

// Kind returns the scalar kind. Meaningless for compound types.
func (t Type) Kind() Kind { return t.kind }

// Order returns the byte-order tag. Meaningless for compound types.
func (t Type) Order() ByteOrder { return t.order }

// Size returns the count from the type-string: the byte width for most
// scalars, the code-point count for Unicode. Use ItemSize for the byte
// width of one element.
func (t Type) Size() int { return t.size }

// Fields returns the compound field list, or nil for scalars. The
// returned slice must not be modified.
func (t Type) Fields() []Field { return t.fields }

// FieldByName returns the named compound field.
func (t Type) FieldByName(name string) (Field, bool) {
	for _, f := range t.fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// ItemSize returns the total byte width of one element.
func (t Type) ItemSize() int {
	switch {
	case t.IsCompound():
		return t.itemSize
	case t.kind == Unicode:
		return t.size * 4
	default:
		return t.size
	}
}

// Equal reports structural equality: same kind, width, byte order and,
// for compound types, the same fields at the same offsets. Because '='
// is normalized at parse time, a native-order descriptor equals an
// explicit tag exactly when the platform order agrees.
func (t Type) Equal(other Type) bool {
	if t.IsCompound() != other.IsCompound() {
		return false
	}
	if t.IsCompound() {
		if t.itemSize != other.itemSize || len(t.fields) != len(other.fields) {
			return false
		}
		for i, f := range t.fields {
			g := other.fields[i]
			if f.Name != g.Name || f.Offset != g.Offset || !f.Type.Equal(g.Type) {
				return false
			}
		}
		return true
	}
	return t.kind == other.kind && t.size == other.size && t.order == other.order
}

// packed reports whether the compound fields sit back to back with no
// padding, which decides between the list and dict textual forms.
func (t Type) packed() bool {
	off := 0
	for _, f := range t.fields {
		if f.Offset != off {
			return false
		}
		off += f.Type.ItemSize()
	}
	return off == t.itemSize
}

// String returns the descr text. Parse(t.String()) reproduces t.
func (t Type) String() string {
	if !t.IsCompound() {
		return fmt.Sprintf("%s%s%d", t.order, t.kind, t.size)
	}
	return t.Literal().String()
}
