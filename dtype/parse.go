package dtype

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hupe1980/npygo/internal/pylit"
)

// Parse parses descr text: a scalar type-string such as "<f8", a list
// of (name, format) tuples, or a names/formats/offsets/itemsize dict.
// The '=' tag is replaced by the platform order.
func Parse(text string) (Type, error) {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "[") || strings.HasPrefix(s, "{") {
		v, err := pylit.Parse(s)
		if err != nil {
			return Type{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return FromLiteral(v)
	}
	return parseTypeString(s)
}

func parseTypeString(s string) (Type, error) {
	if len(s) < 3 {
		return Type{}, fmt.Errorf("%w: type-string %q too short", ErrMalformed, s)
	}

	var order ByteOrder
	switch s[0] {
	case '<':
		order = LittleEndian
	case '>':
		order = BigEndian
	case '=':
		order = NativeOrder()
	case '|':
		order = NotApplicable
	default:
		return Type{}, fmt.Errorf("%w: unknown byte-order tag %q in %q", ErrMalformed, string(s[0]), s)
	}

	kind, ok := kindFromCode(s[1])
	if !ok {
		return Type{}, fmt.Errorf("%w: unknown type code %q in %q", ErrMalformed, string(s[1]), s)
	}

	size, err := strconv.Atoi(s[2:])
	if err != nil || size < 0 {
		return Type{}, fmt.Errorf("%w: invalid size in %q", ErrMalformed, s)
	}

	t, err := ScalarWithOrder(kind, size, order)
	if err != nil {
		return Type{}, fmt.Errorf("%w (%q)", err, s)
	}
	return t, nil
}

// FromLiteral converts a parsed descr literal into a Type. String
// literals are scalar type-strings, lists are packed records, dicts
// are records with explicit offsets.
func FromLiteral(v pylit.Value) (Type, error) {
	switch v.Kind {
	case pylit.KindString:
		return parseTypeString(v.Str)
	case pylit.KindList:
		return compoundFromList(v)
	case pylit.KindDict:
		return compoundFromDict(v)
	default:
		return Type{}, fmt.Errorf("%w: descr must be a string, list or dict, got %s", ErrMalformed, v.Kind)
	}
}

func compoundFromList(v pylit.Value) (Type, error) {
	fields := make([]Field, 0, len(v.Items))
	for _, item := range v.Items {
		if item.Kind != pylit.KindTuple && item.Kind != pylit.KindList {
			return Type{}, fmt.Errorf("%w: compound field must be a tuple, got %s", ErrMalformed, item.Kind)
		}
		if len(item.Items) == 3 {
			// (name, format, shape): sub-array fields are out of scope.
			return Type{}, fmt.Errorf("%w: sub-array fields are not supported", ErrMalformed)
		}
		if len(item.Items) != 2 {
			return Type{}, fmt.Errorf("%w: compound field must be (name, format)", ErrMalformed)
		}
		name, format := item.Items[0], item.Items[1]
		if name.Kind != pylit.KindString {
			return Type{}, fmt.Errorf("%w: field name must be a string", ErrMalformed)
		}
		ft, err := FromLiteral(format)
		if err != nil {
			return Type{}, err
		}
		fields = append(fields, Field{Name: name.Str, Type: ft})
	}
	return Packed(fields...)
}

func compoundFromDict(v pylit.Value) (Type, error) {
	names, ok := v.Lookup("names")
	if !ok {
		return Type{}, fmt.Errorf("%w: compound dict missing 'names'", ErrMalformed)
	}
	formats, ok := v.Lookup("formats")
	if !ok {
		return Type{}, fmt.Errorf("%w: compound dict missing 'formats'", ErrMalformed)
	}
	if names.Kind != pylit.KindList && names.Kind != pylit.KindTuple {
		return Type{}, fmt.Errorf("%w: 'names' must be a list", ErrMalformed)
	}
	if len(formats.Items) != len(names.Items) {
		return Type{}, fmt.Errorf("%w: %d names but %d formats", ErrMalformed, len(names.Items), len(formats.Items))
	}

	fields := make([]Field, len(names.Items))
	for i, n := range names.Items {
		if n.Kind != pylit.KindString {
			return Type{}, fmt.Errorf("%w: field name must be a string", ErrMalformed)
		}
		ft, err := FromLiteral(formats.Items[i])
		if err != nil {
			return Type{}, err
		}
		fields[i] = Field{Name: n.Str, Type: ft}
	}

	if offsets, ok := v.Lookup("offsets"); ok {
		if len(offsets.Items) != len(fields) {
			return Type{}, fmt.Errorf("%w: %d offsets for %d fields", ErrMalformed, len(offsets.Items), len(fields))
		}
		for i, off := range offsets.Items {
			if off.Kind != pylit.KindInt || off.Int < 0 {
				return Type{}, fmt.Errorf("%w: field offset must be a non-negative integer", ErrMalformed)
			}
			fields[i].Offset = int(off.Int)
		}
	} else {
		off := 0
		for i := range fields {
			fields[i].Offset = off
			off += fields[i].Type.ItemSize()
		}
	}

	itemSize := 0
	if is, ok := v.Lookup("itemsize"); ok {
		if is.Kind != pylit.KindInt || is.Int < 0 {
			return Type{}, fmt.Errorf("%w: itemsize must be a non-negative integer", ErrMalformed)
		}
		itemSize = int(is.Int)
	} else {
		for _, f := range fields {
			if end := f.Offset + f.Type.ItemSize(); end > itemSize {
				itemSize = end
			}
		}
	}

	return Compound(itemSize, fields...)
}

// Literal returns the descr literal for header serialization. Packed
// records use the list-of-tuples form; records with padding need the
// dict form to carry offsets and itemsize.
func (t Type) Literal() pylit.Value {
	if !t.IsCompound() {
		return pylit.String(t.String())
	}
	if t.packed() {
		items := make([]pylit.Value, len(t.fields))
		for i, f := range t.fields {
			items[i] = pylit.Tuple(pylit.String(f.Name), f.Type.Literal())
		}
		return pylit.List(items...)
	}
	names := make([]pylit.Value, len(t.fields))
	formats := make([]pylit.Value, len(t.fields))
	offsets := make([]pylit.Value, len(t.fields))
	for i, f := range t.fields {
		names[i] = pylit.String(f.Name)
		formats[i] = f.Type.Literal()
		offsets[i] = pylit.Integer(int64(f.Offset))
	}
	return pylit.Dict().
		Set("names", pylit.List(names...)).
		Set("formats", pylit.List(formats...)).
		Set("offsets", pylit.List(offsets...)).
		Set("itemsize", pylit.Integer(int64(t.itemSize)))
}
