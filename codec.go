package npy

import (
	"fmt"
	"math"

	"github.com/hupe1980/npygo/dtype"
	"github.com/hupe1980/npygo/internal/f16"
)

// Marshaler is the element binding for compound (record) types: a type
// that knows its own descriptor and how to encode and decode exactly
// one element. Implementations write each field at its declared offset
// and leave padding bytes alone; decode ignores padding. The buffer
// passed to MarshalNumpy is zeroed and exactly NumpyType().ItemSize()
// bytes long.
//
// The binding is checked structurally against the file's descriptor
// when a view or writer is constructed; a mismatch is a hard error,
// never a reinterpretation.
type Marshaler interface {
	NumpyType() dtype.Type
	MarshalNumpy(dst []byte) error
	UnmarshalNumpy(src []byte) error
}

// Float16 is the raw bit-pattern of an IEEE-754 binary16 value, the
// element type for f2 arrays.
type Float16 uint16

// Float32 returns the value the bit-pattern represents.
func (f Float16) Float32() float32 { return f16.Decode(uint16(f)) }

// ToFloat16 converts a float32 to the nearest binary16 bit-pattern.
func ToFloat16(f float32) Float16 { return Float16(f16.Encode(f)) }

// elemCodec binds a descriptor to a symmetric encode/decode pair for
// one element type.
type elemCodec[T any] struct {
	dt  dtype.Type
	enc func(dst []byte, v *T) error
	dec func(src []byte, v *T) error
}

// codecFor resolves the element codec for T: types implementing
// Marshaler use their own binding, built-in scalars resolve through
// the table below. The built-in scalar descriptors carry the
// platform's byte order.
func codecFor[T any]() (*elemCodec[T], error) {
	var zero T
	if _, ok := any(&zero).(Marshaler); ok {
		return marshalerCodec[T]()
	}

	var c any
	switch any(zero).(type) {
	case bool:
		c = scalarCodec(dtype.Bool, 1,
			func(dst []byte, v *bool) {
				if *v {
					dst[0] = 1
				} else {
					dst[0] = 0
				}
			},
			func(src []byte, v *bool) { *v = src[0] != 0 })
	case int8:
		c = scalarCodec(dtype.Int, 1,
			func(dst []byte, v *int8) { dst[0] = byte(*v) },
			func(src []byte, v *int8) { *v = int8(src[0]) })
	case int16:
		c = scalarCodec(dtype.Int, 2,
			func(dst []byte, v *int16) { byteOrder.PutUint16(dst, uint16(*v)) },
			func(src []byte, v *int16) { *v = int16(byteOrder.Uint16(src)) })
	case int32:
		c = scalarCodec(dtype.Int, 4,
			func(dst []byte, v *int32) { byteOrder.PutUint32(dst, uint32(*v)) },
			func(src []byte, v *int32) { *v = int32(byteOrder.Uint32(src)) })
	case int64:
		c = scalarCodec(dtype.Int, 8,
			func(dst []byte, v *int64) { byteOrder.PutUint64(dst, uint64(*v)) },
			func(src []byte, v *int64) { *v = int64(byteOrder.Uint64(src)) })
	case uint8:
		c = scalarCodec(dtype.Uint, 1,
			func(dst []byte, v *uint8) { dst[0] = *v },
			func(src []byte, v *uint8) { *v = src[0] })
	case uint16:
		c = scalarCodec(dtype.Uint, 2,
			func(dst []byte, v *uint16) { byteOrder.PutUint16(dst, *v) },
			func(src []byte, v *uint16) { *v = byteOrder.Uint16(src) })
	case uint32:
		c = scalarCodec(dtype.Uint, 4,
			func(dst []byte, v *uint32) { byteOrder.PutUint32(dst, *v) },
			func(src []byte, v *uint32) { *v = byteOrder.Uint32(src) })
	case uint64:
		c = scalarCodec(dtype.Uint, 8,
			func(dst []byte, v *uint64) { byteOrder.PutUint64(dst, *v) },
			func(src []byte, v *uint64) { *v = byteOrder.Uint64(src) })
	case Float16:
		c = scalarCodec(dtype.Float, 2,
			func(dst []byte, v *Float16) { byteOrder.PutUint16(dst, uint16(*v)) },
			func(src []byte, v *Float16) { *v = Float16(byteOrder.Uint16(src)) })
	case float32:
		c = scalarCodec(dtype.Float, 4,
			func(dst []byte, v *float32) { byteOrder.PutUint32(dst, math.Float32bits(*v)) },
			func(src []byte, v *float32) { *v = math.Float32frombits(byteOrder.Uint32(src)) })
	case float64:
		c = scalarCodec(dtype.Float, 8,
			func(dst []byte, v *float64) { byteOrder.PutUint64(dst, math.Float64bits(*v)) },
			func(src []byte, v *float64) { *v = math.Float64frombits(byteOrder.Uint64(src)) })
	case complex64:
		c = scalarCodec(dtype.Complex, 8,
			func(dst []byte, v *complex64) {
				byteOrder.PutUint32(dst, math.Float32bits(real(*v)))
				byteOrder.PutUint32(dst[4:], math.Float32bits(imag(*v)))
			},
			func(src []byte, v *complex64) {
				*v = complex(
					math.Float32frombits(byteOrder.Uint32(src)),
					math.Float32frombits(byteOrder.Uint32(src[4:])),
				)
			})
	case complex128:
		c = scalarCodec(dtype.Complex, 16,
			func(dst []byte, v *complex128) {
				byteOrder.PutUint64(dst, math.Float64bits(real(*v)))
				byteOrder.PutUint64(dst[8:], math.Float64bits(imag(*v)))
			},
			func(src []byte, v *complex128) {
				*v = complex(
					math.Float64frombits(byteOrder.Uint64(src)),
					math.Float64frombits(byteOrder.Uint64(src[8:])),
				)
			})
	default:
		return nil, fmt.Errorf("npy: %T has no built-in dtype; implement Marshaler", zero)
	}
	return c.(*elemCodec[T]), nil
}

// byteOrder is the platform order, matching the descriptors
// dtype.Scalar produces.
var byteOrder = dtype.NativeOrder().Binary()

func scalarCodec[T any](k dtype.Kind, size int, enc func([]byte, *T), dec func([]byte, *T)) *elemCodec[T] {
	dt, err := dtype.Scalar(k, size)
	if err != nil {
		// The table above only uses valid kind/size pairs.
		panic(err)
	}
	return &elemCodec[T]{
		dt: dt,
		enc: func(dst []byte, v *T) error {
			enc(dst, v)
			return nil
		},
		dec: func(src []byte, v *T) error {
			dec(src, v)
			return nil
		},
	}
}

func marshalerCodec[T any]() (*elemCodec[T], error) {
	var probe T
	dt := any(&probe).(Marshaler).NumpyType()
	if dt.ItemSize() <= 0 {
		return nil, fmt.Errorf("%w: binding %T declares zero-width dtype", dtype.ErrMalformed, probe)
	}
	return &elemCodec[T]{
		dt: dt,
		enc: func(dst []byte, v *T) error {
			return any(v).(Marshaler).MarshalNumpy(dst)
		},
		dec: func(src []byte, v *T) error {
			return any(v).(Marshaler).UnmarshalNumpy(src)
		},
	}, nil
}
