// Package f16 converts between IEEE-754 binary16 bit-patterns and
// float32. It backs the f2 dtype: values are stored on disk as 16-bit
// patterns and surfaced to callers as float32.
package f16

import "math"

const (
	signMask uint16 = 0x8000
	expMask  uint16 = 0x7C00
	fracMask uint16 = 0x03FF

	f32ExpMask  uint32 = 0x7F800000
	f32FracMask uint32 = 0x007FFFFF
)

// Decode converts a binary16 bit-pattern to float32. The conversion is
// exact: every binary16 value is representable in float32.
func Decode(h uint16) float32 {
	sign := uint32(h&signMask) << 16
	exp := uint32(h&expMask) >> 10
	frac := uint32(h & fracMask)

	switch exp {
	case 0:
		if frac == 0 {
			return math.Float32frombits(sign)
		}
		// Subnormal: renormalize into a float32 normal. Half
		// subnormals have exponent -14 and no implicit leading 1.
		e := int32(-14)
		m := frac
		for m&0x0400 == 0 {
			m <<= 1
			e--
		}
		m &= 0x03FF
		return math.Float32frombits(sign | uint32(127+e)<<23 | m<<13)
	case 0x1F:
		if frac == 0 {
			return math.Float32frombits(sign | f32ExpMask)
		}
		return math.Float32frombits(sign | f32ExpMask | frac<<13)
	default:
		return math.Float32frombits(sign | uint32(exp-15+127)<<23 | frac<<13)
	}
}

// Encode converts a float32 to the nearest binary16 bit-pattern,
// rounding ties to even. Values beyond the binary16 range become
// infinities; values too small for a subnormal become signed zero.
func Encode(f float32) uint16 {
	bits := math.Float32bits(f)
	sign := uint16(bits>>16) & signMask
	exp := int32(bits&f32ExpMask) >> 23
	frac := bits & f32FracMask

	if exp == 0xFF {
		if frac == 0 {
			return sign | expMask
		}
		// NaN: keep a non-zero quiet payload.
		payload := uint16(frac>>13) | 0x0200
		return sign | expMask | (payload & fracMask)
	}

	if exp == 0 {
		// float32 subnormals are far below the binary16 range.
		return sign
	}

	e16 := exp - 127 + 15
	if e16 >= 0x1F {
		return sign | expMask
	}

	if e16 <= 0 {
		if e16 < -10 {
			return sign
		}
		// Build a binary16 subnormal with round-to-nearest-even.
		mant := frac | 0x00800000
		shift := uint32(1-e16) + 13
		m := mant >> shift
		rem := mant & (uint32(1)<<shift - 1)
		half := uint32(1) << (shift - 1)
		if rem > half || (rem == half && m&1 == 1) {
			m++
		}
		return sign | uint16(m)
	}

	m := frac >> 13
	rem := frac & 0x1FFF
	if rem > 0x1000 || (rem == 0x1000 && m&1 == 1) {
		m++
		if m == 0x0400 {
			m = 0
			e16++
			if e16 >= 0x1F {
				return sign | expMask
			}
		}
	}
	return sign | uint16(e16)<<10 | uint16(m)
}
