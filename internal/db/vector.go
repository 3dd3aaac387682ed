package db

import (
	"encoding/binary"
	"math"
)

// EncodeVector serializes a vector into the little-endian byte layout
// FT.SEARCH expects for the given element type. The blob size must match
// DIM * sizeof(type) or the engine rejects the query.
func EncodeVector(v []float32, t VectorType) []byte {
	if t == VectorFloat16 {
		buf := make([]byte, len(v)*2)
		for i, f := range v {
			binary.LittleEndian.PutUint16(buf[i*2:], float16bits(f))
		}
		return buf
	}

	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// float16bits converts a float32 to IEEE 754 half precision, truncating
// the mantissa. Overflow saturates to Inf; tiny values flush through the
// subnormal range to zero.
func float16bits(f float32) uint16 {
	b := math.Float32bits(f)
	sign := uint16(b >> 16 & 0x8000)
	exp32 := b >> 23 & 0xff
	frac := b & 0x7fffff

	if exp32 == 0xff {
		if frac != 0 {
			return sign | 0x7e00
		}
		return sign | 0x7c00
	}

	exp := int32(exp32) - 112 // rebias 127 -> 15

	switch {
	case exp >= 0x1f:
		return sign | 0x7c00
	case exp <= 0:
		if exp < -10 {
			return sign
		}
		frac |= 0x800000
		return sign | uint16(frac>>uint32(14-exp))
	default:
		return sign | uint16(exp)<<10 | uint16(frac>>13)
	}
}
