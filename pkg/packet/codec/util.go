// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package codec

import (
	"encoding/binary"
	"math"
)

// AppendByteSlices concatenates byte slices into one newly allocated slice.
func AppendByteSlices(slices ...[]byte) []byte {
	totalLen := 0
	for _, s := range slices {
		totalLen += len(s)
	}
	result := make([]byte, 0, totalLen)
	for _, s := range slices {
		result = append(result, s...)
	}
	return result
}

// Uint16ToByteSlice converts a uint16 (or any type derived from it) to big-endian bytes.
func Uint16ToByteSlice[T ~uint16](v T) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, uint16(v))
	return b
}

func Uint32ToByteSlice[T ~uint32](v T) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, uint32(v))
	return b
}

// Float32ToByteSlice encodes an IEEE 754 single-precision value (RFC5440 7.7, RFC2210).
func Float32ToByteSlice(v float32) []byte {
	return Uint32ToByteSlice(math.Float32bits(v))
}

func Float32FromBytes(b []byte) float32 {
	return math.Float32frombits(binary.BigEndian.Uint32(b))
}

// Bitwise is a type constraint for unsigned integer flag fields.
type Bitwise interface {
	~uint8 | ~uint16 | ~uint32
}

// IsBitSet reports whether any bit of mask is set in value.
func IsBitSet[T Bitwise](value, mask T) bool {
	return value&mask != 0
}

// SetBit returns value with mask set when condition holds.
func SetBit[T Bitwise](value, mask T, condition bool) T {
	if condition {
		return value | mask
	}
	return value
}

// CloneBytes copies b so decoded values never alias the input buffer.
func CloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte{}, b...)
}
