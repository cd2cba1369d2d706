// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package codec

import (
	"encoding/binary"
	"net/netip"
)

// TLV header length (type + length)
const TLVHeaderLength = 4

// Sub-object header length (type + length), RFC3209 4.3.3
const SubobjectHeaderLength = 2

const alignment = 4

// MaxLength is the largest value a 16-bit length field can carry.
const MaxLength = 0xffff

// Len16 narrows a computed length to a length field. Lengths above MaxLength
// saturate rather than wrap, so they never match an encoding.
func Len16(n int) uint16 {
	if n > MaxLength {
		return MaxLength
	}
	return uint16(n)
}

// CheckLength fails with a malformed-structure error when n bytes of what do
// not fit a 16-bit length field.
func CheckLength(what string, n int) error {
	if n > MaxLength {
		return Malformed(0, "%s of %d bytes exceeds the %d byte length field", what, n, MaxLength)
	}
	return nil
}

// Align4 rounds n up to the next multiple of 4.
func Align4(n int) int {
	return (n + alignment - 1) &^ (alignment - 1)
}

// TLVHeader is the PCEP-style TLV header (RFC5440 7.1).
// Length counts the value only; padding to a 4-byte boundary is not included.
type TLVHeader struct {
	Type   uint16
	Length uint16
}

func (h *TLVHeader) DecodeFromBytes(data []byte) error {
	if len(data) < TLVHeaderLength {
		return Malformed(0, "TLV header needs %d bytes, got %d", TLVHeaderLength, len(data))
	}
	h.Type = binary.BigEndian.Uint16(data[0:2])
	h.Length = binary.BigEndian.Uint16(data[2:4])
	if len(data) < h.PhysicalLen() {
		return Malformed(0, "TLV type %d declares %d bytes (padded), %d available", h.Type, h.PhysicalLen(), len(data))
	}
	return nil
}

func (h *TLVHeader) Serialize() []byte {
	return AppendByteSlices(Uint16ToByteSlice(h.Type), Uint16ToByteSlice(h.Length))
}

// PhysicalLen is the number of bytes the TLV occupies on the wire, padding included.
func (h *TLVHeader) PhysicalLen() int {
	return Align4(TLVHeaderLength + int(h.Length))
}

// Value returns the value portion of a TLV whose header has been decoded from data.
func (h *TLVHeader) Value(data []byte) []byte {
	return data[TLVHeaderLength : TLVHeaderLength+int(h.Length)]
}

// SerializeTLV writes header, value and zero padding.
func SerializeTLV[T ~uint16](typ T, value []byte) ([]byte, error) {
	if err := CheckLength("TLV value", len(value)); err != nil {
		return nil, err
	}
	buf := make([]byte, Align4(TLVHeaderLength+len(value)))
	binary.BigEndian.PutUint16(buf[0:2], uint16(typ))
	binary.BigEndian.PutUint16(buf[2:4], uint16(len(value)))
	copy(buf[TLVHeaderLength:], value)
	return buf, nil
}

// TLVLen returns the physical length of a TLV carrying valueLength bytes.
func TLVLen(valueLength int) uint16 {
	return Len16(Align4(TLVHeaderLength + valueLength))
}

// PeekTLV reads the type and physical length of the TLV at the head of data
// without consuming it.
func PeekTLV(data []byte) (typ uint16, length int, err error) {
	if len(data) < TLVHeaderLength {
		return 0, 0, Malformed(0, "TLV header needs %d bytes, got %d", TLVHeaderLength, len(data))
	}
	valueLength := int(binary.BigEndian.Uint16(data[2:4]))
	return binary.BigEndian.Uint16(data[0:2]), Align4(TLVHeaderLength + valueLength), nil
}

// SubobjectHeader is the route sub-object header (RFC3209 4.3.3, 4.4.1).
// Length includes the header itself.
type SubobjectHeader struct {
	Type   uint8 // raw octet; for ERO the high bit is the L (loose) flag
	Length uint8
}

const looseBit uint8 = 0x80

func (h *SubobjectHeader) DecodeFromBytes(data []byte) error {
	if len(data) < SubobjectHeaderLength {
		return Malformed(0, "sub-object header needs %d bytes, got %d", SubobjectHeaderLength, len(data))
	}
	h.Type = data[0]
	h.Length = data[1]
	if h.Length < SubobjectHeaderLength {
		return Malformed(1, "sub-object length %d shorter than its header", h.Length)
	}
	if int(h.Length) > len(data) {
		return Malformed(1, "sub-object declares %d bytes, %d available", h.Length, len(data))
	}
	return nil
}

func (h *SubobjectHeader) Serialize() []byte {
	return []byte{h.Type, h.Length}
}

func (h *SubobjectHeader) Loose() bool {
	return h.Type&looseBit != 0
}

func (h *SubobjectHeader) BaseType() uint8 {
	return h.Type &^ looseBit
}

// PeekSubobject reads the raw type and length of the sub-object at the head of data.
func PeekSubobject(data []byte) (typ uint8, length int, err error) {
	var h SubobjectHeader
	if err := h.DecodeFromBytes(data); err != nil {
		return 0, 0, err
	}
	return h.Type, int(h.Length), nil
}

// PeekLooseSubobject is PeekSubobject with the L bit masked off the type.
func PeekLooseSubobject(data []byte) (typ uint8, length int, err error) {
	var h SubobjectHeader
	if err := h.DecodeFromBytes(data); err != nil {
		return 0, 0, err
	}
	return h.BaseType(), int(h.Length), nil
}

// IPv4FromBytes decodes a 4-byte address field.
func IPv4FromBytes(offset int, data []byte) (netip.Addr, error) {
	if len(data) < 4 {
		return netip.Addr{}, Malformed(offset, "IPv4 address needs 4 bytes, got %d", len(data))
	}
	return netip.AddrFrom4([4]byte(data[:4])), nil
}

// IPv6FromBytes decodes a 16-byte address field.
func IPv6FromBytes(offset int, data []byte) (netip.Addr, error) {
	if len(data) < 16 {
		return netip.Addr{}, Malformed(offset, "IPv6 address needs 16 bytes, got %d", len(data))
	}
	return netip.AddrFrom16([16]byte(data[:16])), nil
}

// IPv4Bytes returns the wire form of a mandatory IPv4 field.
func IPv4Bytes(field string, addr netip.Addr) ([]byte, error) {
	if !addr.IsValid() {
		return nil, Malformed(0, "%s is unset", field)
	}
	if !addr.Is4() {
		return nil, Malformed(0, "%s %s is not an IPv4 address", field, addr)
	}
	return addr.AsSlice(), nil
}

// IPv6Bytes returns the wire form of a mandatory IPv6 field.
func IPv6Bytes(field string, addr netip.Addr) ([]byte, error) {
	if !addr.IsValid() {
		return nil, Malformed(0, "%s is unset", field)
	}
	if !addr.Is6() {
		return nil, Malformed(0, "%s %s is not an IPv6 address", field, addr)
	}
	return addr.AsSlice(), nil
}
