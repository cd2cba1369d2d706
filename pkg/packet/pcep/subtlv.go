// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package pcep

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"go.uber.org/zap/zapcore"

	"github.com/nttcom/tesig/pkg/packet/codec"
)

type SubTLVType uint16

// Sub-TLV types carried by the STORAGE TLV
const (
	SubTLVResourceID  SubTLVType = 0x01
	SubTLVStorageSize SubTLVType = 0x02
)

var subTLVDescriptions = map[SubTLVType]string{
	SubTLVResourceID:  "RESOURCE-ID",
	SubTLVStorageSize: "STORAGE-SIZE",
}

func (t SubTLVType) String() string {
	if desc, ok := subTLVDescriptions[t]; ok {
		return desc
	}
	return fmt.Sprintf("Unknown sub-TLV (0x%04x)", uint16(t))
}

const (
	SubTLVResourceIDValueLength  uint16 = 4
	SubTLVStorageSizeValueLength uint16 = 4
)

// Sub-TLVs share the TLV header and padding rules (RFC5440 7.1).
type SubTLVInterface interface {
	DecodeFromBytes(data []byte) error
	Serialize() ([]byte, error)
	MarshalLogObject(enc zapcore.ObjectEncoder) error
	Type() SubTLVType
	Len() uint16
}

var subTLVMap = map[SubTLVType]func() SubTLVInterface{
	SubTLVResourceID:  func() SubTLVInterface { return &ResourceID{} },
	SubTLVStorageSize: func() SubTLVInterface { return &StorageSize{} },
}

var subTLVList = codec.ListSpec[SubTLVType, SubTLVInterface]{
	Name: "sub-TLVs",
	Peek: func(data []byte) (SubTLVType, int, error) {
		typ, length, err := codec.PeekTLV(data)
		return SubTLVType(typ), length, err
	},
	Registry: subTLVMap,
}

func decodeFixedSubTLV(data []byte, typ SubTLVType, valueLength uint16) ([]byte, error) {
	var h codec.TLVHeader
	if err := h.DecodeFromBytes(data); err != nil {
		return nil, err
	}
	if SubTLVType(h.Type) != typ {
		return nil, codec.Violation(0, "expected %s, got %s", typ, SubTLVType(h.Type))
	}
	if h.Length != valueLength {
		return nil, codec.Malformed(2, "%s value length %d, want %d", typ, h.Length, valueLength)
	}
	return h.Value(data), nil
}

// ResourceID identifies an IT resource with a 32-bit identifier written in
// IPv4 address form.
type ResourceID struct {
	ID netip.Addr
}

func (sub *ResourceID) DecodeFromBytes(data []byte) error {
	value, err := decodeFixedSubTLV(data, SubTLVResourceID, SubTLVResourceIDValueLength)
	if err != nil {
		return err
	}
	id, err := codec.IPv4FromBytes(codec.TLVHeaderLength, value)
	if err != nil {
		return err
	}
	sub.ID = id
	return nil
}

func (sub *ResourceID) Serialize() ([]byte, error) {
	id, err := codec.IPv4Bytes("resource ID", sub.ID)
	if err != nil {
		return nil, err
	}
	return codec.SerializeTLV(sub.Type(), id)
}

func (sub *ResourceID) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("resourceID", sub.ID.String())
	return nil
}

func (sub *ResourceID) Type() SubTLVType {
	return SubTLVResourceID
}

func (sub *ResourceID) Len() uint16 {
	return codec.TLVLen(int(SubTLVResourceIDValueLength))
}

// StorageSize is the requested storage capacity in megabytes.
type StorageSize struct {
	Megabytes uint32
}

func (sub *StorageSize) DecodeFromBytes(data []byte) error {
	value, err := decodeFixedSubTLV(data, SubTLVStorageSize, SubTLVStorageSizeValueLength)
	if err != nil {
		return err
	}
	sub.Megabytes = binary.BigEndian.Uint32(value)
	return nil
}

func (sub *StorageSize) Serialize() ([]byte, error) {
	return codec.SerializeTLV(sub.Type(), codec.Uint32ToByteSlice(sub.Megabytes))
}

func (sub *StorageSize) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint32("megabytes", sub.Megabytes)
	return nil
}

func (sub *StorageSize) Type() SubTLVType {
	return SubTLVStorageSize
}

func (sub *StorageSize) Len() uint16 {
	return codec.TLVLen(int(SubTLVStorageSizeValueLength))
}
