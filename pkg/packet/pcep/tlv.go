// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package pcep

import (
	"encoding/binary"
	"fmt"

	"go.uber.org/zap/zapcore"

	"github.com/nttcom/tesig/pkg/packet/codec"
)

type TLVType uint16

// PCEP TLV types
const (
	TLVNoPathVector            TLVType = 0x01
	TLVOverloadDuration        TLVType = 0x02
	TLVReqMissing              TLVType = 0x03
	TLVOFList                  TLVType = 0x04
	TLVOrder                   TLVType = 0x05
	TLVP2MPCapable             TLVType = 0x06
	TLVVendorInformation       TLVType = 0x07
	TLVStatefulPCECapability   TLVType = 0x10
	TLVSymbolicPathName        TLVType = 0x11
	TLVPathSetupType           TLVType = 0x1c
	TLVPathSetupTypeCapability TLVType = 0x22
)

// Experimental TLV used by the GEYSERS IT+network resource extensions
const (
	TLVStorage TLVType = 0xffe0
)

var tlvDescriptions = map[TLVType]struct {
	Description string
	Reference   string
}{
	TLVNoPathVector:            {"NO-PATH-VECTOR", "RFC5440"},
	TLVOverloadDuration:        {"OVERLOADED-DURATION", "RFC5440"},
	TLVReqMissing:              {"REQ-MISSING", "RFC5440"},
	TLVOFList:                  {"OF-LIST", "RFC5541"},
	TLVOrder:                   {"ORDER", "RFC5557"},
	TLVP2MPCapable:             {"P2MP-CAPABLE", "RFC8306"},
	TLVVendorInformation:       {"VENDOR-INFORMATION", "RFC7470"},
	TLVStatefulPCECapability:   {"STATEFUL-PCE-CAPABILITY", "RFC8231"},
	TLVSymbolicPathName:        {"SYMBOLIC-PATH-NAME", "RFC8231"},
	TLVPathSetupType:           {"PATH-SETUP-TYPE", "RFC8408"},
	TLVPathSetupTypeCapability: {"PATH-SETUP-TYPE-CAPABILITY", "RFC8408"},
	TLVStorage:                 {"STORAGE", "GEYSERS (experimental)"},
}

func (t TLVType) String() string {
	if desc, ok := tlvDescriptions[t]; ok {
		return fmt.Sprintf("%s (%s)", desc.Description, desc.Reference)
	}
	return fmt.Sprintf("Unknown TLV (0x%04x)", uint16(t))
}

// TLV value lengths, excluding the 4-byte TLV header (type + length)
const (
	TLVOverloadDurationValueLength uint16 = 4
	TLVReqMissingValueLength       uint16 = 4
	TLVOrderValueLength            uint16 = 8
	TLVPathSetupTypeValueLength    uint16 = 4
)

type TLVInterface interface {
	DecodeFromBytes(data []byte) error
	Serialize() ([]byte, error)
	MarshalLogObject(enc zapcore.ObjectEncoder) error
	Type() TLVType
	Len() uint16 // Total length of Type, Length, Value and padding
}

var tlvMap = map[TLVType]func() TLVInterface{
	TLVOverloadDuration: func() TLVInterface { return &OverloadDuration{} },
	TLVReqMissing:       func() TLVInterface { return &ReqMissing{} },
	TLVOrder:            func() TLVInterface { return &Order{} },
	TLVPathSetupType:    func() TLVInterface { return &PathSetupType{} },
	TLVStorage:          func() TLVInterface { return &Storage{} },
}

func peekTLV(data []byte) (TLVType, int, error) {
	typ, length, err := codec.PeekTLV(data)
	return TLVType(typ), length, err
}

// tlvList decodes the optional TLVs that trail an object body.
var tlvList = codec.ListSpec[TLVType, TLVInterface]{
	Name:     "TLVs",
	Peek:     peekTLV,
	Registry: tlvMap,
}

// DecodeTLVs decodes a TLV block. Unrecognized TLVs are skipped (RFC5440 7.1).
func DecodeTLVs(data []byte, opts ...codec.Opt) ([]TLVInterface, error) {
	return tlvList.Decode(data, opts...)
}

// decodeFixedTLV checks the header of a fixed-length TLV and returns its value.
func decodeFixedTLV(data []byte, typ TLVType, valueLength uint16) ([]byte, error) {
	var h codec.TLVHeader
	if err := h.DecodeFromBytes(data); err != nil {
		return nil, err
	}
	if TLVType(h.Type) != typ {
		return nil, codec.Violation(0, "expected %s, got %s", typ, TLVType(h.Type))
	}
	if h.Length != valueLength {
		return nil, codec.Malformed(2, "%s value length %d, want %d", typ, h.Length, valueLength)
	}
	return h.Value(data), nil
}

// OVERLOADED-DURATION TLV (RFC5440 7.14)
type OverloadDuration struct {
	Seconds uint32
}

func (tlv *OverloadDuration) DecodeFromBytes(data []byte) error {
	value, err := decodeFixedTLV(data, TLVOverloadDuration, TLVOverloadDurationValueLength)
	if err != nil {
		return err
	}
	tlv.Seconds = binary.BigEndian.Uint32(value)
	return nil
}

func (tlv *OverloadDuration) Serialize() ([]byte, error) {
	return codec.SerializeTLV(tlv.Type(), codec.Uint32ToByteSlice(tlv.Seconds))
}

func (tlv *OverloadDuration) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint32("seconds", tlv.Seconds)
	return nil
}

func (tlv *OverloadDuration) Type() TLVType {
	return TLVOverloadDuration
}

func (tlv *OverloadDuration) Len() uint16 {
	return codec.TLVLen(int(TLVOverloadDurationValueLength))
}

// REQ-MISSING TLV (RFC5440 7.14)
type ReqMissing struct {
	RequestID uint32
}

func (tlv *ReqMissing) DecodeFromBytes(data []byte) error {
	value, err := decodeFixedTLV(data, TLVReqMissing, TLVReqMissingValueLength)
	if err != nil {
		return err
	}
	tlv.RequestID = binary.BigEndian.Uint32(value)
	return nil
}

func (tlv *ReqMissing) Serialize() ([]byte, error) {
	return codec.SerializeTLV(tlv.Type(), codec.Uint32ToByteSlice(tlv.RequestID))
}

func (tlv *ReqMissing) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint32("requestID", tlv.RequestID)
	return nil
}

func (tlv *ReqMissing) Type() TLVType {
	return TLVReqMissing
}

func (tlv *ReqMissing) Len() uint16 {
	return codec.TLVLen(int(TLVReqMissingValueLength))
}

// ORDER TLV (RFC5557 5.4)
type Order struct {
	DeleteOrder uint32
	SetupOrder  uint32
}

func (tlv *Order) DecodeFromBytes(data []byte) error {
	value, err := decodeFixedTLV(data, TLVOrder, TLVOrderValueLength)
	if err != nil {
		return err
	}
	tlv.DeleteOrder = binary.BigEndian.Uint32(value[0:4])
	tlv.SetupOrder = binary.BigEndian.Uint32(value[4:8])
	return nil
}

func (tlv *Order) Serialize() ([]byte, error) {
	value := codec.AppendByteSlices(
		codec.Uint32ToByteSlice(tlv.DeleteOrder),
		codec.Uint32ToByteSlice(tlv.SetupOrder),
	)
	return codec.SerializeTLV(tlv.Type(), value)
}

func (tlv *Order) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint32("deleteOrder", tlv.DeleteOrder)
	enc.AddUint32("setupOrder", tlv.SetupOrder)
	return nil
}

func (tlv *Order) Type() TLVType {
	return TLVOrder
}

func (tlv *Order) Len() uint16 {
	return codec.TLVLen(int(TLVOrderValueLength))
}

type Pst uint8

const (
	PathSetupTypeRSVPTE  Pst = 0x00
	PathSetupTypeSRTE    Pst = 0x01
	PathSetupTypePCECCTE Pst = 0x02
	PathSetupTypeSRv6TE  Pst = 0x03
	PathSetupTypeIPTE    Pst = 0x04
)

var pathSetupDescriptions = map[Pst]struct {
	Description string
	Reference   string
}{
	PathSetupTypeRSVPTE:  {"Path is set up using the RSVP-TE signaling protocol", "RFC8408"},
	PathSetupTypeSRTE:    {"Traffic engineering path is set up using Segment Routing", "RFC8664"},
	PathSetupTypePCECCTE: {"Traffic engineering path is set up using PCECC mode", "RFC9050"},
	PathSetupTypeSRv6TE:  {"Traffic engineering path is set up using SRv6", "RFC9603"},
	PathSetupTypeIPTE:    {"Native IP TE Path", "RFC9757"},
}

func (pst Pst) String() string {
	if desc, found := pathSetupDescriptions[pst]; found {
		return fmt.Sprintf("%s (%s)", desc.Description, desc.Reference)
	}
	return fmt.Sprintf("Unknown PathSetupType (0x%02x)", uint8(pst))
}

// PATH-SETUP-TYPE TLV (RFC8408 3)
type PathSetupType struct {
	PathSetupType Pst
}

const (
	PathSetupTypePathSetupTypeIndex = 3
)

func (tlv *PathSetupType) DecodeFromBytes(data []byte) error {
	value, err := decodeFixedTLV(data, TLVPathSetupType, TLVPathSetupTypeValueLength)
	if err != nil {
		return err
	}
	tlv.PathSetupType = Pst(value[PathSetupTypePathSetupTypeIndex])
	return nil
}

func (tlv *PathSetupType) Serialize() ([]byte, error) {
	value := make([]byte, TLVPathSetupTypeValueLength)
	value[PathSetupTypePathSetupTypeIndex] = byte(tlv.PathSetupType)
	return codec.SerializeTLV(tlv.Type(), value)
}

func (tlv *PathSetupType) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint8("pathSetupType", uint8(tlv.PathSetupType))
	return nil
}

func (tlv *PathSetupType) Type() TLVType {
	return TLVPathSetupType
}

func (tlv *PathSetupType) Len() uint16 {
	return codec.TLVLen(int(TLVPathSetupTypeValueLength))
}

func NewPathSetupType(pst Pst) *PathSetupType {
	return &PathSetupType{
		PathSetupType: pst,
	}
}

// Storage is the GEYSERS STORAGE TLV, a container of sub-TLVs describing
// an IT resource attached to a request.
type Storage struct {
	SubTLVs []SubTLVInterface
}

func (tlv *Storage) DecodeFromBytes(data []byte) error {
	return tlv.DecodeWithOptions(data, codec.ResolveOptions())
}

func (tlv *Storage) DecodeWithOptions(data []byte, o *codec.Options) error {
	var h codec.TLVHeader
	if err := h.DecodeFromBytes(data); err != nil {
		return err
	}
	if TLVType(h.Type) != TLVStorage {
		return codec.Violation(0, "expected %s, got %s", TLVStorage, TLVType(h.Type))
	}
	subTLVs, err := subTLVList.DecodeWith(h.Value(data), o)
	if err != nil {
		return codec.Shift(err, codec.TLVHeaderLength)
	}
	tlv.SubTLVs = subTLVs
	return nil
}

func (tlv *Storage) Serialize() ([]byte, error) {
	value, err := codec.SerializeList(tlv.SubTLVs)
	if err != nil {
		return nil, fmt.Errorf("storage TLV: %w", err)
	}
	return codec.SerializeTLV(tlv.Type(), value)
}

func (tlv *Storage) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	return enc.AddArray("subTLVs", zapcore.ArrayMarshalerFunc(func(ae zapcore.ArrayEncoder) error {
		for _, sub := range tlv.SubTLVs {
			if err := ae.AppendObject(sub); err != nil {
				return err
			}
		}
		return nil
	}))
}

func (tlv *Storage) Type() TLVType {
	return TLVStorage
}

func (tlv *Storage) Len() uint16 {
	return codec.TLVLen(codec.ListLen(tlv.SubTLVs))
}

// marshalTLVs is the common "tlvs" field of objects carrying optional TLVs.
func marshalTLVs(enc zapcore.ObjectEncoder, tlvs []TLVInterface) error {
	if len(tlvs) == 0 {
		return nil
	}
	return enc.AddArray("tlvs", zapcore.ArrayMarshalerFunc(func(ae zapcore.ArrayEncoder) error {
		for _, tlv := range tlvs {
			if err := ae.AppendObject(zapcore.ObjectMarshalerFunc(func(e zapcore.ObjectEncoder) error {
				e.AddString("type", tlv.Type().String())
				return tlv.MarshalLogObject(e)
			})); err != nil {
				return err
			}
		}
		return nil
	}))
}
