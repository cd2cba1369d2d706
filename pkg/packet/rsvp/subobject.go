// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package rsvp

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"go.uber.org/zap/zapcore"

	"github.com/nttcom/tesig/pkg/packet/codec"
)

type SubobjectType uint8

// Sub-object types shared by RECORD_ROUTE and EXPLICIT_ROUTE (RFC3209 4.3.3, 4.4.1)
const (
	SubobjectTypeIPv4  SubobjectType = 1
	SubobjectTypeIPv6  SubobjectType = 2
	SubobjectTypeLabel SubobjectType = 3
)

func (t SubobjectType) String() string {
	switch t {
	case SubobjectTypeIPv4:
		return "IPv4 address"
	case SubobjectTypeIPv6:
		return "IPv6 address"
	case SubobjectTypeLabel:
		return "Label"
	}
	return fmt.Sprintf("Unknown sub-object (%d)", uint8(t))
}

const (
	ipv4SubobjectLength  uint8 = 8
	ipv6SubobjectLength  uint8 = 20
	labelSubobjectLength uint8 = 8
)

// RRO IPv4/IPv6 sub-object flags (RFC3209 4.4.1)
const (
	RROFlagLocalProtectionAvailable uint8 = 0x01
	RROFlagLocalProtectionInUse     uint8 = 0x02
)

// RRO Label sub-object flags (RFC3209 4.4.1.3)
const RROLabelFlagGlobal uint8 = 0x01

type RROSubobject interface {
	DecodeFromBytes(data []byte) error
	Serialize() ([]byte, error)
	MarshalLogObject(enc zapcore.ObjectEncoder) error
	Type() SubobjectType
	Len() uint16
}

type EROSubobject interface {
	DecodeFromBytes(data []byte) error
	Serialize() ([]byte, error)
	MarshalLogObject(enc zapcore.ObjectEncoder) error
	Type() SubobjectType
	Len() uint16
}

var rroSubobjectMap = map[SubobjectType]func() RROSubobject{
	SubobjectTypeIPv4:  func() RROSubobject { return &IPv4RROSubobject{} },
	SubobjectTypeIPv6:  func() RROSubobject { return &IPv6RROSubobject{} },
	SubobjectTypeLabel: func() RROSubobject { return &LabelRROSubobject{} },
}

var eroSubobjectMap = map[SubobjectType]func() EROSubobject{
	SubobjectTypeIPv4: func() EROSubobject { return &IPv4EROSubobject{} },
	SubobjectTypeIPv6: func() EROSubobject { return &IPv6EROSubobject{} },
}

func peekRROSubobject(data []byte) (SubobjectType, int, error) {
	typ, length, err := codec.PeekSubobject(data)
	return SubobjectType(typ), length, err
}

// peekEROSubobject ignores the L bit when dispatching.
func peekEROSubobject(data []byte) (SubobjectType, int, error) {
	typ, length, err := codec.PeekLooseSubobject(data)
	return SubobjectType(typ), length, err
}

var rroSubobjectList = codec.ListSpec[SubobjectType, RROSubobject]{
	Name:     "RRO sub-objects",
	Peek:     peekRROSubobject,
	Registry: rroSubobjectMap,
}

var eroSubobjectList = codec.ListSpec[SubobjectType, EROSubobject]{
	Name:     "ERO sub-objects",
	Peek:     peekEROSubobject,
	Registry: eroSubobjectMap,
}

// decodeSubobjectHeader checks type and exact length, returning the header and body.
func decodeSubobjectHeader(data []byte, typ SubobjectType, length uint8) (*codec.SubobjectHeader, []byte, error) {
	var h codec.SubobjectHeader
	if err := h.DecodeFromBytes(data); err != nil {
		return nil, nil, err
	}
	if SubobjectType(h.BaseType()) != typ {
		return nil, nil, codec.Violation(0, "expected %s sub-object, got %s", typ, SubobjectType(h.BaseType()))
	}
	if h.Length != length {
		return nil, nil, codec.Malformed(1, "%s sub-object length %d, want %d", typ, h.Length, length)
	}
	return &h, data[codec.SubobjectHeaderLength:h.Length], nil
}

// prefix is the address and prefix length carried by the address sub-objects.
type prefix struct {
	Address      netip.Addr
	PrefixLength uint8
}

func (p *prefix) decode(body []byte, ipv6 bool) error {
	decode, bits := codec.IPv4FromBytes, 32
	if ipv6 {
		decode, bits = codec.IPv6FromBytes, 128
	}
	addr, err := decode(codec.SubobjectHeaderLength, body)
	if err != nil {
		return err
	}
	addrLen := bits / 8
	if int(body[addrLen]) > bits {
		return codec.Malformed(codec.SubobjectHeaderLength+addrLen, "prefix length %d exceeds %d", body[addrLen], bits)
	}
	p.Address = addr
	p.PrefixLength = body[addrLen]
	return nil
}

func (p *prefix) serialize(typ uint8, ipv6 bool, last uint8) ([]byte, error) {
	encode, bits, length := codec.IPv4Bytes, 32, ipv4SubobjectLength
	if ipv6 {
		encode, bits, length = codec.IPv6Bytes, 128, ipv6SubobjectLength
	}
	addr, err := encode("sub-object address", p.Address)
	if err != nil {
		return nil, err
	}
	if int(p.PrefixLength) > bits {
		return nil, codec.Malformed(0, "prefix length %d exceeds %d", p.PrefixLength, bits)
	}
	h := codec.SubobjectHeader{Type: typ, Length: length}
	return codec.AppendByteSlices(h.Serialize(), addr, []byte{p.PrefixLength, last}), nil
}

func (p *prefix) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("address", p.Address.String())
	enc.AddUint8("prefixLength", p.PrefixLength)
	return nil
}

// IPv4 address sub-object of RECORD_ROUTE (RFC3209 4.4.1.1)
type IPv4RROSubobject struct {
	prefix
	Flags uint8
}

func (o *IPv4RROSubobject) DecodeFromBytes(data []byte) error {
	_, body, err := decodeSubobjectHeader(data, SubobjectTypeIPv4, ipv4SubobjectLength)
	if err != nil {
		return err
	}
	var p prefix
	if err := p.decode(body, false); err != nil {
		return err
	}
	*o = IPv4RROSubobject{prefix: p, Flags: body[5]}
	return nil
}

func (o *IPv4RROSubobject) Serialize() ([]byte, error) {
	return o.serialize(uint8(SubobjectTypeIPv4), false, o.Flags)
}

func (o *IPv4RROSubobject) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	_ = o.prefix.MarshalLogObject(enc)
	enc.AddUint8("flags", o.Flags)
	return nil
}

func (o *IPv4RROSubobject) Type() SubobjectType {
	return SubobjectTypeIPv4
}

func (o *IPv4RROSubobject) Len() uint16 {
	return uint16(ipv4SubobjectLength)
}

func NewIPv4RROSubobject(addr netip.Addr, prefixLength uint8) *IPv4RROSubobject {
	return &IPv4RROSubobject{prefix: prefix{Address: addr, PrefixLength: prefixLength}}
}

// IPv6 address sub-object of RECORD_ROUTE (RFC3209 4.4.1.2)
type IPv6RROSubobject struct {
	prefix
	Flags uint8
}

func (o *IPv6RROSubobject) DecodeFromBytes(data []byte) error {
	_, body, err := decodeSubobjectHeader(data, SubobjectTypeIPv6, ipv6SubobjectLength)
	if err != nil {
		return err
	}
	var p prefix
	if err := p.decode(body, true); err != nil {
		return err
	}
	*o = IPv6RROSubobject{prefix: p, Flags: body[17]}
	return nil
}

func (o *IPv6RROSubobject) Serialize() ([]byte, error) {
	return o.serialize(uint8(SubobjectTypeIPv6), true, o.Flags)
}

func (o *IPv6RROSubobject) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	_ = o.prefix.MarshalLogObject(enc)
	enc.AddUint8("flags", o.Flags)
	return nil
}

func (o *IPv6RROSubobject) Type() SubobjectType {
	return SubobjectTypeIPv6
}

func (o *IPv6RROSubobject) Len() uint16 {
	return uint16(ipv6SubobjectLength)
}

func NewIPv6RROSubobject(addr netip.Addr, prefixLength uint8) *IPv6RROSubobject {
	return &IPv6RROSubobject{prefix: prefix{Address: addr, PrefixLength: prefixLength}}
}

// Label sub-object of RECORD_ROUTE (RFC3209 4.4.1.3)
type LabelRROSubobject struct {
	Flags uint8
	CType CType
	Label uint32
}

func (o *LabelRROSubobject) DecodeFromBytes(data []byte) error {
	_, body, err := decodeSubobjectHeader(data, SubobjectTypeLabel, labelSubobjectLength)
	if err != nil {
		return err
	}
	*o = LabelRROSubobject{
		Flags: body[0],
		CType: CType(body[1]),
		Label: binary.BigEndian.Uint32(body[2:6]),
	}
	return nil
}

func (o *LabelRROSubobject) Serialize() ([]byte, error) {
	h := codec.SubobjectHeader{Type: uint8(SubobjectTypeLabel), Length: labelSubobjectLength}
	return codec.AppendByteSlices(
		h.Serialize(),
		[]byte{o.Flags, uint8(o.CType)},
		codec.Uint32ToByteSlice(o.Label),
	), nil
}

func (o *LabelRROSubobject) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddBool("global", codec.IsBitSet(o.Flags, RROLabelFlagGlobal))
	enc.AddUint8("cType", uint8(o.CType))
	enc.AddUint32("label", o.Label)
	return nil
}

func (o *LabelRROSubobject) Type() SubobjectType {
	return SubobjectTypeLabel
}

func (o *LabelRROSubobject) Len() uint16 {
	return uint16(labelSubobjectLength)
}

// IPv4 prefix sub-object of EXPLICIT_ROUTE (RFC3209 4.3.3.3)
type IPv4EROSubobject struct {
	prefix
	Loose bool
}

func (o *IPv4EROSubobject) DecodeFromBytes(data []byte) error {
	h, body, err := decodeSubobjectHeader(data, SubobjectTypeIPv4, ipv4SubobjectLength)
	if err != nil {
		return err
	}
	var p prefix
	if err := p.decode(body, false); err != nil {
		return err
	}
	*o = IPv4EROSubobject{prefix: p, Loose: h.Loose()}
	return nil
}

func (o *IPv4EROSubobject) Serialize() ([]byte, error) {
	return o.serialize(looseType(SubobjectTypeIPv4, o.Loose), false, 0)
}

func (o *IPv4EROSubobject) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	_ = o.prefix.MarshalLogObject(enc)
	enc.AddBool("loose", o.Loose)
	return nil
}

func (o *IPv4EROSubobject) Type() SubobjectType {
	return SubobjectTypeIPv4
}

func (o *IPv4EROSubobject) Len() uint16 {
	return uint16(ipv4SubobjectLength)
}

func NewIPv4EROSubobject(addr netip.Addr, prefixLength uint8, loose bool) *IPv4EROSubobject {
	return &IPv4EROSubobject{prefix: prefix{Address: addr, PrefixLength: prefixLength}, Loose: loose}
}

// IPv6 prefix sub-object of EXPLICIT_ROUTE (RFC3209 4.3.3.4)
type IPv6EROSubobject struct {
	prefix
	Loose bool
}

func (o *IPv6EROSubobject) DecodeFromBytes(data []byte) error {
	h, body, err := decodeSubobjectHeader(data, SubobjectTypeIPv6, ipv6SubobjectLength)
	if err != nil {
		return err
	}
	var p prefix
	if err := p.decode(body, true); err != nil {
		return err
	}
	*o = IPv6EROSubobject{prefix: p, Loose: h.Loose()}
	return nil
}

func (o *IPv6EROSubobject) Serialize() ([]byte, error) {
	return o.serialize(looseType(SubobjectTypeIPv6, o.Loose), true, 0)
}

func (o *IPv6EROSubobject) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	_ = o.prefix.MarshalLogObject(enc)
	enc.AddBool("loose", o.Loose)
	return nil
}

func (o *IPv6EROSubobject) Type() SubobjectType {
	return SubobjectTypeIPv6
}

func (o *IPv6EROSubobject) Len() uint16 {
	return uint16(ipv6SubobjectLength)
}

func NewIPv6EROSubobject(addr netip.Addr, prefixLength uint8, loose bool) *IPv6EROSubobject {
	return &IPv6EROSubobject{prefix: prefix{Address: addr, PrefixLength: prefixLength}, Loose: loose}
}

func looseType(t SubobjectType, loose bool) uint8 {
	return codec.SetBit(uint8(t), 0x80, loose)
}
