// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package rsvp

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nttcom/tesig/pkg/packet/codec"
)

const ObjectHeaderLength uint16 = 4

type ClassNum uint8

// RSVP Class-Num (RFC2205 A, RFC3209 4)
const (
	ClassNumSession        ClassNum = 1
	ClassNumRSVPHop        ClassNum = 3
	ClassNumIntegrity      ClassNum = 4
	ClassNumTimeValues     ClassNum = 5
	ClassNumErrorSpec      ClassNum = 6
	ClassNumScope          ClassNum = 7
	ClassNumStyle          ClassNum = 8
	ClassNumFlowSpec       ClassNum = 9
	ClassNumFilterSpec     ClassNum = 10
	ClassNumSenderTemplate ClassNum = 11
	ClassNumSenderTSpec    ClassNum = 12
	ClassNumAdSpec         ClassNum = 13
	ClassNumPolicyData     ClassNum = 14
	ClassNumResvConfirm    ClassNum = 15
	ClassNumLabel          ClassNum = 16
	ClassNumLabelRequest   ClassNum = 19
	ClassNumExplicitRoute  ClassNum = 20
	ClassNumRecordRoute    ClassNum = 21
	ClassNumHello          ClassNum = 22
)

var classNumDescriptions = map[ClassNum]string{
	ClassNumSession:        "SESSION",
	ClassNumRSVPHop:        "RSVP_HOP",
	ClassNumIntegrity:      "INTEGRITY",
	ClassNumTimeValues:     "TIME_VALUES",
	ClassNumErrorSpec:      "ERROR_SPEC",
	ClassNumScope:          "SCOPE",
	ClassNumStyle:          "STYLE",
	ClassNumFlowSpec:       "FLOWSPEC",
	ClassNumFilterSpec:     "FILTER_SPEC",
	ClassNumSenderTemplate: "SENDER_TEMPLATE",
	ClassNumSenderTSpec:    "SENDER_TSPEC",
	ClassNumAdSpec:         "ADSPEC",
	ClassNumPolicyData:     "POLICY_DATA",
	ClassNumResvConfirm:    "RESV_CONFIRM",
	ClassNumLabel:          "LABEL",
	ClassNumLabelRequest:   "LABEL_REQUEST",
	ClassNumExplicitRoute:  "EXPLICIT_ROUTE",
	ClassNumRecordRoute:    "RECORD_ROUTE",
	ClassNumHello:          "HELLO",
}

func (c ClassNum) String() string {
	if desc, ok := classNumDescriptions[c]; ok {
		return desc
	}
	return fmt.Sprintf("Unknown Class-Num (%d)", uint8(c))
}

type CType uint8

const (
	CTypeHelloRequest  CType = 1
	CTypeHelloAck      CType = 2
	CTypeLSPTunnelIPv4 CType = 7
	CTypeLSPTunnelIPv6 CType = 8
	CTypeIntServ       CType = 2
	CTypeLabelGeneric  CType = 1
	CTypeRecordRoute   CType = 1
	CTypeExplicitRoute CType = 1
)

// Body lengths, excluding the object header
const (
	helloBodyLen            = 8
	labelBodyLen            = 4
	lspTunnelIPv4BodyLen    = 8
	lspTunnelIPv6BodyLen    = 20
	lspTunnelIPv4AddressLen = 4
	lspTunnelIPv6AddressLen = 16
	lspTunnelReservedBytes  = 2
)

// ObjectHeader is the RSVP object header (RFC2205 A).
// Length counts the whole object, header included, in bytes.
type ObjectHeader struct {
	Length   uint16
	ClassNum ClassNum
	CType    CType
}

func (h *ObjectHeader) DecodeFromBytes(data []byte) error {
	if len(data) < int(ObjectHeaderLength) {
		return codec.Malformed(0, "object header needs %d bytes, got %d", ObjectHeaderLength, len(data))
	}
	h.Length = binary.BigEndian.Uint16(data[0:2])
	h.ClassNum = ClassNum(data[2])
	h.CType = CType(data[3])

	switch {
	case h.Length < ObjectHeaderLength:
		return codec.Malformed(0, "object length %d shorter than its header", h.Length)
	case h.Length%4 != 0:
		return codec.Malformed(0, "object length %d is not a multiple of 4", h.Length)
	case int(h.Length) > len(data):
		return codec.Malformed(0, "%s object declares %d bytes, %d available", h.ClassNum, h.Length, len(data))
	}
	return nil
}

func (h *ObjectHeader) Serialize() []byte {
	return codec.AppendByteSlices(
		codec.Uint16ToByteSlice(h.Length),
		[]byte{uint8(h.ClassNum), uint8(h.CType)},
	)
}

func NewObjectHeader(classNum ClassNum, cType CType, length uint16) *ObjectHeader {
	return &ObjectHeader{
		Length:   length,
		ClassNum: classNum,
		CType:    cType,
	}
}

// PeekObjectClass reads the Class-Num of the object at the head of data.
func PeekObjectClass(data []byte) (uint8, error) {
	if len(data) < int(ObjectHeaderLength) {
		return 0, codec.Malformed(0, "object header needs %d bytes, got %d", ObjectHeaderLength, len(data))
	}
	return data[2], nil
}

type Object interface {
	DecodeFromBytes(data []byte) error
	Serialize() ([]byte, error)
	MarshalLogObject(enc zapcore.ObjectEncoder) error
	ClassNum() ClassNum
	CType() CType
	Len() uint16 // Total length including the object header
}

type objectKey struct {
	ClassNum ClassNum
	CType    CType
}

var objectMap = map[objectKey]func() Object{
	{ClassNumHello, CTypeHelloRequest}:           func() Object { return &HelloRequest{} },
	{ClassNumHello, CTypeHelloAck}:               func() Object { return &HelloAck{} },
	{ClassNumSenderTemplate, CTypeLSPTunnelIPv4}: func() Object { return &SenderTemplateLSPTunnel{} },
	{ClassNumSenderTemplate, CTypeLSPTunnelIPv6}: func() Object { return &SenderTemplateLSPTunnel{} },
	{ClassNumFilterSpec, CTypeLSPTunnelIPv4}:     func() Object { return &FilterSpecLSPTunnel{} },
	{ClassNumFilterSpec, CTypeLSPTunnelIPv6}:     func() Object { return &FilterSpecLSPTunnel{} },
	{ClassNumFlowSpec, CTypeIntServ}:             func() Object { return &FlowSpec{} },
	{ClassNumLabel, CTypeLabelGeneric}:           func() Object { return &Label{} },
	{ClassNumRecordRoute, CTypeRecordRoute}:      func() Object { return &RecordRoute{} },
	{ClassNumExplicitRoute, CTypeExplicitRoute}:  func() Object { return &ExplicitRoute{} },
}

// decodeObjectHeader validates the header of an object of the given class and
// returns it with the object body.
func decodeObjectHeader(data []byte, classNum ClassNum) (*ObjectHeader, []byte, error) {
	var h ObjectHeader
	if err := h.DecodeFromBytes(data); err != nil {
		return nil, nil, err
	}
	if h.ClassNum != classNum {
		return nil, nil, codec.Violation(2, "expected %s object, got %s", classNum, h.ClassNum)
	}
	if _, ok := objectMap[objectKey{h.ClassNum, h.CType}]; !ok {
		return nil, nil, codec.Violation(3, "unsupported %s C-Type %d", h.ClassNum, h.CType)
	}
	return &h, data[ObjectHeaderLength:h.Length], nil
}

// DecodeObject decodes the object at the head of data. Objects of an
// unregistered Class-Num or C-Type are a protocol violation.
func DecodeObject(data []byte, opts ...codec.Opt) (Object, error) {
	var h ObjectHeader
	if err := h.DecodeFromBytes(data); err != nil {
		return nil, err
	}
	newObject, ok := objectMap[objectKey{h.ClassNum, h.CType}]
	if !ok {
		return nil, codec.Violation(2, "unsupported object class-num %d c-type %d", uint8(h.ClassNum), uint8(h.CType))
	}
	obj := newObject()
	if err := codec.DecodeUnit(obj, data[:h.Length], codec.ResolveOptions(opts...)); err != nil {
		return nil, codec.Within(err, h.ClassNum.String())
	}
	return obj, nil
}

// DecodeObjects decodes a flat object sequence such as a message body.
// Unknown objects are kept as UndefinedObject.
func DecodeObjects(data []byte, opts ...codec.Opt) ([]Object, error) {
	o := codec.ResolveOptions(opts...)
	var objects []Object
	c := codec.NewCursor(data)
	for !c.EOF() {
		var h ObjectHeader
		if err := h.DecodeFromBytes(c.Rest()); err != nil {
			return nil, codec.Shift(err, c.Offset())
		}
		var obj Object
		if newObject, ok := objectMap[objectKey{h.ClassNum, h.CType}]; ok {
			obj = newObject()
		} else {
			o.Logger.Debug("keeping undefined object",
				zap.Uint8("classNum", uint8(h.ClassNum)),
				zap.Uint8("cType", uint8(h.CType)),
				zap.Int("offset", c.Offset()))
			obj = &UndefinedObject{}
		}
		if err := codec.DecodeUnit(obj, c.Rest()[:h.Length], o); err != nil {
			return nil, codec.Within(codec.Shift(err, c.Offset()), h.ClassNum.String())
		}
		objects = append(objects, obj)
		next, err := c.Advance(int(h.Length))
		if err != nil {
			return nil, err
		}
		c = next
	}
	return objects, nil
}

// hello carries the instance values shared by HELLO REQUEST and HELLO ACK (RFC3209 5.2).
type hello struct {
	SrcInstance uint32
	DstInstance uint32
}

func (h *hello) decode(data []byte, cType CType) error {
	oh, body, err := decodeObjectHeader(data, ClassNumHello)
	if err != nil {
		return err
	}
	if oh.CType != cType {
		return codec.Violation(3, "expected HELLO C-Type %d, got %d", cType, oh.CType)
	}
	if len(body) != helloBodyLen {
		return codec.Malformed(int(ObjectHeaderLength), "HELLO body is %d bytes, want %d", len(body), helloBodyLen)
	}
	h.SrcInstance = binary.BigEndian.Uint32(body[0:4])
	h.DstInstance = binary.BigEndian.Uint32(body[4:8])
	return nil
}

func (h *hello) serialize(cType CType) []byte {
	return codec.AppendByteSlices(
		NewObjectHeader(ClassNumHello, cType, ObjectHeaderLength+helloBodyLen).Serialize(),
		codec.Uint32ToByteSlice(h.SrcInstance),
		codec.Uint32ToByteSlice(h.DstInstance),
	)
}

func (h *hello) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint32("srcInstance", h.SrcInstance)
	enc.AddUint32("dstInstance", h.DstInstance)
	return nil
}

// HELLO REQUEST Object (RFC3209 5.1.1)
type HelloRequest struct {
	hello
}

func (o *HelloRequest) DecodeFromBytes(data []byte) error {
	var h hello
	if err := h.decode(data, CTypeHelloRequest); err != nil {
		return err
	}
	o.hello = h
	return nil
}

func (o *HelloRequest) Serialize() ([]byte, error) {
	return o.serialize(CTypeHelloRequest), nil
}

func (o *HelloRequest) ClassNum() ClassNum {
	return ClassNumHello
}

func (o *HelloRequest) CType() CType {
	return CTypeHelloRequest
}

func (o *HelloRequest) Len() uint16 {
	return ObjectHeaderLength + helloBodyLen
}

func NewHelloRequest(src, dst uint32) *HelloRequest {
	return &HelloRequest{hello{SrcInstance: src, DstInstance: dst}}
}

// HELLO ACK Object (RFC3209 5.1.2)
type HelloAck struct {
	hello
}

func (o *HelloAck) DecodeFromBytes(data []byte) error {
	var h hello
	if err := h.decode(data, CTypeHelloAck); err != nil {
		return err
	}
	o.hello = h
	return nil
}

func (o *HelloAck) Serialize() ([]byte, error) {
	return o.serialize(CTypeHelloAck), nil
}

func (o *HelloAck) ClassNum() ClassNum {
	return ClassNumHello
}

func (o *HelloAck) CType() CType {
	return CTypeHelloAck
}

func (o *HelloAck) Len() uint16 {
	return ObjectHeaderLength + helloBodyLen
}

func NewHelloAck(src, dst uint32) *HelloAck {
	return &HelloAck{hello{SrcInstance: src, DstInstance: dst}}
}

// lspTunnel is the body shared by SENDER_TEMPLATE and FILTER_SPEC of the
// LSP_TUNNEL C-Types (RFC3209 4.6.2, 4.6.3). The address family picks the C-Type.
type lspTunnel struct {
	SenderAddress netip.Addr
	LSPID         uint16
}

func (t *lspTunnel) decode(data []byte, classNum ClassNum) error {
	h, body, err := decodeObjectHeader(data, classNum)
	if err != nil {
		return err
	}
	addrLen, bodyLen, decode := lspTunnelIPv4AddressLen, lspTunnelIPv4BodyLen, codec.IPv4FromBytes
	if h.CType == CTypeLSPTunnelIPv6 {
		addrLen, bodyLen, decode = lspTunnelIPv6AddressLen, lspTunnelIPv6BodyLen, codec.IPv6FromBytes
	}
	if len(body) != bodyLen {
		return codec.Malformed(int(ObjectHeaderLength), "%s C-Type %d body is %d bytes, want %d", classNum, h.CType, len(body), bodyLen)
	}
	addr, err := decode(int(ObjectHeaderLength), body[:addrLen])
	if err != nil {
		return err
	}
	t.SenderAddress = addr
	t.LSPID = binary.BigEndian.Uint16(body[addrLen+lspTunnelReservedBytes:])
	return nil
}

func (t *lspTunnel) cType() CType {
	if t.SenderAddress.Is6() {
		return CTypeLSPTunnelIPv6
	}
	return CTypeLSPTunnelIPv4
}

func (t *lspTunnel) length() uint16 {
	if t.cType() == CTypeLSPTunnelIPv6 {
		return ObjectHeaderLength + lspTunnelIPv6BodyLen
	}
	return ObjectHeaderLength + lspTunnelIPv4BodyLen
}

func (t *lspTunnel) serialize(classNum ClassNum) ([]byte, error) {
	encode := codec.IPv4Bytes
	if t.cType() == CTypeLSPTunnelIPv6 {
		encode = codec.IPv6Bytes
	}
	addr, err := encode(fmt.Sprintf("%s sender address", classNum), t.SenderAddress)
	if err != nil {
		return nil, err
	}
	return codec.AppendByteSlices(
		NewObjectHeader(classNum, t.cType(), t.length()).Serialize(),
		addr,
		make([]byte, lspTunnelReservedBytes),
		codec.Uint16ToByteSlice(t.LSPID),
	), nil
}

func (t *lspTunnel) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("senderAddress", t.SenderAddress.String())
	enc.AddUint16("lspID", t.LSPID)
	return nil
}

// SENDER_TEMPLATE Object, LSP_TUNNEL_IPv4 / LSP_TUNNEL_IPv6 (RFC3209 4.6.2)
type SenderTemplateLSPTunnel struct {
	lspTunnel
}

func (o *SenderTemplateLSPTunnel) DecodeFromBytes(data []byte) error {
	var t lspTunnel
	if err := t.decode(data, ClassNumSenderTemplate); err != nil {
		return err
	}
	o.lspTunnel = t
	return nil
}

func (o *SenderTemplateLSPTunnel) Serialize() ([]byte, error) {
	return o.serialize(ClassNumSenderTemplate)
}

func (o *SenderTemplateLSPTunnel) ClassNum() ClassNum {
	return ClassNumSenderTemplate
}

func (o *SenderTemplateLSPTunnel) CType() CType {
	return o.cType()
}

func (o *SenderTemplateLSPTunnel) Len() uint16 {
	return o.length()
}

func NewSenderTemplateLSPTunnel(sender netip.Addr, lspID uint16) *SenderTemplateLSPTunnel {
	return &SenderTemplateLSPTunnel{lspTunnel{SenderAddress: sender, LSPID: lspID}}
}

// FILTER_SPEC Object, LSP_TUNNEL_IPv4 / LSP_TUNNEL_IPv6 (RFC3209 4.6.3)
type FilterSpecLSPTunnel struct {
	lspTunnel
}

func (o *FilterSpecLSPTunnel) DecodeFromBytes(data []byte) error {
	var t lspTunnel
	if err := t.decode(data, ClassNumFilterSpec); err != nil {
		return err
	}
	o.lspTunnel = t
	return nil
}

func (o *FilterSpecLSPTunnel) Serialize() ([]byte, error) {
	return o.serialize(ClassNumFilterSpec)
}

func (o *FilterSpecLSPTunnel) ClassNum() ClassNum {
	return ClassNumFilterSpec
}

func (o *FilterSpecLSPTunnel) CType() CType {
	return o.cType()
}

func (o *FilterSpecLSPTunnel) Len() uint16 {
	return o.length()
}

func NewFilterSpecLSPTunnel(sender netip.Addr, lspID uint16) *FilterSpecLSPTunnel {
	return &FilterSpecLSPTunnel{lspTunnel{SenderAddress: sender, LSPID: lspID}}
}

// LABEL Object, generic label (RFC3209 4.1)
type Label struct {
	Label uint32
}

func (o *Label) DecodeFromBytes(data []byte) error {
	_, body, err := decodeObjectHeader(data, ClassNumLabel)
	if err != nil {
		return err
	}
	if len(body) != labelBodyLen {
		return codec.Malformed(int(ObjectHeaderLength), "LABEL body is %d bytes, want %d", len(body), labelBodyLen)
	}
	o.Label = binary.BigEndian.Uint32(body)
	return nil
}

func (o *Label) Serialize() ([]byte, error) {
	return codec.AppendByteSlices(
		NewObjectHeader(o.ClassNum(), o.CType(), o.Len()).Serialize(),
		codec.Uint32ToByteSlice(o.Label),
	), nil
}

func (o *Label) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint32("label", o.Label)
	return nil
}

func (o *Label) ClassNum() ClassNum {
	return ClassNumLabel
}

func (o *Label) CType() CType {
	return CTypeLabelGeneric
}

func (o *Label) Len() uint16 {
	return ObjectHeaderLength + labelBodyLen
}

// UndefinedObject keeps the raw body of an object this package does not model.
type UndefinedObject struct {
	Header ObjectHeader
	Body   []byte
}

func (o *UndefinedObject) DecodeFromBytes(data []byte) error {
	var h ObjectHeader
	if err := h.DecodeFromBytes(data); err != nil {
		return err
	}
	*o = UndefinedObject{
		Header: h,
		Body:   codec.CloneBytes(data[ObjectHeaderLength:h.Length]),
	}
	return nil
}

func (o *UndefinedObject) Serialize() ([]byte, error) {
	if err := codec.CheckLength("object", int(ObjectHeaderLength)+len(o.Body)); err != nil {
		return nil, err
	}
	h := o.Header
	h.Length = o.Len()
	return codec.AppendByteSlices(h.Serialize(), o.Body), nil
}

func (o *UndefinedObject) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint8("classNum", uint8(o.Header.ClassNum))
	enc.AddUint8("cType", uint8(o.Header.CType))
	enc.AddBinary("body", o.Body)
	return nil
}

func (o *UndefinedObject) ClassNum() ClassNum {
	return o.Header.ClassNum
}

func (o *UndefinedObject) CType() CType {
	return o.Header.CType
}

func (o *UndefinedObject) Len() uint16 {
	return codec.Len16(int(ObjectHeaderLength) + len(o.Body))
}
