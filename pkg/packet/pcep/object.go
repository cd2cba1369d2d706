// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package pcep

import (
	"encoding/binary"
	"fmt"
	"net/netip"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nttcom/tesig/pkg/packet/codec"
)

const CommonObjectHeaderLength uint16 = 4

type ObjectClass uint8

// PCEP Object-Class (1 byte)
const (
	ObjectClassOpen          ObjectClass = 0x01
	ObjectClassRP            ObjectClass = 0x02
	ObjectClassNoPath        ObjectClass = 0x03
	ObjectClassEndPoints     ObjectClass = 0x04
	ObjectClassBandwidth     ObjectClass = 0x05
	ObjectClassMetric        ObjectClass = 0x06
	ObjectClassERO           ObjectClass = 0x07
	ObjectClassRRO           ObjectClass = 0x08
	ObjectClassLSPA          ObjectClass = 0x09
	ObjectClassIRO           ObjectClass = 0x0a
	ObjectClassSVEC          ObjectClass = 0x0b
	ObjectClassNotification  ObjectClass = 0x0c
	ObjectClassPCEPError     ObjectClass = 0x0d
	ObjectClassLoadBalancing ObjectClass = 0x0e
	ObjectClassClose         ObjectClass = 0x0f
)

var objectClassDescriptions = map[ObjectClass]string{
	ObjectClassOpen:          "OPEN",
	ObjectClassRP:            "RP",
	ObjectClassNoPath:        "NO-PATH",
	ObjectClassEndPoints:     "END-POINTS",
	ObjectClassBandwidth:     "BANDWIDTH",
	ObjectClassMetric:        "METRIC",
	ObjectClassERO:           "ERO",
	ObjectClassRRO:           "RRO",
	ObjectClassLSPA:          "LSPA",
	ObjectClassIRO:           "IRO",
	ObjectClassSVEC:          "SVEC",
	ObjectClassNotification:  "NOTIFICATION",
	ObjectClassPCEPError:     "PCEP-ERROR",
	ObjectClassLoadBalancing: "LOAD-BALANCING",
	ObjectClassClose:         "CLOSE",
}

func (c ObjectClass) String() string {
	if desc, ok := objectClassDescriptions[c]; ok {
		return desc
	}
	return fmt.Sprintf("Unknown Object-Class (0x%02x)", uint8(c))
}

type ObjectType uint8

// PCEP Object-Type (4 bits), scoped by Object-Class
const (
	ObjectTypeRP                   ObjectType = 0x01
	ObjectTypeEndPointsIPv4        ObjectType = 0x01
	ObjectTypeEndPointsIPv6        ObjectType = 0x02
	ObjectTypeBandwidthRequested   ObjectType = 0x01
	ObjectTypeBandwidthReoptimized ObjectType = 0x02 // bandwidth of an existing TE LSP being reoptimized
	ObjectTypeMetric               ObjectType = 0x01
	ObjectTypeNotification         ObjectType = 0x01
)

// Second octet of the common object header: OT(4) Res(2) P(1) I(1)
const (
	objectTypeMask     uint8 = 0xf0
	objectTypeShift    uint8 = 4
	reservedFlagsMask  uint8 = 0x0c
	reservedFlagsShift uint8 = 2
	processingRuleFlag uint8 = 0x02
	ignoreFlag         uint8 = 0x01
)

type CommonObjectHeader struct { // RFC5440 7.2
	ObjectClass  ObjectClass
	ObjectType   ObjectType
	ResFlags     uint8 // MUST be set to zero
	PFlag        bool  // 0: optional, 1: MUST
	IFlag        bool  // 0: processed, 1: ignored
	ObjectLength uint16
}

func (h *CommonObjectHeader) DecodeFromBytes(data []byte) error {
	if len(data) < int(CommonObjectHeaderLength) {
		return codec.Malformed(0, "object header needs %d bytes, got %d", CommonObjectHeaderLength, len(data))
	}
	h.ObjectClass = ObjectClass(data[0])
	h.ObjectType = ObjectType((data[1] & objectTypeMask) >> objectTypeShift)
	h.ResFlags = (data[1] & reservedFlagsMask) >> reservedFlagsShift
	h.PFlag = codec.IsBitSet(data[1], processingRuleFlag)
	h.IFlag = codec.IsBitSet(data[1], ignoreFlag)
	h.ObjectLength = binary.BigEndian.Uint16(data[2:4])

	switch {
	case h.ObjectLength < CommonObjectHeaderLength:
		return codec.Malformed(2, "object length %d shorter than its header", h.ObjectLength)
	case h.ObjectLength%4 != 0:
		return codec.Malformed(2, "object length %d is not a multiple of 4", h.ObjectLength)
	case int(h.ObjectLength) > len(data):
		return codec.Malformed(2, "%s object declares %d bytes, %d available", h.ObjectClass, h.ObjectLength, len(data))
	}
	return nil
}

func (h *CommonObjectHeader) Serialize() []byte {
	otFlags := uint8(h.ObjectType)<<objectTypeShift | h.ResFlags<<reservedFlagsShift
	otFlags = codec.SetBit(otFlags, processingRuleFlag, h.PFlag)
	otFlags = codec.SetBit(otFlags, ignoreFlag, h.IFlag)
	return codec.AppendByteSlices(
		[]byte{uint8(h.ObjectClass), otFlags},
		codec.Uint16ToByteSlice(h.ObjectLength),
	)
}

func NewCommonObjectHeader(objectClass ObjectClass, objectType ObjectType, objectLength uint16) *CommonObjectHeader {
	h := &CommonObjectHeader{
		ObjectClass:  objectClass,
		ObjectType:   objectType,
		ResFlags:     uint8(0), // MUST be set to zero
		PFlag:        false,    // 0: optional, 1: MUST
		IFlag:        false,    // 0: processed, 1: ignored
		ObjectLength: objectLength,
	}
	return h
}

// PeekObjectClass reads the Object-Class of the object at the head of data.
func PeekObjectClass(data []byte) (uint8, error) {
	if len(data) < int(CommonObjectHeaderLength) {
		return 0, codec.Malformed(0, "object header needs %d bytes, got %d", CommonObjectHeaderLength, len(data))
	}
	return data[0], nil
}

// HeaderFlags holds the P and I bits of the common object header.
type HeaderFlags struct {
	PFlag bool
	IFlag bool
}

func (f HeaderFlags) header(class ObjectClass, typ ObjectType, length uint16) []byte {
	h := NewCommonObjectHeader(class, typ, length)
	h.PFlag = f.PFlag
	h.IFlag = f.IFlag
	return h.Serialize()
}

type Object interface {
	DecodeFromBytes(data []byte) error
	Serialize() ([]byte, error)
	MarshalLogObject(enc zapcore.ObjectEncoder) error
	Class() ObjectClass
	Type() ObjectType
	Len() uint16 // Total length including the common object header
}

type objectKey struct {
	Class ObjectClass
	Type  ObjectType
}

var objectMap = map[objectKey]func() Object{
	{ObjectClassRP, ObjectTypeRP}:                          func() Object { return &RequestParameters{} },
	{ObjectClassEndPoints, ObjectTypeEndPointsIPv4}:        func() Object { return &EndPoints{} },
	{ObjectClassEndPoints, ObjectTypeEndPointsIPv6}:        func() Object { return &EndPoints{} },
	{ObjectClassBandwidth, ObjectTypeBandwidthRequested}:   func() Object { return &Bandwidth{} },
	{ObjectClassBandwidth, ObjectTypeBandwidthReoptimized}: func() Object { return &Bandwidth{} },
	{ObjectClassMetric, ObjectTypeMetric}:                  func() Object { return &Metric{} },
	{ObjectClassNotification, ObjectTypeNotification}:      func() Object { return &Notification{} },
}

// decodeObjectHeader validates the header of an object of the given class and
// returns it with the object body.
func decodeObjectHeader(data []byte, class ObjectClass) (*CommonObjectHeader, []byte, error) {
	var h CommonObjectHeader
	if err := h.DecodeFromBytes(data); err != nil {
		return nil, nil, err
	}
	if h.ObjectClass != class {
		return nil, nil, codec.Violation(0, "expected %s object, got %s", class, h.ObjectClass)
	}
	if _, ok := objectMap[objectKey{h.ObjectClass, h.ObjectType}]; !ok {
		return nil, nil, codec.Violation(1, "unsupported %s Object-Type %d", h.ObjectClass, h.ObjectType)
	}
	return &h, data[CommonObjectHeaderLength:h.ObjectLength], nil
}

// DecodeObject decodes the object at the head of data. Objects of an
// unregistered class or type are a protocol violation.
func DecodeObject(data []byte, opts ...codec.Opt) (Object, error) {
	return decodeObject(data, codec.ResolveOptions(opts...))
}

func decodeObject(data []byte, o *codec.Options) (Object, error) {
	var h CommonObjectHeader
	if err := h.DecodeFromBytes(data); err != nil {
		return nil, err
	}
	newObject, ok := objectMap[objectKey{h.ObjectClass, h.ObjectType}]
	if !ok {
		return nil, codec.Violation(0, "unsupported object class %d type %d", uint8(h.ObjectClass), uint8(h.ObjectType))
	}
	obj := newObject()
	if err := codec.DecodeUnit(obj, data[:h.ObjectLength], o); err != nil {
		return nil, codec.Within(err, h.ObjectClass.String())
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
		var h CommonObjectHeader
		if err := h.DecodeFromBytes(c.Rest()); err != nil {
			return nil, codec.Shift(err, c.Offset())
		}
		var obj Object
		if newObject, ok := objectMap[objectKey{h.ObjectClass, h.ObjectType}]; ok {
			obj = newObject()
		} else {
			o.Logger.Debug("keeping undefined object",
				zap.Uint8("class", uint8(h.ObjectClass)),
				zap.Uint8("type", uint8(h.ObjectType)),
				zap.Int("offset", c.Offset()))
			obj = &UndefinedObject{}
		}
		if err := codec.DecodeUnit(obj, c.Rest()[:h.ObjectLength], o); err != nil {
			return nil, codec.Within(codec.Shift(err, c.Offset()), h.ObjectClass.String())
		}
		objects = append(objects, obj)
		next, err := c.Advance(int(h.ObjectLength))
		if err != nil {
			return nil, err
		}
		c = next
	}
	return objects, nil
}

// RP Object (RFC5440 7.4)
const (
	RPPriorityMask      uint32 = 0x07
	RPReoptimizationBit uint32 = 0x08
	RPBidirectionalBit  uint32 = 0x10
	RPStrictLooseBit    uint32 = 0x20
	rpFixedLength       uint16 = 8
)

type RequestParameters struct {
	HeaderFlags
	Priority       uint8 // 0 means unspecified, 1 lowest to 7 highest
	Reoptimization bool
	Bidirectional  bool
	StrictLoose    bool // O bit: loose path acceptable
	RequestID      uint32
	TLVs           []TLVInterface
}

func (o *RequestParameters) DecodeFromBytes(data []byte) error {
	return o.DecodeWithOptions(data, codec.ResolveOptions())
}

func (o *RequestParameters) DecodeWithOptions(data []byte, opts *codec.Options) error {
	_, body, err := decodeObjectHeader(data, ObjectClassRP)
	if err != nil {
		return err
	}
	if len(body) < int(rpFixedLength) {
		return codec.Malformed(int(CommonObjectHeaderLength), "RP body needs %d bytes, got %d", rpFixedLength, len(body))
	}
	var rp RequestParameters
	rp.HeaderFlags = headerFlags(data)
	flags := binary.BigEndian.Uint32(body[0:4])
	rp.Priority = uint8(flags & RPPriorityMask)
	rp.Reoptimization = codec.IsBitSet(flags, RPReoptimizationBit)
	rp.Bidirectional = codec.IsBitSet(flags, RPBidirectionalBit)
	rp.StrictLoose = codec.IsBitSet(flags, RPStrictLooseBit)
	rp.RequestID = binary.BigEndian.Uint32(body[4:8])
	if rp.TLVs, err = tlvList.DecodeWith(body[rpFixedLength:], opts); err != nil {
		return codec.Shift(err, int(CommonObjectHeaderLength+rpFixedLength))
	}
	*o = rp
	return nil
}

func (o *RequestParameters) Serialize() ([]byte, error) {
	if o.Priority > uint8(RPPriorityMask) {
		return nil, codec.Malformed(0, "RP priority %d does not fit in 3 bits", o.Priority)
	}
	flags := uint32(o.Priority)
	flags = codec.SetBit(flags, RPReoptimizationBit, o.Reoptimization)
	flags = codec.SetBit(flags, RPBidirectionalBit, o.Bidirectional)
	flags = codec.SetBit(flags, RPStrictLooseBit, o.StrictLoose)
	tlvs, err := codec.SerializeList(o.TLVs)
	if err != nil {
		return nil, fmt.Errorf("RP object: %w", err)
	}
	if err := codec.CheckLength("RP object", int(CommonObjectHeaderLength+rpFixedLength)+len(tlvs)); err != nil {
		return nil, err
	}
	return codec.AppendByteSlices(
		o.header(o.Class(), o.Type(), o.Len()),
		codec.Uint32ToByteSlice(flags),
		codec.Uint32ToByteSlice(o.RequestID),
		tlvs,
	), nil
}

func (o *RequestParameters) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint32("requestID", o.RequestID)
	enc.AddUint8("priority", o.Priority)
	enc.AddBool("reoptimization", o.Reoptimization)
	enc.AddBool("bidirectional", o.Bidirectional)
	enc.AddBool("strictLoose", o.StrictLoose)
	return marshalTLVs(enc, o.TLVs)
}

func (o *RequestParameters) Class() ObjectClass {
	return ObjectClassRP
}

func (o *RequestParameters) Type() ObjectType {
	return ObjectTypeRP
}

func (o *RequestParameters) Len() uint16 {
	return codec.Len16(int(CommonObjectHeaderLength+rpFixedLength) + codec.ListLen(o.TLVs))
}

func NewRequestParameters(requestID uint32, priority uint8) *RequestParameters {
	return &RequestParameters{
		RequestID: requestID,
		Priority:  priority,
	}
}

// END-POINTS Object (RFC5440 7.6)
type EndPoints struct {
	HeaderFlags
	Source      netip.Addr
	Destination netip.Addr
}

func (o *EndPoints) DecodeFromBytes(data []byte) error {
	h, body, err := decodeObjectHeader(data, ObjectClassEndPoints)
	if err != nil {
		return err
	}
	var (
		ep      = EndPoints{HeaderFlags: headerFlags(data)}
		addrLen = 4
		decode  = codec.IPv4FromBytes
	)
	if h.ObjectType == ObjectTypeEndPointsIPv6 {
		addrLen, decode = 16, codec.IPv6FromBytes
	}
	if len(body) != 2*addrLen {
		return codec.Malformed(int(CommonObjectHeaderLength), "END-POINTS type %d body is %d bytes, want %d", h.ObjectType, len(body), 2*addrLen)
	}
	if ep.Source, err = decode(int(CommonObjectHeaderLength), body[:addrLen]); err != nil {
		return err
	}
	if ep.Destination, err = decode(int(CommonObjectHeaderLength)+addrLen, body[addrLen:]); err != nil {
		return err
	}
	*o = ep
	return nil
}

func (o *EndPoints) Serialize() ([]byte, error) {
	encode := codec.IPv4Bytes
	if o.Type() == ObjectTypeEndPointsIPv6 {
		encode = codec.IPv6Bytes
	}
	src, err := encode("END-POINTS source", o.Source)
	if err != nil {
		return nil, err
	}
	dst, err := encode("END-POINTS destination", o.Destination)
	if err != nil {
		return nil, err
	}
	return codec.AppendByteSlices(o.header(o.Class(), o.Type(), o.Len()), src, dst), nil
}

func (o *EndPoints) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("source", o.Source.String())
	enc.AddString("destination", o.Destination.String())
	return nil
}

func (o *EndPoints) Class() ObjectClass {
	return ObjectClassEndPoints
}

// Type follows the address family of Source.
func (o *EndPoints) Type() ObjectType {
	if o.Source.Is6() {
		return ObjectTypeEndPointsIPv6
	}
	return ObjectTypeEndPointsIPv4
}

func (o *EndPoints) Len() uint16 {
	if o.Type() == ObjectTypeEndPointsIPv6 {
		return CommonObjectHeaderLength + 32
	}
	return CommonObjectHeaderLength + 8
}

func NewEndPoints(src, dst netip.Addr) *EndPoints {
	return &EndPoints{
		Source:      src,
		Destination: dst,
	}
}

// BANDWIDTH Object (RFC5440 7.7)
type Bandwidth struct {
	HeaderFlags
	Reoptimized bool    // Object-Type 2
	Bandwidth   float32 // bytes per second
}

func (o *Bandwidth) DecodeFromBytes(data []byte) error {
	h, body, err := decodeObjectHeader(data, ObjectClassBandwidth)
	if err != nil {
		return err
	}
	if len(body) != 4 {
		return codec.Malformed(int(CommonObjectHeaderLength), "BANDWIDTH body is %d bytes, want 4", len(body))
	}
	*o = Bandwidth{
		HeaderFlags: headerFlags(data),
		Reoptimized: h.ObjectType == ObjectTypeBandwidthReoptimized,
		Bandwidth:   codec.Float32FromBytes(body),
	}
	return nil
}

func (o *Bandwidth) Serialize() ([]byte, error) {
	return codec.AppendByteSlices(
		o.header(o.Class(), o.Type(), o.Len()),
		codec.Float32ToByteSlice(o.Bandwidth),
	), nil
}

func (o *Bandwidth) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddFloat32("bandwidth", o.Bandwidth)
	enc.AddBool("reoptimized", o.Reoptimized)
	return nil
}

func (o *Bandwidth) Class() ObjectClass {
	return ObjectClassBandwidth
}

func (o *Bandwidth) Type() ObjectType {
	if o.Reoptimized {
		return ObjectTypeBandwidthReoptimized
	}
	return ObjectTypeBandwidthRequested
}

func (o *Bandwidth) Len() uint16 {
	return CommonObjectHeaderLength + 4
}

// METRIC Object (RFC5440 7.8)
type MetricType uint8

const (
	MetricTypeIGP      MetricType = 0x01
	MetricTypeTE       MetricType = 0x02
	MetricTypeHopCount MetricType = 0x03
)

var metricTypeDescriptions = map[MetricType]string{
	MetricTypeIGP:      "IGP metric",
	MetricTypeTE:       "TE metric",
	MetricTypeHopCount: "Hop Counts",
}

func (t MetricType) String() string {
	if desc, ok := metricTypeDescriptions[t]; ok {
		return desc
	}
	return fmt.Sprintf("Unknown metric type (%d)", uint8(t))
}

const (
	MetricBoundFlag    uint8 = 0x01
	MetricComputedFlag uint8 = 0x02
)

type Metric struct {
	HeaderFlags
	Bound      bool // B: the value is a bound that must not be exceeded
	Computed   bool // C: the PCE must return the computed metric
	MetricType MetricType
	Value      float32
}

func (o *Metric) DecodeFromBytes(data []byte) error {
	_, body, err := decodeObjectHeader(data, ObjectClassMetric)
	if err != nil {
		return err
	}
	if len(body) != 8 {
		return codec.Malformed(int(CommonObjectHeaderLength), "METRIC body is %d bytes, want 8", len(body))
	}
	*o = Metric{
		HeaderFlags: headerFlags(data),
		Bound:       codec.IsBitSet(body[2], MetricBoundFlag),
		Computed:    codec.IsBitSet(body[2], MetricComputedFlag),
		MetricType:  MetricType(body[3]),
		Value:       codec.Float32FromBytes(body[4:8]),
	}
	return nil
}

func (o *Metric) Serialize() ([]byte, error) {
	flags := codec.SetBit(uint8(0), MetricBoundFlag, o.Bound)
	flags = codec.SetBit(flags, MetricComputedFlag, o.Computed)
	return codec.AppendByteSlices(
		o.header(o.Class(), o.Type(), o.Len()),
		[]byte{0x00, 0x00, flags, uint8(o.MetricType)},
		codec.Float32ToByteSlice(o.Value),
	), nil
}

func (o *Metric) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("metricType", o.MetricType.String())
	enc.AddFloat32("value", o.Value)
	enc.AddBool("bound", o.Bound)
	enc.AddBool("computed", o.Computed)
	return nil
}

func (o *Metric) Class() ObjectClass {
	return ObjectClassMetric
}

func (o *Metric) Type() ObjectType {
	return ObjectTypeMetric
}

func (o *Metric) Len() uint16 {
	return CommonObjectHeaderLength + 8
}

// NOTIFICATION Object (RFC5440 7.14)
const (
	NotificationTypePendingRequestCancelled uint8 = 0x01
	NotificationTypeOverloaded              uint8 = 0x02
)

const (
	// Notification-values for NotificationTypePendingRequestCancelled
	NotificationValuePCCCancelledRequest uint8 = 0x01
	NotificationValuePCECancelledRequest uint8 = 0x02

	// Notification-values for NotificationTypeOverloaded
	NotificationValuePCEOverloaded         uint8 = 0x01
	NotificationValuePCENoLongerOverloaded uint8 = 0x02
)

const notificationFixedLength uint16 = 4

type Notification struct {
	HeaderFlags
	Flags             uint8
	NotificationType  uint8
	NotificationValue uint8
	TLVs              []TLVInterface
}

func (o *Notification) DecodeFromBytes(data []byte) error {
	return o.DecodeWithOptions(data, codec.ResolveOptions())
}

func (o *Notification) DecodeWithOptions(data []byte, opts *codec.Options) error {
	_, body, err := decodeObjectHeader(data, ObjectClassNotification)
	if err != nil {
		return err
	}
	if len(body) < int(notificationFixedLength) {
		return codec.Malformed(int(CommonObjectHeaderLength), "NOTIFICATION body needs %d bytes, got %d", notificationFixedLength, len(body))
	}
	n := Notification{
		HeaderFlags:       headerFlags(data),
		Flags:             body[1],
		NotificationType:  body[2],
		NotificationValue: body[3],
	}
	if n.TLVs, err = tlvList.DecodeWith(body[notificationFixedLength:], opts); err != nil {
		return codec.Shift(err, int(CommonObjectHeaderLength+notificationFixedLength))
	}
	*o = n
	return nil
}

func (o *Notification) Serialize() ([]byte, error) {
	tlvs, err := codec.SerializeList(o.TLVs)
	if err != nil {
		return nil, fmt.Errorf("NOTIFICATION object: %w", err)
	}
	if err := codec.CheckLength("NOTIFICATION object", int(CommonObjectHeaderLength+notificationFixedLength)+len(tlvs)); err != nil {
		return nil, err
	}
	return codec.AppendByteSlices(
		o.header(o.Class(), o.Type(), o.Len()),
		[]byte{0x00, o.Flags, o.NotificationType, o.NotificationValue},
		tlvs,
	), nil
}

func (o *Notification) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint8("notificationType", o.NotificationType)
	enc.AddUint8("notificationValue", o.NotificationValue)
	if o.Flags != 0 {
		enc.AddUint8("flags", o.Flags)
	}
	return marshalTLVs(enc, o.TLVs)
}

func (o *Notification) Class() ObjectClass {
	return ObjectClassNotification
}

func (o *Notification) Type() ObjectType {
	return ObjectTypeNotification
}

func (o *Notification) Len() uint16 {
	return codec.Len16(int(CommonObjectHeaderLength+notificationFixedLength) + codec.ListLen(o.TLVs))
}

func NewNotification(notificationType, notificationValue uint8, tlvs ...TLVInterface) *Notification {
	return &Notification{
		NotificationType:  notificationType,
		NotificationValue: notificationValue,
		TLVs:              tlvs,
	}
}

// UndefinedObject keeps the raw body of an object this package does not model.
type UndefinedObject struct {
	Header CommonObjectHeader
	Body   []byte
}

func (o *UndefinedObject) DecodeFromBytes(data []byte) error {
	var h CommonObjectHeader
	if err := h.DecodeFromBytes(data); err != nil {
		return err
	}
	*o = UndefinedObject{
		Header: h,
		Body:   codec.CloneBytes(data[CommonObjectHeaderLength:h.ObjectLength]),
	}
	return nil
}

func (o *UndefinedObject) Serialize() ([]byte, error) {
	if err := codec.CheckLength("object", int(CommonObjectHeaderLength)+len(o.Body)); err != nil {
		return nil, err
	}
	h := o.Header
	h.ObjectLength = o.Len()
	return codec.AppendByteSlices(h.Serialize(), o.Body), nil
}

func (o *UndefinedObject) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint8("class", uint8(o.Header.ObjectClass))
	enc.AddUint8("type", uint8(o.Header.ObjectType))
	enc.AddBinary("body", o.Body)
	return nil
}

func (o *UndefinedObject) Class() ObjectClass {
	return o.Header.ObjectClass
}

func (o *UndefinedObject) Type() ObjectType {
	return o.Header.ObjectType
}

func (o *UndefinedObject) Len() uint16 {
	return codec.Len16(int(CommonObjectHeaderLength) + len(o.Body))
}

func headerFlags(data []byte) HeaderFlags {
	return HeaderFlags{
		PFlag: codec.IsBitSet(data[1], processingRuleFlag),
		IFlag: codec.IsBitSet(data[1], ignoreFlag),
	}
}
