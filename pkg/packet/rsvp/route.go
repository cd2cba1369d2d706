// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package rsvp

import (
	"go.uber.org/zap/zapcore"

	"github.com/nttcom/tesig/pkg/packet/codec"
)

// RECORD_ROUTE Object (RFC3209 4.4.1)
type RecordRoute struct {
	Subobjects []RROSubobject
}

func (o *RecordRoute) DecodeFromBytes(data []byte) error {
	return o.DecodeWithOptions(data, codec.ResolveOptions())
}

// DecodeWithOptions skips sub-objects of an unknown type and logs them at debug level.
func (o *RecordRoute) DecodeWithOptions(data []byte, opts *codec.Options) error {
	_, body, err := decodeObjectHeader(data, ClassNumRecordRoute)
	if err != nil {
		return err
	}
	subobjects, err := rroSubobjectList.DecodeWith(body, opts)
	if err != nil {
		return codec.Shift(err, int(ObjectHeaderLength))
	}
	o.Subobjects = subobjects
	return nil
}

func (o *RecordRoute) Serialize() ([]byte, error) {
	body, err := codec.SerializeList(o.Subobjects)
	if err != nil {
		return nil, codec.Within(err, ClassNumRecordRoute.String())
	}
	return serializeRoute(o.ClassNum(), o.CType(), body)
}

func (o *RecordRoute) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	return enc.AddArray("subobjects", zapcore.ArrayMarshalerFunc(func(ae zapcore.ArrayEncoder) error {
		for _, s := range o.Subobjects {
			if err := ae.AppendObject(s); err != nil {
				return err
			}
		}
		return nil
	}))
}

func (o *RecordRoute) ClassNum() ClassNum {
	return ClassNumRecordRoute
}

func (o *RecordRoute) CType() CType {
	return CTypeRecordRoute
}

func (o *RecordRoute) Len() uint16 {
	return routeLen(codec.ListLen(o.Subobjects))
}

// EXPLICIT_ROUTE Object (RFC3209 4.3)
type ExplicitRoute struct {
	Subobjects []EROSubobject
}

func (o *ExplicitRoute) DecodeFromBytes(data []byte) error {
	return o.DecodeWithOptions(data, codec.ResolveOptions())
}

func (o *ExplicitRoute) DecodeWithOptions(data []byte, opts *codec.Options) error {
	_, body, err := decodeObjectHeader(data, ClassNumExplicitRoute)
	if err != nil {
		return err
	}
	subobjects, err := eroSubobjectList.DecodeWith(body, opts)
	if err != nil {
		return codec.Shift(err, int(ObjectHeaderLength))
	}
	o.Subobjects = subobjects
	return nil
}

func (o *ExplicitRoute) Serialize() ([]byte, error) {
	body, err := codec.SerializeList(o.Subobjects)
	if err != nil {
		return nil, codec.Within(err, ClassNumExplicitRoute.String())
	}
	return serializeRoute(o.ClassNum(), o.CType(), body)
}

func (o *ExplicitRoute) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	return enc.AddArray("subobjects", zapcore.ArrayMarshalerFunc(func(ae zapcore.ArrayEncoder) error {
		for _, s := range o.Subobjects {
			if err := ae.AppendObject(s); err != nil {
				return err
			}
		}
		return nil
	}))
}

func (o *ExplicitRoute) ClassNum() ClassNum {
	return ClassNumExplicitRoute
}

func (o *ExplicitRoute) CType() CType {
	return CTypeExplicitRoute
}

func (o *ExplicitRoute) Len() uint16 {
	return routeLen(codec.ListLen(o.Subobjects))
}

func routeLen(subobjectsLen int) uint16 {
	return codec.Len16(int(ObjectHeaderLength) + subobjectsLen)
}

// serializeRoute frames a sub-object list. Route sub-objects are multiples of
// 4 bytes (RFC3209 4.3.3), so the list needs no padding.
func serializeRoute(classNum ClassNum, cType CType, body []byte) ([]byte, error) {
	if len(body)%4 != 0 {
		return nil, codec.Malformed(int(ObjectHeaderLength), "%s sub-objects span %d bytes, not a multiple of 4", classNum, len(body))
	}
	length := int(ObjectHeaderLength) + len(body)
	if err := codec.CheckLength(classNum.String()+" object", length); err != nil {
		return nil, err
	}
	return codec.AppendByteSlices(NewObjectHeader(classNum, cType, uint16(length)).Serialize(), body), nil
}
