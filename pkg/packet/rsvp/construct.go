// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package rsvp

import (
	"go.uber.org/zap/zapcore"

	"github.com/nttcom/tesig/pkg/packet/codec"
)

func decodeAs[T any, PT interface {
	*T
	Object
}](set func(PT)) func([]byte, *codec.Options) (int, error) {
	return func(data []byte, o *codec.Options) (int, error) {
		var h ObjectHeader
		if err := h.DecodeFromBytes(data); err != nil {
			return 0, err
		}
		obj := PT(new(T))
		if err := codec.DecodeUnit(obj, data[:h.Length], o); err != nil {
			return 0, codec.Within(err, h.ClassNum.String())
		}
		set(obj)
		return int(h.Length), nil
	}
}

func present[T any](p *T) int {
	if p == nil {
		return 0
	}
	return 1
}

// SE filter spec of a Resv message (RFC3209 2.2, 4.4)
//
//	<SE filter spec> ::= <FILTER_SPEC> <LABEL> [ <RECORD_ROUTE> ]
type SEFilterSpec struct {
	FilterSpec  *FilterSpecLSPTunnel
	Label       *Label
	RecordRoute *RecordRoute
}

func (f *SEFilterSpec) production() *codec.Production {
	return &codec.Production{
		Name: "SE filter spec",
		Peek: PeekObjectClass,
		Slots: []codec.Slot{
			{
				Name:   "FILTER_SPEC",
				Class:  uint8(ClassNumFilterSpec),
				Min:    1,
				Max:    1,
				Decode: decodeAs(func(fs *FilterSpecLSPTunnel) { f.FilterSpec = fs }),
				Count:  func() int { return present(f.FilterSpec) },
			},
			{
				Name:   "LABEL",
				Class:  uint8(ClassNumLabel),
				Min:    1,
				Max:    1,
				Decode: decodeAs(func(l *Label) { f.Label = l }),
				Count:  func() int { return present(f.Label) },
			},
			{
				Name:   "RECORD_ROUTE",
				Class:  uint8(ClassNumRecordRoute),
				Max:    1,
				Decode: decodeAs(func(rro *RecordRoute) { f.RecordRoute = rro }),
				Count:  func() int { return present(f.RecordRoute) },
			},
		},
	}
}

func (f *SEFilterSpec) DecodeFromBytes(data []byte, opts ...codec.Opt) error {
	var tmp SEFilterSpec
	if err := tmp.production().Decode(data, opts...); err != nil {
		return err
	}
	*f = tmp
	return nil
}

func (f *SEFilterSpec) objects() []Object {
	var objs []Object
	if f.FilterSpec != nil {
		objs = append(objs, f.FilterSpec)
	}
	if f.Label != nil {
		objs = append(objs, f.Label)
	}
	if f.RecordRoute != nil {
		objs = append(objs, f.RecordRoute)
	}
	return objs
}

func (f *SEFilterSpec) Serialize() ([]byte, error) {
	if err := f.production().Validate(); err != nil {
		return nil, err
	}
	b, err := codec.SerializeList(f.objects())
	if err != nil {
		return nil, codec.Within(err, "SE filter spec")
	}
	if err := codec.CheckLength("SE filter spec", len(b)); err != nil {
		return nil, err
	}
	return b, nil
}

func (f *SEFilterSpec) Len() uint16 {
	return codec.Len16(codec.ListLen(f.objects()))
}

func (f *SEFilterSpec) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if f.FilterSpec != nil {
		if err := enc.AddObject("filterSpec", f.FilterSpec); err != nil {
			return err
		}
	}
	if f.Label != nil {
		if err := enc.AddObject("label", f.Label); err != nil {
			return err
		}
	}
	if f.RecordRoute != nil {
		return enc.AddObject("recordRoute", f.RecordRoute)
	}
	return nil
}

// SE flow descriptor of a Resv message (RFC2205 3.1.4, RFC3209 4.1.1)
//
//	<SE flow descriptor> ::= <FLOWSPEC> <SE filter spec list>
//	<SE filter spec list> ::= <SE filter spec>
//	                          | <SE filter spec list> <SE filter spec>
type SEFlowDescriptor struct {
	FlowSpec    *FlowSpec
	FilterSpecs []*SEFilterSpec
}

func (d *SEFlowDescriptor) production() *codec.Production {
	return &codec.Production{
		Name: "SE flow descriptor",
		Peek: PeekObjectClass,
		Slots: []codec.Slot{
			{
				Name:   "FLOWSPEC",
				Class:  uint8(ClassNumFlowSpec),
				Min:    1,
				Max:    1,
				Decode: decodeAs(func(fs *FlowSpec) { d.FlowSpec = fs }),
				Count:  func() int { return present(d.FlowSpec) },
			},
			{
				// Each SE filter spec opens with its FILTER_SPEC object.
				Name:  "SE filter spec",
				Class: uint8(ClassNumFilterSpec),
				Min:   1,
				Decode: func(data []byte, o *codec.Options) (int, error) {
					var f SEFilterSpec
					consumed, err := f.production().MatchWith(data, o)
					if err != nil {
						return 0, err
					}
					d.FilterSpecs = append(d.FilterSpecs, &f)
					return consumed, nil
				},
				Count: func() int { return len(d.FilterSpecs) },
			},
		},
	}
}

// DecodeFromBytes requires data to hold exactly one SE flow descriptor.
func (d *SEFlowDescriptor) DecodeFromBytes(data []byte, opts ...codec.Opt) error {
	var tmp SEFlowDescriptor
	if err := tmp.production().Decode(data, opts...); err != nil {
		return err
	}
	*d = tmp
	return nil
}

func (d *SEFlowDescriptor) Serialize() ([]byte, error) {
	if err := d.production().Validate(); err != nil {
		return nil, err
	}
	flowSpec, err := d.FlowSpec.Serialize()
	if err != nil {
		return nil, codec.Within(err, "SE flow descriptor")
	}
	bufs := [][]byte{flowSpec}
	for _, f := range d.FilterSpecs {
		b, err := f.Serialize()
		if err != nil {
			return nil, codec.Within(err, "SE flow descriptor")
		}
		bufs = append(bufs, b)
	}
	out := codec.AppendByteSlices(bufs...)
	if err := codec.CheckLength("SE flow descriptor", len(out)); err != nil {
		return nil, err
	}
	return out, nil
}

func (d *SEFlowDescriptor) Len() uint16 {
	var l int
	if d.FlowSpec != nil {
		l += int(d.FlowSpec.Len())
	}
	for _, f := range d.FilterSpecs {
		l += int(f.Len())
	}
	return codec.Len16(l)
}

func (d *SEFlowDescriptor) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if d.FlowSpec != nil {
		if err := enc.AddObject("flowSpec", d.FlowSpec); err != nil {
			return err
		}
	}
	return enc.AddArray("filterSpecs", zapcore.ArrayMarshalerFunc(func(ae zapcore.ArrayEncoder) error {
		for _, f := range d.FilterSpecs {
			if err := ae.AppendObject(f); err != nil {
				return err
			}
		}
		return nil
	}))
}

// DecodeSEFlowDescriptor decodes the SE flow descriptor starting at offset and
// returns it with the number of bytes it occupies.
func DecodeSEFlowDescriptor(data []byte, offset int, opts ...codec.Opt) (*SEFlowDescriptor, int, error) {
	c, err := codec.NewCursorAt(data, offset)
	if err != nil {
		return nil, 0, err
	}
	var d SEFlowDescriptor
	consumed, err := d.production().Match(c.Rest(), opts...)
	if err != nil {
		return nil, 0, codec.Shift(err, offset)
	}
	return &d, consumed, nil
}
