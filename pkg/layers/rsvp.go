// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package layers

import (
	"github.com/google/gopacket"
	gplayers "github.com/google/gopacket/layers"

	"github.com/nttcom/tesig/pkg/packet/codec"
	"github.com/nttcom/tesig/pkg/packet/rsvp"
)

// IPProtocolRSVP is the IP protocol number of RSVP (RFC2205 3.1).
const IPProtocolRSVP gplayers.IPProtocol = 46

// LayerTypeRSVP identifies an RSVP message carried directly over IP.
var LayerTypeRSVP = gopacket.RegisterLayerType(1741, gopacket.LayerTypeMetadata{
	Name:    "RSVP",
	Decoder: gopacket.DecodeFunc(decodeRSVP),
})

type RSVP struct {
	Header  rsvp.CommonHeader
	Objects []rsvp.Object
	// FlowDescriptor is the SE flow descriptor of a Resv message, when present.
	FlowDescriptor *rsvp.SEFlowDescriptor

	// Options are passed to the object decoders.
	Options []codec.Opt

	contents []byte
}

var (
	_ gopacket.Layer             = (*RSVP)(nil)
	_ gopacket.DecodingLayer     = (*RSVP)(nil)
	_ gopacket.SerializableLayer = (*RSVP)(nil)
)

func (*RSVP) LayerType() gopacket.LayerType {
	return LayerTypeRSVP
}

func (l *RSVP) LayerContents() []byte {
	return l.contents
}

func (l *RSVP) LayerPayload() []byte {
	return nil
}

func (l *RSVP) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	var h rsvp.CommonHeader
	if err := h.DecodeFromBytes(data); err != nil {
		df.SetTruncated()
		return err
	}
	if int(h.MessageLength) > len(data) {
		df.SetTruncated()
		return codec.Malformed(6, "%s message declares %d bytes, %d available", h.MessageType, h.MessageLength, len(data))
	}
	body := data[rsvp.CommonHeaderLength:h.MessageLength]
	objects, err := rsvp.DecodeObjects(body, l.Options...)
	if err != nil {
		return codec.Shift(err, int(rsvp.CommonHeaderLength))
	}
	var fd *rsvp.SEFlowDescriptor
	if h.MessageType == rsvp.MessageTypeResv {
		if fd, err = decodeFlowDescriptor(body, l.Options); err != nil {
			return codec.Shift(err, int(rsvp.CommonHeaderLength))
		}
	}

	l.Header = h
	l.Objects = objects
	l.FlowDescriptor = fd
	l.contents = data[:h.MessageLength]
	return nil
}

// decodeFlowDescriptor decodes the flow descriptor list of a Resv message,
// which starts at its first FLOWSPEC (RFC2205 3.1.4). Offsets follow the
// object headers on the wire, since a decoded route drops the sub-objects it
// skipped.
func decodeFlowDescriptor(body []byte, opts []codec.Opt) (*rsvp.SEFlowDescriptor, error) {
	c := codec.NewCursor(body)
	for !c.EOF() {
		var h rsvp.ObjectHeader
		if err := h.DecodeFromBytes(c.Rest()); err != nil {
			return nil, codec.Shift(err, c.Offset())
		}
		if h.ClassNum == rsvp.ClassNumFlowSpec {
			fd, _, err := rsvp.DecodeSEFlowDescriptor(body, c.Offset(), opts...)
			return fd, err
		}
		next, err := c.Advance(int(h.Length))
		if err != nil {
			return nil, err
		}
		c = next
	}
	return nil, nil
}

// ChecksumValid reports whether the transmitted checksum matches the message.
// A zero checksum means none was transmitted (RFC2205 3.1.1).
func (l *RSVP) ChecksumValid() bool {
	return l.Header.Checksum == 0 || rsvp.Checksum(l.contents) == l.Header.Checksum
}

func (*RSVP) CanDecode() gopacket.LayerClass {
	return LayerTypeRSVP
}

func (*RSVP) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypeZero
}

// SerializeTo writes the header and Objects, recomputing the length and,
// with opts.ComputeChecksums, the checksum.
func (l *RSVP) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	body, err := codec.SerializeList(l.Objects)
	if err != nil {
		return err
	}
	h := l.Header
	if h.Version == 0 {
		h.Version = rsvp.Version
	}
	length := int(rsvp.CommonHeaderLength) + len(body)
	if err := codec.CheckLength(h.MessageType.String()+" message", length); err != nil {
		return err
	}
	h.MessageLength = uint16(length)
	bytes, err := b.PrependBytes(int(h.MessageLength))
	if err != nil {
		return err
	}
	if opts.ComputeChecksums {
		h.Checksum = 0
	}
	copy(bytes, h.Serialize())
	copy(bytes[rsvp.CommonHeaderLength:], body)
	if opts.ComputeChecksums {
		h.Checksum = rsvp.Checksum(bytes[:h.MessageLength])
		copy(bytes, h.Serialize())
	}
	return nil
}

func decodeRSVP(data []byte, p gopacket.PacketBuilder) error {
	l := &RSVP{}
	if err := l.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(l)
	return nil
}

func init() {
	gplayers.IPProtocolMetadata[IPProtocolRSVP] = gplayers.EnumMetadata{
		DecodeWith: gopacket.DecodeFunc(decodeRSVP),
		Name:       LayerTypeRSVP.String(),
		LayerType:  LayerTypeRSVP,
	}
}
