// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

// Package layers provides gopacket decoding layers for PCEP and RSVP-TE
// so that captures can be inspected with the object codecs of pkg/packet.
package layers

import (
	"github.com/google/gopacket"
	gplayers "github.com/google/gopacket/layers"

	"github.com/nttcom/tesig/pkg/packet/codec"
	"github.com/nttcom/tesig/pkg/packet/pcep"
)

// TCPPortPCEP is the well-known PCEP port (RFC5440 5).
const TCPPortPCEP gplayers.TCPPort = 4189

// LayerTypePCEP identifies a single PCEP message.
var LayerTypePCEP = gopacket.RegisterLayerType(1740, gopacket.LayerTypeMetadata{
	Name:    "PCEP",
	Decoder: gopacket.DecodeFunc(decodePCEP),
})

// PCEP is one PCEP message. A TCP segment carrying several messages yields
// one PCEP layer per message.
type PCEP struct {
	Header  pcep.CommonHeader
	Objects []pcep.Object
	// Notifies holds the <notify-list> of a PCNtf message.
	Notifies []*pcep.Notify

	// Options are passed to the object decoders.
	Options []codec.Opt

	contents []byte
	payload  []byte
}

var (
	_ gopacket.Layer             = (*PCEP)(nil)
	_ gopacket.DecodingLayer     = (*PCEP)(nil)
	_ gopacket.SerializableLayer = (*PCEP)(nil)
)

func (*PCEP) LayerType() gopacket.LayerType {
	return LayerTypePCEP
}

func (l *PCEP) LayerContents() []byte {
	return l.contents
}

// LayerPayload returns the bytes following this message in the segment.
func (l *PCEP) LayerPayload() []byte {
	return l.payload
}

func (l *PCEP) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	var h pcep.CommonHeader
	if err := h.DecodeFromBytes(data); err != nil {
		df.SetTruncated()
		return err
	}
	if int(h.MessageLength) > len(data) {
		df.SetTruncated()
		return codec.Malformed(2, "%s message declares %d bytes, %d available", h.MessageType, h.MessageLength, len(data))
	}
	body := data[pcep.CommonHeaderLength:h.MessageLength]
	objects, err := pcep.DecodeObjects(body, l.Options...)
	if err != nil {
		return codec.Shift(err, int(pcep.CommonHeaderLength))
	}
	var notifies []*pcep.Notify
	if h.MessageType == pcep.MessageTypeNotification {
		if notifies, err = pcep.DecodeNotifyList(body, l.Options...); err != nil {
			return codec.Shift(err, int(pcep.CommonHeaderLength))
		}
	}

	l.Header = h
	l.Objects = objects
	l.Notifies = notifies
	l.contents = data[:h.MessageLength]
	l.payload = data[h.MessageLength:]
	return nil
}

func (*PCEP) CanDecode() gopacket.LayerClass {
	return LayerTypePCEP
}

func (l *PCEP) NextLayerType() gopacket.LayerType {
	if len(l.payload) > 0 {
		return LayerTypePCEP
	}
	return gopacket.LayerTypeZero
}

// SerializeTo writes the header and Objects; the message length is always
// recomputed, and a message over 65535 bytes is an error.
func (l *PCEP) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	body, err := codec.SerializeList(l.Objects)
	if err != nil {
		return err
	}
	h := l.Header
	if h.Version == 0 {
		h.Version = pcep.Version
	}
	length := int(pcep.CommonHeaderLength) + len(body)
	if err := codec.CheckLength(h.MessageType.String()+" message", length); err != nil {
		return err
	}
	h.MessageLength = uint16(length)
	bytes, err := b.PrependBytes(int(h.MessageLength))
	if err != nil {
		return err
	}
	copy(bytes, h.Serialize())
	copy(bytes[pcep.CommonHeaderLength:], body)
	return nil
}

func decodePCEP(data []byte, p gopacket.PacketBuilder) error {
	l := &PCEP{}
	if err := l.DecodeFromBytes(data, p); err != nil {
		return err
	}
	p.AddLayer(l)
	p.SetApplicationLayer(l)
	if len(l.payload) == 0 {
		return nil
	}
	return p.NextDecoder(gopacket.DecodeFunc(decodePCEP))
}

// Payload implements gopacket.ApplicationLayer.
func (l *PCEP) Payload() []byte {
	return l.payload
}

func init() {
	gplayers.RegisterTCPPortLayerType(TCPPortPCEP, LayerTypePCEP)
}
