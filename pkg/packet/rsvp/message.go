// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package rsvp

import (
	"encoding/binary"
	"fmt"

	"go.uber.org/zap/zapcore"

	"github.com/nttcom/tesig/pkg/packet/codec"
)

const CommonHeaderLength uint16 = 8

const Version uint8 = 1

type MessageType uint8

// RSVP Msg Type (RFC2205 3.1.1, RFC3209 5.1)
const (
	MessageTypePath     MessageType = 1
	MessageTypeResv     MessageType = 2
	MessageTypePathErr  MessageType = 3
	MessageTypeResvErr  MessageType = 4
	MessageTypePathTear MessageType = 5
	MessageTypeResvTear MessageType = 6
	MessageTypeResvConf MessageType = 7
	MessageTypeHello    MessageType = 20
)

var messageTypeDescriptions = map[MessageType]string{
	MessageTypePath:     "Path",
	MessageTypeResv:     "Resv",
	MessageTypePathErr:  "PathErr",
	MessageTypeResvErr:  "ResvErr",
	MessageTypePathTear: "PathTear",
	MessageTypeResvTear: "ResvTear",
	MessageTypeResvConf: "ResvConf",
	MessageTypeHello:    "Hello",
}

func (t MessageType) String() string {
	if desc, ok := messageTypeDescriptions[t]; ok {
		return desc
	}
	return fmt.Sprintf("Unknown Msg Type (%d)", uint8(t))
}

// Common header of RSVP Message (RFC2205 3.1.1)
type CommonHeader struct {
	Version       uint8 // Current version is 1
	Flags         uint8
	MessageType   MessageType
	Checksum      uint16
	SendTTL       uint8
	MessageLength uint16 // including the common header
}

func (h *CommonHeader) DecodeFromBytes(header []byte) error {
	if len(header) < int(CommonHeaderLength) {
		return codec.Malformed(0, "RSVP common header needs %d bytes, got %d", CommonHeaderLength, len(header))
	}
	h.Version = header[0] >> 4
	h.Flags = header[0] & 0x0f
	h.MessageType = MessageType(header[1])
	h.Checksum = binary.BigEndian.Uint16(header[2:4])
	h.SendTTL = header[4]
	h.MessageLength = binary.BigEndian.Uint16(header[6:8])
	if h.Version != Version {
		return codec.Violation(0, "unsupported RSVP version %d", h.Version)
	}
	if h.MessageLength < CommonHeaderLength {
		return codec.Malformed(6, "message length %d shorter than the common header", h.MessageLength)
	}
	return nil
}

func (h *CommonHeader) Serialize() []byte {
	return codec.AppendByteSlices(
		[]byte{h.Version<<4 | h.Flags&0x0f, uint8(h.MessageType)},
		codec.Uint16ToByteSlice(h.Checksum),
		[]byte{h.SendTTL, 0x00},
		codec.Uint16ToByteSlice(h.MessageLength),
	)
}

func (h *CommonHeader) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint8("version", h.Version)
	enc.AddString("messageType", h.MessageType.String())
	enc.AddUint8("sendTTL", h.SendTTL)
	enc.AddUint16("messageLength", h.MessageLength)
	return nil
}

func NewCommonHeader(messageType MessageType, sendTTL uint8, messageLength uint16) *CommonHeader {
	return &CommonHeader{
		Version:       Version,
		MessageType:   messageType,
		SendTTL:       sendTTL,
		MessageLength: messageLength,
	}
}

// Checksum is the one's complement checksum of an RSVP message (RFC2205 3.1.1),
// computed with the checksum field taken as zero.
func Checksum(msg []byte) uint16 {
	var sum uint32
	for i := 0; i+1 < len(msg); i += 2 {
		if i == 2 {
			continue
		}
		sum += uint32(binary.BigEndian.Uint16(msg[i : i+2]))
	}
	if len(msg)%2 == 1 {
		sum += uint32(msg[len(msg)-1]) << 8
	}
	for sum>>16 != 0 {
		sum = sum&0xffff + sum>>16
	}
	return ^uint16(sum)
}
