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

const CommonHeaderLength uint16 = 4

const Version uint8 = 1

type MessageType uint8

// PCEP Message-Type (1byte)
const (
	MessageTypeOpen         MessageType = 0x01 // RFC5440
	MessageTypeKeepalive    MessageType = 0x02 // RFC5440
	MessageTypePCReq        MessageType = 0x03 // RFC5440
	MessageTypePCRep        MessageType = 0x04 // RFC5440
	MessageTypeNotification MessageType = 0x05 // RFC5440
	MessageTypeError        MessageType = 0x06 // RFC5440
	MessageTypeClose        MessageType = 0x07 // RFC5440
	MessageTypePCMonReq     MessageType = 0x08 // RFC5886
	MessageTypePCMonRep     MessageType = 0x09 // RFC5886
	MessageTypeReport       MessageType = 0x0a // RFC8231
	MessageTypeUpdate       MessageType = 0x0b // RFC8281
	MessageTypeLSPInitReq   MessageType = 0x0c // RFC8281
	MessageTypeStartTLS     MessageType = 0x0d // RFC8253
)

var messageTypeDescriptions = map[MessageType]string{
	MessageTypeOpen:         "Open",
	MessageTypeKeepalive:    "Keepalive",
	MessageTypePCReq:        "PCReq",
	MessageTypePCRep:        "PCRep",
	MessageTypeNotification: "PCNtf",
	MessageTypeError:        "PCErr",
	MessageTypeClose:        "Close",
	MessageTypePCMonReq:     "PCMonReq",
	MessageTypePCMonRep:     "PCMonRep",
	MessageTypeReport:       "PCRpt",
	MessageTypeUpdate:       "PCUpd",
	MessageTypeLSPInitReq:   "PCInitiate",
	MessageTypeStartTLS:     "StartTLS",
}

func (t MessageType) String() string {
	if desc, ok := messageTypeDescriptions[t]; ok {
		return desc
	}
	return fmt.Sprintf("Unknown Message-Type (0x%02x)", uint8(t))
}

// Common header of PCEP Message
type CommonHeader struct { // RFC5440 6.1
	Version       uint8 // Current version is 1
	Flag          uint8
	MessageType   MessageType
	MessageLength uint16
}

func (h *CommonHeader) DecodeFromBytes(header []byte) error {
	if len(header) < int(CommonHeaderLength) {
		return codec.Malformed(0, "PCEP common header needs %d bytes, got %d", CommonHeaderLength, len(header))
	}
	h.Version = header[0] >> 5
	h.Flag = header[0] & 0x1f
	h.MessageType = MessageType(header[1])
	h.MessageLength = binary.BigEndian.Uint16(header[2:4])
	if h.Version != Version {
		return codec.Violation(0, "unsupported PCEP version %d", h.Version)
	}
	if h.MessageLength < CommonHeaderLength {
		return codec.Malformed(2, "message length %d shorter than the common header", h.MessageLength)
	}
	return nil
}

func (h *CommonHeader) Serialize() []byte {
	return codec.AppendByteSlices(
		[]byte{h.Version<<5 | h.Flag, uint8(h.MessageType)},
		codec.Uint16ToByteSlice(h.MessageLength),
	)
}

func (h *CommonHeader) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddUint8("version", h.Version)
	enc.AddString("messageType", h.MessageType.String())
	enc.AddUint16("messageLength", h.MessageLength)
	return nil
}

func NewCommonHeader(messageType MessageType, messageLength uint16) *CommonHeader {
	h := &CommonHeader{
		Version:       Version,
		Flag:          uint8(0),
		MessageType:   messageType,
		MessageLength: messageLength,
	}
	return h
}
