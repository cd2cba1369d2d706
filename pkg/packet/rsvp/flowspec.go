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

// ServiceNumber is the Integrated Services service of a FLOWSPEC (RFC2210 3.1).
type ServiceNumber uint8

const (
	ServiceGuaranteed     ServiceNumber = 2 // RFC2212
	ServiceControlledLoad ServiceNumber = 5 // RFC2211
)

func (s ServiceNumber) String() string {
	switch s {
	case ServiceGuaranteed:
		return "Guaranteed"
	case ServiceControlledLoad:
		return "Controlled-Load"
	}
	return fmt.Sprintf("Unknown service (%d)", uint8(s))
}

// Parameter IDs and their data lengths in 32-bit words (RFC2210 3.2)
const (
	paramTokenBucket     uint8 = 127
	paramGuaranteedRSpec uint8 = 130

	tokenBucketWords = 5
	rspecWords       = 2
)

// FLOWSPEC Object, IntServ C-Type 2 (RFC2210 3.1)
//
// The controlled-load form carries the token bucket TSpec only; the
// guaranteed form appends the RSpec (rate and slack term).
type FlowSpec struct {
	Service         ServiceNumber
	TokenBucketRate float32 // r, bytes/s
	TokenBucketSize float32 // b, bytes
	PeakDataRate    float32 // p, bytes/s
	MinPolicedUnit  uint32  // m, bytes
	MaxPacketSize   uint32  // M, bytes
	Rate            float32 // R, bytes/s, guaranteed service only
	SlackTerm       uint32  // S, microseconds, guaranteed service only
}

// serviceWords is the length of the per-service data in 32-bit words.
func (o *FlowSpec) serviceWords() (int, error) {
	switch o.Service {
	case ServiceControlledLoad:
		return 1 + tokenBucketWords, nil
	case ServiceGuaranteed:
		return 1 + tokenBucketWords + 1 + rspecWords, nil
	}
	return 0, codec.Violation(0, "FLOWSPEC service %d is not supported", uint8(o.Service))
}

func (o *FlowSpec) DecodeFromBytes(data []byte) error {
	_, body, err := decodeObjectHeader(data, ClassNumFlowSpec)
	if err != nil {
		return err
	}
	const base = int(ObjectHeaderLength)
	if len(body) < 8 {
		return codec.Malformed(base, "FLOWSPEC body needs at least 8 bytes, got %d", len(body))
	}
	if version := body[0] >> 4; version != 0 {
		return codec.Violation(base, "FLOWSPEC message format version %d", version)
	}
	fs := FlowSpec{Service: ServiceNumber(body[4])}
	words, err := fs.serviceWords()
	if err != nil {
		return codec.Shift(err, base+4)
	}
	overall := int(binary.BigEndian.Uint16(body[2:4]))
	if 4*(overall+1) != len(body) {
		return codec.Malformed(base+2, "FLOWSPEC overall length %d words does not match body of %d bytes", overall, len(body))
	}
	if got := int(binary.BigEndian.Uint16(body[6:8])); got != words || overall != words+1 {
		return codec.Malformed(base+6, "%s FLOWSPEC service data length %d words, want %d", fs.Service, got, words)
	}

	p := body[8:]
	if p[0] != paramTokenBucket || int(binary.BigEndian.Uint16(p[2:4])) != tokenBucketWords {
		return codec.Malformed(base+8, "FLOWSPEC expects token bucket parameter %d of %d words", paramTokenBucket, tokenBucketWords)
	}
	fs.TokenBucketRate = codec.Float32FromBytes(p[4:8])
	fs.TokenBucketSize = codec.Float32FromBytes(p[8:12])
	fs.PeakDataRate = codec.Float32FromBytes(p[12:16])
	fs.MinPolicedUnit = binary.BigEndian.Uint32(p[16:20])
	fs.MaxPacketSize = binary.BigEndian.Uint32(p[20:24])

	if fs.Service == ServiceGuaranteed {
		r := p[24:]
		if r[0] != paramGuaranteedRSpec || int(binary.BigEndian.Uint16(r[2:4])) != rspecWords {
			return codec.Malformed(base+32, "FLOWSPEC expects RSpec parameter %d of %d words", paramGuaranteedRSpec, rspecWords)
		}
		fs.Rate = codec.Float32FromBytes(r[4:8])
		fs.SlackTerm = binary.BigEndian.Uint32(r[8:12])
	}
	*o = fs
	return nil
}

func (o *FlowSpec) Serialize() ([]byte, error) {
	words, err := o.serviceWords()
	if err != nil {
		return nil, err
	}
	bufs := [][]byte{
		NewObjectHeader(o.ClassNum(), o.CType(), o.Len()).Serialize(),
		{0x00, 0x00}, codec.Uint16ToByteSlice(uint16(words + 1)),
		{uint8(o.Service), 0x00}, codec.Uint16ToByteSlice(uint16(words)),
		{paramTokenBucket, 0x00}, codec.Uint16ToByteSlice(uint16(tokenBucketWords)),
		codec.Float32ToByteSlice(o.TokenBucketRate),
		codec.Float32ToByteSlice(o.TokenBucketSize),
		codec.Float32ToByteSlice(o.PeakDataRate),
		codec.Uint32ToByteSlice(o.MinPolicedUnit),
		codec.Uint32ToByteSlice(o.MaxPacketSize),
	}
	if o.Service == ServiceGuaranteed {
		bufs = append(bufs,
			[]byte{paramGuaranteedRSpec, 0x00}, codec.Uint16ToByteSlice(uint16(rspecWords)),
			codec.Float32ToByteSlice(o.Rate),
			codec.Uint32ToByteSlice(o.SlackTerm),
		)
	}
	return codec.AppendByteSlices(bufs...), nil
}

func (o *FlowSpec) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("service", o.Service.String())
	enc.AddFloat32("r", o.TokenBucketRate)
	enc.AddFloat32("b", o.TokenBucketSize)
	enc.AddFloat32("p", o.PeakDataRate)
	enc.AddUint32("m", o.MinPolicedUnit)
	enc.AddUint32("M", o.MaxPacketSize)
	if o.Service == ServiceGuaranteed {
		enc.AddFloat32("R", o.Rate)
		enc.AddUint32("S", o.SlackTerm)
	}
	return nil
}

func (o *FlowSpec) ClassNum() ClassNum {
	return ClassNumFlowSpec
}

func (o *FlowSpec) CType() CType {
	return CTypeIntServ
}

// Len is 36 bytes for controlled-load and 48 for guaranteed service.
func (o *FlowSpec) Len() uint16 {
	words, err := o.serviceWords()
	if err != nil {
		return ObjectHeaderLength
	}
	return ObjectHeaderLength + uint16(4*(words+2))
}
