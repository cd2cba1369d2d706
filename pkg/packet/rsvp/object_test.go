// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package rsvp

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/nttcom/tesig/pkg/packet/codec"
)

func TestObjectHeader(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected *ObjectHeader
	}{
		{
			name:     "LABEL",
			input:    []byte{0x00, 0x08, 0x10, 0x01, 0x00, 0x00, 0x00, 0x10},
			expected: &ObjectHeader{Length: 8, ClassNum: ClassNumLabel, CType: CTypeLabelGeneric},
		},
		{name: "shorter than header", input: []byte{0x00, 0x08, 0x10}},
		{name: "length below header size", input: []byte{0x00, 0x02, 0x10, 0x01}},
		{name: "length not a multiple of 4", input: []byte{0x00, 0x06, 0x10, 0x01, 0x00, 0x00}},
		{name: "length exceeds buffer", input: []byte{0x00, 0x0c, 0x10, 0x01, 0x00, 0x00, 0x00, 0x10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h ObjectHeader
			err := h.DecodeFromBytes(tt.input)
			if tt.expected == nil {
				assert.True(t, codec.IsMalformed(err), "unexpected error %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, *tt.expected, h)
			assert.Equal(t, tt.input[:4], h.Serialize())
		})
	}
}

func TestObject_SerializeAndDecode(t *testing.T) {
	tests := []struct {
		name     string
		object   Object
		expected []byte
	}{
		{
			name:     "SENDER_TEMPLATE LSP_TUNNEL_IPv4",
			object:   NewSenderTemplateLSPTunnel(netip.MustParseAddr("10.0.0.1"), 7),
			expected: []byte{0x00, 0x0c, 0x0b, 0x07, 0x0a, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x07},
		},
		{
			name:   "FILTER_SPEC LSP_TUNNEL_IPv6",
			object: NewFilterSpecLSPTunnel(netip.MustParseAddr("2001:db8::1"), 7),
			expected: []byte{
				0x00, 0x18, 0x0a, 0x08,
				0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x01,
				0x00, 0x00, 0x00, 0x07,
			},
		},
		{
			name:     "HELLO REQUEST",
			object:   NewHelloRequest(1, 2),
			expected: []byte{0x00, 0x0c, 0x16, 0x01, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x02},
		},
		{
			name:     "HELLO ACK",
			object:   NewHelloAck(3, 1),
			expected: []byte{0x00, 0x0c, 0x16, 0x02, 0x00, 0x00, 0x00, 0x03, 0x00, 0x00, 0x00, 0x01},
		},
		{
			name:     "LABEL",
			object:   &Label{Label: 16},
			expected: []byte{0x00, 0x08, 0x10, 0x01, 0x00, 0x00, 0x00, 0x10},
		},
		{
			name: "FLOWSPEC controlled-load",
			object: &FlowSpec{
				Service:         ServiceControlledLoad,
				TokenBucketRate: 125000000,
				TokenBucketSize: 1,
				PeakDataRate:    1,
				MinPolicedUnit:  20,
				MaxPacketSize:   1500,
			},
			expected: []byte{
				0x00, 0x24, 0x09, 0x02,
				0x00, 0x00, 0x00, 0x07,
				0x05, 0x00, 0x00, 0x06,
				0x7f, 0x00, 0x00, 0x05,
				0x4c, 0xee, 0x6b, 0x28,
				0x3f, 0x80, 0x00, 0x00,
				0x3f, 0x80, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x14,
				0x00, 0x00, 0x05, 0xdc,
			},
		},
		{
			name: "FLOWSPEC guaranteed",
			object: &FlowSpec{
				Service:         ServiceGuaranteed,
				TokenBucketRate: 1,
				TokenBucketSize: 1,
				PeakDataRate:    1,
				MinPolicedUnit:  20,
				MaxPacketSize:   1500,
				Rate:            1,
				SlackTerm:       10,
			},
			expected: []byte{
				0x00, 0x30, 0x09, 0x02,
				0x00, 0x00, 0x00, 0x0a,
				0x02, 0x00, 0x00, 0x09,
				0x7f, 0x00, 0x00, 0x05,
				0x3f, 0x80, 0x00, 0x00,
				0x3f, 0x80, 0x00, 0x00,
				0x3f, 0x80, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x14,
				0x00, 0x00, 0x05, 0xdc,
				0x82, 0x00, 0x00, 0x02,
				0x3f, 0x80, 0x00, 0x00,
				0x00, 0x00, 0x00, 0x0a,
			},
		},
		{
			name: "RECORD_ROUTE",
			object: &RecordRoute{Subobjects: []RROSubobject{
				NewIPv4RROSubobject(netip.MustParseAddr("10.0.0.1"), 32),
				&LabelRROSubobject{Flags: RROLabelFlagGlobal, CType: CTypeLabelGeneric, Label: 16},
			}},
			expected: []byte{
				0x00, 0x14, 0x15, 0x01,
				0x01, 0x08, 0x0a, 0x00, 0x00, 0x01, 0x20, 0x00,
				0x03, 0x08, 0x01, 0x01, 0x00, 0x00, 0x00, 0x10,
			},
		},
		{
			name: "RECORD_ROUTE IPv6 with local protection",
			object: &RecordRoute{Subobjects: []RROSubobject{
				&IPv6RROSubobject{
					prefix: prefix{Address: netip.MustParseAddr("2001:db8::1"), PrefixLength: 128},
					Flags:  RROFlagLocalProtectionAvailable | RROFlagLocalProtectionInUse,
				},
			}},
			expected: []byte{
				0x00, 0x18, 0x15, 0x01,
				0x02, 0x14,
				0x20, 0x01, 0x0d, 0xb8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0x01,
				0x80, 0x03,
			},
		},
		{
			name: "EXPLICIT_ROUTE loose and strict hops",
			object: &ExplicitRoute{Subobjects: []EROSubobject{
				NewIPv4EROSubobject(netip.MustParseAddr("10.0.0.1"), 32, true),
				NewIPv4EROSubobject(netip.MustParseAddr("10.0.0.2"), 32, false),
			}},
			expected: []byte{
				0x00, 0x14, 0x14, 0x01,
				0x81, 0x08, 0x0a, 0x00, 0x00, 0x01, 0x20, 0x00,
				0x01, 0x08, 0x0a, 0x00, 0x00, 0x02, 0x20, 0x00,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual, err := tt.object.Serialize()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, actual)
			assert.Equal(t, int(tt.object.Len()), len(actual))

			decoded, err := DecodeObject(actual)
			require.NoError(t, err)
			assert.Equal(t, tt.object, decoded)
		})
	}
}

func TestHelloRequest_DecodeFromBytes(t *testing.T) {
	input := []byte{0x00, 0x0c, 0x16, 0x01, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	var h HelloRequest
	require.NoError(t, h.DecodeFromBytes(input))
	assert.Equal(t, uint32(0x01020304), h.SrcInstance)
	assert.Equal(t, uint32(0x05060708), h.DstInstance)

	// HELLO ACK bytes do not decode as a HELLO REQUEST
	input[3] = byte(CTypeHelloAck)
	err := h.DecodeFromBytes(input)
	assert.True(t, codec.IsViolation(err), "unexpected error %v", err)
	assert.Equal(t, uint32(0x01020304), h.SrcInstance)
}

func TestObject_DecodeTruncated(t *testing.T) {
	objects := []Object{
		NewSenderTemplateLSPTunnel(netip.MustParseAddr("10.0.0.1"), 7),
		NewHelloRequest(1, 2),
		&FlowSpec{Service: ServiceGuaranteed},
		&RecordRoute{Subobjects: []RROSubobject{NewIPv4RROSubobject(netip.MustParseAddr("10.0.0.1"), 32)}},
	}
	for _, obj := range objects {
		full, err := obj.Serialize()
		require.NoError(t, err)
		for n := 0; n < len(full); n++ {
			_, err := DecodeObject(full[:n])
			assert.True(t, codec.IsMalformed(err), "%s prefix of %d bytes: unexpected error %v", obj.ClassNum(), n, err)
		}
	}
}

func TestObject_DecodeMalformedBody(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{
			name:  "SENDER_TEMPLATE IPv4 body too long",
			input: []byte{0x00, 0x10, 0x0b, 0x07, 0x0a, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x07, 0, 0, 0, 0},
		},
		{
			name:  "HELLO body too short",
			input: []byte{0x00, 0x08, 0x16, 0x01, 0x00, 0x00, 0x00, 0x01},
		},
		{
			name:  "RRO IPv4 prefix length above 32",
			input: []byte{0x00, 0x0c, 0x15, 0x01, 0x01, 0x08, 0x0a, 0x00, 0x00, 0x01, 0x21, 0x00},
		},
		{
			name:  "RRO sub-object runs past the object",
			input: []byte{0x00, 0x0c, 0x15, 0x01, 0x01, 0x0c, 0x0a, 0x00, 0x00, 0x01, 0x20, 0x00},
		},
		{
			name: "FLOWSPEC overall length mismatch",
			input: []byte{
				0x00, 0x24, 0x09, 0x02,
				0x00, 0x00, 0x00, 0x08,
				0x05, 0x00, 0x00, 0x06,
				0x7f, 0x00, 0x00, 0x05,
				0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeObject(tt.input)
			assert.True(t, codec.IsMalformed(err), "unexpected error %v", err)
		})
	}
}

func TestFlowSpec_UnsupportedService(t *testing.T) {
	input := []byte{
		0x00, 0x24, 0x09, 0x02,
		0x00, 0x00, 0x00, 0x07,
		0x01, 0x00, 0x00, 0x06, // service 1 is not modelled
		0x7f, 0x00, 0x00, 0x05,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
	_, err := DecodeObject(input)
	assert.True(t, codec.IsViolation(err), "unexpected error %v", err)

	_, err = (&FlowSpec{Service: 1}).Serialize()
	assert.True(t, codec.IsViolation(err))
}

func TestObject_SerializeMissingField(t *testing.T) {
	tests := []struct {
		name   string
		object Object
	}{
		{"SENDER_TEMPLATE address unset", &SenderTemplateLSPTunnel{}},
		{"RRO sub-object address unset", &RecordRoute{Subobjects: []RROSubobject{&IPv4RROSubobject{}}}},
		{"ERO prefix length above 128", &ExplicitRoute{Subobjects: []EROSubobject{NewIPv6EROSubobject(netip.MustParseAddr("2001:db8::"), 129, false)}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.object.Serialize()
			assert.True(t, codec.IsMalformed(err), "unexpected error %v", err)
		})
	}
}

func TestRecordRoute_SkipsUnknownSubobject(t *testing.T) {
	input := []byte{
		0x00, 0x18, 0x15, 0x01,
		0x01, 0x08, 0x0a, 0x00, 0x00, 0x01, 0x20, 0x00,
		0x09, 0x04, 0xaa, 0xbb,
		0x01, 0x08, 0x0a, 0x00, 0x00, 0x02, 0x20, 0x00,
	}
	core, logs := observer.New(zapcore.DebugLevel)
	obj, err := DecodeObject(input, codec.WithLogger(zap.New(core)))
	require.NoError(t, err)

	rro, ok := obj.(*RecordRoute)
	require.True(t, ok)
	assert.Equal(t, []RROSubobject{
		NewIPv4RROSubobject(netip.MustParseAddr("10.0.0.1"), 32),
		NewIPv4RROSubobject(netip.MustParseAddr("10.0.0.2"), 32),
	}, rro.Subobjects)

	skipped := logs.FilterMessage("skipping unrecognized entry").All()
	require.Len(t, skipped, 1)
	assert.Equal(t, int64(8), skipped[0].ContextMap()["offset"])
}

// unalignedSubobject is a 6-byte sub-object, which RFC3209 routes cannot carry.
type unalignedSubobject struct{}

func (*unalignedSubobject) DecodeFromBytes([]byte) error { return nil }
func (*unalignedSubobject) Serialize() ([]byte, error) {
	return []byte{0x7f, 0x06, 0x00, 0x00, 0x00, 0x00}, nil
}
func (*unalignedSubobject) MarshalLogObject(zapcore.ObjectEncoder) error { return nil }
func (*unalignedSubobject) Type() SubobjectType { return 0x7f }
func (*unalignedSubobject) Len() uint16 { return 6 }

func TestRoute_SerializeLength(t *testing.T) {
	t.Run("unaligned sub-objects", func(t *testing.T) {
		_, err := (&RecordRoute{Subobjects: []RROSubobject{&unalignedSubobject{}}}).Serialize()
		assert.True(t, codec.IsMalformed(err), "unexpected error %v", err)
		_, err = (&ExplicitRoute{Subobjects: []EROSubobject{&unalignedSubobject{}}}).Serialize()
		assert.True(t, codec.IsMalformed(err), "unexpected error %v", err)
	})

	t.Run("over 65535 bytes", func(t *testing.T) {
		rro := &RecordRoute{}
		for range 9000 {
			rro.Subobjects = append(rro.Subobjects, NewIPv4RROSubobject(netip.MustParseAddr("10.0.0.1"), 32))
		}
		_, err := rro.Serialize()
		assert.ErrorIs(t, err, codec.ErrMalformedStructure)
		assert.Equal(t, uint16(codec.MaxLength), rro.Len())
	})

	t.Run("length matches encoding", func(t *testing.T) {
		rro := &RecordRoute{Subobjects: []RROSubobject{
			NewIPv4RROSubobject(netip.MustParseAddr("10.0.0.1"), 32),
			&LabelRROSubobject{CType: CTypeLabelGeneric, Label: 16},
		}}
		b, err := rro.Serialize()
		require.NoError(t, err)
		assert.Len(t, b, int(rro.Len()))
		assert.Equal(t, uint16(20), rro.Len())
	})
}

func TestRecordRoute_ErrorOffset(t *testing.T) {
	input := []byte{
		0x00, 0x10, 0x15, 0x01,
		0x01, 0x08, 0x0a, 0x00, 0x00, 0x01, 0x20, 0x00,
		0x01, 0x04, 0x0a, 0x00, // IPv4 sub-object declaring 4 bytes
	}
	_, err := DecodeObject(input)
	var de *codec.DecodeError
	require.True(t, errors.As(err, &de))
	assert.ErrorIs(t, err, codec.ErrMalformedStructure)
	assert.Equal(t, 13, de.Offset)
}

func TestDecodeObject_Unknown(t *testing.T) {
	_, err := DecodeObject([]byte{0x00, 0x08, 0x63, 0x01, 0x00, 0x00, 0x00, 0x00})
	assert.True(t, codec.IsViolation(err))

	// SENDER_TEMPLATE with a C-Type other than LSP_TUNNEL
	_, err = DecodeObject([]byte{0x00, 0x0c, 0x0b, 0x01, 0x0a, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x07})
	assert.True(t, codec.IsViolation(err))
}

func TestDecodeObjects_KeepsUndefined(t *testing.T) {
	session := []byte{0x00, 0x0c, 0x01, 0x07, 0x0a, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00, 0x01}
	label := []byte{0x00, 0x08, 0x10, 0x01, 0x00, 0x00, 0x00, 0x10}
	input := codec.AppendByteSlices(session, label)

	objects, err := DecodeObjects(input)
	require.NoError(t, err)
	require.Len(t, objects, 2)

	u, ok := objects[0].(*UndefinedObject)
	require.True(t, ok)
	assert.Equal(t, ClassNumSession, u.ClassNum())
	assert.Equal(t, &Label{Label: 16}, objects[1])

	input[4] = 0xff
	assert.Equal(t, byte(0x0a), u.Body[0], "decoded objects must not alias the input")

	b, err := u.Serialize()
	require.NoError(t, err)
	assert.Equal(t, session, b)

	_, err = DecodeObjects(input[:len(input)-1])
	assert.True(t, codec.IsMalformed(err))
}

func TestObject_MarshalLogObject(t *testing.T) {
	enc := zapcore.NewMapObjectEncoder()
	require.NoError(t, NewSenderTemplateLSPTunnel(netip.MustParseAddr("10.0.0.1"), 7).MarshalLogObject(enc))
	assert.Equal(t, "10.0.0.1", enc.Fields["senderAddress"])
	assert.Equal(t, uint16(7), enc.Fields["lspID"])

	enc = zapcore.NewMapObjectEncoder()
	ero := &ExplicitRoute{Subobjects: []EROSubobject{NewIPv4EROSubobject(netip.MustParseAddr("10.0.0.1"), 32, true)}}
	require.NoError(t, ero.MarshalLogObject(enc))
	subobjects, ok := enc.Fields["subobjects"].([]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"address": "10.0.0.1", "prefixLength": uint8(32), "loose": true}, subobjects[0])

	enc = zapcore.NewMapObjectEncoder()
	require.NoError(t, (&FlowSpec{Service: ServiceControlledLoad, MaxPacketSize: 1500}).MarshalLogObject(enc))
	assert.Equal(t, "Controlled-Load", enc.Fields["service"])
	assert.NotContains(t, enc.Fields, "R")
}

func TestClassNum_String(t *testing.T) {
	assert.Equal(t, "SENDER_TEMPLATE", ClassNumSenderTemplate.String())
	assert.Equal(t, "Unknown Class-Num (99)", ClassNum(99).String())
	assert.Equal(t, "Unknown sub-object (9)", SubobjectType(9).String())
}
