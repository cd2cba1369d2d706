// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package codec

import (
	"encoding/binary"
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// word is a minimal TLV carrying one 32-bit value.
type word struct {
	Typ   uint16
	Value uint32
}

func (w *word) DecodeFromBytes(data []byte) error {
	var h TLVHeader
	if err := h.DecodeFromBytes(data); err != nil {
		return err
	}
	if h.Length != 4 {
		return Malformed(2, "word value length %d", h.Length)
	}
	w.Typ = h.Type
	w.Value = binary.BigEndian.Uint32(h.Value(data))
	return nil
}

func (w *word) Serialize() ([]byte, error) {
	return SerializeTLV(w.Typ, Uint32ToByteSlice(w.Value))
}

func (w *word) Len() uint16 {
	return TLVLen(4)
}

func mustTLV(t *testing.T, typ uint16, value []byte) []byte {
	t.Helper()
	b, err := SerializeTLV(typ, value)
	require.NoError(t, err)
	return b
}

var wordList = ListSpec[uint16, *word]{
	Name:     "words",
	Peek:     PeekTLV,
	Registry: map[uint16]func() *word{1: func() *word { return &word{} }},
}

func TestAlign4(t *testing.T) {
	tests := []struct {
		in       int
		expected int
	}{
		{0, 0}, {1, 4}, {3, 4}, {4, 4}, {5, 8}, {7, 8}, {8, 8},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, Align4(tt.in), "Align4(%d)", tt.in)
	}
}

func TestSerializeTLV_Padding(t *testing.T) {
	tests := []struct {
		name     string
		value    []byte
		expected []byte
	}{
		{
			name:     "3-byte value padded to 8",
			value:    []byte{0xaa, 0xbb, 0xcc},
			expected: []byte{0x00, 0x07, 0x00, 0x03, 0xaa, 0xbb, 0xcc, 0x00},
		},
		{
			name:     "aligned value has no padding",
			value:    []byte{0x01, 0x02, 0x03, 0x04},
			expected: []byte{0x00, 0x07, 0x00, 0x04, 0x01, 0x02, 0x03, 0x04},
		},
		{
			name:     "empty value",
			value:    nil,
			expected: []byte{0x00, 0x07, 0x00, 0x00},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := mustTLV(t, 7, tt.value)
			assert.Equal(t, tt.expected, actual)
			assert.Equal(t, int(TLVLen(len(tt.value))), len(actual))

			var h TLVHeader
			require.NoError(t, h.DecodeFromBytes(actual))
			assert.Equal(t, uint16(len(tt.value)), h.Length)
			assert.Equal(t, len(actual), h.PhysicalLen())
		})
	}
}

func TestSerializeTLV_Oversized(t *testing.T) {
	_, err := SerializeTLV(uint16(7), make([]byte, MaxLength))
	require.NoError(t, err)

	_, err = SerializeTLV(uint16(7), make([]byte, MaxLength+1))
	assert.ErrorIs(t, err, ErrMalformedStructure)

	assert.Equal(t, uint16(MaxLength), TLVLen(MaxLength+1))
	assert.Equal(t, uint16(MaxLength), Len16(72004))
	assert.Equal(t, uint16(8), Len16(8))
	assert.NoError(t, CheckLength("body", MaxLength))
	assert.True(t, IsMalformed(CheckLength("body", MaxLength+1)))
}

func TestTLVHeader_DecodeFromBytes_Truncated(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
	}{
		{"shorter than header", []byte{0x00, 0x01, 0x00}},
		{"value missing", []byte{0x00, 0x01, 0x00, 0x04, 0x01}},
		{"padding missing", []byte{0x00, 0x01, 0x00, 0x03, 0x01, 0x02, 0x03}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var h TLVHeader
			err := h.DecodeFromBytes(tt.input)
			assert.True(t, IsMalformed(err), "unexpected error %v", err)
		})
	}
}

func TestSubobjectHeader(t *testing.T) {
	var h SubobjectHeader
	require.NoError(t, h.DecodeFromBytes([]byte{0x81, 0x04, 0x00, 0x00}))
	assert.True(t, h.Loose())
	assert.Equal(t, uint8(1), h.BaseType())
	assert.Equal(t, []byte{0x81, 0x04}, h.Serialize())

	assert.True(t, IsMalformed(h.DecodeFromBytes([]byte{0x01})))
	assert.True(t, IsMalformed(h.DecodeFromBytes([]byte{0x01, 0x01})), "length below header size")
	assert.True(t, IsMalformed(h.DecodeFromBytes([]byte{0x01, 0x08, 0x00})), "length beyond buffer")

	_, _, err := PeekLooseSubobject([]byte{0x82, 0x14})
	assert.Error(t, err)
	typ, length, err := PeekLooseSubobject(append([]byte{0x82, 0x06}, make([]byte, 4)...))
	require.NoError(t, err)
	assert.Equal(t, uint8(2), typ)
	assert.Equal(t, 6, length)
}

func TestCursor(t *testing.T) {
	c := NewCursor([]byte{1, 2, 3, 4})
	head, err := c.Peek(2)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, head)
	assert.Equal(t, 0, c.Offset(), "peek must not advance")

	next, err := c.Advance(3)
	require.NoError(t, err)
	assert.Equal(t, 3, next.Offset())
	assert.Equal(t, 0, c.Offset(), "cursor is a value")
	assert.Equal(t, []byte{4}, next.Rest())

	_, err = next.Advance(2)
	assert.True(t, IsMalformed(err))
	_, err = next.Advance(0)
	assert.True(t, IsMalformed(err))

	_, err = NewCursorAt([]byte{1}, 2)
	assert.True(t, IsMalformed(err))
}

func TestListSpec_Decode(t *testing.T) {
	known := mustTLV(t, 1, []byte{0, 0, 0, 9})
	unknown := mustTLV(t, 99, []byte{0xff, 0xff, 0xff})

	t.Run("unknown entries are skipped", func(t *testing.T) {
		core, logs := observer.New(zapcore.DebugLevel)
		items, err := wordList.Decode(AppendByteSlices(known, unknown, known), WithLogger(zap.New(core)))
		require.NoError(t, err)
		require.Len(t, items, 2)
		assert.Equal(t, uint32(9), items[1].Value)
		assert.Equal(t, 1, logs.FilterMessage("skipping unrecognized entry").Len())
	})

	t.Run("empty input", func(t *testing.T) {
		items, err := wordList.Decode(nil)
		require.NoError(t, err)
		assert.Empty(t, items)
	})

	t.Run("truncated entry reports absolute offset", func(t *testing.T) {
		input := AppendByteSlices(known, known[:6])
		_, err := wordList.Decode(input)
		require.Error(t, err)
		var de *DecodeError
		require.True(t, errors.As(err, &de))
		assert.ErrorIs(t, err, ErrMalformedStructure)
		assert.Equal(t, 8, de.Offset)
	})

	t.Run("child decode error is shifted", func(t *testing.T) {
		bad := mustTLV(t, 1, []byte{0, 0})
		_, err := wordList.Decode(AppendByteSlices(known, bad))
		var de *DecodeError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, 10, de.Offset)
	})
}

func TestSerializeList(t *testing.T) {
	items := []*word{{Typ: 1, Value: 1}, {Typ: 1, Value: 2}}
	b, err := SerializeList(items)
	require.NoError(t, err)
	assert.Len(t, b, ListLen(items))

	decoded, err := wordList.Decode(b)
	require.NoError(t, err)
	assert.Equal(t, items, decoded)
}

// Production tests use one-byte "objects": class byte followed by total length byte.
func peekToy(data []byte) (uint8, error) {
	if len(data) < 2 {
		return 0, Malformed(0, "toy header needs 2 bytes")
	}
	return data[0], nil
}

func decodeToy(data []byte) (int, error) {
	if len(data) < 2 || int(data[1]) > len(data) || data[1] < 2 {
		return 0, Malformed(0, "bad toy length")
	}
	return int(data[1]), nil
}

func toyProduction(a, b *int) *Production {
	return &Production{
		Name: "toy",
		Peek: peekToy,
		Slots: []Slot{
			{
				Name: "A", Class: 1, Min: 0,
				Decode: func(data []byte, _ *Options) (int, error) { *a++; return decodeToy(data) },
				Count:  func() int { return *a },
			},
			{
				Name: "B", Class: 2, Min: 1, Max: 2,
				Decode: func(data []byte, _ *Options) (int, error) { *b++; return decodeToy(data) },
				Count:  func() int { return *b },
			},
		},
	}
}

func TestProduction_Decode(t *testing.T) {
	tests := []struct {
		name      string
		input     []byte
		a, b      int
		violation bool
		malformed bool
	}{
		{name: "A A B", input: []byte{1, 2, 1, 2, 2, 2}, a: 2, b: 1},
		{name: "optional A absent", input: []byte{2, 2}, a: 0, b: 1},
		{name: "B at max", input: []byte{2, 2, 2, 3, 0}, a: 0, b: 2},
		{name: "mandatory B missing", input: []byte{1, 2}, violation: true},
		{name: "empty input", input: []byte{}, violation: true},
		{name: "B beyond max", input: []byte{2, 2, 2, 2, 2, 2}, violation: true},
		{name: "out of order", input: []byte{2, 2, 1, 2}, violation: true},
		{name: "unknown class", input: []byte{2, 2, 9, 2}, violation: true},
		{name: "truncated object", input: []byte{2, 4, 0}, malformed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a, b int
			err := toyProduction(&a, &b).Decode(tt.input)
			switch {
			case tt.violation:
				assert.True(t, IsViolation(err), "expected violation, got %v", err)
			case tt.malformed:
				assert.True(t, IsMalformed(err), "expected malformed, got %v", err)
			default:
				require.NoError(t, err)
				assert.Equal(t, tt.a, a)
				assert.Equal(t, tt.b, b)
			}
		})
	}
}

func TestProduction_Match(t *testing.T) {
	var a, b int
	n, err := toyProduction(&a, &b).Match([]byte{1, 2, 2, 2, 1, 2, 2, 2})
	require.NoError(t, err)
	assert.Equal(t, 4, n, "stops at the A that starts the next construct")
	assert.Equal(t, 1, a)
	assert.Equal(t, 1, b)
}

func TestProduction_Validate(t *testing.T) {
	a, b := 0, 0
	err := toyProduction(&a, &b).Validate()
	assert.ErrorIs(t, err, ErrProtocolViolation)

	b = 3
	err = toyProduction(&a, &b).Validate()
	assert.ErrorIs(t, err, ErrProtocolViolation)

	b = 1
	assert.NoError(t, toyProduction(&a, &b).Validate())
}

func TestShiftAndWithin(t *testing.T) {
	err := Within(Shift(Malformed(2, "inner"), 10), "outer")
	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 12, de.Offset)
	assert.Equal(t, "outer: inner", de.Context)
	assert.Equal(t, "malformed structure at offset 12: outer: inner", err.Error())

	plain := Shift(errors.New("boom"), 3)
	assert.True(t, IsMalformed(plain))
	assert.Nil(t, Shift(nil, 3))
}

func TestAddressHelpers(t *testing.T) {
	_, err := IPv4Bytes("sender", netip.Addr{})
	assert.True(t, IsMalformed(err))
	_, err = IPv4Bytes("sender", netip.MustParseAddr("2001:db8::1"))
	assert.True(t, IsMalformed(err))
	b, err := IPv4Bytes("sender", netip.MustParseAddr("10.0.0.1"))
	require.NoError(t, err)
	assert.Equal(t, []byte{10, 0, 0, 1}, b)

	_, err = IPv6Bytes("sender", netip.MustParseAddr("10.0.0.1"))
	assert.True(t, IsMalformed(err))

	addr, err := IPv4FromBytes(0, []byte{192, 0, 2, 1})
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("192.0.2.1"), addr)
	_, err = IPv6FromBytes(4, []byte{1, 2})
	assert.True(t, IsMalformed(err))
}
