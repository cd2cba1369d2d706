// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package codec

// Cursor is an immutable view over a buffer. Advancing returns a new Cursor,
// so a caller holding an older value can always peek again from its position.
type Cursor struct {
	data   []byte
	offset int
}

func NewCursor(data []byte) Cursor {
	return Cursor{data: data}
}

// NewCursorAt positions a cursor at offset within data.
func NewCursorAt(data []byte, offset int) (Cursor, error) {
	if offset < 0 || offset > len(data) {
		return Cursor{}, Malformed(offset, "offset out of range (buffer is %d bytes)", len(data))
	}
	return Cursor{data: data, offset: offset}, nil
}

// Offset returns the absolute position of the cursor in the underlying buffer.
func (c Cursor) Offset() int {
	return c.offset
}

// Rest returns the unconsumed bytes.
func (c Cursor) Rest() []byte {
	return c.data[c.offset:]
}

// Remaining returns the number of unconsumed bytes.
func (c Cursor) Remaining() int {
	return len(c.data) - c.offset
}

func (c Cursor) EOF() bool {
	return c.offset >= len(c.data)
}

// Peek returns the next n bytes without consuming them.
func (c Cursor) Peek(n int) ([]byte, error) {
	if n < 0 || n > c.Remaining() {
		return nil, Malformed(c.offset, "need %d bytes, %d remaining", n, c.Remaining())
	}
	return c.data[c.offset : c.offset+n], nil
}

// Advance consumes n bytes. A zero-length step is rejected since it would
// never make progress.
func (c Cursor) Advance(n int) (Cursor, error) {
	if n <= 0 {
		return c, Malformed(c.offset, "non-positive advance %d", n)
	}
	if n > c.Remaining() {
		return c, Malformed(c.offset, "declared length %d exceeds remaining %d bytes", n, c.Remaining())
	}
	return Cursor{data: c.data, offset: c.offset + n}, nil
}
