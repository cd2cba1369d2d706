// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package codec

import (
	"fmt"

	"go.uber.org/zap"
)

// Unit is a self-describing wire structure: an object, a TLV or a sub-object.
type Unit interface {
	DecodeFromBytes(data []byte) error
	Serialize() ([]byte, error)
	Len() uint16 // bytes on the wire, header and padding included
}

// OptionDecoder is implemented by units that carry nested lists, so that
// decode options reach every level.
type OptionDecoder interface {
	DecodeWithOptions(data []byte, o *Options) error
}

// DecodeUnit decodes u from data, passing o down when u accepts it.
func DecodeUnit(u Unit, data []byte, o *Options) error {
	if d, ok := u.(OptionDecoder); ok {
		return d.DecodeWithOptions(data, o)
	}
	return u.DecodeFromBytes(data)
}

// ListSpec describes a length-bounded sequence of nested units, such as the
// TLVs of a PCEP object or the sub-objects of a route object.
//
// Unrecognized discriminants are skipped: "Unrecognized TLVs MUST be ignored" (RFC5440 7.1).
type ListSpec[K comparable, T Unit] struct {
	Name     string
	Peek     func(data []byte) (key K, length int, err error)
	Registry map[K]func() T
}

// Decode consumes data completely. Offsets in returned errors are relative to data.
func (s ListSpec[K, T]) Decode(data []byte, opts ...Opt) ([]T, error) {
	return s.DecodeWith(data, ResolveOptions(opts...))
}

// DecodeWith is Decode with already resolved options.
func (s ListSpec[K, T]) DecodeWith(data []byte, o *Options) ([]T, error) {
	var items []T
	c := NewCursor(data)
	for !c.EOF() {
		var (
			item T
			ok   bool
			err  error
		)
		if c, item, ok, err = s.step(c, o); err != nil {
			return nil, err
		}
		if ok {
			items = append(items, item)
		}
	}
	return items, nil
}

func (s ListSpec[K, T]) step(c Cursor, o *Options) (Cursor, T, bool, error) {
	var zero T
	key, length, err := s.Peek(c.Rest())
	if err != nil {
		return c, zero, false, Within(Shift(err, c.Offset()), s.Name)
	}
	raw, err := c.Peek(length)
	if err != nil {
		return c, zero, false, Within(err, s.Name)
	}
	next, err := c.Advance(length)
	if err != nil {
		return c, zero, false, Within(err, s.Name)
	}

	newItem, found := s.Registry[key]
	if !found {
		o.Logger.Debug("skipping unrecognized entry",
			zap.String("list", s.Name),
			zap.Any("type", key),
			zap.Int("offset", c.Offset()),
			zap.Int("length", length))
		return next, zero, false, nil
	}

	item := newItem()
	if err := DecodeUnit(item, raw, o); err != nil {
		return c, zero, false, Within(Shift(err, c.Offset()), s.Name)
	}
	return next, item, true, nil
}

// SerializeList concatenates items in insertion order.
func SerializeList[T Unit](items []T) ([]byte, error) {
	bufs := make([][]byte, 0, len(items))
	for i, item := range items {
		b, err := item.Serialize()
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		if len(b) != int(item.Len()) {
			return nil, Malformed(0, "entry %d encoded %d bytes but reports length %d", i, len(b), item.Len())
		}
		bufs = append(bufs, b)
	}
	return AppendByteSlices(bufs...), nil
}

// ListLen sums the wire lengths of items.
func ListLen[T Unit](items []T) int {
	total := 0
	for _, item := range items {
		total += int(item.Len())
	}
	return total
}
