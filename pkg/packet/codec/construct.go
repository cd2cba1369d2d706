// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package codec

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Peeker reads the class of the object at the head of data without consuming it.
type Peeker func(data []byte) (class uint8, err error)

// Slot is one typed list of a grammar production, for example the
// <request-id-list> of <notify> (RFC5440 6.6).
type Slot struct {
	Name  string
	Class uint8
	Min   int
	Max   int // 0: unbounded

	// Decode consumes one instance from the head of data and returns its length.
	Decode func(data []byte, o *Options) (int, error)
	// Count reports how many instances the slot currently holds.
	Count func() int
}

// Production is an ordered sequence of slots. Slot order is fixed by the
// grammar and never reordered by content.
type Production struct {
	Name  string
	Peek  Peeker
	Slots []Slot
}

// Match decodes the longest prefix of data that satisfies the production and
// returns the number of bytes consumed. Trailing objects are left to the caller.
func (p *Production) Match(data []byte, opts ...Opt) (int, error) {
	return p.MatchWith(data, ResolveOptions(opts...))
}

// MatchWith is Match with already resolved options.
func (p *Production) MatchWith(data []byte, o *Options) (int, error) {
	c, err := p.match(NewCursor(data), o)
	if err != nil {
		return 0, err
	}
	return c.Offset(), nil
}

// Decode requires the production to account for every byte of data.
// An object whose class fits no remaining slot is a protocol violation.
func (p *Production) Decode(data []byte, opts ...Opt) error {
	return p.DecodeWith(data, ResolveOptions(opts...))
}

// DecodeWith is Decode with already resolved options.
func (p *Production) DecodeWith(data []byte, o *Options) error {
	c, err := p.match(NewCursor(data), o)
	if err != nil {
		return err
	}
	if c.EOF() {
		return nil
	}
	class, err := p.Peek(c.Rest())
	if err != nil {
		return Within(Shift(err, c.Offset()), p.Name)
	}
	return Violation(c.Offset(), "%s: unexpected object class %d", p.Name, class)
}

func (p *Production) match(c Cursor, o *Options) (Cursor, error) {
	for i := range p.Slots {
		var err error
		if c, err = p.matchSlot(c, &p.Slots[i], o); err != nil {
			return c, err
		}
	}
	return c, nil
}

func (p *Production) matchSlot(c Cursor, s *Slot, o *Options) (Cursor, error) {
	n := 0
	for !c.EOF() && (s.Max == 0 || n < s.Max) {
		class, err := p.Peek(c.Rest())
		if err != nil {
			return c, Within(Shift(err, c.Offset()), p.Name)
		}
		if class != s.Class {
			break
		}
		consumed, err := s.Decode(c.Rest(), o)
		if err != nil {
			return c, Within(Shift(err, c.Offset()), p.Name)
		}
		next, err := c.Advance(consumed)
		if err != nil {
			return c, Within(err, p.Name)
		}
		o.Logger.Debug("construct slot matched",
			zap.String("construct", p.Name),
			zap.String("slot", s.Name),
			zap.Int("offset", c.Offset()),
			zap.Int("length", consumed))
		c = next
		n++
	}
	if n < s.Min {
		return c, Violation(c.Offset(), "%s: expected at least %d %s, found %d", p.Name, s.Min, s.Name, n)
	}
	return c, nil
}

// Validate checks every slot's cardinality before encoding.
func (p *Production) Validate() error {
	var errs []error
	for _, s := range p.Slots {
		n := s.Count()
		if n < s.Min {
			errs = append(errs, Violation(0, "%s: expected at least %d %s, found %d", p.Name, s.Min, s.Name, n))
		}
		if s.Max > 0 && n > s.Max {
			errs = append(errs, Violation(0, "%s: expected at most %d %s, found %d", p.Name, s.Max, s.Name, n))
		}
	}
	return multierr.Combine(errs...)
}
