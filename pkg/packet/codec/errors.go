// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package codec

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a decoder or encoder in this module
// satisfies errors.Is against exactly one of them.
var (
	ErrMalformedStructure = errors.New("malformed structure")
	ErrProtocolViolation  = errors.New("protocol violation")
)

// DecodeError reports a failure together with the absolute offset at which it occurred.
type DecodeError struct {
	Kind    error // ErrMalformedStructure or ErrProtocolViolation
	Offset  int
	Context string
	Err     error
}

func (e *DecodeError) Error() string {
	msg := fmt.Sprintf("%s at offset %d", e.Kind, e.Offset)
	if e.Context != "" {
		msg += ": " + e.Context
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Malformed returns an ErrMalformedStructure error located at offset.
func Malformed(offset int, format string, args ...any) error {
	return &DecodeError{
		Kind:    ErrMalformedStructure,
		Offset:  offset,
		Context: fmt.Sprintf(format, args...),
	}
}

// Violation returns an ErrProtocolViolation error located at offset.
func Violation(offset int, format string, args ...any) error {
	return &DecodeError{
		Kind:    ErrProtocolViolation,
		Offset:  offset,
		Context: fmt.Sprintf(format, args...),
	}
}

// Shift re-bases the offset of a child error onto its parent buffer.
// Errors that carry no offset are classified as malformed at delta.
func Shift(err error, delta int) error {
	if err == nil {
		return nil
	}
	var de *DecodeError
	if errors.As(err, &de) {
		shifted := *de
		shifted.Offset += delta
		return &shifted
	}
	return &DecodeError{
		Kind:   ErrMalformedStructure,
		Offset: delta,
		Err:    err,
	}
}

// Within prefixes the context of err with the name of the enclosing structure.
func Within(err error, name string) error {
	var de *DecodeError
	if !errors.As(err, &de) {
		return fmt.Errorf("%s: %w", name, err)
	}
	wrapped := *de
	if wrapped.Context == "" {
		wrapped.Context = name
	} else {
		wrapped.Context = name + ": " + wrapped.Context
	}
	return &wrapped
}

// IsMalformed reports whether err is a malformed structure error.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedStructure)
}

// IsViolation reports whether err is a protocol violation.
func IsViolation(err error) bool {
	return errors.Is(err, ErrProtocolViolation)
}
