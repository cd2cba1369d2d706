// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"go.uber.org/zap/zapcore"

	"github.com/nttcom/tesig/pkg/layers"
)

// emit writes m under key: one json line with --json, indented text otherwise.
func emit(w io.Writer, key string, m zapcore.ObjectMarshaler) error {
	enc := zapcore.NewMapObjectEncoder()
	if err := enc.AddObject(key, m); err != nil {
		return err
	}
	if jsonFmt {
		b, err := json.Marshal(enc.Fields)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(b))
		return err
	}
	writeText(w, enc.Fields, 0)
	return nil
}

func writeText(w io.Writer, v any, depth int) {
	indent := strings.Repeat("  ", depth)
	switch v := v.(type) {
	case map[string]any:
		for _, k := range slices.Sorted(maps.Keys(v)) {
			switch child := v[k].(type) {
			case map[string]any, []any:
				fmt.Fprintf(w, "%s%s:\n", indent, k)
				writeText(w, child, depth+1)
			default:
				fmt.Fprintf(w, "%s%s: %v\n", indent, k, child)
			}
		}
	case []any:
		for i, e := range v {
			fmt.Fprintf(w, "%s- [%d]\n", indent, i)
			writeText(w, e, depth+1)
		}
	default:
		fmt.Fprintf(w, "%s%v\n", indent, v)
	}
}

// objectList renders a slice of objects as an array under key.
func objectList[T zapcore.ObjectMarshaler](key string, objs []T) zapcore.ObjectMarshaler {
	return zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
		return enc.AddArray(key, zapcore.ArrayMarshalerFunc(func(ae zapcore.ArrayEncoder) error {
			for _, o := range objs {
				if err := ae.AppendObject(o); err != nil {
					return err
				}
			}
			return nil
		}))
	})
}

func pcepMessage(l *layers.PCEP) zapcore.ObjectMarshaler {
	return zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
		if err := enc.AddObject("header", &l.Header); err != nil {
			return err
		}
		if err := objectList("objects", l.Objects).MarshalLogObject(enc); err != nil {
			return err
		}
		if len(l.Notifies) == 0 {
			return nil
		}
		return objectList("notifies", l.Notifies).MarshalLogObject(enc)
	})
}

func rsvpMessage(l *layers.RSVP) zapcore.ObjectMarshaler {
	return zapcore.ObjectMarshalerFunc(func(enc zapcore.ObjectEncoder) error {
		if err := enc.AddObject("header", &l.Header); err != nil {
			return err
		}
		enc.AddBool("checksumValid", l.ChecksumValid())
		if err := objectList("objects", l.Objects).MarshalLogObject(enc); err != nil {
			return err
		}
		if l.FlowDescriptor == nil {
			return nil
		}
		return enc.AddObject("flowDescriptor", l.FlowDescriptor)
	})
}
