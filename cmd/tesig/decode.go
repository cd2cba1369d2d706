// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/google/gopacket"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/nttcom/tesig/pkg/layers"
	"github.com/nttcom/tesig/pkg/packet/codec"
	"github.com/nttcom/tesig/pkg/packet/pcep"
	"github.com/nttcom/tesig/pkg/packet/rsvp"
)

type decodeFunc func(data []byte, opts []codec.Opt) (zapcore.ObjectMarshaler, error)

var decoders = map[string]decodeFunc{
	"pcep-objects": func(data []byte, opts []codec.Opt) (zapcore.ObjectMarshaler, error) {
		objs, err := pcep.DecodeObjects(data, opts...)
		return objectList("objects", objs), err
	},
	"pcep-notify": func(data []byte, opts []codec.Opt) (zapcore.ObjectMarshaler, error) {
		if cfg.Global.Decode.Strict {
			n := &pcep.Notify{}
			return n, n.DecodeFromBytes(data, opts...)
		}
		n, consumed, err := pcep.DecodeNotify(data, 0, opts...)
		logTrailing(data, consumed, err)
		return n, err
	},
	"pcep-notify-list": func(data []byte, opts []codec.Opt) (zapcore.ObjectMarshaler, error) {
		notifies, err := pcep.DecodeNotifyList(data, opts...)
		return objectList("notifies", notifies), err
	},
	"pcep-request": func(data []byte, opts []codec.Opt) (zapcore.ObjectMarshaler, error) {
		r := &pcep.Request{}
		return r, r.DecodeFromBytes(data, opts...)
	},
	"pcep-message": func(data []byte, opts []codec.Opt) (zapcore.ObjectMarshaler, error) {
		l := &layers.PCEP{Options: opts}
		if err := l.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
			return nil, err
		}
		if len(l.LayerPayload()) > 0 {
			log.Warn("bytes follow the message", zap.Int("length", len(l.LayerPayload())))
		}
		return pcepMessage(l), nil
	},
	"rsvp-objects": func(data []byte, opts []codec.Opt) (zapcore.ObjectMarshaler, error) {
		objs, err := rsvp.DecodeObjects(data, opts...)
		return objectList("objects", objs), err
	},
	"rsvp-se-flow-descriptor": func(data []byte, opts []codec.Opt) (zapcore.ObjectMarshaler, error) {
		if cfg.Global.Decode.Strict {
			d := &rsvp.SEFlowDescriptor{}
			return d, d.DecodeFromBytes(data, opts...)
		}
		d, consumed, err := rsvp.DecodeSEFlowDescriptor(data, 0, opts...)
		logTrailing(data, consumed, err)
		return d, err
	},
	"rsvp-message": func(data []byte, opts []codec.Opt) (zapcore.ObjectMarshaler, error) {
		l := &layers.RSVP{Options: opts}
		if err := l.DecodeFromBytes(data, gopacket.NilDecodeFeedback); err != nil {
			return nil, err
		}
		return rsvpMessage(l), nil
	},
}

func logTrailing(data []byte, consumed int, err error) {
	if err == nil && consumed < len(data) {
		log.Info("trailing bytes left undecoded", zap.Int("offset", consumed), zap.Int("length", len(data)-consumed))
	}
}

func decodeKinds() []string {
	var kinds []string
	for k := range decoders {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

func newDecodeCmd() *cobra.Command {
	decodeCmd := &cobra.Command{
		Use:   "decode --kind <kind> <hex>...",
		Short: "Decode hex encoded bytes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := cmd.Flags().GetString("kind")
			if err != nil {
				return err
			}
			return runDecode(cmd.OutOrStdout(), kind, args)
		},
	}

	decodeCmd.Flags().StringP("kind", "k", "pcep-objects", "one of "+strings.Join(decodeKinds(), ", "))
	return decodeCmd
}

func runDecode(w io.Writer, kind string, args []string) error {
	decode, ok := decoders[kind]
	if !ok {
		return fmt.Errorf("unknown kind %q, expected one of %s", kind, strings.Join(decodeKinds(), ", "))
	}
	data, err := parseHex(args)
	if err != nil {
		return err
	}
	m, err := decode(data, decodeOptions())
	if err != nil {
		log.Debug("decode failed", zap.String("kind", kind), zap.Binary("input", data), zap.Error(err))
		return fmt.Errorf("failed to decode %s: %w", kind, err)
	}
	return emit(w, kind, m)
}

// parseHex accepts hex split across arguments, with optional 0x prefixes and ':' separators.
func parseHex(args []string) ([]byte, error) {
	var sb strings.Builder
	for _, a := range args {
		for _, f := range strings.Fields(a) {
			f = strings.TrimPrefix(strings.TrimPrefix(f, "0x"), "0X")
			sb.WriteString(strings.ReplaceAll(f, ":", ""))
		}
	}
	data, err := hex.DecodeString(sb.String())
	if err != nil {
		return nil, fmt.Errorf("invalid hex input: %w", err)
	}
	return data, nil
}
