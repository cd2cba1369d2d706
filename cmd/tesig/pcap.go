// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/gopacket"
	gplayers "github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/nttcom/tesig/pkg/layers"
)

func newPcapCmd() *cobra.Command {
	pcapCmd := &cobra.Command{
		Use:   "pcap -r <file>",
		Short: "Decode PCEP and RSVP messages in a capture file",
		RunE: func(cmd *cobra.Command, args []string) error {
			filepath, err := cmd.Flags().GetString("read")
			if err != nil {
				return err
			}
			if filepath == "" {
				return errors.New("file path option \"-r filepath\" is mandatory")
			}
			s, err := runPcap(cmd.OutOrStdout(), filepath)
			log.Info("capture decoded",
				zap.String("file", filepath),
				zap.Int("packets", s.packets),
				zap.Int("pcep", s.pcep),
				zap.Int("rsvp", s.rsvp),
				zap.Int("errors", len(multierr.Errors(err))))
			return err
		},
	}

	pcapCmd.Flags().StringP("read", "r", "", "[mandatory] path to pcap or pcapng file")
	return pcapCmd
}

type captureSource interface {
	gopacket.PacketDataSource
	LinkType() gplayers.LinkType
}

func openCapture(f *os.File) (captureSource, error) {
	r, err := pcapgo.NewReader(f)
	if err == nil {
		return r, nil
	}
	if _, seekErr := f.Seek(0, io.SeekStart); seekErr != nil {
		return nil, seekErr
	}
	ng, ngErr := pcapgo.NewNgReader(f, pcapgo.DefaultNgReaderOptions)
	if ngErr != nil {
		return nil, fmt.Errorf("neither pcap (%v) nor pcapng (%v)", err, ngErr)
	}
	return ng, nil
}

type captureSummary struct {
	packets int
	pcep    int
	rsvp    int
}

// runPcap emits every PCEP and RSVP layer in the file. Packets that fail to
// decode are logged and their errors are combined into the returned error.
func runPcap(w io.Writer, filepath string) (captureSummary, error) {
	var s captureSummary
	f, err := os.Open(filepath)
	if err != nil {
		return s, err
	}
	defer f.Close()

	src, err := openCapture(f)
	if err != nil {
		return s, fmt.Errorf("file %q: %w", filepath, err)
	}
	packets := gopacket.NewPacketSource(src, src.LinkType())
	packets.DecodeOptions = gopacket.DecodeOptions{DecodeStreamsAsDatagrams: true}

	var errs error
	for packet := range packets.Packets() {
		s.packets++
		for _, l := range packet.Layers() {
			switch l := l.(type) {
			case *layers.PCEP:
				s.pcep++
				if err := emit(w, "pcep", pcepMessage(l)); err != nil {
					return s, err
				}
			case *layers.RSVP:
				s.rsvp++
				if !l.ChecksumValid() {
					log.Warn("RSVP checksum mismatch", zap.Int("packet", s.packets), zap.Uint16("checksum", l.Header.Checksum))
				}
				if err := emit(w, "rsvp", rsvpMessage(l)); err != nil {
					return s, err
				}
			}
		}
		if el := packet.ErrorLayer(); el != nil {
			log.Warn("failed to decode packet", zap.Int("packet", s.packets), zap.Error(el.Error()))
			errs = multierr.Append(errs, fmt.Errorf("packet %d: %w", s.packets, el.Error()))
		}
	}
	return s, errs
}
