// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/gopacket"
	gplayers "github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/nttcom/tesig/pkg/layers"
	"github.com/nttcom/tesig/pkg/logger"
	"github.com/nttcom/tesig/pkg/packet/rsvp"
)

const notificationHex = "0c10000800000102"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"-c", filepath.Join(t.TempDir(), "tesig.yaml")}, args...))
	err := run(cmd)
	return out.String(), err
}

func TestParseHex(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected []byte
		err      bool
	}{
		{name: "single argument", args: []string{"0c100008"}, expected: []byte{0x0c, 0x10, 0x00, 0x08}},
		{name: "split with prefixes", args: []string{"0x0c10", "0X0008"}, expected: []byte{0x0c, 0x10, 0x00, 0x08}},
		{name: "colon separated", args: []string{"0c:10 00:08"}, expected: []byte{0x0c, 0x10, 0x00, 0x08}},
		{name: "odd length", args: []string{"0c1"}, err: true},
		{name: "not hex", args: []string{"zz"}, err: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := parseHex(tt.args)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, data)
		})
	}
}

func TestDecodeCmd(t *testing.T) {
	out, err := execute(t, "--json", "decode", "--kind", "pcep-notify", notificationHex)
	require.NoError(t, err)

	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Contains(t, decoded["pcep-notify"], "notificationList")

	out, err = execute(t, "decode", "-k", "pcep-objects", notificationHex)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "pcep-objects:\n"))

	_, err = execute(t, "decode", "--kind", "pcep-notify", notificationHex+"00")
	assert.Error(t, err)

	_, err = execute(t, "decode", "--kind", "bgp-update", notificationHex)
	assert.Error(t, err)
}

func TestDecodeCmd_NotStrict(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tesig.yaml")
	require.NoError(t, os.WriteFile(path, []byte("global:\n  decode:\n    strict: false\n"), 0644))

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	// an object outside the construct follows it
	cmd.SetArgs([]string{"-c", path, "decode", "--kind", "pcep-notify", notificationHex, "20100004"})
	require.NoError(t, run(cmd))
	assert.Contains(t, out.String(), "notificationList")
}

func TestRun_ClosesLog(t *testing.T) {
	closed := 0
	openLog = func(dir, name string, dbg bool) (*zap.Logger, func(), error) {
		return zaptest.NewLogger(t), func() { closed++ }, nil
	}
	t.Cleanup(func() { openLog = logger.Open })

	_, err := execute(t, "decode", "--kind", "bgp-update", notificationHex)
	require.Error(t, err)
	assert.Equal(t, 1, closed)

	_, err = execute(t, "decode", "--kind", "pcep-notify", notificationHex)
	require.NoError(t, err)
	assert.Equal(t, 2, closed)
}

func TestEncodeCmd(t *testing.T) {
	tests := []struct {
		fixture string
		kind    string
	}{
		{fixture: "notify.yaml", kind: "pcep-notify"},
		{fixture: "request.yaml", kind: "pcep-request"},
		{fixture: "se_flow_descriptor.yaml", kind: "rsvp-se-flow-descriptor"},
	}
	for _, tt := range tests {
		t.Run(tt.fixture, func(t *testing.T) {
			out, err := execute(t, "encode", "-f", filepath.Join("..", "..", "internal", "fixture", "testdata", tt.fixture))
			require.NoError(t, err)
			encoded := strings.TrimSpace(out)
			_, err = hex.DecodeString(encoded)
			require.NoError(t, err)

			_, err = execute(t, "decode", "--kind", tt.kind, encoded)
			assert.NoError(t, err)
		})
	}

	_, err := execute(t, "encode")
	assert.Error(t, err)
}

func writeCapture(t *testing.T, packets ...[]byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rsvp.pcap")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	w := pcapgo.NewWriter(f)
	require.NoError(t, w.WriteFileHeader(65536, gplayers.LinkTypeEthernet))
	for i, data := range packets {
		ci := gopacket.CaptureInfo{
			Timestamp:     time.Unix(int64(i), 0),
			CaptureLength: len(data),
			Length:        len(data),
		}
		require.NoError(t, w.WritePacket(ci, data))
	}
	return path
}

// rsvpFrame returns an Ethernet frame carrying a HELLO message. With cut set,
// the frame ends 4 bytes before the message does.
func rsvpFrame(t *testing.T, cut bool) []byte {
	t.Helper()
	eth := &gplayers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 1},
		DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 2},
		EthernetType: gplayers.EthernetTypeIPv4,
	}
	ip := &gplayers.IPv4{
		Version:  4,
		TTL:      1,
		Protocol: layers.IPProtocolRSVP,
		SrcIP:    net.IPv4(192, 0, 2, 1),
		DstIP:    net.IPv4(192, 0, 2, 2),
	}
	msg := &layers.RSVP{
		Header:  *rsvp.NewCommonHeader(rsvp.MessageTypeHello, 1, 0),
		Objects: []rsvp.Object{rsvp.NewHelloRequest(1, 0)},
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, msg))
	data := buf.Bytes()
	if cut {
		// Ethernet, IPv4 and a 20 byte message; padding follows it
		return data[:14+20+20-4]
	}
	return data
}

func TestRunPcap(t *testing.T) {
	log = zaptest.NewLogger(t)

	path := writeCapture(t, rsvpFrame(t, false), rsvpFrame(t, true))
	var out bytes.Buffer
	s, err := runPcap(&out, path)

	assert.Equal(t, captureSummary{packets: 2, rsvp: 1}, s)
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 1)
	assert.Contains(t, out.String(), "checksumValid: true")
}

func TestRunPcap_NotACapture(t *testing.T) {
	log = zaptest.NewLogger(t)

	path := filepath.Join(t.TempDir(), "garbage.pcap")
	require.NoError(t, os.WriteFile(path, []byte("not a capture file"), 0644))
	_, err := runPcap(&bytes.Buffer{}, path)
	assert.Error(t, err)
}
