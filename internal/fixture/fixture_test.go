// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package fixture

import (
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nttcom/tesig/pkg/packet/codec"
	"github.com/nttcom/tesig/pkg/packet/pcep"
	"github.com/nttcom/tesig/pkg/packet/rsvp"
)

func TestBuild_Files(t *testing.T) {
	tests := []struct {
		path     string
		expected Construct
	}{
		{
			path: "testdata/notify.yaml",
			expected: &pcep.Notify{
				RequestIDList: []*pcep.RequestParameters{pcep.NewRequestParameters(1, 0), pcep.NewRequestParameters(2, 0)},
				NotificationList: []*pcep.Notification{
					pcep.NewNotification(1, 2, &pcep.ReqMissing{RequestID: 3}),
				},
			},
		},
		{
			path: "testdata/request.yaml",
			expected: &pcep.Request{
				RP:        pcep.NewRequestParameters(16, 1),
				EndPoints: pcep.NewEndPoints(netip.MustParseAddr("192.0.2.1"), netip.MustParseAddr("192.0.2.2")),
				Bandwidth: &pcep.Bandwidth{Bandwidth: 1000},
				Metrics: []*pcep.Metric{
					{MetricType: pcep.MetricTypeIGP, Computed: true},
					{MetricType: pcep.MetricTypeHopCount, Bound: true, Value: 4},
				},
			},
		},
		{
			path: "testdata/se_flow_descriptor.yaml",
			expected: &rsvp.SEFlowDescriptor{
				FlowSpec: &rsvp.FlowSpec{
					Service:         rsvp.ServiceControlledLoad,
					TokenBucketRate: 1000,
					TokenBucketSize: 1000,
					PeakDataRate:    2000,
					MinPolicedUnit:  20,
					MaxPacketSize:   1500,
				},
				FilterSpecs: []*rsvp.SEFilterSpec{
					{
						FilterSpec: rsvp.NewFilterSpecLSPTunnel(netip.MustParseAddr("10.0.0.1"), 1),
						Label:      &rsvp.Label{Label: 16},
						RecordRoute: &rsvp.RecordRoute{Subobjects: []rsvp.RROSubobject{
							rsvp.NewIPv4RROSubobject(netip.MustParseAddr("192.0.2.1"), 32),
							&rsvp.LabelRROSubobject{CType: rsvp.CTypeLabelGeneric, Label: 16},
						}},
					},
					{
						FilterSpec: rsvp.NewFilterSpecLSPTunnel(netip.MustParseAddr("10.0.0.2"), 2),
						Label:      &rsvp.Label{Label: 17},
					},
				},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			f, err := ReadFile(tt.path)
			require.NoError(t, err)
			c, err := f.Build()
			require.NoError(t, err)
			assert.Equal(t, tt.expected, c)

			b, err := c.Serialize()
			require.NoError(t, err)
			assert.Equal(t, int(c.Len()), len(b))
		})
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty document", "{}\n"},
		{"two constructs", "notify:\n  notifications: [{type: 1, value: 1}]\nrequest:\n  requestID: 1\n"},
		{"unknown metric", "request:\n  metrics: [{type: delay}]\n"},
		{"unknown service", "seFlowDescriptor:\n  flowSpec: {service: best-effort}\n"},
		{"hop without address or label", "seFlowDescriptor:\n  flowSpec: {service: guaranteed}\n  filterSpecs: [{sender: 10.0.0.1, recordRoute: [{}]}]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := Read(strings.NewReader(tt.input))
			require.NoError(t, err)
			_, err = f.Build()
			assert.Error(t, err)
		})
	}

	t.Run("unknown field", func(t *testing.T) {
		_, err := Read(strings.NewReader("notify:\n  requestIds: [1]\n"))
		assert.Error(t, err)
	})
}

func TestBuild_GrammarCheckedOnSerialize(t *testing.T) {
	f, err := Read(strings.NewReader("notify:\n  requestIDs: [1]\n"))
	require.NoError(t, err)
	c, err := f.Build()
	require.NoError(t, err)
	_, err = c.Serialize()
	assert.True(t, codec.IsViolation(err))
}
