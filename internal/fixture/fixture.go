// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

// Package fixture turns YAML descriptions of PCEP and RSVP constructs into
// their typed form, for tesig encode and for tests.
package fixture

import (
	"errors"
	"fmt"
	"io"
	"net/netip"
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/nttcom/tesig/pkg/packet/pcep"
	"github.com/nttcom/tesig/pkg/packet/rsvp"
)

// Construct is what Build returns.
type Construct interface {
	Serialize() ([]byte, error)
	Len() uint16
	MarshalLogObject(enc zapcore.ObjectEncoder) error
}

type Notification struct {
	Type             uint8   `yaml:"type"`
	Value            uint8   `yaml:"value"`
	OverloadDuration *uint32 `yaml:"overloadDuration"`
	ReqMissing       *uint32 `yaml:"reqMissing"`
}

type Notify struct {
	RequestIDs    []uint32       `yaml:"requestIDs"`
	Notifications []Notification `yaml:"notifications"`
}

type Metric struct {
	Type     string  `yaml:"type"`
	Value    float32 `yaml:"value"`
	Bound    bool    `yaml:"bound"`
	Computed bool    `yaml:"computed"`
}

type Request struct {
	RequestID   uint32     `yaml:"requestID"`
	Priority    uint8      `yaml:"priority"`
	Source      netip.Addr `yaml:"source"`
	Destination netip.Addr `yaml:"destination"`
	Bandwidth   *float32   `yaml:"bandwidth"`
	Metrics     []Metric   `yaml:"metrics"`
}

type FlowSpec struct {
	Service         string  `yaml:"service"`
	TokenBucketRate float32 `yaml:"tokenBucketRate"`
	TokenBucketSize float32 `yaml:"tokenBucketSize"`
	PeakDataRate    float32 `yaml:"peakDataRate"`
	MinPolicedUnit  uint32  `yaml:"minPolicedUnit"`
	MaxPacketSize   uint32  `yaml:"maxPacketSize"`
	Rate            float32 `yaml:"rate"`
	SlackTerm       uint32  `yaml:"slackTerm"`
}

// Hop is one RECORD_ROUTE sub-object: an address or a label.
type Hop struct {
	Address      netip.Addr `yaml:"address"`
	PrefixLength *uint8     `yaml:"prefixLength"`
	Label        *uint32    `yaml:"label"`
}

type FilterSpec struct {
	Sender      netip.Addr `yaml:"sender"`
	LSPID       uint16     `yaml:"lspID"`
	Label       uint32     `yaml:"label"`
	RecordRoute []Hop      `yaml:"recordRoute"`
}

type SEFlowDescriptor struct {
	FlowSpec    FlowSpec     `yaml:"flowSpec"`
	FilterSpecs []FilterSpec `yaml:"filterSpecs"`
}

// Fixture holds exactly one construct description.
type Fixture struct {
	Notify           *Notify           `yaml:"notify"`
	Request          *Request          `yaml:"request"`
	SEFlowDescriptor *SEFlowDescriptor `yaml:"seFlowDescriptor"`
}

func Read(r io.Reader) (*Fixture, error) {
	f := new(Fixture)
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(f); err != nil {
		return nil, fmt.Errorf("invalid fixture: %w", err)
	}
	return f, nil
}

func ReadFile(path string) (*Fixture, error) {
	fp, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	return Read(fp)
}

// Kind names the construct the fixture describes.
func (f *Fixture) Kind() string {
	var kinds []string
	if f.Notify != nil {
		kinds = append(kinds, "notify")
	}
	if f.Request != nil {
		kinds = append(kinds, "request")
	}
	if f.SEFlowDescriptor != nil {
		kinds = append(kinds, "seFlowDescriptor")
	}
	return strings.Join(kinds, ",")
}

// Build returns the typed construct. It does not serialize, so grammar
// errors surface from the construct's Serialize.
func (f *Fixture) Build() (Construct, error) {
	switch f.Kind() {
	case "notify":
		return f.Notify.build(), nil
	case "request":
		return f.Request.build()
	case "seFlowDescriptor":
		return f.SEFlowDescriptor.build()
	case "":
		return nil, errors.New("fixture describes no construct")
	}
	return nil, fmt.Errorf("fixture describes more than one construct: %s", f.Kind())
}

func (n *Notify) build() *pcep.Notify {
	c := &pcep.Notify{}
	for _, id := range n.RequestIDs {
		c.RequestIDList = append(c.RequestIDList, pcep.NewRequestParameters(id, 0))
	}
	for _, no := range n.Notifications {
		var tlvs []pcep.TLVInterface
		if no.OverloadDuration != nil {
			tlvs = append(tlvs, &pcep.OverloadDuration{Seconds: *no.OverloadDuration})
		}
		if no.ReqMissing != nil {
			tlvs = append(tlvs, &pcep.ReqMissing{RequestID: *no.ReqMissing})
		}
		c.NotificationList = append(c.NotificationList, pcep.NewNotification(no.Type, no.Value, tlvs...))
	}
	return c
}

var metricTypes = map[string]pcep.MetricType{
	"igp":      pcep.MetricTypeIGP,
	"te":       pcep.MetricTypeTE,
	"hopcount": pcep.MetricTypeHopCount,
}

func (r *Request) build() (*pcep.Request, error) {
	c := &pcep.Request{
		RP:        pcep.NewRequestParameters(r.RequestID, r.Priority),
		EndPoints: pcep.NewEndPoints(r.Source, r.Destination),
	}
	if r.Bandwidth != nil {
		c.Bandwidth = &pcep.Bandwidth{Bandwidth: *r.Bandwidth}
	}
	for i, m := range r.Metrics {
		mt, ok := metricTypes[strings.ToLower(m.Type)]
		if !ok {
			return nil, fmt.Errorf("metrics[%d]: unknown metric type %q", i, m.Type)
		}
		c.Metrics = append(c.Metrics, &pcep.Metric{
			MetricType: mt,
			Value:      m.Value,
			Bound:      m.Bound,
			Computed:   m.Computed,
		})
	}
	return c, nil
}

var services = map[string]rsvp.ServiceNumber{
	"controlled-load": rsvp.ServiceControlledLoad,
	"guaranteed":      rsvp.ServiceGuaranteed,
}

func (d *SEFlowDescriptor) build() (*rsvp.SEFlowDescriptor, error) {
	service, ok := services[strings.ToLower(d.FlowSpec.Service)]
	if !ok {
		return nil, fmt.Errorf("flowSpec: unknown service %q", d.FlowSpec.Service)
	}
	c := &rsvp.SEFlowDescriptor{
		FlowSpec: &rsvp.FlowSpec{
			Service:         service,
			TokenBucketRate: d.FlowSpec.TokenBucketRate,
			TokenBucketSize: d.FlowSpec.TokenBucketSize,
			PeakDataRate:    d.FlowSpec.PeakDataRate,
			MinPolicedUnit:  d.FlowSpec.MinPolicedUnit,
			MaxPacketSize:   d.FlowSpec.MaxPacketSize,
			Rate:            d.FlowSpec.Rate,
			SlackTerm:       d.FlowSpec.SlackTerm,
		},
	}
	for i, fs := range d.FilterSpecs {
		f := &rsvp.SEFilterSpec{
			FilterSpec: rsvp.NewFilterSpecLSPTunnel(fs.Sender, fs.LSPID),
			Label:      &rsvp.Label{Label: fs.Label},
		}
		if len(fs.RecordRoute) > 0 {
			rro := &rsvp.RecordRoute{}
			for j, hop := range fs.RecordRoute {
				s, err := hop.subobject()
				if err != nil {
					return nil, fmt.Errorf("filterSpecs[%d].recordRoute[%d]: %w", i, j, err)
				}
				rro.Subobjects = append(rro.Subobjects, s)
			}
			f.RecordRoute = rro
		}
		c.FilterSpecs = append(c.FilterSpecs, f)
	}
	return c, nil
}

func (h Hop) subobject() (rsvp.RROSubobject, error) {
	switch {
	case h.Label != nil && h.Address.IsValid():
		return nil, errors.New("hop has both address and label")
	case h.Label != nil:
		return &rsvp.LabelRROSubobject{CType: rsvp.CTypeLabelGeneric, Label: *h.Label}, nil
	case h.Address.Is4():
		return rsvp.NewIPv4RROSubobject(h.Address, h.prefixLength(32)), nil
	case h.Address.Is6():
		return rsvp.NewIPv6RROSubobject(h.Address, h.prefixLength(128)), nil
	}
	return nil, errors.New("hop needs an address or a label")
}

func (h Hop) prefixLength(host uint8) uint8 {
	if h.PrefixLength != nil {
		return *h.PrefixLength
	}
	return host
}
