// Copyright (c) 2022 NTT Communications Corporation
//
// This software is released under the MIT License.
// see https://github.com/nttcom/pola/blob/main/LICENSE

package pcep

import (
	"go.uber.org/zap/zapcore"

	"github.com/nttcom/tesig/pkg/packet/codec"
)

// decodeAs returns a slot decoder that decodes one object of type PT and
// hands it to add.
func decodeAs[T any, PT interface {
	*T
	Object
}](add func(PT)) func([]byte, *codec.Options) (int, error) {
	return func(data []byte, o *codec.Options) (int, error) {
		var h CommonObjectHeader
		if err := h.DecodeFromBytes(data); err != nil {
			return 0, err
		}
		obj := PT(new(T))
		if err := codec.DecodeUnit(obj, data[:h.ObjectLength], o); err != nil {
			return 0, codec.Within(err, h.ObjectClass.String())
		}
		add(obj)
		return int(h.ObjectLength), nil
	}
}

func present[T any](p *T) int {
	if p == nil {
		return 0
	}
	return 1
}

func marshalObjects[T Object](enc zapcore.ObjectEncoder, key string, objs []T) error {
	if len(objs) == 0 {
		return nil
	}
	return enc.AddArray(key, zapcore.ArrayMarshalerFunc(func(ae zapcore.ArrayEncoder) error {
		for _, obj := range objs {
			if err := ae.AppendObject(obj); err != nil {
				return err
			}
		}
		return nil
	}))
}

// Notify construct (RFC5440 6.6)
//
//	<notify> ::= [<request-id-list>]
//	             <notification-list>
//	<request-id-list> ::= <RP>[<request-id-list>]
//	<notification-list> ::= <NOTIFICATION>[<notification-list>]
type Notify struct {
	RequestIDList    []*RequestParameters
	NotificationList []*Notification
}

func (n *Notify) production() *codec.Production {
	return &codec.Production{
		Name: "notify",
		Peek: PeekObjectClass,
		Slots: []codec.Slot{
			{
				Name:   "RP",
				Class:  uint8(ObjectClassRP),
				Decode: decodeAs(func(rp *RequestParameters) { n.RequestIDList = append(n.RequestIDList, rp) }),
				Count:  func() int { return len(n.RequestIDList) },
			},
			{
				Name:   "NOTIFICATION",
				Class:  uint8(ObjectClassNotification),
				Min:    1,
				Decode: decodeAs(func(no *Notification) { n.NotificationList = append(n.NotificationList, no) }),
				Count:  func() int { return len(n.NotificationList) },
			},
		},
	}
}

// DecodeFromBytes requires data to hold exactly one Notify construct.
func (n *Notify) DecodeFromBytes(data []byte, opts ...codec.Opt) error {
	var tmp Notify
	if err := tmp.production().Decode(data, opts...); err != nil {
		return err
	}
	*n = tmp
	return nil
}

func (n *Notify) Serialize() ([]byte, error) {
	if err := n.production().Validate(); err != nil {
		return nil, err
	}
	rps, err := codec.SerializeList(n.RequestIDList)
	if err != nil {
		return nil, codec.Within(err, "notify")
	}
	notifications, err := codec.SerializeList(n.NotificationList)
	if err != nil {
		return nil, codec.Within(err, "notify")
	}
	if err := codec.CheckLength("notify", len(rps)+len(notifications)); err != nil {
		return nil, err
	}
	return codec.AppendByteSlices(rps, notifications), nil
}

func (n *Notify) Len() uint16 {
	return codec.Len16(codec.ListLen(n.RequestIDList) + codec.ListLen(n.NotificationList))
}

func (n *Notify) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if err := marshalObjects(enc, "requestIDList", n.RequestIDList); err != nil {
		return err
	}
	return marshalObjects(enc, "notificationList", n.NotificationList)
}

// DecodeNotify decodes the Notify construct starting at offset and returns it
// with the number of bytes it occupies. Objects following the construct are
// left untouched.
func DecodeNotify(data []byte, offset int, opts ...codec.Opt) (*Notify, int, error) {
	c, err := codec.NewCursorAt(data, offset)
	if err != nil {
		return nil, 0, err
	}
	var n Notify
	consumed, err := n.production().Match(c.Rest(), opts...)
	if err != nil {
		return nil, 0, codec.Shift(err, offset)
	}
	return &n, consumed, nil
}

// DecodeNotifyList decodes the <notify-list> body of a PCNtf message (RFC5440 6.6).
func DecodeNotifyList(data []byte, opts ...codec.Opt) ([]*Notify, error) {
	var notifies []*Notify
	for offset := 0; offset < len(data); {
		n, consumed, err := DecodeNotify(data, offset, opts...)
		if err != nil {
			return nil, err
		}
		notifies = append(notifies, n)
		offset += consumed
	}
	if len(notifies) == 0 {
		return nil, codec.Violation(0, "notify-list: expected at least 1 notify")
	}
	return notifies, nil
}

// SerializeNotifyList concatenates the constructs of a <notify-list>.
func SerializeNotifyList(notifies []*Notify) ([]byte, error) {
	if len(notifies) == 0 {
		return nil, codec.Violation(0, "notify-list: expected at least 1 notify")
	}
	bufs := make([][]byte, 0, len(notifies))
	for _, n := range notifies {
		b, err := n.Serialize()
		if err != nil {
			return nil, err
		}
		bufs = append(bufs, b)
	}
	return codec.AppendByteSlices(bufs...), nil
}

// Request construct, the path computation request of a PCReq message
// without the optional LSPA, RRO and IRO objects (RFC5440 6.4)
//
//	<request> ::= <RP>
//	              <END-POINTS>
//	              [<BANDWIDTH>]
//	              [<metric-list>]
type Request struct {
	RP        *RequestParameters
	EndPoints *EndPoints
	Bandwidth *Bandwidth
	Metrics   []*Metric
}

func (r *Request) production() *codec.Production {
	return &codec.Production{
		Name: "request",
		Peek: PeekObjectClass,
		Slots: []codec.Slot{
			{
				Name:   "RP",
				Class:  uint8(ObjectClassRP),
				Min:    1,
				Max:    1,
				Decode: decodeAs(func(rp *RequestParameters) { r.RP = rp }),
				Count:  func() int { return present(r.RP) },
			},
			{
				Name:   "END-POINTS",
				Class:  uint8(ObjectClassEndPoints),
				Min:    1,
				Max:    1,
				Decode: decodeAs(func(ep *EndPoints) { r.EndPoints = ep }),
				Count:  func() int { return present(r.EndPoints) },
			},
			{
				Name:   "BANDWIDTH",
				Class:  uint8(ObjectClassBandwidth),
				Max:    1,
				Decode: decodeAs(func(bw *Bandwidth) { r.Bandwidth = bw }),
				Count:  func() int { return present(r.Bandwidth) },
			},
			{
				Name:   "METRIC",
				Class:  uint8(ObjectClassMetric),
				Decode: decodeAs(func(m *Metric) { r.Metrics = append(r.Metrics, m) }),
				Count:  func() int { return len(r.Metrics) },
			},
		},
	}
}

// DecodeFromBytes requires data to hold exactly one Request construct.
func (r *Request) DecodeFromBytes(data []byte, opts ...codec.Opt) error {
	var tmp Request
	if err := tmp.production().Decode(data, opts...); err != nil {
		return err
	}
	*r = tmp
	return nil
}

func (r *Request) objects() []Object {
	var objs []Object
	if r.RP != nil {
		objs = append(objs, r.RP)
	}
	if r.EndPoints != nil {
		objs = append(objs, r.EndPoints)
	}
	if r.Bandwidth != nil {
		objs = append(objs, r.Bandwidth)
	}
	for _, m := range r.Metrics {
		objs = append(objs, m)
	}
	return objs
}

func (r *Request) Serialize() ([]byte, error) {
	if err := r.production().Validate(); err != nil {
		return nil, err
	}
	b, err := codec.SerializeList(r.objects())
	if err != nil {
		return nil, codec.Within(err, "request")
	}
	if err := codec.CheckLength("request", len(b)); err != nil {
		return nil, err
	}
	return b, nil
}

func (r *Request) Len() uint16 {
	return codec.Len16(codec.ListLen(r.objects()))
}

func (r *Request) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	if r.RP != nil {
		if err := enc.AddObject("rp", r.RP); err != nil {
			return err
		}
	}
	if r.EndPoints != nil {
		if err := enc.AddObject("endPoints", r.EndPoints); err != nil {
			return err
		}
	}
	if r.Bandwidth != nil {
		if err := enc.AddObject("bandwidth", r.Bandwidth); err != nil {
			return err
		}
	}
	return marshalObjects(enc, "metrics", r.Metrics)
}
